package command

import (
	"context"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/progress"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
	"github.com/crisnc100/FlexBreak-sub005/pkg/logger"
)

// Scheduled maintenance entry points. The same sweep / prune / top-up logic
// runs inline on every routine and claim, so these jobs only matter for the
// quiet hours when no user action arrives to trigger it.

// RefreshChallenges expires overdue challenges, prunes stale ones, and tops
// the set back up to the per-category targets.
func (f *Facade) RefreshChallenges(ctx context.Context) (expired, generated int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.deps.Calendar.Now()

	err = f.mutate(ctx, "RefreshChallenges", func(up *progress.UserProgress) ([]shared.Event, error) {
		events := f.maintainChallenges(up, now)
		for _, e := range events {
			switch e.EventType() {
			case shared.EventChallengeExpired:
				expired++
			case shared.EventChallengeGenerated:
				generated++
			}
		}
		return events, nil
	})
	if err != nil {
		return 0, 0, err
	}

	if expired > 0 || generated > 0 {
		f.log.Info("challenge set refreshed",
			logger.Int("expired", expired),
			logger.Int("generated", generated))
	}
	return expired, generated, nil
}

// GrantFlexSaves accrues any flex-save tokens earned since the last grant.
func (f *Facade) GrantFlexSaves(ctx context.Context) (granted int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.deps.Calendar.Now()
	cfg := f.deps.Streaks.Config()

	var available int
	err = f.mutate(ctx, "GrantFlexSaves", func(up *progress.UserProgress) ([]shared.Event, error) {
		granted = up.FlexSaves.Grant(now, cfg.GrantPeriod, cfg.MaxFlexSaves)
		available = up.FlexSaves.Available
		return nil, nil
	})
	if err != nil {
		return 0, err
	}

	if granted > 0 {
		f.log.Info("flex saves granted",
			logger.Int("granted", granted),
			logger.Int("available", available))
	}
	return granted, nil
}

// ValidateStreak re-derives the streak from the log, spending a flex save if
// one covers a fresh break. Run at startup and at the daily rollover so a
// break is detected even when the user never opens the app.
func (f *Facade) ValidateStreak(ctx context.Context) (*progress.BreakOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.loadRoutines(ctx)
	if err != nil {
		return nil, err
	}

	now := f.deps.Calendar.Now()
	var outcome progress.BreakOutcome

	err = f.mutate(ctx, "ValidateStreak", func(up *progress.UserProgress) ([]shared.Event, error) {
		var events []shared.Event
		outcome = f.deps.Streaks.Reconcile(up, records)
		switch {
		case outcome.Saved:
			events = append(events, shared.StreakSavedEvent{
				BaseEvent:          shared.NewBaseEvent(shared.EventStreakSaved, now),
				PreservedStreak:    outcome.CurrentStreak,
				FlexSavesRemaining: up.FlexSaves.Available,
			})
		case outcome.Broken:
			f.deps.Achievements.ResetStreakProgress(up)
			f.deps.Challenges.ResetStreakProgress(up.Challenges)
			events = append(events, shared.StreakBrokenEvent{
				BaseEvent:      shared.NewBaseEvent(shared.EventStreakBroken, now),
				PreviousStreak: outcome.PreviousStreak,
			})
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.Broken || outcome.Saved {
		f.log.Info("streak validated",
			logger.StreakLength(outcome.CurrentStreak),
			logger.Bool("saved", outcome.Saved),
			logger.Bool("broken", outcome.Broken))
	}
	return &outcome, nil
}
