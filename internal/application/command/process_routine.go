package command

import (
	"context"
	"time"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/challenge"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/progress"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/routine"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
	"github.com/crisnc100/FlexBreak-sub005/pkg/logger"
)

// ProcessRoutineCommand records one completed stretch routine. This is the
// engine's single hot path: it drives XP, streaks, challenges, achievements,
// levels, and rewards in one pass.
type ProcessRoutineCommand struct {
	// Area is the body area the routine targeted.
	Area string

	// DurationMinutes is the routine length.
	DurationMinutes int

	// CompletedAt defaults to now when zero.
	CompletedAt time.Time

	// BoostMultiplier scales base XP while a temporary boost is active.
	// Zero means no boost (1x).
	BoostMultiplier float64
}

// Validate validates the command.
func (c ProcessRoutineCommand) Validate() error {
	if c.Area == "" {
		return shared.NewDomainError("progression", "ProcessRoutine", shared.ErrEmptyValue, "area is required")
	}
	if c.DurationMinutes <= 0 {
		return shared.NewDomainError("progression", "ProcessRoutine", shared.ErrNegativeValue, "duration must be positive")
	}
	return nil
}

// ProcessRoutineResult summarizes everything the routine triggered.
type ProcessRoutineResult struct {
	Record *routine.Record `json:"record"`

	XPEarned  int                      `json:"xpEarned"`
	Breakdown []progress.BreakdownItem `json:"breakdown"`
	TotalXP   int                      `json:"totalXP"`

	Level     int  `json:"level"`
	LeveledUp bool `json:"leveledUp"`

	CurrentStreak int  `json:"currentStreak"`
	StreakSaved   bool `json:"streakSaved"`
	StreakBroken  bool `json:"streakBroken"`

	CompletedChallenges   []*challenge.Challenge  `json:"completedChallenges"`
	CompletedAchievements []*progress.Achievement `json:"completedAchievements"`
	UnlockedRewards       []*progress.Reward      `json:"unlockedRewards"`
}

// ProcessRoutine runs the full progression pipeline for one completed
// routine: append to the log, invalidate the cache, then one atomic
// read-modify-write over the aggregate, then event emission.
func (f *Facade) ProcessRoutine(ctx context.Context, cmd ProcessRoutineCommand) (*ProcessRoutineResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.deps.Calendar.Now()
	completedAt := cmd.CompletedAt
	if completedAt.IsZero() {
		completedAt = now
	}

	record, err := routine.NewRecord(cmd.Area, cmd.DurationMinutes, completedAt)
	if err != nil {
		return nil, err
	}

	// First-of-day and first-ever are judged against the log as it was
	// before this routine.
	prior, err := f.loadRoutines(ctx)
	if err != nil {
		return nil, err
	}
	isFirstEver := len(prior) == 0
	isFirstToday := true
	for _, r := range prior {
		if f.deps.Calendar.SameDay(r.CompletedAt, record.CompletedAt) {
			isFirstToday = false
			break
		}
	}

	if err := f.deps.Routines.Append(ctx, record); err != nil {
		return nil, shared.WrapStorage("progression", "AppendRoutine", err)
	}
	f.deps.Routines.Invalidate(ctx)

	records, err := f.loadRoutines(ctx)
	if err != nil {
		return nil, err
	}

	result := &ProcessRoutineResult{Record: record}

	err = f.mutate(ctx, "ProcessRoutine", func(up *progress.UserProgress) ([]shared.Event, error) {
		var events []shared.Event

		// The closure re-runs on a save conflict; accumulated fields
		// must start clean each attempt.
		result.UnlockedRewards = nil
		result.LeveledUp = false
		result.Level = 0

		// Challenge maintenance runs first so stale challenges never
		// see this routine.
		events = append(events, f.maintainChallenges(up, now)...)

		// Flex-save tokens accrue on their own schedule; the check is
		// idempotent.
		streakCfg := f.deps.Streaks.Config()
		up.FlexSaves.Grant(now, streakCfg.GrantPeriod, streakCfg.MaxFlexSaves)

		// XP. Base XP only for the first routine of the day; the
		// welcome bonus exactly once ever.
		firstEver := isFirstEver && !up.HasReceivedWelcomeBonus
		comp := f.deps.Ledger.ComputeRoutineXP(record.DurationMinutes.Int(), isFirstToday, firstEver, cmd.BoostMultiplier)
		for _, item := range comp.Breakdown {
			f.deps.Ledger.Apply(up, item.Amount, item.Source, string(record.Area), now)
		}
		if firstEver {
			up.HasReceivedWelcomeBonus = true
		}
		if comp.Total > 0 {
			events = append(events, shared.XPUpdatedEvent{
				BaseEvent: shared.NewBaseEvent(shared.EventXPUpdated, now),
				Amount:    comp.Total,
				TotalXP:   up.TotalXP.Int(),
				Source:    progress.SourceRoutine,
				Details:   string(record.Area),
			})
		}
		result.XPEarned = comp.Total
		result.Breakdown = comp.Breakdown

		// Statistics and streak.
		up.Statistics.RecordRoutine(record, now)
		streakEvents, outcome := f.reconcileStreak(up, records, now)
		events = append(events, streakEvents...)
		result.CurrentStreak = outcome.CurrentStreak
		result.StreakSaved = outcome.Saved
		result.StreakBroken = outcome.Broken

		// Challenge and achievement progress always run, independent of
		// the daily base-XP rule.
		completed := f.deps.Challenges.UpdateProgress(up.Challenges, challenge.ProgressInput{
			Routines: records,
			Streak:   outcome.CurrentStreak,
			Now:      now,
		})
		for _, c := range completed {
			events = append(events, shared.ChallengeCompletedEvent{
				BaseEvent:   shared.NewBaseEvent(shared.EventChallengeCompleted, now),
				ChallengeID: c.ID,
				Category:    string(c.Category),
				XPValue:     c.XP,
			})
		}
		result.CompletedChallenges = completed

		achieved := f.deps.Achievements.Update(up, outcome.CurrentStreak, now)
		for _, a := range achieved {
			f.deps.Ledger.Apply(up, a.XP, progress.SourceAchievement, a.ID, now)
			events = append(events, shared.AchievementCompletedEvent{
				BaseEvent:     shared.NewBaseEvent(shared.EventAchievementCompleted, now),
				AchievementID: a.ID,
				Title:         a.Title,
				XPEarned:      a.XP,
			})
		}
		result.CompletedAchievements = achieved

		// Level and rewards.
		levelEvents := f.recomputeLevelAndRewards(up, now)
		events = append(events, levelEvents...)
		for _, e := range levelEvents {
			if lu, ok := e.(shared.LevelUpEvent); ok {
				result.LeveledUp = true
				result.Level = lu.NewLevel
			}
			if ru, ok := e.(shared.RewardUnlockedEvent); ok {
				result.UnlockedRewards = append(result.UnlockedRewards, up.Rewards[ru.RewardID])
			}
		}

		result.TotalXP = up.TotalXP.Int()
		if result.Level == 0 {
			result.Level = up.Level.Int()
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}

	f.log.Info("routine processed",
		logger.Area(string(record.Area)),
		logger.Int("duration_min", record.DurationMinutes.Int()),
		logger.XPAmount(result.XPEarned),
		logger.StreakLength(result.CurrentStreak))

	return result, nil
}

// maintainChallenges sweeps, prunes, and tops up the challenge population.
func (f *Facade) maintainChallenges(up *progress.UserProgress, now time.Time) []shared.Event {
	var events []shared.Event

	for _, c := range f.deps.Challenges.Sweep(up.Challenges, now) {
		events = append(events, shared.ChallengeExpiredEvent{
			BaseEvent:    shared.NewBaseEvent(shared.EventChallengeExpired, now),
			ChallengeID:  c.ID,
			Category:     string(c.Category),
			WasCompleted: c.Completed,
		})
	}

	f.deps.Challenges.RemoveStale(up.Challenges, now)

	for _, c := range f.deps.Challenges.EnsurePopulation(up.Challenges, up.LastCycleChecks, now) {
		events = append(events, shared.ChallengeGeneratedEvent{
			BaseEvent:   shared.NewBaseEvent(shared.EventChallengeGenerated, now),
			ChallengeID: c.ID,
			Category:    string(c.Category),
			Title:       c.Title,
		})
	}
	return events
}

// reconcileStreak derives the streak fresh and handles break fallout: on an
// unprotected break, in-progress streak achievements and streak challenges
// reset to zero.
func (f *Facade) reconcileStreak(up *progress.UserProgress, records []*routine.Record, now time.Time) ([]shared.Event, progress.BreakOutcome) {
	var events []shared.Event

	outcome := f.deps.Streaks.Reconcile(up, records)

	if outcome.Drifted {
		f.log.Warn("streak statistic drifted, repaired",
			logger.Int("stored", outcome.PreviousStreak),
			logger.Int("derived", outcome.CurrentStreak))
	}

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
	case outcome.CurrentStreak != outcome.PreviousStreak:
		events = append(events, shared.StreakUpdatedEvent{
			BaseEvent:     shared.NewBaseEvent(shared.EventStreakUpdated, now),
			CurrentStreak: outcome.CurrentStreak,
			BestStreak:    up.Statistics.BestStreak,
		})
	}

	return events, outcome
}
