package command

import (
	"context"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/progress"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
	"github.com/crisnc100/FlexBreak-sub005/pkg/logger"
)

// RecalculateResult reports the repaired state after a full rebuild.
type RecalculateResult struct {
	TotalRoutines int  `json:"totalRoutines"`
	TotalMinutes  int  `json:"totalMinutes"`
	CurrentStreak int  `json:"currentStreak"`
	BestStreak    int  `json:"bestStreak"`
	Level         int  `json:"level"`
	LevelRepaired bool `json:"levelRepaired"`
}

// RecalculateStatistics rebuilds the derived statistics from the routine log
// and re-derives the streak and level. The XP balance and completed
// achievements are never touched; this only repairs drift in the numbers
// that are supposed to be pure functions of the log.
func (f *Facade) RecalculateStatistics(ctx context.Context) (*RecalculateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deps.Routines.Invalidate(ctx)
	records, err := f.loadRoutines(ctx)
	if err != nil {
		return nil, err
	}

	now := f.deps.Calendar.Now()
	result := &RecalculateResult{}

	err = f.mutate(ctx, "RecalculateStatistics", func(up *progress.UserProgress) ([]shared.Event, error) {
		var events []shared.Event

		up.Statistics.Rebuild(records, f.deps.Calendar)

		outcome := f.deps.Streaks.Reconcile(up, records)
		if outcome.Saved {
			events = append(events, shared.StreakSavedEvent{
				BaseEvent:          shared.NewBaseEvent(shared.EventStreakSaved, now),
				PreservedStreak:    outcome.CurrentStreak,
				FlexSavesRemaining: up.FlexSaves.Available,
			})
		}
		if outcome.Broken {
			f.deps.Achievements.ResetStreakProgress(up)
			f.deps.Challenges.ResetStreakProgress(up.Challenges)
			events = append(events, shared.StreakBrokenEvent{
				BaseEvent:      shared.NewBaseEvent(shared.EventStreakBroken, now),
				PreviousStreak: outcome.PreviousStreak,
			})
		}

		// Best streak is a pure function of the log too; re-derive it
		// rather than trusting the stored value. Reconcile ran first,
		// so any token it just spent is in the covered set.
		covered := up.FlexSaves.CoveredDayKeys(f.deps.Calendar)
		longest := f.deps.Streaks.Longest(records, covered)
		if longest < up.Statistics.CurrentStreak {
			longest = up.Statistics.CurrentStreak
		}
		up.Statistics.BestStreak = longest

		oldLevel := up.Level.Int()
		f.repairLevelInvariant(up)
		result.LevelRepaired = up.Level.Int() != oldLevel

		result.TotalRoutines = up.Statistics.TotalRoutines
		result.TotalMinutes = up.Statistics.TotalMinutes
		result.CurrentStreak = up.Statistics.CurrentStreak
		result.BestStreak = up.Statistics.BestStreak
		result.Level = up.Level.Int()
		return events, nil
	})
	if err != nil {
		return nil, err
	}

	f.log.Info("statistics recalculated",
		logger.Int("total_routines", result.TotalRoutines),
		logger.StreakLength(result.CurrentStreak),
		logger.Bool("level_repaired", result.LevelRepaired))

	return result, nil
}

// ResetProgress wipes the aggregate back to a fresh state. The routine log
// is kept; a follow-up RecalculateStatistics restores the derived numbers.
func (f *Facade) ResetProgress(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.deps.Store.ResetUserProgress(ctx); err != nil {
		return shared.WrapStorage("progression", "ResetProgress", err)
	}
	f.log.Warn("user progress reset")
	return nil
}
