// Package command contains the write-side operations of the progression
// engine (CQRS commands). The Facade is the single entry point the interface
// layer talks to: it orchestrates the ledger, streak tracker, challenge
// engine, achievement tracker, and reward unlocker over one aggregate.
package command

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/challenge"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/progress"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/routine"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
	"github.com/crisnc100/FlexBreak-sub005/pkg/logger"
	"github.com/crisnc100/FlexBreak-sub005/pkg/retry"
	"github.com/crisnc100/FlexBreak-sub005/pkg/timeutil"
)

// Deps wires the Facade. Everything is injected; the Facade owns no global
// state, so tests can build as many isolated instances as they need.
type Deps struct {
	Store        progress.Store
	Routines     routine.CachedLog
	Ledger       *progress.XPLedger
	Levels       *progress.LevelCalculator
	Streaks      *progress.StreakTracker
	Achievements *progress.AchievementTracker
	Rewards      *progress.RewardUnlocker
	Challenges   *challenge.Engine
	Calendar     *timeutil.Calendar
	Bus          shared.EventBus
	Logger       *logger.Logger
}

// Facade is the progression engine's orchestrator. Writes are serialized
// through a single mutex (single-writer queue); optimistic-concurrency
// conflicts from writers outside this process are absorbed by re-running the
// whole read-modify-write cycle.
type Facade struct {
	deps    Deps
	log     *logger.Logger
	retrier *retry.Retrier

	// mu serializes every mutating operation within the process.
	mu sync.Mutex
}

// NewFacade creates the orchestrator.
func NewFacade(deps Deps) *Facade {
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Facade{
		deps: deps,
		log:  log.With(logger.Component("progression")),
		retrier: retry.New(
			retry.WithMaxAttempts(3),
			retry.WithRetryIf(func(err error) bool {
				return errors.Is(err, shared.ErrConcurrentModification)
			}),
		),
	}
}

// mutate runs one read-modify-write cycle. The caller must hold f.mu. fn
// receives a freshly loaded, seeded aggregate and returns the domain events
// to publish once the save has succeeded. On a version conflict the whole
// cycle re-runs against the latest document, so fn must derive its mutations
// from current state rather than from values captured outside.
func (f *Facade) mutate(ctx context.Context, op string, fn func(up *progress.UserProgress) ([]shared.Event, error)) error {
	var events []shared.Event

	err := f.retrier.Do(ctx, func(ctx context.Context) error {
		up, err := f.loadAggregate(ctx)
		if err != nil {
			return retry.Permanent(err)
		}

		events = nil
		events, err = fn(up)
		if err != nil {
			return retry.Permanent(err)
		}

		f.repairLevelInvariant(up)

		if err := f.deps.Store.SaveUserProgress(ctx, up); err != nil {
			if errors.Is(err, shared.ErrConcurrentModification) {
				f.log.Warn("save conflict, retrying", logger.Operation(op))
				return retry.Retryable(err)
			}
			return retry.Permanent(shared.WrapStorage("progression", op, err))
		}
		return nil
	})
	if err != nil {
		return err
	}

	f.publish(events)
	return nil
}

// loadAggregate loads and normalizes the document and seeds catalog entries.
func (f *Facade) loadAggregate(ctx context.Context) (*progress.UserProgress, error) {
	up, err := f.deps.Store.GetUserProgress(ctx)
	if err != nil {
		return nil, shared.WrapStorage("progression", "Load", err)
	}
	up.Normalize()
	f.deps.Achievements.Seed(up)
	f.deps.Rewards.Seed(up)
	return up, nil
}

// repairLevelInvariant enforces level == LevelFor(totalXP) before any write,
// repairing silently when stored state has drifted.
func (f *Facade) repairLevelInvariant(up *progress.UserProgress) {
	old, current := up.RepairLevel(f.deps.Levels)
	if old != current {
		f.log.Debug("level invariant repaired",
			logger.Int("stored_level", old.Int()),
			logger.Int("derived_level", current.Int()))
	}
}

// publish emits events fire-and-forget, in order. Achievement completions
// are already staggered by the bus's async mode; a crash between save and
// emit can lose a notification but never persisted state.
func (f *Facade) publish(events []shared.Event) {
	if f.deps.Bus == nil {
		return
	}
	for _, e := range events {
		f.deps.Bus.Publish(e)
	}
}

// loadRoutines reads the routine log through the cache.
func (f *Facade) loadRoutines(ctx context.Context) ([]*routine.Record, error) {
	records, err := f.deps.Routines.GetAll(ctx)
	if err != nil {
		return nil, shared.WrapStorage("progression", "LoadRoutines", err)
	}
	return records, nil
}

// recomputeLevelAndRewards re-derives the level after any XP change, emitting
// level-up and reward events. The reward scan only runs on an actual level
// change.
func (f *Facade) recomputeLevelAndRewards(up *progress.UserProgress, now time.Time) []shared.Event {
	var events []shared.Event

	info := f.deps.Levels.LevelFor(up.TotalXP)
	if info.Level == up.Level {
		return nil
	}

	oldLevel := up.Level
	up.Level = info.Level

	if info.Level > oldLevel {
		events = append(events, shared.LevelUpEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventLevelUp, now),
			OldLevel:  oldLevel.Int(),
			NewLevel:  info.Level.Int(),
			TotalXP:   up.TotalXP.Int(),
		})
	}

	for _, r := range f.deps.Rewards.Apply(up, now) {
		events = append(events, shared.RewardUnlockedEvent{
			BaseEvent:   shared.NewBaseEvent(shared.EventRewardUnlocked, now),
			RewardID:    r.ID,
			UnlockLevel: r.UnlockLevel,
		})
	}
	return events
}
