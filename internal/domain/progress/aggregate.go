// Package progress owns the UserProgress aggregate and the components that
// mutate it: the XP ledger, level calculator, streak tracker, flex-save bank,
// achievement tracker, and reward unlocker. The aggregate is loaded, mutated
// in memory, and written back as a whole document; nothing here performs I/O.
package progress

import (
	"time"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/challenge"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/routine"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
	"github.com/crisnc100/FlexBreak-sub005/pkg/timeutil"
)

// UserProgress is the single writable root aggregate. All sub-entities are
// owned by it and persisted atomically; it is never partially saved.
type UserProgress struct {
	TotalXP shared.XP    `json:"totalXP"`
	Level   shared.Level `json:"level"`

	Statistics Statistics `json:"statistics"`

	// Achievements is catalog-seeded and never shrinks.
	Achievements map[string]*Achievement `json:"achievements"`

	// Challenges are created and removed as cycles roll over.
	Challenges map[string]*challenge.Challenge `json:"challenges"`

	// Rewards is catalog-seeded; unlocked flips true once and never reverts.
	Rewards map[string]*Reward `json:"rewards"`

	// XPHistory is a capped append log used for audit and the anti-abuse
	// claim counters. Oldest entries are trimmed past the cap.
	XPHistory []XPEvent `json:"xpHistory"`

	FlexSaves FlexSaveBank `json:"flexSaves"`

	// LastCycleChecks gates challenge generation to one check per category
	// cycle.
	LastCycleChecks map[challenge.Category]time.Time `json:"lastDailyChallengeCheck"`

	// HasReceivedWelcomeBonus gates the one-time welcome XP.
	HasReceivedWelcomeBonus bool `json:"hasReceivedWelcomeBonus"`

	// Version is the optimistic-concurrency token checked on save.
	Version int64 `json:"version"`
}

// NewUserProgress creates an empty aggregate at level 1.
func NewUserProgress() *UserProgress {
	return &UserProgress{
		TotalXP:         0,
		Level:           1,
		Statistics:      NewStatistics(),
		Achievements:    make(map[string]*Achievement),
		Challenges:      make(map[string]*challenge.Challenge),
		Rewards:         make(map[string]*Reward),
		XPHistory:       nil,
		LastCycleChecks: make(map[challenge.Category]time.Time),
	}
}

// Normalize repairs nil maps after deserialization so older documents load
// cleanly.
func (up *UserProgress) Normalize() {
	if up.Achievements == nil {
		up.Achievements = make(map[string]*Achievement)
	}
	if up.Challenges == nil {
		up.Challenges = make(map[string]*challenge.Challenge)
	}
	if up.Rewards == nil {
		up.Rewards = make(map[string]*Reward)
	}
	if up.LastCycleChecks == nil {
		up.LastCycleChecks = make(map[challenge.Category]time.Time)
	}
	if up.Level < 1 {
		up.Level = 1
	}
	if up.Statistics.RoutinesByArea == nil {
		up.Statistics.RoutinesByArea = make(map[shared.Area]int)
	}
}

// RepairLevel re-derives the level from the XP balance. The stored level must
// always equal the calculator's result; this runs before every save.
// Returns the old and new levels.
func (up *UserProgress) RepairLevel(calc *LevelCalculator) (old, current shared.Level) {
	old = up.Level
	up.Level = calc.LevelFor(up.TotalXP).Level
	return old, up.Level
}

// Statistics is the denormalized activity summary kept on the aggregate.
// It can drift and is reconciled against the routine log.
type Statistics struct {
	TotalRoutines  int                 `json:"totalRoutines"`
	TotalMinutes   int                 `json:"totalMinutes"`
	CurrentStreak  int                 `json:"currentStreak"`
	BestStreak     int                 `json:"bestStreak"`
	UniqueAreas    []shared.Area       `json:"uniqueAreas"`
	RoutinesByArea map[shared.Area]int `json:"routinesByArea"`
	LastUpdated    time.Time           `json:"lastUpdated"`
}

// NewStatistics returns zeroed statistics.
func NewStatistics() Statistics {
	return Statistics{
		RoutinesByArea: make(map[shared.Area]int),
	}
}

// HasArea reports whether the area has been seen before.
func (s *Statistics) HasArea(area shared.Area) bool {
	for _, a := range s.UniqueAreas {
		if a == area {
			return true
		}
	}
	return false
}

// RecordRoutine folds one routine into the counters. Streak fields are
// maintained separately by the streak tracker.
func (s *Statistics) RecordRoutine(r *routine.Record, now time.Time) {
	s.TotalRoutines++
	s.TotalMinutes += r.DurationMinutes.Int()
	if !s.HasArea(r.Area) {
		s.UniqueAreas = append(s.UniqueAreas, r.Area)
	}
	if s.RoutinesByArea == nil {
		s.RoutinesByArea = make(map[shared.Area]int)
	}
	s.RoutinesByArea[r.Area]++
	s.LastUpdated = now
}

// MaxAreaCount returns the highest per-area routine count, the progress
// source for specific_area achievements.
func (s *Statistics) MaxAreaCount() int {
	max := 0
	for _, n := range s.RoutinesByArea {
		if n > max {
			max = n
		}
	}
	return max
}

// Rebuild recomputes all counters from the full routine log, discarding any
// drifted values. Streak fields are left for the streak tracker to reconcile.
func (s *Statistics) Rebuild(records []*routine.Record, cal *timeutil.Calendar) {
	current := s.CurrentStreak
	best := s.BestStreak

	*s = NewStatistics()
	s.CurrentStreak = current
	s.BestStreak = best

	for _, r := range records {
		s.RecordRoutine(r, cal.Now())
	}
}
