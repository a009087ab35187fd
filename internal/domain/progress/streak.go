package progress

import (
	"time"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/routine"
	"github.com/crisnc100/FlexBreak-sub005/pkg/timeutil"
)

// StreakConfig tunes streak protection.
type StreakConfig struct {
	// GrantPeriod is how often a flex-save token accrues.
	GrantPeriod time.Duration

	// MaxFlexSaves caps the bank.
	MaxFlexSaves int

	// MinStreakToSave is the smallest streak worth spending a token on.
	MinStreakToSave int
}

// DefaultStreakConfig returns the production streak rules.
func DefaultStreakConfig() StreakConfig {
	return StreakConfig{
		GrantPeriod:     7 * 24 * time.Hour,
		MaxFlexSaves:    2,
		MinStreakToSave: 3,
	}
}

// StreakTracker derives streaks from the routine log. The log is the source
// of truth; the cached statistics value is only ever written from a fresh
// derivation here, never trusted.
type StreakTracker struct {
	cfg StreakConfig
	cal *timeutil.Calendar
}

// NewStreakTracker creates a tracker.
func NewStreakTracker(cfg StreakConfig, cal *timeutil.Calendar) *StreakTracker {
	return &StreakTracker{cfg: cfg, cal: cal}
}

// Config returns the tracker's rules.
func (t *StreakTracker) Config() StreakConfig { return t.cfg }

// activeDayKeys collapses the routine log to the set of active calendar days.
func (t *StreakTracker) activeDayKeys(records []*routine.Record) map[string]bool {
	days := make(map[string]bool, len(records))
	for _, r := range records {
		days[t.cal.DayKey(r.CompletedAt)] = true
	}
	return days
}

// Current returns the streak ending today or yesterday: the maximal run of
// consecutive active calendar days. A day without activity does not break
// the streak until it has fully elapsed, so a run ending yesterday still
// counts. Days in covered are bridged by flex saves: they keep the run alive
// but do not add to the count, which is what preserves a streak at exactly
// its pre-break value.
func (t *StreakTracker) Current(records []*routine.Record, covered map[string]bool) int {
	days := t.activeDayKeys(records)
	if len(days) == 0 {
		return 0
	}

	cursor := t.cal.StartOfDay(t.cal.Now())
	if !days[t.cal.DayKey(cursor)] && !covered[t.cal.DayKey(cursor)] {
		cursor = cursor.AddDate(0, 0, -1) // grace: today is not over yet
	}

	streak := 0
	for {
		key := t.cal.DayKey(cursor)
		switch {
		case days[key]:
			streak++
		case covered[key]:
			// bridged, not counted
		default:
			return streak
		}
		cursor = cursor.AddDate(0, 0, -1)
	}
}

// Longest returns the best run anywhere in the log, with covered days
// bridging. Used for full statistics rebuilds.
func (t *StreakTracker) Longest(records []*routine.Record, covered map[string]bool) int {
	days := t.activeDayKeys(records)
	if len(days) == 0 {
		return 0
	}

	var earliest, latest time.Time
	for _, r := range records {
		d := t.cal.StartOfDay(r.CompletedAt)
		if earliest.IsZero() || d.Before(earliest) {
			earliest = d
		}
		if d.After(latest) {
			latest = d
		}
	}

	best, run := 0, 0
	for cursor := earliest; !cursor.After(latest); cursor = cursor.AddDate(0, 0, 1) {
		key := t.cal.DayKey(cursor)
		switch {
		case days[key]:
			run++
			if run > best {
				best = run
			}
		case covered[key]:
			// bridged, not counted
		default:
			run = 0
		}
	}
	return best
}

// BreakOutcome describes what a reconciliation pass did to the streak.
type BreakOutcome struct {
	// PreviousStreak is the stored value before reconciliation.
	PreviousStreak int

	// CurrentStreak is the reconciled value now on the aggregate.
	CurrentStreak int

	// Drifted is true when the stored value disagreed with the fresh
	// derivation for a reason other than a break.
	Drifted bool

	// Broken is true when the streak reset without a flex save.
	Broken bool

	// Saved is true when a flex save absorbed the break.
	Saved bool
}

// Reconcile derives the streak fresh from the log, detects breaks, and
// applies flex-save protection. On an unprotected break the caller is
// responsible for resetting streak-type achievement and challenge progress.
// At most one token is consumed per break.
func (t *StreakTracker) Reconcile(up *UserProgress, records []*routine.Record) BreakOutcome {
	covered := up.FlexSaves.CoveredDayKeys(t.cal)
	fresh := t.Current(records, covered)
	prior := up.Statistics.CurrentStreak

	out := BreakOutcome{PreviousStreak: prior}

	if fresh == 0 && prior > 0 {
		if saved := t.trySave(up, records, covered, prior); saved > 0 {
			fresh = saved
			out.Saved = true
		} else {
			out.Broken = true
		}
	} else if fresh != prior {
		out.Drifted = fresh < prior
	}

	up.Statistics.CurrentStreak = fresh
	if fresh > up.Statistics.BestStreak {
		up.Statistics.BestStreak = fresh
	}
	out.CurrentStreak = fresh
	return out
}

// trySave attempts to cover yesterday with a flex-save token. The save only
// helps when a single bridged day reconnects the run, so the token is spent
// only if the trial recomputation actually restores a positive streak.
func (t *StreakTracker) trySave(up *UserProgress, records []*routine.Record, covered map[string]bool, prior int) int {
	if up.FlexSaves.Available <= 0 || prior < t.cfg.MinStreakToSave {
		return 0
	}

	yesterday := t.cal.StartOfDay(t.cal.Now().AddDate(0, 0, -1))

	trial := make(map[string]bool, len(covered)+1)
	for k := range covered {
		trial[k] = true
	}
	trial[t.cal.DayKey(yesterday)] = true

	restored := t.Current(records, trial)
	if restored == 0 {
		return 0 // gap wider than one day; a token cannot bridge it
	}

	up.FlexSaves.Consume(yesterday, prior)
	return restored
}
