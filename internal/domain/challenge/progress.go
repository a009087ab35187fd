package challenge

import (
	"time"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/routine"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
)

// ProgressInput is the evidence a progress pass evaluates challenges against.
// Streak is the freshly reconciled streak length, never a cached statistic.
type ProgressInput struct {
	Routines []*routine.Record
	Streak   int
	Now      time.Time
}

// progressFunc computes the absolute progress value for one challenge.
// The map below is the single canonical dispatch: one handler per type,
// no fallback branch.
type progressFunc func(e *Engine, c *Challenge, in ProgressInput) int

var progressHandlers = map[Type]progressFunc{
	TypeRoutineCount: progressRoutineCount,
	TypeTotalMinutes: progressTotalMinutes,
	TypeDailyMinutes: progressDailyMinutes,
	TypeAreaVariety:  progressAreaVariety,
	TypeSpecificArea: progressSpecificArea,
	TypeTimeOfDay:    progressTimeOfDay,
	TypeWeekendDays:  progressWeekendDays,
	TypeStreak:       progressStreak,
}

// UpdateProgress recomputes progress for every active challenge and returns
// the ones that transitioned to Completed during this pass. Callers must run
// Sweep first so stale challenges never accumulate progress.
func (e *Engine) UpdateProgress(challenges map[string]*Challenge, in ProgressInput) []*Challenge {
	var completed []*Challenge
	for _, c := range challenges {
		if !c.IsActive() {
			continue
		}
		handler, ok := progressHandlers[c.Type]
		if !ok {
			continue // unknown type in persisted data; leave untouched
		}
		if c.SetProgress(handler(e, c, in), in.Now) {
			completed = append(completed, c)
		}
	}
	return completed
}

// ResetStreakProgress zeroes progress on active streak-type challenges.
// Called when a streak break is not absorbed by a flex save.
func (e *Engine) ResetStreakProgress(challenges map[string]*Challenge) []*Challenge {
	var reset []*Challenge
	for _, c := range challenges {
		if c.Type == TypeStreak && c.IsActive() && c.Progress > 0 {
			c.ResetProgress()
			reset = append(reset, c)
		}
	}
	return reset
}

// inWindow filters routines completed inside the challenge's window.
func (c *Challenge) inWindow(records []*routine.Record) []*routine.Record {
	var out []*routine.Record
	for _, r := range records {
		if r.CompletedAt.Before(c.StartDate) || r.CompletedAt.After(c.EndDate) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func progressRoutineCount(e *Engine, c *Challenge, in ProgressInput) int {
	return len(c.inWindow(in.Routines))
}

func progressTotalMinutes(e *Engine, c *Challenge, in ProgressInput) int {
	total := 0
	for _, r := range c.inWindow(in.Routines) {
		total += r.DurationMinutes.Int()
	}
	return total
}

// progressDailyMinutes sums minutes for the current calendar day only. Daily
// challenges span one day anyway, but the handler re-checks the day so a
// record from a previous day inside a wider window never counts.
func progressDailyMinutes(e *Engine, c *Challenge, in ProgressInput) int {
	total := 0
	for _, r := range c.inWindow(in.Routines) {
		if e.cal.SameDay(r.CompletedAt, in.Now) {
			total += r.DurationMinutes.Int()
		}
	}
	return total
}

func progressAreaVariety(e *Engine, c *Challenge, in ProgressInput) int {
	areas := make(map[shared.Area]bool)
	for _, r := range c.inWindow(in.Routines) {
		areas[r.Area] = true
	}
	return len(areas)
}

func progressSpecificArea(e *Engine, c *Challenge, in ProgressInput) int {
	count := 0
	for _, r := range c.inWindow(in.Routines) {
		if r.Area == c.Area {
			count++
		}
	}
	return count
}

// progressTimeOfDay counts routines whose local completion hour falls in
// [StartHour, EndHour).
func progressTimeOfDay(e *Engine, c *Challenge, in ProgressInput) int {
	count := 0
	for _, r := range c.inWindow(in.Routines) {
		hour := e.cal.Local(r.CompletedAt).Hour()
		if hour >= c.StartHour && hour < c.EndHour {
			count++
		}
	}
	return count
}

// progressWeekendDays counts distinct Saturday/Sunday calendar days with
// at least one routine.
func progressWeekendDays(e *Engine, c *Challenge, in ProgressInput) int {
	days := make(map[string]bool)
	for _, r := range c.inWindow(in.Routines) {
		if e.cal.IsWeekend(r.CompletedAt) {
			days[e.cal.DayKey(r.CompletedAt)] = true
		}
	}
	return len(days)
}

// progressStreak mirrors the reconciled streak, capped by SetProgress at the
// requirement.
func progressStreak(e *Engine, c *Challenge, in ProgressInput) int {
	return in.Streak
}
