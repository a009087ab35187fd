// Package timeutil provides calendar arithmetic for the FlexBreak progression engine.
// Streaks, challenge cycles, and daily XP rules are all defined in terms of the
// user's local calendar day, so every boundary computation goes through a Calendar
// that carries an explicit timezone and an injectable clock for hermetic tests.
// No external dependencies - uses only standard library.
package timeutil

import (
	"math"
	"time"
)

// DayKeyFormat is the canonical format for calendar-day keys.
const DayKeyFormat = "2006-01-02"

// Calendar performs timezone-aware calendar math. The zero value is not usable;
// construct with NewCalendar.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar creates a Calendar for the given location using the real clock.
// A nil location defaults to time.Local.
func NewCalendar(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{loc: loc, now: time.Now}
}

// NewFixedCalendar creates a Calendar whose "now" is pinned to the given instant.
// Intended for tests.
func NewFixedCalendar(loc *time.Location, now time.Time) *Calendar {
	c := NewCalendar(loc)
	c.now = func() time.Time { return now }
	return c
}

// WithNow returns a copy of the Calendar using the given clock function.
func (c *Calendar) WithNow(now func() time.Time) *Calendar {
	return &Calendar{loc: c.loc, now: now}
}

// Location returns the calendar's timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// Now returns the current time in the calendar's timezone.
func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Local converts a time to the calendar's timezone.
func (c *Calendar) Local(t time.Time) time.Time {
	return t.In(c.loc)
}

// StartOfDay returns 00:00:00 of t's calendar day.
func (c *Calendar) StartOfDay(t time.Time) time.Time {
	lt := c.Local(t)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
}

// EndOfDay returns 23:59:59.999999999 of t's calendar day.
func (c *Calendar) EndOfDay(t time.Time) time.Time {
	lt := c.Local(t)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 23, 59, 59, 999999999, c.loc)
}

// StartOfWeek returns Monday 00:00:00 of t's ISO week.
func (c *Calendar) StartOfWeek(t time.Time) time.Time {
	lt := c.Local(t)
	weekday := int(lt.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return c.StartOfDay(lt.AddDate(0, 0, -(weekday - 1)))
}

// EndOfWeek returns Sunday 23:59:59.999999999 of t's ISO week.
func (c *Calendar) EndOfWeek(t time.Time) time.Time {
	return c.EndOfDay(c.StartOfWeek(t).AddDate(0, 0, 6))
}

// StartOfMonth returns the first day of t's month at 00:00:00.
func (c *Calendar) StartOfMonth(t time.Time) time.Time {
	lt := c.Local(t)
	return time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, c.loc)
}

// EndOfMonth returns the last day of t's month at 23:59:59.999999999.
func (c *Calendar) EndOfMonth(t time.Time) time.Time {
	return c.EndOfDay(c.StartOfMonth(t).AddDate(0, 1, -1))
}

// DayKey returns the canonical "YYYY-MM-DD" key for t's calendar day.
func (c *Calendar) DayKey(t time.Time) string {
	return c.Local(t).Format(DayKeyFormat)
}

// SameDay reports whether a and b fall on the same calendar day.
func (c *Calendar) SameDay(a, b time.Time) bool {
	return c.DayKey(a) == c.DayKey(b)
}

// IsToday reports whether t falls on the current calendar day.
func (c *Calendar) IsToday(t time.Time) bool {
	return c.SameDay(t, c.Now())
}

// IsYesterday reports whether t falls on the calendar day before today.
func (c *Calendar) IsYesterday(t time.Time) bool {
	return c.SameDay(t, c.Now().AddDate(0, 0, -1))
}

// DaysBetween returns the number of whole calendar days from a to b.
// Positive when b is after a, zero when they share a day.
func (c *Calendar) DaysBetween(a, b time.Time) int {
	start := c.StartOfDay(a)
	end := c.StartOfDay(b)
	// Rounding absorbs the 23h/25h days around DST transitions.
	return int(math.Round(end.Sub(start).Hours() / 24))
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func (c *Calendar) IsWeekend(t time.Time) bool {
	wd := c.Local(t).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ParseDayKey parses a "YYYY-MM-DD" key into the start of that day.
func (c *Calendar) ParseDayKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DayKeyFormat, key, c.loc)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
