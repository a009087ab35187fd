package progress

import (
	"time"

	"github.com/crisnc100/FlexBreak-sub005/pkg/timeutil"
)

// FlexSaveUse records one consumed streak-protection token.
type FlexSaveUse struct {
	// Date is the start of the missed calendar day the token covered.
	Date time.Time `json:"date"`

	// StreakLengthPreserved is the streak length at the time of the save.
	StreakLengthPreserved int `json:"streakLengthPreserved"`
}

// FlexSaveBank holds the limited streak-protection tokens. Tokens accrue on
// a schedule up to a cap and are consumed one per absorbed streak break.
type FlexSaveBank struct {
	Available   int           `json:"available"`
	Used        int           `json:"used"`
	LastGranted time.Time     `json:"lastGranted"`
	History     []FlexSaveUse `json:"history,omitempty"`
}

// Grant accrues at most one token per fully elapsed grant period since
// LastGranted, capped at max. Safe to call on every engine start: the first
// call only anchors the grant clock, and repeated calls within a period grant
// nothing. Returns the number of tokens granted.
func (b *FlexSaveBank) Grant(now time.Time, period time.Duration, max int) int {
	if period <= 0 || max <= 0 {
		return 0
	}
	if b.LastGranted.IsZero() {
		b.LastGranted = now
		return 0
	}

	elapsed := int(now.Sub(b.LastGranted) / period)
	if elapsed <= 0 {
		return 0
	}

	granted := elapsed
	if b.Available+granted > max {
		granted = max - b.Available
	}
	if granted < 0 {
		granted = 0
	}

	b.Available += granted
	// All elapsed periods are spent even when capped, so a full bank does
	// not bank up instant refills.
	b.LastGranted = b.LastGranted.Add(time.Duration(elapsed) * period)
	return granted
}

// Consume spends one token to cover the missed day, preserving the given
// streak length. Returns false when the bank is empty.
func (b *FlexSaveBank) Consume(missedDay time.Time, streakPreserved int) bool {
	if b.Available <= 0 {
		return false
	}
	b.Available--
	b.Used++
	b.History = append(b.History, FlexSaveUse{
		Date:                  missedDay,
		StreakLengthPreserved: streakPreserved,
	})
	return true
}

// CoveredDayKeys returns the calendar-day keys bridged by consumed tokens.
// The streak computation treats these days as bridged (not broken, but also
// not counted as active days).
func (b *FlexSaveBank) CoveredDayKeys(cal *timeutil.Calendar) map[string]bool {
	if len(b.History) == 0 {
		return nil
	}
	covered := make(map[string]bool, len(b.History))
	for _, use := range b.History {
		covered[cal.DayKey(use.Date)] = true
	}
	return covered
}
