package shared

import (
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents accumulated experience points.
type XP int

const (
	// MinXP is the floor for any XP balance.
	MinXP XP = 0
	// MaxXP caps the balance to keep math sane even under abuse.
	MaxXP XP = 10000000
)

// IsValid checks if the XP value is within the valid range.
func (x XP) IsValid() bool {
	return x >= MinXP && x <= MaxXP
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add adds a (non-negative) amount and returns the result, capped at MaxXP.
// XP balances never decrease; negative amounts are ignored.
func (x XP) Add(amount int) XP {
	if amount < 0 {
		return x
	}
	result := XP(int(x) + amount)
	if result > MaxXP {
		return MaxXP
	}
	return result
}

// ═══════════════════════════════════════════════════════════════════════════
// Level Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Level represents a progression level. Levels start at 1.
type Level int

// IsValid checks if the level is valid.
func (l Level) IsValid() bool {
	return l >= 1
}

// Int returns the underlying int value.
func (l Level) Int() int {
	return int(l)
}

// ═══════════════════════════════════════════════════════════════════════════
// Body Area Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Area identifies a body area targeted by a stretch routine, e.g. "neck",
// "lower_back", "hips". Free-form but normalized to snake_case lowercase so
// per-area counters aggregate correctly.
type Area string

// NormalizeArea canonicalizes a raw area string.
func NormalizeArea(raw string) Area {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return Area(s)
}

// IsValid checks that the area is non-empty.
func (a Area) IsValid() bool {
	return a != ""
}

// String returns the string representation.
func (a Area) String() string {
	return string(a)
}
