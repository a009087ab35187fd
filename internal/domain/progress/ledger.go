package progress

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/challenge"
)

// XP event sources. Challenge claims are tagged so the rolling daily-limit
// counters can be derived from the history alone.
const (
	SourceRoutine     = "routine"
	SourceWelcome     = "welcome"
	SourceAchievement = "achievement"
	SourceChallenge   = "challenge"
)

// XPEvent is one entry in the capped XP audit log.
type XPEvent struct {
	ID        string    `json:"id"`
	Amount    int       `json:"amount"`
	Source    string    `json:"source"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LedgerConfig tunes XP computation.
type LedgerConfig struct {
	// Duration step function: routines up to ShortMinutes earn ShortXP,
	// up to MediumMinutes earn MediumXP, anything longer earns LongXP.
	ShortMinutes  int
	MediumMinutes int
	ShortXP       int
	MediumXP      int
	LongXP        int

	// WelcomeBonusXP is granted once, on the very first routine.
	WelcomeBonusXP int

	// HistoryCap bounds the XP event log.
	HistoryCap int
}

// DefaultLedgerConfig returns the production XP rules.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		ShortMinutes:   5,
		MediumMinutes:  10,
		ShortXP:        30,
		MediumXP:       60,
		LongXP:         90,
		WelcomeBonusXP: 50,
		HistoryCap:     100,
	}
}

// BreakdownItem explains one component of an XP computation.
type BreakdownItem struct {
	Source string `json:"source"`
	Amount int    `json:"amount"`
}

// Computation is the result of ComputeRoutineXP.
type Computation struct {
	Total     int             `json:"total"`
	Breakdown []BreakdownItem `json:"breakdown"`
}

// XPLedger computes and applies XP. It never debits: every applied amount is
// positive, and the balance is monotonically non-decreasing.
type XPLedger struct {
	cfg LedgerConfig
}

// NewXPLedger creates a ledger with the given rules.
func NewXPLedger(cfg LedgerConfig) *XPLedger {
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = DefaultLedgerConfig().HistoryCap
	}
	return &XPLedger{cfg: cfg}
}

// baseXP is the duration step function.
func (l *XPLedger) baseXP(durationMinutes int) int {
	switch {
	case durationMinutes <= l.cfg.ShortMinutes:
		return l.cfg.ShortXP
	case durationMinutes <= l.cfg.MediumMinutes:
		return l.cfg.MediumXP
	default:
		return l.cfg.LongXP
	}
}

// ComputeRoutineXP computes the XP for a completed routine. Base XP is only
// awarded for the first routine of the calendar day (the anti-farming rule);
// later routines still drive challenge and achievement progress, just not
// base XP. The welcome bonus rides on the very first routine ever.
func (l *XPLedger) ComputeRoutineXP(
	durationMinutes int,
	isFirstRoutineToday bool,
	isFirstRoutineEver bool,
	boostMultiplier float64,
) Computation {
	if boostMultiplier <= 0 {
		boostMultiplier = 1
	}

	var comp Computation

	if isFirstRoutineToday {
		base := int(math.Floor(float64(l.baseXP(durationMinutes)) * boostMultiplier))
		comp.Total += base
		comp.Breakdown = append(comp.Breakdown, BreakdownItem{Source: SourceRoutine, Amount: base})
	}

	if isFirstRoutineEver {
		comp.Total += l.cfg.WelcomeBonusXP
		comp.Breakdown = append(comp.Breakdown, BreakdownItem{Source: SourceWelcome, Amount: l.cfg.WelcomeBonusXP})
	}

	return comp
}

// Apply credits XP to the aggregate and appends an audit event, trimming the
// history to the cap. Non-positive amounts are rejected as no-ops so the
// balance can never decrease.
func (l *XPLedger) Apply(up *UserProgress, amount int, source, details string, now time.Time) *XPEvent {
	if amount <= 0 {
		return nil
	}

	up.TotalXP = up.TotalXP.Add(amount)

	event := XPEvent{
		ID:        uuid.NewString(),
		Amount:    amount,
		Source:    source,
		Details:   details,
		Timestamp: now,
	}
	up.XPHistory = append(up.XPHistory, event)
	if len(up.XPHistory) > l.cfg.HistoryCap {
		up.XPHistory = up.XPHistory[len(up.XPHistory)-l.cfg.HistoryCap:]
	}

	return &up.XPHistory[len(up.XPHistory)-1]
}

// ChallengeClaimHistory extracts prior challenge-claim entries from the XP
// history for the engine's rolling daily-limit counters.
func ChallengeClaimHistory(up *UserProgress) []challenge.ClaimEntry {
	var entries []challenge.ClaimEntry
	for _, e := range up.XPHistory {
		if e.Source == SourceChallenge {
			entries = append(entries, challenge.ClaimEntry{XP: e.Amount, At: e.Timestamp})
		}
	}
	return entries
}
