package challenge

import (
	"errors"
	"math"
	"time"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
)

// ClaimEntry summarizes one prior successful challenge claim, derived from
// the XP history. The rolling daily-limit counters are computed from these.
type ClaimEntry struct {
	XP int
	At time.Time
}

// ClaimResult is the outcome of a successful claim. The caller applies
// XPAwarded through the ledger; the engine itself never touches the balance.
type ClaimResult struct {
	Challenge *Challenge
	XPAwarded int

	// Late is true when a streak challenge was claimed outside its
	// redemption window at reduced XP.
	Late bool
}

// Claim validates and executes a claim. Callers must run Sweep first.
// All failures are typed and leave every challenge unmodified:
//
//	ErrChallengeNotFound      - unknown id
//	ErrAlreadyClaimed         - already claimed or expired
//	ErrNotCompleted           - progress below requirement
//	ErrRedemptionWindowClosed - completed too long ago (non-streak)
//	ErrDailyLimitReached      - rolling 24h claim-count or XP cap hit
//
// history must contain the prior challenge claims from the XP history,
// newest or oldest first; only entries within 24h of now are considered.
func (e *Engine) Claim(
	challenges map[string]*Challenge,
	id string,
	now time.Time,
	history []ClaimEntry,
) (*ClaimResult, error) {
	c, ok := challenges[id]
	if !ok {
		return nil, shared.ErrChallengeNotFound
	}

	if c.Claimed || c.Status == StatusClaimed {
		return nil, shared.ErrAlreadyClaimed
	}
	if c.Status == StatusExpired {
		return nil, shared.ErrAlreadyClaimed
	}
	if c.Status != StatusCompleted {
		return nil, shared.ErrNotCompleted
	}

	award := c.XP
	late := false
	if now.After(e.redemptionDeadline(c)) {
		if c.Type != TypeStreak {
			return nil, shared.ErrRedemptionWindowClosed
		}
		// Streak challenges stay claimable late, at reduced XP.
		award = int(math.Floor(float64(c.XP) * e.cfg.LateStreakClaimFactor))
		if award < 1 {
			award = 1
		}
		late = true
	}

	if c.Category == CategoryDaily {
		if err := e.checkDailyLimits(history, award, now); err != nil {
			return nil, err
		}
	}

	if err := c.MarkClaimed(now); err != nil {
		return nil, err
	}

	return &ClaimResult{Challenge: c, XPAwarded: award, Late: late}, nil
}

// checkDailyLimits enforces the rolling 24h anti-abuse caps on daily-category
// claims: at most MaxDailyClaims successful claims and at most
// MaxDailyClaimXP total challenge XP.
func (e *Engine) checkDailyLimits(history []ClaimEntry, award int, now time.Time) error {
	cutoff := now.Add(-24 * time.Hour)

	claims := 0
	xp := 0
	for _, entry := range history {
		if entry.At.After(cutoff) {
			claims++
			xp += entry.XP
		}
	}

	if claims >= e.cfg.MaxDailyClaims {
		return shared.ErrDailyLimitReached
	}
	if xp+award > e.cfg.MaxDailyClaimXP {
		return shared.ErrDailyLimitReached
	}
	return nil
}

// FailureReason maps a claim error to a human-readable reason string for the
// UI layer. Unknown errors get a generic message.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, shared.ErrChallengeNotFound):
		return "This challenge no longer exists."
	case errors.Is(err, shared.ErrAlreadyClaimed):
		return "This challenge has already been claimed or has expired."
	case errors.Is(err, shared.ErrNotCompleted):
		return "Finish the challenge before claiming its reward."
	case errors.Is(err, shared.ErrRedemptionWindowClosed):
		return "The time to claim this reward has passed."
	case errors.Is(err, shared.ErrDailyLimitReached):
		return "You've hit today's claim limit. Come back tomorrow!"
	default:
		return "The reward could not be claimed right now."
	}
}
