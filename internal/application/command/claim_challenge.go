package command

import (
	"context"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/challenge"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/progress"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
	"github.com/crisnc100/FlexBreak-sub005/pkg/logger"
)

// ClaimChallengeCommand redeems a completed challenge for its XP.
type ClaimChallengeCommand struct {
	ChallengeID string
}

// Validate validates the command.
func (c ClaimChallengeCommand) Validate() error {
	if c.ChallengeID == "" {
		return shared.NewDomainError("progression", "ClaimChallenge", shared.ErrEmptyValue, "challenge id is required")
	}
	return nil
}

// ClaimChallengeResult reports the claim outcome.
type ClaimChallengeResult struct {
	Challenge *challenge.Challenge `json:"challenge"`
	XPEarned  int                  `json:"xpEarned"`
	Late      bool                 `json:"late"`

	TotalXP   int  `json:"totalXP"`
	Level     int  `json:"level"`
	LeveledUp bool `json:"leveledUp"`

	UnlockedRewards []*progress.Reward `json:"unlockedRewards"`
}

// ClaimChallenge sweeps the challenge set and then attempts the claim.
// Sweeping first means a challenge whose redemption window has closed is
// expired before the claim is judged, so the caller sees the terminal error
// rather than a race against the clock.
func (f *Facade) ClaimChallenge(ctx context.Context, cmd ClaimChallengeCommand) (*ClaimChallengeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.deps.Calendar.Now()
	result := &ClaimChallengeResult{}

	err := f.mutate(ctx, "ClaimChallenge", func(up *progress.UserProgress) ([]shared.Event, error) {
		var events []shared.Event

		// The closure re-runs on a save conflict; accumulated fields
		// must start clean each attempt.
		result.UnlockedRewards = nil
		result.LeveledUp = false
		result.Level = 0

		events = append(events, f.maintainChallenges(up, now)...)

		history := progress.ChallengeClaimHistory(up)
		claim, err := f.deps.Challenges.Claim(up.Challenges, cmd.ChallengeID, now, history)
		if err != nil {
			return nil, shared.NewDomainError("progression", "ClaimChallenge", err, challenge.FailureReason(err))
		}

		f.deps.Ledger.Apply(up, claim.XPAwarded, progress.SourceChallenge, claim.Challenge.ClaimDetails(), now)
		events = append(events, shared.ChallengeClaimedEvent{
			BaseEvent:   shared.NewBaseEvent(shared.EventChallengeClaimed, now),
			ChallengeID: claim.Challenge.ID,
			Category:    string(claim.Challenge.Category),
			XPEarned:    claim.XPAwarded,
			LateClaim:   claim.Late,
		})
		events = append(events, shared.XPUpdatedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventXPUpdated, now),
			Amount:    claim.XPAwarded,
			TotalXP:   up.TotalXP.Int(),
			Source:    progress.SourceChallenge,
			Details:   claim.Challenge.ClaimDetails(),
		})

		levelEvents := f.recomputeLevelAndRewards(up, now)
		events = append(events, levelEvents...)
		for _, e := range levelEvents {
			if lu, ok := e.(shared.LevelUpEvent); ok {
				result.LeveledUp = true
				result.Level = lu.NewLevel
			}
			if ru, ok := e.(shared.RewardUnlockedEvent); ok {
				result.UnlockedRewards = append(result.UnlockedRewards, up.Rewards[ru.RewardID])
			}
		}

		result.Challenge = claim.Challenge
		result.XPEarned = claim.XPAwarded
		result.Late = claim.Late
		result.TotalXP = up.TotalXP.Int()
		if result.Level == 0 {
			result.Level = up.Level.Int()
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}

	f.log.Info("challenge claimed",
		logger.ChallengeID(result.Challenge.ID),
		logger.XPAmount(result.XPEarned),
		logger.Bool("late", result.Late))

	return result, nil
}
