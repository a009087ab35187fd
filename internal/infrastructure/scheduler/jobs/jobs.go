// Package jobs contains the scheduled maintenance jobs. Each job is a thin
// wrapper over a facade operation; all real logic lives in the application
// layer so the same code runs whether a job or a user action triggers it.
package jobs

import (
	"context"

	"github.com/crisnc100/FlexBreak-sub005/internal/application/command"
)

// ChallengeRefresh sweeps expired challenges and tops the set back up after
// a cycle rollover.
type ChallengeRefresh struct {
	Facade *command.Facade
}

// Name implements scheduler.Job.
func (j *ChallengeRefresh) Name() string { return "challenge_refresh" }

// Run implements scheduler.Job.
func (j *ChallengeRefresh) Run(ctx context.Context) error {
	_, _, err := j.Facade.RefreshChallenges(ctx)
	return err
}

// FlexSaveGrant accrues flex-save tokens on their weekly schedule.
type FlexSaveGrant struct {
	Facade *command.Facade
}

// Name implements scheduler.Job.
func (j *FlexSaveGrant) Name() string { return "flex_save_grant" }

// Run implements scheduler.Job.
func (j *FlexSaveGrant) Run(ctx context.Context) error {
	_, err := j.Facade.GrantFlexSaves(ctx)
	return err
}

// StreakCheck detects streak breaks during quiet hours, spending a flex save
// when one applies.
type StreakCheck struct {
	Facade *command.Facade
}

// Name implements scheduler.Job.
func (j *StreakCheck) Name() string { return "streak_check" }

// Run implements scheduler.Job.
func (j *StreakCheck) Run(ctx context.Context) error {
	_, err := j.Facade.ValidateStreak(ctx)
	return err
}
