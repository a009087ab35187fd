package command

import (
	"context"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/challenge"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/progress"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/routine"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
	"github.com/crisnc100/FlexBreak-sub005/internal/infrastructure/persistence/memory"
	"github.com/crisnc100/FlexBreak-sub005/pkg/logger"
	"github.com/crisnc100/FlexBreak-sub005/pkg/timeutil"
)

var facadeNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type facadeFixture struct {
	facade *Facade
	store  progress.Store
	log    *memory.RoutineLog
}

// newFixture builds a fully wired facade over in-memory stores. The challenge
// config and catalogs are chosen per test so XP arithmetic stays exact.
func newFixture(t *testing.T, engineCfg challenge.Config, pool []challenge.Template,
	achievements []progress.AchievementDef, rewards []progress.RewardDef) *facadeFixture {
	t.Helper()
	return newFixtureWith(t, memory.NewProgressStore(), engineCfg, pool, achievements, rewards)
}

// newFixtureWith is newFixture with a caller-supplied progress store.
func newFixtureWith(t *testing.T, store progress.Store, engineCfg challenge.Config, pool []challenge.Template,
	achievements []progress.AchievementDef, rewards []progress.RewardDef) *facadeFixture {
	t.Helper()

	cal := timeutil.NewFixedCalendar(time.UTC, facadeNow)
	routineLog := memory.NewRoutineLog()

	facade := NewFacade(Deps{
		Store:        store,
		Routines:     routineLog,
		Ledger:       progress.NewXPLedger(progress.DefaultLedgerConfig()),
		Levels:       progress.NewLevelCalculator(progress.DefaultLevelTable()),
		Streaks:      progress.NewStreakTracker(progress.DefaultStreakConfig(), cal),
		Achievements: progress.NewAchievementTracker(achievements),
		Rewards:      progress.NewRewardUnlocker(rewards),
		Challenges:   challenge.NewEngine(engineCfg, cal, pool, rand.New(rand.NewSource(1))),
		Calendar:     cal,
		Logger:       logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError}),
	})
	return &facadeFixture{facade: facade, store: store, log: routineLog}
}

// quietConfig disables challenge generation so XP assertions are exact.
func quietConfig() challenge.Config {
	cfg := challenge.DefaultConfig()
	cfg.PopulationTargets = map[challenge.Category]int{}
	return cfg
}

func TestProcessRoutine_FirstEverGrantsWelcomeBonus(t *testing.T) {
	fx := newFixture(t, quietConfig(), nil, nil, nil)
	ctx := context.Background()

	result, err := fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{Area: "neck", DurationMinutes: 10})
	require.NoError(t, err)

	assert.Equal(t, 110, result.XPEarned) // 60 base + 50 welcome
	assert.Equal(t, 110, result.TotalXP)
	assert.Len(t, result.Breakdown, 2)
	assert.Equal(t, 2, result.Level) // 110 XP crosses the 100 threshold
	assert.True(t, result.LeveledUp)
	assert.Equal(t, 1, result.CurrentStreak)
	assert.False(t, result.StreakBroken)

	up, err := fx.store.GetUserProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 110, up.TotalXP.Int())
	assert.True(t, up.HasReceivedWelcomeBonus)
	assert.Equal(t, 1, up.Statistics.TotalRoutines)
	assert.Equal(t, 10, up.Statistics.TotalMinutes)
}

func TestProcessRoutine_SecondRoutineSameDayEarnsNoBaseXP(t *testing.T) {
	fx := newFixture(t, quietConfig(), nil, nil, nil)
	ctx := context.Background()

	_, err := fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{Area: "neck", DurationMinutes: 10})
	require.NoError(t, err)

	result, err := fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{Area: "hips", DurationMinutes: 10})
	require.NoError(t, err)

	assert.Equal(t, 0, result.XPEarned)
	assert.Equal(t, 110, result.TotalXP)

	// Statistics still move on every routine.
	up, err := fx.store.GetUserProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, up.Statistics.TotalRoutines)
	assert.Len(t, up.Statistics.UniqueAreas, 2)
}

func TestProcessRoutine_ConsecutiveDaysGrowTheStreak(t *testing.T) {
	fx := newFixture(t, quietConfig(), nil, nil, nil)
	ctx := context.Background()

	_, err := fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{
		Area: "neck", DurationMinutes: 10, CompletedAt: facadeNow.AddDate(0, 0, -1),
	})
	require.NoError(t, err)

	result, err := fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{Area: "neck", DurationMinutes: 10})
	require.NoError(t, err)

	assert.Equal(t, 2, result.CurrentStreak)
	// Yesterday's routine was the first of its day, so both earned base XP.
	assert.Equal(t, 170, result.TotalXP)
}

func TestProcessRoutine_Validation(t *testing.T) {
	fx := newFixture(t, quietConfig(), nil, nil, nil)
	ctx := context.Background()

	_, err := fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{Area: "", DurationMinutes: 10})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{Area: "neck", DurationMinutes: 0})
	assert.ErrorIs(t, err, shared.ErrNegativeValue)
}

func TestProcessRoutine_CompletesAchievementsWithXP(t *testing.T) {
	catalog := []progress.AchievementDef{
		{ID: "first_routine", Type: "routine_count", Title: "First Stretch", Requirement: 1, XP: 25},
	}
	fx := newFixture(t, quietConfig(), nil, catalog, nil)
	ctx := context.Background()

	result, err := fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{Area: "neck", DurationMinutes: 10})
	require.NoError(t, err)

	require.Len(t, result.CompletedAchievements, 1)
	assert.Equal(t, "first_routine", result.CompletedAchievements[0].ID)
	// 110 routine XP + 25 achievement XP.
	assert.Equal(t, 135, result.TotalXP)
}

func TestProcessRoutine_UnlocksRewardsOnLevelUp(t *testing.T) {
	rewards := []progress.RewardDef{
		{ID: "dark_theme", Title: "Dark Theme", UnlockLevel: 2},
		{ID: "xp_boost", Title: "XP Boost", UnlockLevel: 6},
	}
	fx := newFixture(t, quietConfig(), nil, nil, rewards)
	ctx := context.Background()

	result, err := fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{Area: "neck", DurationMinutes: 10})
	require.NoError(t, err)

	assert.True(t, result.LeveledUp)
	require.Len(t, result.UnlockedRewards, 1)
	assert.Equal(t, "dark_theme", result.UnlockedRewards[0].ID)
}

// conflictOnFirstSave fails the first save with a concurrency conflict, so
// the facade's read-modify-write cycle runs twice.
type conflictOnFirstSave struct {
	*memory.ProgressStore
	conflicted bool
}

func (s *conflictOnFirstSave) SaveUserProgress(ctx context.Context, up *progress.UserProgress) error {
	if !s.conflicted {
		s.conflicted = true
		return shared.ErrConcurrentModification
	}
	return s.ProgressStore.SaveUserProgress(ctx, up)
}

func TestProcessRoutine_SaveConflictRetryDoesNotDuplicateRewards(t *testing.T) {
	rewards := []progress.RewardDef{
		{ID: "dark_theme", Title: "Dark Theme", UnlockLevel: 2},
	}
	store := &conflictOnFirstSave{ProgressStore: memory.NewProgressStore()}
	fx := newFixtureWith(t, store, quietConfig(), nil, nil, rewards)

	result, err := fx.facade.ProcessRoutine(context.Background(), ProcessRoutineCommand{Area: "neck", DurationMinutes: 10})
	require.NoError(t, err)

	assert.True(t, store.conflicted)
	assert.True(t, result.LeveledUp)
	require.Len(t, result.UnlockedRewards, 1)
	assert.Equal(t, "dark_theme", result.UnlockedRewards[0].ID)
}

func dailyChallengeSetup() (challenge.Config, []challenge.Template) {
	cfg := challenge.DefaultConfig()
	cfg.PopulationTargets = map[challenge.Category]int{challenge.CategoryDaily: 1}
	pool := []challenge.Template{
		{ID: "d1", Category: "daily", Type: "routine_count", Title: "One Routine", Requirement: 1, XP: 40},
	}
	return cfg, pool
}

func TestChallengeLifecycle_GenerateCompleteClaim(t *testing.T) {
	cfg, pool := dailyChallengeSetup()
	fx := newFixture(t, cfg, pool, nil, nil)
	ctx := context.Background()

	// The routine generates the daily challenge and completes it in the same
	// pass, since its requirement is a single routine.
	result, err := fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{Area: "neck", DurationMinutes: 10})
	require.NoError(t, err)
	require.Len(t, result.CompletedChallenges, 1)

	id := result.CompletedChallenges[0].ID
	claim, err := fx.facade.ClaimChallenge(ctx, ClaimChallengeCommand{ChallengeID: id})
	require.NoError(t, err)

	assert.Equal(t, 40, claim.XPEarned)
	assert.False(t, claim.Late)
	assert.Equal(t, 150, claim.TotalXP)
	assert.Equal(t, challenge.StatusClaimed, claim.Challenge.Status)

	// The history entry names category, type and id, not just the id.
	up, err := fx.store.GetUserProgress(ctx)
	require.NoError(t, err)
	last := up.XPHistory[len(up.XPHistory)-1]
	assert.Equal(t, progress.SourceChallenge, last.Source)
	assert.Equal(t, "daily:routine_count:"+id, last.Details)
}

func TestChallengeLifecycle_DoubleClaimRejected(t *testing.T) {
	cfg, pool := dailyChallengeSetup()
	fx := newFixture(t, cfg, pool, nil, nil)
	ctx := context.Background()

	result, err := fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{Area: "neck", DurationMinutes: 10})
	require.NoError(t, err)
	id := result.CompletedChallenges[0].ID

	_, err = fx.facade.ClaimChallenge(ctx, ClaimChallengeCommand{ChallengeID: id})
	require.NoError(t, err)

	_, err = fx.facade.ClaimChallenge(ctx, ClaimChallengeCommand{ChallengeID: id})
	assert.ErrorIs(t, err, shared.ErrAlreadyClaimed)
}

func TestClaimChallenge_UnknownID(t *testing.T) {
	cfg, pool := dailyChallengeSetup()
	fx := newFixture(t, cfg, pool, nil, nil)

	_, err := fx.facade.ClaimChallenge(context.Background(), ClaimChallengeCommand{ChallengeID: "ghost"})
	assert.ErrorIs(t, err, shared.ErrChallengeNotFound)
}

func TestRecalculateStatistics_RebuildsFromLog(t *testing.T) {
	fx := newFixture(t, quietConfig(), nil, nil, nil)
	ctx := context.Background()

	_, err := fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{
		Area: "neck", DurationMinutes: 10, CompletedAt: facadeNow.AddDate(0, 0, -1),
	})
	require.NoError(t, err)
	_, err = fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{Area: "hips", DurationMinutes: 15})
	require.NoError(t, err)

	result, err := fx.facade.RecalculateStatistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalRoutines)
	assert.Equal(t, 25, result.TotalMinutes)
	assert.Equal(t, 2, result.CurrentStreak)
	assert.Equal(t, 2, result.BestStreak)
}

func TestRecalculateStatistics_RederivesBestStreakFromLog(t *testing.T) {
	fx := newFixture(t, quietConfig(), nil, nil, nil)
	ctx := context.Background()

	// A three-day run well in the past that the aggregate never saw, then
	// one routine today. The stored best streak only knows about today.
	for _, daysAgo := range []int{12, 11, 10} {
		rec, err := routine.NewRecord("neck", 10, facadeNow.AddDate(0, 0, -daysAgo))
		require.NoError(t, err)
		require.NoError(t, fx.log.Append(ctx, rec))
	}
	_, err := fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{Area: "neck", DurationMinutes: 10})
	require.NoError(t, err)

	result, err := fx.facade.RecalculateStatistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 3, result.BestStreak)

	up, err := fx.store.GetUserProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, up.Statistics.BestStreak)
}

func TestResetProgress(t *testing.T) {
	fx := newFixture(t, quietConfig(), nil, nil, nil)
	ctx := context.Background()

	_, err := fx.facade.ProcessRoutine(ctx, ProcessRoutineCommand{Area: "neck", DurationMinutes: 10})
	require.NoError(t, err)

	require.NoError(t, fx.facade.ResetProgress(ctx))

	up, err := fx.store.GetUserProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, up.TotalXP.Int())
	assert.Equal(t, 1, up.Level.Int())
	assert.False(t, up.HasReceivedWelcomeBonus)
}

func TestGrantFlexSaves_FirstCallAnchorsOnly(t *testing.T) {
	fx := newFixture(t, quietConfig(), nil, nil, nil)

	granted, err := fx.facade.GrantFlexSaves(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, granted)
}

func TestRefreshChallenges_GeneratesInitialPopulation(t *testing.T) {
	cfg, pool := dailyChallengeSetup()
	fx := newFixture(t, cfg, pool, nil, nil)

	expired, generated, err := fx.facade.RefreshChallenges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
	assert.Equal(t, 1, generated)
}

func TestValidateStreak_NoActivityIsQuiet(t *testing.T) {
	fx := newFixture(t, quietConfig(), nil, nil, nil)

	outcome, err := fx.facade.ValidateStreak(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.CurrentStreak)
	assert.False(t, outcome.Broken)
}
