package query

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/challenge"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/progress"
	"github.com/crisnc100/FlexBreak-sub005/internal/infrastructure/persistence/memory"
	"github.com/crisnc100/FlexBreak-sub005/pkg/logger"
	"github.com/crisnc100/FlexBreak-sub005/pkg/timeutil"
)

var queryNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.ProgressStore) {
	t.Helper()
	store := memory.NewProgressStore()
	svc := NewService(
		store,
		progress.NewLevelCalculator(progress.DefaultLevelTable()),
		timeutil.NewFixedCalendar(time.UTC, queryNow),
		logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError}),
	)
	return svc, store
}

func seedAggregate(t *testing.T, store *memory.ProgressStore, mutate func(*progress.UserProgress)) {
	t.Helper()
	up := progress.NewUserProgress()
	mutate(up)
	require.NoError(t, store.SaveUserProgress(context.Background(), up))
}

func TestGetProgress_EmptyAggregate(t *testing.T) {
	svc, _ := newTestService(t)

	summary, err := svc.GetProgress(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalXP)
	assert.Equal(t, 1, summary.Level)
	assert.Equal(t, 0, summary.CurrentStreak)
	assert.Empty(t, summary.ActiveChallenges)
	assert.Empty(t, summary.RecentXPEvents)
}

func TestGetProgress_LevelInfoDerivedFromXP(t *testing.T) {
	svc, store := newTestService(t)
	seedAggregate(t, store, func(up *progress.UserProgress) {
		up.TotalXP = 175
	})

	summary, err := svc.GetProgress(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 175, summary.TotalXP)
	assert.Equal(t, 2, summary.Level)
	assert.Equal(t, 11, summary.MaxLevel)
	assert.Equal(t, 100, summary.XPForCurrentLevel)
	assert.Equal(t, 250, summary.XPForNextLevel)
	assert.InDelta(t, 0.5, summary.FractionalProgress, 1e-9)
}

func TestGetProgress_SplitsChallengesByState(t *testing.T) {
	svc, store := newTestService(t)
	seedAggregate(t, store, func(up *progress.UserProgress) {
		up.Challenges["active"] = &challenge.Challenge{
			ID: "active", Status: challenge.StatusActive,
			StartDate: queryNow.Add(-time.Hour), EndDate: queryNow.Add(time.Hour),
		}
		up.Challenges["overdue"] = &challenge.Challenge{
			ID: "overdue", Status: challenge.StatusActive,
			StartDate: queryNow.Add(-48 * time.Hour), EndDate: queryNow.Add(-24 * time.Hour),
		}
		up.Challenges["claimable"] = &challenge.Challenge{
			ID: "claimable", Status: challenge.StatusCompleted, Completed: true,
			StartDate: queryNow.Add(-time.Hour), EndDate: queryNow.Add(time.Hour),
		}
		up.Challenges["claimed"] = &challenge.Challenge{
			ID: "claimed", Status: challenge.StatusClaimed, Claimed: true,
			StartDate: queryNow.Add(-time.Hour), EndDate: queryNow.Add(time.Hour),
		}
	})

	summary, err := svc.GetProgress(context.Background())
	require.NoError(t, err)

	// The overdue challenge is presented as neither active nor claimable;
	// the next command sweeps it for real.
	require.Len(t, summary.ActiveChallenges, 1)
	assert.Equal(t, "active", summary.ActiveChallenges[0].ID)
	require.Len(t, summary.ClaimableChallenges, 1)
	assert.Equal(t, "claimable", summary.ClaimableChallenges[0].ID)
}

func TestGetProgress_RecentXPEventsNewestFirst(t *testing.T) {
	svc, store := newTestService(t)
	seedAggregate(t, store, func(up *progress.UserProgress) {
		for i := 0; i < 25; i++ {
			up.XPHistory = append(up.XPHistory, progress.XPEvent{
				ID:        "e",
				Amount:    i + 1,
				Source:    progress.SourceRoutine,
				Timestamp: queryNow.Add(time.Duration(i) * time.Minute),
			})
		}
	})

	summary, err := svc.GetProgress(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.RecentXPEvents, 20)
	assert.Equal(t, 25, summary.RecentXPEvents[0].Amount)
	assert.Equal(t, 6, summary.RecentXPEvents[19].Amount)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	healthy := svc.Health(ctx, map[string]Pinger{"store": stubPinger{}})
	assert.Equal(t, "ok", healthy.Status)
	assert.Equal(t, "ok", healthy.Checks["store"])

	degraded := svc.Health(ctx, map[string]Pinger{
		"store": stubPinger{},
		"db":    stubPinger{err: errors.New("connection refused")},
	})
	assert.Equal(t, "degraded", degraded.Status)
	assert.Equal(t, "connection refused", degraded.Checks["db"])
}
