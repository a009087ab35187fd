package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crisnc100/FlexBreak-sub005/internal/application/command"
	"github.com/crisnc100/FlexBreak-sub005/internal/application/query"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/challenge"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/progress"
	"github.com/crisnc100/FlexBreak-sub005/internal/infrastructure/persistence/memory"
	"github.com/crisnc100/FlexBreak-sub005/pkg/logger"
	"github.com/crisnc100/FlexBreak-sub005/pkg/timeutil"
)

var serverNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// newTestServer wires a server over in-memory stores, mirroring the wiring in
// cmd/engine but with a fixed clock and a silent logger.
func newTestServer(t *testing.T, engineCfg challenge.Config, pool []challenge.Template) *Server {
	t.Helper()

	cal := timeutil.NewFixedCalendar(time.UTC, serverNow)
	store := memory.NewProgressStore()
	routineLog := memory.NewRoutineLog()
	log := logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})

	levels := progress.NewLevelCalculator(progress.DefaultLevelTable())

	facade := command.NewFacade(command.Deps{
		Store:        store,
		Routines:     routineLog,
		Ledger:       progress.NewXPLedger(progress.DefaultLedgerConfig()),
		Levels:       levels,
		Streaks:      progress.NewStreakTracker(progress.DefaultStreakConfig(), cal),
		Achievements: progress.NewAchievementTracker(nil),
		Rewards:      progress.NewRewardUnlocker(nil),
		Challenges:   challenge.NewEngine(engineCfg, cal, pool, rand.New(rand.NewSource(1))),
		Calendar:     cal,
		Logger:       log,
	})
	queries := query.NewService(store, levels, cal, log)

	return NewServer(DefaultConfig(), Dependencies{
		Facade:     facade,
		Queries:    queries,
		HealthDeps: map[string]query.Pinger{"store": store},
		Logger:     log,
	})
}

func quietEngineConfig() challenge.Config {
	cfg := challenge.DefaultConfig()
	cfg.PopulationTargets = map[challenge.Category]int{}
	return cfg
}

func singleDailyChallenge() (challenge.Config, []challenge.Template) {
	cfg := challenge.DefaultConfig()
	cfg.PopulationTargets = map[challenge.Category]int{challenge.CategoryDaily: 1}
	pool := []challenge.Template{
		{ID: "d1", Category: "daily", Type: "routine_count", Title: "One Routine", Requirement: 1, XP: 40},
	}
	return cfg, pool
}

// do runs a request through the full middleware chain and decodes the
// response envelope.
func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, JSONResponse) {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	var envelope JSONResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return rec, envelope
}

func TestHandleRoot_ListsEndpoints(t *testing.T) {
	s := newTestServer(t, quietEngineConfig(), nil)

	rec, envelope := do(t, s, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)

	info, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "v1", info["version"])
}

func TestHandleHealth_OK(t *testing.T) {
	s := newTestServer(t, quietEngineConfig(), nil)

	rec, envelope := do(t, s, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)

	status, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", status["status"])
}

func TestHandleHealth_DegradedReturns503(t *testing.T) {
	s := newTestServer(t, quietEngineConfig(), nil)
	s.deps.HealthDeps["postgres"] = failingPinger{}

	rec, envelope := do(t, s, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	status, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "degraded", status["status"])
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHandleProcessRoutine_CreatesRoutine(t *testing.T) {
	s := newTestServer(t, quietEngineConfig(), nil)

	rec, envelope := do(t, s, http.MethodPost, "/api/v1/routines",
		`{"area": "neck", "duration": 10}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, envelope.Success)

	result, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	// First ever routine: 60 base + 50 welcome bonus.
	assert.Equal(t, float64(110), result["xpEarned"])
	assert.Equal(t, float64(2), result["level"])
}

func TestHandleProcessRoutine_AcceptsStringDuration(t *testing.T) {
	s := newTestServer(t, quietEngineConfig(), nil)

	rec, envelope := do(t, s, http.MethodPost, "/api/v1/routines",
		`{"area": "lower_back", "duration": "10 min"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	result, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(110), result["xpEarned"])
}

func TestHandleProcessRoutine_InvalidJSON(t *testing.T) {
	s := newTestServer(t, quietEngineConfig(), nil)

	rec, envelope := do(t, s, http.MethodPost, "/api/v1/routines", `{"area": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "invalid_request", envelope.Error.Code)
}

func TestHandleProcessRoutine_ValidationError(t *testing.T) {
	s := newTestServer(t, quietEngineConfig(), nil)

	rec, envelope := do(t, s, http.MethodPost, "/api/v1/routines",
		`{"area": "", "duration": 10}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "validation_error", envelope.Error.Code)
}

func TestHandleClaimChallenge_FullLifecycle(t *testing.T) {
	cfg, pool := singleDailyChallenge()
	s := newTestServer(t, cfg, pool)

	// The routine generates and completes the one-routine daily challenge.
	_, envelope := do(t, s, http.MethodPost, "/api/v1/routines",
		`{"area": "neck", "duration": 10}`)
	result, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)

	completed, ok := result["completedChallenges"].([]interface{})
	require.True(t, ok)
	require.Len(t, completed, 1)
	id := completed[0].(map[string]interface{})["id"].(string)

	rec, envelope := do(t, s, http.MethodPost, "/api/v1/challenges/"+id+"/claim", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	claim, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(40), claim["xpEarned"])
	assert.Equal(t, false, claim["late"])

	// A second claim of the same challenge conflicts.
	rec, envelope = do(t, s, http.MethodPost, "/api/v1/challenges/"+id+"/claim", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "already_claimed", envelope.Error.Code)
}

func TestHandleClaimChallenge_UnknownID(t *testing.T) {
	s := newTestServer(t, quietEngineConfig(), nil)

	rec, envelope := do(t, s, http.MethodPost, "/api/v1/challenges/nope/claim", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "challenge_not_found", envelope.Error.Code)
}

func TestHandleGetProgress_ReturnsSummary(t *testing.T) {
	s := newTestServer(t, quietEngineConfig(), nil)

	_, _ = do(t, s, http.MethodPost, "/api/v1/routines", `{"area": "neck", "duration": 10}`)

	rec, envelope := do(t, s, http.MethodGet, "/api/v1/progress", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	summary, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(110), summary["totalXP"])
	assert.Equal(t, float64(2), summary["level"])
	assert.Equal(t, float64(1), summary["currentStreak"])
}

func TestHandleRecalculate_RebuildsStatistics(t *testing.T) {
	s := newTestServer(t, quietEngineConfig(), nil)

	_, _ = do(t, s, http.MethodPost, "/api/v1/routines", `{"area": "neck", "duration": 10}`)
	_, _ = do(t, s, http.MethodPost, "/api/v1/routines", `{"area": "hips", "duration": 15}`)

	rec, envelope := do(t, s, http.MethodPost, "/api/v1/progress/recalculate", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	result, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), result["totalRoutines"])
	assert.Equal(t, float64(25), result["totalMinutes"])
}

func TestRequestID_SetAndEchoed(t *testing.T) {
	s := newTestServer(t, quietEngineConfig(), nil)

	// Generated when absent.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// Echoed back when supplied.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec = httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
