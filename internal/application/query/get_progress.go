package query

import (
	"context"
	"sort"
	"time"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/challenge"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/progress"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
	"github.com/crisnc100/FlexBreak-sub005/pkg/logger"
	"github.com/crisnc100/FlexBreak-sub005/pkg/timeutil"
)

// ═══════════════════════════════════════════════════════════════════════════
// Read Side
// ═══════════════════════════════════════════════════════════════════════════

// ProgressSummary is the read model served to clients. It is assembled from
// the stored aggregate without mutating it; any challenge whose deadline has
// passed is merely presented as expired here, the next command sweeps it for
// real.
type ProgressSummary struct {
	TotalXP int `json:"totalXP"`

	Level              int     `json:"level"`
	MaxLevel           int     `json:"maxLevel"`
	XPForCurrentLevel  int     `json:"xpForCurrentLevel"`
	XPForNextLevel     int     `json:"xpForNextLevel"`
	FractionalProgress float64 `json:"fractionalProgress"`

	CurrentStreak      int `json:"currentStreak"`
	BestStreak         int `json:"bestStreak"`
	FlexSavesAvailable int `json:"flexSavesAvailable"`

	TotalRoutines  int                 `json:"totalRoutines"`
	TotalMinutes   int                 `json:"totalMinutes"`
	UniqueAreas    []shared.Area       `json:"uniqueAreas"`
	RoutinesByArea map[shared.Area]int `json:"routinesByArea"`

	ActiveChallenges    []*challenge.Challenge `json:"activeChallenges"`
	ClaimableChallenges []*challenge.Challenge `json:"claimableChallenges"`

	Achievements []*progress.Achievement `json:"achievements"`
	Rewards      []*progress.Reward      `json:"rewards"`

	RecentXPEvents []progress.XPEvent `json:"recentXPEvents"`
}

// Service answers read queries against the progress store.
type Service struct {
	store  progress.Store
	levels *progress.LevelCalculator
	cal    *timeutil.Calendar
	log    *logger.Logger
}

// NewService creates a read-side query service.
func NewService(store progress.Store, levels *progress.LevelCalculator, cal *timeutil.Calendar, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		levels: levels,
		cal:    cal,
		log:    log.With(logger.Component("query")),
	}
}

// GetProgress assembles the full progress summary.
func (s *Service) GetProgress(ctx context.Context) (*ProgressSummary, error) {
	up, err := s.store.GetUserProgress(ctx)
	if err != nil {
		return nil, shared.WrapStorage("progression", "GetProgress", err)
	}
	up.Normalize()

	now := s.cal.Now()
	info := s.levels.LevelFor(up.TotalXP)

	summary := &ProgressSummary{
		TotalXP:            up.TotalXP.Int(),
		Level:              info.Level.Int(),
		MaxLevel:           s.levels.MaxLevel().Int(),
		XPForCurrentLevel:  info.XPForCurrentLevel,
		XPForNextLevel:     info.XPForNextLevel,
		FractionalProgress: info.FractionalProgress,
		CurrentStreak:      up.Statistics.CurrentStreak,
		BestStreak:         up.Statistics.BestStreak,
		FlexSavesAvailable: up.FlexSaves.Available,
		TotalRoutines:      up.Statistics.TotalRoutines,
		TotalMinutes:       up.Statistics.TotalMinutes,
		UniqueAreas:        append([]shared.Area(nil), up.Statistics.UniqueAreas...),
		RoutinesByArea:     up.Statistics.RoutinesByArea,
	}

	for _, c := range up.Challenges {
		switch {
		case c.IsActive() && now.Before(c.EndDate):
			summary.ActiveChallenges = append(summary.ActiveChallenges, c)
		case c.IsClaimable():
			summary.ClaimableChallenges = append(summary.ClaimableChallenges, c)
		}
	}
	sortChallenges(summary.ActiveChallenges)
	sortChallenges(summary.ClaimableChallenges)

	for _, a := range up.Achievements {
		summary.Achievements = append(summary.Achievements, a)
	}
	sort.Slice(summary.Achievements, func(i, j int) bool {
		return summary.Achievements[i].ID < summary.Achievements[j].ID
	})

	for _, r := range up.Rewards {
		summary.Rewards = append(summary.Rewards, r)
	}
	sort.Slice(summary.Rewards, func(i, j int) bool {
		return summary.Rewards[i].UnlockLevel < summary.Rewards[j].UnlockLevel
	})

	summary.RecentXPEvents = recentXPEvents(up.XPHistory, 20)

	return summary, nil
}

// sortChallenges orders by end date, soonest deadline first, then by id for
// a stable order.
func sortChallenges(cs []*challenge.Challenge) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].EndDate.Equal(cs[j].EndDate) {
			return cs[i].EndDate.Before(cs[j].EndDate)
		}
		return cs[i].ID < cs[j].ID
	})
}

// recentXPEvents returns up to limit newest entries, newest first.
func recentXPEvents(history []progress.XPEvent, limit int) []progress.XPEvent {
	if len(history) == 0 {
		return nil
	}
	sorted := append([]progress.XPEvent(nil), history...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// ═══════════════════════════════════════════════════════════════════════════
// Health
// ═══════════════════════════════════════════════════════════════════════════

// HealthStatus reports per-dependency health.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Time   time.Time         `json:"time"`
}

// Pinger is anything that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health pings each named dependency and aggregates the result.
func (s *Service) Health(ctx context.Context, deps map[string]Pinger) HealthStatus {
	status := HealthStatus{Status: "ok", Checks: make(map[string]string), Time: s.cal.Now()}
	for name, p := range deps {
		if err := p.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Checks[name] = err.Error()
			s.log.Warn("health check failed", logger.String("dependency", name), logger.Err(err))
			continue
		}
		status.Checks[name] = "ok"
	}
	return status
}
