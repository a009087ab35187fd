package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
)

func testAchievementCatalog() []AchievementDef {
	return []AchievementDef{
		{ID: "first_routine", Type: "routine_count", Title: "First Stretch", Requirement: 1, XP: 25},
		{ID: "ten_routines", Type: "routine_count", Title: "Regular", Requirement: 10, XP: 100},
		{ID: "week_streak", Type: "streak", Title: "One Week Strong", Requirement: 7, XP: 150},
		{ID: "explorer", Type: "area_variety", Title: "Explorer", Requirement: 3, XP: 75},
		{ID: "neck_fan", Type: "specific_area", Category: "neck", Title: "Neck Fan", Requirement: 5, XP: 50},
		{ID: "hour_total", Type: "total_minutes", Title: "Full Hour", Requirement: 60, XP: 50},
	}
}

func TestSeed_AddsMissingWithoutReplacing(t *testing.T) {
	tracker := NewAchievementTracker(testAchievementCatalog())
	up := NewUserProgress()

	tracker.Seed(up)
	assert.Len(t, up.Achievements, 6)

	// Existing progress survives a re-seed.
	up.Achievements["ten_routines"].Progress = 4
	tracker.Seed(up)
	assert.Equal(t, 4, up.Achievements["ten_routines"].Progress)
}

func TestUpdate_CompletesOnceWithDate(t *testing.T) {
	tracker := NewAchievementTracker(testAchievementCatalog())
	up := NewUserProgress()
	tracker.Seed(up)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	up.Statistics.TotalRoutines = 1
	up.Statistics.TotalMinutes = 10

	completed := tracker.Update(up, 1, now)
	assert.Len(t, completed, 1)
	assert.Equal(t, "first_routine", completed[0].ID)
	assert.True(t, completed[0].Completed)
	assert.True(t, completed[0].BadgeUnlocked)
	assert.Equal(t, now, *completed[0].DateCompleted)

	// A second pass over the same state completes nothing new.
	assert.Empty(t, tracker.Update(up, 1, now))
}

func TestUpdate_TracksAllProgressSources(t *testing.T) {
	tracker := NewAchievementTracker(testAchievementCatalog())
	up := NewUserProgress()
	tracker.Seed(up)
	now := time.Now()

	up.Statistics.TotalRoutines = 6
	up.Statistics.TotalMinutes = 45
	up.Statistics.UniqueAreas = []shared.Area{"neck", "hips"}
	up.Statistics.RoutinesByArea = map[shared.Area]int{"neck": 4, "hips": 2}

	tracker.Update(up, 3, now)

	assert.Equal(t, 6, up.Achievements["ten_routines"].Progress)
	assert.Equal(t, 3, up.Achievements["week_streak"].Progress)
	assert.Equal(t, 2, up.Achievements["explorer"].Progress)
	assert.Equal(t, 4, up.Achievements["neck_fan"].Progress)
	assert.Equal(t, 45, up.Achievements["hour_total"].Progress)
}

func TestUpdate_ProgressIsMonotonic(t *testing.T) {
	tracker := NewAchievementTracker(testAchievementCatalog())
	up := NewUserProgress()
	tracker.Seed(up)
	now := time.Now()

	tracker.Update(up, 5, now)
	assert.Equal(t, 5, up.Achievements["week_streak"].Progress)

	// A lower streak value never pulls an uncompleted achievement backwards.
	tracker.Update(up, 3, now)
	assert.Equal(t, 5, up.Achievements["week_streak"].Progress)
}

func TestUpdate_CompletedNeverDropsBelowRequirement(t *testing.T) {
	tracker := NewAchievementTracker(testAchievementCatalog())
	up := NewUserProgress()
	tracker.Seed(up)
	now := time.Now()

	tracker.Update(up, 7, now)
	assert.True(t, up.Achievements["week_streak"].Completed)

	// The streak resets later, but the completed achievement holds.
	tracker.Update(up, 0, now)
	assert.True(t, up.Achievements["week_streak"].Completed)
	assert.Equal(t, 7, up.Achievements["week_streak"].Progress)
}

func TestResetStreakProgress(t *testing.T) {
	tracker := NewAchievementTracker(testAchievementCatalog())
	up := NewUserProgress()
	tracker.Seed(up)
	now := time.Now()

	up.Statistics.TotalRoutines = 5
	tracker.Update(up, 5, now)
	assert.Equal(t, 5, up.Achievements["week_streak"].Progress)

	reset := tracker.ResetStreakProgress(up)
	assert.Len(t, reset, 1)
	assert.Equal(t, 0, up.Achievements["week_streak"].Progress)

	// Non-streak progress is untouched.
	assert.Equal(t, 5, up.Achievements["ten_routines"].Progress)
}

func TestParseAchievementCatalog_RejectsBadDefinitions(t *testing.T) {
	cases := []struct {
		name string
		toml string
	}{
		{"unknown type", `[[achievement]]
id = "x"
type = "nonsense"
title = "X"
requirement = 1
xp = 10`},
		{"zero requirement", `[[achievement]]
id = "x"
type = "streak"
title = "X"
requirement = 0
xp = 10`},
		{"duplicate id", `[[achievement]]
id = "x"
type = "streak"
title = "X"
requirement = 1
xp = 10

[[achievement]]
id = "x"
type = "streak"
title = "X again"
requirement = 2
xp = 10`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAchievementCatalog([]byte(tc.toml))
			assert.Error(t, err)
		})
	}
}

func TestDefaultAchievementCatalogParses(t *testing.T) {
	catalog, err := DefaultAchievementCatalog()
	assert.NoError(t, err)
	assert.NotEmpty(t, catalog)
}
