package challenge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/routine"
)

func activeChallenge(id string, typ Type, requirement int) *Challenge {
	return &Challenge{
		ID:          id,
		Type:        typ,
		Category:    CategoryWeekly,
		Requirement: requirement,
		Status:      StatusActive,
		StartDate:   engineNow.AddDate(0, 0, -6),
		EndDate:     engineNow.AddDate(0, 0, 1),
		XP:          50,
	}
}

func routineAt(t *testing.T, area string, minutes int, at time.Time) *routine.Record {
	t.Helper()
	r, err := routine.NewRecord(area, minutes, at)
	assert.NoError(t, err)
	return r
}

func TestUpdateProgress_RoutineCount(t *testing.T) {
	e := newTestEngine(t)
	c := activeChallenge("c", TypeRoutineCount, 3)
	challenges := map[string]*Challenge{"c": c}

	in := ProgressInput{
		Routines: []*routine.Record{
			routineAt(t, "neck", 10, engineNow.Add(-time.Hour)),
			routineAt(t, "hips", 10, engineNow.AddDate(0, 0, -1)),
			// Outside the challenge window: must not count.
			routineAt(t, "neck", 10, engineNow.AddDate(0, 0, -10)),
		},
		Now: engineNow,
	}

	completed := e.UpdateProgress(challenges, in)
	assert.Empty(t, completed)
	assert.Equal(t, 2, c.Progress)

	in.Routines = append(in.Routines, routineAt(t, "back", 10, engineNow))
	completed = e.UpdateProgress(challenges, in)
	assert.Len(t, completed, 1)
	assert.Equal(t, StatusCompleted, c.Status)
}

func TestUpdateProgress_TotalMinutes(t *testing.T) {
	e := newTestEngine(t)
	c := activeChallenge("c", TypeTotalMinutes, 30)
	challenges := map[string]*Challenge{"c": c}

	in := ProgressInput{
		Routines: []*routine.Record{
			routineAt(t, "neck", 10, engineNow.Add(-time.Hour)),
			routineAt(t, "hips", 25, engineNow.AddDate(0, 0, -2)),
		},
		Now: engineNow,
	}

	completed := e.UpdateProgress(challenges, in)
	assert.Len(t, completed, 1)
	assert.Equal(t, 30, c.Progress) // clamped at the requirement
}

func TestUpdateProgress_DailyMinutesCountsTodayOnly(t *testing.T) {
	e := newTestEngine(t)
	c := activeChallenge("c", TypeDailyMinutes, 20)
	challenges := map[string]*Challenge{"c": c}

	in := ProgressInput{
		Routines: []*routine.Record{
			routineAt(t, "neck", 15, engineNow.Add(-time.Hour)),
			routineAt(t, "hips", 15, engineNow.AddDate(0, 0, -1)), // yesterday
		},
		Now: engineNow,
	}

	e.UpdateProgress(challenges, in)
	assert.Equal(t, 15, c.Progress)
}

func TestUpdateProgress_AreaVariety(t *testing.T) {
	e := newTestEngine(t)
	c := activeChallenge("c", TypeAreaVariety, 3)
	challenges := map[string]*Challenge{"c": c}

	in := ProgressInput{
		Routines: []*routine.Record{
			routineAt(t, "neck", 10, engineNow.Add(-time.Hour)),
			routineAt(t, "neck", 10, engineNow.Add(-2*time.Hour)),
			routineAt(t, "hips", 10, engineNow.Add(-3*time.Hour)),
		},
		Now: engineNow,
	}

	e.UpdateProgress(challenges, in)
	assert.Equal(t, 2, c.Progress)
}

func TestUpdateProgress_SpecificArea(t *testing.T) {
	e := newTestEngine(t)
	c := activeChallenge("c", TypeSpecificArea, 2)
	c.Area = "neck"
	challenges := map[string]*Challenge{"c": c}

	in := ProgressInput{
		Routines: []*routine.Record{
			routineAt(t, "neck", 10, engineNow.Add(-time.Hour)),
			routineAt(t, "hips", 10, engineNow.Add(-2*time.Hour)),
			routineAt(t, "Neck", 10, engineNow.Add(-3*time.Hour)), // normalized
		},
		Now: engineNow,
	}

	completed := e.UpdateProgress(challenges, in)
	assert.Len(t, completed, 1)
	assert.Equal(t, 2, c.Progress)
}

func TestUpdateProgress_TimeOfDay(t *testing.T) {
	e := newTestEngine(t)
	c := activeChallenge("c", TypeTimeOfDay, 2)
	c.StartHour = 5
	c.EndHour = 9
	challenges := map[string]*Challenge{"c": c}

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	in := ProgressInput{
		Routines: []*routine.Record{
			routineAt(t, "neck", 10, day.Add(6*time.Hour)),   // 06:00, counts
			routineAt(t, "neck", 10, day.Add(9*time.Hour)),   // 09:00, exclusive end
			routineAt(t, "neck", 10, day.Add(-16*time.Hour)), // 08:00 the day before, counts
		},
		Now: engineNow,
	}

	completed := e.UpdateProgress(challenges, in)
	assert.Len(t, completed, 1)
	assert.Equal(t, 2, c.Progress)
}

func TestUpdateProgress_WeekendDays(t *testing.T) {
	e := newTestEngine(t)
	c := activeChallenge("c", TypeWeekendDays, 2)
	challenges := map[string]*Challenge{"c": c}

	saturday := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)
	in := ProgressInput{
		Routines: []*routine.Record{
			routineAt(t, "neck", 10, saturday),
			routineAt(t, "neck", 10, saturday.Add(2*time.Hour)), // same day, counts once
			routineAt(t, "hips", 10, sunday),
			routineAt(t, "hips", 10, engineNow), // Tuesday
		},
		Now: engineNow,
	}

	completed := e.UpdateProgress(challenges, in)
	assert.Len(t, completed, 1)
	assert.Equal(t, 2, c.Progress)
}

func TestUpdateProgress_StreakMirrorsReconciledValue(t *testing.T) {
	e := newTestEngine(t)
	c := activeChallenge("c", TypeStreak, 7)
	challenges := map[string]*Challenge{"c": c}

	e.UpdateProgress(challenges, ProgressInput{Streak: 4, Now: engineNow})
	assert.Equal(t, 4, c.Progress)

	completed := e.UpdateProgress(challenges, ProgressInput{Streak: 7, Now: engineNow})
	assert.Len(t, completed, 1)
}

func TestUpdateProgress_SkipsNonActive(t *testing.T) {
	e := newTestEngine(t)
	claimed := activeChallenge("c", TypeRoutineCount, 1)
	claimed.Status = StatusClaimed
	challenges := map[string]*Challenge{"c": claimed}

	in := ProgressInput{
		Routines: []*routine.Record{routineAt(t, "neck", 10, engineNow)},
		Now:      engineNow,
	}
	assert.Empty(t, e.UpdateProgress(challenges, in))
	assert.Equal(t, 0, claimed.Progress)
}

func TestResetStreakProgress(t *testing.T) {
	e := newTestEngine(t)
	inProgress := activeChallenge("a", TypeStreak, 7)
	inProgress.Progress = 4
	routineTyped := activeChallenge("b", TypeRoutineCount, 5)
	routineTyped.Progress = 3
	challenges := map[string]*Challenge{"a": inProgress, "b": routineTyped}

	reset := e.ResetStreakProgress(challenges)

	assert.Len(t, reset, 1)
	assert.Equal(t, 0, inProgress.Progress)
	assert.Equal(t, 3, routineTyped.Progress)
}
