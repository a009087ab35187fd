package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
)

func TestLevelFor_Thresholds(t *testing.T) {
	calc := NewLevelCalculator(DefaultLevelTable())

	cases := []struct {
		xp    shared.XP
		level int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{11000, 10},
		{15000, 11},
		{999999, 11},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, calc.LevelFor(tc.xp).Level.Int(), "xp=%d", tc.xp)
	}
}

func TestLevelFor_NegativeClampsToZero(t *testing.T) {
	calc := NewLevelCalculator(DefaultLevelTable())
	assert.Equal(t, 1, calc.LevelFor(-50).Level.Int())
}

func TestLevelFor_FractionalProgress(t *testing.T) {
	calc := NewLevelCalculator(DefaultLevelTable())

	// Level 2 spans 100..250: at 175 XP we are exactly halfway.
	info := calc.LevelFor(175)
	assert.Equal(t, 2, info.Level.Int())
	assert.Equal(t, 100, info.XPForCurrentLevel)
	assert.Equal(t, 250, info.XPForNextLevel)
	assert.InDelta(t, 0.5, info.FractionalProgress, 1e-9)

	atThreshold := calc.LevelFor(100)
	assert.InDelta(t, 0.0, atThreshold.FractionalProgress, 1e-9)
}

func TestLevelFor_PastEndOfTable(t *testing.T) {
	calc := NewLevelCalculator(DefaultLevelTable())

	info := calc.LevelFor(20000)
	assert.Equal(t, 11, info.Level.Int())
	assert.Equal(t, UnboundedXP, info.XPForNextLevel)
	assert.Equal(t, 1.0, info.FractionalProgress)
}

func TestLevelFor_MemoizedResultsStayConsistent(t *testing.T) {
	calc := NewLevelCalculator(DefaultLevelTable())

	first := calc.LevelFor(175)
	second := calc.LevelFor(175)
	assert.Equal(t, first, second)
}

func TestNewLevelCalculator_SortsUnorderedTable(t *testing.T) {
	calc := NewLevelCalculator([]LevelThreshold{
		{Level: 3, XPRequired: 200},
		{Level: 1, XPRequired: 0},
		{Level: 2, XPRequired: 100},
	})

	assert.Equal(t, 1, calc.LevelFor(50).Level.Int())
	assert.Equal(t, 2, calc.LevelFor(150).Level.Int())
	assert.Equal(t, 3, calc.LevelFor(200).Level.Int())
}

func TestNewLevelCalculator_EmptyTableFallsBack(t *testing.T) {
	calc := NewLevelCalculator(nil)
	assert.Equal(t, 11, calc.MaxLevel().Int())
}
