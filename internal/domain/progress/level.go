package progress

import (
	"math"
	"sort"
	"sync"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
)

// UnboundedXP is the XPForNextLevel sentinel once the table is exhausted.
const UnboundedXP = math.MaxInt

// LevelThreshold is one row of the level table.
type LevelThreshold struct {
	Level      shared.Level
	XPRequired shared.XP
}

// DefaultLevelTable is the production progression curve. Must be strictly
// ascending in both level and XP.
func DefaultLevelTable() []LevelThreshold {
	return []LevelThreshold{
		{Level: 1, XPRequired: 0},
		{Level: 2, XPRequired: 100},
		{Level: 3, XPRequired: 250},
		{Level: 4, XPRequired: 500},
		{Level: 5, XPRequired: 1000},
		{Level: 6, XPRequired: 2000},
		{Level: 7, XPRequired: 3500},
		{Level: 8, XPRequired: 5500},
		{Level: 9, XPRequired: 8000},
		{Level: 10, XPRequired: 11000},
		{Level: 11, XPRequired: 15000},
	}
}

// LevelInfo describes where an XP balance sits on the curve.
type LevelInfo struct {
	Level shared.Level `json:"level"`

	// XPForCurrentLevel is the threshold of the current level.
	XPForCurrentLevel int `json:"xpForCurrentLevel"`

	// XPForNextLevel is the threshold of the next level, or UnboundedXP
	// past the end of the table.
	XPForNextLevel int `json:"xpForNextLevel"`

	// FractionalProgress is the position within the current level, in
	// [0, 1]. 1 past the end of the table.
	FractionalProgress float64 `json:"fractionalProgress"`
}

// LevelCalculator maps XP balances to levels using a monotonic threshold
// table. Pure per input; results are memoized per instance, keyed by XP.
// The memo lives only for the process lifetime, so it can never survive a
// table change across restarts.
type LevelCalculator struct {
	table []LevelThreshold

	mu   sync.Mutex
	memo map[shared.XP]LevelInfo
}

// NewLevelCalculator creates a calculator over the given table. The table is
// sorted by XP; an empty table falls back to the default.
func NewLevelCalculator(table []LevelThreshold) *LevelCalculator {
	if len(table) == 0 {
		table = DefaultLevelTable()
	}
	sorted := make([]LevelThreshold, len(table))
	copy(sorted, table)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].XPRequired < sorted[j].XPRequired })

	return &LevelCalculator{
		table: sorted,
		memo:  make(map[shared.XP]LevelInfo),
	}
}

// LevelFor returns the level info for an XP balance: the highest table entry
// whose requirement is at or below the balance.
func (lc *LevelCalculator) LevelFor(xp shared.XP) LevelInfo {
	if xp < 0 {
		xp = 0
	}

	lc.mu.Lock()
	if info, ok := lc.memo[xp]; ok {
		lc.mu.Unlock()
		return info
	}
	lc.mu.Unlock()

	info := lc.compute(xp)

	lc.mu.Lock()
	lc.memo[xp] = info
	lc.mu.Unlock()
	return info
}

func (lc *LevelCalculator) compute(xp shared.XP) LevelInfo {
	idx := 0
	for i, row := range lc.table {
		if row.XPRequired <= xp {
			idx = i
		} else {
			break
		}
	}

	current := lc.table[idx]
	info := LevelInfo{
		Level:             current.Level,
		XPForCurrentLevel: current.XPRequired.Int(),
	}

	if idx+1 < len(lc.table) {
		next := lc.table[idx+1]
		info.XPForNextLevel = next.XPRequired.Int()
		span := float64(next.XPRequired - current.XPRequired)
		info.FractionalProgress = float64(xp-current.XPRequired) / span
	} else {
		info.XPForNextLevel = UnboundedXP
		info.FractionalProgress = 1
	}

	return info
}

// MaxLevel returns the top of the table.
func (lc *LevelCalculator) MaxLevel() shared.Level {
	return lc.table[len(lc.table)-1].Level
}
