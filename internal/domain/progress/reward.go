package progress

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
)

// Reward is a named feature unlocked by reaching a level. Unlocks are
// monotonic: once unlocked, never relocked.
type Reward struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	UnlockLevel int    `json:"unlockLevel"`
	Unlocked    bool   `json:"unlocked"`

	DateUnlocked *time.Time `json:"dateUnlocked,omitempty"`
}

// RewardDef is a catalog row.
type RewardDef struct {
	ID          string `toml:"id"`
	Title       string `toml:"title"`
	Description string `toml:"description"`
	UnlockLevel int    `toml:"unlock_level"`
}

type rewardFile struct {
	Rewards []RewardDef `toml:"reward"`
}

//go:embed data/rewards.toml
var defaultRewardData []byte

// DefaultRewardCatalog returns the embedded catalog.
func DefaultRewardCatalog() ([]RewardDef, error) {
	return ParseRewardCatalog(defaultRewardData)
}

// ParseRewardCatalog parses and validates a TOML reward catalog.
func ParseRewardCatalog(data []byte) ([]RewardDef, error) {
	var file rewardFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, shared.WrapError("reward", "ParseCatalog", shared.ErrInvalidInput, "invalid reward catalog", err)
	}
	seen := make(map[string]bool, len(file.Rewards))
	for _, def := range file.Rewards {
		if def.ID == "" || def.UnlockLevel < 1 {
			return nil, shared.NewDomainError("reward", "ParseCatalog", shared.ErrInvalidInput,
				fmt.Sprintf("invalid reward definition %q", def.ID))
		}
		if seen[def.ID] {
			return nil, shared.NewDomainError("reward", "ParseCatalog", shared.ErrAlreadyExists,
				fmt.Sprintf("duplicate reward id %q", def.ID))
		}
		seen[def.ID] = true
	}
	return file.Rewards, nil
}

// RewardUnlocker flips rewards unlocked as levels are reached. It is invoked
// only when the level changes, so the scan does not run on every event.
type RewardUnlocker struct {
	catalog []RewardDef
}

// NewRewardUnlocker creates an unlocker over the catalog.
func NewRewardUnlocker(catalog []RewardDef) *RewardUnlocker {
	return &RewardUnlocker{catalog: catalog}
}

// Seed adds any catalog rewards missing from the aggregate.
func (u *RewardUnlocker) Seed(up *UserProgress) {
	for _, def := range u.catalog {
		if _, ok := up.Rewards[def.ID]; ok {
			continue
		}
		up.Rewards[def.ID] = &Reward{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
			UnlockLevel: def.UnlockLevel,
		}
	}
}

// Apply unlocks every reward at or below the current level and returns the
// newly unlocked ones.
func (u *RewardUnlocker) Apply(up *UserProgress, now time.Time) []*Reward {
	var unlocked []*Reward
	for _, r := range up.Rewards {
		if r.Unlocked || r.UnlockLevel > up.Level.Int() {
			continue
		}
		r.Unlocked = true
		at := now
		r.DateUnlocked = &at
		unlocked = append(unlocked, r)
	}
	return unlocked
}
