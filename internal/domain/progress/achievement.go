package progress

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/crisnc100/FlexBreak-sub005/internal/domain/shared"
)

// AchievementType determines the progress source of an achievement.
type AchievementType string

const (
	AchievementRoutineCount AchievementType = "routine_count"
	AchievementStreak       AchievementType = "streak"
	AchievementAreaVariety  AchievementType = "area_variety"
	AchievementSpecificArea AchievementType = "specific_area"
	AchievementTotalMinutes AchievementType = "total_minutes"
)

// IsValid checks the type value.
func (t AchievementType) IsValid() bool {
	switch t {
	case AchievementRoutineCount, AchievementStreak, AchievementAreaVariety,
		AchievementSpecificArea, AchievementTotalMinutes:
		return true
	}
	return false
}

// Achievement is a permanent, monotonically progressing accomplishment.
// Unlike challenges there is no claim step and no expiry: completion is
// self-awarding and final.
type Achievement struct {
	ID          string          `json:"id"`
	Type        AchievementType `json:"type"`
	Category    string          `json:"category,omitempty"`
	Title       string          `json:"title"`
	Requirement int             `json:"requirement"`
	Progress    int             `json:"progress"`
	Completed   bool            `json:"completed"`

	DateCompleted *time.Time `json:"dateCompleted,omitempty"`

	XP            int  `json:"xp"`
	BadgeUnlocked bool `json:"badgeUnlocked"`
}

// AchievementDef is a catalog row.
type AchievementDef struct {
	ID          string `toml:"id"`
	Type        string `toml:"type"`
	Category    string `toml:"category"`
	Title       string `toml:"title"`
	Requirement int    `toml:"requirement"`
	XP          int    `toml:"xp"`
}

type achievementFile struct {
	Achievements []AchievementDef `toml:"achievement"`
}

//go:embed data/achievements.toml
var defaultAchievementData []byte

// DefaultAchievementCatalog returns the embedded catalog.
func DefaultAchievementCatalog() ([]AchievementDef, error) {
	return ParseAchievementCatalog(defaultAchievementData)
}

// ParseAchievementCatalog parses and validates a TOML achievement catalog.
func ParseAchievementCatalog(data []byte) ([]AchievementDef, error) {
	var file achievementFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, shared.WrapError("achievement", "ParseCatalog", shared.ErrInvalidInput, "invalid achievement catalog", err)
	}
	seen := make(map[string]bool, len(file.Achievements))
	for _, def := range file.Achievements {
		if def.ID == "" || def.Requirement <= 0 || def.XP < 0 {
			return nil, shared.NewDomainError("achievement", "ParseCatalog", shared.ErrInvalidInput,
				fmt.Sprintf("invalid achievement definition %q", def.ID))
		}
		if !AchievementType(def.Type).IsValid() {
			return nil, shared.NewDomainError("achievement", "ParseCatalog", shared.ErrInvalidInput,
				fmt.Sprintf("achievement %s: unknown type %q", def.ID, def.Type))
		}
		if seen[def.ID] {
			return nil, shared.NewDomainError("achievement", "ParseCatalog", shared.ErrAlreadyExists,
				fmt.Sprintf("duplicate achievement id %q", def.ID))
		}
		seen[def.ID] = true
	}
	return file.Achievements, nil
}

// AchievementTracker recomputes achievement progress from statistics and the
// reconciled streak. State machine per achievement:
//
//	NotStarted (0) → InProgress (0 < p < req) → Completed (p ≥ req, XP once)
type AchievementTracker struct {
	catalog []AchievementDef
}

// NewAchievementTracker creates a tracker over the catalog.
func NewAchievementTracker(catalog []AchievementDef) *AchievementTracker {
	return &AchievementTracker{catalog: catalog}
}

// Seed adds any catalog achievements missing from the aggregate. Existing
// entries are never replaced or removed.
func (t *AchievementTracker) Seed(up *UserProgress) {
	for _, def := range t.catalog {
		if _, ok := up.Achievements[def.ID]; ok {
			continue
		}
		up.Achievements[def.ID] = &Achievement{
			ID:          def.ID,
			Type:        AchievementType(def.Type),
			Category:    def.Category,
			Title:       def.Title,
			Requirement: def.Requirement,
			XP:          def.XP,
		}
	}
}

// progressSource reads the value an achievement type tracks. streak is the
// freshly reconciled length, never the raw stored statistic.
func progressSource(a *Achievement, stats *Statistics, streak int) int {
	switch a.Type {
	case AchievementRoutineCount:
		return stats.TotalRoutines
	case AchievementStreak:
		return streak
	case AchievementAreaVariety:
		return len(stats.UniqueAreas)
	case AchievementSpecificArea:
		return stats.MaxAreaCount()
	case AchievementTotalMinutes:
		return stats.TotalMinutes
	default:
		return 0
	}
}

// Update recomputes progress for every achievement and returns the ones that
// completed during this pass, each exactly once. Progress is monotonic: it
// only moves up, except through ResetStreakProgress. Completed achievements
// are guarded against external writers pushing progress back below the
// requirement.
func (t *AchievementTracker) Update(up *UserProgress, streak int, now time.Time) []*Achievement {
	var completed []*Achievement

	for _, a := range up.Achievements {
		value := progressSource(a, &up.Statistics, streak)

		if a.Completed {
			if value < a.Requirement {
				value = a.Requirement
			}
			a.Progress = value
			continue
		}

		if value > a.Progress {
			a.Progress = value
		}

		if a.Progress >= a.Requirement {
			a.Completed = true
			a.BadgeUnlocked = true
			at := now
			a.DateCompleted = &at
			completed = append(completed, a)
		}
	}

	return completed
}

// ResetStreakProgress zeroes in-progress streak achievements after an
// unprotected break. Completed ones are untouched.
func (t *AchievementTracker) ResetStreakProgress(up *UserProgress) []*Achievement {
	var reset []*Achievement
	for _, a := range up.Achievements {
		if a.Type == AchievementStreak && !a.Completed && a.Progress > 0 {
			a.Progress = 0
			reset = append(reset, a)
		}
	}
	return reset
}
