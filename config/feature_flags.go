package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages runtime feature toggles. The engine ships with every
// progression system on; flags exist so a misbehaving subsystem can be
// switched off in the field without a redeploy.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Time-based activation, e.g. a seasonal special challenge drop.
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// Predefined feature flag names.
const (
	// === Challenge Features ===
	FeatureChallengesDaily   = "challenges.daily"
	FeatureChallengesWeekly  = "challenges.weekly"
	FeatureChallengesMonthly = "challenges.monthly"
	FeatureChallengesSpecial = "challenges.special"

	// === Streak Features ===
	FeatureStreakFlexSaves = "streak.flex_saves"

	// === XP Features ===
	FeatureXPBoost        = "xp.boost"         // temporary 2x multiplier support
	FeatureXPWelcomeBonus = "xp.welcome_bonus" // one-time first-routine bonus

	// === Progression Features ===
	FeatureAchievements = "progression.achievements"
	FeatureRewards      = "progression.rewards"
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureChallengesDaily] = &Feature{
		Name:        FeatureChallengesDaily,
		Description: "Generate daily challenges",
		Enabled:     true,
	}
	ff.features[FeatureChallengesWeekly] = &Feature{
		Name:        FeatureChallengesWeekly,
		Description: "Generate weekly challenges",
		Enabled:     true,
	}
	ff.features[FeatureChallengesMonthly] = &Feature{
		Name:        FeatureChallengesMonthly,
		Description: "Generate monthly challenges",
		Enabled:     true,
	}
	ff.features[FeatureChallengesSpecial] = &Feature{
		Name:        FeatureChallengesSpecial,
		Description: "Generate special event challenges",
		Enabled:     true,
	}

	ff.features[FeatureStreakFlexSaves] = &Feature{
		Name:        FeatureStreakFlexSaves,
		Description: "Spend flex saves to bridge missed days",
		Enabled:     true,
	}

	ff.features[FeatureXPBoost] = &Feature{
		Name:        FeatureXPBoost,
		Description: "Honor temporary XP boost multipliers",
		Enabled:     true,
	}
	ff.features[FeatureXPWelcomeBonus] = &Feature{
		Name:        FeatureXPWelcomeBonus,
		Description: "One-time welcome bonus on the first routine",
		Enabled:     true,
	}

	ff.features[FeatureAchievements] = &Feature{
		Name:        FeatureAchievements,
		Description: "Track and award achievements",
		Enabled:     true,
	}
	ff.features[FeatureRewards] = &Feature{
		Name:        FeatureRewards,
		Description: "Unlock rewards on level-up",
		Enabled:     true,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false
// Example: FEATURE_CHALLENGES_SPECIAL=false
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "challenges.special" -> "FEATURE_CHALLENGES_SPECIAL"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is currently enabled.
func (ff *FeatureFlags) IsEnabled(featureName string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}
	if !feature.Enabled {
		return false
	}

	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	return true
}

// EnableFeature enables a feature.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.setEnabled(featureName, true)
}

// DisableFeature disables a feature.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.setEnabled(featureName, false)
}

func (ff *FeatureFlags) setEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	feature.Enabled = enabled
	return nil
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var ErrFeatureNotFound = &FeatureFlagError{Message: "feature not found"}

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
