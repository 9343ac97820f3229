package config

import (
	"hash/fnv"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// FeatureFlags manages feature toggles with gradual rollout and per-user
// overrides. Safe for concurrent use.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	userOverrides map[string]map[string]bool // userID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Users are assigned based on hash of their ID
	RolloutPercent int
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID  string
	IsAdmin bool
}

// Predefined feature flag names.
const (
	// === Directory ===
	FeatureDirectoryDemoUsers = "directory.demo_users" // Seed admin and student accounts
	FeatureDirectoryBootstrap = "directory.bootstrap"  // Load stored users after startup

	// === Auth ===
	FeatureAuthPasswordReset = "auth.password_reset" // Requires external authentication

	// === HTTP ===
	FeatureHTTPMetrics = "http.metrics" // Expose /metrics

	// === Notifications ===
	FeatureNotifyLevelUp      = "notify.level_up"     // "Level up! You are now level N"
	FeatureNotifyAchievements = "notify.achievements" // "Achievement unlocked: ..."
)

// LoadFeatureFlags builds the flag registry and applies overrides from v.
// v may be nil, in which case only defaults apply.
func LoadFeatureFlags(v *viper.Viper) *FeatureFlags {
	ff := NewFeatureFlags()
	if v != nil {
		ff.loadFrom(v)
	}
	return ff
}

// NewFeatureFlags returns the registry with default values.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}
	ff.initializeDefaults()
	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureDirectoryDemoUsers] = &Feature{
		Name:           FeatureDirectoryDemoUsers,
		Description:    "Seed demo accounts at startup",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureDirectoryBootstrap] = &Feature{
		Name:           FeatureDirectoryBootstrap,
		Description:    "Load users from the document store in the background",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Password reset needs an identity provider; there is none by default.
	ff.features[FeatureAuthPasswordReset] = &Feature{
		Name:           FeatureAuthPasswordReset,
		Description:    "Accept password reset requests",
		Enabled:        false,
		RolloutPercent: 0,
	}

	ff.features[FeatureHTTPMetrics] = &Feature{
		Name:           FeatureHTTPMetrics,
		Description:    "Serve prometheus metrics",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyLevelUp] = &Feature{
		Name:           FeatureNotifyLevelUp,
		Description:    "Announce level ups",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureNotifyAchievements] = &Feature{
		Name:           FeatureNotifyAchievements,
		Description:    "Announce unlocked achievements",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFrom applies overrides under the "features" key.
// Format: true|false|<percent>
// Example: CODEVIA_FEATURES_AUTH_PASSWORD_RESET=true
// Example (yaml): features: { notify: { level_up: 50 } }
func (ff *FeatureFlags) loadFrom(v *viper.Viper) {
	for name, feature := range ff.features {
		val := strings.TrimSpace(v.GetString("features." + name))
		if val == "" {
			continue
		}

		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			if b {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}

		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check user overrides first
	if ctx != nil && ctx.UserID != "" {
		if userOverrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := userOverrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin users get all features
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	if !feature.Enabled {
		return false
	}

	if feature.RolloutPercent < 100 && ctx != nil && ctx.UserID != "" {
		return isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a user is in the rollout percentage.
// Uses consistent hashing so users stay in their bucket.
func isInRollout(userID string, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(userID))

	// Map to 0-99 range
	bucket := int(h.Sum32() % 100)

	return bucket < percent
}

// SetUserOverride sets a feature override for a specific user.
func (ff *FeatureFlags) SetUserOverride(userID string, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.userOverrides[userID]; !ok {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// ClearUserOverrides removes all overrides for a user.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
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

// --- Convenience methods for common checks ---

// PasswordResetEnabled reports whether reset requests are accepted.
func (ff *FeatureFlags) PasswordResetEnabled() bool {
	return ff.IsEnabled(FeatureAuthPasswordReset, nil)
}

// MetricsEnabled reports whether /metrics is served.
func (ff *FeatureFlags) MetricsEnabled() bool {
	return ff.IsEnabled(FeatureHTTPMetrics, nil)
}

// LevelUpNotificationsEnabled reports whether userID sees level-up notices.
func (ff *FeatureFlags) LevelUpNotificationsEnabled(userID string) bool {
	return ff.IsEnabled(FeatureNotifyLevelUp, &FeatureContext{UserID: userID})
}

// AchievementNotificationsEnabled reports whether userID sees achievement
// notices.
func (ff *FeatureFlags) AchievementNotificationsEnabled(userID string) bool {
	return ff.IsEnabled(FeatureNotifyAchievements, &FeatureContext{UserID: userID})
}

// NotificationsEnabled checks if any progress notification is on for the user.
func (ff *FeatureFlags) NotificationsEnabled(ctx *FeatureContext) bool {
	return ff.IsEnabled(FeatureNotifyLevelUp, ctx) ||
		ff.IsEnabled(FeatureNotifyAchievements, ctx)
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
