package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	dir := t.TempDir()
	if yaml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	}
	v.AddConfigPath(dir)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "codevia", cfg.App.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.App.Debug)
	assert.NotNil(t, cfg.App.Location)
	assert.Equal(t, 15*time.Second, cfg.App.ShutdownTimeout)

	assert.Equal(t, "cumulative", cfg.Game.LevelPolicy)
	assert.Equal(t, 50, cfg.Game.SkillBonusXP)
	assert.Equal(t, 20, cfg.Game.XPPerCorrect)
	assert.Equal(t, 3, cfg.Game.DailyThreshold)
	assert.Equal(t, 50, cfg.Game.DailyRewardXP)

	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "users", cfg.Store.Collection)
	assert.Equal(t, 3*time.Second, cfg.Store.BootstrapDelay)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, 24*time.Hour, cfg.HTTP.TokenTTL)

	require.NotNil(t, cfg.Features)
	assert.False(t, cfg.Features.PasswordResetEnabled())
	assert.True(t, cfg.Features.MetricsEnabled())
}

func TestLoad_FileAndEnv(t *testing.T) {
	yaml := `
app:
  timezone: UTC
game:
  level_policy: Rollover
store:
  driver: mongo
  bootstrap_delay: 500ms
mongo:
  database: school
features:
  auth:
    password_reset: true
`
	t.Setenv("CODEVIA_GAME_DAILY_THRESHOLD", "5")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CODEVIA_FEATURES_NOTIFY_LEVEL_UP", "false")

	cfg, err := load(newViper(t, yaml))
	require.NoError(t, err)

	assert.Equal(t, time.UTC, cfg.App.Location)
	assert.Equal(t, "rollover", cfg.Game.LevelPolicy)
	assert.Equal(t, 5, cfg.Game.DailyThreshold)
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.Equal(t, 500*time.Millisecond, cfg.Store.BootstrapDelay)
	assert.Equal(t, "school", cfg.Mongo.Database)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, "s3cret", cfg.HTTP.JWTSecret)

	assert.True(t, cfg.Features.PasswordResetEnabled())
	assert.False(t, cfg.Features.IsEnabled(FeatureNotifyLevelUp, nil))
	assert.True(t, cfg.Features.IsEnabled(FeatureNotifyAchievements, nil))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"driver", map[string]string{"CODEVIA_STORE_DRIVER": "sqlite"}, "store.driver"},
		{"policy", map[string]string{"CODEVIA_GAME_LEVEL_POLICY": "linear"}, "game.level_policy"},
		{"threshold", map[string]string{"CODEVIA_GAME_DAILY_THRESHOLD": "0"}, "daily_threshold"},
		{"port", map[string]string{"CODEVIA_HTTP_PORT": "70000"}, "http.port"},
		{"production secret", map[string]string{"APP_ENV": "production", "JWT_SECRET": "short"}, "JWT_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(newViper(t, ""))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := load(newViper(t, "app: [unterminated"))
	assert.Error(t, err)
}
