package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 150, cfg.Speech.WordsPerMinute)
	assert.Equal(t, 1500*time.Millisecond, cfg.Speech.MinDuration)
	assert.Equal(t, 15*time.Second, cfg.Speech.MaxDuration)
	assert.True(t, cfg.Speech.TextFallback)
	assert.Equal(t, 4*time.Second, cfg.Avatar.BlinkInterval)
	assert.Greater(t, cfg.Avatar.ExpressionRate, 0.0)
	assert.Less(t, cfg.Avatar.ExpressionRate, 1.0)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.yaml")
	yaml := `
avatar:
  blink_interval: 6s
  particle_count: 12
speech:
  provider: none
  words_per_minute: 180
server:
  addr: ":9000"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6*time.Second, cfg.Avatar.BlinkInterval)
	assert.Equal(t, 12, cfg.Avatar.ParticleCount)
	assert.Equal(t, "none", cfg.Speech.Provider)
	assert.Equal(t, 180, cfg.Speech.WordsPerMinute)
	assert.Equal(t, ":9000", cfg.Server.Addr)

	// untouched keys keep their defaults
	assert.Equal(t, 15*time.Second, cfg.Speech.MaxDuration)
	assert.Equal(t, 0.35, cfg.Avatar.MouthRate)
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("speech:\n  words_per_minute: 120\n"), 0644))
	t.Setenv("TUTORAVATAR_SPEECH_WORDS_PER_MINUTE", "210")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 210, cfg.Speech.WordsPerMinute)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Speech.Voice = "Samantha"
	cfg.Avatar.BlinkDuration = 200 * time.Millisecond
	cfg.Prefs.Backend = "sqlite"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Samantha", loaded.Speech.Voice)
	assert.Equal(t, 200*time.Millisecond, loaded.Avatar.BlinkDuration)
	assert.Equal(t, "sqlite", loaded.Prefs.Backend)
}
