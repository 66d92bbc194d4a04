// Package config provides configuration management for the tutor avatar.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Avatar  AvatarConfig  `mapstructure:"avatar"`
	Speech  SpeechConfig  `mapstructure:"speech"`
	Render  RenderConfig  `mapstructure:"render"`
	Server  ServerConfig  `mapstructure:"server"`
	Prefs   PrefsConfig   `mapstructure:"prefs"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AvatarConfig tunes the animation engine.
type AvatarConfig struct {
	ExpressionRate float64       `mapstructure:"expression_rate"` // fraction per 60 Hz frame
	MouthRate      float64       `mapstructure:"mouth_rate"`
	PoseRate       float64       `mapstructure:"pose_rate"`
	BlinkInterval  time.Duration `mapstructure:"blink_interval"`
	BlinkDuration  time.Duration `mapstructure:"blink_duration"`
	ParticleCount  int           `mapstructure:"particle_count"`
	Seed           int64         `mapstructure:"seed"`
	IdleAnimation  bool          `mapstructure:"idle_animation"`
}

// SpeechConfig configures synthesis and the speech coordinator.
type SpeechConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Provider       string        `mapstructure:"provider"` // auto, say, espeak, none
	Voice          string        `mapstructure:"voice"`
	WordsPerMinute int           `mapstructure:"words_per_minute"`
	CharsPerWord   float64       `mapstructure:"chars_per_word"`
	MinDuration    time.Duration `mapstructure:"min_duration"`
	MaxDuration    time.Duration `mapstructure:"max_duration"`
	TextFallback   bool          `mapstructure:"text_fallback"`
}

// RenderConfig configures the GL window.
type RenderConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Title     string `mapstructure:"title"`
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	VSync     bool   `mapstructure:"vsync"`
	MSAA      int    `mapstructure:"msaa"`
	FPS       int    `mapstructure:"fps"`
	ShaderDir string `mapstructure:"shader_dir"`
	HotReload bool   `mapstructure:"hot_reload"`
}

// ServerConfig configures the websocket/HTTP surface.
type ServerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Addr        string `mapstructure:"addr"`
	BroadcastHz int    `mapstructure:"broadcast_hz"`
}

// PrefsConfig selects the preference store backend.
type PrefsConfig struct {
	Backend string `mapstructure:"backend"` // yaml or sqlite
	Path    string `mapstructure:"path"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Dir        string `mapstructure:"dir"`
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	MaxHistory int    `mapstructure:"max_history"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	dir, _ := Dir()
	return &Config{
		Avatar: AvatarConfig{
			ExpressionRate: 0.08,
			MouthRate:      0.35,
			PoseRate:       0.12,
			BlinkInterval:  4 * time.Second,
			BlinkDuration:  150 * time.Millisecond,
			ParticleCount:  40,
			Seed:           7,
			IdleAnimation:  true,
		},
		Speech: SpeechConfig{
			Enabled:        true,
			Provider:       "auto",
			WordsPerMinute: 150,
			CharsPerWord:   5,
			MinDuration:    1500 * time.Millisecond,
			MaxDuration:    15 * time.Second,
			TextFallback:   true,
		},
		Render: RenderConfig{
			Enabled:   true,
			Title:     "Tutor Avatar",
			Width:     720,
			Height:    900,
			VSync:     true,
			MSAA:      4,
			FPS:       60,
			HotReload: false,
		},
		Server: ServerConfig{
			Enabled:     true,
			Addr:        "127.0.0.1:8765",
			BroadcastHz: 30,
		},
		Prefs: PrefsConfig{
			Backend: "yaml",
			Path:    filepath.Join(dir, "prefs.yaml"),
		},
		Logging: LoggingConfig{
			Dir:        filepath.Join(dir, "logs"),
			Level:      "info",
			Console:    true,
			MaxHistory: 500,
		},
	}
}

// Dir returns the configuration directory path
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tutoravatar", err
	}
	return filepath.Join(home, ".tutoravatar"), nil
}

func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TUTORAVATAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range flatten(cfg) {
		v.SetDefault(k, val)
	}
	return v
}

// Load reads configuration from path, or from config.yaml in Dir() when
// path is empty. Environment variables prefixed TUTORAVATAR_ override
// file values. A missing default file is created from defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := Dir()
		if err != nil {
			return cfg, err
		}
		v.SetConfigName("config")
		v.AddConfigPath(dir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := Save(cfg, ""); err != nil {
			return cfg, err
		}
	}

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, or to config.yaml in Dir() when path
// is empty.
func Save(cfg *Config, path string) error {
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	v := viper.New()
	for k, val := range flatten(cfg) {
		v.Set(k, val)
	}
	return v.WriteConfigAs(path)
}

// flatten lists every config key with its value. Durations are written as
// strings so the YAML stays readable.
func flatten(cfg *Config) map[string]interface{} {
	return map[string]interface{}{
		"avatar.expression_rate": cfg.Avatar.ExpressionRate,
		"avatar.mouth_rate":      cfg.Avatar.MouthRate,
		"avatar.pose_rate":       cfg.Avatar.PoseRate,
		"avatar.blink_interval":  cfg.Avatar.BlinkInterval.String(),
		"avatar.blink_duration":  cfg.Avatar.BlinkDuration.String(),
		"avatar.particle_count":  cfg.Avatar.ParticleCount,
		"avatar.seed":            cfg.Avatar.Seed,
		"avatar.idle_animation":  cfg.Avatar.IdleAnimation,

		"speech.enabled":          cfg.Speech.Enabled,
		"speech.provider":         cfg.Speech.Provider,
		"speech.voice":            cfg.Speech.Voice,
		"speech.words_per_minute": cfg.Speech.WordsPerMinute,
		"speech.chars_per_word":   cfg.Speech.CharsPerWord,
		"speech.min_duration":     cfg.Speech.MinDuration.String(),
		"speech.max_duration":     cfg.Speech.MaxDuration.String(),
		"speech.text_fallback":    cfg.Speech.TextFallback,

		"render.enabled":    cfg.Render.Enabled,
		"render.title":      cfg.Render.Title,
		"render.width":      cfg.Render.Width,
		"render.height":     cfg.Render.Height,
		"render.vsync":      cfg.Render.VSync,
		"render.msaa":       cfg.Render.MSAA,
		"render.fps":        cfg.Render.FPS,
		"render.shader_dir": cfg.Render.ShaderDir,
		"render.hot_reload": cfg.Render.HotReload,

		"server.enabled":      cfg.Server.Enabled,
		"server.addr":         cfg.Server.Addr,
		"server.broadcast_hz": cfg.Server.BroadcastHz,

		"prefs.backend": cfg.Prefs.Backend,
		"prefs.path":    cfg.Prefs.Path,

		"logging.dir":         cfg.Logging.Dir,
		"logging.level":       cfg.Logging.Level,
		"logging.console":     cfg.Logging.Console,
		"logging.max_history": cfg.Logging.MaxHistory,
	}
}
