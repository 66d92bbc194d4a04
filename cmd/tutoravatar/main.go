// Package main is the tutoravatar command: it runs the engine with a GL
// window or headless, and offers a few tools for inspecting its output.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/normanking/tutoravatar/internal/app"
	"github.com/normanking/tutoravatar/internal/config"
	"github.com/normanking/tutoravatar/internal/logging"
	"github.com/normanking/tutoravatar/internal/tts"
)

// GLFW needs the main OS thread.
func init() {
	runtime.LockOSThread()
}

var (
	version = "dev"

	configPath string

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tutoravatar",
		Short: "Animated tutor avatar with speech-synchronised lip movement",
		Long: titleStyle.Render("Tutor Avatar") + `

Drives a procedural tutor figure: emotion presets, body gestures and a
mouth that follows synthesised speech.

` + dimStyle.Render("Use 'tutoravatar [command] --help' for more information."),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.tutoravatar/config.yaml)")

	rootCmd.AddCommand(
		runCommand(),
		sayCommand(),
		timelineCommand(),
		exportCommand(),
		presetsCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults with a
// warning on stderr.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, dimStyle.Render("config: "+err.Error()+", using defaults"))
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return cfg
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.New(&logging.Config{
		LogDir:     cfg.Logging.Dir,
		Level:      logging.LogLevel(cfg.Logging.Level),
		MaxHistory: cfg.Logging.MaxHistory,
		Console:    cfg.Logging.Console,
		Out:        os.Stderr,
	})
}

// newApp wires the engine and builds the figure. A nil synth is picked
// from the config.
func newApp(cfg *config.Config, synth tts.Synthesizer) (*app.App, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	a := app.New(cfg, log, synth)
	a.BuildScene()
	return a, nil
}
