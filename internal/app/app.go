package app

import (
	"github.com/normanking/tutoravatar/internal/avatar"
	"github.com/normanking/tutoravatar/internal/bus"
	"github.com/normanking/tutoravatar/internal/config"
	"github.com/normanking/tutoravatar/internal/logging"
	"github.com/normanking/tutoravatar/internal/metrics"
	"github.com/normanking/tutoravatar/internal/prefs"
	"github.com/normanking/tutoravatar/internal/scene"
	"github.com/normanking/tutoravatar/internal/speech"
	"github.com/normanking/tutoravatar/internal/tts"
)

// App is the fully wired engine.
type App struct {
	Config  *config.Config
	Log     *logging.Logger
	Bus     *bus.EventBus
	Metrics *metrics.Metrics
	Prefs   prefs.Store
	Synth   tts.Synthesizer
	Avatar  *avatar.Controller
	Speech  *speech.Coordinator
	Runtime *Runtime
	Scene   *scene.Node
}

// New wires every component from cfg. A nil synth selects one from
// cfg.Speech.Provider. Problems with optional collaborators (preferences,
// speech) are logged and degraded around, never returned.
func New(cfg *config.Config, log *logging.Logger, synth tts.Synthesizer) *App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logging.Nop()
	}
	a := &App{
		Config:  cfg,
		Log:     log,
		Bus:     bus.NewEventBus(),
		Metrics: metrics.New(),
	}

	events := log.Component("events")
	a.Bus.SubscribeAll(func(e bus.Event) {
		events.Debug().Str("type", string(e.Type)).Interface("data", e.Data).Msg("Event")
	})

	store, err := prefs.Open(cfg.Prefs)
	if err != nil {
		log.Warn("prefs", "preference store unavailable, using memory", map[string]interface{}{"error": err.Error()})
		store = prefs.NewMemoryStore()
	}
	a.Prefs = store

	enabled, err := store.Bool(prefs.KeySpeechEnabled, cfg.Speech.Enabled)
	if err != nil {
		log.Warn("prefs", "could not read speech toggle", map[string]interface{}{"error": err.Error()})
	}

	if synth == nil {
		synth, err = tts.Detect(log.Component("tts"), tts.Options{
			Provider: cfg.Speech.Provider,
			Voice:    cfg.Speech.Voice,
			WPM:      cfg.Speech.WordsPerMinute,
		})
		if err != nil {
			log.Warn("tts", "speech synthesis disabled", map[string]interface{}{"error": err.Error()})
		}
	}
	a.Synth = synth

	a.Avatar = avatar.New(cfg.Avatar, log.Component("avatar"),
		avatar.WithBus(a.Bus),
		avatar.WithMetrics(a.Metrics),
	)
	a.Speech = speech.New(speech.Config{
		Enabled:        enabled,
		Voice:          cfg.Speech.Voice,
		WordsPerMinute: cfg.Speech.WordsPerMinute,
		CharsPerWord:   cfg.Speech.CharsPerWord,
		MinDuration:    cfg.Speech.MinDuration,
		MaxDuration:    cfg.Speech.MaxDuration,
		TextFallback:   cfg.Speech.TextFallback,
	}, a.Avatar, synth,
		speech.WithLogger(log.Component("speech")),
		speech.WithBus(a.Bus),
		speech.WithMetrics(a.Metrics),
		speech.WithPersist(func(v bool) error {
			return store.SetBool(prefs.KeySpeechEnabled, v)
		}),
	)
	a.Runtime = NewRuntime(a.Avatar, a.Speech, log.Component("runtime"), a.Metrics)

	log.Info("app", "engine wired", map[string]interface{}{
		"synth":          synth.Name(),
		"speech_enabled": enabled,
		"prefs":          cfg.Prefs.Backend,
	})
	return a
}

// BuildScene creates the scene root and builds the avatar into it. A host
// without a rendering surface may skip this; the engine then runs with
// animation disabled.
func (a *App) BuildScene() *scene.Node {
	if a.Scene == nil {
		a.Scene = scene.NewGroup("scene")
		a.Avatar.Build(a.Scene)
	}
	return a.Scene
}

// Close stops speech and flushes the pending toggle write, then detaches
// bus subscribers and releases the preference store.
func (a *App) Close() error {
	a.Speech.Close()
	a.Bus.Clear()
	return a.Prefs.Close()
}
