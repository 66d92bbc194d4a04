package tts

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
)

// Options selects and tunes a backend.
type Options struct {
	Provider string // auto, say, espeak, espeak-ng, none
	Voice    string
	WPM      int
}

// Detect returns the configured synthesizer. "auto" picks the first
// available system command for this OS and falls back to Null.
func Detect(logger zerolog.Logger, opts Options) (Synthesizer, error) {
	switch opts.Provider {
	case "", "auto":
		for _, s := range candidates(logger, opts) {
			if s.Available() {
				logger.Info().Str("provider", s.Name()).Msg("Speech synthesizer selected")
				return s, nil
			}
		}
		logger.Warn().Msg("No speech synthesizer found; mouth will follow text timing only")
		return Null{}, nil
	case "say":
		return NewSay(logger, opts.Voice, opts.WPM), nil
	case "espeak", "espeak-ng":
		return NewEspeak(logger, opts.Provider, opts.Voice, opts.WPM), nil
	case "none", "off":
		return Null{}, nil
	default:
		return Null{}, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}

func candidates(logger zerolog.Logger, opts Options) []Synthesizer {
	var out []Synthesizer
	if runtime.GOOS == "darwin" {
		out = append(out, NewSay(logger, opts.Voice, opts.WPM))
	}
	return append(out,
		NewEspeak(logger, "espeak-ng", opts.Voice, opts.WPM),
		NewEspeak(logger, "espeak", opts.Voice, opts.WPM),
	)
}
