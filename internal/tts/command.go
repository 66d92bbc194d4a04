package tts

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CommandSynthesizer speaks through a system speech command such as macOS
// 'say' or espeak-ng. The command gives no word timing, so word boundaries
// are paced from the words-per-minute rate while the process runs.
type CommandSynthesizer struct {
	logger zerolog.Logger
	name   string
	binary string
	args   func(u Utterance) []string

	// DefaultVoice is used when an utterance names none.
	DefaultVoice string
	// DefaultWPM is used when an utterance has no rate.
	DefaultWPM int

	mu       sync.Mutex
	lookedUp bool
	path     string
}

// NewSay creates a synthesizer backed by the macOS 'say' command.
func NewSay(logger zerolog.Logger, voice string, wpm int) *CommandSynthesizer {
	s := &CommandSynthesizer{
		logger:       logger.With().Str("provider", "say").Logger(),
		name:         "say",
		binary:       "say",
		DefaultVoice: voice,
		DefaultWPM:   wpm,
	}
	s.args = func(u Utterance) []string {
		var args []string
		if v := s.voice(u); v != "" {
			args = append(args, "-v", v)
		}
		args = append(args, "-r", strconv.Itoa(s.wpm(u)))
		return append(args, u.Text)
	}
	return s
}

// NewEspeak creates a synthesizer backed by espeak-ng (or classic espeak
// when binary is "espeak").
func NewEspeak(logger zerolog.Logger, binary, voice string, wpm int) *CommandSynthesizer {
	if binary == "" {
		binary = "espeak-ng"
	}
	s := &CommandSynthesizer{
		logger:       logger.With().Str("provider", binary).Logger(),
		name:         binary,
		binary:       binary,
		DefaultVoice: voice,
		DefaultWPM:   wpm,
	}
	s.args = func(u Utterance) []string {
		var args []string
		if v := s.voice(u); v != "" {
			args = append(args, "-v", v)
		}
		args = append(args, "-s", strconv.Itoa(s.wpm(u)))
		return append(args, u.Text)
	}
	return s
}

// NewCommand creates a synthesizer running an arbitrary binary with the
// text as its last argument.
func NewCommand(logger zerolog.Logger, binary string, args ...string) *CommandSynthesizer {
	s := &CommandSynthesizer{
		logger:     logger.With().Str("provider", binary).Logger(),
		name:       binary,
		binary:     binary,
		DefaultWPM: 150,
	}
	s.args = func(u Utterance) []string {
		return append(append([]string{}, args...), u.Text)
	}
	return s
}

// Name returns the provider identifier
func (s *CommandSynthesizer) Name() string {
	return s.name
}

// Available checks that the binary is on PATH. The result is cached.
func (s *CommandSynthesizer) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lookedUp {
		s.lookedUp = true
		if s.binary == "say" && runtime.GOOS != "darwin" {
			return false
		}
		if p, err := exec.LookPath(s.binary); err == nil {
			s.path = p
		}
	}
	return s.path != ""
}

func (s *CommandSynthesizer) voice(u Utterance) string {
	if u.Voice != "" {
		return u.Voice
	}
	return s.DefaultVoice
}

func (s *CommandSynthesizer) wpm(u Utterance) int {
	if u.WPM > 0 {
		return u.WPM
	}
	if s.DefaultWPM > 0 {
		return s.DefaultWPM
	}
	return 150
}

// Speak starts the command and returns. Events are delivered from a
// background goroutine.
func (s *CommandSynthesizer) Speak(ctx context.Context, u Utterance, sink Sink) error {
	if u.Text == "" {
		return ErrEmptyText
	}
	if !s.Available() {
		return fmt.Errorf("%s: %w", s.name, ErrProviderUnavailable)
	}

	cmd := exec.CommandContext(ctx, s.path, s.args(u)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.name, err)
	}

	s.logger.Debug().
		Str("utterance", u.ID).
		Int("textLen", len(u.Text)).
		Int("wpm", s.wpm(u)).
		Msg("Speaking")

	emit := func(e Event) {
		e.UtteranceID = u.ID
		if sink != nil {
			sink(e)
		}
	}
	emit(Event{Kind: EventStarted})

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	go func() {
		words := Words(u.Text)
		interval := time.Minute / time.Duration(s.wpm(u))
		timer := time.NewTimer(0)
		defer timer.Stop()

		next := 0
		for {
			select {
			case err := <-done:
				if err != nil {
					if ctx.Err() != nil {
						err = ctx.Err()
					}
					s.logger.Warn().Err(err).Str("utterance", u.ID).Msg("Speech command failed")
					emit(Event{Kind: EventFailed, Err: err})
					return
				}
				emit(Event{Kind: EventEnded})
				return
			case <-timer.C:
				if next < len(words) {
					w := words[next]
					emit(Event{Kind: EventWordBoundary, CharIndex: w.Index, CharLength: w.Length})
					next++
					timer.Reset(interval)
				}
			}
		}
	}()
	return nil
}

var _ Synthesizer = (*CommandSynthesizer)(nil)
