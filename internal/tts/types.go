// Package tts provides speech synthesis for the tutor avatar. Synthesizers
// speak through the host's audio output and report playback progress as
// events tagged with the utterance they belong to.
package tts

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// Common errors
var (
	ErrProviderUnavailable = errors.New("TTS provider unavailable")
	ErrUnknownProvider     = errors.New("unknown TTS provider")
	ErrEmptyText           = errors.New("nothing to speak")
)

// Utterance is one request to speak.
type Utterance struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
	WPM   int    `json:"wpm,omitempty"`
}

// EventKind identifies a playback event.
type EventKind int

const (
	EventStarted EventKind = iota
	EventWordBoundary
	EventEnded
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventWordBoundary:
		return "word_boundary"
	case EventEnded:
		return "ended"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event reports playback progress. CharIndex and CharLength locate the
// word being spoken for EventWordBoundary; Err is set for EventFailed.
type Event struct {
	Kind        EventKind
	UtteranceID string
	CharIndex   int
	CharLength  int
	Err         error
}

// Sink receives events. It may be called from any goroutine.
type Sink func(Event)

// Synthesizer is the interface every speech backend implements.
type Synthesizer interface {
	// Name returns the provider identifier (e.g. "say", "espeak-ng").
	Name() string

	// Available reports whether the backend can speak on this host.
	Available() bool

	// Speak starts speaking and returns immediately. Progress is delivered
	// to sink until an EventEnded or EventFailed. Cancelling ctx interrupts
	// playback.
	Speak(ctx context.Context, u Utterance, sink Sink) error
}

// Word locates one word in an utterance's text.
type Word struct {
	Index  int
	Length int
}

// Words splits text on whitespace and returns byte offsets of each word.
func Words(text string) []Word {
	var words []Word
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				words = append(words, Word{Index: start, Length: i - start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, Word{Index: start, Length: len(text) - start})
	}
	return words
}

// Slice returns the word at w in text, or "" when w is out of range.
func (w Word) Slice(text string) string {
	if w.Index < 0 || w.Length <= 0 || w.Index+w.Length > len(text) {
		return ""
	}
	return strings.TrimSpace(text[w.Index : w.Index+w.Length])
}
