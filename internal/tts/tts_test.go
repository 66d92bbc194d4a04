package tts

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWords(t *testing.T) {
	text := "  Hello   big\nworld "
	words := Words(text)
	require.Len(t, words, 3)
	assert.Equal(t, Word{Index: 2, Length: 5}, words[0])
	assert.Equal(t, "big", words[1].Slice(text))
	assert.Equal(t, "world", words[2].Slice(text))

	assert.Empty(t, Words("   "))
	assert.Equal(t, "", Word{Index: 10, Length: 4}.Slice("short"))
}

func TestNullIsUnavailable(t *testing.T) {
	var s Synthesizer = Null{}
	assert.False(t, s.Available())
	assert.ErrorIs(t, s.Speak(context.Background(), Utterance{Text: "hi"}, nil), ErrProviderUnavailable)
}

func TestMockDrivesSink(t *testing.T) {
	m := NewMock()
	var got []Event
	require.NoError(t, m.Speak(context.Background(), Utterance{ID: "u1", Text: "hi there"}, func(e Event) {
		got = append(got, e)
	}))

	m.Start("u1")
	m.Boundary("u1", 3, 5)
	m.End("u1")
	m.End("other") // no sink registered

	require.Len(t, got, 3)
	assert.Equal(t, EventStarted, got[0].Kind)
	assert.Equal(t, 3, got[1].CharIndex)
	assert.Equal(t, EventEnded, got[2].Kind)
	assert.Equal(t, "u1", m.LastID())
	assert.Len(t, m.Calls(), 1)
}

func TestDetect(t *testing.T) {
	logger := zerolog.Nop()

	s, err := Detect(logger, Options{Provider: "none"})
	require.NoError(t, err)
	assert.False(t, s.Available())

	s, err = Detect(logger, Options{Provider: "espeak-ng", WPM: 160})
	require.NoError(t, err)
	assert.Equal(t, "espeak-ng", s.Name())

	_, err = Detect(logger, Options{Provider: "festival"})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	s, err = Detect(logger, Options{Provider: "auto"})
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func collect(t *testing.T, s Synthesizer, u Utterance) []Event {
	t.Helper()
	events := make(chan Event, 16)
	require.NoError(t, s.Speak(context.Background(), u, func(e Event) { events <- e }))

	var got []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-events:
			got = append(got, e)
			if e.Kind == EventEnded || e.Kind == EventFailed {
				return got
			}
		case <-timeout:
			t.Fatal("no terminal event")
		}
	}
}

func TestCommandSynthesizerLifecycle(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not on PATH")
	}
	s := NewCommand(zerolog.Nop(), "true")
	require.True(t, s.Available())

	got := collect(t, s, Utterance{ID: "ok", Text: "one two"})
	assert.Equal(t, EventStarted, got[0].Kind)
	assert.Equal(t, EventEnded, got[len(got)-1].Kind)
	for _, e := range got {
		assert.Equal(t, "ok", e.UtteranceID)
	}
}

func TestCommandSynthesizerFailure(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not on PATH")
	}
	got := collect(t, NewCommand(zerolog.Nop(), "false"), Utterance{ID: "bad", Text: "oops"})
	last := got[len(got)-1]
	assert.Equal(t, EventFailed, last.Kind)
	assert.Error(t, last.Err)
}

func TestCommandSynthesizerMissingBinary(t *testing.T) {
	s := NewCommand(zerolog.Nop(), "definitely-not-a-speech-binary")
	assert.False(t, s.Available())
	err := s.Speak(context.Background(), Utterance{Text: "hello"}, nil)
	assert.True(t, errors.Is(err, ErrProviderUnavailable))

	assert.ErrorIs(t, s.Speak(context.Background(), Utterance{}, nil), ErrEmptyText)
}
