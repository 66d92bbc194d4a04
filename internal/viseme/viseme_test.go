package viseme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t", "€€€"} {
		assert.Equal(t, []Entry{{TimeMs: 0, Aperture: 0}}, TextToTimeline(text, 1000), "%q", text)
	}
}

func TestTwoLetters(t *testing.T) {
	got := TextToTimeline("ba", 1000)
	want := []Entry{
		{TimeMs: 0, Aperture: 0.05},
		{TimeMs: 500, Aperture: 0.85},
		{TimeMs: 1000, Aperture: 0},
	}
	assert.Equal(t, want, got)
}

func TestDigraphTakesTwoSlots(t *testing.T) {
	got := TextToTimeline("tha", 900)
	want := []Entry{
		{TimeMs: 0, Aperture: 0.2},
		{TimeMs: 600, Aperture: 0.85},
		{TimeMs: 900, Aperture: 0},
	}
	assert.Equal(t, want, got)
}

func TestDigraphPreferredOverSingles(t *testing.T) {
	tokens := Tokenize("shoot")
	texts := make([]string, len(tokens))
	for i, tok := range tokens {
		texts[i] = tok.Text
	}
	assert.Equal(t, []string{"sh", "oo", "t"}, texts)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello, world!", Normalize("  Hello,\n\n  WORLD! "))
	assert.Equal(t, "caf 42", Normalize("Café 42"))
	assert.Equal(t, "don't stop", Normalize("Don't\tstop"))
}

func TestUnknownCharactersUseDefault(t *testing.T) {
	got := TextToTimeline("7", 100)
	require.Len(t, got, 2)
	assert.Equal(t, DefaultAperture, got[0].Aperture)
	assert.Equal(t, DefaultAperture, Aperture("-"))
	assert.Equal(t, DefaultAperture, Aperture("zz"))
}

func TestTimelineIsOrderedAndClosed(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog. Really? Yes!"
	got := TextToTimeline(text, 4200)
	require.Greater(t, len(got), 2)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i].TimeMs, got[i-1].TimeMs)
	}
	for _, e := range got {
		assert.GreaterOrEqual(t, e.Aperture, 0.0)
		assert.LessOrEqual(t, e.Aperture, 1.0)
	}
	last := got[len(got)-1]
	assert.Equal(t, Entry{TimeMs: 4200, Aperture: 0}, last)

	// same input, same output
	assert.Equal(t, got, TextToTimeline(text, 4200))
}

func TestCursorInterpolates(t *testing.T) {
	c := NewCursor(TextToTimeline("ba", 1000))

	assert.InDelta(t, 0.05, c.Sample(0), 1e-9)
	assert.InDelta(t, 0.45, c.Sample(250), 1e-9)
	assert.InDelta(t, 0.85, c.Sample(500), 1e-9)
	assert.InDelta(t, 0.425, c.Sample(750), 1e-9)
	assert.InDelta(t, 0, c.Sample(1000), 1e-9)
	assert.True(t, c.Done(1000))
	assert.InDelta(t, 0, c.Sample(5000), 1e-9)
}

func TestCursorNeverMovesBack(t *testing.T) {
	entries := TextToTimeline("monotonic cursors never rewind", 3000)
	c := NewCursor(entries)

	prev := c.Index()
	for ms := 0.0; ms <= 3100; ms += 7.3 {
		c.Sample(ms)
		require.GreaterOrEqual(t, c.Index(), prev)
		prev = c.Index()
	}
	assert.Equal(t, len(entries)-1, c.Index())

	// an earlier time does not rewind
	c.Sample(10)
	assert.Equal(t, len(entries)-1, c.Index())
}

func TestWordApertures(t *testing.T) {
	cases := []struct {
		word string
		want []float64
	}{
		{"Thy", []float64{0.2, 0.2, 0.5}},              // leading digraph
		{"ship", []float64{0.15, 0.15, 0.6, 0.05}},     // digraph then singles
		{"beach", []float64{0.05, 0.7, 0.7, 0.2, 0.2}}, // digraph mid-word and trailing
		{"map", []float64{0.05, 0.85, 0.05}},           // singles only
	}
	for _, tc := range cases {
		got := WordApertures(tc.word)
		assert.Equal(t, tc.want, got, tc.word)
		assert.Len(t, got, len(tc.word), "one slot per character")
	}
	assert.Empty(t, WordApertures(""))
}
