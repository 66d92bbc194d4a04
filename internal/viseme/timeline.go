package viseme

import (
	"strings"
	"unicode"
)

// Entry is one point of a timeline.
type Entry struct {
	TimeMs   float64 `json:"time_ms"`
	Aperture float64 `json:"aperture"`
}

// Token is one scanned unit of text.
type Token struct {
	Text     string
	Aperture float64
	Slots    int
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune(" .,!?;:'-", r)
}

// Normalize lowercases text, collapses whitespace runs into one space and
// drops anything outside the supported character set.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsSpace(r) {
			space = b.Len() > 0
			continue
		}
		if !allowed(r) {
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Tokenize normalises text and scans it left to right, taking a digraph
// whenever the next two characters form one.
func Tokenize(text string) []Token {
	s := Normalize(text)
	tokens := make([]Token, 0, len(s))
	for i := 0; i < len(s); {
		if i+1 < len(s) {
			pair := s[i : i+2]
			if v, ok := digraphs[pair]; ok {
				tokens = append(tokens, Token{Text: pair, Aperture: v, Slots: 2})
				i += 2
				continue
			}
		}
		unit := s[i : i+1]
		tokens = append(tokens, Token{Text: unit, Aperture: Aperture(unit), Slots: 1})
		i++
	}
	return tokens
}

// TextToTimeline spreads one entry per token evenly across totalMs in
// proportion to character slots and appends a closing zero entry at
// totalMs. Empty text gives a single zero entry at time zero.
func TextToTimeline(text string, totalMs float64) []Entry {
	tokens := Tokenize(text)
	if len(tokens) == 0 || totalMs <= 0 {
		return []Entry{{TimeMs: 0, Aperture: 0}}
	}

	slots := 0
	for _, t := range tokens {
		slots += t.Slots
	}
	slotMs := totalMs / float64(slots)

	entries := make([]Entry, 0, len(tokens)+1)
	at := 0
	for _, t := range tokens {
		entries = append(entries, Entry{TimeMs: float64(at) * slotMs, Aperture: t.Aperture})
		at += t.Slots
	}
	return append(entries, Entry{TimeMs: totalMs, Aperture: 0})
}

// WordApertures expands a single word into one aperture per character
// slot, for playback at a fixed slot rate. Digraphs fill both of their
// slots.
func WordApertures(word string) []float64 {
	var out []float64
	for _, t := range Tokenize(word) {
		for i := 0; i < t.Slots; i++ {
			out = append(out, t.Aperture)
		}
	}
	return out
}
