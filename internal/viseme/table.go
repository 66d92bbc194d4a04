// Package viseme turns text into mouth-aperture timelines. Everything here
// is a pure function of its input.
package viseme

// DefaultAperture is used for characters that survive normalisation but
// have no table entry (digits, apostrophes, hyphens).
const DefaultAperture = 0.3

// Digraphs are matched before single characters. Each one occupies two
// character slots of time.
var digraphs = map[string]float64{
	"th": 0.2,
	"sh": 0.15,
	"ch": 0.2,
	"ph": 0.15,
	"wh": 0.35,
	"ng": 0.3,
	"ck": 0.35,
	"qu": 0.4,
	"oo": 0.6,
	"ee": 0.6,
	"ai": 0.75,
	"ea": 0.7,
	"ou": 0.7,
	"oa": 0.7,
	"ie": 0.65,
}

// The aperture values are hand-tuned: open vowels high, bilabial closures
// near zero, fricatives and sibilants narrow, the rest in between.
var singles = map[rune]float64{
	'a': 0.85, 'e': 0.7, 'i': 0.6, 'o': 0.8, 'u': 0.65,
	'y': 0.5,

	'b': 0.05, 'm': 0.05, 'p': 0.05,

	'f': 0.15, 'v': 0.15,
	's': 0.2, 'z': 0.2, 'x': 0.2,

	'c': 0.35, 'd': 0.35, 'n': 0.35, 't': 0.35,
	'g': 0.4, 'k': 0.4, 'l': 0.4, 'q': 0.4, 'r': 0.4,
	'h': 0.5, 'j': 0.3, 'w': 0.35,

	' ': 0.1,
	'.': 0, '!': 0, '?': 0,
	',': 0.05, ';': 0.05, ':': 0.05,
}

// Aperture looks up a single character or digraph.
func Aperture(unit string) float64 {
	if v, ok := digraphs[unit]; ok {
		return v
	}
	r := []rune(unit)
	if len(r) == 1 {
		if v, ok := singles[r[0]]; ok {
			return v
		}
	}
	return DefaultAperture
}
