package evaluation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/okdokhae/okdok/internal/cues"
)

// minUnitRunes drops fragments too short to carry a proposition.
const minUnitRunes = 5

// Unit is one logic unit of a reference text.
type Unit struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// SplitUnits decomposes reference into logic units. It splits on
// punctuation and before split connectives, keeping the connective at the
// head of the following unit so weight cues still see it. A fragment that
// is only a discourse marker is joined to the next fragment. When nothing
// survives, the whole reference is one unit of weight 1.0; an empty
// reference has no units.
func SplitUnits(table *cues.Table, reference string) []Unit {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil
	}

	var frags []string
	for _, piece := range splitPunct(reference) {
		frags = append(frags, splitAt(piece, table.SplitPoints(piece))...)
	}

	var units []Unit
	carry := ""
	for _, f := range frags {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if carry != "" {
			f = carry + " " + f
			carry = ""
		}
		if table.IsMarker(f) {
			carry = f
			continue
		}
		if utf8.RuneCountInString(f) < minUnitRunes {
			continue
		}
		units = append(units, Unit{Text: f, Weight: table.UnitWeight(f)})
	}

	if len(units) == 0 {
		return []Unit{{Text: reference, Weight: 1.0}}
	}
	return units
}

// splitPunct cuts s at clause punctuation, leaving decimal points and
// digit group separators alone.
func splitPunct(s string) []string {
	r := []rune(s)
	var out []string
	start := 0
	for i, c := range r {
		switch c {
		case '.', ',':
			if i > 0 && i+1 < len(r) && unicode.IsDigit(r[i-1]) && unicode.IsDigit(r[i+1]) {
				continue
			}
		case '?', '!', ';', '，', '。', '？', '！', '；':
		default:
			continue
		}
		out = append(out, string(r[start:i]))
		start = i + 1
	}
	return append(out, string(r[start:]))
}

func splitAt(s string, offsets []int) []string {
	if len(offsets) == 0 {
		return []string{s}
	}
	out := make([]string, 0, len(offsets)+1)
	prev := 0
	for _, off := range offsets {
		if off <= prev {
			continue
		}
		out = append(out, s[prev:off])
		prev = off
	}
	return append(out, s[prev:])
}
