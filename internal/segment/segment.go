// Package segment splits passage text into sentences.
package segment

import (
	"strings"
	"unicode"
)

// Locale describes how sentences end in a language.
type Locale struct {
	Name string

	// Terminators end a sentence when followed by whitespace or end of input.
	Terminators string

	// Hard terminators end a sentence even when text follows immediately,
	// as full-width CJK punctuation usually does.
	HardTerminators string

	// Closers are quotes and brackets absorbed into the sentence they close.
	Closers string

	// Abbreviations are lowercase words ending in a period that do not end
	// a sentence.
	Abbreviations []string

	// Endings are sentence-final verb endings that close a sentence when
	// followed by whitespace, even without punctuation.
	Endings []string
}

var (
	// English splits on Western punctuation and skips common abbreviations.
	English = Locale{
		Name:        "en",
		Terminators: ".?!…",
		Closers:     "\"')]}’”",
		Abbreviations: []string{
			"e.g.", "i.e.", "etc.", "vs.", "mr.", "mrs.", "ms.", "dr.", "prof.",
			"st.", "jr.", "sr.", "no.", "fig.", "cf.", "approx.", "u.s.", "u.k.",
		},
	}

	// Korean adds full-width punctuation and declarative/polite endings.
	Korean = Locale{
		Name:            "ko",
		Terminators:     ".?!…",
		HardTerminators: "。？！",
		Closers:         "\"')]}’”」』〉》",
		Endings: []string{
			"습니다", "입니다", "니다", "었다", "았다", "였다", "했다", "한다", "된다",
			"이다", "있다", "없다", "같다", "는다", "셨다", "세요", "어요", "아요",
			"해요", "예요", "에요", "지요", "네요", "군요", "까요",
		},
	}

	// Default merges the English and Korean rules.
	Default = Merge("default", English, Korean)
)

// Merge combines several locales into one.
func Merge(name string, locales ...Locale) Locale {
	out := Locale{Name: name}
	for _, l := range locales {
		out.Terminators = unionRunes(out.Terminators, l.Terminators)
		out.HardTerminators = unionRunes(out.HardTerminators, l.HardTerminators)
		out.Closers = unionRunes(out.Closers, l.Closers)
		out.Abbreviations = append(out.Abbreviations, l.Abbreviations...)
		out.Endings = append(out.Endings, l.Endings...)
	}
	return out
}

func unionRunes(a, b string) string {
	for _, r := range b {
		if !strings.ContainsRune(a, r) {
			a += string(r)
		}
	}
	return a
}

// Segmenter splits text into sentences according to a Locale.
type Segmenter struct {
	locale  Locale
	abbrevs map[string]bool
	endings [][]rune
}

// New creates a Segmenter for the given locale.
func New(locale Locale) *Segmenter {
	s := &Segmenter{locale: locale, abbrevs: make(map[string]bool)}
	for _, a := range locale.Abbreviations {
		s.abbrevs[strings.ToLower(a)] = true
	}
	for _, e := range locale.Endings {
		s.endings = append(s.endings, []rune(e))
	}
	return s
}

var defaultSegmenter = New(Default)

// Split segments text with the default locale.
func Split(text string) []string {
	return defaultSegmenter.Split(text)
}

// Split returns the sentences of text in order. Whitespace-only fragments
// are dropped; empty input yields an empty slice.
func (s *Segmenter) Split(text string) []string {
	rs := []rune(text)
	out := []string{}
	start := 0

	emit := func(end int) {
		if frag := strings.TrimSpace(string(rs[start:end])); frag != "" {
			out = append(out, frag)
		}
		start = end
	}

	for i := 0; i < len(rs); i++ {
		r := rs[i]

		if r == '\n' {
			emit(i)
			continue
		}

		if strings.ContainsRune(s.locale.HardTerminators, r) {
			emit(s.absorb(rs, i+1))
			i = start - 1
			continue
		}

		if strings.ContainsRune(s.locale.Terminators, r) {
			if r == '.' && isDecimalPoint(rs, i) {
				continue
			}
			end := s.absorb(rs, i+1)
			if end < len(rs) && !unicode.IsSpace(rs[end]) {
				continue
			}
			if r == '.' && s.isAbbreviation(rs, start, i) {
				continue
			}
			emit(end)
			i = start - 1
			continue
		}

		if unicode.Is(unicode.Hangul, r) && i+1 < len(rs) && unicode.IsSpace(rs[i+1]) && s.endsSentence(rs, start, i) {
			emit(i + 1)
		}
	}
	emit(len(rs))

	return out
}

// absorb advances past repeated terminators and closing quotes/brackets.
func (s *Segmenter) absorb(rs []rune, j int) int {
	for j < len(rs) {
		r := rs[j]
		if strings.ContainsRune(s.locale.Terminators, r) ||
			strings.ContainsRune(s.locale.HardTerminators, r) ||
			strings.ContainsRune(s.locale.Closers, r) {
			j++
			continue
		}
		break
	}
	return j
}

func isDecimalPoint(rs []rune, i int) bool {
	return i > 0 && i+1 < len(rs) && unicode.IsDigit(rs[i-1]) && unicode.IsDigit(rs[i+1])
}

// isAbbreviation reports whether the word ending at the period rs[i] is a
// known abbreviation.
func (s *Segmenter) isAbbreviation(rs []rune, start, i int) bool {
	if len(s.abbrevs) == 0 {
		return false
	}
	j := i
	for j > start && !unicode.IsSpace(rs[j-1]) {
		j--
	}
	word := strings.ToLower(strings.TrimLeft(string(rs[j:i+1]), "\"'(["))
	return s.abbrevs[word]
}

// endsSentence reports whether the Hangul word ending at rs[i] ends in a
// sentence-final verb ending.
func (s *Segmenter) endsSentence(rs []rune, start, i int) bool {
	for _, e := range s.endings {
		n := len(e)
		if i+1-n < start {
			continue
		}
		if string(rs[i+1-n:i+1]) == string(e) {
			return true
		}
	}
	return false
}
