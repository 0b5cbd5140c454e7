// Package lexicon holds the tokenizer, normalizer and stoplist shared by
// the analyzer, the question generator and the lexical model backends.
package lexicon

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns text in NFC form, lowercased, with runs of whitespace
// collapsed to a single space.
func Normalize(text string) string {
	s := norm.NFC.String(text)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Words splits text into lowercase words on any rune that is not a letter
// or digit. Korean particles are left attached; see StripParticle.
func Words(text string) []string {
	return strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Tokens returns the content words of text: particles stripped, stopwords
// and single-rune words removed, duplicates kept in order of appearance.
func Tokens(text string) []string {
	words := Words(text)
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = StripParticle(w)
		if utf8.RuneCountInString(w) < 2 || IsStopword(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// UniqueTokens is Tokens without duplicates.
func UniqueTokens(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range Tokens(text) {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// particles are Korean postpositions, longest first so that "에서" wins
// over "에".
var particles = []string{
	"으로부터", "에게서", "로부터", "이라는", "에서는", "으로는",
	"에서", "에게", "으로", "이란", "까지", "부터", "처럼", "보다", "이나", "라는", "이라",
	"은", "는", "란", "이", "가", "을", "를", "의", "에", "로", "와", "과", "도", "만", "나",
}

// StripParticle removes one trailing Korean particle from a Hangul word,
// leaving at least two runes of stem so that nouns such as "국가" survive.
// Non-Hangul words are returned as is.
func StripParticle(word string) string {
	last, _ := utf8.DecodeLastRuneInString(word)
	if !unicode.Is(unicode.Hangul, last) {
		return word
	}
	for _, p := range particles {
		if strings.HasSuffix(word, p) && utf8.RuneCountInString(word)-utf8.RuneCountInString(p) >= 2 {
			return strings.TrimSuffix(word, p)
		}
	}
	return word
}

// IsStopword reports whether w is a function word or generic pronoun.
func IsStopword(w string) bool {
	return stopwords[w]
}

// HasDigit reports whether text contains any decimal digit.
func HasDigit(text string) bool {
	return strings.IndexFunc(text, unicode.IsDigit) >= 0
}

// CountDigitGroups counts maximal runs of digits in text.
func CountDigitGroups(text string) int {
	n := 0
	in := false
	for _, r := range text {
		d := unicode.IsDigit(r)
		if d && !in {
			n++
		}
		in = d
	}
	return n
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "..."
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "must": true,
	"not": true, "no": true, "and": true, "or": true, "but": true,
	"if": true, "then": true, "than": true, "so": true, "as": true,
	"at": true, "by": true, "for": true, "from": true, "in": true,
	"into": true, "of": true, "on": true, "to": true, "with": true,
	"about": true, "up": true, "out": true, "it": true, "its": true,
	"this": true, "that": true, "these": true, "those": true, "there": true,
	"what": true, "which": true, "who": true, "whom": true, "how": true,
	"when": true, "where": true, "why": true, "you": true, "me": true,
	"i": true, "my": true, "your": true, "we": true, "our": true,
	"they": true, "their": true, "he": true, "she": true, "his": true,
	"her": true, "him": true, "us": true, "them": true, "some": true,
	"any": true, "all": true, "each": true, "every": true, "such": true,
	"also": true, "very": true, "more": true, "most": true, "other": true,
	"one": true, "thing": true, "things": true, "something": true, "someone": true,
	"consequently": true, "therefore": true, "however": true, "thus": true, "because": true,

	"그": true, "이": true, "저": true, "것": true, "수": true,
	"등": true, "및": true, "또": true, "더": true, "그것": true,
	"이것": true, "저것": true, "우리": true, "그들": true, "나": true,
	"너": true, "그리고": true, "하지만": true, "그러나": true, "따라서": true,
	"그러므로": true, "그런데": true, "또한": true, "때문": true, "있다": true,
	"없다": true, "한다": true, "했다": true, "된다": true, "이다": true,
}
