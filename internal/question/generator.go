package question

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/okdokhae/okdok/internal/discourse"
	"github.com/okdokhae/okdok/internal/lexicon"
)

const (
	// snippetRunes bounds the snippet slot.
	snippetRunes = 40

	// initialSpanProbability is how often the snippet is taken from the
	// start of the sentence rather than its end.
	initialSpanProbability = 0.7
)

// History is the caller-owned list of questions already asked.
type History []string

// Contains reports whether q was already asked.
func (h History) Contains(q string) bool {
	return slices.Contains(h, q)
}

// Add records q.
func (h *History) Add(q string) {
	*h = append(*h, q)
}

// Reset empties the history, keeping its capacity.
func (h *History) Reset() {
	*h = (*h)[:0]
}

// Generator picks and fills question templates. All randomness comes from
// the seed given to NewGenerator, so a fixed seed reproduces the same
// question sequence.
type Generator struct {
	catalog *Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a Generator over catalog seeded with seed.
func NewGenerator(catalog *Catalog, seed uint64) *Generator {
	return &Generator{
		catalog: catalog,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Catalog returns the generator's template catalog.
func (g *Generator) Catalog() *Catalog { return g.catalog }

// Generate returns a question for node that is not already in history,
// and records it there. When every template of the node's family has been
// asked, the history is rolled over. It never fails: a node without text
// yields the catalog's fallback question.
func (g *Generator) Generate(node discourse.Node, history *History) string {
	if history == nil {
		history = &History{}
	}

	text := strings.TrimSpace(node.Text)
	if text == "" {
		q := g.catalog.Fallback
		history.Add(q)
		return q
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	entity := ExtractEntity(text)
	if entity == "" {
		entity = g.catalog.FallbackEntity
	}
	snippet := g.snippet(text)

	family := g.catalog.Family(node.PrimaryRole)
	filled := make([]string, len(family))
	var open []int
	for i, t := range family {
		filled[i] = Fill(t.Text, entity, snippet)
		if !history.Contains(filled[i]) {
			open = append(open, i)
		}
	}

	if len(open) == 0 {
		history.Reset()
		open = make([]int, len(family))
		for i := range family {
			open[i] = i
		}
	}

	q := filled[g.pick(family, open)]
	history.Add(q)
	return q
}

// pick draws one index from candidates weighted by template weight.
func (g *Generator) pick(family []Template, candidates []int) int {
	total := 0.0
	for _, i := range candidates {
		total += family[i].Weight
	}
	r := g.rng.Float64() * total
	for _, i := range candidates {
		r -= family[i].Weight
		if r < 0 {
			return i
		}
	}
	return candidates[len(candidates)-1]
}

// snippet takes the sentence-initial span most of the time and the final
// span otherwise.
func (g *Generator) snippet(text string) string {
	text = strings.TrimRight(text, ".?!。？！ ")
	if utf8.RuneCountInString(text) <= snippetRunes {
		return text
	}
	if g.rng.Float64() < initialSpanProbability {
		return initialSpan(text, snippetRunes)
	}
	return finalSpan(text, snippetRunes)
}

func initialSpan(text string, n int) string {
	r := []rune(text)
	cut := n
	for i := n; i > n/2; i-- {
		if unicode.IsSpace(r[i]) {
			cut = i
			break
		}
	}
	return strings.TrimSpace(string(r[:cut])) + "..."
}

func finalSpan(text string, n int) string {
	r := []rune(text)
	start := len(r) - n
	for i := start; i < len(r)-n/2; i++ {
		if unicode.IsSpace(r[i]) {
			start = i + 1
			break
		}
	}
	return "..." + strings.TrimSpace(string(r[start:]))
}

// Fill substitutes the {entity} and {snippet} placeholders.
func Fill(tmpl, entity, snippet string) string {
	return strings.NewReplacer("{entity}", entity, "{snippet}", snippet).Replace(tmpl)
}

// ExtractEntity returns the most representative noun phrase of text: the
// longest run of two or three adjacent content words that do not look like
// verbs, or failing that the first content word. Returns "" when text has
// no content words.
func ExtractEntity(text string) string {
	words := lexicon.Words(text)

	var best []string
	var run []string
	flush := func() {
		if len(run) > len(best) && len(run) >= 2 {
			best = run
		}
		run = nil
	}
	for _, w := range words {
		w = lexicon.StripParticle(w)
		if utf8.RuneCountInString(w) < 2 || lexicon.IsStopword(w) || lexicon.HasDigit(w) || verbLike(w) {
			flush()
			continue
		}
		run = append(run, w)
		if len(run) == 3 {
			flush()
		}
	}
	flush()

	if len(best) > 0 {
		return strings.Join(best, " ")
	}
	if toks := lexicon.Tokens(text); len(toks) > 0 {
		return toks[0]
	}
	return ""
}

var koreanVerbEndings = []string{"다", "고", "며", "서", "면", "니", "요"}

// verbLike is a crude part-of-speech guess: English past tense forms and
// Korean conjugated endings.
func verbLike(w string) bool {
	if utf8.RuneCountInString(w) > 4 && strings.HasSuffix(w, "ed") {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(w)
	if unicode.Is(unicode.Hangul, last) {
		for _, e := range koreanVerbEndings {
			if strings.HasSuffix(w, e) {
				return true
			}
		}
	}
	return false
}
