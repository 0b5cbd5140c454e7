package model

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/okdokhae/okdok/internal/lexicon"
)

// HashEmbedder is an in-process embedder that hashes word unigrams,
// word bigrams and character trigrams into a fixed-size vector. It needs
// no model files and is deterministic, which makes it the default
// fallback when a neural backend is unreachable.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a HashEmbedder with dim dimensions.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 512
	}
	return &HashEmbedder{dim: dim}
}

func (h *HashEmbedder) ModelID() string { return "lexical-hash" }

func (h *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *HashEmbedder) vector(text string) []float32 {
	v := make([]float64, h.dim)
	toks := lexicon.Tokens(text)

	for i, tok := range toks {
		h.add(v, "w:"+tok, 1.0)
		if i > 0 {
			h.add(v, "b:"+toks[i-1]+" "+tok, 0.5)
		}
		r := []rune(tok)
		for j := 0; j+3 <= len(r); j++ {
			h.add(v, "c:"+string(r[j:j+3]), 0.3)
		}
	}

	var norm float64
	for _, x := range v {
		norm += x * x
	}
	out := make([]float32, h.dim)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out
}

func (h *HashEmbedder) add(v []float64, feature string, weight float64) {
	f := fnv.New64a()
	f.Write([]byte(feature))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[idx] += weight
}

// LexicalNLI is a rule-based entailment judge: token containment for
// entailment, negation mismatch or antonym pairs over shared content for
// contradiction, neutral otherwise.
type LexicalNLI struct{}

func (LexicalNLI) ModelID() string { return "lexical-nli" }

func (n LexicalNLI) Classify(_ context.Context, pairs []Pair) ([]Judgement, error) {
	out := make([]Judgement, len(pairs))
	for i, p := range pairs {
		out[i] = n.judge(p.Premise, p.Hypothesis)
	}
	return out, nil
}

const (
	entailmentContainment = 0.6
	contradictionOverlap  = 0.3
)

func (LexicalNLI) judge(premise, hypothesis string) Judgement {
	pTok := lexicon.UniqueTokens(premise)
	hTok := lexicon.UniqueTokens(hypothesis)
	if len(hTok) == 0 || len(pTok) == 0 {
		return Judgement{Label: LabelNeutral, Confidence: 0.5}
	}

	inPremise := make(map[string]bool, len(pTok))
	for _, t := range pTok {
		inPremise[t] = true
	}
	shared := 0
	for _, t := range hTok {
		if inPremise[t] {
			shared++
		}
	}
	overlap := float64(shared) / float64(len(hTok))

	if overlap >= contradictionOverlap {
		if negated(premise) != negated(hypothesis) {
			return Judgement{Label: LabelContradiction, Confidence: math.Min(0.9, 0.5+0.4*overlap)}
		}
		if opposed(premise, hypothesis) {
			return Judgement{Label: LabelContradiction, Confidence: 0.6}
		}
	}

	if overlap >= entailmentContainment {
		return Judgement{Label: LabelEntailment, Confidence: math.Round(overlap*0.8*1000) / 1000}
	}
	return Judgement{Label: LabelNeutral, Confidence: 0.5}
}

// negations includes the stems Words leaves behind for "n't" contractions.
var negations = map[string]bool{
	"not": true, "no": true, "never": true, "none": true, "cannot": true,
	"without": true, "neither": true, "nor": true,
	"didn": true, "doesn": true, "don": true, "isn": true, "wasn": true,
	"weren": true, "aren": true, "hasn": true, "haven": true, "hadn": true,
	"wouldn": true, "couldn": true, "shouldn": true,
}

var koreanNegations = []string{"않", "없", "못하", "아니", "아닌"}

func negated(text string) bool {
	for _, w := range lexicon.Words(text) {
		if negations[w] {
			return true
		}
	}
	for _, n := range koreanNegations {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// antonyms are word stems whose presence on opposite sides of a pair
// signals disagreement.
var antonyms = [][2]string{
	{"increas", "decreas"},
	{"rise", "fall"},
	{"rose", "fell"},
	{"grew", "shrank"},
	{"accelerat", "slow"},
	{"more", "less"},
	{"gain", "los"},
	{"strengthen", "weaken"},
	{"expand", "contract"},
	{"success", "fail"},
	{"증가", "감소"},
	{"상승", "하락"},
	{"늘", "줄"},
	{"강화", "약화"},
	{"성공", "실패"},
}

func opposed(premise, hypothesis string) bool {
	p := lexicon.Normalize(premise)
	h := lexicon.Normalize(hypothesis)
	for _, pair := range antonyms {
		a, b := pair[0], pair[1]
		if (strings.Contains(p, a) && !strings.Contains(p, b) && strings.Contains(h, b) && !strings.Contains(h, a)) ||
			(strings.Contains(p, b) && !strings.Contains(p, a) && strings.Contains(h, a) && !strings.Contains(h, b)) {
			return true
		}
	}
	return false
}
