// Package model defines the embedding and natural-language-inference
// backends the answer evaluator scores with, and the shared resource that
// owns them for the lifetime of the process.
package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
)

// Embedder maps texts into a shared vector space. Implementations embed
// the whole batch in one backend call where the backend allows it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelID() string
}

// Label is an NLI verdict.
type Label string

const (
	LabelEntailment    Label = "entailment"
	LabelNeutral       Label = "neutral"
	LabelContradiction Label = "contradiction"
)

// Valid reports whether l is one of the three NLI labels.
func (l Label) Valid() bool {
	switch l {
	case LabelEntailment, LabelNeutral, LabelContradiction:
		return true
	}
	return false
}

// Pair is one premise/hypothesis pair to classify.
type Pair struct {
	Premise    string
	Hypothesis string
}

// Judgement is the NLI verdict for one pair.
type Judgement struct {
	Label      Label
	Confidence float64
}

// Neutral is the verdict used when no NLI signal is available.
var Neutral = Judgement{Label: LabelNeutral, Confidence: 0}

// NLI classifies premise/hypothesis pairs. Results are returned in the
// order of the input pairs.
type NLI interface {
	Classify(ctx context.Context, pairs []Pair) ([]Judgement, error)
	ModelID() string
}

// ErrUnavailable indicates a backend could not serve a request.
type ErrUnavailable struct {
	Backend string
	Err     error
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("model backend %s unavailable: %v", e.Backend, e.Err)
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// IsUnavailable reports whether err came from an unavailable backend.
func IsUnavailable(err error) bool {
	var u *ErrUnavailable
	return errors.As(err, &u)
}

// Backends bundles the models an evaluator needs.
type Backends struct {
	// Embedder is the primary similarity model.
	Embedder Embedder

	// Fallback is tried when Embedder fails. May be nil.
	Fallback Embedder

	// NLI may be nil, in which case every verdict is neutral.
	NLI NLI

	closers []io.Closer
}

// NewBackends creates a bundle. Closers are closed by Close in order.
func NewBackends(embedder, fallback Embedder, nli NLI, closers ...io.Closer) *Backends {
	return &Backends{Embedder: embedder, Fallback: fallback, NLI: nli, closers: closers}
}

// Close releases any connections the backends hold.
func (b *Backends) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cosine returns the cosine similarity of a and b, or 0 when either is
// the zero vector or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
