package model

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okdokhae/okdok/internal/llm"
)

type countingEmbedder struct {
	mu    sync.Mutex
	calls [][]string
}

func (c *countingEmbedder) ModelID() string { return "counting" }

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.calls = append(c.calls, append([]string(nil), texts...))
	c.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func TestCachedEmbedder_EmbedsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, time.Minute)
	ctx := context.Background()

	first, err := c.Embed(ctx, []string{"rain", "river"})
	require.NoError(t, err)
	second, err := c.Embed(ctx, []string{"flood", "rain"})
	require.NoError(t, err)

	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"flood"}, inner.calls[1])
	assert.Equal(t, first[0], second[1])
	assert.Equal(t, 3, c.Len())

	_, err = c.Embed(ctx, []string{"rain", "river", "flood"})
	require.NoError(t, err)
	assert.Len(t, inner.calls, 2, "fully cached batch must not reach the backend")
}

type closeCounter struct{ n int }

func (c *closeCounter) Close() error { c.n++; return nil }

func TestShared_LazyOpenAndRefcountedClose(t *testing.T) {
	closer := &closeCounter{}
	opens := 0
	s := NewShared(func(context.Context) (*Backends, error) {
		opens++
		return NewBackends(NewHashEmbedder(8), nil, LexicalNLI{}, closer), nil
	})
	ctx := context.Background()

	assert.Zero(t, opens, "nothing loads before the first Acquire")

	a, err := s.Acquire(ctx)
	require.NoError(t, err)
	b, err := s.Acquire(ctx)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, opens)
	assert.Equal(t, 2, s.Refs())

	require.NoError(t, s.Close())
	assert.Zero(t, closer.n, "close waits for holders")

	_, err = s.Acquire(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	require.NoError(t, s.Release())
	assert.Zero(t, closer.n)
	require.NoError(t, s.Release())
	assert.Equal(t, 1, closer.n)
}

func TestShared_OpenFailureIsRetried(t *testing.T) {
	fail := true
	s := NewShared(func(context.Context) (*Backends, error) {
		if fail {
			return nil, errors.New("model files missing")
		}
		return NewBackends(NewHashEmbedder(8), nil, nil), nil
	})

	_, err := s.Acquire(context.Background())
	require.Error(t, err)
	assert.Zero(t, s.Refs())

	fail = false
	_, err = s.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.Refs())
}

func TestLLMJudge_BatchInOneRequest(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockJSON(map[string]any{
		"judgements": []map[string]any{
			{"label": "entailment", "confidence": 0.9},
			{"label": "contradiction", "confidence": 0.7},
		},
	}))
	j := NewLLMJudge(mock, DefaultJudgeConfig())

	got, err := j.Classify(context.Background(), []Pair{
		{Premise: "Rivers flood after heavy rain.", Hypothesis: "Heavy rain floods rivers."},
		{Premise: "Rivers flood after heavy rain.", Hypothesis: "Rain never floods rivers."},
	})
	require.NoError(t, err)
	assert.Equal(t, []Judgement{
		{Label: LabelEntailment, Confidence: 0.9},
		{Label: LabelContradiction, Confidence: 0.7},
	}, got)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	assert.Equal(t, JudgementSchema, req.Schema)
	assert.Contains(t, req.Messages[0].Content, "Pair 1")
	assert.Equal(t, "llm:mock", j.ModelID())
}

func TestLLMJudge_Failures(t *testing.T) {
	t.Run("provider down", func(t *testing.T) {
		_, err := NewLLMJudge(llm.NewMockProvider(), DefaultJudgeConfig()).
			Classify(context.Background(), []Pair{{Premise: "a", Hypothesis: "b"}})
		assert.True(t, IsUnavailable(err))
	})

	t.Run("wrong verdict count", func(t *testing.T) {
		mock := llm.NewMockProvider(llm.MockJSON(map[string]any{"judgements": []map[string]any{}}))
		_, err := NewLLMJudge(mock, DefaultJudgeConfig()).
			Classify(context.Background(), []Pair{{Premise: "a", Hypothesis: "b"}})
		assert.Error(t, err)
	})

	t.Run("empty batch makes no request", func(t *testing.T) {
		mock := llm.NewMockProvider()
		got, err := NewLLMJudge(mock, DefaultJudgeConfig()).Classify(context.Background(), nil)
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.Zero(t, mock.CallCount())
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, DefaultConfig(), llm.DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, "lexical-hash", b.Embedder.ModelID())
	assert.Nil(t, b.Fallback)
	assert.IsType(t, LexicalNLI{}, b.NLI)
	require.NoError(t, b.Close())

	cfg := DefaultConfig()
	cfg.NLI = "llm"
	_, err = Open(ctx, cfg, llm.DefaultConfig(), nil)
	assert.Error(t, err, "llm NLI without a provider")

	cfg.NLI = "none"
	cfg.Embedder = "remote"
	_, err = Open(ctx, cfg, llm.DefaultConfig(), nil)
	assert.Error(t, err, "remote without an address")

	cfg.Embedder = "openai"
	_, err = Open(ctx, cfg, llm.DefaultConfig(), nil)
	assert.Error(t, err, "openai without a key")

	cfg.Embedder = "word2vec"
	_, err = Open(ctx, cfg, llm.DefaultConfig(), nil)
	assert.Error(t, err)
}
