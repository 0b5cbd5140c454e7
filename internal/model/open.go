package model

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okdokhae/okdok/internal/llm"
)

// Config selects the backends Open builds.
type Config struct {
	// Embedder is one of "lexical", "openai", "gemini", "remote".
	Embedder string `validate:"oneof=lexical openai gemini remote"`

	// NLI is one of "lexical", "llm", "remote", "none".
	NLI string `validate:"oneof=lexical llm remote none"`

	// RemoteAddr is the gRPC model server, required by "remote".
	RemoteAddr string

	// CacheTTL enables the embedding cache when positive.
	CacheTTL time.Duration

	// HashDimensions sizes the lexical embedder.
	HashDimensions int
}

// DefaultConfig runs fully in-process.
func DefaultConfig() Config {
	return Config{
		Embedder:       "lexical",
		NLI:            "lexical",
		CacheTTL:       30 * time.Minute,
		HashDimensions: 512,
	}
}

// Open builds the configured bundle. The lexical hash embedder is always
// the fallback behind a non-lexical primary. judge serves NLI "llm" and
// may be nil otherwise.
func Open(ctx context.Context, cfg Config, llmCfg llm.Config, judge llm.Provider) (*Backends, error) {
	hash := NewHashEmbedder(cfg.HashDimensions)

	var remote *RemoteBackend
	dialRemote := func() (*RemoteBackend, error) {
		if remote != nil {
			return remote, nil
		}
		if cfg.RemoteAddr == "" {
			return nil, fmt.Errorf("remote model backend needs an address")
		}
		r, err := DialRemote(cfg.RemoteAddr)
		if err != nil {
			return nil, err
		}
		remote = r
		return r, nil
	}

	var primary, fallback Embedder
	switch cfg.Embedder {
	case "", "lexical":
		primary = hash
	case "openai":
		p, err := llm.NewOpenAIProvider(llmCfg.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		primary, fallback = p.Embedder(), hash
	case "gemini":
		p, err := llm.NewGeminiProvider(ctx, llmCfg.Gemini)
		if err != nil {
			return nil, fmt.Errorf("gemini embedder: %w", err)
		}
		primary, fallback = p.Embedder(), hash
	case "remote":
		r, err := dialRemote()
		if err != nil {
			return nil, fmt.Errorf("remote embedder: %w", err)
		}
		primary, fallback = r, hash
	default:
		return nil, fmt.Errorf("unknown embedder %q", cfg.Embedder)
	}
	if cfg.CacheTTL > 0 {
		primary = NewCachedEmbedder(primary, cfg.CacheTTL)
	}

	var nli NLI
	switch cfg.NLI {
	case "", "lexical":
		nli = LexicalNLI{}
	case "llm":
		if judge == nil {
			return nil, fmt.Errorf("llm NLI judge needs a provider")
		}
		nli = NewLLMJudge(judge, DefaultJudgeConfig())
	case "remote":
		r, err := dialRemote()
		if err != nil {
			return nil, fmt.Errorf("remote NLI: %w", err)
		}
		nli = r
	case "none":
	default:
		return nil, fmt.Errorf("unknown NLI backend %q", cfg.NLI)
	}

	var closers []io.Closer
	if remote != nil {
		closers = append(closers, remote)
	}
	return NewBackends(primary, fallback, nli, closers...), nil
}
