// Package app wires configuration into a running tutor: logger, store,
// model backends, LLM judge, session lock and engine.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/okdokhae/okdok/internal/config"
	"github.com/okdokhae/okdok/internal/discourse"
	"github.com/okdokhae/okdok/internal/llm"
	"github.com/okdokhae/okdok/internal/logging"
	"github.com/okdokhae/okdok/internal/model"
	"github.com/okdokhae/okdok/internal/session"
	"github.com/okdokhae/okdok/internal/store"
	"github.com/okdokhae/okdok/internal/tutor"
)

// Options tunes Open.
type Options struct {
	// Ephemeral keeps sessions in memory and opens no database. Used by
	// commands that never touch stored state.
	Ephemeral bool

	// Logger replaces the logger built from the configuration.
	Logger *zap.Logger
}

// App holds the long-lived dependencies of one process.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Engine *tutor.Engine

	// Store is nil for an ephemeral App.
	Store *store.Store

	redis redis.UniversalClient
}

// Open builds the App described by cfg. Model backends are opened lazily
// on the first evaluation.
func Open(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	a := &App{Config: cfg, Logger: opts.Logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.Logger == nil {
		a.Logger, err = logging.New(cfg.Log)
		if err != nil {
			return nil, err
		}
	}

	var sessions store.SessionRepo
	var recorder llm.EventRecorder
	if opts.Ephemeral {
		sessions = store.NewMemorySessionRepo(0)
	} else {
		path := cfg.DBPath
		if path == "" {
			if path, err = store.DefaultDBPath(); err != nil {
				return nil, fmt.Errorf("resolve database path: %w", err)
			}
		} else if err = store.EnsureDir(path); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		if a.Store, err = store.Open(path); err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		sessions = a.Store.SessionRepo()
		recorder = a.Store.EventRepo()
	}

	var judge llm.Provider
	if cfg.NeedsLLM() {
		judge, err = llm.NewProvider(ctx, cfg.LLM, recorder, a.Logger.Named("llm"))
		if err != nil {
			return nil, err
		}
	}
	shared := model.NewShared(func(ctx context.Context) (*model.Backends, error) {
		return model.Open(ctx, cfg.Model, cfg.LLM, judge)
	})

	var locker session.Locker
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		locker = session.NewRedisLocker(a.redis, cfg.LockTTL)
	}

	acfg := discourse.DefaultConfig()
	acfg.KeyNodes = cfg.KeyNodes
	th := cfg.Thresholds()

	a.Engine, err = tutor.New(shared, tutor.Options{
		Locale:        cfg.Locale,
		Seed:          cfg.Seed,
		Analyzer:      &acfg,
		Thresholds:    &th,
		EscalateAfter: cfg.EscalateAfter,
		Sessions:      sessions,
		Locker:        locker,
		Logger:        a.Logger,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Close releases everything Open acquired.
func (a *App) Close() error {
	var errs []error
	if a.Engine != nil {
		errs = append(errs, a.Engine.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Logger != nil {
		a.Logger.Sync()
	}
	return errors.Join(errs...)
}
