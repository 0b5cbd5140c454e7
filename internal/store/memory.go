package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/okdokhae/okdok/internal/session"
)

// MemorySessionRepo keeps sessions in process memory. Sessions are stored
// serialized so callers never share state with the repository. It is meant
// for tests and for the MCP server when no database is configured.
type MemorySessionRepo struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewMemorySessionRepo creates a repository whose sessions expire after
// ttl of inactivity. A ttl of zero or less keeps sessions forever.
func NewMemorySessionRepo(ttl time.Duration) *MemorySessionRepo {
	cleanup := 10 * time.Minute
	if ttl <= 0 {
		ttl = cache.NoExpiration
		cleanup = 0
	}
	return &MemorySessionRepo{cache: cache.New(ttl, cleanup)}
}

func (r *MemorySessionRepo) CreateSession(_ context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.cache.Add(s.ID, data, cache.DefaultExpiration); err != nil {
		return fmt.Errorf("create session %s: %w", s.ID, err)
	}
	return nil
}

func (r *MemorySessionRepo) GetSession(_ context.Context, id string) (*session.Session, error) {
	return r.load(id)
}

func (r *MemorySessionRepo) load(id string) (*session.Session, error) {
	x, ok := r.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	var s session.Session
	if err := json.Unmarshal(x.([]byte), &s); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &s, nil
}

func (r *MemorySessionRepo) UpdateSession(_ context.Context, s *session.Session, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load(s.ID)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("session %s at version %d: %w", s.ID, expectedVersion, ErrStaleSession)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	r.cache.Set(s.ID, data, cache.DefaultExpiration)
	return nil
}

func (r *MemorySessionRepo) ListSessions(_ context.Context, limit int) ([]SessionInfo, error) {
	var out []SessionInfo
	for id := range r.cache.Items() {
		s, err := r.load(id)
		if err != nil {
			continue
		}
		out = append(out, SessionInfo{
			ID:                s.ID,
			WorkID:            s.WorkID,
			Layout:            s.Layout,
			Status:            s.Status,
			CurrentStageIndex: s.CurrentStageIndex,
			StageCount:        len(s.Stages),
			Strategy:          s.Strategy,
			Version:           s.Version,
			CreatedAt:         s.CreatedAt,
			UpdatedAt:         s.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ SessionRepo = (*MemorySessionRepo)(nil)
