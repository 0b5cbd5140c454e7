package store

import (
	"context"
	"errors"
	"time"

	"github.com/okdokhae/okdok/internal/evaluation"
	"github.com/okdokhae/okdok/internal/llm"
	"github.com/okdokhae/okdok/internal/session"
)

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStaleSession is returned when a session changed since it was read.
	ErrStaleSession = errors.New("session was modified by another submission")
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// SessionInfo is the listing view of a stored session.
type SessionInfo struct {
	ID                string
	WorkID            string
	Layout            session.Layout
	Status            session.Status
	CurrentStageIndex int
	StageCount        int
	Strategy          session.Strategy
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SessionRepo stores sessions.
type SessionRepo interface {
	// CreateSession stores a new session.
	CreateSession(ctx context.Context, s *session.Session) error

	// GetSession loads a session, or returns ErrNotFound.
	GetSession(ctx context.Context, id string) (*session.Session, error)

	// UpdateSession writes s if the stored version is still
	// expectedVersion, together with the submissions added since. It
	// returns ErrStaleSession if another writer got there first.
	UpdateSession(ctx context.Context, s *session.Session, expectedVersion int) error

	// ListSessions returns sessions, most recently updated first.
	ListSessions(ctx context.Context, limit int) ([]SessionInfo, error)
}

// SubmissionEvent is one stored submission.
type SubmissionEvent struct {
	ID          int
	Sequence    int64
	Timestamp   time.Time
	SessionID   string
	StageID     string
	StageIndex  int
	Answer      string
	FinalScore  float64
	IsPassed    bool
	Action      session.ActionKind
	Strategy    session.Strategy
	FailedCheck string
	Result      evaluation.Result
}

// LLMEvent is one stored provider call.
type LLMEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	llm.RequestEvent
}

// LLMUsage aggregates provider calls per purpose and model.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to the event log.
type EventRepo interface {
	// AppendLLMRequest records a provider call. It satisfies
	// llm.EventRecorder.
	AppendLLMRequest(ctx context.Context, ev llm.RequestEvent) error

	// QueryLLMEvents returns provider calls, newest first. An empty
	// purpose matches every call.
	QueryLLMEvents(ctx context.Context, purpose string, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns one provider call, or nil if there is none.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	// LLMUsage aggregates provider calls.
	LLMUsage(ctx context.Context) ([]LLMUsage, error)

	// QuerySubmissions returns a session's submissions in order.
	QuerySubmissions(ctx context.Context, sessionID string, opts QueryOpts) ([]SubmissionEvent, error)
}

var _ llm.EventRecorder = EventRepo(nil)
