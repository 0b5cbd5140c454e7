// Package tutor is the engine facade the CLI and the MCP server drive:
// passage analysis, question generation and the session lifecycle.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okdokhae/okdok/internal/discourse"
	"github.com/okdokhae/okdok/internal/evaluation"
	"github.com/okdokhae/okdok/internal/model"
	"github.com/okdokhae/okdok/internal/question"
	"github.com/okdokhae/okdok/internal/session"
	"github.com/okdokhae/okdok/internal/store"
)

// Analysis is the analyzed form of a passage.
type Analysis struct {
	Sentences []string         `json:"sentences"`
	Nodes     []discourse.Node `json:"nodes"`
	KeyNodes  []discourse.Node `json:"key_nodes"`
}

// SubmitResult is the verdict on one answer and what the reader does next.
type SubmitResult struct {
	SessionID  string            `json:"session_id"`
	Evaluation evaluation.Result `json:"evaluation"`
	Next       session.Action    `json:"next"`
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	// Locale is "en" or "ko".
	Locale string

	// Seed drives question template choice.
	Seed uint64

	// Analyzer overrides the analyzer constants, e.g. the key node count.
	Analyzer *discourse.Config

	// Thresholds is the evaluator profile. Defaults to the canonical one.
	Thresholds *evaluation.Thresholds

	// EscalateAfter is the failure count on one stage that escalates.
	EscalateAfter int

	// Sessions persists sessions. Defaults to an in-memory repository.
	Sessions store.SessionRepo

	// Locker serializes submissions per session. Defaults to an
	// in-process KeyedMutex.
	Locker session.Locker

	// Evaluator replaces the model-backed evaluator.
	Evaluator session.Evaluator

	Logger *zap.Logger
	Clock  func() time.Time
}

// Engine runs the tutor. It is safe for concurrent use.
type Engine struct {
	analyzer *discourse.Analyzer
	gen      *question.Generator
	planner  *session.Planner
	gate     *session.Gate
	shared   *model.Shared
	sessions store.SessionRepo
	locker   session.Locker
	logger   *zap.Logger
	now      func() time.Time
}

// New creates an Engine scoring with the backends owned by shared.
func New(shared *model.Shared, opts Options) (*Engine, error) {
	if opts.Locale == "" {
		opts.Locale = "en"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Sessions == nil {
		opts.Sessions = store.NewMemorySessionRepo(0)
	}
	if opts.Locker == nil {
		opts.Locker = session.NewKeyedMutex()
	}

	catalog, err := question.BuiltinCatalog(opts.Locale)
	if err != nil {
		return nil, err
	}
	messages, err := evaluation.BuiltinMessages(opts.Locale)
	if err != nil {
		return nil, err
	}
	hints, err := session.BuiltinHints(opts.Locale)
	if err != nil {
		return nil, err
	}

	acfg := discourse.DefaultConfig()
	if opts.Analyzer != nil {
		acfg = *opts.Analyzer
	}
	th := evaluation.DefaultThresholds()
	if opts.Thresholds != nil {
		th = *opts.Thresholds
	}

	ev := opts.Evaluator
	if ev == nil {
		if shared == nil {
			return nil, errors.New("tutor: model backends are required")
		}
		ev = &sharedEvaluator{
			shared: shared,
			opts: []evaluation.Option{
				evaluation.WithThresholds(th),
				evaluation.WithMessages(messages),
				evaluation.WithLogger(opts.Logger.Named("evaluation")),
			},
			logger: opts.Logger,
		}
	}

	gateOpts := []session.GateOption{
		session.WithHints(hints),
		session.WithClock(opts.Clock),
		session.WithLogger(opts.Logger.Named("gate")),
	}
	if opts.EscalateAfter > 0 {
		gateOpts = append(gateOpts, session.WithEscalateAfter(opts.EscalateAfter))
	}

	gen := question.NewGenerator(catalog, opts.Seed)
	return &Engine{
		analyzer: discourse.New(nil, nil, acfg),
		gen:      gen,
		planner:  session.NewPlanner(gen, hints),
		gate:     session.NewGate(ev, nil, gateOpts...),
		shared:   shared,
		sessions: opts.Sessions,
		locker:   opts.Locker,
		logger:   opts.Logger.Named("tutor"),
		now:      opts.Clock,
	}, nil
}

// AnalyzePassage segments text and returns its scored nodes.
func (e *Engine) AnalyzePassage(text string) Analysis {
	sentences := e.analyzer.Segment(text)
	nodes := e.analyzer.AnalyzeSentences(sentences)
	return Analysis{
		Sentences: sentences,
		Nodes:     nodes,
		KeyNodes:  discourse.KeyNodes(nodes),
	}
}

// GenerateQuestion asks about node, avoiding questions in history.
func (e *Engine) GenerateQuestion(node discourse.Node, history *question.History) string {
	return e.gen.Generate(node, history)
}

// StartSession analyzes passage, plans its stages and stores a new
// session. An empty workID gets a generated one.
func (e *Engine) StartSession(ctx context.Context, workID, passage string, layout session.Layout) (*session.Session, error) {
	if workID == "" {
		workID = uuid.NewString()
	}
	a := e.AnalyzePassage(passage)

	var history question.History
	stages, err := e.planner.Plan(layout, a.Nodes, &history)
	if err != nil {
		return nil, err
	}

	s := session.New(workID, layout, stages, a.Nodes, e.now())
	if err := e.sessions.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	e.logger.Info("session started",
		zap.String("session_id", s.ID),
		zap.String("work_id", workID),
		zap.String("layout", string(layout)),
		zap.Int("stages", len(stages)),
	)
	return s, nil
}

// GetSession loads a session for resumption.
func (e *Engine) GetSession(ctx context.Context, id string) (*session.Session, error) {
	s, err := e.sessions.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound(id)
	}
	return s, err
}

// SubmitAnswer scores answer for the stage named by stageRef and advances
// the session. An empty stageRef means the current stage. Submissions to
// one session are serialized; the stored session is only replaced if no
// other writer changed it in between.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, stageRef, answer string, evidenceIDs []string) (SubmitResult, error) {
	unlock, err := e.locker.Lock(ctx, sessionID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("lock session %s: %w", sessionID, err)
	}
	defer unlock()

	s, err := e.GetSession(ctx, sessionID)
	if err != nil {
		return SubmitResult{}, err
	}
	if stageRef == "" {
		if st := s.CurrentStage(); st != nil {
			stageRef = st.ID
		}
	}

	expected := s.Version
	out, err := e.gate.Submit(ctx, s, session.Submission{
		StageID:     stageRef,
		Answer:      answer,
		EvidenceIDs: evidenceIDs,
	})
	if err != nil {
		return SubmitResult{}, err
	}

	if err := e.sessions.UpdateSession(ctx, s, expected); err != nil {
		return SubmitResult{}, fmt.Errorf("save session: %w", err)
	}
	return SubmitResult{SessionID: s.ID, Evaluation: out.Result, Next: out.Action}, nil
}

// Close releases the model backends once no evaluation holds them.
func (e *Engine) Close() error {
	if e.shared == nil {
		return nil
	}
	return e.shared.Close()
}

func notFound(id string) error {
	return &session.GateError{SessionID: id, Check: "session_not_found", Err: session.ErrSessionNotFound}
}

// sharedEvaluator borrows the process-wide backends for each batch.
type sharedEvaluator struct {
	shared *model.Shared
	opts   []evaluation.Option
	logger *zap.Logger
}

func (s *sharedEvaluator) EvaluateBatch(ctx context.Context, reqs []evaluation.Request) []evaluation.Result {
	b, err := s.shared.Acquire(ctx)
	if err != nil {
		s.logger.Warn("model backends unavailable", zap.Error(err))
		return evaluation.New(nil, s.opts...).EvaluateBatch(ctx, reqs)
	}
	defer s.shared.Release()
	return evaluation.New(b, s.opts...).EvaluateBatch(ctx, reqs)
}
