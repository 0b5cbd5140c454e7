package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/okdokhae/okdok/internal/evaluation"
	"github.com/okdokhae/okdok/internal/model"
	"github.com/okdokhae/okdok/internal/screening"
)

// DefaultEscalateAfter is the retry count at which a stage escalates.
const DefaultEscalateAfter = 2

// ActionKind is what the reader should do next.
type ActionKind string

const (
	ActionAdvance    ActionKind = "ADVANCE"
	ActionRetry      ActionKind = "RETRY"
	ActionEscalate   ActionKind = "ESCALATE"
	ActionSessionEnd ActionKind = "SESSION_END"
)

// Action is the next step after a submission. Stage is the new stage for
// ADVANCE and the unchanged current stage for RETRY and ESCALATE.
type Action struct {
	Kind      ActionKind `json:"kind"`
	Stage     *Stage     `json:"stage,omitempty"`
	Strategy  Strategy   `json:"strategy,omitempty"`
	Hint      string     `json:"hint,omitempty"`
	WeakSkill WeakSkill  `json:"weak_skill,omitempty"`
}

// Outcome is the verdict on a submission and the action it triggered.
type Outcome struct {
	Result evaluation.Result `json:"evaluation"`
	Action Action            `json:"next"`
}

// Evaluator scores answers. *evaluation.Evaluator satisfies it.
type Evaluator interface {
	EvaluateBatch(ctx context.Context, reqs []evaluation.Request) []evaluation.Result
}

// Policy holds the transition rules that do not depend on a model.
type Policy struct {
	// EscalateAfter is the per-stage retry count at which the strategy
	// starts escalating.
	EscalateAfter int

	Hints *Hints
}

// Gate applies submissions to sessions.
type Gate struct {
	evaluator  Evaluator
	screener   *screening.Screener
	policy     Policy
	thresholds map[StageKind]evaluation.Thresholds
	now        func() time.Time
	logger     *zap.Logger
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithEscalateAfter sets the retry count that triggers escalation.
func WithEscalateAfter(n int) GateOption {
	return func(g *Gate) { g.policy.EscalateAfter = n }
}

// WithHints sets the hint catalog.
func WithHints(h *Hints) GateOption {
	return func(g *Gate) { g.policy.Hints = h }
}

// WithStageThresholds scores stages of kind with t instead of the
// evaluator's default profile.
func WithStageThresholds(kind StageKind, t evaluation.Thresholds) GateOption {
	return func(g *Gate) { g.thresholds[kind] = t }
}

// WithClock sets the time source for submission timestamps.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// WithLogger sets the gate's logger.
func WithLogger(l *zap.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

// NewGate creates a Gate. A nil screener uses screening.Default.
func NewGate(ev Evaluator, sc *screening.Screener, opts ...GateOption) *Gate {
	if sc == nil {
		sc = screening.Default()
	}
	g := &Gate{
		evaluator:  ev,
		screener:   sc,
		policy:     Policy{EscalateAfter: DefaultEscalateAfter},
		thresholds: make(map[StageKind]evaluation.Thresholds),
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.policy.Hints == nil {
		h, err := BuiltinHints("en")
		if err != nil {
			panic(err)
		}
		g.policy.Hints = h
	}
	if g.policy.EscalateAfter < 1 {
		g.policy.EscalateAfter = 1
	}
	return g
}

// Submit scores sub against the current stage of s and applies the
// transition to s. Integrity violations return a *GateError and leave s
// untouched. The caller owns s and must serialize Submit calls for the
// same session.
func (g *Gate) Submit(ctx context.Context, s *Session, sub Submission) (Outcome, error) {
	if s == nil {
		return Outcome{}, gateError(nil, sub.StageID, ErrSessionNotFound)
	}
	if s.Completed() {
		return Outcome{}, gateError(s, sub.StageID, ErrSessionCompleted)
	}
	idx := s.StageIndex(sub.StageID)
	if idx < 0 {
		return Outcome{}, gateError(s, sub.StageID, ErrUnknownStage)
	}
	if idx != s.CurrentStageIndex {
		return Outcome{}, gateError(s, sub.StageID, ErrStageMismatch)
	}

	stage := s.Stages[idx]
	sub.EvidenceIDs = s.knownEvidence(sub.EvidenceIDs)

	var r evaluation.Result
	v := g.screener.Screen(sub.Answer, sub.EvidenceIDs, stage.Requirement(), s.RecentAnswers(3))
	if !v.OK {
		r = g.screened(stage, v)
		if v.Check.Anomaly() {
			g.logger.Warn("answer anomaly",
				zap.String("session_id", s.ID),
				zap.String("stage_id", stage.ID),
				zap.String("check", string(v.Check)),
				zap.Int("severity", v.Check.Severity()),
			)
		}
	} else {
		r = g.evaluate(ctx, stage, sub.Answer)
	}

	action := Transition(s, sub, r, g.policy, g.now())
	g.logger.Debug("submission applied",
		zap.String("session_id", s.ID),
		zap.String("stage_id", stage.ID),
		zap.String("action", string(action.Kind)),
		zap.Float64("final_score", r.FinalScore),
		zap.String("strategy", string(s.Strategy)),
	)
	return Outcome{Result: r, Action: action}, nil
}

func (g *Gate) evaluate(ctx context.Context, st Stage, answer string) evaluation.Result {
	req := evaluation.Request{Answer: answer, Reference: st.Reference}
	if th, ok := g.thresholds[st.Kind]; ok {
		req.Thresholds = &th
	}
	return g.evaluator.EvaluateBatch(ctx, []evaluation.Request{req})[0]
}

// screened is the result recorded for an answer rejected before scoring.
func (g *Gate) screened(st Stage, v screening.Verdict) evaluation.Result {
	return evaluation.Result{
		NLILabel:    model.LabelNeutral,
		Feedback:    g.policy.Hints.screened(st.Kind, v.Check),
		FailedCheck: string(v.Check),
	}
}

// Transition applies the verdict r for sub to s and returns the next
// action. It is the whole state machine: it touches nothing but s.
// sub must target the current stage of an uncompleted session.
func Transition(s *Session, sub Submission, r evaluation.Result, p Policy, now time.Time) Action {
	idx := s.CurrentStageIndex
	stage := &s.Stages[idx]
	if s.Retries == nil {
		s.Retries = make(map[string]int)
	}
	if s.Status == StatusCreated || s.Status == "" {
		s.Status = StatusActive
	}

	var action Action
	if r.IsPassed {
		stage.Status = StagePassed
		s.Strategy = StrategySocratic
		s.CurrentStageIndex++
		if s.CurrentStageIndex >= len(s.Stages) {
			s.Status = StatusCompleted
			action = Action{Kind: ActionSessionEnd}
		} else {
			next := s.Stages[s.CurrentStageIndex]
			action = Action{Kind: ActionAdvance, Stage: &next, Strategy: s.Strategy}
		}
	} else {
		s.Retries[stage.ID]++
		current := *stage
		skill := dominantWeakSkill(s.History, stage.ID, r)
		if s.Retries[stage.ID] < p.EscalateAfter {
			action = Action{
				Kind:      ActionRetry,
				Stage:     &current,
				Strategy:  s.Strategy,
				Hint:      r.Feedback,
				WeakSkill: skill,
			}
		} else {
			s.Strategy = escalate(s.Strategy, skill)
			hint := r.Feedback
			if p.Hints != nil {
				hint = p.Hints.escalation(s.Strategy, stage, r.Feedback)
			}
			action = Action{
				Kind:      ActionEscalate,
				Stage:     &current,
				Strategy:  s.Strategy,
				Hint:      hint,
				WeakSkill: skill,
			}
		}
	}

	sub.StageID = stage.ID
	sub.StageIndex = idx
	sub.Result = r
	sub.Action = action.Kind
	sub.Strategy = s.Strategy
	sub.Timestamp = now
	s.History = append(s.History, sub)
	s.Version++
	s.UpdatedAt = now
	return action
}
