// Package evaluation scores a free-text answer against a reference
// sentence: semantic similarity, weighted logic-unit coverage and an NLI
// signal are combined into a final score, a pass verdict and feedback.
package evaluation

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/okdokhae/okdok/internal/cues"
	"github.com/okdokhae/okdok/internal/model"
)

// Checks reported in Result.FailedCheck.
const (
	CheckEmptyAnswer    = "empty_answer"
	CheckBackend        = "backend_unavailable"
	CheckContradiction  = "contradiction"
	CheckHighImportance = "high_importance_unit"
	CheckPassThreshold  = "pass_threshold"
)

// UnitScore is one logic unit with its similarity to the answer.
type UnitScore struct {
	Unit
	Similarity float64 `json:"similarity"`
	Covered    bool    `json:"covered"`
}

// Result is the evaluation of one answer.
type Result struct {
	STSScore      float64      `json:"sts_score"`
	CoverageScore float64      `json:"coverage_score"`
	FinalScore    float64      `json:"final_score"`
	NLILabel      model.Label  `json:"nli_label"`
	NLIConfidence float64      `json:"nli_confidence"`
	IsPassed      bool         `json:"is_passed"`
	Feedback      string       `json:"feedback_text"`
	FeedbackKind  FeedbackKind `json:"feedback_kind"`
	FailedCheck   string       `json:"failed_check,omitempty"`
	Units         []UnitScore  `json:"units,omitempty"`
	Degraded      bool         `json:"degraded,omitempty"`
}

// Request is one answer/reference pair for EvaluateBatch.
type Request struct {
	Answer     string
	Reference  string
	Thresholds *Thresholds
}

// Evaluator scores answers. It is safe for concurrent use; all state is
// read-only after construction.
type Evaluator struct {
	backends   *model.Backends
	cues       *cues.Table
	thresholds Thresholds
	messages   *Messages
	logger     *zap.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithThresholds replaces the canonical threshold profile.
func WithThresholds(t Thresholds) Option {
	return func(e *Evaluator) { e.thresholds = t }
}

// WithMessages sets the feedback catalog.
func WithMessages(m *Messages) Option {
	return func(e *Evaluator) { e.messages = m }
}

// WithCues sets the cue table used for unit splitting and weights.
func WithCues(t *cues.Table) Option {
	return func(e *Evaluator) { e.cues = t }
}

// WithLogger sets the logger for backend failures.
func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// New creates an Evaluator over backends. Defaults: canonical
// thresholds, English feedback, the built-in cue table.
func New(backends *model.Backends, opts ...Option) *Evaluator {
	e := &Evaluator{
		backends:   backends,
		thresholds: DefaultThresholds(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cues == nil {
		e.cues = cues.Default()
	}
	if e.messages == nil {
		m, err := BuiltinMessages("en")
		if err != nil {
			panic(err)
		}
		e.messages = m
	}
	return e
}

// Thresholds returns the evaluator's default profile.
func (e *Evaluator) Thresholds() Thresholds { return e.thresholds }

// Evaluate scores answer against reference.
func (e *Evaluator) Evaluate(ctx context.Context, answer, reference string) Result {
	return e.EvaluateBatch(ctx, []Request{{Answer: answer, Reference: reference}})[0]
}

// EvaluateBatch scores independent requests with one embedding call over
// all their texts and one NLI call over all their pairs. Results are in
// request order.
func (e *Evaluator) EvaluateBatch(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))

	type job struct {
		idx    int
		answer string
		ref    string
		units  []Unit
		offset int
		th     Thresholds
	}
	var jobs []*job
	var texts []string

	for i, r := range reqs {
		th := e.thresholds
		if r.Thresholds != nil {
			th = *r.Thresholds
		}
		answer := strings.TrimSpace(r.Answer)
		if answer == "" {
			results[i] = e.emptyAnswer()
			continue
		}
		j := &job{idx: i, answer: answer, ref: strings.TrimSpace(r.Reference), th: th}
		j.units = SplitUnits(e.cues, j.ref)
		j.offset = len(texts)
		texts = append(texts, answer)
		for _, u := range j.units {
			texts = append(texts, u.Text)
		}
		jobs = append(jobs, j)
	}
	if len(jobs) == 0 {
		return results
	}

	vecs, ok := e.embed(ctx, texts)
	if !ok {
		for _, j := range jobs {
			results[j.idx] = e.degraded()
		}
		return results
	}

	var pairs []model.Pair
	var pairJob []int
	for n, j := range jobs {
		if j.ref == "" {
			continue
		}
		pairs = append(pairs, model.Pair{Premise: j.ref, Hypothesis: j.answer})
		pairJob = append(pairJob, n)
	}
	verdicts := make([]model.Judgement, len(jobs))
	for n := range verdicts {
		verdicts[n] = model.Neutral
	}
	for k, v := range e.classify(ctx, pairs) {
		verdicts[pairJob[k]] = v
	}

	for n, j := range jobs {
		answerVec := vecs[j.offset]
		scores := make([]UnitScore, len(j.units))
		for k, u := range j.units {
			scores[k] = UnitScore{Unit: u, Similarity: model.Cosine(answerVec, vecs[j.offset+1+k])}
		}
		results[j.idx] = e.score(scores, verdicts[n], j.th)
	}
	return results
}

// score applies the combination, pass and feedback rules.
func (e *Evaluator) score(units []UnitScore, v model.Judgement, th Thresholds) Result {
	var simSum, totalWeight, coveredWeight float64
	for k := range units {
		u := &units[k]
		u.Similarity = round3(clamp01(u.Similarity))
		u.Covered = u.Similarity > th.UnitMatch
		simSum += u.Similarity
		totalWeight += u.Weight
		if u.Covered {
			coveredWeight += u.Weight
		}
	}

	sts := 0.0
	coverage := 1.0
	if len(units) > 0 {
		sts = simSum / float64(len(units))
		if totalWeight > 0 {
			coverage = coveredWeight / totalWeight
		}
	}

	final := coverage*th.CoverageWeight + sts*th.STSWeight
	switch v.Label {
	case model.LabelContradiction:
		final -= th.ContradictionPenalty * v.Confidence
	case model.LabelEntailment:
		final += th.EntailmentBonus * v.Confidence
	}

	r := Result{
		STSScore:      round3(clamp01(sts)),
		CoverageScore: round3(clamp01(coverage)),
		FinalScore:    round3(clamp01(final)),
		NLILabel:      v.Label,
		NLIConfidence: round3(clamp01(v.Confidence)),
		Units:         units,
	}

	// Highest-weight uncovered unit, earliest on ties.
	var missed *UnitScore
	for k := range units {
		if !units[k].Covered && (missed == nil || units[k].Weight > missed.Weight) {
			missed = &units[k]
		}
	}
	veto := missed != nil && missed.Weight >= th.HighImportance && r.FinalScore < th.HighConfidence

	r.IsPassed = r.FinalScore > th.Pass && !veto
	if !r.IsPassed {
		switch {
		case veto && r.FinalScore > th.Pass:
			r.FailedCheck = CheckHighImportance
		case v.Label == model.LabelContradiction:
			r.FailedCheck = CheckContradiction
		default:
			r.FailedCheck = CheckPassThreshold
		}
	}

	kind, snippet := chooseFeedback(r, missed, th)
	r.FeedbackKind = kind
	r.Feedback = e.messages.text(kind, snippet)
	return r
}

// embed tries the primary embedder, then the fallback.
func (e *Evaluator) embed(ctx context.Context, texts []string) ([][]float32, bool) {
	try := func(m model.Embedder) ([][]float32, bool) {
		if m == nil {
			return nil, false
		}
		vecs, err := m.Embed(ctx, texts)
		if err == nil && len(vecs) == len(texts) {
			return vecs, true
		}
		e.logger.Warn("embedding backend failed",
			zap.String("model", m.ModelID()),
			zap.Int("texts", len(texts)),
			zap.Error(err),
		)
		return nil, false
	}

	if e.backends == nil {
		return nil, false
	}
	if vecs, ok := try(e.backends.Embedder); ok {
		return vecs, true
	}
	return try(e.backends.Fallback)
}

// classify returns one verdict per pair, neutral where the backend is
// missing or fails.
func (e *Evaluator) classify(ctx context.Context, pairs []model.Pair) []model.Judgement {
	out := make([]model.Judgement, len(pairs))
	for i := range out {
		out[i] = model.Neutral
	}
	if len(pairs) == 0 || e.backends == nil || e.backends.NLI == nil {
		return out
	}

	got, err := e.backends.NLI.Classify(ctx, pairs)
	if err != nil || len(got) != len(pairs) {
		e.logger.Warn("nli backend failed, using neutral verdicts",
			zap.String("model", e.backends.NLI.ModelID()),
			zap.Error(err),
		)
		return out
	}
	return got
}

func (e *Evaluator) emptyAnswer() Result {
	return Result{
		NLILabel:     model.LabelNeutral,
		FeedbackKind: FeedbackAnswerRequired,
		Feedback:     e.messages.text(FeedbackAnswerRequired, ""),
		FailedCheck:  CheckEmptyAnswer,
	}
}

func (e *Evaluator) degraded() Result {
	return Result{
		NLILabel:     model.LabelNeutral,
		FeedbackKind: FeedbackDegraded,
		Feedback:     e.messages.text(FeedbackDegraded, ""),
		FailedCheck:  CheckBackend,
		Degraded:     true,
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
