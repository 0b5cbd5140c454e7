package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/okdokhae/okdok/internal/llm"
)

// JudgeConfig tunes the LLM NLI judge.
type JudgeConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultJudgeConfig returns the judge defaults.
func DefaultJudgeConfig() JudgeConfig {
	return JudgeConfig{MaxTokens: 512, Temperature: 0}
}

// LLMJudge classifies entailment by asking a chat model, all pairs of a
// batch in one request.
type LLMJudge struct {
	provider llm.Provider
	cfg      JudgeConfig
}

// NewLLMJudge creates a judge over provider.
func NewLLMJudge(provider llm.Provider, cfg JudgeConfig) *LLMJudge {
	return &LLMJudge{provider: provider, cfg: cfg}
}

func (j *LLMJudge) ModelID() string { return "llm:" + j.provider.ModelID() }

// JudgementSchema is the structured output the judge requests.
var JudgementSchema = &llm.Schema{
	Name:        "nli-judgements",
	Description: "One entailment verdict per numbered pair, in order",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"judgements": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"label": map[string]any{
							"type": "string",
							"enum": []any{"entailment", "neutral", "contradiction"},
						},
						"confidence": map[string]any{
							"type":    "number",
							"minimum": 0,
							"maximum": 1,
						},
					},
					"required":             []any{"label", "confidence"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"judgements"},
		"additionalProperties": false,
	},
}

type judgeOutput struct {
	Judgements []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"judgements"`
}

func (j *LLMJudge) Classify(ctx context.Context, pairs []Pair) ([]Judgement, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeNLI)

	var buf bytes.Buffer
	if err := judgeUserTemplate.Execute(&buf, pairs); err != nil {
		return nil, fmt.Errorf("build judge prompt: %w", err)
	}

	resp, err := j.provider.Generate(ctx, llm.Request{
		System:      judgeSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buf.String()}},
		Schema:      JudgementSchema,
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: j.cfg.Temperature,
	})
	if err != nil {
		return nil, &ErrUnavailable{Backend: j.ModelID(), Err: err}
	}

	var raw judgeOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("parse judge response: %w", err)
	}
	if len(raw.Judgements) != len(pairs) {
		return nil, fmt.Errorf("judge returned %d verdicts for %d pairs", len(raw.Judgements), len(pairs))
	}

	out := make([]Judgement, len(pairs))
	for i, r := range raw.Judgements {
		label := Label(r.Label)
		if !label.Valid() {
			label = LabelNeutral
		}
		out[i] = Judgement{Label: label, Confidence: clamp01(r.Confidence)}
	}
	return out, nil
}

const judgeSystemPrompt = `You check a reader's answers against a passage they read.

For each numbered pair, decide whether the PREMISE (text from the passage) supports, contradicts, or is unrelated to the HYPOTHESIS (the reader's answer).
- entailment: the passage states or clearly implies what the answer says.
- contradiction: the answer asserts the opposite of the passage.
- neutral: neither.
Judge meaning, not wording. Answers may be in English or Korean.
Return exactly one verdict per pair, in the same order, with a confidence between 0 and 1.`

var judgeUserTemplate = template.Must(template.New("judge").Parse(`{{range $i, $p := .}}Pair {{$i}}
PREMISE: {{$p.Premise}}
HYPOTHESIS: {{$p.Hypothesis}}

{{end}}`))
