package session

import (
	"testing"

	"github.com/okdokhae/okdok/internal/evaluation"
	"github.com/okdokhae/okdok/internal/model"
)

func TestWeakSkillOf(t *testing.T) {
	tests := []struct {
		name string
		r    evaluation.Result
		want WeakSkill
	}{
		{"contradiction", evaluation.Result{NLILabel: model.LabelContradiction, FeedbackKind: evaluation.FeedbackGoDeeper}, SkillCriticalThinking},
		{"missed unit", evaluation.Result{FeedbackKind: evaluation.FeedbackMissedUnit}, SkillComprehension},
		{"low coverage", evaluation.Result{FeedbackKind: evaluation.FeedbackIncludeMore}, SkillComprehension},
		{"vetoed", evaluation.Result{FailedCheck: evaluation.CheckHighImportance, FeedbackKind: evaluation.FeedbackGoDeeper}, SkillComprehension},
		{"imprecise", evaluation.Result{FeedbackKind: evaluation.FeedbackPrecision}, SkillReasoningDepth},
		{"shallow", evaluation.Result{FeedbackKind: evaluation.FeedbackGoDeeper}, SkillReasoningDepth},
		{"screened", evaluation.Result{FailedCheck: "too_short"}, SkillReasoningDepth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeakSkillOf(tt.r); got != tt.want {
				t.Errorf("WeakSkillOf = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEscalate(t *testing.T) {
	tests := []struct {
		from  Strategy
		skill WeakSkill
		want  Strategy
	}{
		{StrategySocratic, SkillReasoningDepth, StrategyHintDecompose},
		{StrategySocratic, SkillComprehension, StrategyWorkedExample},
		{StrategySocratic, SkillCriticalThinking, StrategyCounterExample},
		{StrategyHintDecompose, SkillCriticalThinking, StrategyWorkedExample},
		{StrategyWorkedExample, SkillReasoningDepth, StrategyCounterExample},
		{StrategyCounterExample, SkillReasoningDepth, StrategyCounterExample},
	}
	for _, tt := range tests {
		if got := escalate(tt.from, tt.skill); got != tt.want {
			t.Errorf("escalate(%s, %s) = %s, want %s", tt.from, tt.skill, got, tt.want)
		}
	}
}

func TestDominantWeakSkill(t *testing.T) {
	shallow := evaluation.Result{FeedbackKind: evaluation.FeedbackGoDeeper}
	missed := evaluation.Result{FeedbackKind: evaluation.FeedbackMissedUnit}
	history := []Submission{
		{StageID: "1-vocab", Result: missed},
		{StageID: "1-vocab", Result: missed},
		{StageID: "2-why", Result: shallow},
		{StageID: "2-why", Result: shallow},
	}

	if got := dominantWeakSkill(history, "1-vocab", shallow); got != SkillComprehension {
		t.Errorf("majority skill = %s, want comprehension", got)
	}
	if got := dominantWeakSkill(history[:1], "1-vocab", shallow); got != SkillReasoningDepth {
		t.Errorf("tie should go to the latest failure, got %s", got)
	}
	if got := dominantWeakSkill(history, "3-random", shallow); got != SkillReasoningDepth {
		t.Errorf("other stages must not count, got %s", got)
	}
}
