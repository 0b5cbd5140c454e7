package session

import (
	"github.com/okdokhae/okdok/internal/evaluation"
	"github.com/okdokhae/okdok/internal/model"
)

// Strategy is how the tutor frames its next hint.
type Strategy string

const (
	StrategySocratic       Strategy = "socratic"
	StrategyHintDecompose  Strategy = "hint_decompose"
	StrategyWorkedExample  Strategy = "worked_example"
	StrategyCounterExample Strategy = "counter_example"
)

// Ladder is the escalation order of strategies.
var Ladder = []Strategy{
	StrategySocratic,
	StrategyHintDecompose,
	StrategyWorkedExample,
	StrategyCounterExample,
}

func (s Strategy) rung() int {
	for i, l := range Ladder {
		if l == s {
			return i
		}
	}
	return 0
}

// WeakSkill is the reading skill a failed answer points at.
type WeakSkill string

const (
	SkillComprehension    WeakSkill = "comprehension"
	SkillReasoningDepth   WeakSkill = "reasoning_depth"
	SkillCriticalThinking WeakSkill = "critical_thinking"
)

// entryRung is where escalation starts for each weak skill.
var entryRung = map[WeakSkill]Strategy{
	SkillReasoningDepth:   StrategyHintDecompose,
	SkillComprehension:    StrategyWorkedExample,
	SkillCriticalThinking: StrategyCounterExample,
}

// WeakSkillOf classifies a failed result.
func WeakSkillOf(r evaluation.Result) WeakSkill {
	switch {
	case r.NLILabel == model.LabelContradiction || r.FeedbackKind == evaluation.FeedbackConflict:
		return SkillCriticalThinking
	case r.FeedbackKind == evaluation.FeedbackMissedUnit,
		r.FeedbackKind == evaluation.FeedbackIncludeMore,
		r.FailedCheck == evaluation.CheckHighImportance:
		return SkillComprehension
	}
	return SkillReasoningDepth
}

// dominantWeakSkill returns the most frequent weak skill among the failed
// submissions for stageID plus current. Ties go to the most recent.
func dominantWeakSkill(history []Submission, stageID string, current evaluation.Result) WeakSkill {
	counts := map[WeakSkill]int{}
	last := map[WeakSkill]int{}
	seq := 0
	note := func(r evaluation.Result) {
		w := WeakSkillOf(r)
		counts[w]++
		last[w] = seq
		seq++
	}
	for _, sub := range history {
		if sub.StageID == stageID && !sub.Result.IsPassed {
			note(sub.Result)
		}
	}
	note(current)

	best := WeakSkillOf(current)
	for w, n := range counts {
		if n > counts[best] || (n == counts[best] && last[w] > last[best]) {
			best = w
		}
	}
	return best
}

// escalate returns the strategy after one more failure at or beyond the
// escalation threshold. The first escalation enters the ladder at the rung
// for the weak skill; later ones climb one rung, stopping at the top.
func escalate(current Strategy, skill WeakSkill) Strategy {
	if current == StrategySocratic || current == "" {
		return entryRung[skill]
	}
	next := min(current.rung()+1, len(Ladder)-1)
	return Ladder[next]
}
