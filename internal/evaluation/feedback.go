package evaluation

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okdokhae/okdok/internal/lexicon"
	"github.com/okdokhae/okdok/internal/model"
)

//go:embed messages/*.yaml
var messageFS embed.FS

// FeedbackKind identifies the row of the feedback table that fired.
type FeedbackKind string

const (
	FeedbackAnswerRequired FeedbackKind = "answer_required"
	FeedbackDegraded       FeedbackKind = "degraded"
	FeedbackConflict       FeedbackKind = "conflict"
	FeedbackStrong         FeedbackKind = "strong"
	FeedbackAffirm         FeedbackKind = "affirm"
	FeedbackMissedUnit     FeedbackKind = "missed_unit"
	FeedbackIncludeMore    FeedbackKind = "include_more"
	FeedbackPrecision      FeedbackKind = "precision"
	FeedbackGoDeeper       FeedbackKind = "go_deeper"
)

var allFeedbackKinds = []FeedbackKind{
	FeedbackAnswerRequired, FeedbackDegraded, FeedbackConflict, FeedbackStrong,
	FeedbackAffirm, FeedbackMissedUnit, FeedbackIncludeMore, FeedbackPrecision,
	FeedbackGoDeeper,
}

// Messages is a per-locale feedback catalog.
type Messages struct {
	Locale   string                  `yaml:"locale"`
	Messages map[FeedbackKind]string `yaml:"messages"`
}

// BuiltinMessages returns the embedded catalog for locale ("en" or "ko").
func BuiltinMessages(locale string) (*Messages, error) {
	data, err := messageFS.ReadFile("messages/" + locale + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no built-in feedback messages for locale %q", locale)
	}
	var m Messages
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode feedback messages: %w", err)
	}
	for _, k := range allFeedbackKinds {
		if m.Messages[k] == "" {
			return nil, fmt.Errorf("feedback messages %q: missing %q", locale, k)
		}
	}
	return &m, nil
}

func (m *Messages) text(kind FeedbackKind, snippet string) string {
	return strings.ReplaceAll(m.Messages[kind], "{snippet}", snippet)
}

// chooseFeedback walks the decision table top to bottom. missed is the
// highest-weight uncovered unit, or nil.
func chooseFeedback(r Result, missed *UnitScore, th Thresholds) (FeedbackKind, string) {
	switch {
	case r.NLILabel == model.LabelContradiction && r.STSScore < th.ContradictionLowSTS:
		return FeedbackConflict, ""
	case r.IsPassed && r.CoverageScore > th.NearTotalCoverage:
		return FeedbackStrong, ""
	case r.IsPassed:
		return FeedbackAffirm, ""
	case missed != nil && missed.Weight >= th.MissedUnitWeight:
		return FeedbackMissedUnit, lexicon.Truncate(missed.Text, th.SnippetRunes)
	case r.CoverageScore < th.LowCoverage:
		return FeedbackIncludeMore, ""
	case r.STSScore < th.LowSTS:
		return FeedbackPrecision, ""
	}
	return FeedbackGoDeeper, ""
}
