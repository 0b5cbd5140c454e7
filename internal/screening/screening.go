// Package screening rejects answers that cannot be worth scoring: too
// short for the stage, missing required evidence, repeated, pasted, or
// trying to talk to the grader instead of answering. Screening never
// calls a model.
package screening

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/okdokhae/okdok/internal/lexicon"
)

// Check names the screening rule that rejected an answer.
type Check string

const (
	CheckTooShort        Check = "too_short"
	CheckMissingEvidence Check = "missing_evidence"
	CheckRepeated        Check = "repeated_answer"
	CheckShortRepeated   Check = "short_repeated"
	CheckCopyPaste       Check = "copy_paste"
	CheckPromptEscape    Check = "prompt_escape"
)

// Severity orders anomalies for logging and review.
func (c Check) Severity() int {
	switch c {
	case CheckPromptEscape:
		return 5
	case CheckShortRepeated, CheckRepeated:
		return 3
	case CheckCopyPaste:
		return 2
	}
	return 1
}

// Anomaly reports whether c is an anomaly rather than an unmet stage
// requirement.
func (c Check) Anomaly() bool {
	return c != CheckTooShort && c != CheckMissingEvidence
}

// Requirement is what a stage demands of an answer before it is scored.
type Requirement struct {
	MinRunes        int
	RequireEvidence bool
}

// Verdict is the outcome of screening one answer.
type Verdict struct {
	OK    bool
	Check Check
	Runes int
}

// Config tunes the anomaly rules.
type Config struct {
	// RepeatWindow is how many previous answers an identical answer must
	// match to count as repeated.
	RepeatWindow int

	// ShortRunes is the length under which an answer counts as short.
	ShortRunes int

	// ShortWindow is how many consecutive short answers, the current one
	// included, are flagged.
	ShortWindow int

	// PasteMarkers are substrings that betray pasted markup or links.
	PasteMarkers []string

	// NumberedLines is the number of leading "1." "2." ... lines that
	// flags a pasted list.
	NumberedLines int

	// EscapePhrases are lowercase phrases addressed to the grader.
	EscapePhrases []string
}

// DefaultConfig returns the built-in anomaly rules.
func DefaultConfig() Config {
	return Config{
		RepeatWindow:  2,
		ShortRunes:    10,
		ShortWindow:   3,
		PasteMarkers:  []string{"<", ">", "http://", "https://"},
		NumberedLines: 5,
		EscapePhrases: []string{
			"ignore previous",
			"ignore all",
			"system:",
			"assistant:",
			"you are now",
			"pretend you are",
			"이전 지시를 무시",
			"지시를 무시하고",
			"시스템 프롬프트",
			"너는 이제",
		},
	}
}

// Screener applies stage requirements and anomaly rules.
type Screener struct {
	cfg Config
}

// New creates a Screener with cfg.
func New(cfg Config) *Screener {
	return &Screener{cfg: cfg}
}

// Default creates a Screener with DefaultConfig.
func Default() *Screener {
	return New(DefaultConfig())
}

// Screen checks answer against req. recent holds the session's previous
// answers, oldest first. Anomalies are checked before stage requirements
// so a repeated short answer is reported as repetition.
func (s *Screener) Screen(answer string, evidenceIDs []string, req Requirement, recent []string) Verdict {
	trimmed := strings.TrimSpace(answer)
	v := Verdict{OK: true, Runes: utf8.RuneCountInString(trimmed)}

	fail := func(c Check) Verdict {
		v.OK = false
		v.Check = c
		return v
	}

	if trimmed != "" {
		switch {
		case s.escapes(trimmed):
			return fail(CheckPromptEscape)
		case s.pasted(trimmed):
			return fail(CheckCopyPaste)
		case s.repeated(trimmed, recent):
			return fail(CheckRepeated)
		case s.shortRepeated(v.Runes, recent):
			return fail(CheckShortRepeated)
		}
	}

	if v.Runes < req.MinRunes {
		return fail(CheckTooShort)
	}
	if req.RequireEvidence && !hasEvidence(evidenceIDs) {
		return fail(CheckMissingEvidence)
	}
	return v
}

func (s *Screener) escapes(answer string) bool {
	lower := strings.ToLower(answer)
	for _, p := range s.cfg.EscapePhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func (s *Screener) pasted(answer string) bool {
	for _, m := range s.cfg.PasteMarkers {
		if strings.Contains(answer, m) {
			return true
		}
	}

	n := s.cfg.NumberedLines
	lines := strings.Split(answer, "\n")
	if n <= 0 || len(lines) <= n {
		return false
	}
	for i, line := range lines[:n] {
		if !strings.HasPrefix(strings.TrimSpace(line), strconv.Itoa(i+1)+".") {
			return false
		}
	}
	return true
}

func (s *Screener) repeated(answer string, recent []string) bool {
	w := s.cfg.RepeatWindow
	if w <= 0 || len(recent) < w {
		return false
	}
	norm := lexicon.Normalize(answer)
	for _, prev := range recent[len(recent)-w:] {
		if lexicon.Normalize(prev) != norm {
			return false
		}
	}
	return true
}

func (s *Screener) shortRepeated(runes int, recent []string) bool {
	w := s.cfg.ShortWindow
	if w <= 1 || runes >= s.cfg.ShortRunes || len(recent) < w-1 {
		return false
	}
	for _, prev := range recent[len(recent)-(w-1):] {
		if utf8.RuneCountInString(strings.TrimSpace(prev)) >= s.cfg.ShortRunes {
			return false
		}
	}
	return true
}

func hasEvidence(ids []string) bool {
	for _, id := range ids {
		if strings.TrimSpace(id) != "" {
			return true
		}
	}
	return false
}
