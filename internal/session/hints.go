package session

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okdokhae/okdok/internal/lexicon"
	"github.com/okdokhae/okdok/internal/screening"
)

//go:embed hints/*.yaml
var hintFS embed.FS

// openingRunes bounds the worked-example opening taken from the reference.
const openingRunes = 24

// StageText is the locale text attached to a stage kind.
type StageText struct {
	Instructions string `yaml:"instructions"`
	Hint         string `yaml:"hint"`
}

// Hints is the per-locale text the gate speaks with.
type Hints struct {
	Locale     string                     `yaml:"locale"`
	Stages     map[StageKind]StageText    `yaml:"stages"`
	Checks     map[screening.Check]string `yaml:"checks"`
	Strategies map[Strategy]string        `yaml:"strategies"`
}

// BuiltinHints returns the embedded hints for locale ("en" or "ko").
func BuiltinHints(locale string) (*Hints, error) {
	data, err := hintFS.ReadFile("hints/" + locale + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no built-in hints for locale %q", locale)
	}
	var h Hints
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode hints: %w", err)
	}
	for kind := range requirements {
		if h.Stages[kind].Hint == "" {
			return nil, fmt.Errorf("hints %q: missing stage %s", locale, kind)
		}
	}
	for _, s := range Ladder[1:] {
		if h.Strategies[s] == "" {
			return nil, fmt.Errorf("hints %q: missing strategy %s", locale, s)
		}
	}
	return &h, nil
}

// Instructions returns the instructions shown with a stage of kind.
func (h *Hints) Instructions(kind StageKind) string {
	return h.Stages[kind].Instructions
}

// screened returns the hint for an answer rejected by screening.
func (h *Hints) screened(kind StageKind, c screening.Check) string {
	if msg := h.Checks[c]; msg != "" {
		return msg
	}
	return h.Stages[kind].Hint
}

// escalation frames feedback for strategy.
func (h *Hints) escalation(s Strategy, st *Stage, feedback string) string {
	tmpl := h.Strategies[s]
	if tmpl == "" {
		return feedback
	}
	r := strings.NewReplacer(
		"{feedback}", feedback,
		"{opening}", lexicon.Truncate(st.Reference, openingRunes),
	)
	return strings.TrimSpace(r.Replace(tmpl))
}
