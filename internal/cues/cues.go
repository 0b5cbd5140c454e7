// Package cues loads the lexical cue table that drives rhetorical role
// detection and logic-unit weighting. The table is data: a YAML document
// mapping each role to a list of patterns, plus the auxiliary pattern
// lists the analyzer and evaluator consult.
package cues

import (
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed cues.yaml
var defaultTable []byte

// Spec is the YAML form of a cue table.
type Spec struct {
	Roles           map[string][]string `yaml:"roles"`
	DefiningPhrases []string            `yaml:"defining_phrases"`
	Backchannel     []string            `yaml:"backchannel"`
	MetaPrefixes    []string            `yaml:"meta_prefixes"`
	Restatement     []string            `yaml:"restatement"`
	Connectives     []string            `yaml:"connectives"`
	Measures        []string            `yaml:"measures"`
	Units           UnitSpec            `yaml:"units"`
}

// UnitSpec configures logic-unit decomposition.
type UnitSpec struct {
	SplitConnectives []string     `yaml:"split_connectives"`
	Markers          []string     `yaml:"markers"`
	Weights          []WeightSpec `yaml:"weights"`
}

// WeightSpec assigns Weight to any unit matching one of Patterns.
type WeightSpec struct {
	Role     string   `yaml:"role"`
	Weight   float64  `yaml:"weight"`
	Patterns []string `yaml:"patterns"`
}

// Table is a compiled cue table. It is immutable and safe for concurrent use.
type Table struct {
	roles       map[string]patternSet
	defining    patternSet
	backchannel patternSet
	meta        patternSet
	restatement patternSet
	connectives patternSet
	measures    patternSet
	markers     patternSet
	weights     []weightRule
	split       *regexp.Regexp
}

type weightRule struct {
	role   string
	weight float64
	set    patternSet
}

type patternSet []*regexp.Regexp

func (ps patternSet) match(text string) bool {
	for _, re := range ps {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Parse compiles a cue table from YAML.
func Parse(data []byte) (*Table, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse cue table: %w", err)
	}
	return Compile(spec)
}

// Load reads and compiles a cue table.
func Load(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read cue table: %w", err)
	}
	return Parse(data)
}

// Compile builds a Table from a Spec.
func Compile(spec Spec) (*Table, error) {
	if len(spec.Roles) == 0 {
		return nil, fmt.Errorf("cue table has no roles")
	}

	t := &Table{roles: make(map[string]patternSet, len(spec.Roles))}
	var err error
	for role, pats := range spec.Roles {
		if t.roles[role], err = compileAll("roles."+role, pats); err != nil {
			return nil, err
		}
	}

	lists := []struct {
		name string
		src  []string
		dst  *patternSet
	}{
		{"defining_phrases", spec.DefiningPhrases, &t.defining},
		{"backchannel", spec.Backchannel, &t.backchannel},
		{"meta_prefixes", spec.MetaPrefixes, &t.meta},
		{"restatement", spec.Restatement, &t.restatement},
		{"connectives", spec.Connectives, &t.connectives},
		{"measures", spec.Measures, &t.measures},
		{"units.markers", spec.Units.Markers, &t.markers},
	}
	for _, l := range lists {
		if *l.dst, err = compileAll(l.name, l.src); err != nil {
			return nil, err
		}
	}

	for _, w := range spec.Units.Weights {
		if w.Weight <= 0 {
			return nil, fmt.Errorf("units.weights.%s: weight must be positive", w.Role)
		}
		set, err := compileAll("units.weights."+w.Role, w.Patterns)
		if err != nil {
			return nil, err
		}
		t.weights = append(t.weights, weightRule{role: w.Role, weight: w.Weight, set: set})
	}
	// Highest weight wins when several rules match.
	sort.SliceStable(t.weights, func(i, j int) bool {
		return t.weights[i].weight > t.weights[j].weight
	})

	if len(spec.Units.SplitConnectives) > 0 {
		quoted := make([]string, len(spec.Units.SplitConnectives))
		for i, c := range spec.Units.SplitConnectives {
			quoted[i] = regexp.QuoteMeta(c)
		}
		t.split, err = regexp.Compile(`(?i)\s+(?:` + strings.Join(quoted, "|") + `)\s`)
		if err != nil {
			return nil, fmt.Errorf("units.split_connectives: %w", err)
		}
	}

	return t, nil
}

func compileAll(name string, pats []string) (patternSet, error) {
	out := make(patternSet, 0, len(pats))
	for _, p := range pats {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("%s: pattern %q: %w", name, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

var defaultOnce = sync.OnceValues(func() (*Table, error) {
	return Parse(defaultTable)
})

// Default returns the built-in cue table. It panics if the embedded table
// does not compile, which only a broken build can cause.
func Default() *Table {
	t, err := defaultOnce()
	if err != nil {
		panic(err)
	}
	return t
}

// HasRole reports whether the table defines cues for role.
func (t *Table) HasRole(role string) bool {
	_, ok := t.roles[role]
	return ok
}

// MatchRole reports whether text contains any cue for role.
func (t *Table) MatchRole(role, text string) bool {
	return t.roles[role].match(text)
}

// HasDefiningPhrase reports whether text contains an explicit defining phrase.
func (t *Table) HasDefiningPhrase(text string) bool { return t.defining.match(text) }

// IsBackchannel reports whether text is only a backchannel or greeting.
func (t *Table) IsBackchannel(text string) bool {
	return t.backchannel.match(strings.TrimSpace(text))
}

// IsMeta reports whether text starts with a meta prefix such as "note:".
func (t *Table) IsMeta(text string) bool { return t.meta.match(text) }

// HasRestatement reports whether text contains a restatement marker.
func (t *Table) HasRestatement(text string) bool { return t.restatement.match(text) }

// HasConnective reports whether text contains a contrastive or causal connective.
func (t *Table) HasConnective(text string) bool { return t.connectives.match(text) }

// HasMeasure reports whether text contains a number with a unit of measure.
func (t *Table) HasMeasure(text string) bool { return t.measures.match(text) }

// IsMarker reports whether fragment consists of a discourse marker alone.
func (t *Table) IsMarker(fragment string) bool {
	return t.markers.match(strings.TrimSpace(fragment))
}

// UnitWeight returns the weight of the highest-weighted rule matching
// text, or 1.0 when none matches.
func (t *Table) UnitWeight(text string) float64 {
	for _, w := range t.weights {
		if w.set.match(text) {
			return w.weight
		}
	}
	return 1.0
}

// SplitPoints returns the byte offsets in text where a split connective
// begins. Each offset points at the connective word itself.
func (t *Table) SplitPoints(text string) []int {
	if t.split == nil {
		return nil
	}
	var out []int
	for _, loc := range t.split.FindAllStringIndex(text, -1) {
		// Skip the leading whitespace so the connective opens the next unit.
		start := loc[0]
		for start < loc[1] && isSpace(text[start]) {
			start++
		}
		out = append(out, start)
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
