package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/okdokhae/okdok/internal/discourse"
	"github.com/okdokhae/okdok/internal/question"
)

// Layout is the shape of a session's stage sequence.
type Layout string

const (
	// LayoutLesson is one pass of VOCAB, EVIDENCE, WHY, RANDOM over the
	// passage's key nodes.
	LayoutLesson Layout = "lesson"

	// LayoutChunk is QUESTION, EVIDENCE, ANSWER for every key node.
	LayoutChunk Layout = "chunk"
)

// ParseLayout parses a layout name. The empty string is the lesson layout.
func ParseLayout(s string) (Layout, error) {
	switch Layout(strings.ToLower(strings.TrimSpace(s))) {
	case "", LayoutLesson:
		return LayoutLesson, nil
	case LayoutChunk:
		return LayoutChunk, nil
	}
	return "", fmt.Errorf("unknown session layout %q (want lesson or chunk)", s)
}

var lessonKinds = []StageKind{KindVocab, KindEvidence, KindWhy, KindRandom}

var chunkKinds = []StageKind{KindQuestion, KindEvidence, KindAnswer}

// preferredRoles are the node roles each lesson stage is best asked about.
var preferredRoles = map[StageKind][]discourse.Role{
	KindVocab:    {discourse.RoleDefinition, discourse.RoleClaim},
	KindEvidence: {discourse.RoleEvidence, discourse.RoleReport},
	KindWhy:      {discourse.RoleCause, discourse.RoleResult, discourse.RoleClaim},
	KindRandom:   {discourse.RoleContrast, discourse.RoleResult},
}

// ErrNoKeyNodes is returned when a passage yields nothing to ask about.
var ErrNoKeyNodes = errors.New("passage has no key nodes")

// Planner lays out the stages of a session from an analyzed passage.
type Planner struct {
	gen   *question.Generator
	hints *Hints
}

// NewPlanner creates a Planner that asks questions with gen and words
// stage instructions from hints.
func NewPlanner(gen *question.Generator, hints *Hints) *Planner {
	return &Planner{gen: gen, hints: hints}
}

// Plan builds the stage sequence for layout over the key nodes of nodes.
// Generated questions are recorded in history.
func (p *Planner) Plan(layout Layout, nodes []discourse.Node, history *question.History) ([]Stage, error) {
	keys := discourse.KeyNodes(nodes)
	if len(keys) == 0 {
		return nil, ErrNoKeyNodes
	}
	if history == nil {
		history = &question.History{}
	}

	var stages []Stage
	add := func(kind StageKind, n discourse.Node) {
		order := len(stages)
		req := kind.Requirement()
		stages = append(stages, Stage{
			ID:              fmt.Sprintf("%d-%s", order+1, strings.ToLower(string(kind))),
			Kind:            kind,
			Order:           order,
			NodeID:          n.ID,
			Reference:       n.Text,
			Role:            n.PrimaryRole,
			Question:        p.gen.Generate(n, history),
			Instructions:    p.hints.Instructions(kind),
			MinAnswerRunes:  req.MinRunes,
			RequireEvidence: req.RequireEvidence,
			Status:          StagePending,
		})
	}

	switch layout {
	case LayoutLesson:
		used := make([]bool, len(keys))
		for i, kind := range lessonKinds {
			add(kind, keys[bind(keys, used, preferredRoles[kind], i)])
		}
	case LayoutChunk:
		for _, n := range keys {
			for _, kind := range chunkKinds {
				add(kind, n)
			}
		}
	default:
		return nil, fmt.Errorf("unknown session layout %q", layout)
	}
	return stages, nil
}

// bind picks the key node for the i-th lesson stage: the first unused node
// with a preferred role, else the first unused node, else the nodes in
// rotation.
func bind(keys []discourse.Node, used []bool, roles []discourse.Role, i int) int {
	pick := -1
	for j, n := range keys {
		if used[j] {
			continue
		}
		if slices.ContainsFunc(roles, n.HasRole) {
			pick = j
			break
		}
		if pick < 0 {
			pick = j
		}
	}
	if pick < 0 {
		return i % len(keys)
	}
	used[pick] = true
	return pick
}
