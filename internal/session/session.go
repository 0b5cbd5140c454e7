// Package session is the Stage-Gate: the state machine that moves a reader
// through an ordered list of stages, scoring each answer, retrying with
// hints on failure and escalating the tutoring strategy when a stage keeps
// failing.
package session

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/okdokhae/okdok/internal/discourse"
	"github.com/okdokhae/okdok/internal/evaluation"
	"github.com/okdokhae/okdok/internal/screening"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
)

// StageStatus is the state of one stage.
type StageStatus string

const (
	StagePending StageStatus = "PENDING"
	StagePassed  StageStatus = "PASSED"
)

// StageKind is the type of task a stage asks for.
type StageKind string

const (
	KindVocab    StageKind = "VOCAB"
	KindEvidence StageKind = "EVIDENCE"
	KindWhy      StageKind = "WHY"
	KindRandom   StageKind = "RANDOM"
	KindQuestion StageKind = "QUESTION"
	KindAnswer   StageKind = "ANSWER"
)

// requirements are the per-kind minimum answer lengths in runes and
// whether an evidence sentence must be selected.
var requirements = map[StageKind]screening.Requirement{
	KindVocab:    {MinRunes: 20},
	KindEvidence: {MinRunes: 30, RequireEvidence: true},
	KindWhy:      {MinRunes: 40},
	KindRandom:   {MinRunes: 20},
	KindQuestion: {MinRunes: 20},
	KindAnswer:   {MinRunes: 40},
}

// Requirement returns the screening requirement for kind.
func (k StageKind) Requirement() screening.Requirement {
	return requirements[k]
}

// Stage is one task of a session, bound to a key node of the passage.
type Stage struct {
	ID              string         `json:"id"`
	Kind            StageKind      `json:"kind"`
	Order           int            `json:"order"`
	NodeID          string         `json:"node_id"`
	Reference       string         `json:"reference"`
	Role            discourse.Role `json:"role"`
	Question        string         `json:"question"`
	Instructions    string         `json:"instructions,omitempty"`
	MinAnswerRunes  int            `json:"min_answer_runes"`
	RequireEvidence bool           `json:"require_evidence"`
	Status          StageStatus    `json:"status"`
}

// Requirement returns what the stage demands before an answer is scored.
func (s Stage) Requirement() screening.Requirement {
	return screening.Requirement{MinRunes: s.MinAnswerRunes, RequireEvidence: s.RequireEvidence}
}

// EvidenceCard is a passage sentence the reader may cite as evidence.
type EvidenceCard struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Submission is one answer to a stage, with the verdict it received.
type Submission struct {
	StageID     string            `json:"stage_id"`
	StageIndex  int               `json:"stage_index"`
	Answer      string            `json:"answer"`
	EvidenceIDs []string          `json:"evidence_ids,omitempty"`
	Result      evaluation.Result `json:"result"`
	Action      ActionKind        `json:"action"`
	Strategy    Strategy          `json:"strategy"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Session is the mutable state of one reader working through a passage.
// CurrentStageIndex and Strategy are independent: the index only moves on
// a pass, the strategy only changes on escalation or a pass.
type Session struct {
	ID                string         `json:"id"`
	WorkID            string         `json:"work_id"`
	Layout            Layout         `json:"layout"`
	Stages            []Stage        `json:"stages"`
	Evidence          []EvidenceCard `json:"evidence"`
	CurrentStageIndex int            `json:"current_stage_index"`
	Retries           map[string]int `json:"retries"`
	Strategy          Strategy       `json:"strategy"`
	Status            Status         `json:"status"`
	History           []Submission   `json:"history"`
	QuestionHistory   []string       `json:"question_history"`
	Version           int            `json:"version"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// New creates a session over stages with a fresh id. Every passage
// sentence becomes an evidence card.
func New(workID string, layout Layout, stages []Stage, nodes []discourse.Node, now time.Time) *Session {
	cards := make([]EvidenceCard, len(nodes))
	for i, n := range nodes {
		cards[i] = EvidenceCard{ID: n.ID, Text: n.Text}
	}
	var questions []string
	for _, st := range stages {
		questions = append(questions, st.Question)
	}
	return &Session{
		ID:              uuid.NewString(),
		WorkID:          workID,
		Layout:          layout,
		Stages:          stages,
		Evidence:        cards,
		Retries:         make(map[string]int),
		Strategy:        StrategySocratic,
		Status:          StatusCreated,
		QuestionHistory: questions,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CurrentStage returns the stage awaiting an answer, or nil once the
// session is completed.
func (s *Session) CurrentStage() *Stage {
	if s.CurrentStageIndex < 0 || s.CurrentStageIndex >= len(s.Stages) {
		return nil
	}
	return &s.Stages[s.CurrentStageIndex]
}

// StageIndex returns the index of the stage with id, or -1.
func (s *Session) StageIndex(id string) int {
	return slices.IndexFunc(s.Stages, func(st Stage) bool { return st.ID == id })
}

// RecentAnswers returns up to n of the latest submitted answers, oldest
// first.
func (s *Session) RecentAnswers(n int) []string {
	start := max(0, len(s.History)-n)
	out := make([]string, 0, len(s.History)-start)
	for _, sub := range s.History[start:] {
		out = append(out, sub.Answer)
	}
	return out
}

// knownEvidence keeps the ids that name an evidence card, in order and
// without duplicates.
func (s *Session) knownEvidence(ids []string) []string {
	var out []string
	for _, id := range ids {
		if slices.Contains(out, id) {
			continue
		}
		if slices.ContainsFunc(s.Evidence, func(c EvidenceCard) bool { return c.ID == id }) {
			out = append(out, id)
		}
	}
	return out
}

// Completed reports whether every stage has been passed.
func (s *Session) Completed() bool { return s.Status == StatusCompleted }
