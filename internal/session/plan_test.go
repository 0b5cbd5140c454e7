package session

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okdokhae/okdok/internal/discourse"
	"github.com/okdokhae/okdok/internal/question"
)

const passage = "Industrialization changed production methods. " +
	"Consequently, urbanization accelerated and a new laboring class formed."

func newTestPlanner(t *testing.T, seed uint64) *Planner {
	t.Helper()
	cat, err := question.BuiltinCatalog("en")
	require.NoError(t, err)
	hints, err := BuiltinHints("en")
	require.NoError(t, err)
	return NewPlanner(question.NewGenerator(cat, seed), hints)
}

func analyze(text string) []discourse.Node {
	return discourse.New(nil, nil, discourse.DefaultConfig()).Analyze(text)
}

func TestPlan_Lesson(t *testing.T) {
	nodes := analyze(passage)
	keys := discourse.KeyNodes(nodes)
	require.Len(t, keys, 2)

	history := &question.History{}
	stages, err := newTestPlanner(t, 7).Plan(LayoutLesson, nodes, history)
	require.NoError(t, err)
	require.Len(t, stages, 4)

	kinds := []StageKind{KindVocab, KindEvidence, KindWhy, KindRandom}
	ids := []string{"1-vocab", "2-evidence", "3-why", "4-random"}
	mins := []int{20, 30, 40, 20}
	for i, st := range stages {
		assert.Equal(t, kinds[i], st.Kind)
		assert.Equal(t, ids[i], st.ID)
		assert.Equal(t, i, st.Order)
		assert.Equal(t, mins[i], st.MinAnswerRunes)
		assert.Equal(t, st.Kind == KindEvidence, st.RequireEvidence)
		assert.Equal(t, StagePending, st.Status)
		assert.NotEmpty(t, st.Question)
		assert.NotEmpty(t, st.Instructions)
		_, ok := discourse.FindNode(keys, st.NodeID)
		assert.True(t, ok, "stage %s bound to a non-key node", st.ID)
	}

	// The claim sentence is asked about first, the other key node next.
	assert.Equal(t, keys[0].ID, stages[0].NodeID)
	assert.Equal(t, keys[1].ID, stages[1].NodeID)
	assert.Equal(t, keys[1].Text, stages[1].Reference)
	assert.Len(t, *history, 4)
}

func TestPlan_Chunk(t *testing.T) {
	nodes := analyze(passage)
	stages, err := newTestPlanner(t, 7).Plan(LayoutChunk, nodes, nil)
	require.NoError(t, err)
	require.Len(t, stages, 6)

	want := []StageKind{KindQuestion, KindEvidence, KindAnswer, KindQuestion, KindEvidence, KindAnswer}
	for i, st := range stages {
		assert.Equal(t, want[i], st.Kind)
	}
	assert.Equal(t, stages[0].NodeID, stages[2].NodeID)
	assert.NotEqual(t, stages[2].NodeID, stages[3].NodeID)
	assert.Equal(t, 40, stages[2].MinAnswerRunes)
}

func TestPlan_Deterministic(t *testing.T) {
	nodes := analyze(passage)
	a, err := newTestPlanner(t, 42).Plan(LayoutLesson, nodes, nil)
	require.NoError(t, err)
	b, err := newTestPlanner(t, 42).Plan(LayoutLesson, nodes, nil)
	require.NoError(t, err)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different plans")
	}
}

func TestPlan_NoKeyNodes(t *testing.T) {
	_, err := newTestPlanner(t, 1).Plan(LayoutLesson, analyze("   "), nil)
	if !errors.Is(err, ErrNoKeyNodes) {
		t.Fatalf("err = %v, want ErrNoKeyNodes", err)
	}
}

func TestParseLayout(t *testing.T) {
	tests := []struct {
		in      string
		want    Layout
		wantErr bool
	}{
		{"", LayoutLesson, false},
		{"lesson", LayoutLesson, false},
		{" Chunk ", LayoutChunk, false},
		{"quiz", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLayout(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLayout(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestBuiltinHints(t *testing.T) {
	for _, locale := range []string{"en", "ko"} {
		h, err := BuiltinHints(locale)
		require.NoError(t, err, locale)
		for kind := range requirements {
			assert.NotEmpty(t, h.Instructions(kind), "%s %s", locale, kind)
		}
	}
	_, err := BuiltinHints("de")
	assert.Error(t, err)
}
