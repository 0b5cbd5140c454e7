package discourse

import (
	"reflect"
	"testing"
)

const industrialization = "Industrialization changed production methods. " +
	"Consequently, urbanization accelerated and a new laboring class formed."

func newTestAnalyzer() *Analyzer {
	return New(nil, nil, DefaultConfig())
}

func TestAnalyze_IndustrializationExample(t *testing.T) {
	nodes := newTestAnalyzer().Analyze(industrialization)
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d: %+v", len(nodes), nodes)
	}

	if nodes[0].PrimaryRole != RoleClaim {
		t.Errorf("sentence 1 primary role = %q, want claim", nodes[0].PrimaryRole)
	}
	if nodes[1].PrimaryRole != RoleResult {
		t.Errorf("sentence 2 primary role = %q, want result", nodes[1].PrimaryRole)
	}
	for i, n := range nodes {
		if !n.IsKeyNode {
			t.Errorf("node %d should be a key node", i)
		}
	}
}

func TestAnalyze_EmptyPassage(t *testing.T) {
	a := newTestAnalyzer()
	for _, text := range []string{"", "   ", "\n\n", "ok.", "Note: see page 4."} {
		if nodes := a.Analyze(text); len(nodes) != 0 {
			t.Errorf("Analyze(%q) = %d nodes, want 0", text, len(nodes))
		}
	}
}

func TestAnalyze_RolesNeverEmpty(t *testing.T) {
	passage := `Photosynthesis is defined as the process plants use to turn light into sugar.
In 2019, researchers measured 40 percent more growth in 12 greenhouses.
However, the effect faded in colder regions.
The farmers said the new seeds must be adopted nationwide.
Plants grow toward the light in other words they follow the sun.`

	for _, n := range newTestAnalyzer().Analyze(passage) {
		if len(n.Roles) == 0 {
			t.Errorf("node %q has no roles", n.Text)
		}
		if n.PrimaryRole == "" {
			t.Errorf("node %q has no primary role", n.Text)
		}
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := newTestAnalyzer()
	first := a.Analyze(industrialization)
	second := a.Analyze(industrialization)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("re-analysis differs:\n%+v\n%+v", first, second)
	}
	if first[0].ID == first[1].ID {
		t.Fatal("distinct sentences share an ID")
	}
}

func TestNodeID_StableUnderWhitespaceAndCase(t *testing.T) {
	a := NodeID(3, "The  Cell   divides.")
	b := NodeID(3, "the cell divides.")
	if a != b {
		t.Errorf("IDs differ: %s vs %s", a, b)
	}
	if NodeID(4, "the cell divides.") == a {
		t.Error("index must contribute to the ID")
	}
}

func TestPrimaryRole_DefinitionDemotion(t *testing.T) {
	a := newTestAnalyzer()
	tests := []struct {
		text string
		want Role
	}{
		{"A mitochondrion is defined as the powerhouse of the cell.", RoleDefinition},
		{"A republic is a form of government because citizens elect leaders.", RoleCause},
		{"An ecosystem is a kind of network of living things in one place.", RoleGeneral},
		{"민주주의란 국민이 주권을 가지고 스스로 통치하는 정치 제도를 말한다.", RoleDefinition},
	}
	for _, tt := range tests {
		roles := a.detectRoles(tt.text)
		if got := a.primaryRole(tt.text, roles); got != tt.want {
			t.Errorf("primaryRole(%q) = %q, want %q (roles %v)", tt.text, got, tt.want, roles)
		}
	}
}

func TestAnalyze_NoiseFilter(t *testing.T) {
	a := newTestAnalyzer()
	tests := []struct {
		text string
		keep bool
	}{
		{"Thanks!", false},
		{"Summary: the cell divides into two daughter cells.", false},
		{"Cells divide.", false},
		{"Osmosis means water diffusion.", true},
		{"The river flooded the valley because the dam broke in spring.", true},
		{"The weather was pleasant and everyone enjoyed the picnic lunch.", false},
		{"The festival drew 4000 visitors over the long weekend.", true},
	}
	for _, tt := range tests {
		nodes := a.AnalyzeSentences([]string{tt.text})
		if got := len(nodes) == 1; got != tt.keep {
			t.Errorf("keep(%q) = %v, want %v", tt.text, got, tt.keep)
		}
	}
}

func TestScore_Bonuses(t *testing.T) {
	a := newTestAnalyzer()
	plain := a.AnalyzeSentences([]string{
		"Filler sentence so the scored one is not first in line.",
		"Researchers argued that cities must expand their transit networks soon.",
		"Another filler sentence so the scored one is not the last line.",
	})
	var claim Node
	for _, n := range plain {
		if n.Index == 1 {
			claim = n
		}
	}
	if claim.PrimaryRole != RoleClaim {
		t.Fatalf("primary = %q, want claim", claim.PrimaryRole)
	}
	// base 3.0 + secondary report 0.3 + reporting bonus 0.5
	if claim.ImportanceScore != 3.8 {
		t.Errorf("score = %v, want 3.8", claim.ImportanceScore)
	}
}

func TestSelectKeyNodes_AnchorAndRoleCap(t *testing.T) {
	nodes := []Node{
		{Index: 0, PrimaryRole: RoleResult, ImportanceScore: 4.0},
		{Index: 1, PrimaryRole: RoleResult, ImportanceScore: 3.9},
		{Index: 2, PrimaryRole: RoleResult, ImportanceScore: 3.8},
		{Index: 3, PrimaryRole: RoleEvidence, ImportanceScore: 1.5},
		{Index: 4, PrimaryRole: RoleClaim, ImportanceScore: 1.0},
	}
	selectKeyNodes(nodes, 3, 2)

	var got []int
	for _, n := range nodes {
		if n.IsKeyNode {
			got = append(got, n.Index)
		}
	}
	want := []int{0, 1, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("key nodes = %v, want %v", got, want)
	}
}

func TestSelectKeyNodes_RelaxesCap(t *testing.T) {
	nodes := []Node{
		{Index: 0, PrimaryRole: RoleCause, ImportanceScore: 2.5},
		{Index: 1, PrimaryRole: RoleCause, ImportanceScore: 2.4},
		{Index: 2, PrimaryRole: RoleCause, ImportanceScore: 2.3},
		{Index: 3, PrimaryRole: RoleCause, ImportanceScore: 2.2},
	}
	selectKeyNodes(nodes, 3, 2)

	count := 0
	for _, n := range nodes {
		if n.IsKeyNode {
			count++
		}
	}
	if count != 3 {
		t.Errorf("selected %d, want 3 after relaxing the cap", count)
	}
	if nodes[3].IsKeyNode {
		t.Error("lowest-scoring node should not be selected")
	}
}

func TestAnalyze_FewerSentencesThanK(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeyNodes = 5
	nodes := New(nil, nil, cfg).Analyze(industrialization)
	if got := len(KeyNodes(nodes)); got != 2 {
		t.Errorf("key nodes = %d, want 2", got)
	}
}
