// Package discourse tags passage sentences with rhetorical roles, scores
// their pedagogical importance and selects a diverse set of key nodes to
// question the learner on.
package discourse

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/okdokhae/okdok/internal/cues"
	"github.com/okdokhae/okdok/internal/lexicon"
	"github.com/okdokhae/okdok/internal/segment"
)

// Analyzer turns passage text into scored sentence nodes.
// It holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	cues *cues.Table
	seg  *segment.Segmenter
	cfg  Config
}

// New creates an Analyzer. A nil table or segmenter selects the built-in
// defaults.
func New(table *cues.Table, seg *segment.Segmenter, cfg Config) *Analyzer {
	if table == nil {
		table = cues.Default()
	}
	if seg == nil {
		seg = segment.New(segment.Default)
	}
	return &Analyzer{cues: table, seg: seg, cfg: cfg}
}

// Config returns the analyzer's constants.
func (a *Analyzer) Config() Config { return a.cfg }

// Segment splits text into sentences with the analyzer's segmenter.
func (a *Analyzer) Segment(text string) []string {
	return a.seg.Split(text)
}

// Analyze segments text and returns its surviving sentence nodes in
// passage order, with IsKeyNode set on the selected subset. An empty or
// fully filtered passage yields an empty slice.
func (a *Analyzer) Analyze(text string) []Node {
	return a.AnalyzeSentences(a.seg.Split(text))
}

// AnalyzeSentences is Analyze over pre-segmented sentences.
func (a *Analyzer) AnalyzeSentences(sentences []string) []Node {
	total := len(sentences)
	nodes := []Node{}

	for i, s := range sentences {
		if a.isNoise(s) {
			continue
		}

		roles := a.detectRoles(s)
		if len(roles) == 1 && roles[0] == RoleGeneral && !a.keepGeneral(s) {
			continue
		}

		n := Node{
			ID:          NodeID(i, s),
			Index:       i,
			Text:        s,
			Roles:       roles,
			PrimaryRole: a.primaryRole(s, roles),
			Keywords:    keywords(s, a.cfg.MaxKeywords),
		}
		n.ImportanceScore = a.score(n, total)
		nodes = append(nodes, n)
	}

	selectKeyNodes(nodes, a.cfg.KeyNodes, a.cfg.RoleCap)
	return nodes
}

// NodeID hashes a sentence index and its normalized text.
func NodeID(index int, text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d\x00%s", index, lexicon.Normalize(text))))
	return hex.EncodeToString(sum[:8])
}

// isNoise drops meta lines, backchannel and very short fragments.
func (a *Analyzer) isNoise(s string) bool {
	if a.cues.IsMeta(s) || a.cues.IsBackchannel(s) {
		return true
	}
	short := utf8.RuneCountInString(s) < a.cfg.NoiseMinRunes &&
		len(lexicon.Words(s)) < a.cfg.NoiseMinTokens
	return short && !a.cues.HasDefiningPhrase(s)
}

// detectRoles returns every role whose cues match, in priority order.
func (a *Analyzer) detectRoles(s string) []Role {
	var roles []Role
	for _, r := range Priority {
		if r == RoleGeneral {
			continue
		}
		if a.cues.MatchRole(string(r), s) {
			roles = append(roles, r)
		}
	}
	if len(roles) == 0 {
		return []Role{RoleGeneral}
	}
	return roles
}

// keepGeneral decides whether an untagged sentence carries enough signal
// to stay in the key-node pool.
func (a *Analyzer) keepGeneral(s string) bool {
	return lexicon.HasDigit(s) || a.cues.HasConnective(s) || a.cues.HasRestatement(s)
}

// primaryRole picks the highest-priority role, demoting a definition that
// lacks an explicit defining phrase.
func (a *Analyzer) primaryRole(s string, roles []Role) Role {
	primary := roles[0]
	if primary != RoleDefinition || a.cues.HasDefiningPhrase(s) {
		return primary
	}
	if len(roles) > 1 {
		return roles[1]
	}
	return RoleGeneral
}

var quotedSpan = regexp.MustCompile(`"[^"]+"|“[^”]+”|「[^」]+」|『[^』]+』|'[^']{2,}'`)

func (a *Analyzer) score(n Node, total int) float64 {
	cfg := a.cfg
	score := cfg.BaseWeights[n.PrimaryRole]

	for _, r := range n.Roles {
		if r != n.PrimaryRole && r != RoleGeneral {
			score += cfg.SecondaryRoleBonus
		}
	}

	if lexicon.CountDigitGroups(n.Text) >= 2 && a.cues.HasMeasure(n.Text) {
		score += cfg.MeasureBonus
	}
	if quotedSpan.MatchString(n.Text) {
		score += cfg.QuoteBonus
	}
	if n.Index == 0 || n.Index == total-1 {
		score += cfg.PositionBonus
	}
	if (n.PrimaryRole == RoleClaim || n.PrimaryRole == RoleResult) && a.cues.MatchRole(string(RoleReport), n.Text) {
		score += cfg.ReportingBonus
	}
	if utf8.RuneCountInString(n.Text) < cfg.ShortRunes {
		score -= cfg.ShortPenalty
	}

	return math.Round(score*1000) / 1000
}

func keywords(s string, max int) []string {
	toks := lexicon.UniqueTokens(s)
	if max > 0 && len(toks) > max {
		toks = toks[:max]
	}
	if toks == nil {
		toks = []string{}
	}
	return toks
}

// selectKeyNodes marks up to k nodes as key nodes: an anchor slot for the
// best definition or claim, then greedy by score with at most roleCap
// nodes per primary role, then greedy regardless of role.
func selectKeyNodes(nodes []Node, k, roleCap int) {
	if k <= 0 || len(nodes) == 0 {
		return
	}

	order := make([]int, len(nodes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return nodes[order[x]].ImportanceScore > nodes[order[y]].ImportanceScore
	})

	selected := make(map[int]bool, k)
	perRole := make(map[Role]int)
	pick := func(i int) {
		selected[i] = true
		perRole[nodes[i].PrimaryRole]++
	}

	for _, i := range order {
		if r := nodes[i].PrimaryRole; r == RoleDefinition || r == RoleClaim {
			pick(i)
			break
		}
	}

	for _, i := range order {
		if len(selected) >= k {
			break
		}
		if selected[i] || (roleCap > 0 && perRole[nodes[i].PrimaryRole] >= roleCap) {
			continue
		}
		pick(i)
	}

	for _, i := range order {
		if len(selected) >= k {
			break
		}
		if !selected[i] {
			pick(i)
		}
	}

	for i := range selected {
		nodes[i].IsKeyNode = true
	}
}
