package discourse

// Role is a rhetorical role a sentence can play in a passage.
type Role string

const (
	RoleDefinition Role = "definition"
	RoleClaim      Role = "claim"
	RoleResult     Role = "result"
	RoleCause      Role = "cause"
	RoleEvidence   Role = "evidence"
	RoleContrast   Role = "contrast"
	RoleReport     Role = "report"
	RoleGeneral    Role = "general"
)

// Priority lists roles from most to least important. The first matched
// role in this order becomes a sentence's primary role.
var Priority = []Role{
	RoleDefinition,
	RoleClaim,
	RoleResult,
	RoleCause,
	RoleEvidence,
	RoleContrast,
	RoleReport,
	RoleGeneral,
}

// AllRoles returns every role in priority order.
func AllRoles() []Role {
	out := make([]Role, len(Priority))
	copy(out, Priority)
	return out
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, p := range Priority {
		if p == r {
			return true
		}
	}
	return false
}

func (r Role) rank() int {
	for i, p := range Priority {
		if p == r {
			return i
		}
	}
	return len(Priority)
}

// Node is one analysed sentence. Nodes are values and are never mutated
// after Analyze returns them.
type Node struct {
	// ID is a content hash of the sentence index and its normalized text,
	// stable across re-analysis of identical passages.
	ID string `json:"id"`

	// Index is the sentence position in the segmented passage, counting
	// sentences removed by the noise filter.
	Index int `json:"index"`

	Text string `json:"text"`

	// Roles holds every matched role in priority order. Never empty.
	Roles []Role `json:"roles"`

	PrimaryRole Role `json:"primary_role"`

	Keywords []string `json:"keywords"`

	ImportanceScore float64 `json:"importance_score"`

	IsKeyNode bool `json:"is_key_node"`
}

// HasRole reports whether the node carries role r.
func (n Node) HasRole(r Role) bool {
	for _, x := range n.Roles {
		if x == r {
			return true
		}
	}
	return false
}

// KeyNodes returns the key nodes from nodes, preserving passage order.
func KeyNodes(nodes []Node) []Node {
	var out []Node
	for _, n := range nodes {
		if n.IsKeyNode {
			out = append(out, n)
		}
	}
	return out
}

// FindNode returns the node with the given ID.
func FindNode(nodes []Node, id string) (Node, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
