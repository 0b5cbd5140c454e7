// Package question turns a key node into a probing question by filling
// a role-specific template with an entity and a snippet from the node.
package question

import (
	"embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okdokhae/okdok/internal/discourse"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// Strategy is the pedagogical move a template makes.
type Strategy string

const (
	StrategyRecall           Strategy = "recall"
	StrategyPerspectiveShift Strategy = "perspective_shift"
	StrategyCausalChain      Strategy = "causal_chain"
	StrategyCounterExample   Strategy = "counter_example"
	StrategySummarization    Strategy = "summarization"
)

// Template is one question pattern. Text may contain {entity} and
// {snippet} placeholders.
type Template struct {
	ID       string   `yaml:"id" json:"id"`
	Strategy Strategy `yaml:"strategy" json:"strategy"`
	Weight   float64  `yaml:"weight" json:"weight"`
	Text     string   `yaml:"text" json:"text"`
}

// Catalog holds the template families for one locale.
type Catalog struct {
	Locale         string                        `yaml:"locale"`
	Fallback       string                        `yaml:"fallback"`
	FallbackEntity string                        `yaml:"fallback_entity"`
	Families       map[discourse.Role][]Template `yaml:"families"`
}

// Family returns the templates for role, falling back to the general
// family when role has none.
func (c *Catalog) Family(role discourse.Role) []Template {
	if f := c.Families[role]; len(f) > 0 {
		return f
	}
	return c.Families[discourse.RoleGeneral]
}

// Validate checks that every role has a family and every template is usable.
func (c *Catalog) Validate() error {
	if c.Fallback == "" {
		return fmt.Errorf("catalog %q: fallback question is required", c.Locale)
	}
	for _, role := range discourse.AllRoles() {
		fam := c.Families[role]
		if len(fam) == 0 {
			return fmt.Errorf("catalog %q: no templates for role %q", c.Locale, role)
		}
		for _, t := range fam {
			if t.ID == "" || strings.TrimSpace(t.Text) == "" {
				return fmt.Errorf("catalog %q: role %q has a template without id or text", c.Locale, role)
			}
			if t.Weight <= 0 {
				return fmt.Errorf("catalog %q: template %s has non-positive weight", c.Locale, t.ID)
			}
		}
	}
	return nil
}

// LoadCatalog parses and validates a catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode template catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// BuiltinCatalog returns the embedded catalog for locale ("en" or "ko").
func BuiltinCatalog(locale string) (*Catalog, error) {
	f, err := templateFS.Open("templates/" + locale + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no built-in templates for locale %q", locale)
	}
	defer f.Close()
	return LoadCatalog(f)
}
