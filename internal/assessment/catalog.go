package assessment

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Option is one selectable answer at a tier.
type Option struct {
	ID          string `json:"id" yaml:"id"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type OpportunityArea struct {
	Option     `yaml:",inline"`
	Challenges []string `yaml:"challenges"`
}

type Category struct {
	Option           `yaml:",inline"`
	RevenueModels    []string          `yaml:"revenue_models"`
	OpportunityAreas []OpportunityArea `yaml:"opportunity_areas"`
}

type Challenge struct {
	Option  `yaml:",inline"`
	Metrics []string `yaml:"metrics"`
}

type Metric struct {
	Option `yaml:",inline"`
	Unit   string `yaml:"unit"`
}

// Catalog holds every option the interview can offer. Downstream option sets
// are derived from earlier selections: categories own opportunity areas and
// revenue models, opportunity areas reference challenges, challenges reference
// metrics.
type Catalog struct {
	Categories    []Category  `yaml:"categories"`
	RevenueModels []Option    `yaml:"revenue_models"`
	Challenges    []Challenge `yaml:"challenges"`
	Metrics       []Metric    `yaml:"metrics"`
}

// DefaultCatalog parses the embedded catalog. The embedded file is validated by
// tests, so a parse failure here is a build defect.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog invalid: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog override from disk.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ids are unique and every reference resolves.
func (c *Catalog) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("catalog has no categories")
	}
	revenue := map[string]bool{}
	for _, r := range c.RevenueModels {
		if err := checkOption("revenue model", r, revenue); err != nil {
			return err
		}
	}
	metrics := map[string]bool{}
	for _, m := range c.Metrics {
		if err := checkOption("metric", m.Option, metrics); err != nil {
			return err
		}
	}
	challenges := map[string]bool{}
	for _, ch := range c.Challenges {
		if err := checkOption("challenge", ch.Option, challenges); err != nil {
			return err
		}
		if len(ch.Metrics) == 0 {
			return fmt.Errorf("challenge %q has no metrics", ch.ID)
		}
		for _, id := range ch.Metrics {
			if !metrics[id] {
				return fmt.Errorf("challenge %q references unknown metric %q", ch.ID, id)
			}
		}
	}
	categories := map[string]bool{}
	for _, cat := range c.Categories {
		if err := checkOption("category", cat.Option, categories); err != nil {
			return err
		}
		if len(cat.RevenueModels) == 0 {
			return fmt.Errorf("category %q has no revenue models", cat.ID)
		}
		for _, id := range cat.RevenueModels {
			if !revenue[id] {
				return fmt.Errorf("category %q references unknown revenue model %q", cat.ID, id)
			}
		}
		if len(cat.OpportunityAreas) == 0 {
			return fmt.Errorf("category %q has no opportunity areas", cat.ID)
		}
		areas := map[string]bool{}
		for _, area := range cat.OpportunityAreas {
			if err := checkOption("opportunity area in "+cat.ID, area.Option, areas); err != nil {
				return err
			}
			if len(area.Challenges) == 0 {
				return fmt.Errorf("opportunity area %q in %q has no challenges", area.ID, cat.ID)
			}
			for _, id := range area.Challenges {
				if !challenges[id] {
					return fmt.Errorf("opportunity area %q references unknown challenge %q", area.ID, id)
				}
			}
		}
	}
	return nil
}

func checkOption(kind string, o Option, seen map[string]bool) error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("%s with empty id", kind)
	}
	if strings.TrimSpace(o.Label) == "" {
		return fmt.Errorf("%s %q has empty label", kind, o.ID)
	}
	if seen[o.ID] {
		return fmt.Errorf("duplicate %s %q", kind, o.ID)
	}
	seen[o.ID] = true
	return nil
}

func (c *Catalog) category(id string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}

func (c *Catalog) opportunityArea(categoryID, areaID string) (OpportunityArea, bool) {
	cat, ok := c.category(categoryID)
	if !ok {
		return OpportunityArea{}, false
	}
	for _, a := range cat.OpportunityAreas {
		if a.ID == areaID {
			return a, true
		}
	}
	return OpportunityArea{}, false
}

func (c *Catalog) challenge(id string) (Challenge, bool) {
	for _, ch := range c.Challenges {
		if ch.ID == id {
			return ch, true
		}
	}
	return Challenge{}, false
}

func (c *Catalog) revenueModel(id string) (Option, bool) {
	for _, r := range c.RevenueModels {
		if r.ID == id {
			return r, true
		}
	}
	return Option{}, false
}

func (c *Catalog) metric(id string) (Metric, bool) {
	for _, m := range c.Metrics {
		if m.ID == id {
			return m, true
		}
	}
	return Metric{}, false
}

// Label resolves an option id to its display label for the given kind of tier,
// falling back to the id itself.
func (c *Catalog) Label(tier Tier, id string) string {
	var (
		o  Option
		ok bool
	)
	switch tier {
	case TierCategory:
		var cat Category
		cat, ok = c.category(id)
		o = cat.Option
	case TierRevenueModel:
		o, ok = c.revenueModel(id)
	case TierChallenge:
		var ch Challenge
		ch, ok = c.challenge(id)
		o = ch.Option
	case TierMetric:
		var m Metric
		m, ok = c.metric(id)
		o = m.Option
	case TierOpportunity:
		for _, cat := range c.Categories {
			for _, a := range cat.OpportunityAreas {
				if a.ID == id {
					return a.Label
				}
			}
		}
	}
	if ok && o.Label != "" {
		return o.Label
	}
	return id
}
