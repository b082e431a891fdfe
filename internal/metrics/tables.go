package metrics

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Archetype string

const (
	ArchetypeSaaS          Archetype = "saas"
	ArchetypeServices      Archetype = "services"
	ArchetypeEcommerce     Archetype = "ecommerce"
	ArchetypeManufacturing Archetype = "manufacturing"
)

// Benchmark is industry-typical performance for an archetype.
type Benchmark struct {
	Label            string  `json:"label" yaml:"label"`
	ConversionRate   float64 `json:"conversionRate" yaml:"conversion_rate"`
	SalesCycleMonths float64 `json:"salesCycleMonths" yaml:"sales_cycle_months"`
	AvgDealSize      float64 `json:"avgDealSize" yaml:"avg_deal_size"`
}

// ArchetypeMatch lists keywords that select an archetype from a free-text
// business type. Matchers are tried in order.
type ArchetypeMatch struct {
	Archetype Archetype `yaml:"archetype"`
	Keywords  []string  `yaml:"keywords"`
}

// CostAssumptions drives every cost and investment figure.
type CostAssumptions struct {
	MonthlySalary           float64 `json:"monthlySalary" yaml:"monthly_salary"`
	BenefitsMultiplier      float64 `json:"benefitsMultiplier" yaml:"benefits_multiplier"`
	OverheadMultiplier      float64 `json:"overheadMultiplier" yaml:"overhead_multiplier"`
	PerToolMonthlyCost      float64 `json:"perToolMonthlyCost" yaml:"per_tool_monthly_cost"`
	AnnualDiscountRate      float64 `json:"annualDiscountRate" yaml:"annual_discount_rate"`
	TargetEfficiencyGain    float64 `json:"targetEfficiencyGain" yaml:"target_efficiency_gain"`
	TargetAutomationLevel   float64 `json:"targetAutomationLevel" yaml:"target_automation_level"`
	SetupBase               float64 `json:"setupBase" yaml:"setup_base"`
	ComplexityPerTool       float64 `json:"complexityPerTool" yaml:"complexity_per_tool"`
	ComplexityToolCap       int     `json:"complexityToolCap" yaml:"complexity_tool_cap"`
	BudgetBaseline          float64 `json:"budgetBaseline" yaml:"budget_baseline"`
	BudgetRatioMin          float64 `json:"budgetRatioMin" yaml:"budget_ratio_min"`
	BudgetRatioMax          float64 `json:"budgetRatioMax" yaml:"budget_ratio_max"`
	TrainingPerPerson       float64 `json:"trainingPerPerson" yaml:"training_per_person"`
	SolutionToolMonthlyCost float64 `json:"solutionToolMonthlyCost" yaml:"solution_tool_monthly_cost"`
}

// Tables bundles the fixed lookup data the calculator reads.
type Tables struct {
	Benchmarks       map[Archetype]Benchmark `yaml:"benchmarks"`
	Archetypes       []ArchetypeMatch        `yaml:"archetypes"`
	DefaultArchetype Archetype               `yaml:"default_archetype"`
	Costs            CostAssumptions         `yaml:"costs"`
}

// Fixed model constants that are not deployment-tunable.
const (
	ConfidenceDiscount     = 0.9
	MaxImprovementMultiple = 2.5
	TargetCycleFactor      = 0.6
	WeeksPerMonth          = 4.33
	HoursPerWeek           = 40
	IRRMin                 = -0.5
	IRRMax                 = 2.0
	minConversion          = 0.001
)

var DefaultBenchmarks = map[Archetype]Benchmark{
	ArchetypeSaaS: {
		Label:            "B2B SaaS",
		ConversionRate:   0.15,
		SalesCycleMonths: 2,
		AvgDealSize:      12000,
	},
	ArchetypeServices: {
		Label:            "Professional services",
		ConversionRate:   0.20,
		SalesCycleMonths: 1.5,
		AvgDealSize:      8000,
	},
	ArchetypeEcommerce: {
		Label:            "E-commerce",
		ConversionRate:   0.03,
		SalesCycleMonths: 0.25,
		AvgDealSize:      150,
	},
	ArchetypeManufacturing: {
		Label:            "Manufacturing & distribution",
		ConversionRate:   0.12,
		SalesCycleMonths: 4,
		AvgDealSize:      50000,
	},
}

var DefaultArchetypes = []ArchetypeMatch{
	{ArchetypeSaaS, []string{"saas", "software", "platform", "subscription", "cloud"}},
	{ArchetypeEcommerce, []string{"e-commerce", "ecommerce", "online store", "retail", "shop", "dtc", "d2c", "marketplace"}},
	{ArchetypeManufacturing, []string{"manufactur", "factory", "industrial", "distribut", "wholesale", "fabrication"}},
	{ArchetypeServices, []string{"agency", "consult", "service", "firm", "advisory", "professional"}},
}

var DefaultCosts = CostAssumptions{
	MonthlySalary:           6250,
	BenefitsMultiplier:      1.3,
	OverheadMultiplier:      1.2,
	PerToolMonthlyCost:      150,
	AnnualDiscountRate:      0.10,
	TargetEfficiencyGain:    0.25,
	TargetAutomationLevel:   0.6,
	SetupBase:               10000,
	ComplexityPerTool:       0.05,
	ComplexityToolCap:       10,
	BudgetBaseline:          25000,
	BudgetRatioMin:          0.5,
	BudgetRatioMax:          2.0,
	TrainingPerPerson:       500,
	SolutionToolMonthlyCost: 200,
}

func DefaultTables() Tables {
	bench := make(map[Archetype]Benchmark, len(DefaultBenchmarks))
	for k, v := range DefaultBenchmarks {
		bench[k] = v
	}
	matches := make([]ArchetypeMatch, len(DefaultArchetypes))
	copy(matches, DefaultArchetypes)
	return Tables{
		Benchmarks:       bench,
		Archetypes:       matches,
		DefaultArchetype: ArchetypeServices,
		Costs:            DefaultCosts,
	}
}

// LoadTables reads YAML overrides from path and layers them over the defaults.
// Keys absent from the file keep their default values.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read tables %s: %w", path, err)
	}
	t := DefaultTables()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, fmt.Errorf("parse tables %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return Tables{}, fmt.Errorf("tables %s: %w", path, err)
	}
	return t, nil
}

func (t Tables) Validate() error {
	if _, ok := t.Benchmarks[t.DefaultArchetype]; !ok {
		return fmt.Errorf("default archetype %q has no benchmark", t.DefaultArchetype)
	}
	for a, b := range t.Benchmarks {
		if !(b.ConversionRate > 0 && b.ConversionRate <= 1) {
			return fmt.Errorf("%s: conversion rate must be in (0, 1]", a)
		}
		if b.SalesCycleMonths <= 0 {
			return fmt.Errorf("%s: sales cycle must be > 0", a)
		}
		if b.AvgDealSize <= 0 {
			return fmt.Errorf("%s: deal size must be > 0", a)
		}
	}
	for _, m := range t.Archetypes {
		if _, ok := t.Benchmarks[m.Archetype]; !ok {
			return fmt.Errorf("archetype %q has keywords but no benchmark", m.Archetype)
		}
	}
	c := t.Costs
	if c.SetupBase <= 0 || c.BudgetBaseline <= 0 {
		return fmt.Errorf("setup base and budget baseline must be > 0")
	}
	if c.BudgetRatioMin <= 0 || c.BudgetRatioMin > c.BudgetRatioMax {
		return fmt.Errorf("budget ratio bounds invalid: [%v, %v]", c.BudgetRatioMin, c.BudgetRatioMax)
	}
	if c.MonthlySalary < 0 || c.PerToolMonthlyCost < 0 || c.SolutionToolMonthlyCost < 0 || c.TrainingPerPerson < 0 {
		return fmt.Errorf("costs must not be negative")
	}
	return nil
}

// InferArchetype matches keywords against a business-type string and falls
// back to the default archetype.
func (t Tables) InferArchetype(businessType string) Archetype {
	s := strings.ToLower(businessType)
	for _, m := range t.Archetypes {
		for _, kw := range m.Keywords {
			if kw != "" && strings.Contains(s, kw) {
				return m.Archetype
			}
		}
	}
	return t.DefaultArchetype
}

// Benchmark returns the benchmark for an archetype, or the default one.
func (t Tables) Benchmark(a Archetype) Benchmark {
	if b, ok := t.Benchmarks[a]; ok {
		return b
	}
	return t.Benchmarks[t.DefaultArchetype]
}
