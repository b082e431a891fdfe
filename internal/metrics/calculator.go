package metrics

import (
	"math"

	"github.com/joelkehle/discovery-assessment/internal/extraction"
)

type Current struct {
	ConversionRate          float64 `json:"conversionRate"`
	SalesCycleMonths        float64 `json:"salesCycleMonths"`
	AvgDealSize             float64 `json:"avgDealSize"`
	MonthlyDeals            float64 `json:"monthlyDeals"`
	TeamSize                int     `json:"teamSize"`
	StackCount              int     `json:"stackCount"`
	MonthlyRevenue          float64 `json:"monthlyRevenue"`
	TeamCost                float64 `json:"teamCost"`
	ToolCost                float64 `json:"toolCost"`
	OpportunityCost         float64 `json:"opportunityCost"`
	TotalMonthlyCost        float64 `json:"totalMonthlyCost"`
	RevenuePerEmployee      float64 `json:"revenuePerEmployee"`
	CustomerAcquisitionCost float64 `json:"customerAcquisitionCost"`
}

type Target struct {
	ConversionRate   float64 `json:"conversionRate"`
	SalesCycleMonths float64 `json:"salesCycleMonths"`
	MonthlyRevenue   float64 `json:"monthlyRevenue"`
}

// Improvement holds target-minus-current deltas. Change fields are fractions of
// the current value (0.25 = +25%).
type Improvement struct {
	ConversionDelta      float64 `json:"conversionDelta"`
	ConversionChange     float64 `json:"conversionChange"`
	RevenueDelta         float64 `json:"revenueDelta"`
	RevenueChange        float64 `json:"revenueChange"`
	CycleReductionMonths float64 `json:"cycleReductionMonths"`
	CycleChange          float64 `json:"cycleChange"`
	CycleHoursSaved      float64 `json:"cycleHoursSaved"`
	CostReduction        float64 `json:"costReduction"`
}

// ROI figures. PaybackMonths is only meaningful when PaybackDefined is true;
// it is zero otherwise so no Inf or NaN ever leaves the calculator.
type ROI struct {
	SetupCost       float64 `json:"setupCost"`
	TrainingCost    float64 `json:"trainingCost"`
	AnnualToolCost  float64 `json:"annualToolCost"`
	TotalInvestment float64 `json:"totalInvestment"`
	MonthlyReturn   float64 `json:"monthlyReturn"`
	PaybackMonths   float64 `json:"paybackMonths"`
	PaybackDefined  bool    `json:"paybackDefined"`
	YearOneROI      float64 `json:"yearOneRoi"`
	ThreeYearROI    float64 `json:"threeYearRoi"`
	IRR             float64 `json:"irr"`
}

type PreCalculatedMetrics struct {
	Archetype   Archetype               `json:"archetype"`
	Benchmarks  map[Archetype]Benchmark `json:"benchmarks"`
	Current     Current                 `json:"current"`
	Target      Target                  `json:"target"`
	Improvement Improvement             `json:"improvement"`
	ROI         ROI                     `json:"roi"`
	Confidence  float64                 `json:"confidence"`
	Sensitivity []SensitivityDriver     `json:"sensitivity"`
}

// Calculate derives every metric from validated data. It never fails: each
// denominator is guarded so incomplete data still yields finite numbers.
func Calculate(data extraction.ValidatedAssessmentData, tables Tables) PreCalculatedMetrics {
	in := inputsFrom(data, tables)
	out := compute(in)
	out.Sensitivity = computeSensitivity(in)
	return out
}

// inputs is everything compute reads, flattened so the sensitivity pass can
// perturb one assumption at a time.
type inputs struct {
	archetype  Archetype
	bench      Benchmark
	costs      CostAssumptions
	conversion float64
	cycle      float64
	dealSize   float64
	deals      float64
	teamSize   int
	stackCount int
	budget     extraction.BudgetRange
	confidence float64
}

func inputsFrom(data extraction.ValidatedAssessmentData, tables Tables) inputs {
	arch := tables.InferArchetype(data.BusinessType)
	p := data.Parsed
	return inputs{
		archetype:  arch,
		bench:      tables.Benchmark(arch),
		costs:      tables.Costs,
		conversion: p.ConversionRate,
		cycle:      p.SalesCycleMonths,
		dealSize:   p.AvgDealSize,
		deals:      p.MonthlyDeals,
		teamSize:   len(p.TeamMembers),
		stackCount: len(p.StackComponents),
		budget:     p.Budget,
		confidence: data.Validation.Confidence * ConfidenceDiscount,
	}
}

func compute(in inputs) PreCalculatedMetrics {
	c := in.costs
	team := float64(max(1, in.teamSize))
	tools := float64(max(1, in.stackCount))

	cur := Current{
		ConversionRate:   in.conversion,
		SalesCycleMonths: in.cycle,
		AvgDealSize:      in.dealSize,
		MonthlyDeals:     in.deals,
		TeamSize:         in.teamSize,
		StackCount:       in.stackCount,
	}
	cur.MonthlyRevenue = in.deals * in.dealSize
	cur.TeamCost = team * c.MonthlySalary * c.BenefitsMultiplier * c.OverheadMultiplier
	cur.ToolCost = tools * c.PerToolMonthlyCost
	cur.OpportunityCost = cur.MonthlyRevenue * math.Max(0, in.cycle-in.bench.SalesCycleMonths) * (c.AnnualDiscountRate / 12)
	cur.TotalMonthlyCost = cur.TeamCost + cur.ToolCost + cur.OpportunityCost
	cur.RevenuePerEmployee = cur.MonthlyRevenue * 12 / team
	cur.CustomerAcquisitionCost = cur.TotalMonthlyCost / math.Max(1, in.deals)

	tgt := Target{
		ConversionRate:   math.Min(in.bench.ConversionRate, in.conversion*MaxImprovementMultiple),
		SalesCycleMonths: math.Max(in.bench.SalesCycleMonths, in.cycle*TargetCycleFactor),
	}
	tgt.MonthlyRevenue = cur.MonthlyRevenue / math.Max(in.conversion, minConversion) * tgt.ConversionRate

	imp := Improvement{
		ConversionDelta:      tgt.ConversionRate - cur.ConversionRate,
		ConversionChange:     change(cur.ConversionRate, tgt.ConversionRate),
		RevenueDelta:         tgt.MonthlyRevenue - cur.MonthlyRevenue,
		RevenueChange:        change(cur.MonthlyRevenue, tgt.MonthlyRevenue),
		CycleReductionMonths: cur.SalesCycleMonths - tgt.SalesCycleMonths,
		CycleChange:          change(cur.SalesCycleMonths, tgt.SalesCycleMonths),
		CostReduction:        cur.TotalMonthlyCost * c.TargetEfficiencyGain * c.TargetAutomationLevel,
	}
	imp.CycleHoursSaved = imp.CycleReductionMonths * WeeksPerMonth * HoursPerWeek

	return PreCalculatedMetrics{
		Archetype:   in.archetype,
		Benchmarks:  map[Archetype]Benchmark{in.archetype: in.bench},
		Current:     cur,
		Target:      tgt,
		Improvement: imp,
		ROI:         computeROI(in, imp),
		Confidence:  in.confidence,
	}
}

func computeROI(in inputs, imp Improvement) ROI {
	c := in.costs
	complexity := 1 + c.ComplexityPerTool*float64(min(in.stackCount, c.ComplexityToolCap))
	budgetRatio := 1.0
	if in.budget.Known && in.budget.Mid() > 0 {
		budgetRatio = clamp(in.budget.Mid()/c.BudgetBaseline, c.BudgetRatioMin, c.BudgetRatioMax)
	}

	r := ROI{
		SetupCost:      c.SetupBase * complexity * budgetRatio,
		TrainingCost:   c.TrainingPerPerson * float64(in.teamSize),
		AnnualToolCost: c.SolutionToolMonthlyCost * float64(max(1, in.stackCount)) * 12,
	}
	r.TotalInvestment = r.SetupCost + r.TrainingCost + r.AnnualToolCost
	investment := math.Max(1, r.TotalInvestment)

	r.MonthlyReturn = (imp.RevenueDelta + imp.CostReduction) * in.confidence
	if r.MonthlyReturn > 0 && in.confidence > 0 {
		// Confidence is applied a second time here on purpose: lower
		// confidence stretches the stated payback.
		r.PaybackMonths = investment / r.MonthlyReturn / in.confidence
		r.PaybackDefined = true
	}
	r.YearOneROI = (r.MonthlyReturn*12 - investment) / investment * in.confidence
	r.ThreeYearROI = (r.MonthlyReturn*36 - investment) / investment * in.confidence
	r.IRR = simplifiedIRR(r.ThreeYearROI, 3)
	return r
}

// simplifiedIRR annualizes total ROI over the holding period.
func simplifiedIRR(totalROI float64, years int) float64 {
	base := 1 + totalROI
	if base <= 0 {
		return IRRMin
	}
	irr := math.Pow(base, 1/float64(years)) - 1
	if math.IsNaN(irr) {
		return IRRMin
	}
	return clamp(irr, IRRMin, IRRMax)
}

func change(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
