package metrics

import (
	"fmt"
	"math"
	"sort"
)

const sensitivitySwing = 0.20

// SensitivityDriver ranks how much one assumption moves three-year ROI when
// swung ±20%.
type SensitivityDriver struct {
	Assumption string  `json:"assumption"`
	ROIDelta   float64 `json:"roiDelta"`
	Direction  string  `json:"direction"`
}

func computeSensitivity(base inputs) []SensitivityDriver {
	type candidate struct {
		name      string
		apply     func(in *inputs, factor float64)
		direction string
	}
	cands := []candidate{
		{"monthly_salary", func(in *inputs, f float64) { in.costs.MonthlySalary *= f }, "Higher salaries raise the cost base that automation reduces"},
		{"target_efficiency_gain", func(in *inputs, f float64) { in.costs.TargetEfficiencyGain *= f }, "Higher efficiency gain increases monthly return"},
		{"target_automation_level", func(in *inputs, f float64) { in.costs.TargetAutomationLevel *= f }, "Higher automation level increases monthly return"},
		{"setup_base", func(in *inputs, f float64) { in.costs.SetupBase *= f }, "Higher setup cost lowers ROI"},
		{"solution_tool_monthly_cost", func(in *inputs, f float64) { in.costs.SolutionToolMonthlyCost *= f }, "Higher tooling cost lowers ROI"},
		{"benchmark_conversion_rate", func(in *inputs, f float64) { in.bench.ConversionRate *= f }, "Higher benchmark conversion raises the revenue target"},
		{"benchmark_sales_cycle", func(in *inputs, f float64) { in.bench.SalesCycleMonths *= f }, "Longer benchmark cycle lowers opportunity cost"},
	}

	out := make([]SensitivityDriver, 0, len(cands))
	for _, c := range cands {
		low, high := base, base
		c.apply(&low, 1-sensitivitySwing)
		c.apply(&high, 1+sensitivitySwing)
		delta := math.Abs(compute(high).ROI.ThreeYearROI - compute(low).ROI.ThreeYearROI)
		out = append(out, SensitivityDriver{
			Assumption: c.name,
			ROIDelta:   delta,
			Direction:  fmt.Sprintf("%s (±20%% moves 3-year ROI by %.1f pts)", c.direction, delta*100),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ROIDelta > out[j].ROIDelta })
	return out
}
