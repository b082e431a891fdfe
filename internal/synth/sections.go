package synth

import (
	"fmt"
	"strings"

	"github.com/joelkehle/discovery-assessment/internal/metrics"
)

func benchmarkFor(b Bundle) metrics.Benchmark {
	if bm, ok := b.Metrics.Benchmarks[b.Metrics.Archetype]; ok {
		return bm
	}
	return metrics.Benchmark{Label: string(b.Metrics.Archetype)}
}

func paybackText(r metrics.ROI) string {
	if !r.PaybackDefined {
		return "not reached"
	}
	return fmtMonths(r.PaybackMonths)
}

func companyName(b Bundle) string {
	return sanitize(orDefault(b.Data.CompanyName, "Your company"))
}

func executiveSummary(b Bundle) string {
	var s strings.Builder
	m := b.Metrics
	bm := benchmarkFor(b)

	fmt.Fprintf(&s, "%s operates as a %s business, assessed against the **%s** benchmark profile. ",
		companyName(b), sanitize(orDefault(b.Data.BusinessType, "general")), sanitize(bm.Label))
	fmt.Fprintf(&s, "The team has %d identified members and %d tools in its current stack.\n\n",
		m.Current.TeamSize, m.Current.StackCount)
	if b.Focus.Challenge != "" {
		fmt.Fprintf(&s, "This assessment focused on **%s**", sanitize(b.Focus.Challenge))
		if b.Focus.OpportunityArea != "" {
			fmt.Fprintf(&s, " within %s", strings.ToLower(sanitize(b.Focus.OpportunityArea)))
		}
		if b.Focus.Metric != "" {
			fmt.Fprintf(&s, ", measured by %s", strings.ToLower(sanitize(b.Focus.Metric)))
		}
		s.WriteString(".\n\n")
	}

	s.WriteString("**Key figures**\n\n")
	fmt.Fprintf(&s, "- Current monthly revenue: %s\n", fmtUSD(m.Current.MonthlyRevenue))
	fmt.Fprintf(&s, "- Revenue opportunity: %s per month (%s)\n", fmtUSD(m.Improvement.RevenueDelta), fmtSignedPct(m.Improvement.RevenueChange))
	fmt.Fprintf(&s, "- Estimated investment: %s\n", fmtUSD(m.ROI.TotalInvestment))
	fmt.Fprintf(&s, "- Payback period: %s\n", paybackText(m.ROI))
	fmt.Fprintf(&s, "- 3-year ROI: %s\n", fmtPct(m.ROI.ThreeYearROI))
	fmt.Fprintf(&s, "- Model confidence: %s\n\n", fmtPct(m.Confidence))

	st := strengths(m.Current.TeamSize, m.Current.StackCount, m.Current.AvgDealSize)
	s.WriteString("**Strengths to build on**\n\n")
	if len(st) == 0 {
		s.WriteString("No standout strengths were identified from the answers provided.\n")
		return s.String()
	}
	for _, x := range st {
		fmt.Fprintf(&s, "- %s\n", x)
	}
	return s.String()
}

func currentState(b Bundle) string {
	var s strings.Builder
	c := b.Metrics.Current

	s.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&s, "| Conversion rate | %s |\n", fmtPct(c.ConversionRate))
	fmt.Fprintf(&s, "| Sales cycle | %s |\n", fmtMonths(c.SalesCycleMonths))
	fmt.Fprintf(&s, "| Average deal size | %s |\n", fmtUSD(c.AvgDealSize))
	fmt.Fprintf(&s, "| Deals per month | %s |\n", fmtCount(c.MonthlyDeals))
	fmt.Fprintf(&s, "| Monthly revenue | %s |\n", fmtUSD(c.MonthlyRevenue))
	fmt.Fprintf(&s, "| Team cost | %s |\n", fmtUSD(c.TeamCost))
	fmt.Fprintf(&s, "| Tool cost | %s |\n", fmtUSD(c.ToolCost))
	fmt.Fprintf(&s, "| Opportunity cost of slow cycle | %s |\n", fmtUSD(c.OpportunityCost))
	fmt.Fprintf(&s, "| Total monthly cost | %s |\n", fmtUSD(c.TotalMonthlyCost))
	fmt.Fprintf(&s, "| Revenue per employee (annual) | %s |\n", fmtUSD(c.RevenuePerEmployee))
	fmt.Fprintf(&s, "| Customer acquisition cost | %s |\n\n", fmtUSD(c.CustomerAcquisitionCost))

	members := b.Data.Parsed.TeamMembers
	s.WriteString("**Team:** ")
	if len(members) == 0 {
		s.WriteString("_not identified_\n")
	} else {
		s.WriteString(sanitize(strings.Join(members, ", ")) + "\n")
	}
	s.WriteString("**Stack:** ")
	if stack := b.Data.Parsed.StackComponents; len(stack) == 0 {
		s.WriteString("_not identified_\n\n")
	} else {
		s.WriteString(sanitize(strings.Join(stack, ", ")) + "\n\n")
	}

	if b.Focus.Baseline != "" || b.Focus.Friction != "" {
		s.WriteString("**What you told us**\n\n")
		if b.Focus.Baseline != "" {
			fmt.Fprintf(&s, "> Baseline: %s\n", sanitize(b.Focus.Baseline))
		}
		if b.Focus.Friction != "" {
			if b.Focus.Baseline != "" {
				s.WriteString(">\n")
			}
			fmt.Fprintf(&s, "> Friction: %s\n", sanitize(b.Focus.Friction))
		}
		s.WriteString("\n")
	}

	hc := hiddenCosts(members)
	if len(hc) == 0 {
		return s.String()
	}
	s.WriteString("### Hidden Costs of Manual Work\n\n")
	s.WriteString("| Who | Role type | Where the time goes | Est. monthly cost |\n")
	s.WriteString("|-----|-----------|---------------------|-------------------|\n")
	for _, h := range hc {
		fmt.Fprintf(&s, "| %s | %s | %s | %s |\n", sanitizeCell(h.Member), h.Class, sanitizeCell(h.Description), fmtUSD(h.Monthly))
	}
	fmt.Fprintf(&s, "\nEstimated total: **%s per month** spent on work that automation could absorb.\n", fmtUSD(totalHiddenCost(hc)))
	return s.String()
}

func benchmarks(b Bundle) string {
	var s strings.Builder
	c := b.Metrics.Current
	t := b.Metrics.Target
	bm := benchmarkFor(b)

	fmt.Fprintf(&s, "Figures compared against typical **%s** businesses.\n\n", sanitize(bm.Label))
	s.WriteString("| Metric | You | Industry | Target |\n|--------|-----|----------|--------|\n")
	fmt.Fprintf(&s, "| Conversion rate | %s | %s | %s |\n", fmtPct(c.ConversionRate), fmtPct(bm.ConversionRate), fmtPct(t.ConversionRate))
	fmt.Fprintf(&s, "| Sales cycle | %s | %s | %s |\n", fmtMonths(c.SalesCycleMonths), fmtMonths(bm.SalesCycleMonths), fmtMonths(t.SalesCycleMonths))
	fmt.Fprintf(&s, "| Average deal size | %s | %s | — |\n\n", fmtUSD(c.AvgDealSize), fmtUSD(bm.AvgDealSize))

	gap := (bm.ConversionRate - c.ConversionRate) * 100
	if gap > 0.05 {
		fmt.Fprintf(&s, "Your conversion rate trails the industry figure by %.1f percentage points. ", gap)
	} else {
		s.WriteString("Your conversion rate is at or above the industry figure. ")
	}
	if c.SalesCycleMonths > bm.SalesCycleMonths {
		fmt.Fprintf(&s, "Deals take %s longer to close than is typical.\n\n", fmtMonths(c.SalesCycleMonths-bm.SalesCycleMonths))
	} else {
		s.WriteString("Your sales cycle is already at or below the typical length.\n\n")
	}
	fmt.Fprintf(&s, "Targets are capped at the industry figure and at %.1f× your current conversion rate.\n", metrics.MaxImprovementMultiple)
	return s.String()
}

func solutions(b Bundle) string {
	var s strings.Builder
	if len(b.Solutions) == 0 {
		s.WriteString("No matching solutions were found for this profile. A specialist review is recommended.\n")
		return s.String()
	}
	stack := map[string]bool{}
	for _, c := range b.Data.Parsed.StackComponents {
		stack[strings.ToLower(c)] = true
	}
	for i, sol := range b.Solutions {
		fmt.Fprintf(&s, "### %d. %s\n\n", i+1, sanitize(sol.Name))
		if sol.Description != "" {
			fmt.Fprintf(&s, "%s\n\n", sanitize(sol.Description))
		}
		fmt.Fprintf(&s, "- Pricing: %s\n", sanitize(orDash(sol.Pricing)))
		fmt.Fprintf(&s, "- Best for: %s\n", sanitize(orDash(sol.BestFor)))
		fmt.Fprintf(&s, "- Implementation time: %s\n", sanitize(orDash(sol.ImplementationTime)))
		if len(sol.Integrations) > 0 {
			fmt.Fprintf(&s, "- Integrations: %s\n", sanitize(strings.Join(sol.Integrations, ", ")))
			var fits []string
			for _, in := range sol.Integrations {
				if stack[strings.ToLower(in)] {
					fits = append(fits, in)
				}
			}
			if len(fits) > 0 {
				fmt.Fprintf(&s, "- Works with your stack: %s\n", sanitize(strings.Join(fits, ", ")))
			}
		}
		if sol.RelevanceScore > 0 && sol.RelevanceScore <= 1 {
			fmt.Fprintf(&s, "- Relevance: %s\n", fmtPct(sol.RelevanceScore))
		}
		s.WriteString("\n")
	}
	return s.String()
}

func futureState(b Bundle) string {
	var s strings.Builder
	c := b.Metrics.Current
	t := b.Metrics.Target
	imp := b.Metrics.Improvement

	s.WriteString("| Metric | Today | Target | Change |\n|--------|-------|--------|--------|\n")
	fmt.Fprintf(&s, "| Conversion rate | %s | %s | %s |\n", fmtPct(c.ConversionRate), fmtPct(t.ConversionRate), fmtSignedPct(imp.ConversionChange))
	fmt.Fprintf(&s, "| Sales cycle | %s | %s | %s |\n", fmtMonths(c.SalesCycleMonths), fmtMonths(t.SalesCycleMonths), fmtSignedPct(imp.CycleChange))
	fmt.Fprintf(&s, "| Monthly revenue | %s | %s | %s |\n\n", fmtUSD(c.MonthlyRevenue), fmtUSD(t.MonthlyRevenue), fmtSignedPct(imp.RevenueChange))

	if imp.CycleReductionMonths > 0 {
		fmt.Fprintf(&s, "Shortening the sales cycle by %s frees roughly %s of selling time. ",
			fmtMonths(imp.CycleReductionMonths), fmtHours(imp.CycleHoursSaved))
	}
	fmt.Fprintf(&s, "Automation is expected to cut operating cost by about %s per month.\n\n", fmtUSD(imp.CostReduction))

	if b.Focus.Process != "" {
		fmt.Fprintf(&s, "**Process today:** %s\n\n", sanitize(b.Focus.Process))
	}
	if b.Focus.Breakdown != "" {
		fmt.Fprintf(&s, "**Where it breaks:** %s\n\n", sanitize(b.Focus.Breakdown))
	}
	return s.String()
}

func roiSection(b Bundle) string {
	var s strings.Builder
	r := b.Metrics.ROI

	s.WriteString("### Investment\n\n| Item | Amount |\n|------|--------|\n")
	fmt.Fprintf(&s, "| Setup | %s |\n", fmtUSD(r.SetupCost))
	fmt.Fprintf(&s, "| Training | %s |\n", fmtUSD(r.TrainingCost))
	fmt.Fprintf(&s, "| Tools (first year) | %s |\n", fmtUSD(r.AnnualToolCost))
	fmt.Fprintf(&s, "| **Total** | **%s** |\n\n", fmtUSD(r.TotalInvestment))

	s.WriteString("### Returns\n\n| Measure | Value |\n|---------|-------|\n")
	fmt.Fprintf(&s, "| Monthly return | %s |\n", fmtUSD(r.MonthlyReturn))
	fmt.Fprintf(&s, "| Payback period | %s |\n", paybackText(r))
	fmt.Fprintf(&s, "| Year-one ROI | %s |\n", fmtPct(r.YearOneROI))
	fmt.Fprintf(&s, "| 3-year ROI | %s |\n", fmtPct(r.ThreeYearROI))
	fmt.Fprintf(&s, "| Internal rate of return | %s |\n\n", fmtPct(r.IRR))

	if !r.PaybackDefined {
		s.WriteString("At the current assumptions the monthly return does not cover costs, so the investment does not pay back.\n\n")
	}
	fmt.Fprintf(&s, "Returns are discounted by a model confidence of %s.\n", fmtPct(b.Metrics.Confidence))

	drivers := b.Metrics.Sensitivity
	if len(drivers) == 0 {
		return s.String()
	}
	if len(drivers) > 3 {
		drivers = drivers[:3]
	}
	s.WriteString("\n### Assumptions That Matter Most\n\n| Assumption | 3-year ROI swing (±20%) |\n|------------|--------------------------|\n")
	for _, d := range drivers {
		fmt.Fprintf(&s, "| %s | %.1f pts |\n", sanitizeCell(humanize(d.Assumption)), d.ROIDelta*100)
	}
	return s.String()
}

func humanize(id string) string {
	w := strings.ReplaceAll(id, "_", " ")
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}

func marketContext(b Bundle) string {
	var s strings.Builder
	r := b.Research
	if r.Fallback {
		s.WriteString("_Live market research was unavailable; this section gives a general industry overview._\n\n")
	}
	if strings.TrimSpace(r.NarrativeText) != "" {
		fmt.Fprintf(&s, "%s\n\n", strings.TrimSpace(r.NarrativeText))
	}
	if len(r.Trends) > 0 {
		s.WriteString("### Trends\n\n")
		for _, t := range r.Trends {
			fmt.Fprintf(&s, "- **%s**: %s\n", sanitize(t.Trend), sanitize(t.Impact))
		}
		s.WriteString("\n")
	}
	if len(r.CaseStudies) > 0 {
		s.WriteString("### Case Studies\n\n| Company | Challenge | Solution | Result | Confidence |\n")
		s.WriteString("|---------|-----------|----------|--------|------------|\n")
		for _, cs := range r.CaseStudies {
			fmt.Fprintf(&s, "| %s | %s | %s | %s | %s |\n", sanitizeCell(cs.Company), sanitizeCell(cs.Challenge),
				sanitizeCell(cs.Solution), sanitizeCell(cs.Result), fmtPct(cs.Confidence))
		}
		s.WriteString("\n")
	}
	if len(r.Citations) > 0 {
		s.WriteString("**Sources**\n\n")
		for i, c := range r.Citations {
			fmt.Fprintf(&s, "%d. %s\n", i+1, sanitize(c))
		}
	}
	if s.Len() == 0 {
		s.WriteString("No market research is available for this profile.\n")
	}
	return s.String()
}

func recommendations(b Bundle) string {
	var s strings.Builder
	m := b.Metrics

	focus := "the biggest bottleneck in your sales process"
	if b.Focus.Challenge != "" {
		focus = strings.ToLower(sanitize(b.Focus.Challenge))
	}
	measure := "conversion rate"
	if b.Focus.Metric != "" {
		measure = strings.ToLower(sanitize(b.Focus.Metric))
	}

	s.WriteString("1. **Weeks 1–4: Pilot.** ")
	fmt.Fprintf(&s, "Tackle %s first", focus)
	if len(b.Solutions) > 0 {
		fmt.Fprintf(&s, " with a limited pilot of %s", sanitize(b.Solutions[0].Name))
	}
	s.WriteString(".\n")
	fmt.Fprintf(&s, "2. **Weeks 5–8: Measure.** Track %s weekly against the %s conversion target.\n",
		measure, fmtPct(m.Target.ConversionRate))
	s.WriteString("3. **Months 3–6: Scale.** ")
	if m.ROI.PaybackDefined {
		fmt.Fprintf(&s, "Roll out across the team once the pilot is on track for a %s payback.\n", fmtMonths(m.ROI.PaybackMonths))
	} else {
		s.WriteString("Revisit the assumptions before scaling; the model does not reach payback yet.\n")
	}

	var notes []string
	if missing := b.Data.Validation.MissingCriticalData; len(missing) > 0 {
		notes = append(notes, fmt.Sprintf("Confirm %s before committing budget; the model used defaults for these.", strings.Join(missing, ", ")))
	}
	if bud := b.Data.Parsed.Budget; bud.Known && bud.Max > 0 && m.ROI.TotalInvestment > bud.Max {
		notes = append(notes, fmt.Sprintf("The estimated investment of %s exceeds the stated budget ceiling of %s; phase the rollout.",
			fmtUSD(m.ROI.TotalInvestment), fmtUSD(bud.Max)))
	}
	if len(notes) == 0 {
		return s.String()
	}
	s.WriteString("\n**Before you start**\n\n")
	for _, n := range notes {
		fmt.Fprintf(&s, "- %s\n", n)
	}
	return s.String()
}

