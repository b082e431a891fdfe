package extraction

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Field names used in warnings, missing-data lists and suspicious values.
const (
	FieldCompanyName      = "companyName"
	FieldBusinessType     = "businessType"
	FieldTeamDescription  = "teamDescription"
	FieldTechStack        = "techStack"
	FieldBudget           = "budget"
	FieldSalesProcess     = "salesProcess"
	FieldChallenges       = "challenges"
	FieldEmail            = "email"
	FieldTeamMembers      = "teamMembers"
	FieldAvgDealSize      = "avgDealSize"
	FieldMonthlyDeals     = "monthlyDeals"
	FieldSalesCycleMonths = "salesCycleMonths"
	FieldConversionRate   = "conversionRate"
	FieldEmployeeCount    = "employeeCount"
)

// Penalties are in hundredths of a point so repeated deductions stay exact.
const (
	penaltyMissing     = 10
	penaltyRange       = 10
	penaltyPattern     = 15
	penaltyEmptyTeam   = 5
	highQualityScore   = 0.8
	mediumQualityScore = 0.6
	minConfidence      = 0.1

	maxMonthlyRevenue   = 10_000_000
	highConversionLimit = 0.5
	longCycleMonths     = 12
)

type numericRange struct {
	field  string
	lo, hi float64
	value  func(Parsed) (float64, bool)
}

var numericRanges = []numericRange{
	{FieldConversionRate, 0.001, 0.8, func(p Parsed) (float64, bool) { return p.ConversionRate, true }},
	{FieldAvgDealSize, 100, 1_000_000, func(p Parsed) (float64, bool) { return p.AvgDealSize, true }},
	{FieldSalesCycleMonths, 0.25, 36, func(p Parsed) (float64, bool) { return p.SalesCycleMonths, true }},
	{FieldMonthlyDeals, 1, 1000, func(p Parsed) (float64, bool) { return p.MonthlyDeals, true }},
	{FieldEmployeeCount, 1, 100_000, func(p Parsed) (float64, bool) {
		if p.EmployeeCount == nil {
			return 0, false
		}
		return float64(*p.EmployeeCount), true
	}},
}

var companyNameRe = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} &.,'()/+\-]{0,99}$`)

func requiredFields(d ValidatedAssessmentData) []struct{ name, value string } {
	return []struct{ name, value string }{
		{FieldCompanyName, d.CompanyName},
		{FieldBusinessType, d.BusinessType},
		{FieldTeamDescription, d.TeamDescription},
		{FieldTechStack, d.TechStack},
		{FieldBudget, d.Budget},
		{FieldSalesProcess, d.SalesProcess},
		{FieldChallenges, d.Challenges},
	}
}

func validate(d ValidatedAssessmentData) Validation {
	v := Validation{
		Warnings:            []string{},
		MissingCriticalData: []string{},
		SuspiciousValues:    []SuspiciousValue{},
	}
	penalty := 0

	for _, f := range requiredFields(d) {
		if f.value == "" {
			v.MissingCriticalData = append(v.MissingCriticalData, f.name)
			v.Warnings = append(v.Warnings, fmt.Sprintf("missing required field: %s", f.name))
			penalty += penaltyMissing
		}
	}

	for _, r := range numericRanges {
		val, ok := r.value(d.Parsed)
		if !ok || inRange(val, r.lo, r.hi) {
			continue
		}
		v.SuspiciousValues = append(v.SuspiciousValues, SuspiciousValue{
			Field:    r.field,
			Value:    formatValue(val),
			Reason:   fmt.Sprintf("outside expected range [%s, %s]", formatValue(r.lo), formatValue(r.hi)),
			Severity: SeverityMedium,
		})
		penalty += penaltyRange
	}

	if d.Email != "" {
		if err := validator.New().Var(d.Email, "email"); err != nil {
			v.SuspiciousValues = append(v.SuspiciousValues, SuspiciousValue{
				Field: FieldEmail, Value: d.Email, Reason: "not a valid email address", Severity: SeverityHigh,
			})
			penalty += penaltyPattern
		}
	}
	if d.CompanyName != "" && !companyNameRe.MatchString(d.CompanyName) {
		v.SuspiciousValues = append(v.SuspiciousValues, SuspiciousValue{
			Field: FieldCompanyName, Value: d.CompanyName, Reason: "does not look like a company name", Severity: SeverityHigh,
		})
		penalty += penaltyPattern
	}

	p := d.Parsed
	if p.AvgDealSize*p.MonthlyDeals >= maxMonthlyRevenue {
		v.Warnings = append(v.Warnings, fmt.Sprintf("deal size × monthly deals (%s) is implausibly high", formatValue(p.AvgDealSize*p.MonthlyDeals)))
	}
	if p.ConversionRate > highConversionLimit {
		v.SuspiciousValues = append(v.SuspiciousValues, SuspiciousValue{
			Field:    FieldConversionRate,
			Value:    formatValue(p.ConversionRate),
			Reason:   "conversion rate above 50% is unusual",
			Severity: SeverityMedium,
		})
	}
	if p.SalesCycleMonths > longCycleMonths {
		v.Warnings = append(v.Warnings, fmt.Sprintf("sales cycle of %s months is longer than a year", formatValue(p.SalesCycleMonths)))
	}
	if len(p.TeamMembers) == 0 {
		v.Warnings = append(v.Warnings, "no team members identified")
		penalty += penaltyEmptyTeam
	}
	for _, def := range p.Defaulted {
		v.Warnings = append(v.Warnings, def.Warning())
	}

	score := float64(100-penalty) / 100
	if score < 0 {
		score = 0
	}
	v.Score = score
	switch {
	case score >= highQualityScore:
		v.QualityTier = QualityHigh
	case score >= mediumQualityScore:
		v.QualityTier = QualityMedium
	default:
		v.QualityTier = QualityLow
	}
	v.Confidence = max(minConfidence, score)
	v.RequiresManualReview = score < mediumQualityScore
	for _, s := range v.SuspiciousValues {
		if s.Severity == SeverityHigh {
			v.RequiresManualReview = true
		}
	}
	return v
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
