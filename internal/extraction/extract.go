package extraction

import (
	"strings"
	"time"
)

// Extractor turns Answers into ValidatedAssessmentData. The zero value is
// ready to use; Now only matters for founding-year arithmetic.
type Extractor struct {
	Now func() time.Time
}

// Extract runs every field extractor and the validation pass with a default
// Extractor.
func Extract(a Answers) ValidatedAssessmentData {
	return Extractor{}.Extract(a)
}

func (e Extractor) Extract(a Answers) ValidatedAssessmentData {
	data := ValidatedAssessmentData{
		CompanyName:     clean(a.CompanyName),
		BusinessType:    clean(a.BusinessType),
		TeamDescription: clean(a.TeamDescription),
		TechStack:       clean(a.TechStack),
		Budget:          clean(a.Budget),
		SalesProcess:    clean(a.SalesProcess),
		Challenges:      clean(a.Challenges),
		Email:           strings.TrimSpace(a.Email),
		Additional:      clean(a.Additional),
	}
	data.Parsed = e.parse(a, data)
	data.Validation = validate(data)
	return data
}

func (e Extractor) parse(a Answers, data ValidatedAssessmentData) Parsed {
	// Numbers about the sales motion can appear in any narrative answer, so
	// they are searched together. Budget text is kept out to avoid mistaking
	// the budget for a deal size.
	narrative := strings.Join([]string{
		data.TeamDescription,
		data.SalesProcess,
		data.Challenges,
		data.Additional,
	}, "\n")

	p := Parsed{
		TeamMembers:     teamMembers(data.TeamDescription),
		StackComponents: stackComponents(data.TechStack),
		Budget:          budgetRange(data.Budget),
		Location:        location(a.Location, narrative),
	}
	if p.TeamMembers == nil {
		p.TeamMembers = []string{}
	}

	var used bool
	if p.AvgDealSize, _, used = firstMatch(narrative, dealSizeMatchers); !used {
		p.AvgDealSize = defaultDealSize
		p.Defaulted = append(p.Defaulted, ExtractionDefault{Field: FieldAvgDealSize, Value: defaultDealSize})
	}
	if p.MonthlyDeals, _, used = firstMatch(narrative, monthlyDealsSet); !used {
		p.MonthlyDeals = defaultDeals
		p.Defaulted = append(p.Defaulted, ExtractionDefault{Field: FieldMonthlyDeals, Value: defaultDeals})
	}
	if p.SalesCycleMonths, _, used = firstMatch(narrative, salesCycleMatchers); !used {
		p.SalesCycleMonths = defaultCycleMonths
		p.Defaulted = append(p.Defaulted, ExtractionDefault{Field: FieldSalesCycleMonths, Value: defaultCycleMonths})
	}
	if p.ConversionRate, _, used = firstMatch(narrative, conversionMatchers); !used {
		p.ConversionRate = defaultConversion
		p.Defaulted = append(p.Defaulted, ExtractionDefault{Field: FieldConversionRate, Value: defaultConversion})
	}

	if n, ok := employeeCount(narrative); ok {
		p.EmployeeCount = &n
	}
	if y, ok := yearsInBusiness(narrative, e.now().Year()); ok {
		p.YearsInBusiness = &y
	}
	return p
}

func (e Extractor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// clean collapses runs of whitespace and trims.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
