package extraction

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Answers is the raw interview input, mostly free text.
type Answers struct {
	CompanyName     string `json:"companyName" validate:"max=200"`
	BusinessType    string `json:"businessType" validate:"max=200"`
	TeamDescription string `json:"teamDescription" validate:"max=4000"`
	TechStack       string `json:"techStack" validate:"max=2000"`
	Budget          string `json:"budget" validate:"max=500"`
	SalesProcess    string `json:"salesProcess" validate:"max=4000"`
	Challenges      string `json:"challenges" validate:"max=4000"`
	Email           string `json:"email,omitempty" validate:"omitempty,max=320"`
	Location        string `json:"location,omitempty" validate:"max=200"`
	Additional      string `json:"additional,omitempty" validate:"max=8000"`
}

// Validate enforces length limits before extraction. Content problems are not
// errors here; they surface in the validation report.
func (a Answers) Validate() error {
	validate := validator.New()
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("invalid answers: %w", err)
	}
	return nil
}

type QualityTier string

const (
	QualityLow    QualityTier = "low"
	QualityMedium QualityTier = "medium"
	QualityHigh   QualityTier = "high"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// BudgetRange is the stated budget in dollars. Known is false when nothing
// recognizable was given.
type BudgetRange struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Known bool    `json:"known"`
}

func (b BudgetRange) Mid() float64 {
	return (b.Min + b.Max) / 2
}

// ExtractionDefault records that no pattern matched a field and the documented
// fallback was used. It is a warning, never an error.
type ExtractionDefault struct {
	Field string  `json:"field"`
	Value float64 `json:"value"`
}

func (d ExtractionDefault) Warning() string {
	return fmt.Sprintf("%s not found in answers; using default %g", d.Field, d.Value)
}

// SuspiciousValue is a value that was extracted but failed a range or pattern
// check.
type SuspiciousValue struct {
	Field    string   `json:"field"`
	Value    string   `json:"value"`
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
}

type Parsed struct {
	TeamMembers      []string            `json:"teamMembers"`
	StackComponents  []string            `json:"stackComponents"`
	Budget           BudgetRange         `json:"budget"`
	AvgDealSize      float64             `json:"avgDealSize"`
	MonthlyDeals     float64             `json:"monthlyDeals"`
	SalesCycleMonths float64             `json:"salesCycleMonths"`
	ConversionRate   float64             `json:"conversionRate"`
	EmployeeCount    *int                `json:"employeeCount,omitempty"`
	YearsInBusiness  *int                `json:"yearsInBusiness,omitempty"`
	Location         string              `json:"location,omitempty"`
	Defaulted        []ExtractionDefault `json:"defaulted,omitempty"`
}

type Validation struct {
	QualityTier          QualityTier       `json:"qualityTier"`
	Score                float64           `json:"score"`
	Confidence           float64           `json:"confidence"`
	Warnings             []string          `json:"warnings"`
	MissingCriticalData  []string          `json:"missingCriticalData"`
	SuspiciousValues     []SuspiciousValue `json:"suspiciousValues"`
	RequiresManualReview bool              `json:"requiresManualReview"`
}

// ValidatedAssessmentData is created once per completed interview and treated
// as read-only afterwards.
type ValidatedAssessmentData struct {
	CompanyName     string     `json:"companyName"`
	BusinessType    string     `json:"businessType"`
	TeamDescription string     `json:"teamDescription"`
	TechStack       string     `json:"techStack"`
	Budget          string     `json:"budget"`
	SalesProcess    string     `json:"salesProcess"`
	Challenges      string     `json:"challenges"`
	Email           string     `json:"email,omitempty"`
	Additional      string     `json:"additional,omitempty"`
	Parsed          Parsed     `json:"parsed"`
	Validation      Validation `json:"validation"`
}

// DefaultedCount is the number of fields filled from documented defaults.
func (d ValidatedAssessmentData) DefaultedCount() int {
	return len(d.Parsed.Defaulted)
}
