package synth

import (
	"strings"

	"github.com/joelkehle/discovery-assessment/internal/metrics"
)

// roleClass groups team members by how expensive their manual work is.
type roleClass struct {
	name          string
	keywords      []string
	hourlyRate    float64
	hoursPerWeek  float64
	manualTaskFmt string
}

// roleClasses is checked in order; the last entry matches everyone.
var roleClasses = []roleClass{
	{"executive", []string{"ceo", "cto", "cfo", "coo", "founder", "owner", "president", "vp", "head", "director"}, 150, 6, "%s spends senior time on manual follow-up and status chasing"},
	{"manager", []string{"manager", "lead", "supervisor"}, 75, 8, "%s coordinates hand-offs that tooling could route"},
	{"sales", []string{"sales", "account", "sdr", "bdr", "rep"}, 55, 10, "%s re-keys prospect data and qualifies leads by hand"},
	{"team", nil, 40, 5, "%s handles repetitive admin work"},
}

type hiddenCost struct {
	Member      string
	Class       string
	Description string
	Monthly     float64
}

func classifyRole(member string) roleClass {
	lower := strings.ToLower(member)
	for _, rc := range roleClasses {
		for _, kw := range rc.keywords {
			if containsWord(lower, kw) {
				return rc
			}
		}
	}
	return roleClasses[len(roleClasses)-1]
}

func containsWord(s, word string) bool {
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '-' || r == '/' }) {
		if f == word {
			return true
		}
	}
	return false
}

// hiddenCosts estimates the monthly cost of manual work per team member.
func hiddenCosts(members []string) []hiddenCost {
	out := make([]hiddenCost, 0, len(members))
	for _, m := range members {
		rc := classifyRole(m)
		out = append(out, hiddenCost{
			Member:      m,
			Class:       rc.name,
			Description: strings.Replace(rc.manualTaskFmt, "%s", m, 1),
			Monthly:     rc.hourlyRate * rc.hoursPerWeek * metrics.WeeksPerMonth,
		})
	}
	return out
}

func totalHiddenCost(hc []hiddenCost) float64 {
	sum := 0.0
	for _, h := range hc {
		sum += h.Monthly
	}
	return sum
}

// Strength thresholds.
const (
	strongTeamSize  = 3
	strongStackSize = 3
	strongDealSize  = 10000
)

// strengths runs three independent threshold checks.
func strengths(teamSize, stackSize int, dealSize float64) []string {
	var out []string
	if teamSize >= strongTeamSize {
		out = append(out, "A team large enough to own an automation rollout without pausing day-to-day selling.")
	}
	if stackSize >= strongStackSize {
		out = append(out, "An existing tool stack that new automation can integrate with instead of replacing.")
	}
	if dealSize >= strongDealSize {
		out = append(out, "Deal sizes high enough that small conversion gains pay back quickly.")
	}
	return out
}
