package assessment

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Tier is one stage of the interview. Values are the display label scaled by
// ten so half-tiers (2.5, 3.5) stay integral.
type Tier int

const (
	TierCategory     Tier = 10
	TierOpportunity  Tier = 20
	TierRevenueModel Tier = 25
	TierChallenge    Tier = 30
	TierMetric       Tier = 35
	TierQuantify     Tier = 40
	TierProcess      Tier = 50
	TierValidation   Tier = 60
	TierReady        Tier = 70
)

// tierOrder is the forward order of the interview.
var tierOrder = []Tier{
	TierCategory,
	TierOpportunity,
	TierRevenueModel,
	TierChallenge,
	TierMetric,
	TierQuantify,
	TierProcess,
	TierValidation,
	TierReady,
}

var tierProgress = map[Tier]int{
	TierCategory:     10,
	TierOpportunity:  20,
	TierRevenueModel: 30,
	TierChallenge:    40,
	TierMetric:       50,
	TierQuantify:     60,
	TierProcess:      75,
	TierValidation:   90,
	TierReady:        100,
}

// tierBack maps a tier to the one before it. Tier 1 has no entry.
var tierBack = map[Tier]Tier{
	TierOpportunity:  TierCategory,
	TierRevenueModel: TierOpportunity,
	TierChallenge:    TierRevenueModel,
	TierMetric:       TierChallenge,
	TierQuantify:     TierMetric,
	TierProcess:      TierQuantify,
	TierValidation:   TierProcess,
	TierReady:        TierValidation,
}

var tierNames = map[Tier]string{
	TierCategory:     "category",
	TierOpportunity:  "opportunity_area",
	TierRevenueModel: "revenue_model",
	TierChallenge:    "challenge_area",
	TierMetric:       "metric",
	TierQuantify:     "quantification",
	TierProcess:      "process",
	TierValidation:   "process_validation",
	TierReady:        "ready",
}

func (t Tier) Valid() bool {
	_, ok := tierProgress[t]
	return ok
}

// Label renders the tier the way users see it: "1", "2.5", "7".
func (t Tier) Label() string {
	if t%10 == 0 {
		return strconv.Itoa(int(t) / 10)
	}
	return strconv.FormatFloat(float64(t)/10, 'f', 1, 64)
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return fmt.Sprintf("tier %s (%s)", t.Label(), name)
	}
	return fmt.Sprintf("tier %s", t.Label())
}

// Progress is the fixed completion percentage shown for the tier.
func (t Tier) Progress() int {
	return tierProgress[t]
}

// Previous returns the tier one step back.
func (t Tier) Previous() (Tier, bool) {
	prev, ok := tierBack[t]
	return prev, ok
}

// ParseTier accepts a display label ("2.5") and returns the tier.
func ParseTier(label string) (Tier, error) {
	f, err := strconv.ParseFloat(label, 64)
	if err != nil {
		return 0, fmt.Errorf("parse tier %q: %w", label, err)
	}
	scaled := f * 10
	whole := math.Round(scaled)
	if math.Abs(scaled-whole) > 1e-9 {
		return 0, fmt.Errorf("unknown tier %q", label)
	}
	t := Tier(whole)
	if f < 0 || !t.Valid() {
		return 0, fmt.Errorf("unknown tier %q", label)
	}
	return t, nil
}

func (t Tier) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("marshal unknown tier %d", int(t))
	}
	return []byte(t.Label()), nil
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("tier must be a number: %w", err)
	}
	parsed, err := ParseTier(strconv.FormatFloat(f, 'f', -1, 64))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
