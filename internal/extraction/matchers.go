package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

// A matcher inspects text and reports a value when its pattern applies. Each
// field has an ordered list of matchers; the first one that returns ok wins.
type matcher struct {
	name  string
	match func(text string) (float64, bool)
}

func firstMatch(text string, ms []matcher) (float64, string, bool) {
	for _, m := range ms {
		if v, ok := m.match(text); ok {
			return v, m.name, true
		}
	}
	return 0, "", false
}

const (
	weeksPerMonth = 4.33
	moneyPattern  = `\$\s?(\d[\d,]*(?:\.\d+)?)([kKmM]\b)?`
	numberPattern = `(\d+(?:\.\d+)?)`
)

// parseAmount turns "12,500" plus an optional k/m suffix into dollars.
func parseAmount(num, suffix string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(suffix) {
	case "k":
		v *= 1_000
	case "m":
		v *= 1_000_000
	}
	return v, true
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func inRange(v, lo, hi float64) bool { return v >= lo && v <= hi }

// moneyMatcher returns the first amount captured by any of the regexps. Each
// regexp must capture the number in group 1 and the suffix in group 2.
func moneyMatcher(name string, res ...*regexp.Regexp) matcher {
	return matcher{name: name, match: func(text string) (float64, bool) {
		for _, re := range res {
			if m := re.FindStringSubmatch(text); m != nil {
				if v, ok := parseAmount(m[1], m[2]); ok {
					return v, true
				}
			}
		}
		return 0, false
	}}
}

// scaledMatcher returns the first capture from any regexp that, after scaling,
// falls inside [lo, hi].
func scaledMatcher(name string, scale, lo, hi float64, res ...*regexp.Regexp) matcher {
	return matcher{name: name, match: func(text string) (float64, bool) {
		for _, re := range res {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				v, ok := parseNumber(m[1])
				if !ok {
					continue
				}
				v *= scale
				if inRange(v, lo, hi) {
					return v, true
				}
			}
		}
		return 0, false
	}}
}

// --- Average deal size ---

var (
	dealPerDealRe = regexp.MustCompile(`(?i)` + moneyPattern + `\s*(?:per|a|/|each)\s*(?:deal|sale|contract|client|customer|account)\b`)
	dealWorthRe   = regexp.MustCompile(`(?i)(?:deals?|contracts?)\s+(?:are\s+|is\s+)?(?:typically\s+|usually\s+|often\s+)?worth\s+(?:about\s+|around\s+|roughly\s+|~\s*)?` + moneyPattern)
	dealAvgAfter  = regexp.MustCompile(`(?i)` + moneyPattern + `\s+(?:on\s+)?average\b`)
	dealAvgBefore = regexp.MustCompile(`(?i)average\s+(?:deal|contract|order|sale)\s*(?:size|value)?\s*(?:is|of|:|around|about|=)?\s*(?:about\s+|around\s+|~\s*)?` + moneyPattern)
	dealTypAfter  = regexp.MustCompile(`(?i)` + moneyPattern + `\s+(?:is\s+)?typical\b`)
	dealTypBefore = regexp.MustCompile(`(?i)typical(?:ly)?\s+(?:deal\s+|contract\s+)?(?:size\s+|value\s+)?(?:is\s+|of\s+|around\s+|about\s+)?` + moneyPattern)

	// monetaryRe finds anything that looks like money: a $ prefix, a k/m
	// suffix, or a trailing "dollars"/"USD".
	monetaryRe = regexp.MustCompile(`(?i)(\$\s?)?(\d[\d,]*(?:\.\d+)?)(?:([km])\b|\s*(dollars|usd)\b)?`)
)

const (
	defaultDealSize = 5000
	monetaryMin     = 500
	monetaryMax     = 500000
)

var dealSizeMatchers = []matcher{
	moneyMatcher("per_deal", dealPerDealRe),
	moneyMatcher("deals_worth", dealWorthRe),
	moneyMatcher("average", dealAvgAfter, dealAvgBefore),
	moneyMatcher("typical", dealTypAfter, dealTypBefore),
	{name: "monetary_average", match: averageMonetary},
}

func averageMonetary(text string) (float64, bool) {
	sum, n := 0.0, 0
	for _, m := range monetaryRe.FindAllStringSubmatch(text, -1) {
		if m[1] == "" && m[3] == "" && m[4] == "" {
			continue
		}
		v, ok := parseAmount(m[2], m[3])
		if !ok || !inRange(v, monetaryMin, monetaryMax) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// --- Monthly deal count ---

const (
	dealNouns       = `(?:deals|sales|clients|customers|contracts|accounts|orders|projects)`
	defaultDeals    = 5
	monthlyDealsMax = 100
	weeklyDealsMax  = 400
)

var (
	monthlyCountRe  = regexp.MustCompile(`(?i)` + numberPattern + `\s+(?:new\s+)?` + dealNouns + `\s+(?:per|a|each|every)\s+month\b`)
	monthlySlashRe  = regexp.MustCompile(`(?i)` + numberPattern + `\s+(?:new\s+)?` + dealNouns + `\s*(?:/\s*mo(?:nth)?\b|monthly\b)`)
	monthlyCloseRe  = regexp.MustCompile(`(?i)(?:close|closing|sign|signing|win)\s+(?:about\s+|around\s+|roughly\s+|~\s*)?` + numberPattern + `\s+(?:\w+\s+)?(?:per|a|each|every)\s+month\b`)
	weeklyCountRe   = regexp.MustCompile(`(?i)` + numberPattern + `\s+(?:new\s+)?` + dealNouns + `\s+(?:per|a|each|every)\s+week\b`)
	weeklySlashRe   = regexp.MustCompile(`(?i)` + numberPattern + `\s+(?:new\s+)?` + dealNouns + `\s*(?:/\s*w(?:ee)?k\b|weekly\b)`)
	weeklyCloseRe   = regexp.MustCompile(`(?i)(?:close|closing|sign|signing|win)\s+(?:about\s+|around\s+|roughly\s+|~\s*)?` + numberPattern + `\s+(?:\w+\s+)?(?:per|a|each|every)\s+week\b`)
	monthlyDealsSet = []matcher{
		scaledMatcher("monthly", 1, 1, monthlyDealsMax, monthlyCountRe, monthlySlashRe, monthlyCloseRe),
		scaledMatcher("weekly", weeksPerMonth, 1, weeklyDealsMax, weeklyCountRe, weeklySlashRe, weeklyCloseRe),
	}
)

// --- Sales cycle ---

const (
	defaultCycleMonths = 3
	cycleMin           = 0.25
	cycleMax           = 24
)

var (
	monthRangeRe  = regexp.MustCompile(`(?i)` + numberPattern + `\s*(?:-|–|to)\s*` + numberPattern + `\s*months?\b`)
	monthSingleRe = regexp.MustCompile(`(?i)` + numberPattern + `\s*(?:-\s*)?months?\b(\s+ago)?`)
	weekRangeRe   = regexp.MustCompile(`(?i)` + numberPattern + `\s*(?:-|–|to)\s*` + numberPattern + `\s*weeks?\b`)
	weekSingleRe  = regexp.MustCompile(`(?i)` + numberPattern + `\s*(?:-\s*)?weeks?\b(\s+ago)?`)
)

var salesCycleMatchers = []matcher{
	{name: "month_range", match: func(t string) (float64, bool) { return rangeAverage(t, monthRangeRe, 1) }},
	{name: "month_single", match: func(t string) (float64, bool) { return singleUnit(t, monthSingleRe, 1) }},
	{name: "week_range", match: func(t string) (float64, bool) { return rangeAverage(t, weekRangeRe, 1/weeksPerMonth) }},
	{name: "week_single", match: func(t string) (float64, bool) { return singleUnit(t, weekSingleRe, 1/weeksPerMonth) }},
}

func rangeAverage(text string, re *regexp.Regexp, scale float64) (float64, bool) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		lo, ok1 := parseNumber(m[1])
		hi, ok2 := parseNumber(m[2])
		if !ok1 || !ok2 {
			continue
		}
		v := (lo + hi) / 2 * scale
		if inRange(v, cycleMin, cycleMax) {
			return v, true
		}
	}
	return 0, false
}

// singleUnit skips durations that describe the past ("6 months ago").
func singleUnit(text string, re *regexp.Regexp, scale float64) (float64, bool) {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if m[2] != "" {
			continue
		}
		v, ok := parseNumber(m[1])
		if !ok {
			continue
		}
		v *= scale
		if inRange(v, cycleMin, cycleMax) {
			return v, true
		}
	}
	return 0, false
}

// --- Conversion rate ---

const defaultConversion = 0.08

var (
	convKeywordRe = regexp.MustCompile(`(?i)(?:conversion|close|closing|win)\s+rate\s*(?:is|of|at|:|=|around|about|~|\s)*` + numberPattern + `\s*%?`)
	convAfterRe   = regexp.MustCompile(`(?i)` + numberPattern + `\s*%\s*(?:of\s+(?:leads|prospects|deals|opportunities|proposals)\s+)?(?:close|closes|convert|converts|conversion|win|wins)\b`)
	convVerbRe    = regexp.MustCompile(`(?i)(?:convert|close|win)s?\s+(?:about\s+|around\s+|roughly\s+|~\s*)?` + numberPattern + `\s*%`)
	percentRe     = regexp.MustCompile(numberPattern + `\s*%`)
)

var conversionMatchers = []matcher{
	rateMatcher("rate_keyword", convKeywordRe),
	rateMatcher("percent_keyword", convAfterRe, convVerbRe),
	rateMatcher("percent", percentRe),
}

// rateMatcher treats values above 1 as percentages.
func rateMatcher(name string, res ...*regexp.Regexp) matcher {
	return matcher{name: name, match: func(text string) (float64, bool) {
		for _, re := range res {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				v, ok := parseNumber(m[1])
				if !ok {
					continue
				}
				if v > 1 {
					v /= 100
				}
				if v <= 1 {
					return v, true
				}
			}
		}
		return 0, false
	}}
}

// --- Optional facts ---

var (
	employeeCountRe = regexp.MustCompile(`(?i)(\d[\d,]*)\+?\s*(?:full[- ]time\s+)?(?:employees|staff|people|team\s+members|FTEs?)\b`)
	teamOfRe        = regexp.MustCompile(`(?i)team\s+of\s+(\d[\d,]*)\b`)
	foundedYearRe   = regexp.MustCompile(`(?i)(?:founded|established|started)\s+(?:in\s+)?((?:19|20)\d{2})\b`)
	yearsInBizRe    = regexp.MustCompile(`(?i)(\d+)\s+years?\s+(?:in\s+business|old|operating)\b`)
	inBizForRe      = regexp.MustCompile(`(?i)in\s+business\s+(?:for\s+)?(\d+)\s+years?\b`)
	locationRe      = regexp.MustCompile(`(?:based|located|headquartered)\s+in\s+([A-Z][\w.'-]*(?:(?:\s+|,\s*)[A-Z][\w.'-]*)*)`)
)

func employeeCount(text string) (int, bool) {
	for _, re := range []*regexp.Regexp{employeeCountRe, teamOfRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, ok := parseNumber(m[1]); ok {
				return int(v), true
			}
		}
	}
	return 0, false
}

func yearsInBusiness(text string, currentYear int) (int, bool) {
	if m := foundedYearRe.FindStringSubmatch(text); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil && y <= currentYear {
			return currentYear - y, true
		}
	}
	for _, re := range []*regexp.Regexp{yearsInBizRe, inBizForRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			if v, err := strconv.Atoi(m[1]); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func location(explicit, text string) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return s
	}
	if m := locationRe.FindStringSubmatch(text); m != nil {
		return strings.TrimRight(strings.TrimSpace(m[1]), ".,")
	}
	return ""
}

// --- Budget ---

const amountPattern = `(\$?\s?\d[\d,]*(?:\.\d+)?(?:[kKmM]\b)?)`

var (
	budgetRangeRe = regexp.MustCompile(`(?i)` + amountPattern + `\s*(?:-|–|to)\s*` + amountPattern)
	budgetUpToRe  = regexp.MustCompile(`(?i)(?:up\s+to|under|less\s+than|below|max(?:imum)?|no\s+more\s+than)\s+` + amountPattern)
	budgetFloorRe = regexp.MustCompile(`(?i)(?:at\s+least|over|more\s+than|above|min(?:imum)?)\s+` + amountPattern)
	budgetOneRe   = regexp.MustCompile(`(?i)` + amountPattern)
)

var amountPartsRe = regexp.MustCompile(`(?i)^\$?\s?(\d[\d,]*(?:\.\d+)?)([km])?$`)

func splitAmount(s string) (num, suffix string, ok bool) {
	m := amountPartsRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func amount(s string) (float64, bool) {
	num, suffix, ok := splitAmount(s)
	if !ok {
		return 0, false
	}
	return parseAmount(num, suffix)
}

func budgetRange(text string) BudgetRange {
	if m := budgetRangeRe.FindStringSubmatch(text); m != nil {
		loNum, loSuffix, ok1 := splitAmount(m[1])
		hiNum, hiSuffix, ok2 := splitAmount(m[2])
		if ok1 && ok2 {
			if loSuffix == "" {
				loSuffix = hiSuffix
			}
			lo, okLo := parseAmount(loNum, loSuffix)
			hi, okHi := parseAmount(hiNum, hiSuffix)
			if okLo && okHi {
				if lo > hi {
					lo, hi = hi, lo
				}
				return BudgetRange{Min: lo, Max: hi, Known: true}
			}
		}
	}
	if m := budgetUpToRe.FindStringSubmatch(text); m != nil {
		if v, ok := amount(m[1]); ok {
			return BudgetRange{Min: 0, Max: v, Known: true}
		}
	}
	if m := budgetFloorRe.FindStringSubmatch(text); m != nil {
		if v, ok := amount(m[1]); ok {
			return BudgetRange{Min: v, Max: v, Known: true}
		}
	}
	if m := budgetOneRe.FindStringSubmatch(text); m != nil {
		if v, ok := amount(m[1]); ok {
			return BudgetRange{Min: v, Max: v, Known: true}
		}
	}
	return BudgetRange{}
}

// --- Team members ---

const maxTeamMembers = 10

// compoundRoles maps a lower-case phrase to its display form, longest first so
// the regexp prefers the longer phrase.
var compoundRoles = []string{
	"Customer Success Manager",
	"Head of Operations",
	"Head of Marketing",
	"Marketing Director",
	"Marketing Manager",
	"Operations Manager",
	"VP of Marketing",
	"Head of Growth",
	"Account Manager",
	"Product Manager",
	"Project Manager",
	"Sales Director",
	"Head of Sales",
	"Office Manager",
	"Sales Manager",
	"VP Marketing",
	"VP of Sales",
	"Sales Lead",
	"Team Lead",
	"Tech Lead",
	"VP Sales",
}

var singleRoles = []string{"CEO", "CTO", "VP", "Manager", "Director", "Head", "Lead"}

// nameStopwords are capitalized words that precede roles without being names.
var nameStopwords = map[string]bool{
	"The": true, "Our": true, "My": true, "We": true, "And": true, "Then": true, "Also": true,
	"Sales": true, "Marketing": true, "Account": true, "Product": true, "Project": true,
	"Operations": true, "Office": true, "Customer": true, "Success": true, "Team": true,
	"Tech": true, "General": true, "Regional": true, "Senior": true, "Junior": true,
	"Manager": true, "Director": true, "Head": true, "Lead": true, "Takes": true,
}

var (
	compoundRoleRe *regexp.Regexp
	singleRoleRe   *regexp.Regexp
	namedRoleRe    *regexp.Regexp
	compoundCanon  = map[string]string{}
)

func init() {
	alts := make([]string, 0, len(compoundRoles))
	for _, r := range compoundRoles {
		compoundCanon[strings.ToLower(r)] = r
		alts = append(alts, strings.ReplaceAll(regexp.QuoteMeta(strings.ToLower(r)), " ", `\s+`))
	}
	compound := `(?i:` + strings.Join(alts, "|") + `)`
	single := strings.Join(singleRoles, "|")
	compoundRoleRe = regexp.MustCompile(`\b` + compound + `\b`)
	singleRoleRe = regexp.MustCompile(`\b(?:` + single + `)\b`)
	namedRoleRe = regexp.MustCompile(`\b([A-Z][a-z]+)(?:\s*,\s*|\s+\(\s*|\s+)(?:is\s+)?(?:our\s+|the\s+)?(?:` + compound + `|` + single + `)\b`)
}

// teamMembers lists names that sit directly before a role, then the roles
// themselves in order of appearance. A single role inside a matched compound
// role is not listed again.
func teamMembers(text string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		if s == "" || seen[s] || len(out) >= maxTeamMembers {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, m := range namedRoleRe.FindAllStringSubmatch(text, -1) {
		if !nameStopwords[m[1]] {
			add(m[1])
		}
	}

	type role struct {
		pos   int
		label string
	}
	var roles []role
	compoundSpans := compoundRoleRe.FindAllStringIndex(text, -1)
	for _, span := range compoundSpans {
		key := strings.Join(strings.Fields(strings.ToLower(text[span[0]:span[1]])), " ")
		roles = append(roles, role{pos: span[0], label: compoundCanon[key]})
	}
	for _, span := range singleRoleRe.FindAllStringIndex(text, -1) {
		inside := false
		for _, c := range compoundSpans {
			if span[0] >= c[0] && span[1] <= c[1] {
				inside = true
				break
			}
		}
		if !inside {
			roles = append(roles, role{pos: span[0], label: text[span[0]:span[1]]})
		}
	}
	// insertion sort keeps equal positions stable and the lists are short
	for i := 1; i < len(roles); i++ {
		for j := i; j > 0 && roles[j].pos < roles[j-1].pos; j-- {
			roles[j], roles[j-1] = roles[j-1], roles[j]
		}
	}
	for _, r := range roles {
		add(r.label)
	}
	return out
}

// --- Stack ---

const maxStackComponents = 20

func stackComponents(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	seen := map[string]bool{}
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(p), "."))
		key := strings.ToLower(p)
		if p == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
		if len(out) == maxStackComponents {
			break
		}
	}
	return out
}
