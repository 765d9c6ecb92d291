package jobs

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Role types and experience levels are catalog ids.
const (
	RoleProduct = "product"
	RoleProgram = "program"

	LevelEntry  = "entry"
	LevelMid    = "mid"
	LevelSenior = "senior"
)

var (
	productPhrases = []string{"product manager", "product owner", "technical product manager", "product management"}
	programPhrases = []string{"program manager", "programme manager", "technical program manager", "program management"}
)

// RoleType classifies a title as product or program management, or "" for anything else.
func RoleType(title string) string {
	t := strings.ToLower(title)
	switch {
	case containsAny(t, productPhrases):
		return RoleProduct
	case containsAny(t, programPhrases):
		return RoleProgram
	}
	return ""
}

// ExperienceLevel reads the seniority off a title. "" means the title does not say.
func ExperienceLevel(title string) string {
	words := tokens(title)
	switch {
	case words.any("senior", "sr", "lead", "staff", "principal"):
		return LevelSenior
	case words.any("mid", "intermediate"):
		return LevelMid
	case words.any("junior", "jr", "entry", "associate"):
		return LevelEntry
	}
	return ""
}

var usStates = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true, "CT": true, "DE": true, "FL": true, "GA": true,
	"HI": true, "ID": true, "IL": true, "IN": true, "IA": true, "KS": true, "KY": true, "LA": true, "ME": true, "MD": true,
	"MA": true, "MI": true, "MN": true, "MS": true, "MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true, "OK": true, "OR": true, "PA": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true, "WI": true, "WY": true,
	"DC": true,
}

// cities maps well-known city names to catalog location ids.
var cities = map[string]string{
	"new york": "united_states", "san francisco": "united_states", "los angeles": "united_states",
	"chicago": "united_states", "boston": "united_states", "seattle": "united_states",
	"austin": "united_states", "denver": "united_states", "portland": "united_states",
	"miami": "united_states", "philadelphia": "united_states", "atlanta": "united_states",
	"raleigh": "united_states", "palo alto": "united_states", "san jose": "united_states",
	"mountain view": "united_states", "sunnyvale": "united_states", "washington dc": "united_states",

	"toronto": "canada", "vancouver": "canada", "montreal": "canada",
	"london": "uk", "manchester": "uk", "edinburgh": "uk",
	"bangalore": "india", "bengaluru": "india", "mumbai": "india", "delhi": "india",
	"hyderabad": "india", "chennai": "india", "gurugram": "india",
	"sydney": "australia", "melbourne": "australia", "brisbane": "australia",
	"berlin": "germany", "munich": "germany",
}

var countryNames = []struct {
	phrase string
	id     string
}{
	{"united states", "united_states"},
	{"united kingdom", "uk"},
	{"england", "uk"},
	{"canada", "canada"},
	{"india", "india"},
	{"australia", "australia"},
	{"germany", "germany"},
	{"deutschland", "germany"},
}

var stateCode = regexp.MustCompile(`,\s*([A-Z]{2})\b`)

// Countries maps a free-text board location to catalog location ids.
// Lever joins several locations with ";". Unrecognised places yield nothing.
func Countries(location string) []string {
	set := map[string]bool{}
	for _, part := range strings.Split(location, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(strings.ToLower(part), "remote") {
			set["remote"] = true
		}
		if id := country(part); id != "" {
			set[id] = true
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func country(place string) string {
	norm := phrases(place)
	for _, c := range countryNames {
		if strings.Contains(norm, " "+c.phrase+" ") {
			return c.id
		}
	}
	words := tokens(place)
	switch {
	case words.any("usa", "us"):
		return "united_states"
	case words.any("uk"):
		return "uk"
	}
	for _, m := range stateCode.FindAllStringSubmatch(place, -1) {
		if usStates[m[1]] {
			return "united_states"
		}
	}
	for city, id := range cities {
		if strings.Contains(norm, " "+city+" ") {
			return id
		}
	}
	return ""
}

type wordSet map[string]bool

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokens(s string) wordSet {
	ws := wordSet{}
	for _, w := range words(s) {
		ws[w] = true
	}
	return ws
}

// phrases lowercases s into space-separated words with a space at each end,
// so whole-word phrases can be found with strings.Contains.
func phrases(s string) string {
	return " " + strings.Join(words(s), " ") + " "
}

func (ws wordSet) any(words ...string) bool {
	for _, w := range words {
		if ws[w] {
			return true
		}
	}
	return false
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
