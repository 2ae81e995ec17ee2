package tag

import (
	"regexp"
	"strings"
	"sync"
)

// stateCodes lists the 50 US state abbreviations checked first, since
// insurer filings almost always carry the code rather than the name.
var stateCodes = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

// stateNames maps full state names to codes. Compound names come
// before their suffixes ("west virginia" before "virginia") so the
// first substring hit is the most specific one.
var stateNames = []struct{ name, code string }{
	{"new hampshire", "NH"}, {"new jersey", "NJ"}, {"new mexico", "NM"},
	{"new york", "NY"}, {"north carolina", "NC"}, {"north dakota", "ND"},
	{"south carolina", "SC"}, {"south dakota", "SD"}, {"west virginia", "WV"},
	{"rhode island", "RI"},
	{"alabama", "AL"}, {"alaska", "AK"}, {"arizona", "AZ"}, {"arkansas", "AR"},
	{"california", "CA"}, {"colorado", "CO"}, {"connecticut", "CT"}, {"delaware", "DE"},
	{"florida", "FL"}, {"georgia", "GA"}, {"hawaii", "HI"}, {"idaho", "ID"},
	{"illinois", "IL"}, {"indiana", "IN"}, {"iowa", "IA"}, {"kansas", "KS"},
	{"kentucky", "KY"}, {"louisiana", "LA"}, {"maine", "ME"}, {"maryland", "MD"},
	{"massachusetts", "MA"}, {"michigan", "MI"}, {"minnesota", "MN"}, {"mississippi", "MS"},
	{"missouri", "MO"}, {"montana", "MT"}, {"nebraska", "NE"}, {"nevada", "NV"},
	{"ohio", "OH"}, {"oklahoma", "OK"}, {"oregon", "OR"}, {"pennsylvania", "PA"},
	{"tennessee", "TN"}, {"texas", "TX"}, {"utah", "UT"}, {"vermont", "VT"},
	{"virginia", "VA"}, {"washington", "WA"}, {"wisconsin", "WI"}, {"wyoming", "WY"},
}

var (
	codePatterns     map[string]*regexp.Regexp
	codePatternsOnce sync.Once
)

// compileCodePatterns builds per-code matchers requiring the code to
// appear as its own token, so "OR" in "FORMULARY" never matches.
func compileCodePatterns() {
	codePatterns = make(map[string]*regexp.Regexp, len(stateCodes))
	for _, code := range stateCodes {
		codePatterns[code] = regexp.MustCompile(`(^|[^A-Z0-9])` + code + `([^A-Z0-9]|$)`)
	}
}

// RegionFromSource extracts a US state code from a source filename or
// path. It tries the two-letter codes as separate tokens first, then
// full state names as case-insensitive substrings. Returns Unknown
// when nothing matches; no match is never an error.
func RegionFromSource(source string) string {
	codePatternsOnce.Do(compileCodePatterns)

	upper := strings.ToUpper(source)
	for _, code := range stateCodes {
		if codePatterns[code].MatchString(upper) {
			return code
		}
	}

	lower := strings.ToLower(source)
	for _, s := range stateNames {
		if strings.Contains(lower, s.name) {
			return s.code
		}
	}
	return Unknown
}
