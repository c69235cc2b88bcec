package property

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var suffixes = map[string]string{
	"st":    "Street",
	"str":   "Street",
	"ave":   "Avenue",
	"av":    "Avenue",
	"blvd":  "Boulevard",
	"rd":    "Road",
	"pl":    "Place",
	"dr":    "Drive",
	"ln":    "Lane",
	"ct":    "Court",
	"pkwy":  "Parkway",
	"hwy":   "Highway",
	"sq":    "Square",
	"ter":   "Terrace",
	"tpke":  "Turnpike",
	"expy":  "Expressway",
	"bway":  "Broadway",
	"plz":   "Plaza",
	"cir":   "Circle",
	"aly":   "Alley",
	"hts":   "Heights",
	"xing":  "Crossing",
	"frwy":  "Freeway",
	"prom":  "Promenade",
	"esp":   "Esplanade",
	"crst":  "Crescent",
	"cres":  "Crescent",
	"gdns":  "Gardens",
	"grn":   "Green",
	"concs": "Concourse",
}

// Terms that mark an address as a park, pier or other non-building site.
var nonBuildingTerms = []string{
	"park", "plaza", "pier", "playground", "garden", "gardens",
	"field", "bridge", "terminal", "station", "beach", "island",
}

var streetLike = regexp.MustCompile(`^\d+[A-Za-z]?(-\d+)?\s+\S+`)

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeAddress cleans a free-text address for use in endpoint queries.
// Whitespace is trimmed and collapsed, diacritics removed and street-suffix
// abbreviations expanded ("St." becomes "Street"). For park, pier and similar
// addresses the first comma-separated segment that looks like a street
// address is used instead of the whole string.
func NormalizeAddress(raw string) string {
	s := clean(raw)
	if s == "" {
		return ""
	}
	if hasNonBuildingTerm(s) {
		for _, seg := range strings.Split(s, ",") {
			seg = strings.TrimSpace(seg)
			if streetLike.MatchString(seg) {
				s = seg
				break
			}
		}
	}

	segs := strings.Split(s, ",")
	for i, seg := range segs {
		segs[i] = expandSuffix(strings.TrimSpace(seg))
	}
	return strings.Join(segs, ", ")
}

// SplitAddress separates a leading house number from the street name.
// Hyphenated house numbers ("37-10") are kept intact. When the address has
// no house number house is empty and street holds the whole input.
func SplitAddress(addr string) (house, street string) {
	fields := strings.Fields(addr)
	if len(fields) < 2 || !startsWithDigit(fields[0]) {
		return "", strings.Join(fields, " ")
	}
	return strings.TrimSuffix(fields[0], ","), strings.Join(fields[1:], " ")
}

// StreetCore upper-cases a street name and drops its trailing suffix word so
// it can be matched against datasets that abbreviate differently.
func StreetCore(street string) string {
	fields := strings.Fields(strings.ToUpper(street))
	if len(fields) > 1 {
		last := strings.ToLower(strings.TrimSuffix(fields[len(fields)-1], "."))
		if _, ok := suffixes[last]; ok || isExpandedSuffix(last) {
			fields = fields[:len(fields)-1]
		}
	}
	return strings.Join(fields, " ")
}

func clean(raw string) string {
	s, _, err := transform.String(stripMarks, raw)
	if err != nil {
		s = raw
	}
	return strings.Join(strings.Fields(s), " ")
}

func expandSuffix(seg string) string {
	fields := strings.Fields(seg)
	if len(fields) < 2 {
		return seg
	}
	last := fields[len(fields)-1]
	key := strings.ToLower(strings.TrimSuffix(last, "."))
	if full, ok := suffixes[key]; ok {
		fields[len(fields)-1] = full
	}
	return strings.Join(fields, " ")
}

func hasNonBuildingTerm(s string) bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		for _, term := range nonBuildingTerms {
			if w == term {
				return true
			}
		}
	}
	return false
}

func isExpandedSuffix(word string) bool {
	for _, full := range suffixes {
		if strings.EqualFold(word, full) {
			return true
		}
	}
	return false
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
