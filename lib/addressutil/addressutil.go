package addressutil

import (
	"regexp"
	"strings"
)

// Address is a single property address as submitted by a caller,
// along with the portal-search term derived from it.
type Address struct {
	Raw        string
	SearchTerm string
	County     string
	State      string
}

func New(raw, county, state string) Address {
	return Address{
		Raw:        raw,
		SearchTerm: Normalize(raw),
		County:     county,
		State:      state,
	}
}

// street suffix tokens in priority order, scanning stops at the first
// one present as a whole word
var streetSuffixes = []string{
	"street", "st", "drive", "dr", "road", "rd", "avenue", "ave",
	"boulevard", "blvd", "lane", "ln", "court", "ct", "circle", "cir",
	"way", "place", "pl", "trail", "parkway", "pkwy",
}

var suffixPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(streetSuffixes))
	for i, suffix := range streetSuffixes {
		patterns[i] = regexp.MustCompile(`\b` + suffix + `\b`)
	}
	return patterns
}()

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize reduces a raw address to the term record portals expect:
// the street number and name, without the suffix or anything after it.
// County search forms match on "6409 winding arch", not the full
// mailing address. Truncation repeats until stable so that chained
// street words ("100 park place court") cannot leave a suffix behind,
// keeping Normalize idempotent for every input.
func Normalize(raw string) string {
	term := strings.ToLower(strings.TrimSpace(raw))

	for {
		truncated := truncateAtSuffix(term)
		if truncated == term {
			break
		}
		term = truncated
	}

	term = strings.ReplaceAll(term, ",", "")
	term = whitespaceRegex.ReplaceAllString(term, " ")
	return strings.TrimSpace(term)
}

// first whole-word suffix in priority order wins
func truncateAtSuffix(term string) string {
	for _, pattern := range suffixPatterns {
		loc := pattern.FindStringIndex(term)
		if loc != nil {
			return term[:loc[0]]
		}
	}
	return term
}
