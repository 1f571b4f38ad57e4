package parcels

import (
	"regexp"
	"strings"
)

var dateTokenRegex = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
var consecutiveLettersRegex = regexp.MustCompile(`[A-Za-z]{2}`)

// parcel ids look like "17 0036 LL0847" on portals that never label
// them in a queryable element
var parcelIDRegex = regexp.MustCompile(`\b\d{2}\s+\d{4}\s+[A-Za-z0-9]{6}\b`)

// ExtractRecord scans a result page's visible text for the current
// owner. Portals differ wildly in layout but all of them render an
// "Ownership History" table whose first data row is the most recent
// owner; that row is the one we take, later rows are history.
func ExtractRecord(text string) ParcelRecord {
	var record ParcelRecord

	owner, date, ok := scanOwnershipHistory(text)
	if ok {
		record.OwnerName = owner
		record.EffectiveDate = date
	}

	return record
}

func scanOwnershipHistory(text string) (owner, date string, ok bool) {
	lines := strings.Split(text, "\n")

	start := -1
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), "ownership history") {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return "", "", false
	}

	for _, line := range lines[start:] {
		lower := strings.ToLower(line)

		// the ownership block ends where the next page section begins
		if strings.Contains(lower, "building summary") || strings.Contains(lower, "legal disclaimer") {
			return "", "", false
		}

		// header row
		if strings.Contains(lower, "owner") && strings.Contains(lower, "effective date") {
			continue
		}

		loc := dateTokenRegex.FindStringIndex(line)
		if loc == nil {
			continue
		}

		name := strings.TrimSpace(line[:loc[0]])
		if !consecutiveLettersRegex.MatchString(name) {
			// stray numeric or noise line, not an owner row
			continue
		}

		return name, line[loc[0]:loc[1]], true
	}

	return "", "", false
}

// FindParcelID is the fallback for portals that expose no structured
// parcel id field: the first thing in the text shaped like a parcel
// id wins.
func FindParcelID(text string) string {
	return parcelIDRegex.FindString(text)
}
