package parcels

import (
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"

	"deedscout-backend/lib/addressutil"
)

// Router is a pure lookup from an address's jurisdiction to the
// portal that serves it.
type Router struct {
	portals []*Portal
}

func NewRouter(portals ...*Portal) *Router {
	if len(portals) == 0 {
		portals = Registry()
	}
	return &Router{portals: portals}
}

// Route matches on explicit county/state when the caller supplied
// them, otherwise on substrings of the raw address. A miss surfaces
// ErrUnsupportedJurisdiction with a nearest-county hint, which is
// usually enough for an operator to spot a typo'd batch.
func (r *Router) Route(addr addressutil.Address) (*Portal, error) {
	haystack := strings.ToLower(addr.County + " " + addr.State)
	if strings.TrimSpace(haystack) == "" {
		haystack = strings.ToLower(addr.Raw)
	}

	for _, portal := range r.portals {
		county := strings.ToLower(portal.County)
		state := strings.ToLower(portal.State)
		if strings.Contains(haystack, county) && strings.Contains(haystack, state) {
			return portal, nil
		}
	}

	suggestion := r.nearestCounty(addr.County)
	if suggestion != "" {
		return nil, fmt.Errorf(
			"%w: %q (closest supported county: %s)",
			ErrUnsupportedJurisdiction, addr.Raw, suggestion,
		)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedJurisdiction, addr.Raw)
}

func (r *Router) nearestCounty(county string) string {
	county = strings.ToLower(strings.TrimSpace(county))
	if county == "" {
		return ""
	}

	best := ""
	bestDistance := 4 // ignore anything further than 3 edits away
	for _, portal := range r.portals {
		distance := matchr.Levenshtein(county, strings.ToLower(portal.County))
		if distance < bestDistance {
			bestDistance = distance
			best = portal.County
		}
	}
	return best
}
