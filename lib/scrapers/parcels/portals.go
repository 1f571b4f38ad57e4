package parcels

import (
	"regexp"
	"time"
)

// The five portals the service currently understands. Settle ceilings
// are tuned per site; the spatialest portals render into the main
// document while the legacy ASP.NET sites push results into a frame.

var Durham = &Portal{
	Name:      "durham-spatialest",
	County:    "Durham",
	State:     "NC",
	SearchURL: "https://property.spatialest.com/nc/durham/",

	FieldSelectors: []string{`input[name="searchInput"]`},
	SubmitSelector: `button[type="submit"]`,

	ReadySettle:   3 * time.Second,
	ResultsMarker: `document.body && document.body.innerText.toLowerCase().includes("ownership history")`,
	ResultsSettle: 5 * time.Second,

	ParcelIDSelector: `[data-testid="parcel-id"]`,
}

var Wake = &Portal{
	Name:      "wake-realestate",
	County:    "Wake",
	State:     "NC",
	SearchURL: "https://services.wake.gov/realestate/search.asp",

	ModeSelector: `select[name="stype"]`,
	ModeValue:    "address",

	FieldSelectors: []string{`input[name="stnum"]`, `input[name="stname"]`},
	SubmitScript:   `document.forms[0].submit()`,

	ReadySettle:   2 * time.Second,
	ResultsMarker: `document.querySelectorAll("table tr").length > 1`,
	ResultsSettle: 4 * time.Second,
}

var Mecklenburg = &Portal{
	Name:      "mecklenburg-polaris",
	County:    "Mecklenburg",
	State:     "NC",
	SearchURL: "https://polaris3g.mecklenburgcountync.gov/",

	FieldSelectors: []string{`input[placeholder*="Search"]`},
	SubmitSelector: `button[aria-label="Search"]`,

	ReadySettle:   4 * time.Second,
	ResultsMarker: `!!document.querySelector(".results-list")`,
	ResultsSettle: 5 * time.Second,
}

var Guilford = &Portal{
	Name:      "guilford-camapwa",
	County:    "Guilford",
	State:     "NC",
	SearchURL: "https://taxcama.guilfordcountync.gov/camapwa/",

	ModeSelector: `#searchByAddress`,

	FieldSelectors: []string{`input[name="Address"]`},
	SubmitSelector: `input[type="submit"]`,

	ReadySettle:   2 * time.Second,
	ResultsMarker: `document.body && document.body.innerText.toLowerCase().includes("parcel")`,
	ResultsSettle: 4 * time.Second,

	ResultsFramePattern: regexp.MustCompile(`camapwa/.*(Results|Detail)`),
}

var Forsyth = &Portal{
	Name:      "forsyth-devnet",
	County:    "Forsyth",
	State:     "NC",
	SearchURL: "https://tax.forsyth.cc/search",

	FieldSelectors: []string{`input[name="address"]`},
	SubmitSelector: `button.search-submit`,

	ReadySettle:   2 * time.Second,
	ResultsMarker: `!!document.querySelector("iframe[src*='record']")`,
	ResultsSettle: 5 * time.Second,

	ResultsFramePattern: regexp.MustCompile(`/record/`),
}

// Registry lists every supported portal in routing order.
func Registry() []*Portal {
	return []*Portal{Durham, Wake, Mecklenburg, Guilford, Forsyth}
}
