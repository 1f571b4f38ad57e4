package parcels

import (
	"errors"
	"fmt"

	"deedscout-backend/lib/browser"
)

// ParcelRecord is the normalized ownership record produced from one
// portal's result page, however that portal happens to lay it out.
type ParcelRecord struct {
	ParcelID       string
	OwnerName      string
	EffectiveDate  string
	MailingAddress string
	County         string
	State          string
}

// SearchOutcome is the raw material a portal search produced: the
// visible text of the result page, plus any result frames the portal
// renders content into.
type SearchOutcome struct {
	PageURL  string
	Text     string
	PageHTML string
	Frames   []browser.FrameSnapshot
	// ParcelID is set when the portal exposes a structured parcel id
	// field; when empty, extraction falls back to a text scan.
	ParcelID string
	// MailingAddress, like ParcelID, comes from a structured field
	// when the portal has one.
	MailingAddress string
}

// FullText returns the page text followed by every frame's text,
// which is what the record extractor scans.
func (o SearchOutcome) FullText() string {
	text := o.Text
	for _, frame := range o.Frames {
		if frame.Text == "" {
			continue
		}
		text += "\n" + frame.Text
	}
	return text
}

var ErrUnsupportedJurisdiction = errors.New("unsupported jurisdiction")
var ErrNavigationTimeout = errors.New("navigation timed out")
var ErrExtractionFailure = errors.New("could not extract required field")

// SelectorNotFoundError means a portal changed its layout out from
// under us. Retrying will not help until the portal definition is
// updated, so callers must not treat this as transient.
type SelectorNotFoundError struct {
	Portal   string
	Stage    string
	Selector string
}

func (e SelectorNotFoundError) Error() string {
	return fmt.Sprintf(
		"%s: selector %q not found during %s, portal layout likely changed",
		e.Portal, e.Selector, e.Stage,
	)
}
