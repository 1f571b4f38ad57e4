package resolver

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"deedscout-backend/lib/addressutil"
	"deedscout-backend/lib/browser"
	"deedscout-backend/lib/scrapers/parcels"
	"deedscout-backend/lib/telemetry"
)

const ownershipText = `Ownership History
Owner	Effective Date
XU HUIPING  07/25/2023
ZHOU JING 09/03/2015

Building Summary
`

// fakeSession answers the scripts portal workflows generate from
// canned page content; every selector "exists".
type fakeSession struct {
	pageText string
	pageHTML string
	location string
	frames   []browser.FrameSnapshot
	closed   *atomic.Int64

	// markers never fire on pages reached through this url
	stallURL  string
	navigated string
}

func (s *fakeSession) Navigate(url string, timeout time.Duration) error {
	s.navigated = url
	return nil
}

func (s *fakeSession) Eval(script string, out any) error {
	switch {
	case strings.Contains(script, "innerText"):
		*(out.(*string)) = s.pageText
	case strings.Contains(script, "outerHTML"):
		*(out.(*string)) = s.pageHTML
	case strings.HasPrefix(script, "!!("):
		*(out.(*bool)) = s.stallURL == "" || s.navigated != s.stallURL
	case strings.Contains(script, "el.value"), strings.Contains(script, "el.click()"):
		*(out.(*bool)) = true
	case strings.Contains(script, "textContent"):
		*(out.(*string)) = ""
	}
	return nil
}

func (s *fakeSession) Location() (string, error) {
	return s.location, nil
}

func (s *fakeSession) Frames() ([]browser.FrameSnapshot, error) {
	return s.frames, nil
}

func (s *fakeSession) Close() {
	if s.closed != nil {
		s.closed.Add(1)
	}
}

type fakeLauncher struct {
	session fakeSession
	opened  atomic.Int64
	closed  atomic.Int64
}

func (l *fakeLauncher) NewSession() (browser.Session, error) {
	l.opened.Add(1)
	session := l.session
	session.closed = &l.closed
	return &session, nil
}

func (l *fakeLauncher) Close() {}

func testPortal() *parcels.Portal {
	return &parcels.Portal{
		Name:      "test-portal",
		County:    "Test",
		State:     "NC",
		SearchURL: "https://portal.test/search",

		FieldSelectors: []string{`input[name="address"]`},
		SubmitSelector: `button[type="submit"]`,

		ResultsMarker: `true`,
		ResultsSettle: 50 * time.Millisecond,
	}
}

func testService(launcher *fakeLauncher) *Service {
	return NewService(ServiceOptions{
		Router: parcels.NewRouter(testPortal()),
		Pool:   browser.NewPool(launcher, 2),
	})
}

func TestRunBatch(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:resolver")
	defer cleanup()

	launcher := &fakeLauncher{session: fakeSession{
		pageText: "Parcel 17 0036 LL0847\n" + ownershipText,
		location: "https://portal.test/record/1",
	}}
	service := testService(launcher)

	addresses := []addressutil.Address{
		addressutil.New("6409 Winding Arch Dr", "Test", "NC"),
		addressutil.New("1 Somewhere Else Rd", "Travis", "TX"),
		addressutil.New("88 Old Mill Rd", "Test", "NC"),
	}
	results, summary := service.Run(context.Background(), addresses, false)

	require.Len(t, results, 3)
	require.Equal(t, 3, summary.Total)
	require.Equal(t, 2, summary.Successful)
	require.Equal(t, 1, summary.Failed)

	// results stay in input order under concurrency
	require.Equal(t, "6409 Winding Arch Dr", results[0].Address)
	require.Equal(t, "1 Somewhere Else Rd", results[1].Address)
	require.Equal(t, "88 Old Mill Rd", results[2].Address)

	require.Equal(t, "XU HUIPING", results[0].OwnerName)
	require.Equal(t, "07/25/2023", results[0].EffectiveDate)
	require.Equal(t, "17 0036 LL0847", results[0].ParcelID)
	require.Equal(t, "Test", results[0].County)
	require.Equal(t, "NC", results[0].State)

	require.Contains(t, results[1].Error, "unsupported jurisdiction")
	require.Empty(t, results[1].OwnerName)
}

func TestRunReleasesSessions(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:resolver")
	defer cleanup()

	launcher := &fakeLauncher{session: fakeSession{pageText: ownershipText}}
	service := testService(launcher)

	addresses := []addressutil.Address{
		addressutil.New("6409 Winding Arch Dr", "Test", "NC"),
		addressutil.New("88 Old Mill Rd", "Test", "NC"),
		addressutil.New("12 Stone Gate Ln", "Test", "NC"),
	}
	service.Run(context.Background(), addresses, false)

	require.Equal(t, int64(3), launcher.opened.Load())
	require.Equal(t, int64(3), launcher.closed.Load())
}

func TestRunAddressDeadline(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:resolver")
	defer cleanup()

	stalling := testPortal()
	stalling.County = "Stall"
	stalling.SearchURL = "https://portal.test/stall"
	stalling.ResultsSettle = 5 * time.Second

	launcher := &fakeLauncher{session: fakeSession{
		pageText: ownershipText,
		location: "https://portal.test/record/1",
		stallURL: stalling.SearchURL,
	}}
	service := NewService(ServiceOptions{
		Router:          parcels.NewRouter(testPortal(), stalling),
		Pool:            browser.NewPool(launcher, 2),
		AddressDeadline: 200 * time.Millisecond,
	})

	addresses := []addressutil.Address{
		addressutil.New("6409 Winding Arch Dr", "Stall", "NC"),
		addressutil.New("88 Old Mill Rd", "Test", "NC"),
	}
	results, summary := service.Run(context.Background(), addresses, false)

	// only the stalled address times out, its sibling is untouched
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 1, summary.Successful)
	require.Contains(t, results[0].Error, "deadline")
	require.Empty(t, results[1].Error)
	require.Equal(t, "XU HUIPING", results[1].OwnerName)

	// the timed-out pipeline still released its session
	require.Equal(t, launcher.opened.Load(), launcher.closed.Load())
}

func TestNewServiceRequiresPool(t *testing.T) {
	require.Panics(t, func() {
		NewService(ServiceOptions{})
	})
}

func TestRunExtractionFailure(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:resolver")
	defer cleanup()

	launcher := &fakeLauncher{session: fakeSession{
		pageText: "Search produced no results for that address.",
		location: "https://portal.test/search",
	}}
	service := testService(launcher)

	results, summary := service.Run(
		context.Background(),
		[]addressutil.Address{addressutil.New("6409 Winding Arch Dr", "Test", "NC")},
		false,
	)

	require.Equal(t, 1, summary.Failed)
	require.Contains(t, results[0].Error, "could not extract")
	// jurisdiction fields found before the failing stage survive
	require.Equal(t, "Test", results[0].County)
	require.Equal(t, "NC", results[0].State)
}

func TestRunPartialResultOnDocumentFailure(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:resolver")
	defer cleanup()

	// search succeeds but the page holds no document indirection at
	// all, so the document stage fails while the extracted fields
	// survive in the result
	launcher := &fakeLauncher{session: fakeSession{
		pageText: ownershipText,
		location: "https://portal.test/record/1",
		pageHTML: "<html><body>no viewer here</body></html>",
	}}
	service := testService(launcher)

	results, summary := service.Run(
		context.Background(),
		[]addressutil.Address{addressutil.New("6409 Winding Arch Dr", "Test", "NC")},
		true,
	)

	require.Equal(t, 1, summary.Failed)
	require.Contains(t, results[0].Error, "no document")
	require.Equal(t, "XU HUIPING", results[0].OwnerName)
	require.Equal(t, "07/25/2023", results[0].EffectiveDate)
}
