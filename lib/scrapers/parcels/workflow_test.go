package parcels

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"deedscout-backend/lib/browser"
)

// fakeSession responds to the scripts the workflow generates based on
// a configured set of "existing" selectors and page content.
type fakeSession struct {
	pageText string
	pageHTML string
	location string
	frames   []browser.FrameSnapshot

	selectors map[string]bool
	texts     map[string]string

	navErr      error
	navigated   string
	fillScripts []string
	clicked     []string
	closed      bool
}

func (s *fakeSession) Navigate(url string, timeout time.Duration) error {
	s.navigated = url
	return s.navErr
}

func (s *fakeSession) matchSelector(script string) string {
	for selector := range s.selectors {
		if strings.Contains(script, fmt.Sprintf("%q", selector)) {
			return selector
		}
	}
	return ""
}

func (s *fakeSession) Eval(script string, out any) error {
	switch {
	case script == pageTextScript:
		*(out.(*string)) = s.pageText
	case script == pageHtmlScript:
		*(out.(*string)) = s.pageHTML
	case strings.HasPrefix(script, "!!("):
		*(out.(*bool)) = true
	case strings.Contains(script, "el.value"):
		selector := s.matchSelector(script)
		if selector != "" {
			s.fillScripts = append(s.fillScripts, script)
		}
		*(out.(*bool)) = selector != ""
	case strings.Contains(script, "el.click()"):
		selector := s.matchSelector(script)
		if selector != "" {
			s.clicked = append(s.clicked, selector)
		}
		*(out.(*bool)) = selector != ""
	case strings.Contains(script, "textContent"):
		*(out.(*string)) = s.texts[s.matchSelector(script)]
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
	s.closed = true
}

func testPortal() *Portal {
	return &Portal{
		Name:      "test-portal",
		County:    "Durham",
		State:     "NC",
		SearchURL: "https://example.test/search",

		ModeSelector: `#byAddress`,

		FieldSelectors: []string{`input[name="address"]`},
		SubmitSelector: `button[type="submit"]`,

		ResultsMarker: `true`,
		ResultsSettle: 50 * time.Millisecond,
	}
}

func TestSearchHappyPath(t *testing.T) {
	session := &fakeSession{
		pageText: durhamResultText,
		location: "https://example.test/search?done",
		selectors: map[string]bool{
			`#byAddress`:            true,
			`input[name="address"]`: true,
			`button[type="submit"]`: true,
		},
	}

	outcome, err := testPortal().Search(context.Background(), session, "6409 winding arch")
	require.NoError(t, err)

	require.Equal(t, "https://example.test/search", session.navigated)
	require.Contains(t, session.clicked, `#byAddress`)
	require.Contains(t, session.clicked, `button[type="submit"]`)
	require.Len(t, session.fillScripts, 1)
	require.Contains(t, session.fillScripts[0], `"6409 winding arch"`)

	require.Equal(t, durhamResultText, outcome.Text)
	require.Equal(t, "https://example.test/search?done", outcome.PageURL)
}

func TestSearchMissingModeSelector(t *testing.T) {
	session := &fakeSession{
		selectors: map[string]bool{
			`input[name="address"]`: true,
			`button[type="submit"]`: true,
		},
	}

	_, err := testPortal().Search(context.Background(), session, "6409 winding arch")

	var selErr SelectorNotFoundError
	require.ErrorAs(t, err, &selErr)
	require.Equal(t, "select-mode", selErr.Stage)
	require.Equal(t, `#byAddress`, selErr.Selector)
}

func TestSearchNavigationTimeout(t *testing.T) {
	session := &fakeSession{navErr: context.DeadlineExceeded}

	_, err := testPortal().Search(context.Background(), session, "6409 winding arch")
	require.ErrorIs(t, err, ErrNavigationTimeout)
}

func TestSearchResultsFrameFiltering(t *testing.T) {
	portal := testPortal()
	portal.ResultsFramePattern = regexp.MustCompile(`/record/`)

	session := &fakeSession{
		selectors: map[string]bool{
			`#byAddress`:            true,
			`input[name="address"]`: true,
			`button[type="submit"]`: true,
		},
		frames: []browser.FrameSnapshot{
			{URL: "https://example.test/nav", Text: "navigation chrome"},
			{URL: "https://example.test/record/42", Text: "Ownership History"},
		},
	}

	outcome, err := portal.Search(context.Background(), session, "6409 winding arch")
	require.NoError(t, err)
	require.Len(t, outcome.Frames, 1)
	require.Equal(t, "https://example.test/record/42", outcome.Frames[0].URL)
}

func TestSearchExpectedFrameAbsent(t *testing.T) {
	portal := testPortal()
	portal.ResultsFramePattern = regexp.MustCompile(`/record/`)

	session := &fakeSession{
		selectors: map[string]bool{
			`#byAddress`:            true,
			`input[name="address"]`: true,
			`button[type="submit"]`: true,
		},
	}

	outcome, err := portal.Search(context.Background(), session, "6409 winding arch")
	require.NoError(t, err)

	// the absent frame shows up as an empty snapshot so extraction
	// downstream fails on its own terms instead of the search failing
	require.Len(t, outcome.Frames, 1)
	require.Empty(t, outcome.Frames[0].Text)
}

func TestFullTextJoinsFrames(t *testing.T) {
	outcome := SearchOutcome{
		Text: "page",
		Frames: []browser.FrameSnapshot{
			{Text: "frame one"},
			{},
			{Text: "frame two"},
		},
	}
	require.Equal(t, "page\nframe one\nframe two", outcome.FullText())
}
