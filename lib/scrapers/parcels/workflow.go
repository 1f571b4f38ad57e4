package parcels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"deedscout-backend/lib/browser"
)

var tracer = otel.Tracer("scrapers/parcels")

// Portal describes one county record site. Every portal runs the same
// search workflow; the differences between sites live entirely in
// this configuration.
type Portal struct {
	Name   string
	County string
	State  string

	SearchURL string

	// some portals disable their fields until a search mode (e.g.
	// "by address") is chosen; both empty when not needed
	ModeSelector string
	ModeValue    string

	// input selectors the normalized term is typed into
	FieldSelectors []string

	// either a clickable submit element or a script that submits the
	// form programmatically
	SubmitSelector string
	SubmitScript   string

	// ReadySettle/ResultsSettle are ceilings, not sleeps: the workflow
	// polls the marker condition and moves on as soon as it holds.
	// The durations themselves are tuned per portal and approximate
	// how long each site takes to render asynchronously loaded
	// content; there is no true completion signal to wait on.
	ReadyMarker   string
	ReadySettle   time.Duration
	ResultsMarker string
	ResultsSettle time.Duration

	// pattern matching the url of the frame this portal renders
	// results into; nil when results render in the main document
	ResultsFramePattern *regexp.Regexp

	// optional structured result fields
	ParcelIDSelector string
	MailingSelector  string
}

const navigateTimeout = 30 * time.Second
const pollInterval = 250 * time.Millisecond

const defaultReadyMarker = `document.readyState === "complete"`

// Search drives the portal's workflow with an already-normalized
// search term and returns the raw result content. The session is the
// caller's to close.
func (p *Portal) Search(ctx context.Context, session browser.Session, term string) (SearchOutcome, error) {
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("portal", p.Name),
		attribute.String("term", term),
	)

	outcome, err := p.runWorkflow(ctx, session, term)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "portal search failed")
		return outcome, err
	}
	return outcome, nil
}

func (p *Portal) runWorkflow(ctx context.Context, session browser.Session, term string) (SearchOutcome, error) {
	slog.DebugContext(ctx, "navigating", "portal", p.Name, "url", p.SearchURL)
	err := session.Navigate(p.SearchURL, navigateTimeout)
	if errors.Is(err, context.DeadlineExceeded) {
		return SearchOutcome{}, fmt.Errorf("%w: %s", ErrNavigationTimeout, p.SearchURL)
	}
	if err != nil {
		return SearchOutcome{}, fmt.Errorf("navigate %s: %w", p.SearchURL, err)
	}

	ready := p.ReadyMarker
	if ready == "" {
		ready = defaultReadyMarker
	}
	settled := waitUntil(ctx, session, ready, p.ReadySettle)
	slog.DebugContext(ctx, "settled", "portal", p.Name, "marker_hit", settled)

	if err := aborted(ctx); err != nil {
		return SearchOutcome{}, err
	}

	if p.ModeSelector != "" {
		err = p.selectMode(ctx, session)
		if err != nil {
			return SearchOutcome{}, err
		}
	}

	for _, selector := range p.FieldSelectors {
		err = p.fillField(ctx, session, selector, term)
		if err != nil {
			return SearchOutcome{}, err
		}
	}

	err = p.submit(ctx, session)
	if err != nil {
		return SearchOutcome{}, err
	}
	if err := aborted(ctx); err != nil {
		return SearchOutcome{}, err
	}

	resultsReady := waitUntil(ctx, session, p.ResultsMarker, p.ResultsSettle)
	if err := aborted(ctx); err != nil {
		return SearchOutcome{}, err
	}
	if !resultsReady {
		// the marker is an approximation of "results rendered"; when
		// it never fires we still snapshot whatever the page shows
		// and let extraction fail downstream if it must
		slog.WarnContext(ctx, "results marker never fired", "portal", p.Name)
	}

	return p.collect(ctx, session)
}

func (p *Portal) selectMode(ctx context.Context, session browser.Session) error {
	var script string
	if p.ModeValue == "" {
		script = clickScript(p.ModeSelector)
	} else {
		script = setValueScript(p.ModeSelector, p.ModeValue, "change")
	}

	var found bool
	err := session.Eval(script, &found)
	if err != nil {
		return fmt.Errorf("select search mode: %w", err)
	}
	if !found {
		return SelectorNotFoundError{Portal: p.Name, Stage: "select-mode", Selector: p.ModeSelector}
	}
	slog.DebugContext(ctx, "search mode selected", "portal", p.Name, "selector", p.ModeSelector)
	return nil
}

func (p *Portal) fillField(ctx context.Context, session browser.Session, selector, term string) error {
	var found bool
	err := session.Eval(setValueScript(selector, term, "input"), &found)
	if err != nil {
		return fmt.Errorf("fill search field: %w", err)
	}
	if !found {
		return SelectorNotFoundError{Portal: p.Name, Stage: "fill", Selector: selector}
	}
	slog.DebugContext(ctx, "field filled", "portal", p.Name, "selector", selector)
	return nil
}

func (p *Portal) submit(ctx context.Context, session browser.Session) error {
	if p.SubmitSelector != "" {
		var found bool
		err := session.Eval(clickScript(p.SubmitSelector), &found)
		if err != nil {
			return fmt.Errorf("submit search: %w", err)
		}
		if !found {
			return SelectorNotFoundError{Portal: p.Name, Stage: "submit", Selector: p.SubmitSelector}
		}
		return nil
	}

	err := session.Eval(p.SubmitScript, nil)
	if err != nil {
		return fmt.Errorf("submit search: %w", err)
	}
	slog.DebugContext(ctx, "search submitted", "portal", p.Name)
	return nil
}

const pageTextScript = `document.body ? document.body.innerText : ""`
const pageHtmlScript = `document.documentElement ? document.documentElement.outerHTML : ""`

func (p *Portal) collect(ctx context.Context, session browser.Session) (SearchOutcome, error) {
	var outcome SearchOutcome

	var err error
	outcome.PageURL, err = session.Location()
	if err != nil {
		return outcome, fmt.Errorf("read page location: %w", err)
	}

	err = session.Eval(pageTextScript, &outcome.Text)
	if err != nil {
		return outcome, fmt.Errorf("read page text: %w", err)
	}
	err = session.Eval(pageHtmlScript, &outcome.PageHTML)
	if err != nil {
		return outcome, fmt.Errorf("read page html: %w", err)
	}

	frames, err := session.Frames()
	if err != nil {
		return outcome, fmt.Errorf("enumerate frames: %w", err)
	}
	if p.ResultsFramePattern != nil {
		for _, frame := range frames {
			if p.ResultsFramePattern.MatchString(frame.URL) {
				outcome.Frames = append(outcome.Frames, frame)
			}
		}
		if len(outcome.Frames) == 0 {
			// expected frame absent: carry an empty snapshot so
			// extraction fails gracefully instead of the search
			slog.WarnContext(ctx, "results frame absent", "portal", p.Name)
			outcome.Frames = append(outcome.Frames, browser.FrameSnapshot{})
		}
	} else {
		outcome.Frames = frames
	}

	if p.ParcelIDSelector != "" {
		outcome.ParcelID = evalOptionalText(session, p.ParcelIDSelector)
	}
	if p.MailingSelector != "" {
		outcome.MailingAddress = evalOptionalText(session, p.MailingSelector)
	}

	return outcome, nil
}

// aborted converts an expired or cancelled address context into a
// search error, so a deadline hit mid-workflow stops driving the
// browser instead of collecting a result anyway.
func aborted(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("search aborted: %w", ctx.Err())
	}
	return nil
}

// waitUntil polls the condition until it holds or the ceiling
// elapses, reporting whether it held. It never errors: the ceiling
// expiring is an expected outcome on slow portals.
func waitUntil(ctx context.Context, session browser.Session, condition string, ceiling time.Duration) bool {
	if condition == "" || ceiling <= 0 {
		return false
	}
	deadline := time.Now().Add(ceiling)
	for {
		var ok bool
		err := session.Eval(fmt.Sprintf("!!(%s)", condition), &ok)
		if err == nil && ok {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pollInterval):
		}
	}
}

func setValueScript(selector, value, event string) string {
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.value = %q;
		el.dispatchEvent(new Event(%q, { bubbles: true }));
		return true;
	})()`, selector, value, event)
}

func clickScript(selector string) string {
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.click();
		return true;
	})()`, selector)
}

func evalOptionalText(session browser.Session, selector string) string {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? el.textContent.trim() : "";
	})()`, selector)

	var text string
	err := session.Eval(script, &text)
	if err != nil {
		return ""
	}
	return text
}
