package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"deedscout-backend/lib/addressutil"
	"deedscout-backend/lib/browser"
	"deedscout-backend/lib/scrapers/deeds"
	"deedscout-backend/lib/scrapers/parcels"
)

var tracer = otel.Tracer("services/resolver")

// ScrapeResult is everything one address resolution produced. A
// failed resolution still carries the fields discovered before the
// failing stage.
type ScrapeResult struct {
	Address        string `json:"address"`
	ParcelID       string `json:"parcelId,omitempty"`
	OwnerName      string `json:"ownerName,omitempty"`
	EffectiveDate  string `json:"effectiveDate,omitempty"`
	MailingAddress string `json:"mailingAddress,omitempty"`
	County         string `json:"county,omitempty"`
	State          string `json:"state,omitempty"`
	DocumentBytes  []byte `json:"-"`
	Error          string `json:"error,omitempty"`
}

type BatchSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

const defaultAddressDeadline = 3 * time.Minute

type Service struct {
	router          *parcels.Router
	pool            *browser.Pool
	fetcher         *deeds.Fetcher
	addressDeadline time.Duration
}

type ServiceOptions struct {
	Router *parcels.Router
	// Pool is required, Router and Fetcher default when nil
	Pool    *browser.Pool
	Fetcher *deeds.Fetcher
	// zero means the 3 minute default
	AddressDeadline time.Duration
}

func NewService(opts ServiceOptions) *Service {
	if opts.Pool == nil {
		panic("resolver: ServiceOptions.Pool is required")
	}
	deadline := opts.AddressDeadline
	if deadline == 0 {
		deadline = defaultAddressDeadline
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = deeds.NewFetcher()
	}
	router := opts.Router
	if router == nil {
		router = parcels.NewRouter()
	}
	return &Service{
		router:          router,
		pool:            opts.Pool,
		fetcher:         fetcher,
		addressDeadline: deadline,
	}
}

// Run resolves a batch. Address pipelines run concurrently, bounded
// by the browser pool; each one is sequential internally. Results
// land at the index of their originating address no matter which
// order pipelines finish in, and the summary is only computed once
// every pipeline has reached a terminal state.
func (s *Service) Run(ctx context.Context, addresses []addressutil.Address, wantDocument bool) ([]ScrapeResult, BatchSummary) {
	batchId := uuid.NewString()
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("batch_id", batchId),
		attribute.Int("addresses", len(addresses)),
	)
	slog.InfoContext(ctx, "starting batch", "batch_id", batchId, "addresses", len(addresses))

	results := make([]ScrapeResult, len(addresses))
	var wg sync.WaitGroup
	for i, addr := range addresses {
		wg.Add(1)
		go func(i int, addr addressutil.Address) {
			defer wg.Done()
			results[i] = s.resolveOne(ctx, addr, wantDocument)
		}(i, addr)
	}
	wg.Wait()

	summary := BatchSummary{Total: len(addresses)}
	for _, result := range results {
		if result.Error == "" {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	slog.InfoContext(
		ctx, "batch finished",
		"batch_id", batchId,
		"successful", summary.Successful,
		"failed", summary.Failed,
	)
	return results, summary
}

func (s *Service) resolveOne(ctx context.Context, addr addressutil.Address, wantDocument bool) ScrapeResult {
	ctx, cancel := context.WithTimeout(ctx, s.addressDeadline)
	defer cancel()

	ctx, span := tracer.Start(ctx, "resolveOne")
	defer span.End()
	span.SetAttributes(attribute.String("address", addr.Raw))

	result := ScrapeResult{Address: addr.Raw}

	fail := func(err error) ScrapeResult {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("address deadline of %s exceeded: %w", s.addressDeadline, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "address resolution failed")
		slog.WarnContext(ctx, "address resolution failed", "address", addr.Raw, "err", err)
		result.Error = err.Error()
		return result
	}

	portal, err := s.router.Route(addr)
	if err != nil {
		return fail(err)
	}
	result.County = portal.County
	result.State = portal.State

	session, release, err := s.pool.Acquire(ctx)
	if err != nil {
		return fail(err)
	}
	defer release()

	outcome, err := s.searchWithRetry(ctx, portal, session, addr.SearchTerm)
	if err != nil {
		return fail(err)
	}

	text := outcome.FullText()
	record := parcels.ExtractRecord(text)
	result.OwnerName = record.OwnerName
	result.EffectiveDate = record.EffectiveDate
	result.MailingAddress = outcome.MailingAddress

	result.ParcelID = outcome.ParcelID
	if result.ParcelID == "" {
		result.ParcelID = parcels.FindParcelID(text)
	}

	if result.OwnerName == "" && result.ParcelID == "" {
		// the search itself worked, the page just held nothing we
		// recognize; whatever was found stays in the result
		return fail(fmt.Errorf("%w: no owner or parcel id on result page", parcels.ErrExtractionFailure))
	}

	if wantDocument {
		document, err := s.fetchDocument(ctx, outcome)
		if err != nil {
			return fail(err)
		}
		result.DocumentBytes = document
	}

	return result
}

// one bounded retry for navigation timeouts only; a missing selector
// means the portal changed and retrying cannot help
func (s *Service) searchWithRetry(ctx context.Context, portal *parcels.Portal, session browser.Session, term string) (parcels.SearchOutcome, error) {
	outcome, err := portal.Search(ctx, session, term)
	if errors.Is(err, parcels.ErrNavigationTimeout) {
		slog.WarnContext(ctx, "navigation timed out, retrying once", "portal", portal.Name)
		outcome, err = portal.Search(ctx, session, term)
	}
	return outcome, err
}

var errNoDocument = errors.New("no document found behind the result page")

func (s *Service) fetchDocument(ctx context.Context, outcome parcels.SearchOutcome) ([]byte, error) {
	page := browser.FrameSnapshot{
		URL:  outcome.PageURL,
		Text: outcome.Text,
		HTML: outcome.PageHTML,
	}
	candidates := deeds.Locate(page, outcome.Frames)

	var lastErr error
	for _, candidate := range candidates {
		if !candidate.Resolved() {
			continue
		}
		document, err := s.fetcher.Fetch(ctx, candidate.ResolvedFileURL, candidate.MimeType)
		if err != nil {
			slog.WarnContext(
				ctx, "document candidate failed",
				"url", candidate.ResolvedFileURL,
				"err", err,
			)
			lastErr = err
			continue
		}
		return document, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errNoDocument
}
