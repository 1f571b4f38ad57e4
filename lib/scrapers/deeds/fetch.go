package deeds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"time"
	"unicode/utf8"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"

	"deedscout-backend/lib/restyutil"
)

var fetchTracer = otel.Tracer("scrapers/deeds")

var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}

var ErrDownloadFailure = errors.New("document download failed")

// InvalidDocumentError means the bytes at the resolved url are not
// the document format the viewer promised. The body is kept so the
// actual payload (often an HTML error page) can be inspected.
type InvalidDocumentError struct {
	Body []byte
}

func (e InvalidDocumentError) Error() string {
	return fmt.Sprintf("document bytes are not a known format: %s", previewBody(e.Body))
}

// SuspectPayloadError flags a response too small to plausibly be a
// document. Portals have been seen returning ~238-byte error bodies
// with a 200 status.
type SuspectPayloadError struct {
	Body []byte
}

func (e SuspectPayloadError) Error() string {
	return fmt.Sprintf("document payload suspiciously small (%d bytes): %s", len(e.Body), previewBody(e.Body))
}

func previewBody(body []byte) string {
	const max = 512
	if len(body) > max {
		body = body[:max]
	}
	if utf8.Valid(body) {
		return string(body)
	}
	return fmt.Sprintf("(%d binary bytes)", len(body))
}

// minPlausibleSize is well above the small error bodies portals
// return with a success status, and well below any real deed scan.
const minPlausibleSize = 1024

var magicPrefixes = map[string][]byte{
	"application/pdf": []byte("%PDF"),
	"image/png":       {0x89, 0x50, 0x4E, 0x47},
	"image/jpeg":      {0xFF, 0xD8, 0xFF},
	"image/tiff":      {0x49, 0x49, 0x2A, 0x00},
}

type Fetcher struct {
	client      *resty.Client
	maxAttempts int
}

func NewFetcher() *Fetcher {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err == nil {
		client.SetCookieJar(jar)
	}
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)
	restyutil.InstrumentClient(client, fetchTracer, restyInstrumentOutput)

	return &Fetcher{
		client:      client,
		maxAttempts: 3,
	}
}

// Fetch retrieves the document bytes behind a resolved url and
// validates them. expectedMime narrows the magic-byte check to one
// format family; pass "" to accept any known family. Network and
// HTTP-status failures are retried with backoff, validation failures
// are not: a malformed payload will be exactly as malformed on the
// next attempt, and retrying would only hide a misconstructed url.
func (f *Fetcher) Fetch(ctx context.Context, url, expectedMime string) ([]byte, error) {
	ctx, span := fetchTracer.Start(ctx, "Fetch")
	defer span.End()

	body, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}

	err = validateMagic(body, expectedMime)
	if err != nil {
		return nil, err
	}
	if len(body) < minPlausibleSize {
		return nil, SuspectPayloadError{Body: body}
	}
	return body, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if attempt > 1 {
			sleepWithJitter(ctx, attempt)
		}

		res, err := f.client.R().SetContext(ctx).Get(url)
		if err != nil {
			lastErr = fmt.Errorf("%w: %s: %s", ErrDownloadFailure, url, err)
			slog.WarnContext(ctx, "document download failed", "url", url, "attempt", attempt, "err", err)
			continue
		}
		if res.StatusCode() != 200 {
			lastErr = fmt.Errorf("%w: %s: status %d", ErrDownloadFailure, url, res.StatusCode())
			slog.WarnContext(ctx, "document download failed", "url", url, "attempt", attempt, "status", res.StatusCode())
			continue
		}
		return res.Body(), nil
	}
	return nil, lastErr
}

func sleepWithJitter(ctx context.Context, attempt int) {
	jitterMs, err := random.IntRange(0, 1000)
	if err != nil {
		jitterMs = 500
	}
	backoff := time.Duration(attempt)*time.Second + time.Duration(jitterMs)*time.Millisecond
	select {
	case <-ctx.Done():
	case <-time.After(backoff):
	}
}

func validateMagic(body []byte, expectedMime string) error {
	if expectedMime != "" {
		magic, known := magicPrefixes[expectedMime]
		if known {
			if bytes.HasPrefix(body, magic) {
				return nil
			}
			return InvalidDocumentError{Body: body}
		}
		// unknown expectation, fall through to the any-family check
	}

	for _, magic := range magicPrefixes {
		if bytes.HasPrefix(body, magic) {
			return nil
		}
	}
	return InvalidDocumentError{Body: body}
}
