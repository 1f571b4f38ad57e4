package deeds

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"deedscout-backend/lib/browser"
	"deedscout-backend/lib/htmlutil"
)

// Candidate is one possible route to the actual document bytes,
// produced by Locate in order of decreasing specificity.
type Candidate struct {
	ViewerURL       string
	ResolvedFileURL string
	MimeType        string

	// set only for labeled action elements, which hint that a
	// document exists without resolving to a fetchable url
	Hint string
	Href string
}

// Resolved reports whether the candidate points at something a
// fetcher can actually retrieve.
func (c Candidate) Resolved() bool {
	return c.ResolvedFileURL != ""
}

var actionWords = []string{"download", "pdf", "print", "view"}

// Locate inspects a viewer page and its frames for the document
// hiding behind them. Deed portals never link the raw file directly:
// the two patterns seen in the wild are a file= query parameter
// carrying an encoded path, and an iframe whose src is the document.
// Labeled buttons are reported last as low-confidence hints.
func Locate(page browser.FrameSnapshot, frames []browser.FrameSnapshot) []Candidate {
	var fileParam []Candidate
	var iframeSrc []Candidate
	var hints []Candidate

	sources := []browser.FrameSnapshot{page}
	sources = append(sources, frames...)

	seen := map[string]bool{}
	for i, source := range sources {
		if source.URL == "" || source.URL == "about:blank" || seen[source.URL] {
			continue
		}
		seen[source.URL] = true

		if resolved, mime, ok := resolveFileParam(source.URL); ok {
			fileParam = append(fileParam, Candidate{
				ViewerURL:       source.URL,
				ResolvedFileURL: resolved,
				MimeType:        mime,
			})
		} else if i > 0 && source.URL != page.URL {
			// a frame that isn't the page's own chrome and carries no
			// file= indirection may be the document itself
			iframeSrc = append(iframeSrc, Candidate{
				ViewerURL:       page.URL,
				ResolvedFileURL: source.URL,
				MimeType:        inferMimeType(source.URL),
			})
		}
	}

	for _, source := range sources {
		hints = append(hints, actionHints(source)...)
	}

	candidates := append(fileParam, iframeSrc...)
	return append(candidates, hints...)
}

// resolveFileParam pulls the document path out of a viewer url's
// file= query parameter. The decoded value can itself carry query
// parameters (e.g. ...pdf?index=1&allowDownload=true); those belong
// to the viewer, not the file, and are discarded. Paths starting with
// "/" resolve against the origin the url was found on.
func resolveFileParam(rawURL string) (resolved, mime string, ok bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", false
	}

	file := parsed.Query().Get("file")
	if file == "" {
		return "", "", false
	}

	if idx := strings.Index(file, "?"); idx >= 0 {
		file = file[:idx]
	}

	if strings.HasPrefix(file, "/") {
		origin := url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
		file = origin.String() + file
	}

	return file, inferMimeType(file), true
}

func inferMimeType(fileURL string) string {
	lower := strings.ToLower(fileURL)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".tif"), strings.HasSuffix(lower, ".tiff"):
		return "image/tiff"
	}
	return ""
}

// actionHints finds buttons and links whose label suggests they lead
// to the document.
func actionHints(source browser.FrameSnapshot) []Candidate {
	if source.HTML == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source.HTML))
	if err != nil {
		return nil
	}

	var hints []Candidate
	doc.Find(`a, button, [role="button"]`).Each(func(_ int, sel *goquery.Selection) {
		if len(sel.Nodes) == 0 {
			return
		}
		text := htmlutil.CleanText(sel.Nodes[0])
		lower := strings.ToLower(text)

		matched := false
		for _, word := range actionWords {
			if strings.Contains(lower, word) {
				matched = true
				break
			}
		}
		if !matched {
			return
		}

		href := sel.AttrOr("href", "")
		if href != "" {
			href = absoluteHref(source.URL, href)
		}
		hints = append(hints, Candidate{
			ViewerURL: source.URL,
			Hint:      text,
			Href:      href,
		})
	})
	return hints
}

func absoluteHref(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
