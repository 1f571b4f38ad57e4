package browser

import (
	"time"
)

// Session is one live browser page. Portal workflows drive their
// whole search through this surface, which keeps them testable
// against synthetic page fixtures.
type Session interface {
	// Navigate loads a url, failing if the load does not complete
	// within the timeout.
	Navigate(url string, timeout time.Duration) error
	// Eval runs a script in the page and unmarshals its result into
	// out. Pass nil to discard the result.
	Eval(script string, out any) error
	// Location reports the page's current url.
	Location() (string, error)
	// Frames snapshots every sub-document currently reachable from
	// the page. A frame that exists in the tree but cannot be read
	// is reported with empty Text/HTML rather than dropped.
	Frames() ([]FrameSnapshot, error)
	// Close releases the page. Must be called on every exit path.
	Close()
}

// FrameSnapshot is a point-in-time capture of one sub-document.
type FrameSnapshot struct {
	URL  string
	Text string
	HTML string
}

// Launcher hands out fresh sessions, one per address pipeline.
type Launcher interface {
	NewSession() (Session, error)
	Close()
}
