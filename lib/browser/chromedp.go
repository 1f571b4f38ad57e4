package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

type Config struct {
	Headless  bool   `json:"headless"`
	NoSandbox bool   `json:"no_sandbox"`
	UserAgent string `json:"user_agent"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// chromedpLauncher shares one exec allocator (one Chrome process)
// across sessions; each session is its own tab.
type chromedpLauncher struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

func NewChromedpLauncher(ctx context.Context, cfg Config) Launcher {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(ua),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	return &chromedpLauncher{
		allocCtx: allocCtx,
		cancel:   cancel,
	}
}

func (l *chromedpLauncher) NewSession() (Session, error) {
	pageCtx, cancel := chromedp.NewContext(l.allocCtx)
	err := chromedp.Run(pageCtx, network.Enable())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open browser tab: %w", err)
	}
	return &chromedpSession{
		pageCtx: pageCtx,
		cancel:  cancel,
	}, nil
}

func (l *chromedpLauncher) Close() {
	l.cancel()
}

type chromedpSession struct {
	pageCtx context.Context
	cancel  context.CancelFunc
}

func (s *chromedpSession) Navigate(url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.pageCtx, timeout)
	defer cancel()

	err := chromedp.Run(ctx, chromedp.Navigate(url))
	if ctx.Err() != nil {
		return context.DeadlineExceeded
	}
	return err
}

func (s *chromedpSession) Eval(script string, out any) error {
	return chromedp.Run(s.pageCtx, chromedp.Evaluate(script, out))
}

func (s *chromedpSession) Location() (string, error) {
	var loc string
	err := chromedp.Run(s.pageCtx, chromedp.Location(&loc))
	return loc, err
}

const frameTextScript = `document.body ? document.body.innerText : ""`
const frameHtmlScript = `document.documentElement ? document.documentElement.outerHTML : ""`

func (s *chromedpSession) Frames() ([]FrameSnapshot, error) {
	var tree *page.FrameTree
	err := chromedp.Run(s.pageCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		tree, err = page.GetFrameTree().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("get frame tree: %w", err)
	}

	targets, err := chromedp.Targets(s.pageCtx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}

	var frames []FrameSnapshot
	for _, child := range tree.ChildFrames {
		snapshot := FrameSnapshot{URL: child.Frame.URL}

		// out-of-process iframes live in their own target, in-process
		// frames have no target of their own and stay an empty snapshot
		for _, t := range targets {
			if t.Type != "iframe" || t.URL != child.Frame.URL {
				continue
			}
			frameCtx, cancelFrame := chromedp.NewContext(s.pageCtx, chromedp.WithTargetID(t.TargetID))
			var text, html string
			err := chromedp.Run(frameCtx,
				chromedp.Evaluate(frameTextScript, &text),
				chromedp.Evaluate(frameHtmlScript, &html),
			)
			cancelFrame()
			if err == nil {
				snapshot.Text = text
				snapshot.HTML = html
			}
			break
		}

		frames = append(frames, snapshot)
	}

	return frames, nil
}

func (s *chromedpSession) Close() {
	s.cancel()
}
