package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/chromedp"

	"github.com/ghostpost/ghostpost/internal/config"
)

// Session is one running browser and its first tab. It is passed explicitly to
// every component that drives the page and must be closed by its creator.
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	closeOnce   sync.Once
}

// NewSession launches a browser with the configured options. The browser is
// started eagerly so later timeouts derived from Context() only bound actions,
// never the browser's lifetime.
func NewSession(ctx context.Context, cfg config.BrowserConfig, opts ...chromedp.ContextOption) (*Session, error) {
	allocOpts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, opts...)

	s := &Session{ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc}
	if err := chromedp.Run(tabCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return s, nil
}

// Context returns the chromedp context of the session's tab
func (s *Session) Context() context.Context {
	return s.ctx
}

// Run executes actions in the session's tab
func (s *Session) Run(actions ...chromedp.Action) error {
	return chromedp.Run(s.ctx, actions...)
}

// Close shuts the browser down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		// Graceful close first so the profile is flushed, then hard cancel.
		_ = chromedp.Cancel(s.ctx)
		s.cancelTab()
		s.cancelAlloc()
	})
}
