package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Options configures a browser Session.
type Options struct {
	// Headless runs Chrome without a visible window.
	Headless bool

	// DownloadDir is where Chrome places downloaded files.
	DownloadDir string

	// StepTimeout bounds each individual browser operation.
	StepTimeout time.Duration

	// UserAgent overrides the default user agent string.
	UserAgent string
}

// Session is a live Chrome instance driven over the DevTools protocol. It
// implements Driver. One Session exists per run; Close must be called on
// every exit path.
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	stepTimeout time.Duration
}

// NewSession launches Chrome and opens a tab with downloads routed to
// opts.DownloadDir.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 30 * time.Second
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(ua),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		stepTimeout: opts.StepTimeout,
	}

	// Starting the browser and configuring download routing up front surfaces
	// a missing Chrome binary immediately instead of on the first navigation.
	err := chromedp.Run(tabCtx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(opts.DownloadDir).
			WithEventsEnabled(true),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return s, nil
}

// Close shuts down the tab and the Chrome process. Safe to call once per
// session; the runner defers it.
func (s *Session) Close() error {
	if s.cancelTab != nil {
		s.cancelTab()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}
	return nil
}

// run executes chromedp actions on the session's tab, bounded by the step
// timeout and cancellable through the caller's context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(s.ctx, s.stepTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(tctx, actions...)
}

// Navigate implements Driver.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Click implements Driver. The element is scrolled into view first; a
// JavaScript click is used because the portal overlays intercept native
// clicks on several controls.
func (s *Session) Click(ctx context.Context, sel string) error {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	})()`, sel)
	var clicked bool
	if err := s.run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery), chromedp.Evaluate(js, &clicked)); err != nil {
		return fmt.Errorf("failed to click %s: %w", sel, err)
	}
	if !clicked {
		return fmt.Errorf("failed to click %s: element not found", sel)
	}
	return nil
}

// ClickByText implements Driver. The portal's announcement dialogs carry no
// stable classes, so their close buttons are found by label.
func (s *Session) ClickByText(ctx context.Context, sel, text string) error {
	js := fmt.Sprintf(`(() => {
		for (const el of document.querySelectorAll(%q)) {
			if (el.textContent.trim().includes(%q)) {
				el.scrollIntoView({block: 'center'});
				el.click();
				return true;
			}
		}
		return false;
	})()`, sel, text)
	var clicked bool
	if err := s.run(ctx, chromedp.Evaluate(js, &clicked)); err != nil {
		return fmt.Errorf("failed to click %s with text %q: %w", sel, text, err)
	}
	if !clicked {
		return fmt.Errorf("no %s element with text %q", sel, text)
	}
	return nil
}

// SetValue implements Driver. It also dispatches input and change events so
// the portal's reactive form bindings pick the value up.
func (s *Session) SetValue(ctx context.Context, sel, value string) error {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.value = %q;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, sel, value)
	var set bool
	if err := s.run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery), chromedp.Evaluate(js, &set)); err != nil {
		return fmt.Errorf("failed to set value on %s: %w", sel, err)
	}
	if !set {
		return fmt.Errorf("failed to set value on %s: element not found", sel)
	}
	return nil
}

// WaitVisible implements Driver.
func (s *Session) WaitVisible(ctx context.Context, sel string) error {
	if err := s.run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("timeout waiting for %s: %w", sel, err)
	}
	return nil
}

// Exists implements Driver.
func (s *Session) Exists(ctx context.Context, sel string) (bool, error) {
	js := fmt.Sprintf(`document.querySelector(%q) !== null`, sel)
	var present bool
	if err := s.run(ctx, chromedp.Evaluate(js, &present)); err != nil {
		return false, fmt.Errorf("failed to query %s: %w", sel, err)
	}
	return present, nil
}

// Text implements Driver.
func (s *Session) Text(ctx context.Context, sel string) (string, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? el.textContent.trim() : '';
	})()`, sel)
	var text string
	if err := s.run(ctx, chromedp.Evaluate(js, &text)); err != nil {
		return "", fmt.Errorf("failed to read text of %s: %w", sel, err)
	}
	return strings.TrimSpace(text), nil
}

// AttrValue implements Driver.
func (s *Session) AttrValue(ctx context.Context, sel, attr string) (string, bool, error) {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return null;
		return el.getAttribute(%q);
	})()`, sel, attr)
	var value *string
	if err := s.run(ctx, chromedp.Evaluate(js, &value)); err != nil {
		return "", false, fmt.Errorf("failed to read %s attribute of %s: %w", attr, sel, err)
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

// FetchResource implements Driver. The fetch runs inside the page so the
// request carries session cookies; the CAPTCHA audio endpoint rejects
// anonymous requests.
func (s *Session) FetchResource(ctx context.Context, url string) ([]byte, error) {
	js := fmt.Sprintf(`fetch(%q)
		.then(r => {
			if (!r.ok) throw new Error('HTTP ' + r.status);
			return r.arrayBuffer();
		})
		.then(buf => {
			let binary = '';
			const bytes = new Uint8Array(buf);
			for (let i = 0; i < bytes.length; i++) {
				binary += String.fromCharCode(bytes[i]);
			}
			return btoa(binary);
		})`, url)

	var encoded string
	err := s.run(ctx, chromedp.Evaluate(js, &encoded, func(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode fetched resource: %w", err)
	}
	return data, nil
}

// Location implements Driver.
func (s *Session) Location(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

// Reload implements Driver.
func (s *Session) Reload(ctx context.Context) error {
	if err := s.run(ctx, chromedp.Reload(), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	return nil
}
