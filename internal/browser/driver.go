package browser

import "context"

// Driver is the browser automation capability the rest of the program talks
// to. Components never hold a Driver across calls; the runner owns the live
// session and passes it down. Keeping this an interface lets the CAPTCHA and
// portal logic run against a scripted fake in tests, with no real browser.
type Driver interface {
	// Navigate loads the given URL and waits for the page to be ready.
	Navigate(ctx context.Context, url string) error

	// Click clicks the first element matching the CSS selector.
	Click(ctx context.Context, sel string) error

	// ClickByText clicks the first element matching the CSS selector whose
	// visible text contains text. Errors when no such element exists.
	ClickByText(ctx context.Context, sel, text string) error

	// SetValue sets the value of the matching input or select element and
	// dispatches the change event.
	SetValue(ctx context.Context, sel, value string) error

	// WaitVisible blocks until the matching element is visible.
	WaitVisible(ctx context.Context, sel string) error

	// Exists reports whether an element matching the selector is present,
	// without waiting for it.
	Exists(ctx context.Context, sel string) (bool, error)

	// Text returns the trimmed text content of the matching element, or ""
	// when the element is absent.
	Text(ctx context.Context, sel string) (string, error)

	// AttrValue returns the value of an attribute on the matching element.
	// ok is false when the element or attribute is missing.
	AttrValue(ctx context.Context, sel, attr string) (value string, ok bool, err error)

	// FetchResource downloads a URL from inside the page, so the request
	// carries the session's cookies. Returns the raw bytes.
	FetchResource(ctx context.Context, url string) ([]byte, error)

	// Location returns the current page URL.
	Location(ctx context.Context) (string, error)

	// Reload reloads the current page.
	Reload(ctx context.Context) error
}
