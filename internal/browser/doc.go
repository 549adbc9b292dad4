// Package browser wraps headless Chrome behind the Driver capability
// interface: navigation, element interaction, in-page resource fetching and
// download routing. The chromedp-backed Session is the only place in the
// program that knows about the DevTools protocol.
package browser
