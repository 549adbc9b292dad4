// Package portal contains the deterministic UI scripting against the
// e-invoice portal: login and menu navigation, report-period date math, and
// the report search/export/download-wait sequence. All browser access goes
// through the browser.Driver capability so the flows are testable without a
// real browser.
package portal
