package portal

import "errors"

// Portal interaction errors. All three are fatal for their component: a
// failed login is never retried (retrying a bad password risks a lockout),
// and a navigation failure means the portal layout changed, which no retry
// will fix. A download timeout is fatal only for its own report period.
var (
	// ErrLoginFailed means the CAPTCHA was nominally solved but the landing
	// page does not match the authenticated state.
	ErrLoginFailed = errors.New("login failed: landing page does not match authenticated state")

	// ErrNavigation means an expected UI element is missing.
	ErrNavigation = errors.New("navigation failed: expected portal element missing")

	// ErrDownloadTimeout means the export did not land in the download
	// directory within the timeout.
	ErrDownloadTimeout = errors.New("download timeout: exported file did not appear")
)
