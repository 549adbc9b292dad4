package config

import "errors"

// Configuration validation errors, as package-level sentinels so callers can
// use errors.Is while still getting a readable message.
var (
	// ErrMissingCredentials is returned when the ban, user_id or password
	// config key is empty. All three are required to log in.
	ErrMissingCredentials = errors.New("missing credentials: ban, user_id and password are required")

	// ErrInvalidMaxAttempts is returned when the CAPTCHA attempt bound is
	// outside 1..10. Values above 10 risk an account lockout by the portal.
	ErrInvalidMaxAttempts = errors.New("invalid max captcha attempts: must be between 1 and 10")

	// ErrUnknownTranscriber is returned for a provider name other than
	// "openai" or "gemini".
	ErrUnknownTranscriber = errors.New("unknown transcriber provider")

	// ErrMissingAPIKey is returned when the selected transcription provider
	// has no API key configured.
	ErrMissingAPIKey = errors.New("missing API key for selected transcriber")

	// ErrMissingDownloadDir is returned when no download directory could be
	// resolved from flags, config or XDG user dirs.
	ErrMissingDownloadDir = errors.New("missing download directory")

	// ErrInvalidTimeout is returned when any of the step, transcription or
	// download timeouts is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")
)
