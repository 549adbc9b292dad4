package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. These mirror the behavior of the portal
// itself where applicable (e.g. the lockout risk after repeated CAPTCHA
// failures keeps the attempt bound low).
const (
	// DefaultLoginURL is the business login entry point of the e-invoice portal.
	DefaultLoginURL = "https://www.einvoice.nat.gov.tw/accounts/login"

	// DefaultDashboardPrefix is the URL prefix that signals an authenticated
	// session. Login verification checks the current URL against it.
	DefaultDashboardPrefix = "https://www.einvoice.nat.gov.tw/dashboard"

	// DefaultMaxCaptchaAttempts bounds the CAPTCHA retry loop. The portal may
	// lock the account after repeated failures, so the bound stays small.
	DefaultMaxCaptchaAttempts = 3

	// DefaultStepTimeout applies to individual page interactions (element
	// waits, clicks, form fills).
	DefaultStepTimeout = 30 * time.Second

	// DefaultTranscribeTimeout bounds one transcription call. Model inference
	// is the dominant latency source of the whole run.
	DefaultTranscribeTimeout = 45 * time.Second

	// DefaultDownloadTimeout is how long the fetcher waits for exported
	// spreadsheets to land in the download directory.
	DefaultDownloadTimeout = 60 * time.Second

	// PriorMonthCutoffDay is the last day of a month on which the previous
	// month's report is still fetched alongside the current one.
	PriorMonthCutoffDay = 7

	// AppName is used for config file and XDG path resolution.
	AppName = "einvoicefetch"
)

// Credentials holds the portal login identity. It is loaded once at startup
// and never mutated. Values must not be logged in cleartext; the logx
// handler redacts them by attribute key.
type Credentials struct {
	// BAN is the 8-digit business administration number (統一編號).
	BAN string

	// UserID is the portal account name.
	UserID string

	// Password is the portal account password.
	Password string

	// LocalUser is the local OS username, used only to resolve a default
	// download directory when XDG lookup yields nothing.
	LocalUser string
}

// Config holds all options for one run. It is populated from CLI flags and
// the viper config file, then passed down by value; nothing reads ambient
// global state after startup.
type Config struct {
	Credentials Credentials

	// LoginURL and DashboardPrefix identify the portal endpoints. They are
	// configurable so a portal relaunch does not require a rebuild.
	LoginURL        string
	DashboardPrefix string

	// DownloadDir is where Chrome places exported spreadsheets.
	DownloadDir string

	// Transcriber selects the speech-to-text provider: "openai" or "gemini".
	Transcriber string

	// OpenAIKey and GeminiKey authenticate the transcription providers.
	OpenAIKey string
	GeminiKey string

	// MaxCaptchaAttempts bounds the CAPTCHA retry loop (1..10).
	MaxCaptchaAttempts int

	// Headless controls whether Chrome runs without a visible window.
	Headless bool

	// Verbose enables slog.LevelDebug output; otherwise Info.
	Verbose bool

	// JSONLog switches log output from text to JSON.
	JSONLog bool

	StepTimeout       time.Duration
	TranscribeTimeout time.Duration
	DownloadTimeout   time.Duration
}

// Default returns a Config with all non-credential fields set to defaults.
func Default() Config {
	return Config{
		LoginURL:           DefaultLoginURL,
		DashboardPrefix:    DefaultDashboardPrefix,
		DownloadDir:        DefaultDownloadDir(""),
		Transcriber:        "openai",
		MaxCaptchaAttempts: DefaultMaxCaptchaAttempts,
		Headless:           true,
		StepTimeout:        DefaultStepTimeout,
		TranscribeTimeout:  DefaultTranscribeTimeout,
		DownloadTimeout:    DefaultDownloadTimeout,
	}
}

// DefaultDownloadDir resolves the download directory: the XDG user download
// dir when available, otherwise ~<localUser>/Downloads.
func DefaultDownloadDir(localUser string) string {
	if xdg.UserDirs.Download != "" {
		return xdg.UserDirs.Download
	}
	if localUser != "" {
		return filepath.Join("/home", localUser, "Downloads")
	}
	return filepath.Join(xdg.Home, "Downloads")
}

// ConfigDir returns the XDG config directory for this application.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration for internal consistency. It returns a
// sentinel error (wrapped where a dynamic value helps) for the first problem
// found so callers can match with errors.Is.
func (c Config) Validate() error {
	if c.Credentials.BAN == "" || c.Credentials.UserID == "" || c.Credentials.Password == "" {
		return ErrMissingCredentials
	}
	if c.MaxCaptchaAttempts < 1 || c.MaxCaptchaAttempts > 10 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxAttempts, c.MaxCaptchaAttempts)
	}
	switch c.Transcriber {
	case "openai":
		if c.OpenAIKey == "" {
			return ErrMissingAPIKey
		}
	case "gemini":
		if c.GeminiKey == "" {
			return ErrMissingAPIKey
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTranscriber, c.Transcriber)
	}
	if c.DownloadDir == "" {
		return ErrMissingDownloadDir
	}
	if c.StepTimeout <= 0 || c.TranscribeTimeout <= 0 || c.DownloadTimeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}
