package cli

import "time"

// Flags holds all command-line flag values.
type Flags struct {
	// General flags
	CfgFile     string
	DownloadDir string
	Verbose     bool
	JSONLog     bool
	NoHeadless  bool

	// CAPTCHA flags
	MaxAttempts int
	Transcriber string

	// Timeout flags
	StepTimeout       time.Duration
	TranscribeTimeout time.Duration
	DownloadTimeout   time.Duration
}

// NewFlags creates a new Flags instance with default values.
func NewFlags() *Flags {
	return &Flags{
		MaxAttempts:       3,
		Transcriber:       "openai",
		StepTimeout:       30 * time.Second,
		TranscribeTimeout: 45 * time.Second,
		DownloadTimeout:   60 * time.Second,
	}
}
