package transcribe

import (
	"context"
	"errors"
	"fmt"
)

// Transcriber converts an audio clip of spoken digits to text. The retry
// policy lives in the CAPTCHA retry controller; implementations make exactly
// one engine call per Transcribe invocation.
type Transcriber interface {
	// Transcribe returns the engine's raw transcription of the audio bytes.
	// Callers normalize the result with NormalizeDigits.
	Transcribe(ctx context.Context, audio []byte) (string, error)

	// Name returns the provider name.
	Name() string
}

// Transcription errors.
var (
	// ErrEmptyResult is returned when the engine produced no usable text.
	ErrEmptyResult = errors.New("transcription returned empty result")

	// ErrNoAudio is returned when the audio clip is empty.
	ErrNoAudio = errors.New("no audio data to transcribe")
)

// Config selects and configures a transcription provider.
type Config struct {
	// Provider name: "openai" or "gemini".
	Provider string

	// OpenAI settings.
	OpenAIKey   string
	OpenAIModel string // defaults to whisper-1

	// Gemini settings.
	GeminiKey   string
	GeminiModel string // defaults to gemini-2.0-flash

	// Language hints the engine toward the spoken language of the clip.
	// The portal's audio challenge reads digits in Mandarin.
	Language string
}

// DefaultConfig returns the default provider configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:    "openai",
		OpenAIModel: "whisper-1",
		GeminiModel: "gemini-2.0-flash",
		Language:    "zh",
	}
}

// NewTranscriber creates the provider selected by config.
func NewTranscriber(config *Config) (Transcriber, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case "openai":
		if config.OpenAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return NewOpenAITranscriber(config), nil

	case "gemini":
		if config.GeminiKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		return NewGeminiTranscriber(config), nil

	default:
		return nil, fmt.Errorf("unknown transcriber provider: %s", config.Provider)
	}
}
