package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAITranscriber implements Transcriber using the Whisper API.
type OpenAITranscriber struct {
	client *openai.Client
	config *Config
}

// NewOpenAITranscriber creates a Whisper-backed transcriber.
func NewOpenAITranscriber(config *Config) *OpenAITranscriber {
	return &OpenAITranscriber{
		client: openai.NewClient(config.OpenAIKey),
		config: config,
	}
}

// Transcribe sends the audio clip to the Whisper API.
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrNoAudio
	}

	model := t.config.OpenAIModel
	if model == "" {
		model = "whisper-1"
	}

	req := openai.AudioRequest{
		Model:    model,
		Reader:   bytes.NewReader(audio),
		FilePath: "challenge.mp3", // tells the API the container format
		Language: t.config.Language,
	}

	resp, err := t.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("Whisper API error: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyResult
	}
	return text, nil
}

// Name returns the provider name.
func (t *OpenAITranscriber) Name() string {
	return "openai"
}
