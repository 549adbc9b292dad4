package transcribe

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// geminiPrompt asks the model for a transcription only, no commentary.
// The clip is a short sequence of spoken digits, usually Mandarin.
const geminiPrompt = "Transcribe the spoken digits in this audio clip. " +
	"Reply with the digits only, nothing else."

// GeminiTranscriber implements Transcriber using the Gemini API with inline
// audio input.
type GeminiTranscriber struct {
	config *Config
}

// NewGeminiTranscriber creates a Gemini-backed transcriber.
func NewGeminiTranscriber(config *Config) *GeminiTranscriber {
	return &GeminiTranscriber{config: config}
}

// Transcribe sends the audio clip inline to Gemini and returns the reply.
func (t *GeminiTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrNoAudio
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  t.config.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := t.config.GeminiModel
	if model == "" {
		model = "gemini-2.0-flash"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(geminiPrompt),
			genai.NewPartFromBytes(audio, "audio/mpeg"),
		}, genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResult
	}
	return text, nil
}

// Name returns the provider name.
func (t *GeminiTranscriber) Name() string {
	return "gemini"
}
