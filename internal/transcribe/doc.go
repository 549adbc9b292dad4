// Package transcribe wraps the speech-to-text capability used to defeat the
// portal's audio CAPTCHA. It defines the Transcriber interface, Whisper and
// Gemini providers, a circuit-breaker wrapper, and the normalization that
// reduces a raw transcription to the digit string to submit.
package transcribe
