package transcribe

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerTranscriber wraps a Transcriber with a circuit breaker. When the
// engine fails repeatedly (network down, quota exhausted) the breaker opens
// and further attempts fail fast, so the CAPTCHA retry loop burns its local
// bound instead of server-side attempts against a dead engine.
type BreakerTranscriber struct {
	inner Transcriber
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerTranscriber wraps inner with a circuit breaker that opens after
// three consecutive engine failures and probes again after 30 seconds.
func NewBreakerTranscriber(inner Transcriber) *BreakerTranscriber {
	settings := gobreaker.Settings{
		Name:        "transcribe-" + inner.Name(),
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	return &BreakerTranscriber{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

// Transcribe delegates through the breaker.
func (t *BreakerTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	result, err := t.cb.Execute(func() (interface{}, error) {
		return t.inner.Transcribe(ctx, audio)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Name returns the wrapped provider name.
func (t *BreakerTranscriber) Name() string {
	return t.inner.Name()
}
