package captcha

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrExhausted is returned when the attempt bound is reached without a
// solved outcome. This is fatal for the run: the portal may lock the account
// or escalate the challenge after repeated failures, so nothing retries
// past this point.
var ErrExhausted = errors.New("captcha attempts exhausted")

// Retrier wraps a Solver in a bounded retry loop. Every attempt works on a
// fresh challenge: the solver regenerates the audio clip each time, and an
// expired outcome additionally forces a new server-side token before the
// next attempt. The same transcription is never submitted twice.
type Retrier struct {
	solver      *Solver
	maxAttempts int
	log         *slog.Logger
}

// NewRetrier creates a Retrier with the given attempt bound.
func NewRetrier(solver *Solver, maxAttempts int, log *slog.Logger) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Retrier{solver: solver, maxAttempts: maxAttempts, log: log}
}

// SolveWithRetries attempts the challenge until solved or the bound is hit.
// Browser-level failures abort immediately; rejected and expired outcomes
// consume one attempt each. Returns nil on success, ErrExhausted when the
// bound is reached, or the underlying error on a fatal failure.
func (r *Retrier) SolveWithRetries(ctx context.Context) error {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.log.Info("attempting captcha", "attempt", attempt, "max_attempts", r.maxAttempts)

		outcome, err := r.solver.Attempt(ctx)
		if err != nil {
			return fmt.Errorf("captcha attempt %d failed: %w", attempt, err)
		}

		switch outcome {
		case OutcomeSolved:
			r.log.Info("captcha solved", "attempt", attempt)
			return nil
		case OutcomeExpired:
			// The token went stale; force a new one so the next attempt does
			// not replay it.
			r.solver.Refresh(ctx)
		case OutcomeRejected:
			// Next attempt regenerates the clip by clicking the audio control.
		}
		r.log.Warn("captcha attempt failed", "attempt", attempt, "outcome", outcome.String())
	}
	return fmt.Errorf("%w after %d attempts", ErrExhausted, r.maxAttempts)
}
