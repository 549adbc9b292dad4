package captcha

import (
	"context"
	"errors"
	"testing"

	"github.com/example/einvoicefetch/internal/testutil"
)

func TestRetrierExhaustsAfterMaxAttempts(t *testing.T) {
	sel := DefaultSelectors(testDashboard)
	drv := driverWithChallenge()
	// Unusable transcription on every attempt: each one is rejected locally
	// without ever submitting to the portal.
	tr := &testutil.ScriptedTranscriber{Results: []string{""}}

	solver := NewSolver(drv, tr, sel, discardLogger())
	retrier := NewRetrier(solver, 3, discardLogger())

	err := retrier.SolveWithRetries(context.Background())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("error = %v, want ErrExhausted", err)
	}

	// Every attempt requested a fresh challenge.
	if got := drv.CallCount("CLICK " + sel.AudioButton); got != 3 {
		t.Errorf("challenge requests = %d, want 3", got)
	}
	if tr.Calls != 3 {
		t.Errorf("transcriber calls = %d, want 3", tr.Calls)
	}
	if got := drv.CallCount("CLICK " + sel.SubmitButton); got != 0 {
		t.Errorf("submit clicks = %d, want 0", got)
	}
}

func TestRetrierSolvesOnLaterAttempt(t *testing.T) {
	sel := DefaultSelectors(testDashboard)
	drv := driverWithChallenge()
	drv.Locations = []string{testDashboard}
	// First transcription is garbage, second one is good.
	tr := &testutil.ScriptedTranscriber{Results: []string{"聽不清楚", "一二三四五"}}

	solver := NewSolver(drv, tr, sel, discardLogger())
	retrier := NewRetrier(solver, 3, discardLogger())

	if err := retrier.SolveWithRetries(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Calls != 2 {
		t.Errorf("transcriber calls = %d, want 2", tr.Calls)
	}
	if got := drv.CallCount("CLICK " + sel.AudioButton); got != 2 {
		t.Errorf("challenge requests = %d, want 2", got)
	}
	if got := drv.CallCount("SETVALUE #captcha=12345"); got != 1 {
		t.Errorf("answer submissions = %d, want 1", got)
	}
}

func TestRetrierRefreshesAfterExpiredOutcome(t *testing.T) {
	sel := DefaultSelectors(testDashboard)
	drv := driverWithChallenge()
	drv.TextVals[sel.Feedback] = []string{"驗證碼已逾期"}
	drv.ExistsVals[sel.AnswerField] = true
	tr := &testutil.ScriptedTranscriber{Results: []string{"12345"}}

	solver := NewSolver(drv, tr, sel, discardLogger())
	retrier := NewRetrier(solver, 2, discardLogger())

	err := retrier.SolveWithRetries(context.Background())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("error = %v, want ErrExhausted", err)
	}
	// Both attempts expired, so the token was forced fresh both times.
	if got := drv.CallCount("CLICK " + sel.ReloadButton); got != 2 {
		t.Errorf("challenge reloads = %d, want 2", got)
	}
}

func TestRetrierAbortsOnBrowserFailure(t *testing.T) {
	sel := DefaultSelectors(testDashboard)
	drv := driverWithChallenge()
	drv.ClickErrs[sel.AudioButton] = errors.New("tab crashed")
	tr := &testutil.ScriptedTranscriber{Results: []string{"12345"}}

	solver := NewSolver(drv, tr, sel, discardLogger())
	retrier := NewRetrier(solver, 3, discardLogger())

	err := retrier.SolveWithRetries(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, ErrExhausted) {
		t.Fatalf("browser failure reported as exhaustion: %v", err)
	}
	// Fatal on the first attempt, no further retries.
	if got := drv.CallCount("CLICK " + sel.AudioButton); got != 1 {
		t.Errorf("challenge requests = %d, want 1", got)
	}
}

func TestRetrierHonorsContextCancellation(t *testing.T) {
	drv := driverWithChallenge()
	tr := &testutil.ScriptedTranscriber{Results: []string{""}}

	solver := NewSolver(drv, tr, DefaultSelectors(testDashboard), discardLogger())
	retrier := NewRetrier(solver, 3, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retrier.SolveWithRetries(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if tr.Calls != 0 {
		t.Errorf("transcriber calls = %d, want 0", tr.Calls)
	}
}
