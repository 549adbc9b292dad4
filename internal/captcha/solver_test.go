package captcha

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/einvoicefetch/internal/testutil"
)

const (
	testDashboard = "https://www.einvoice.nat.gov.tw/dashboard"
	testAudioSrc  = "https://www.einvoice.nat.gov.tw/captcha/audio.mp3"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// driverWithChallenge returns a FakeDriver scripted with a fetchable audio
// challenge.
func driverWithChallenge() *testutil.FakeDriver {
	drv := testutil.NewFakeDriver()
	drv.AttrVals["audio@src"] = []string{testAudioSrc}
	drv.Resources[testAudioSrc] = []byte("mp3-bytes")
	return drv
}

func TestSolverAttemptSolvedByNavigation(t *testing.T) {
	drv := driverWithChallenge()
	drv.Locations = []string{testDashboard}
	tr := &testutil.ScriptedTranscriber{Results: []string{"五 四 三 二 一"}}

	s := NewSolver(drv, tr, DefaultSelectors(testDashboard), discardLogger())
	outcome, err := s.Attempt(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeSolved {
		t.Fatalf("outcome = %s, want solved", outcome)
	}

	if got := drv.CallCount("SETVALUE #captcha=54321"); got != 1 {
		t.Errorf("answer submissions = %d, want 1 (calls: %v)", got, drv.Calls)
	}
	if got := drv.CallCount("CLICK #submitBtn"); got != 1 {
		t.Errorf("submit clicks = %d, want 1", got)
	}
}

func TestSolverAttemptUnusableTranscriptionNeverSubmitted(t *testing.T) {
	tests := []struct {
		name    string
		results []string
		errs    []error
	}{
		{name: "empty transcription", results: []string{""}},
		{name: "whitespace only", results: []string{"   "}},
		{name: "no digits in text", results: []string{"聽不清楚"}},
		{name: "too few digits", results: []string{"一二三"}},
		{name: "too many digits", results: []string{"123456"}},
		{name: "engine error", results: []string{""}, errs: []error{errors.New("engine down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := driverWithChallenge()
			tr := &testutil.ScriptedTranscriber{Results: tt.results, Errs: tt.errs}

			s := NewSolver(drv, tr, DefaultSelectors(testDashboard), discardLogger())
			outcome, err := s.Attempt(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if outcome != OutcomeRejected {
				t.Errorf("outcome = %s, want rejected", outcome)
			}
			if got := drv.CallCount("SETVALUE #captcha"); got != 0 {
				t.Errorf("answer field writes = %d, want 0 (calls: %v)", got, drv.Calls)
			}
			if got := drv.CallCount("CLICK #submitBtn"); got != 0 {
				t.Errorf("submit clicks = %d, want 0", got)
			}
		})
	}
}

func TestSolverAnswerLengthConfigurable(t *testing.T) {
	drv := driverWithChallenge()
	drv.Locations = []string{testDashboard}
	tr := &testutil.ScriptedTranscriber{Results: []string{"123"}}

	s := NewSolver(drv, tr, DefaultSelectors(testDashboard), discardLogger(), WithAnswerLength(3))
	outcome, err := s.Attempt(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeSolved {
		t.Errorf("outcome = %s, want solved", outcome)
	}
	if got := drv.CallCount("SETVALUE #captcha=123"); got != 1 {
		t.Errorf("answer submissions = %d, want 1", got)
	}
}

func TestSolverClassifiesFeedback(t *testing.T) {
	tests := []struct {
		name     string
		feedback string
		want     Outcome
	}{
		{name: "wrong answer", feedback: "驗證碼錯誤，請重新輸入。", want: OutcomeRejected},
		{name: "wrong answer alternate wording", feedback: "驗證碼有誤", want: OutcomeRejected},
		{name: "expired", feedback: "驗證碼已逾期，請重新產生。", want: OutcomeExpired},
		{name: "stale token", feedback: "驗證碼已失效", want: OutcomeExpired},
		{name: "unrecognized wording treated as rejected", feedback: "系統發生錯誤", want: OutcomeRejected},
	}

	sel := DefaultSelectors(testDashboard)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := driverWithChallenge()
			drv.TextVals[sel.Feedback] = []string{tt.feedback}
			drv.ExistsVals[sel.AnswerField] = true
			tr := &testutil.ScriptedTranscriber{Results: []string{"12345"}}

			s := NewSolver(drv, tr, sel, discardLogger())
			outcome, err := s.Attempt(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if outcome != tt.want {
				t.Errorf("outcome = %s, want %s", outcome, tt.want)
			}
		})
	}
}

func TestSolverSolvedWhenChallengePanelGone(t *testing.T) {
	// No navigation to the dashboard and no feedback, but the answer field is
	// gone: the challenge itself passed.
	drv := driverWithChallenge()
	tr := &testutil.ScriptedTranscriber{Results: []string{"12345"}}

	s := NewSolver(drv, tr, DefaultSelectors(testDashboard), discardLogger())
	outcome, err := s.Attempt(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeSolved {
		t.Errorf("outcome = %s, want solved", outcome)
	}
}

func TestSolverRejectedWhenNothingHappens(t *testing.T) {
	sel := DefaultSelectors(testDashboard)
	drv := driverWithChallenge()
	drv.ExistsVals[sel.AnswerField] = true
	tr := &testutil.ScriptedTranscriber{Results: []string{"12345"}}

	s := NewSolver(drv, tr, sel, discardLogger(), WithSubmitWait(50*time.Millisecond))
	outcome, err := s.Attempt(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeRejected {
		t.Errorf("outcome = %s, want rejected", outcome)
	}
}

func TestSolverRunsPreSubmitHookBeforeSubmitting(t *testing.T) {
	drv := driverWithChallenge()
	drv.Locations = []string{testDashboard}
	tr := &testutil.ScriptedTranscriber{Results: []string{"12345"}}

	hookCalls := 0
	hook := func(ctx context.Context) error {
		hookCalls++
		if got := drv.CallCount("CLICK #submitBtn"); got != 0 {
			t.Errorf("hook ran after submit (submit clicks = %d)", got)
		}
		return nil
	}

	s := NewSolver(drv, tr, DefaultSelectors(testDashboard), discardLogger(), WithPreSubmit(hook))
	if _, err := s.Attempt(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hookCalls != 1 {
		t.Errorf("hook calls = %d, want 1", hookCalls)
	}
}

func TestSolverAttemptFatalOnBrowserFailure(t *testing.T) {
	sel := DefaultSelectors(testDashboard)
	drv := driverWithChallenge()
	drv.ClickErrs[sel.AudioButton] = errors.New("tab crashed")
	tr := &testutil.ScriptedTranscriber{Results: []string{"12345"}}

	s := NewSolver(drv, tr, sel, discardLogger())
	if _, err := s.Attempt(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
	if tr.Calls != 0 {
		t.Errorf("transcriber calls = %d, want 0", tr.Calls)
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeSolved, "solved"},
		{OutcomeRejected, "rejected"},
		{OutcomeExpired, "expired"},
		{Outcome(42), "outcome(42)"},
	}
	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(tt.outcome), got, tt.want)
		}
	}
}
