package captcha

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/einvoicefetch/internal/browser"
	"github.com/example/einvoicefetch/internal/transcribe"
)

// Outcome classifies one CAPTCHA attempt.
type Outcome int

const (
	// OutcomeSolved means the page moved past the challenge.
	OutcomeSolved Outcome = iota

	// OutcomeRejected means the submitted answer was wrong, or the
	// transcription was unusable and nothing was submitted.
	OutcomeRejected

	// OutcomeExpired means the challenge went stale before submission and
	// must be reloaded before the next attempt.
	OutcomeExpired
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSolved:
		return "solved"
	case OutcomeRejected:
		return "rejected"
	case OutcomeExpired:
		return "expired"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Challenge is one audio challenge. A new challenge invalidates any prior
// audio source; the solver fetches a fresh one on every attempt.
type Challenge struct {
	AudioSrc string
	Audio    []byte
}

// TranscriptionResult holds the engine output for one attempt. It is
// consumed immediately and not retained after submission.
type TranscriptionResult struct {
	Raw    string
	Digits string
}

// Selectors locates the challenge controls on the login page and carries the
// detection logic for classifying a failed submission. The marker lists are
// configuration rather than hard-coded matching because the portal's exact
// error wording is subject to change.
type Selectors struct {
	// AudioButton triggers audio playback and generates a fresh clip.
	AudioButton string

	// AudioElement is the <audio> tag whose src points at the clip.
	AudioElement string

	// ReloadButton forces a brand-new challenge token.
	ReloadButton string

	// AnswerField receives the transcribed digits.
	AnswerField string

	// SubmitButton submits the login form.
	SubmitButton string

	// Feedback is the element carrying the portal's error message after a
	// failed submission.
	Feedback string

	// SuccessURLPrefix identifies the post-login landing page.
	SuccessURLPrefix string

	// RejectedMarkers and ExpiredMarkers are substrings of the feedback text
	// that identify a wrong answer versus a stale challenge. Feedback that
	// matches neither is treated as rejected, which is safe: both paths
	// obtain a fresh challenge before retrying.
	RejectedMarkers []string
	ExpiredMarkers  []string
}

// DefaultSelectors returns the selectors for the e-invoice portal login page.
func DefaultSelectors(successURLPrefix string) Selectors {
	return Selectors{
		AudioButton:      `button[title="語音播放圖形驗證碼"]`,
		AudioElement:     `audio`,
		ReloadButton:     `button[title="重新產生圖形驗證碼"]`,
		AnswerField:      `#captcha`,
		SubmitButton:     `#submitBtn`,
		Feedback:         `.error-message, .alert-danger, [role="alert"]`,
		SuccessURLPrefix: successURLPrefix,
		RejectedMarkers:  []string{"驗證碼錯誤", "驗證碼有誤"},
		ExpiredMarkers:   []string{"驗證碼已逾期", "驗證碼逾期", "驗證碼已失效"},
	}
}

// Solver runs a single CAPTCHA attempt: fetch the audio challenge,
// transcribe it, submit the digits, classify the result.
type Solver struct {
	drv browser.Driver
	tr  transcribe.Transcriber
	sel Selectors
	log *slog.Logger

	// preSubmit is invoked before each submission so the caller can (re)fill
	// form fields the portal clears after a failed attempt.
	preSubmit func(ctx context.Context) error

	// answerLength is the digit count the portal expects. Answers of any
	// other length are known wrong and are never submitted. Zero disables
	// the check.
	answerLength int

	transcribeTimeout time.Duration
	submitWait        time.Duration
}

// SolverOption configures a Solver.
type SolverOption func(*Solver)

// WithPreSubmit registers a hook run before each submission.
func WithPreSubmit(hook func(ctx context.Context) error) SolverOption {
	return func(s *Solver) { s.preSubmit = hook }
}

// WithAnswerLength sets the digit count the portal expects; 0 disables the
// length check.
func WithAnswerLength(n int) SolverOption {
	return func(s *Solver) { s.answerLength = n }
}

// WithTranscribeTimeout bounds one transcription call.
func WithTranscribeTimeout(d time.Duration) SolverOption {
	return func(s *Solver) { s.transcribeTimeout = d }
}

// WithSubmitWait bounds how long the solver watches the page after
// submitting before classifying the attempt.
func WithSubmitWait(d time.Duration) SolverOption {
	return func(s *Solver) { s.submitWait = d }
}

// NewSolver creates a Solver.
func NewSolver(drv browser.Driver, tr transcribe.Transcriber, sel Selectors, log *slog.Logger, opts ...SolverOption) *Solver {
	s := &Solver{
		drv:               drv,
		tr:                tr,
		sel:               sel,
		log:               log,
		answerLength:      5,
		transcribeTimeout: 45 * time.Second,
		submitWait:        6 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Attempt runs one full challenge attempt. A non-nil error means the attempt
// could not be executed at all (browser-level failure) and is fatal for the
// login; transcription problems are classified as rejected without touching
// the server, so they cost a local attempt but no server-side one.
func (s *Solver) Attempt(ctx context.Context) (Outcome, error) {
	ch, err := s.fetchChallenge(ctx)
	if err != nil {
		return OutcomeRejected, err
	}

	result, err := s.transcribeChallenge(ctx, ch)
	if err != nil {
		s.log.Warn("transcription failed, counting attempt as rejected", "error", err)
		return OutcomeRejected, nil
	}
	if result.Digits == "" {
		s.log.Warn("transcription yielded no digits, not submitting", "raw_length", len(result.Raw))
		return OutcomeRejected, nil
	}
	// The challenge always reads out a fixed number of digits, so any other
	// count is wrong; rejecting locally saves a server-side attempt.
	if s.answerLength > 0 && len(result.Digits) != s.answerLength {
		s.log.Warn("transcription has wrong digit count, not submitting",
			"digits", len(result.Digits), "expected", s.answerLength)
		return OutcomeRejected, nil
	}

	s.log.Debug("submitting challenge answer", "digits_length", len(result.Digits))
	if err := s.submit(ctx, result.Digits); err != nil {
		return OutcomeRejected, err
	}

	return s.classify(ctx)
}

// Refresh forces a brand-new challenge token. Used after an expired outcome;
// a missing reload control is logged and ignored because the next attempt
// regenerates the clip anyway.
func (s *Solver) Refresh(ctx context.Context) {
	if err := s.drv.Click(ctx, s.sel.ReloadButton); err != nil {
		s.log.Debug("challenge reload control unavailable", "error", err)
	}
}

// fetchChallenge clicks the audio control and downloads the resulting clip.
func (s *Solver) fetchChallenge(ctx context.Context) (*Challenge, error) {
	if err := s.drv.Click(ctx, s.sel.AudioButton); err != nil {
		return nil, fmt.Errorf("failed to trigger audio challenge: %w", err)
	}
	if err := s.drv.WaitVisible(ctx, s.sel.AudioElement); err != nil {
		return nil, fmt.Errorf("audio challenge did not appear: %w", err)
	}
	src, ok, err := s.drv.AttrValue(ctx, s.sel.AudioElement, "src")
	if err != nil {
		return nil, fmt.Errorf("failed to read audio source: %w", err)
	}
	if !ok || src == "" {
		return nil, fmt.Errorf("audio challenge has no source")
	}

	audio, err := s.drv.FetchResource(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to download challenge audio: %w", err)
	}
	s.log.Debug("fetched audio challenge", "bytes", len(audio))
	return &Challenge{AudioSrc: src, Audio: audio}, nil
}

// transcribeChallenge runs the engine under its own timeout and normalizes
// the result.
func (s *Solver) transcribeChallenge(ctx context.Context, ch *Challenge) (*TranscriptionResult, error) {
	tctx, cancel := context.WithTimeout(ctx, s.transcribeTimeout)
	defer cancel()

	raw, err := s.tr.Transcribe(tctx, ch.Audio)
	if err != nil {
		return nil, err
	}
	return &TranscriptionResult{
		Raw:    raw,
		Digits: transcribe.NormalizeDigits(raw),
	}, nil
}

// submit fills the answer field and clicks submit, running the preSubmit
// hook first so cleared credential fields are refilled.
func (s *Solver) submit(ctx context.Context, digits string) error {
	if s.preSubmit != nil {
		if err := s.preSubmit(ctx); err != nil {
			return fmt.Errorf("failed to prepare form: %w", err)
		}
	}
	if err := s.drv.SetValue(ctx, s.sel.AnswerField, digits); err != nil {
		return fmt.Errorf("failed to fill answer field: %w", err)
	}
	if err := s.drv.Click(ctx, s.sel.SubmitButton); err != nil {
		return fmt.Errorf("failed to submit form: %w", err)
	}
	return nil
}

// classify watches the page after submission: landing on the success URL
// means solved; otherwise the feedback text decides between rejected and
// expired.
func (s *Solver) classify(ctx context.Context) (Outcome, error) {
	deadline := time.Now().Add(s.submitWait)
	for {
		loc, err := s.drv.Location(ctx)
		if err != nil {
			return OutcomeRejected, fmt.Errorf("failed to inspect page after submit: %w", err)
		}
		if s.sel.SuccessURLPrefix != "" && strings.HasPrefix(loc, s.sel.SuccessURLPrefix) {
			return OutcomeSolved, nil
		}

		feedback, err := s.drv.Text(ctx, s.sel.Feedback)
		if err != nil {
			return OutcomeRejected, fmt.Errorf("failed to read challenge feedback: %w", err)
		}
		if feedback != "" {
			return s.classifyFeedback(feedback), nil
		}

		// No feedback and the challenge panel is gone: the challenge itself
		// passed. Whether login actually succeeded is the navigator's call.
		present, err := s.drv.Exists(ctx, s.sel.AnswerField)
		if err == nil && !present {
			return OutcomeSolved, nil
		}

		if time.Now().After(deadline) {
			// No navigation and no feedback: the answer did not go through.
			return OutcomeRejected, nil
		}
		select {
		case <-ctx.Done():
			return OutcomeRejected, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Solver) classifyFeedback(feedback string) Outcome {
	for _, marker := range s.sel.ExpiredMarkers {
		if strings.Contains(feedback, marker) {
			s.log.Info("challenge expired", "feedback", feedback)
			return OutcomeExpired
		}
	}
	for _, marker := range s.sel.RejectedMarkers {
		if strings.Contains(feedback, marker) {
			s.log.Info("challenge answer rejected", "feedback", feedback)
			return OutcomeRejected
		}
	}
	s.log.Info("unrecognized challenge feedback, treating as rejected", "feedback", feedback)
	return OutcomeRejected
}
