package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/einvoicefetch/internal/browser"
	"github.com/example/einvoicefetch/internal/captcha"
	"github.com/example/einvoicefetch/internal/config"
	"github.com/example/einvoicefetch/internal/portal"
	"github.com/example/einvoicefetch/internal/transcribe"
)

// State is the orchestrator's position in the run sequence.
type State int

const (
	StateInit State = iota
	StateLoggingIn
	StateNavigating
	StateFetchingCurrent
	StateFetchingPrior
	StateClosing
	StateDone
	StateAborted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateLoggingIn:
		return "LOGGING_IN"
	case StateNavigating:
		return "NAVIGATING"
	case StateFetchingCurrent:
		return "FETCHING_CURRENT"
	case StateFetchingPrior:
		return "FETCHING_PRIOR"
	case StateClosing:
		return "CLOSING"
	case StateDone:
		return "DONE"
	case StateAborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is the browser session as the runner sees it: the full driver
// capability plus teardown. The runner owns the session exclusively and
// closes it on every exit path.
type Session interface {
	browser.Driver
	Close() error
}

// SessionFactory opens a browser session.
type SessionFactory func(ctx context.Context, opts browser.Options) (Session, error)

// TranscriberFactory builds the transcription engine for a run.
type TranscriberFactory func(cfg config.Config) (transcribe.Transcriber, error)

// Runner sequences one full run: open session, log in, navigate, fetch each
// report period, tear down.
type Runner struct {
	cfg config.Config
	log *slog.Logger

	newSession     SessionFactory
	newTranscriber TranscriberFactory
	now            func() time.Time

	state State
}

// Option configures a Runner.
type Option func(*Runner)

// WithSessionFactory overrides how the browser session is opened. Tests use
// this to substitute a scripted driver.
func WithSessionFactory(f SessionFactory) Option {
	return func(r *Runner) { r.newSession = f }
}

// WithTranscriberFactory overrides how the transcription engine is built.
func WithTranscriberFactory(f TranscriberFactory) Option {
	return func(r *Runner) { r.newTranscriber = f }
}

// WithClock overrides the time source used for report-period math.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a Runner for the given configuration.
func New(cfg config.Config, log *slog.Logger, opts ...Option) *Runner {
	if log == nil {
		log = slog.Default()
	}
	r := &Runner{
		cfg:   cfg,
		log:   log,
		now:   time.Now,
		state: StateInit,
	}
	r.newSession = func(ctx context.Context, o browser.Options) (Session, error) {
		return browser.NewSession(ctx, o)
	}
	r.newTranscriber = defaultTranscriberFactory
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultTranscriberFactory(cfg config.Config) (transcribe.Transcriber, error) {
	tc := transcribe.DefaultConfig()
	tc.Provider = cfg.Transcriber
	tc.OpenAIKey = cfg.OpenAIKey
	tc.GeminiKey = cfg.GeminiKey
	tr, err := transcribe.NewTranscriber(tc)
	if err != nil {
		return nil, err
	}
	return transcribe.NewBreakerTranscriber(tr), nil
}

func (r *Runner) transition(next State) {
	r.log.Debug("state transition", "from", r.state.String(), "to", next.String())
	r.state = next
}

// Run executes the full sequence and returns an itemized report. The report
// is never nil; callers derive the exit code from it. The browser session is
// closed exactly once on every path, including aborts.
func (r *Runner) Run(ctx context.Context) *Report {
	report := newReport(r.now())
	defer func() { report.Finished = r.now() }()

	tr, err := r.newTranscriber(r.cfg)
	if err != nil {
		r.transition(StateAborted)
		report.SetupErr = fmt.Errorf("failed to set up transcriber: %w", err)
		return report
	}

	session, err := r.newSession(ctx, browser.Options{
		Headless:    r.cfg.Headless,
		DownloadDir: r.cfg.DownloadDir,
		StepTimeout: r.cfg.StepTimeout,
	})
	if err != nil {
		r.transition(StateAborted)
		report.SetupErr = fmt.Errorf("failed to open browser session: %w", err)
		return report
	}
	defer func() {
		r.transition(StateClosing)
		if cerr := session.Close(); cerr != nil {
			r.log.Warn("error closing browser session", "error", cerr)
		}
		if report.Success() {
			r.transition(StateDone)
		} else {
			r.transition(StateAborted)
		}
	}()

	nav := portal.NewNavigator(session, r.cfg, r.log)
	solver := captcha.NewSolver(session, tr,
		captcha.DefaultSelectors(r.cfg.DashboardPrefix), r.log,
		captcha.WithPreSubmit(nav.FillLoginFields),
		captcha.WithTranscribeTimeout(r.cfg.TranscribeTimeout),
	)
	retrier := captcha.NewRetrier(solver, r.cfg.MaxCaptchaAttempts, r.log)

	r.transition(StateLoggingIn)
	if err := nav.Login(ctx, retrier); err != nil {
		report.LoginErr = err
		return report
	}

	r.transition(StateNavigating)
	if err := nav.OpenReportMenu(ctx); err != nil {
		report.NavErr = err
		return report
	}

	fetcher := portal.NewFetcher(session, r.cfg.DownloadDir, r.cfg.Credentials.BAN,
		r.cfg.DownloadTimeout, r.log)
	if err := fetcher.CleanupOldFiles(); err != nil {
		report.NavErr = fmt.Errorf("failed to clean up old downloads: %w", err)
		return report
	}

	periods := portal.TargetPeriods(r.now())
	for i, req := range periods {
		if req.PriorMonth {
			r.transition(StateFetchingPrior)
		} else {
			r.transition(StateFetchingCurrent)
		}

		if i > 0 {
			// Reset the search form between periods.
			if err := session.Reload(ctx); err != nil {
				report.Periods = append(report.Periods, PeriodResult{
					Period: req,
					Err:    fmt.Errorf("failed to reset report screen: %w", err),
				})
				continue
			}
		}

		r.log.Info("fetching report period", "period", req.Label())
		paths, err := fetcher.Fetch(ctx, req)
		report.Periods = append(report.Periods, PeriodResult{
			Period: req,
			Paths:  paths,
			Err:    err,
		})
		if err != nil {
			// Fatal for this period only; the other period is independent.
			r.log.Error("period fetch failed", "period", req.Label(), "error", err)
		}
	}

	return report
}
