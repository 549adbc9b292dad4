package portal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/einvoicefetch/internal/browser"
	"github.com/example/einvoicefetch/internal/config"
)

// CaptchaRetrier is the piece of the CAPTCHA subsystem the navigator
// delegates to during login.
type CaptchaRetrier interface {
	SolveWithRetries(ctx context.Context) error
}

// Login page and menu element IDs, as rendered by the portal.
const (
	businessLoginLink = `a[href^="/accounts/login/b"]`
	banField          = `#ban`
	userIDField       = `#user_id`
	passwordField     = `#user_password`

	menuB2B      = `#headingFunctionB2B_MENU`
	menuQueryDl  = `#headingFunctionB2BC_SINGLE_QRY_DOWN`
	menuAllowDl  = `#headingFunctionBTB412W`
)

// popupCloseSelectors are tried in order to dismiss dialogs the dashboard
// shows after login (announcements, maintenance notices).
var popupCloseSelectors = []string{
	`button[aria-label="Close"]`,
	`.modal-close`,
	`button.btn-close`,
	`.close`,
	`[data-dismiss="modal"]`,
}

// popupCloseLabels are visible button texts tried when no structural close
// control matches; announcement dialogs often carry only a labeled button.
var popupCloseLabels = []string{"關閉", "確定", "OK"}

// Navigator drives login and post-login menu navigation. It holds no
// session state of its own; the driver is passed in at construction and
// owned by the runner.
type Navigator struct {
	drv   browser.Driver
	creds config.Credentials

	loginURL        string
	dashboardPrefix string

	log *slog.Logger
}

// NewNavigator creates a Navigator for the configured portal endpoints.
func NewNavigator(drv browser.Driver, cfg config.Config, log *slog.Logger) *Navigator {
	if log == nil {
		log = slog.Default()
	}
	return &Navigator{
		drv:             drv,
		creds:           cfg.Credentials,
		loginURL:        cfg.LoginURL,
		dashboardPrefix: cfg.DashboardPrefix,
		log:             log,
	}
}

// Login opens the business login form, fills credentials, lets the retrier
// defeat the CAPTCHA, then confirms the authenticated landing page. A
// CAPTCHA exhaustion error from the retrier propagates as-is; a solved
// CAPTCHA with a wrong landing page is ErrLoginFailed and is never retried.
func (n *Navigator) Login(ctx context.Context, retrier CaptchaRetrier) error {
	n.log.Info("opening login page", "url", n.loginURL)
	if err := n.drv.Navigate(ctx, n.loginURL); err != nil {
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	if err := n.drv.WaitVisible(ctx, businessLoginLink); err != nil {
		return fmt.Errorf("%w: business login link: %v", ErrNavigation, err)
	}
	if err := n.drv.Click(ctx, businessLoginLink); err != nil {
		return fmt.Errorf("%w: business login link: %v", ErrNavigation, err)
	}
	if err := n.drv.WaitVisible(ctx, banField); err != nil {
		return fmt.Errorf("%w: login form: %v", ErrNavigation, err)
	}

	if err := n.FillLoginFields(ctx); err != nil {
		return err
	}

	if err := retrier.SolveWithRetries(ctx); err != nil {
		return err
	}

	loc, err := n.drv.Location(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify login: %w", err)
	}
	if !strings.HasPrefix(loc, n.dashboardPrefix) {
		n.log.Error("landing page mismatch after solved captcha", "location", loc)
		return ErrLoginFailed
	}

	n.dismissPopups(ctx)
	n.log.Info("login successful")
	return nil
}

// FillLoginFields enters the credentials. It doubles as the solver's
// pre-submit hook because the portal clears the form after a failed
// CAPTCHA submission.
func (n *Navigator) FillLoginFields(ctx context.Context) error {
	fields := []struct {
		sel, value string
	}{
		{banField, n.creds.BAN},
		{userIDField, n.creds.UserID},
		{passwordField, n.creds.Password},
	}
	for _, f := range fields {
		if err := n.drv.SetValue(ctx, f.sel, f.value); err != nil {
			return fmt.Errorf("failed to fill login field %s: %w", f.sel, err)
		}
	}
	return nil
}

// OpenReportMenu walks the three-level menu down to the allowance download
// screen. Any missing anchor means the portal layout changed.
func (n *Navigator) OpenReportMenu(ctx context.Context) error {
	steps := []string{menuB2B, menuQueryDl, menuAllowDl}
	for i, sel := range steps {
		n.log.Debug("opening menu entry", "step", i+1, "selector", sel)
		if err := n.drv.Click(ctx, sel); err != nil {
			return fmt.Errorf("%w: menu step %d (%s): %v", ErrNavigation, i+1, sel, err)
		}
	}
	n.log.Info("report screen opened")
	return nil
}

// dismissPopups closes whatever dialog the dashboard put up. Best effort;
// a popup that will not close surfaces later as a navigation failure.
func (n *Navigator) dismissPopups(ctx context.Context) {
	for _, sel := range popupCloseSelectors {
		present, err := n.drv.Exists(ctx, sel)
		if err != nil || !present {
			continue
		}
		if err := n.drv.Click(ctx, sel); err == nil {
			n.log.Debug("dismissed popup", "selector", sel)
			return
		}
	}
	for _, label := range popupCloseLabels {
		if err := n.drv.ClickByText(ctx, "button", label); err == nil {
			n.log.Debug("dismissed popup", "label", label)
			return
		}
	}
}
