package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/example/einvoicefetch/internal/browser"
)

// Report screen controls. The month picker is a Vue datepicker; its controls
// are addressed the way the portal renders them.
const (
	dateInput       = `#dp-input-date01`
	pickerOverlay   = `.dp__overlay`
	yearSelectBtn   = `.dp--year-select`
	prevYearBtn     = `.dp--arrow-btn-nav[aria-label="Previous year"]`
	nextYearBtn     = `.dp--arrow-btn-nav[aria-label="Next year"]`
	invTypeRadio    = `#queryInvType_1`
	bizTypeRadio    = `#businessType_1`
	searchBtn       = `button[title="查詢"]`
	resultBanner    = `[role="status"]`
	pageSizeSelect  = `select[title="分頁"]`
	selectAllBox    = `#checkbox-all`
	downloadBtn     = `button[title="下載Excel檔"]`
	nextPageBtn     = `button[title="下一頁"]`
	querySuccessMsg = "查詢成功。"
)

// maxPages caps the pagination loop so a broken next-page control cannot
// spin forever.
const maxPages = 50

// Fetcher fills the report search form for one period, triggers the Excel
// exports and waits for the files to land in the download directory.
type Fetcher struct {
	drv         browser.Driver
	downloadDir string
	ban         string
	timeout     time.Duration
	log         *slog.Logger

	// downloads counts export triggers across the whole run; the completion
	// poll compares it against files on disk.
	downloads int

	// claimed marks files already attributed to an earlier period, so each
	// period reports only its own artifacts.
	claimed map[string]bool

	// queryWait bounds the poll for the query status banner.
	queryWait time.Duration

	nowFn func() time.Time
}

// NewFetcher creates a Fetcher. timeout bounds the download-completion wait
// per period.
func NewFetcher(drv browser.Driver, downloadDir, ban string, timeout time.Duration, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		drv:         drv,
		downloadDir: downloadDir,
		ban:         ban,
		timeout:     timeout,
		log:         log,
		claimed:     map[string]bool{},
		queryWait:   5 * time.Second,
		nowFn:       time.Now,
	}
}

// filePattern is the glob the portal's export filenames match for this run.
func (f *Fetcher) filePattern() string {
	prefix := fmt.Sprintf("%s_IN_%s", f.ban, f.nowFn().Format("20060102"))
	return filepath.Join(f.downloadDir, prefix+"*.xls")
}

// CleanupOldFiles removes leftovers from earlier runs today so the
// completion poll counts only files this run produced.
func (f *Fetcher) CleanupOldFiles() error {
	matches, err := filepath.Glob(f.filePattern())
	if err != nil {
		return fmt.Errorf("failed to scan download directory: %w", err)
	}
	for _, file := range matches {
		if err := os.Remove(file); err != nil {
			return fmt.Errorf("failed to remove old file %s: %w", filepath.Base(file), err)
		}
		f.log.Info("removed old download", "file", filepath.Base(file))
	}
	return nil
}

// Fetch downloads the exports for one report period. A download timeout is
// retried once (transient server slowness) before surfacing as
// ErrDownloadTimeout for this period only. An empty path slice with a nil
// error means the portal has no records for the period.
func (f *Fetcher) Fetch(ctx context.Context, req ReportRequest) ([]string, error) {
	paths, err := f.fetchOnce(ctx, req)
	if err == nil || !errors.Is(err, ErrDownloadTimeout) {
		return paths, err
	}

	f.log.Warn("download timed out, retrying period once", "period", req.Label())
	// Resync the trigger counter to what actually landed before re-triggering.
	if matches, globErr := filepath.Glob(f.filePattern()); globErr == nil {
		f.downloads = len(matches)
	}
	if err := f.drv.Reload(ctx); err != nil {
		return nil, fmt.Errorf("failed to reload report screen: %w", err)
	}
	return f.fetchOnce(ctx, req)
}

func (f *Fetcher) fetchOnce(ctx context.Context, req ReportRequest) ([]string, error) {
	hasResults, err := f.configureSearch(ctx, req)
	if err != nil {
		return nil, err
	}
	if !hasResults {
		f.log.Info("no records for period", "period", req.Label())
		return nil, nil
	}

	f.setPageSize(ctx)

	if err := f.downloadAllPages(ctx, req); err != nil {
		return nil, err
	}
	return f.waitForDownloads(ctx)
}

// configureSearch sets the report month and filters and runs the query.
// Returns false when the portal reports no records for the period.
func (f *Fetcher) configureSearch(ctx context.Context, req ReportRequest) (bool, error) {
	if err := f.pickMonth(ctx, req); err != nil {
		return false, err
	}

	for _, sel := range []string{invTypeRadio, bizTypeRadio} {
		if err := f.drv.Click(ctx, sel); err != nil {
			return false, fmt.Errorf("%w: filter %s: %v", ErrNavigation, sel, err)
		}
	}

	if err := f.drv.Click(ctx, searchBtn); err != nil {
		return false, fmt.Errorf("%w: search button: %v", ErrNavigation, err)
	}

	return f.waitForQueryResult(ctx)
}

// pickMonth drives the date picker: open it, drill to the target year with
// the arrow buttons, then click the month cell.
func (f *Fetcher) pickMonth(ctx context.Context, req ReportRequest) error {
	if err := f.drv.Click(ctx, dateInput); err != nil {
		return fmt.Errorf("%w: date input: %v", ErrNavigation, err)
	}
	if err := f.drv.WaitVisible(ctx, pickerOverlay); err != nil {
		return fmt.Errorf("%w: date picker overlay: %v", ErrNavigation, err)
	}

	shownYear, err := f.shownYear(ctx)
	if err != nil {
		return err
	}
	targetYear := req.Start.Year()

	arrow := nextYearBtn
	steps := targetYear - shownYear
	if steps < 0 {
		arrow = prevYearBtn
		steps = -steps
	}
	for i := 0; i < steps; i++ {
		if err := f.drv.Click(ctx, arrow); err != nil {
			return fmt.Errorf("%w: year navigation: %v", ErrNavigation, err)
		}
	}

	monthCell := fmt.Sprintf(`div[data-test="%d月"]`, int(req.Start.Month()))
	if err := f.drv.Click(ctx, monthCell); err != nil {
		return fmt.Errorf("%w: month cell %s: %v", ErrNavigation, monthCell, err)
	}
	f.log.Debug("selected report month", "period", req.Label())
	return nil
}

// shownYear parses the year the picker currently displays ("2026年").
func (f *Fetcher) shownYear(ctx context.Context) (int, error) {
	text, err := f.drv.Text(ctx, yearSelectBtn)
	if err != nil {
		return 0, fmt.Errorf("%w: year selector: %v", ErrNavigation, err)
	}
	year, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(text), "年"))
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable picker year %q", ErrNavigation, text)
	}
	return year, nil
}

// waitForQueryResult polls the status banner for the success message. No
// message within the window means the period has no records, which is a
// normal outcome, not an error.
func (f *Fetcher) waitForQueryResult(ctx context.Context) (bool, error) {
	deadline := time.Now().Add(f.queryWait)
	for {
		text, err := f.drv.Text(ctx, resultBanner)
		if err != nil {
			return false, fmt.Errorf("failed to read query status: %w", err)
		}
		if strings.Contains(text, querySuccessMsg) {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// setPageSize bumps the result page size to the maximum so most periods fit
// on one page. Failure is tolerable; pagination handles the rest.
func (f *Fetcher) setPageSize(ctx context.Context) {
	if err := f.drv.SetValue(ctx, pageSizeSelect, "1000"); err != nil {
		f.log.Warn("could not set page size, continuing with default", "error", err)
	}
}

// downloadAllPages selects all rows and triggers the Excel export on every
// result page.
func (f *Fetcher) downloadAllPages(ctx context.Context, req ReportRequest) error {
	for page := 1; page <= maxPages; page++ {
		if err := f.drv.Click(ctx, selectAllBox); err != nil {
			return fmt.Errorf("%w: select-all on page %d: %v", ErrNavigation, page, err)
		}
		if err := f.drv.Click(ctx, downloadBtn); err != nil {
			return fmt.Errorf("%w: download button on page %d: %v", ErrNavigation, page, err)
		}
		f.downloads++
		f.log.Info("export triggered", "period", req.Label(), "page", page)

		_, disabled, err := f.drv.AttrValue(ctx, nextPageBtn, "disabled")
		if err != nil {
			return fmt.Errorf("failed to inspect pagination: %w", err)
		}
		if disabled {
			return nil
		}
		if err := f.drv.Click(ctx, nextPageBtn); err != nil {
			return fmt.Errorf("%w: next page after page %d: %v", ErrNavigation, page, err)
		}
	}
	return fmt.Errorf("%w: more than %d result pages", ErrNavigation, maxPages)
}

// waitForDownloads polls the download directory until every triggered export
// has landed or the timeout elapses. Only files not yet attributed to an
// earlier period are returned.
func (f *Fetcher) waitForDownloads(ctx context.Context) ([]string, error) {
	deadline := time.Now().Add(f.timeout)
	for {
		matches, err := filepath.Glob(f.filePattern())
		if err != nil {
			return nil, fmt.Errorf("failed to scan download directory: %w", err)
		}
		if len(matches) >= f.downloads {
			var fresh []string
			for _, file := range matches {
				if f.claimed[file] {
					continue
				}
				f.claimed[file] = true
				fresh = append(fresh, file)
				f.log.Info("download complete", "file", filepath.Base(file))
			}
			return fresh, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %d of %d files after %s",
				ErrDownloadTimeout, len(matches), f.downloads, f.timeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}
