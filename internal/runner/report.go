package runner

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/example/einvoicefetch/internal/portal"
)

// PeriodResult records the outcome of one report period.
type PeriodResult struct {
	Period portal.ReportRequest
	Paths  []string
	Err    error
}

// Report is the itemized outcome of a run. Partial success (one of two
// periods fetched) is representable and still counts as failure for the
// exit code, but the summary makes clear which period succeeded.
type Report struct {
	SetupErr error
	LoginErr error
	NavErr   error
	Periods  []PeriodResult

	Started  time.Time
	Finished time.Time
}

func newReport(started time.Time) *Report {
	return &Report{Started: started}
}

// Success reports whether every step and every period completed.
func (r *Report) Success() bool {
	if r.SetupErr != nil || r.LoginErr != nil || r.NavErr != nil {
		return false
	}
	if len(r.Periods) == 0 {
		return false
	}
	for _, p := range r.Periods {
		if p.Err != nil {
			return false
		}
	}
	return true
}

// Err returns a single error summarizing the failure, or nil on success.
func (r *Report) Err() error {
	switch {
	case r.SetupErr != nil:
		return r.SetupErr
	case r.LoginErr != nil:
		return r.LoginErr
	case r.NavErr != nil:
		return r.NavErr
	}
	failed := 0
	for _, p := range r.Periods {
		if p.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d report periods failed", failed, len(r.Periods))
	}
	if len(r.Periods) == 0 {
		return fmt.Errorf("no report periods were attempted")
	}
	return nil
}

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	failMark = color.New(color.FgRed).Sprint("✗")
	skipMark = color.New(color.FgYellow).Sprint("-")
)

// Print writes the itemized summary.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "\n=== Run Summary ===\n")

	if r.SetupErr != nil {
		fmt.Fprintf(w, "%s setup: %v\n", failMark, r.SetupErr)
		return
	}

	if r.LoginErr != nil {
		fmt.Fprintf(w, "%s login: %v\n", failMark, r.LoginErr)
	} else {
		fmt.Fprintf(w, "%s login\n", okMark)
	}

	switch {
	case r.LoginErr != nil:
		fmt.Fprintf(w, "%s navigation: skipped\n", skipMark)
	case r.NavErr != nil:
		fmt.Fprintf(w, "%s navigation: %v\n", failMark, r.NavErr)
	default:
		fmt.Fprintf(w, "%s navigation\n", okMark)
	}

	for _, p := range r.Periods {
		switch {
		case p.Err != nil:
			fmt.Fprintf(w, "%s period %s: %v\n", failMark, p.Period.Label(), p.Err)
		case len(p.Paths) == 0:
			fmt.Fprintf(w, "%s period %s: no records\n", okMark, p.Period.Label())
		default:
			fmt.Fprintf(w, "%s period %s: %d file(s)\n", okMark, p.Period.Label(), len(p.Paths))
			for _, path := range p.Paths {
				fmt.Fprintf(w, "    %s\n", filepath.Base(path))
			}
		}
	}

	if !r.Finished.IsZero() {
		fmt.Fprintf(w, "elapsed: %s\n", r.Finished.Sub(r.Started).Round(time.Second))
	}
}
