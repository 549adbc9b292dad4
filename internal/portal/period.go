package portal

import (
	"fmt"
	"time"
)

// priorMonthCutoffDay is the last day of a month on which the previous
// month's report is still fetched. Allowance records for a month keep
// trickling in during the first week of the next one.
const priorMonthCutoffDay = 7

// ReportRequest is one calendar-month report period. Start and End always
// lie in the same month; periods produced by TargetPeriods never overlap.
type ReportRequest struct {
	Start      time.Time
	End        time.Time
	PriorMonth bool
}

// Label formats the period the way the portal's date picker displays it.
func (r ReportRequest) Label() string {
	return fmt.Sprintf("%d年%d月", r.Start.Year(), int(r.Start.Month()))
}

// monthRange returns the first and last day of the month containing t.
func monthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, -1)
	return start, end
}

// TargetPeriods computes the report periods for a run at the given time:
// always the current month, preceded by the prior month when the day of
// month is within the cutoff. The prior month comes first so its records
// are finalized before the still-growing current month is fetched.
func TargetPeriods(now time.Time) []ReportRequest {
	curStart, curEnd := monthRange(now)
	current := ReportRequest{Start: curStart, End: curEnd}

	if now.Day() > priorMonthCutoffDay {
		return []ReportRequest{current}
	}

	prevStart, prevEnd := monthRange(curStart.AddDate(0, 0, -1))
	prior := ReportRequest{Start: prevStart, End: prevEnd, PriorMonth: true}
	return []ReportRequest{prior, current}
}
