// -----------------------------------------------------------------------
// Analysis Dates - Flexible date parsing and analysis window derivation
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateCompact is the canonical wire format for trade dates (20060102)
	DateCompact = "20060102"
	// DateDash is the human-readable date format (2006-01-02)
	DateDash = "2006-01-02"
	// TimestampLayout is the envelope timestamp format used in persisted artifacts
	TimestampLayout = "2006-01-02 15:04:05"
)

// BeijingZone is the fixed offset zone used for all market timestamps.
// Upstream vendors report in China Standard Time regardless of host TZ.
var BeijingZone = time.FixedZone("CST", 8*60*60)

// acceptedDateLayouts are tried in order by ParseFlexibleDate.
var acceptedDateLayouts = []string{
	DateCompact,
	DateDash,
	"2006/01/02",
	"2006.01.02",
}

// ParseFlexibleDate parses a user-supplied analysis end date. Accepted forms are
// YYYYMMDD, YYYY-MM-DD, YYYY/MM/DD and YYYY.MM.DD. Anything else, including an
// empty string, resolves to today so a malformed request still produces a run.
func ParseFlexibleDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s != "" {
		for _, layout := range acceptedDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Window is a closed analysis date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowFromEnd derives the two-calendar-year analysis window ending at end.
// The start preserves month and day (AddDate), it is not a day-count subtraction.
func WindowFromEnd(end time.Time) Window {
	return Window{Start: end.AddDate(-2, 0, 0), End: end}
}

// StartCompact returns the window start as YYYYMMDD.
func (w Window) StartCompact() string { return w.Start.Format(DateCompact) }

// EndCompact returns the window end as YYYYMMDD.
func (w Window) EndCompact() string { return w.End.Format(DateCompact) }

// StartDash returns the window start as YYYY-MM-DD.
func (w Window) StartDash() string { return w.Start.Format(DateDash) }

// EndDash returns the window end as YYYY-MM-DD.
func (w Window) EndDash() string { return w.End.Format(DateDash) }

// AnalysisPeriod renders the window in the report envelope form
// "YYYY-MM-DD 至 YYYY-MM-DD".
func (w Window) AnalysisPeriod() string {
	return fmt.Sprintf("%s 至 %s", w.StartDash(), w.EndDash())
}

// AnalysisPeriodRolling is the envelope label for interfaces that are not
// window-bounded (full-history fundamentals).
const AnalysisPeriodRolling = "近两年数据"

// Timestamp renders t in the artifact envelope format.
func Timestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// PrecedingDates returns the n calendar days immediately before end, most
// recent first, as YYYYMMDD strings. Trade-date-only interfaces walk this list
// when the requested date lands on a non-trading day.
func PrecedingDates(end time.Time, n int) []string {
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, end.AddDate(0, 0, -i).Format(DateCompact))
	}
	return out
}
