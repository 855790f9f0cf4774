package newsfeed

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lunahan/aestimo/internal/common"
)

// publishedLayout is the format all recovered timestamps are rendered in.
const publishedLayout = "2006-01-02 15:04"

// timeMetaKeys are the metadata fields checked for a publish time, in
// priority order.
var timeMetaKeys = []string{
	"datePublished", "dateModified", "pubdate", "publishdate", "published_time",
	"发布时间", "发表时间", "时间", "datetime", "content_time",
}

// Non-padded month/day layouts accept both "08" and "8".
var anyTimeLayouts = []string{
	"2006-1-2 15:04:05", "2006-1-2 15:04", "2006/1/2 15:04", "2006.1.2 15:04",
	"2006-1-2T15:04:05", "2006-1-2T15:04",
	"2006-1-2", "2006/1/2", "2006.1.2",
	"2006年1月2日 15:04", "2006年1月2日",
}

var (
	timePrefixRe   = regexp.MustCompile(`[\x{3000}\s]*发布时间[:：]\s*`)
	unixTsRe       = regexp.MustCompile(`^\d{10,13}$`)
	timeFragmentRe = regexp.MustCompile(`(20\d{2}[-/.年]\d{1,2}[-/.月]\d{1,2}日?(?:[ T]\d{1,2}:\d{2}(?::\d{2})?)?)`)

	relMinuteRe = regexp.MustCompile(`(\d+)\s*分钟前?`)
	relHourRe   = regexp.MustCompile(`(\d+)\s*小时前?`)
	relDayRe    = regexp.MustCompile(`(\d+)\s*天前?`)
	relMonthRe  = regexp.MustCompile(`(\d+)\s*个月前?`)

	urlDateDashRe    = regexp.MustCompile(`/(20\d{2})[-/](\d{1,2})[-/](\d{1,2})(?:/|\b)`)
	urlDateCompactRe = regexp.MustCompile(`/(20\d{2})(\d{2})(\d{2})(?:/|\b)`)
)

// parseAnyTime parses the date shapes seen in article metadata and visible
// text: dashed, slashed, dotted and 年月日 layouts, unix second or
// millisecond timestamps, or a recognizable fragment inside a longer
// string. The result is Beijing time.
func parseAnyTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(timePrefixRe.ReplaceAllString(s, ""))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range anyTimeLayouts {
		if ts, err := time.ParseInLocation(layout, s, common.BeijingZone); err == nil {
			return ts, true
		}
	}
	if unixTsRe.MatchString(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			if len(s) == 13 {
				return time.UnixMilli(n).In(common.BeijingZone), true
			}
			return time.Unix(n, 0).In(common.BeijingZone), true
		}
	}
	if m := timeFragmentRe.FindString(s); m != "" && m != s {
		return parseAnyTime(m)
	}
	return time.Time{}, false
}

// relativeTime resolves fragments like "2小时前" or "28 天" against the
// reference time. Months approximate to 30 days.
func relativeTime(text string, ref time.Time) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}
	base := ref.In(common.BeijingZone)
	if m := relMinuteRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return base.Add(-time.Duration(n) * time.Minute), true
	}
	if m := relHourRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return base.Add(-time.Duration(n) * time.Hour), true
	}
	if m := relDayRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return base.AddDate(0, 0, -n), true
	}
	if m := relMonthRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return base.AddDate(0, 0, -30*n), true
	}
	return time.Time{}, false
}

// timeFromURL recovers a date from article URL paths like /2025/08/12/ or
// /20250812/. The time of day is midnight Beijing.
func timeFromURL(url string) (time.Time, bool) {
	if url == "" {
		return time.Time{}, false
	}
	for _, re := range []*regexp.Regexp{urlDateDashRe, urlDateCompactRe} {
		m := re.FindStringSubmatch(url)
		if m == nil {
			continue
		}
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			continue
		}
		return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, common.BeijingZone), true
	}
	return time.Time{}, false
}

// formatPublished renders a recovered timestamp in the item format.
func formatPublished(ts time.Time) string {
	return ts.In(common.BeijingZone).Format(publishedLayout)
}
