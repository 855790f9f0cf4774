package newsfeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunahan/aestimo/internal/common"
)

func TestParseAnyTime_Formats(t *testing.T) {
	cases := map[string]string{
		"2025-08-20 09:30":     "2025-08-20 09:30",
		"2025/8/3 7:05":        "2025-08-03 07:05",
		"2025年8月20日 09:30":     "2025-08-20 09:30",
		"2025.08.20":           "2025-08-20 00:00",
		"发布时间：2025-08-20 09:30": "2025-08-20 09:30",
		"1755653400":           "2025-08-20 09:30",
		"1755653400000":        "2025-08-20 09:30",
	}
	for input, want := range cases {
		ts, ok := parseAnyTime(input)
		require.True(t, ok, "input %q", input)
		assert.Equal(t, want, formatPublished(ts), "input %q", input)
	}
}

func TestParseAnyTime_Garbage(t *testing.T) {
	for _, input := range []string{"", "昨天见", "20xx-01-01"} {
		_, ok := parseAnyTime(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestRelativeTime_AnchoredToEnd(t *testing.T) {
	end := time.Date(2025, 8, 26, 12, 0, 0, 0, common.BeijingZone)

	cases := map[string]string{
		"3分钟前发布":  "2025-08-26 11:57",
		"2小时前":    "2025-08-26 10:00",
		"1天前 来源":  "2025-08-25 12:00",
		"2个月前的报道": "2025-06-27 12:00",
	}
	for input, want := range cases {
		ts, ok := relativeTime(input, end)
		require.True(t, ok, "input %q", input)
		assert.Equal(t, want, formatPublished(ts), "input %q", input)
	}

	_, ok := relativeTime("刚刚", end)
	assert.False(t, ok)
}

func TestTimeFromURL(t *testing.T) {
	ts, ok := timeFromURL("https://finance.example.com/2025/08/12/article.html")
	require.True(t, ok)
	assert.Equal(t, "2025-08-12 00:00", formatPublished(ts))

	ts, ok = timeFromURL("https://news.example.com/a/20250812/xyz.html")
	require.True(t, ok)
	assert.Equal(t, "2025-08-12 00:00", formatPublished(ts))

	// Digit runs that are not plausible dates must not parse.
	_, ok = timeFromURL("https://news.example.com/a/20259912/xyz.html")
	assert.False(t, ok)

	_, ok = timeFromURL("https://news.example.com/a/xyz.html")
	assert.False(t, ok)
}
