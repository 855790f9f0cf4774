package newsfeed

import (
	"regexp"
	"strings"
)

// pageTextCap bounds stored article text.
const pageTextCap = 120000

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	mdImageRe    = regexp.MustCompile(`!\[[^\]]*\]\([^\)]+\)`)
	mdLinkRe     = regexp.MustCompile(`\[([^\]]+)\]\(https?://[^\)]+\)`)
	bareURLRe    = regexp.MustCompile(`https?://\S+`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// cleanPageText reduces rendered markdown or raw HTML to body text: tags
// out, images out, links collapsed to their anchor text, bare URLs out,
// whitespace normalized.
func cleanPageText(s string) string {
	if s == "" {
		return ""
	}
	t := htmlTagRe.ReplaceAllString(s, " ")
	t = mdImageRe.ReplaceAllString(t, " ")
	t = mdLinkRe.ReplaceAllString(t, "$1")
	t = bareURLRe.ReplaceAllString(t, " ")
	t = multiSpaceRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// hasEnoughChinese keeps only substantive Chinese body text: at least 30
// CJK runes and at least a 5% CJK share.
func hasEnoughChinese(text string) bool {
	if text == "" {
		return false
	}
	total := 0
	cjk := 0
	for _, r := range text {
		total++
		if r >= 0x4e00 && r <= 0x9fff {
			cjk++
		}
	}
	if cjk < 30 {
		return false
	}
	return float64(cjk)/float64(total) >= 0.05
}

// capText truncates text to the page cap at a rune boundary.
func capText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
