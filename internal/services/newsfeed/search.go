package newsfeed

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// searchHit is one parsed search-result link before enrichment.
type searchHit struct {
	Title     string
	URL       string
	Snippet   string
	SourceRaw string
}

var (
	linkLineRe = regexp.MustCompile(`^[#\-\*\s]*\[([^\]]{3,200})\]\((https?://[^\)\s]+)\)`)
	tailSrcRe  = regexp.MustCompile(`\|\s*([\x{4e00}-\x{9fa5}A-Za-z0-9_.·\-]{2,20})\s*(?:\||$)`)
	dy163Re    = regexp.MustCompile(`^https?://dy\.163\.com/article/([A-Za-z0-9]+)\.html`)
)

// badURLParts are search-engine service paths that never lead to articles.
var badURLParts = []string{
	"bing.com/rebates", "bing.com/copilotsearch", "bing.com/maps", "bing.com/shop",
	"bing.com/travel", "bing.com/videos", "bing.com/images", "/rebates/", "/payouts",
	"form=PTFTNR",
}

// isValidArticleURL drops non-http links and search-operator internals.
func isValidArticleURL(u string) bool {
	if u == "" || strings.HasPrefix(u, "javascript:") {
		return false
	}
	for _, part := range badURLParts {
		if strings.Contains(u, part) {
			return false
		}
	}
	return strings.HasPrefix(u, "http")
}

// normalizeArticleURL rewrites article hosts that reject direct fetches.
// dy.163.com article pages live under www.163.com/dy/.
func normalizeArticleURL(u string) string {
	if m := dy163Re.FindStringSubmatch(u); m != nil {
		return "https://www.163.com/dy/article/" + m[1] + ".html"
	}
	return u
}

// searchURL builds the web-search entry for one query.
func searchURL(query string) string {
	return "https://www.baidu.com/s?wd=" + url.QueryEscape(query)
}

// parseSearchMarkdown extracts (title, url, snippet, source) tuples from a
// rendered search page. Links come from the goldmark AST; the snippet is
// the following plain-text line (over ten characters, no URL, capped at
// 240) and the source a media name off the line tail. A regex pass over
// the raw lines backstops pages goldmark cannot parse.
func parseSearchMarkdown(md string) []searchHit {
	if md == "" {
		return nil
	}

	lines := nonEmptyLines(md)
	hits := make([]searchHit, 0, 8)
	seen := make(map[string]bool)

	add := func(title, link string, lineIdx int) {
		title = strings.TrimSpace(title)
		link = strings.TrimSpace(link)
		if title == "" || len([]rune(title)) < 3 || !isValidArticleURL(link) || seen[link] {
			return
		}
		seen[link] = true
		hit := searchHit{Title: title, URL: link}
		if lineIdx >= 0 {
			if lineIdx+1 < len(lines) {
				next := lines[lineIdx+1]
				if !strings.Contains(next, "http") && len([]rune(next)) > 10 {
					hit.Snippet = capText(next, 240)
				}
			}
			if m := linkLineRe.FindStringIndex(lines[lineIdx]); m != nil {
				if mt := tailSrcRe.FindStringSubmatch(lines[lineIdx][m[1]:]); mt != nil {
					hit.SourceRaw = strings.TrimSpace(mt[1])
				}
			}
		}
		hits = append(hits, hit)
	}

	source := []byte(md)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		title := string(nodeText(link, source))
		dest := string(link.Destination)
		add(title, dest, lineIndexOf(lines, dest))
		return ast.WalkContinue, nil
	})

	if len(hits) > 0 {
		return hits
	}

	// Fallback: line-anchored markdown links on pages the parser rejects.
	for i, ln := range lines {
		if m := linkLineRe.FindStringSubmatch(ln); m != nil {
			add(m[1], m[2], i)
		}
	}
	return hits
}

func nonEmptyLines(s string) []string {
	raw := strings.Split(s, "\n")
	out := make([]string, 0, len(raw))
	for _, ln := range raw {
		if t := strings.TrimSpace(ln); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// nodeText concatenates the text segments under a node.
func nodeText(n ast.Node, source []byte) []byte {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
			continue
		}
		b.Write(nodeText(c, source))
	}
	return []byte(b.String())
}

// lineIndexOf locates the line carrying the link target, for snippet and
// source extraction.
func lineIndexOf(lines []string, dest string) int {
	if dest == "" {
		return -1
	}
	needle := "(" + dest + ")"
	for i, ln := range lines {
		if strings.Contains(ln, needle) {
			return i
		}
	}
	return -1
}
