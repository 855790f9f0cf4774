package newsfeed

import (
	"regexp"
	"strings"
	"time"

	"github.com/lunahan/aestimo/internal/models"
)

var (
	digitRunRe   = regexp.MustCompile(`\d{2,}`)
	titlePunctRe = regexp.MustCompile(`[\s\-_|【】\[\]（）()：:，,。.!！?？]+`)
)

// eventKey canonicalizes a title so reposts of the same story collapse:
// long digit runs, punctuation and wire-copy prefixes are stripped.
func eventKey(title string) string {
	k := strings.ToLower(strings.TrimSpace(title))
	k = digitRunRe.ReplaceAllString(k, "")
	k = titlePunctRe.ReplaceAllString(k, " ")
	k = strings.ReplaceAll(k, "快讯", "")
	k = strings.ReplaceAll(k, "最新", "")
	return strings.Join(strings.Fields(k), " ")
}

// eventGroup collects one story's duplicates under a representative item.
type eventGroup struct {
	rep     *workItem
	sources []string
	urls    []string
	srcSeen map[string]bool
	urlSeen map[string]bool
}

func (g *eventGroup) absorb(it *workItem) {
	if src := it.item.BestSource(); src != "" && !g.srcSeen[src] {
		g.sources = append(g.sources, src)
		g.srcSeen[src] = true
	}
	if u := it.item.URL; u != "" && !g.urlSeen[u] {
		g.urls = append(g.urls, u)
		g.urlSeen[u] = true
	}
}

// better reports whether a beats b as the group representative: priority
// first, then recency, then source authority.
func better(a, b *workItem) bool {
	if a.item.Priority != b.item.Priority {
		return a.item.Priority
	}
	at, bt := a.ts, b.ts
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return a.srcWeight > b.srcWeight
}

// dedupeEvents groups scored items by canonical title (falling back to the
// URL when a title canonicalizes to nothing), keeps the strongest member of
// each group and attaches the merged source and URL lists to it.
func dedupeEvents(items []*workItem) []*workItem {
	groups := make(map[string]*eventGroup)
	var order []string

	for _, it := range items {
		key := eventKey(it.item.Title)
		if key == "" {
			key = it.item.URL
		}
		g, ok := groups[key]
		if !ok {
			g = &eventGroup{
				rep:     it,
				srcSeen: make(map[string]bool),
				urlSeen: make(map[string]bool),
			}
			groups[key] = g
			order = append(order, key)
		} else if better(it, g.rep) {
			g.rep = it
		}
		g.absorb(it)
	}

	out := make([]*workItem, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.rep.item.Sources = g.sources
		g.rep.item.URLs = g.urls
		out = append(out, g.rep)
	}
	return out
}

// workItem pairs an item with the parsed fields the pipeline sorts on.
type workItem struct {
	item      models.NewsItem
	ts        time.Time
	hasTS     bool
	srcWeight float64
}
