package newsfeed

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/lunahan/aestimo/internal/models"
)

// impact scale bounds; a neutral item lands at the midpoint.
const (
	impactBase = 50.0
	impactSpan = 20.0
)

// sentimentLabel classifies a text by lexicon hits: a one-sided match is
// decisive, everything else reads neutral.
func sentimentLabel(t *Tuning, text string) string {
	var pos, neg bool
	for _, w := range t.PosWords {
		if strings.Contains(text, w) {
			pos = true
			break
		}
	}
	for _, w := range t.NegWords {
		if strings.Contains(text, w) {
			neg = true
			break
		}
	}
	switch {
	case pos && !neg:
		return models.SentimentPositive
	case neg && !pos:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// normalizeSourceName maps a raw source label to its canonical outlet name,
// trying the article's host first so mirror sites resolve to the wire.
func normalizeSourceName(t *Tuning, raw, articleURL string) string {
	if host := hostOf(articleURL); host != "" {
		for dom, name := range t.DomainAliases {
			if strings.Contains(host, dom) {
				return name
			}
		}
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if name, ok := t.SourceAliases[s]; ok {
		return name
	}
	for alias, name := range t.SourceAliases {
		if strings.Contains(s, alias) {
			return name
		}
	}
	return s
}

// sourceWeight returns the authority multiplier for an item, the larger of
// its name-based and host-based weights, defaulting to 1.
func sourceWeight(t *Tuning, source, articleURL string) float64 {
	w := 1.0
	for name, sw := range t.SourceWeights {
		if source != "" && strings.Contains(source, name) && sw > w {
			w = sw
		}
	}
	if host := hostOf(articleURL); host != "" {
		for dom, dw := range t.DomainWeights {
			if strings.Contains(host, dom) && dw > w {
				w = dw
			}
		}
	}
	return w
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// enrich scores one item in place: sentiment from the lexicons, a macro
// event boost for policy triggers, and an impact score on the 0-100 scale.
func enrich(t *Tuning, w *workItem) {
	it := &w.item
	text := it.Title + " " + it.Snippet + " " + it.PageText

	it.Sentiment = sentimentLabel(t, text)
	switch it.Sentiment {
	case models.SentimentPositive:
		it.Reason = "关键词命中"
	case models.SentimentNegative:
		it.Reason = "关键词命中"
	default:
		it.Reason = "无明显情感关键词"
	}

	sign := 0.0
	switch it.Sentiment {
	case models.SentimentPositive:
		sign = 1
	case models.SentimentNegative:
		sign = -1
	}

	w.srcWeight = sourceWeight(t, it.BestSource(), it.URL)
	layerW := t.LayerWeight(it.Level)
	if it.Level == models.NewsLayerMacro {
		for _, kw := range t.MacroEventWords {
			if strings.Contains(text, kw) {
				it.MacroEvent = true
				layerW *= t.MacroEventBoost
				break
			}
		}
	}

	weight := w.srcWeight * layerW
	it.Weight = math.Round(weight*100) / 100
	it.Impact = clampImpact(sign*weight*impactSpan + impactBase)
	if re := t.PriorityRegexp(); re != nil && re.MatchString(it.Title) {
		it.Priority = true
	}
}

func clampImpact(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}

// orderItems ranks the deduplicated pool: priority items first, newer over
// older, higher impact breaking ties. Items without a recovered timestamp
// sort as if published at the window start.
func orderItems(items []*workItem, windowStart time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.item.Priority != b.item.Priority {
			return a.item.Priority
		}
		at, bt := a.ts, b.ts
		if !a.hasTS {
			at = windowStart
		}
		if !b.hasTS {
			bt = windowStart
		}
		if !at.Equal(bt) {
			return at.After(bt)
		}
		return a.item.Impact > b.item.Impact
	})
}

// selectWindow keeps items published after the lookback cutoff, newest
// first, capped at topk. Undated items are dropped here: a citation the
// reader cannot place in time is not evidence. Nothing is backfilled when
// the window comes up short.
func selectWindow(items []*workItem, cutoff time.Time, topk int) []*workItem {
	var kept []*workItem
	for _, it := range items {
		if !it.hasTS || it.ts.Before(cutoff) {
			continue
		}
		kept = append(kept, it)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].ts.After(kept[j].ts) })
	if topk > 0 && len(kept) > topk {
		kept = kept[:topk]
	}
	return kept
}
