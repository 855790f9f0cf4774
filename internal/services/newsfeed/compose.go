package newsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

// Per-item LLM reads are limited to priority or high-impact items, capped.
const (
	itemReadImpactFloor = 60
	itemReadCap         = 24
	evidenceCap         = 6
)

// evidenceBadHosts are aggregator or redirect domains that make useless
// citations.
var evidenceBadHosts = []string{"bing.com", "microsoft.com", "onedrive.live.com"}

// horizonPoint is one catalyst or risk with its expected time horizon.
type horizonPoint struct {
	Point   string `json:"point"`
	Horizon string `json:"horizon"`
}

type proportions struct {
	Positive string `json:"positive"`
	Neutral  string `json:"neutral"`
	Negative string `json:"negative"`
}

// structuredSummary is the model's corpus-level read.
type structuredSummary struct {
	OverallSentiment string         `json:"overall_sentiment"`
	Reasons          []string       `json:"reasons"`
	Proportions      *proportions   `json:"proportions"`
	Catalysts        []horizonPoint `json:"catalysts"`
	Risks            []horizonPoint `json:"risks"`
	PolicyPoints     []string       `json:"policy_points"`
	Score            *int           `json:"score"`
	OneLiner         string         `json:"one_liner"`
}

// singleItemRead is the model's answer for one news item.
type singleItemRead struct {
	Summary    string   `json:"summary"`
	KeyPoints  []string `json:"key_points"`
	Sentiment  string   `json:"sentiment"`
	Confidence *int     `json:"confidence"`
}

// extractJSONObject pulls the first JSON object out of a model response,
// tolerating fenced blocks and surrounding prose.
func extractJSONObject(response string) (string, bool) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return response[start : end+1], true
}

// annotateItems runs the per-item read over priority and high-impact
// selections. Failures skip the item; the corpus summary does not depend
// on these.
func (s *Service) annotateItems(ctx context.Context, selected []*workItem) {
	calls := 0
	for _, w := range selected {
		if calls >= itemReadCap {
			break
		}
		if !w.item.Priority && w.item.Impact <= itemReadImpactFloor {
			continue
		}
		calls++

		prompt := fmt.Sprintf(singleItemPrompt, w.item.Title, w.item.Snippet, w.item.PageText)
		resp, err := s.llm.Chat(ctx, []interfaces.Message{{Role: "user", Content: prompt}})
		if err != nil {
			s.logger.Warn().Err(err).Str("title", w.item.Title).Msg("Per-item news read failed")
			continue
		}
		raw, ok := extractJSONObject(resp)
		if !ok {
			continue
		}
		var read singleItemRead
		if err := json.Unmarshal([]byte(raw), &read); err != nil {
			continue
		}
		w.item.ItemSummary = read.Summary
		sentiment := read.Sentiment
		if sentiment == "" {
			sentiment = w.item.Sentiment
		}
		if sentiment == "" {
			sentiment = models.SentimentNeutral
		}
		w.item.ItemRead = &models.ItemAnalysis{
			KeyPoints:  read.KeyPoints,
			Sentiment:  sentiment,
			Confidence: read.Confidence,
		}
	}
}

// corpusParts holds the rendered corpus alongside the tallies and the
// traceable detail lines that close the final text.
type corpusParts struct {
	Corpus      string
	StatLine    string
	DetailLines []string
	Counts      interfaces.NewsSentimentCounts
}

// buildCorpus renders the selected items into the prompt corpus, counts
// sentiments and prepares the per-item detail lines.
func buildCorpus(selected []*workItem) corpusParts {
	var p corpusParts
	texts := make([]string, 0, len(selected))
	for _, w := range selected {
		it := w.item
		label := it.Sentiment
		if label == "" {
			label = models.SentimentNeutral
		}
		switch label {
		case models.SentimentPositive:
			p.Counts.Positive++
		case models.SentimentNegative:
			p.Counts.Negative++
		default:
			p.Counts.Neutral++
		}

		body := it.PageText
		if body == "" {
			body = it.Snippet
		}
		srcs := it.Sources
		if len(srcs) == 0 {
			srcs = []string{it.BestSource()}
		}
		srcStr := strings.Join(srcs[:minInt(len(srcs), 4)], ",")
		if len(srcs) > 4 {
			srcStr += "…"
		}
		macroTag := ""
		if it.MacroEvent {
			macroTag = "★宏观事件"
		}

		pieces := []string{
			it.Title,
			body,
			"来源:" + srcStr,
			"时间:" + it.PublishedAt,
			"情绪:" + label,
			fmt.Sprintf("影响分:%d", it.Impact),
			it.URL,
			macroTag,
		}
		nonEmpty := pieces[:0]
		for _, piece := range pieces {
			if piece != "" {
				nonEmpty = append(nonEmpty, piece)
			}
		}
		texts = append(texts, strings.Join(nonEmpty, "\n"))

		p.DetailLines = append(p.DetailLines, strings.TrimRight(fmt.Sprintf(
			"- [%s][%d][%s] %s | %s | %s | %s %s",
			label, it.Impact, it.Level, it.Title, srcStr, it.PublishedAt, it.FirstURL(), macroTag), " "))
	}
	p.Corpus = strings.Join(texts, "\n\n")
	total := p.Counts.Positive + p.Counts.Neutral + p.Counts.Negative
	p.StatLine = fmt.Sprintf("统计：正面%d | 中性%d | 负面%d（样本数:%d）",
		p.Counts.Positive, p.Counts.Neutral, p.Counts.Negative, total)
	return p
}

// summarizeCorpus asks the model for the structured read; nil means the
// caller should fall back to the plain narrative.
func (s *Service) summarizeCorpus(ctx context.Context, corpus, statLine, startStr, endStr string) *structuredSummary {
	prompt := fmt.Sprintf(structuredCorpusPrompt, startStr, endStr, statLine, corpus)
	resp, err := s.llm.Chat(ctx, []interfaces.Message{{Role: "user", Content: prompt}})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Structured news summary failed")
		return nil
	}
	raw, ok := extractJSONObject(resp)
	if !ok {
		return nil
	}
	var out structuredSummary
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		s.logger.Warn().Err(err).Msg("Structured news summary did not parse")
		return nil
	}
	return &out
}

func (s *Service) summarizeCorpusPlain(ctx context.Context, corpus, statLine, startStr, endStr string) string {
	prompt := fmt.Sprintf(plainCorpusPrompt, startStr, endStr, statLine, corpus)
	resp, err := s.llm.Chat(ctx, []interfaces.Message{{Role: "user", Content: prompt}})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Plain news summary failed")
		return "新闻摘要生成失败。"
	}
	return strings.TrimSpace(resp)
}

// formatStructured renders the structured read into the readable blocks of
// the final text.
func formatStructured(sum *structuredSummary) string {
	var parts []string

	score := ""
	if sum.Score != nil {
		score = fmt.Sprintf("%d", *sum.Score)
	}
	parts = append(parts, fmt.Sprintf("总体情绪：%s（情绪分：%s）", sum.OverallSentiment, score))

	if len(sum.Reasons) > 0 {
		reasons := sum.Reasons[:minInt(len(sum.Reasons), 3)]
		parts = append(parts, "理由：\n- "+strings.Join(reasons, "\n- "))
	}
	if p := sum.Proportions; p != nil {
		parts = append(parts, fmt.Sprintf("占比解读：正面%s / 中性%s / 负面%s", p.Positive, p.Neutral, p.Negative))
	}
	if block := formatHorizonPoints(sum.Catalysts); block != "" {
		parts = append(parts, "催化：\n"+block)
	}
	if block := formatHorizonPoints(sum.Risks); block != "" {
		parts = append(parts, "风险：\n"+block)
	}
	if len(sum.PolicyPoints) > 0 {
		parts = append(parts, "政策/监管要点：\n- "+strings.Join(sum.PolicyPoints, "\n- "))
	}
	if sum.OneLiner != "" {
		parts = append(parts, "一句话："+sum.OneLiner)
	}
	return strings.Join(parts, "\n")
}

func formatHorizonPoints(points []horizonPoint) string {
	var lines []string
	for _, p := range points {
		if strings.TrimSpace(p.Point) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s（%s期）", p.Point, p.Horizon))
	}
	return strings.Join(lines, "\n")
}

// pickEvidence selects the strongest citations, skipping aggregator hosts.
func pickEvidence(selected []*workItem) []models.NewsEvidence {
	var candidates []*workItem
	for _, w := range selected {
		if badEvidenceURL(w.item.URL) {
			continue
		}
		candidates = append(candidates, w)
	}
	// Priority first, then impact, then recency.
	sort.SliceStable(candidates, func(i, j int) bool {
		return evidenceLess(candidates[i], candidates[j])
	})

	out := make([]models.NewsEvidence, 0, minInt(len(candidates), evidenceCap))
	for _, w := range candidates[:minInt(len(candidates), evidenceCap)] {
		out = append(out, models.NewsEvidence{
			Title:       w.item.Title,
			URL:         w.item.FirstURL(),
			Source:      w.item.BestSource(),
			Sentiment:   w.item.Sentiment,
			Impact:      w.item.Impact,
			PublishedAt: w.item.PublishedAt,
		})
	}
	return out
}

func evidenceLess(a, b *workItem) bool {
	if a.item.Priority != b.item.Priority {
		return a.item.Priority
	}
	if a.item.Impact != b.item.Impact {
		return a.item.Impact > b.item.Impact
	}
	return a.ts.After(b.ts)
}

func badEvidenceURL(u string) bool {
	ul := strings.ToLower(u)
	for _, h := range evidenceBadHosts {
		if strings.Contains(ul, h) {
			return true
		}
	}
	return false
}

func formatEvidence(evidence []models.NewsEvidence) string {
	if len(evidence) == 0 {
		return ""
	}
	lines := make([]string, 0, len(evidence))
	for _, ev := range evidence {
		lines = append(lines, fmt.Sprintf("- %s: %s\n  %s", ev.Source, ev.Title, ev.URL))
	}
	return "\n【结论依据（示例）】\n" + strings.Join(lines, "\n")
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
