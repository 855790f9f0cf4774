// Package summarizer reduces vendor tables and news corpora to bounded
// Chinese narrative summaries through a two-stage LLM flow: column
// selection first, then an objective-specific summary template. Failures
// degrade into marker strings instead of propagating as errors.
package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

// Sentinel summary texts. Callers compare against these to decide how to
// compose the per-interface block.
const (
	// NoData is returned for an empty table.
	NoData = "无可用数据。"

	// NoRelevantColumns is returned when column selection yields nothing.
	NoRelevantColumns = "未找到相关数据列。"

	// NoNewsData is returned for an empty news corpus.
	NoNewsData = "无可用新闻数据。"
)

// fundRowLimit truncates oversized fund-flow tables to their newest rows
// before summarization.
const fundRowLimit = 100

// DefaultContextWindow is assumed when the config does not set one.
const DefaultContextWindow = 65536

// Service implements interfaces.SummarizerService on top of an LLM service.
type Service struct {
	llm           interfaces.LLMService
	logger        arbor.ILogger
	contextWindow int
}

// NewService creates the summarizer. contextWindow is the model context
// size in tokens that drives news batch budgets.
func NewService(llm interfaces.LLMService, contextWindow int, logger arbor.ILogger) *Service {
	if contextWindow <= 0 {
		contextWindow = DefaultContextWindow
	}
	return &Service{
		llm:           llm,
		logger:        logger,
		contextWindow: contextWindow,
	}
}

// SelectColumns asks the model which columns matter for the objective and
// filters the answer against the actual columns to drop hallucinated
// names. Any failure keeps every column.
func (s *Service) SelectColumns(ctx context.Context, objective string, columns []string) []string {
	if len(columns) == 0 {
		return columns
	}

	prompt := fmt.Sprintf(columnSelectorPrompt, objective, renderColumnList(columns))
	response, err := s.llm.Chat(ctx, []interfaces.Message{{Role: "user", Content: prompt}})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("objective", objective).
			Msg("Column selection failed, keeping all columns")
		return columns
	}

	selected, err := parseJSONStringArray(response)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("objective", objective).
			Msg("Column selection returned unparsable answer, keeping all columns")
		return columns
	}

	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	out := make([]string, 0, len(selected))
	for _, c := range selected {
		if known[c] {
			out = append(out, c)
		}
	}
	s.logger.Debug().
		Str("objective", objective).
		Int("selected", len(out)).
		Int("available", len(columns)).
		Msg("Columns selected")
	return out
}

// SummarizeTable runs column selection, renders the kept columns compactly
// and produces a narrative summary under the kind's template. An empty
// table, an empty selection and a failed LLM call each yield their marker
// text rather than an error.
func (s *Service) SummarizeTable(ctx context.Context, objective string, table *models.Table, kind interfaces.SummaryKind) string {
	if table.IsEmpty() {
		return NoData
	}

	selected := s.SelectColumns(ctx, objective, table.Columns)
	if len(selected) == 0 {
		return NoRelevantColumns
	}
	use := table.Select(selected)

	if kind == interfaces.SummaryFund && use.Len() > fundRowLimit {
		use = use.Tail(fundRowLimit)
	}

	var prompt, errPrefix string
	switch kind {
	case interfaces.SummaryTechnical:
		prompt = fmt.Sprintf(techTableAnalyzerPrompt, objective, use.Render())
		errPrefix = "生成报告时出错"
	case interfaces.SummaryFund:
		prompt = fmt.Sprintf(fundTableAnalyzerPrompt, objective, use.Render())
		errPrefix = "生成报告时出错"
	default:
		prompt = fmt.Sprintf(tableSummarizerPrompt, objective, use.Render())
		errPrefix = "生成摘要时出错"
	}

	summary, err := s.llm.Chat(ctx, []interfaces.Message{{Role: "user", Content: prompt}})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("objective", objective).
			Msg("Table summary failed")
		return fmt.Sprintf("%s: %v", errPrefix, err)
	}
	return strings.TrimSpace(summary)
}

// SummarizeCorpus batches pre-rendered news items under the adaptive
// character budget, summarizes each batch with one LLM call and joins the
// batch summaries. inputRatio is the context-window fraction reserved for
// corpus input.
func (s *Service) SummarizeCorpus(ctx context.Context, objective string, items []string, inputRatio float64) string {
	if len(items) == 0 {
		return NoNewsData
	}

	maxChars := batchCharCap(items, s.contextWindow, inputRatio)
	batches := batchByChars(items, maxChars)
	statLine := fmt.Sprintf("样本数:%d 批次数:%d（按长度合并摘要）", len(items), len(batches))
	start, end := corpusTimeRange(items)

	s.logger.Debug().
		Str("objective", objective).
		Int("items", len(items)).
		Int("batches", len(batches)).
		Int("batch_char_cap", maxChars).
		Msg("Summarizing news corpus")

	summaries := make([]string, 0, len(batches))
	for i, corpus := range batches {
		head := fmt.Sprintf("【批次 %d/%d】%s", i+1, len(batches), objective)
		prompt := fmt.Sprintf(newsCorpusPrompt,
			start.Format(common.DateDash), end.Format(common.DateDash), statLine, corpus)
		sub, err := s.llm.Chat(ctx, []interfaces.Message{{Role: "user", Content: prompt}})
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("objective", objective).
				Int("batch", i+1).
				Msg("News batch summary failed")
			sub = fmt.Sprintf("生成新闻语料摘要时出错: %v", err)
		}
		summaries = append(summaries, head+"\n"+strings.TrimSpace(sub))
	}

	return strings.Join(summaries, "\n\n---\n\n")
}

// renderColumnList renders column names the way the prompt example shows
// them, as a bracketed quoted list.
func renderColumnList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// parseJSONStringArray extracts the first JSON array from the response and
// decodes it as a string list. Models often wrap the array in prose or a
// fenced block.
func parseJSONStringArray(response string) ([]string, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}
	var out []string
	if err := json.Unmarshal([]byte(response[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("failed to parse column list: %w", err)
	}
	return out, nil
}

// corpusTimeRange recovers the corpus time span from the item headers
// ("【{dt} | {src}】…"). Items arrive newest-first, so the first parseable
// header is the end and the last one is the start. Unparseable corpora
// fall back to today.
func corpusTimeRange(items []string) (start, end time.Time) {
	now := time.Now()
	start, end = now, now
	if t, ok := itemTime(items[0]); ok {
		end = t
		start = t
	}
	for i := len(items) - 1; i >= 0; i-- {
		if t, ok := itemTime(items[i]); ok {
			start = t
			break
		}
	}
	return start, end
}

func itemTime(item string) (time.Time, bool) {
	if !strings.HasPrefix(item, "【") {
		return time.Time{}, false
	}
	rest := strings.TrimPrefix(item, "【")
	cut := strings.Index(rest, " |")
	if cut < 0 {
		return time.Time{}, false
	}
	raw := strings.TrimSpace(rest[:cut])
	for _, layout := range []string{common.TimestampLayout, "2006-01-02 15:04", common.DateDash} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
