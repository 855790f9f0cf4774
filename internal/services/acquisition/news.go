package acquisition

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

// DefaultNewsDays is the trailing window for the vendor news feeds.
const DefaultNewsDays = 3

// NoCombinedSummary is the combined-summary fallback when no feed produced
// usable content. The pipeline's news node replaces it with the crawler
// summary rather than appending to it.
const NoCombinedSummary = "暂无新闻摘要"

// combinedJoin separates the per-feed summaries inside the combined text.
const combinedJoin = "\n\n====\n\n"

// newsTimeColumns are the row-timestamp candidates, in priority order.
var newsTimeColumns = []string{"datetime", "pub_time", "published_at", "date"}

var (
	newsTitleColumns   = []string{"title", "t"}
	newsContentColumns = []string{"content", "snippet", "summary", "desc"}
	newsSourceColumns  = []string{"src", "source"}
)

// FetchNews acquires the three vendor feeds over the trailing days,
// batches each corpus through the summarizer, and composes the combined
// summary consumed by the sentiment and supervisor stages.
func (s *Service) FetchNews(ctx context.Context, stockCode string, end time.Time, days int) (*models.ToolResult, error) {
	provider, err := s.registry.News()
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultNewsDays
	}
	start := end.AddDate(0, 0, -days)

	specs := newsSpecs()
	results := make([]models.InterfaceResult, len(specs))
	withData := make([]bool, len(specs))

	workers := len(specs)
	if workers > 4 {
		workers = 4
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range specs {
		wg.Add(1)
		go func(i int, spec newsSpec) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i], withData[i] = s.processNews(ctx, provider, spec, start, end)
		}(i, specs[i])
	}
	wg.Wait()

	var ifaces models.InterfaceMap
	var parts []string
	for i, spec := range specs {
		ifaces.Set(spec.Name, results[i])
		if withData[i] && results[i].Status == models.StatusSuccess && results[i].Result != "" {
			parts = append(parts, results[i].Result)
		}
	}
	combined := NoCombinedSummary
	if len(parts) > 0 {
		combined = strings.Join(parts, combinedJoin)
	}

	result := &models.ToolResult{
		AnalysisType:    models.AnalysisTypeNews,
		CombinedSummary: combined,
		Interfaces:      ifaces,
		Summary:         ifaces.Counts(),
	}
	s.persist(stockCode, end, interfaces.ToolNews, result)
	return result, nil
}

// processNews fetches one feed, renders its rows newest-first, and batches
// the corpus through the summarizer under the feed's input ratio. The
// second return reports whether the feed carried rows, which gates its
// contribution to the combined summary.
func (s *Service) processNews(ctx context.Context, provider interfaces.NewsProvider, spec newsSpec, start, end time.Time) (models.InterfaceResult, bool) {
	s.logger.Debug().
		Str("feed", spec.Name).
		Str("objective", spec.Objective).
		Msg("Processing news feed")

	table, err := spec.Fetch(ctx, provider, start, end)
	if err != nil {
		s.logger.Warn().Err(err).Str("feed", spec.Name).Msg("News feed fetch failed")
		return s.entry(spec.Objective, fmt.Sprintf("【%s】: %s - %v", spec.Objective, models.MarkerFetchError, err), nil), false
	}

	if table.IsEmpty() {
		summary := fmt.Sprintf("【%s】: 在%s到%s之间%s数据为空",
			spec.Objective, start.Format(common.DateCompact), end.Format(common.DateCompact), spec.Objective)
		return s.entry(spec.Objective, summary, table), false
	}

	items := s.newsItems(ctx, spec.Objective, table)
	text := s.summarizer.SummarizeCorpus(ctx, spec.Objective, items, spec.InputRatio)
	summary := fmt.Sprintf("【%s】\n%s", spec.Objective, text)
	return s.entry(spec.Objective, summary, table), true
}

// newsItems reduces the feed table to one compact text item per row:
// columns narrowed by the selector, rows sorted newest-first by the first
// recognized time column.
func (s *Service) newsItems(ctx context.Context, objective string, table *models.Table) []string {
	use := &models.Table{Columns: table.Columns, Rows: append([][]models.Cell(nil), table.Rows...)}
	if cols := s.summarizer.SelectColumns(ctx, objective, table.Columns); len(cols) > 0 {
		use = use.Select(cols)
	}
	if col, ok := firstColumn(use, newsTimeColumns); ok {
		use.SortByTimeDesc(use.Columns[col])
	}

	items := make([]string, 0, use.Len())
	for row := 0; row < use.Len(); row++ {
		dt := timeText(use, row)
		src := cellText(use, row, newsSourceColumns)
		title := strings.TrimSpace(cellText(use, row, newsTitleColumns))
		content := strings.TrimSpace(cellText(use, row, newsContentColumns))
		piece := strings.TrimSpace(fmt.Sprintf("【%s | %s】%s\n%s", dt, src, title, content))
		if piece != "" {
			items = append(items, piece)
		}
	}
	return items
}

// firstColumn returns the index of the first candidate present in the
// table, matched case-insensitively.
func firstColumn(t *models.Table, candidates []string) (int, bool) {
	for _, name := range candidates {
		if col, ok := t.ColFold(name); ok {
			return col, true
		}
	}
	return 0, false
}

// cellText renders the first matching column's cell for the row.
func cellText(t *models.Table, row int, candidates []string) string {
	col, ok := firstColumn(t, candidates)
	if !ok {
		return ""
	}
	return t.Rows[row][col].Text()
}

// timeText renders the row timestamp: parsed values in the envelope
// format, unparseable strings as-is.
func timeText(t *models.Table, row int) string {
	col, ok := firstColumn(t, newsTimeColumns)
	if !ok {
		return ""
	}
	c := t.Rows[row][col]
	if c.Kind == models.CellString {
		return c.S
	}
	if ts, ok := t.TimeAt(row, col); ok {
		return ts.Format(common.TimestampLayout)
	}
	return c.Text()
}
