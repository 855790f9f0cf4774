package newsfeed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
	"github.com/ternarybob/arbor"
)

// Service crawls layered web news for a stock, scores and deduplicates the
// hits, and composes the cited sentiment narrative. It implements
// interfaces.NewsfeedService.
type Service struct {
	cfg     common.NewsfeedConfig
	loader  *Loader
	fetcher *fetcher
	llm     interfaces.LLMService
	logger  arbor.ILogger
}

var _ interfaces.NewsfeedService = (*Service)(nil)

// NewService creates the news enrichment service. The tuning file at
// cfg.ConfigPath is optional; defaults apply until it appears.
func NewService(cfg common.NewsfeedConfig, llm interfaces.LLMService, logger arbor.ILogger) *Service {
	timeout := common.ParseDurationOr(cfg.RequestTimeout, 12*time.Second)
	return &Service{
		cfg:     cfg,
		loader:  NewLoader(cfg.ConfigPath, logger),
		fetcher: newFetcher(timeout, cfg.UserAgent, cfg.Render, logger),
		llm:     llm,
		logger:  logger,
	}
}

// Analyze runs the full crawl-score-summarize pass. It never returns an
// error: any failure surfaces as the explanatory sentence in Text so the
// pipeline's news node always has something to hand the analysts.
func (s *Service) Analyze(ctx context.Context, stockCode, stockName, industry string, end time.Time) (out *interfaces.NewsAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("stock_code", stockCode).Msgf("News analysis panicked: %v", r)
			out = &interfaces.NewsAnalysis{
				Text: fmt.Sprintf("【新闻分析】: 分析过程中出错 - %v", r),
			}
		}
	}()

	t := s.loader.Snapshot()
	windowDays := t.WindowDays
	if windowDays <= 0 {
		windowDays = s.cfg.WindowDays
	}
	topk := t.TopK
	if topk <= 0 {
		topk = s.cfg.TopK
	}

	jobs := s.buildSearchJobs(ctx, t, stockCode, stockName, industry)
	s.logger.Info().
		Str("stock_code", stockCode).
		Int("queries", len(jobs)).
		Msg("Starting news crawl")

	hits := s.runSearches(ctx, jobs)
	items := s.collectArticles(ctx, t, hits, end)

	items = dedupeEvents(items)
	cutoff := end.In(common.BeijingZone).AddDate(0, 0, -windowDays)
	orderItems(items, cutoff)
	selected := selectWindow(items, cutoff, topk)

	if len(selected) == 0 {
		desc := stockCode
		if stockName != "" {
			desc += "(" + stockName + ")"
		}
		return &interfaces.NewsAnalysis{
			Text: fmt.Sprintf("【新闻分析】: 近%d天内未抓到与 %s 相关的新闻摘要", windowDays, desc),
		}
	}

	s.annotateItems(ctx, selected)
	parts := buildCorpus(selected)

	startStr := cutoff.Format(publishedLayout)
	endStr := end.In(common.BeijingZone).Format(publishedLayout)

	finalItems := make([]models.NewsItem, 0, len(selected))
	for _, w := range selected {
		finalItems = append(finalItems, w.item)
	}

	detail := fmt.Sprintf("\n\n【可溯源明细(Top%d)】\n", topk) + strings.Join(parts.DetailLines, "\n")

	structured := s.summarizeCorpus(ctx, parts.Corpus, parts.StatLine, startStr, endStr)
	if structured == nil {
		summary := s.summarizeCorpusPlain(ctx, parts.Corpus, parts.StatLine, startStr, endStr)
		return &interfaces.NewsAnalysis{
			Text:   "【新闻分析】\n" + summary + detail,
			Items:  finalItems,
			Counts: parts.Counts,
		}
	}

	evidence := pickEvidence(selected)
	text := "【新闻分析】\n" + formatStructured(structured) + formatEvidence(evidence) + detail
	return &interfaces.NewsAnalysis{
		Text:     text,
		Items:    finalItems,
		Evidence: evidence,
		Counts:   parts.Counts,
	}
}

// runSearches fetches the search result pages with bounded concurrency and
// parses them into hits, preserving the layered job order.
func (s *Service) runSearches(ctx context.Context, jobs []searchJob) []searchHitWithLayer {
	perJob := make([][]searchHit, len(jobs))
	sem := make(chan struct{}, fetchConcurrency)
	var wg sync.WaitGroup

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job searchJob) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			md, err := s.fetcher.Markdown(ctx, job.URL)
			if err != nil {
				s.logger.Warn().Err(err).Str("url", job.URL).Msg("Search page fetch failed")
				return
			}
			perJob[i] = parseSearchMarkdown(md)
		}(i, job)
	}
	wg.Wait()

	var out []searchHitWithLayer
	for i, hits := range perJob {
		for _, h := range hits {
			out = append(out, searchHitWithLayer{searchHit: h, Layer: jobs[i].Layer})
		}
	}
	return out
}

type searchHitWithLayer struct {
	searchHit
	Layer string
}

// collectArticles deduplicates hit URLs, fetches each article with bounded
// concurrency and assembles scored work items. Publish time priority is
// page metadata, visible date, URL date, then relative phrasing from the
// search snippet anchored to the window end.
func (s *Service) collectArticles(ctx context.Context, t *Tuning, hits []searchHitWithLayer, end time.Time) []*workItem {
	seen := make(map[string]bool)
	var unique []searchHitWithLayer
	for _, h := range hits {
		u := normalizeArticleURL(h.URL)
		if !isValidArticleURL(u) || seen[u] {
			continue
		}
		seen[u] = true
		h.URL = u
		unique = append(unique, h)
	}

	items := make([]*workItem, len(unique))
	sem := make(chan struct{}, fetchConcurrency)
	var wg sync.WaitGroup

	for i, h := range unique {
		wg.Add(1)
		go func(i int, h searchHitWithLayer) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			page := s.fetcher.fetchArticle(ctx, h.URL)

			it := models.NewsItem{
				Title:       h.Title,
				Snippet:     h.Snippet,
				URL:         h.URL,
				Source:      h.SourceRaw,
				Level:       h.Layer,
				PublishedAt: page.PublishedAt,
				PageText:    page.PageText,
			}
			if it.PublishedAt == "" {
				if ts, ok := relativeTime(h.Snippet+" "+h.Title, end); ok {
					it.PublishedAt = formatPublished(ts)
				}
			}
			it.SourceNorm = normalizeSourceName(t, it.Source, it.URL)

			w := &workItem{item: it}
			if ts, ok := parseAnyTime(it.PublishedAt); ok {
				w.ts = ts
				w.hasTS = true
			}
			enrich(t, w)
			items[i] = w
		}(i, h)
	}
	wg.Wait()

	out := make([]*workItem, 0, len(items))
	for _, w := range items {
		if w != nil {
			out = append(out, w)
		}
	}
	return out
}
