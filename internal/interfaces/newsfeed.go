package interfaces

import (
	"context"
	"time"

	"github.com/lunahan/aestimo/internal/models"
)

// NewsAnalysis is the outcome of one web-news enrichment run: the final
// narrative text (always present, falling back to the empty-window or
// error sentence) plus the selected items and their citations.
type NewsAnalysis struct {
	Text     string
	Items    []models.NewsItem
	Evidence []models.NewsEvidence
	Counts   NewsSentimentCounts
}

// NewsSentimentCounts tallies the selected items by sentiment label.
type NewsSentimentCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// NewsfeedService runs the layered web-news crawl (company, industry,
// macro), enriches and scores the hits, and composes the cited summary
// that feeds the news and sentiment analysts. Failures never propagate:
// the outermost boundary catches everything and returns the explanatory
// sentence in Text with empty Items.
type NewsfeedService interface {
	Analyze(ctx context.Context, stockCode, stockName, industry string, end time.Time) *NewsAnalysis
}
