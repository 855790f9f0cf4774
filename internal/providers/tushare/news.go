package tushare

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/models"
)

// newsTimeLayout is the datetime format the news endpoints expect.
const newsTimeLayout = "2006-01-02 15:04:05"

// FlashSources are the flash-news feeds the vendor aggregates. The first
// entry (财联社) is the default feed and the probe target.
var FlashSources = []string{
	"cls", "sina", "wallstreetcn", "10jqka", "eastmoney",
	"yuncaijing", "fenghuang", "jinrongjie", "yicai",
}

// NewsProvider serves the three vendor news feeds over the same wire
// client as the market data.
type NewsProvider struct {
	client *Client
	logger arbor.ILogger
}

// NewNewsProvider creates the news adapter.
func NewNewsProvider(client *Client, logger arbor.ILogger) *NewsProvider {
	return &NewsProvider{client: client, logger: logger}
}

// Name returns the provider name.
func (p *NewsProvider) Name() string { return "tushare-news" }

// Probe checks the flash feed over the most recent day. An empty result is
// acceptable here: quiet days happen, only transport failures disqualify
// the feed.
func (p *NewsProvider) Probe(ctx context.Context) error {
	end := time.Now()
	_, err := p.FlashNews(ctx, end.AddDate(0, 0, -1), end)
	return err
}

// FlashNews fetches the default flash feed between start and end.
func (p *NewsProvider) FlashNews(ctx context.Context, start, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "news", map[string]string{
		"src":        FlashSources[0],
		"start_date": start.Format(newsTimeLayout),
		"end_date":   end.Format(newsTimeLayout),
	})
}

// MajorNews fetches long-form headline news between start and end.
func (p *NewsProvider) MajorNews(ctx context.Context, start, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "major_news", map[string]string{
		"start_date": start.Format(newsTimeLayout),
		"end_date":   end.Format(newsTimeLayout),
	})
}

// CCTVNews fetches the national broadcast transcript day by day over
// [start, end] and stitches the days into one table. The endpoint is
// single-date-keyed upstream.
func (p *NewsProvider) CCTVNews(ctx context.Context, start, end time.Time) (*models.Table, error) {
	var merged *models.Table
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		table, err := p.client.Call(ctx, "cctv_news", map[string]string{
			"date": day.Format(common.DateCompact),
		})
		if err != nil {
			return nil, err
		}
		if merged == nil {
			merged = table
			continue
		}
		if table.IsEmpty() {
			continue
		}
		if merged.IsEmpty() {
			merged = table
			continue
		}
		for _, row := range table.Rows {
			merged.Rows = append(merged.Rows, row)
		}
	}
	if merged == nil {
		merged = models.NewTable()
	}
	return merged, nil
}
