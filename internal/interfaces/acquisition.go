package interfaces

import (
	"context"
	"time"

	"github.com/lunahan/aestimo/internal/models"
)

// Tool names the acquisition groups report under; these are also the
// artifact names of the persisted tool results.
const (
	ToolFundamental = "fundamental_data"
	ToolTechnical   = "tech_data"
	ToolFund        = "fund_data"
	ToolNews        = "news_data"
)

// AcquisitionService fans each analysis group out over its interface set,
// summarizes every returned table, and assembles one ToolResult per group.
// Group calls never fail outright: single-interface errors become
// status=error entries and the group proceeds with what succeeded. The
// error return covers only total loss (no provider pinned at startup).
type AcquisitionService interface {
	// FetchFundamental acquires statements, valuation, dividends, forecasts
	// and the company overview for the two-year window ending at end.
	FetchFundamental(ctx context.Context, stockCode string, end time.Time) (*models.ToolResult, error)

	// FetchTechnical acquires bars (daily/weekly/monthly), factor
	// indicators, valuation and the limit-up history.
	FetchTechnical(ctx context.Context, stockCode string, end time.Time) (*models.ToolResult, error)

	// FetchFund acquires holder structure and money-flow interfaces.
	FetchFund(ctx context.Context, stockCode string, end time.Time) (*models.ToolResult, error)

	// FetchNews acquires the three vendor news feeds over the trailing
	// days; the crawler-based combined summary is attached by the caller.
	FetchNews(ctx context.Context, stockCode string, end time.Time, days int) (*models.ToolResult, error)
}
