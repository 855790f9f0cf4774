package interfaces

import (
	"context"
	"time"

	"github.com/lunahan/aestimo/internal/models"
)

// Bar frequencies accepted by ProBar.
const (
	BarFreqDaily   = "D"
	BarFreqWeekly  = "W"
	BarFreqMonthly = "M"
)

// Moneyflow board content types accepted by MoneyflowIndDc.
const (
	MoneyflowContentIndustry = "行业"
	MoneyflowContentConcept  = "概念"
	MoneyflowContentRegion   = "地域"
)

// FundamentalSource exposes the statement and valuation interfaces the
// fundamental group acquires. Fetchers derive their own lookback from end:
// two years for windowed interfaces, none for Dividend, end-only for
// Forecast. A nil-free empty table is a valid "no data in window" answer.
type FundamentalSource interface {
	FinaIndicator(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	DailyBasic(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	Dividend(ctx context.Context, stockCode string) (*models.Table, error)
	Income(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	Balance(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	Cashflow(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	Forecast(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	Mainbz(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
}

// FundFlowSource exposes holder structure and money flow interfaces. The
// one-year-window fetchers filter locally when the vendor cannot; the
// trade-date fetchers walk back up to five days when the requested day is
// empty. MoneyflowMktDc and MoneyflowHsgt are market-wide and take no code.
type FundFlowSource interface {
	Top10Holders(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	Top10FloatHolders(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	StkHolderNumber(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	MoneyflowThs(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	MoneyflowCntThs(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	MoneyflowIndThs(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	MoneyflowMktDc(ctx context.Context, end time.Time) (*models.Table, error)
	MoneyflowIndDc(ctx context.Context, stockCode string, end time.Time, contentType string) (*models.Table, error)
	TopList(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	TopInst(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	MoneyflowHsgt(ctx context.Context, end time.Time) (*models.Table, error)
	CyqPerf(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
}

// TechnicalSource exposes bar, factor and limit interfaces. ProBar spans
// five years and appends moving averages (5/10/20/60); LimitList returns
// the full history.
type TechnicalSource interface {
	ProBar(ctx context.Context, stockCode string, end time.Time, freq string) (*models.Table, error)
	StkFactor(ctx context.Context, stockCode string, end time.Time) (*models.Table, error)
	LimitList(ctx context.Context, stockCode string) (*models.Table, error)
}

// CatalogSource exposes the static reference interfaces cached at startup.
// StockBasic with an empty code lists the whole market.
type CatalogSource interface {
	StockBasic(ctx context.Context, stockCode string) (*models.Table, error)
	StockCompany(ctx context.Context, stockCode string) (*models.Table, error)
	TradeCal(ctx context.Context, start, end time.Time) (*models.Table, error)
}

// MarketDataProvider is one vendor adapter in the failover chain. Probe
// must be cheap enough to run at startup; a provider that fails its probe
// is skipped for the life of the process.
type MarketDataProvider interface {
	Name() string
	Probe(ctx context.Context) error

	FundamentalSource
	FundFlowSource
	TechnicalSource
	CatalogSource
}

// NewsProvider serves the three feed interfaces of the news group. Probe
// checks the flash feed over the most recent day.
type NewsProvider interface {
	Name() string
	Probe(ctx context.Context) error
	FlashNews(ctx context.Context, start, end time.Time) (*models.Table, error)
	MajorNews(ctx context.Context, start, end time.Time) (*models.Table, error)
	CCTVNews(ctx context.Context, start, end time.Time) (*models.Table, error)
}

// ProviderRegistry probes the configured vendors in order and pins the
// first market-data and news providers that answer. Market and News return
// a typed error when no vendor of that kind survived initialization.
type ProviderRegistry interface {
	// Initialize probes all configured providers and pins the winners.
	Initialize(ctx context.Context) error

	// Market returns the pinned market-data provider.
	Market() (MarketDataProvider, error)

	// News returns the pinned news provider.
	News() (NewsProvider, error)
}
