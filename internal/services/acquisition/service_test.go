package acquisition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
	"github.com/lunahan/aestimo/internal/services/summarizer"
)

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}

// fakeMarket serves canned tables keyed by interface name.
type fakeMarket struct {
	tables map[string]*models.Table
	errs   map[string]error
}

func (m *fakeMarket) get(name string) (*models.Table, error) {
	if err, ok := m.errs[name]; ok {
		return nil, err
	}
	if t, ok := m.tables[name]; ok {
		return t, nil
	}
	return models.NewTable(), nil
}

func (m *fakeMarket) Name() string                  { return "fake" }
func (m *fakeMarket) Probe(_ context.Context) error { return nil }

func (m *fakeMarket) FinaIndicator(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("fina_indicator")
}
func (m *fakeMarket) DailyBasic(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("daily_basic")
}
func (m *fakeMarket) Dividend(_ context.Context, _ string) (*models.Table, error) {
	return m.get("dividend")
}
func (m *fakeMarket) Income(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("income")
}
func (m *fakeMarket) Balance(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("balance")
}
func (m *fakeMarket) Cashflow(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("cashflow")
}
func (m *fakeMarket) Forecast(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("forecast")
}
func (m *fakeMarket) Mainbz(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("mainbz")
}
func (m *fakeMarket) Top10Holders(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("top10_holders")
}
func (m *fakeMarket) Top10FloatHolders(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("top10_floatholders")
}
func (m *fakeMarket) StkHolderNumber(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("stk_holdernumber")
}
func (m *fakeMarket) MoneyflowThs(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("moneyflow_ths")
}
func (m *fakeMarket) MoneyflowCntThs(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("moneyflow_cnt_ths")
}
func (m *fakeMarket) MoneyflowIndThs(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("moneyflow_ind_ths")
}
func (m *fakeMarket) MoneyflowMktDc(_ context.Context, _ time.Time) (*models.Table, error) {
	return m.get("moneyflow_mkt_dc")
}
func (m *fakeMarket) MoneyflowIndDc(_ context.Context, _ string, _ time.Time, _ string) (*models.Table, error) {
	return m.get("moneyflow_ind_dc")
}
func (m *fakeMarket) TopList(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("top_list")
}
func (m *fakeMarket) TopInst(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("top_inst")
}
func (m *fakeMarket) MoneyflowHsgt(_ context.Context, _ time.Time) (*models.Table, error) {
	return m.get("moneyflow_hsgt")
}
func (m *fakeMarket) CyqPerf(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("cyq_perf")
}
func (m *fakeMarket) ProBar(_ context.Context, _ string, _ time.Time, freq string) (*models.Table, error) {
	return m.get("pro_bar_" + freq)
}
func (m *fakeMarket) StkFactor(_ context.Context, _ string, _ time.Time) (*models.Table, error) {
	return m.get("stk_factor")
}
func (m *fakeMarket) LimitList(_ context.Context, _ string) (*models.Table, error) {
	return m.get("limit_list")
}
func (m *fakeMarket) StockBasic(_ context.Context, _ string) (*models.Table, error) {
	return m.get("stock_basic")
}
func (m *fakeMarket) StockCompany(_ context.Context, _ string) (*models.Table, error) {
	return m.get("stock_company")
}
func (m *fakeMarket) TradeCal(_ context.Context, _, _ time.Time) (*models.Table, error) {
	return m.get("trade_cal")
}

// fakeNews serves canned feed tables.
type fakeNews struct {
	flash, major, cctv *models.Table
	errs               map[string]error
}

func (n *fakeNews) Name() string                  { return "fake-news" }
func (n *fakeNews) Probe(_ context.Context) error { return nil }

func (n *fakeNews) feed(name string, t *models.Table) (*models.Table, error) {
	if err, ok := n.errs[name]; ok {
		return nil, err
	}
	if t == nil {
		return models.NewTable(), nil
	}
	return t, nil
}

func (n *fakeNews) FlashNews(_ context.Context, _, _ time.Time) (*models.Table, error) {
	return n.feed("news", n.flash)
}
func (n *fakeNews) MajorNews(_ context.Context, _, _ time.Time) (*models.Table, error) {
	return n.feed("major_news", n.major)
}
func (n *fakeNews) CCTVNews(_ context.Context, _, _ time.Time) (*models.Table, error) {
	return n.feed("cctv_news", n.cctv)
}

// fakeRegistry pins the fakes directly.
type fakeRegistry struct {
	market    interfaces.MarketDataProvider
	news      interfaces.NewsProvider
	marketErr error
	newsErr   error
}

func (r *fakeRegistry) Initialize(_ context.Context) error { return nil }
func (r *fakeRegistry) Market() (interfaces.MarketDataProvider, error) {
	return r.market, r.marketErr
}
func (r *fakeRegistry) News() (interfaces.NewsProvider, error) {
	return r.news, r.newsErr
}

// fakeSummarizer records calls and answers with deterministic text.
type fakeSummarizer struct {
	mu          sync.Mutex
	tableText   string
	corpusItems map[string][]string
	kinds       map[string]interfaces.SummaryKind
	ratios      map[string]float64
}

func newFakeSummarizer(tableText string) *fakeSummarizer {
	return &fakeSummarizer{
		tableText:   tableText,
		corpusItems: make(map[string][]string),
		kinds:       make(map[string]interfaces.SummaryKind),
		ratios:      make(map[string]float64),
	}
}

func (f *fakeSummarizer) SelectColumns(_ context.Context, _ string, columns []string) []string {
	return columns
}

func (f *fakeSummarizer) SummarizeTable(_ context.Context, objective string, _ *models.Table, kind interfaces.SummaryKind) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds[objective] = kind
	return f.tableText
}

func (f *fakeSummarizer) SummarizeCorpus(_ context.Context, objective string, items []string, ratio float64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.corpusItems[objective] = items
	f.ratios[objective] = ratio
	if len(items) == 0 {
		return summarizer.NoNewsData
	}
	return fmt.Sprintf("%s摘要(%d条)", objective, len(items))
}

// fakeStore records tool-result saves.
type fakeStore struct {
	mu     sync.Mutex
	saves  map[string]interface{}
	period string
	date   string
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saves: make(map[string]interface{})}
}

func (f *fakeStore) SaveToolResult(_, date, name, period string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saves[name] = data
	f.period = period
	f.date = date
	return nil
}

func (f *fakeStore) SaveReport(_, _, name, _, _ string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves[name] = data
	return nil
}

func (f *fakeStore) LoadToolResult(_, _, _ string) (*models.ToolEnvelope, error) {
	return nil, models.Errorf(models.ErrNotFound, "test", "not found")
}
func (f *fakeStore) LoadReport(_, _, _ string) (*models.ReportEnvelope, error) {
	return nil, models.Errorf(models.ErrNotFound, "test", "not found")
}
func (f *fakeStore) BuildRunSummary(_, _ string, _ *models.SupervisorReport, _ map[string]time.Duration) *models.RunSummary {
	return nil
}
func (f *fakeStore) List(_, _ string) ([]string, error) { return nil, nil }
func (f *fakeStore) Dir(_, _ string) string             { return "" }

// fakeCatalog answers overview lookups.
type fakeCatalog struct {
	overview []string
}

func (c *fakeCatalog) StockName(code string) string { return code }
func (c *fakeCatalog) Basic(_ string) (models.StockBasic, bool) {
	return models.StockBasic{}, false
}
func (c *fakeCatalog) Company(_ string) (models.CompanyProfile, bool) {
	return models.CompanyProfile{}, false
}
func (c *fakeCatalog) OverviewLines(_ string) []string   { return c.overview }
func (c *fakeCatalog) Bootstrap(_ context.Context) error { return nil }
func (c *fakeCatalog) Count() int                        { return 0 }
func (c *fakeCatalog) Close() error                      { return nil }

func rowsTable(columns []string, rows ...[]models.Cell) *models.Table {
	t := models.NewTable(columns...)
	for _, row := range rows {
		t.AppendRow(row...)
	}
	return t
}

func newTestService(market *fakeMarket, news *fakeNews, sum *fakeSummarizer, store *fakeStore, catalog *fakeCatalog) *Service {
	reg := &fakeRegistry{market: market, news: news}
	if catalog == nil {
		catalog = &fakeCatalog{}
	}
	return NewService(reg, sum, store, catalog, testLogger())
}

func analysisEnd(t *testing.T) time.Time {
	t.Helper()
	end, err := time.Parse("20060102", "20250826")
	require.NoError(t, err)
	return end
}

func TestFetchFundamental_OrderStatusesAndOverview(t *testing.T) {
	market := &fakeMarket{
		tables: map[string]*models.Table{
			"fina_indicator": rowsTable([]string{"end_date", "roe"},
				[]models.Cell{models.String("20250630"), models.Float(12.5)}),
		},
		errs: map[string]error{"forecast": errors.New("http 500")},
	}
	sum := newFakeSummarizer("盈利能力稳定。")
	store := newFakeStore()
	svc := newTestService(market, nil, sum, store, &fakeCatalog{overview: []string{"公司概况一段。"}})

	result, err := svc.FetchFundamental(context.Background(), "000001.SZ", analysisEnd(t))
	require.NoError(t, err)

	wantOrder := []string{"fina_indicator", "daily_basic", "dividend", "income", "balance", "cashflow", "forecast", "mainbz"}
	assert.Equal(t, wantOrder, result.Interfaces.Names())

	assert.Equal(t, models.AnalysisTypeFundamental, result.AnalysisType)
	assert.Equal(t, []string{"公司概况一段。"}, result.CompanyOverview)
	assert.Equal(t, 8, result.Summary.TotalInterfaces)
	assert.Equal(t, 7, result.Summary.SuccessfulInterfaces)
	assert.Equal(t, 1, result.Summary.ErrorInterfaces)

	fina, ok := result.Interfaces.Get("fina_indicator")
	require.True(t, ok)
	assert.Equal(t, "【盈利能力与财务指标】\n盈利能力稳定。", fina.Result)
	assert.Equal(t, models.StatusSuccess, fina.Status)
	assert.Len(t, fina.Raw, 1)

	forecast, ok := result.Interfaces.Get("forecast")
	require.True(t, ok)
	assert.Equal(t, "【未来业绩预期】: 数据获取失败 - http 500", forecast.Result)
	assert.Equal(t, models.StatusError, forecast.Status)
	assert.Empty(t, forecast.Raw)

	income, ok := result.Interfaces.Get("income")
	require.True(t, ok)
	assert.Equal(t, "【营业收入与利润构成】: 在20230826到20250826之间营业收入与利润构成数据为空", income.Result)
	assert.Equal(t, models.StatusSuccess, income.Status)

	saved, ok := store.saves[interfaces.ToolFundamental]
	require.True(t, ok)
	assert.Same(t, result, saved)
	assert.Equal(t, "20250826", store.date)
	assert.Equal(t, "2023-08-26 至 2025-08-26", store.period)
}

func TestFetchFund_DelayNotesOnEmptyWindows(t *testing.T) {
	market := &fakeMarket{}
	sum := newFakeSummarizer("资金面平稳。")
	store := newFakeStore()
	svc := newTestService(market, nil, sum, store, nil)

	result, err := svc.FetchFund(context.Background(), "000001.SZ", analysisEnd(t))
	require.NoError(t, err)
	assert.Equal(t, 12, result.Summary.TotalInterfaces)
	assert.Equal(t, 12, result.Summary.SuccessfulInterfaces)

	cnt, ok := result.Interfaces.Get("moneyflow_cnt_ths")
	require.True(t, ok)
	assert.Equal(t,
		"【板块主力动向】: 在20230826到20250826之间板块主力动向数据为空。板块主力动向数据通常有1-2天延迟，建议查询前一个交易日的数据。",
		cnt.Result)

	hsgt, ok := result.Interfaces.Get("moneyflow_hsgt")
	require.True(t, ok)
	assert.Equal(t,
		"【北向资金】: 在20230826到20250826之间北向资金数据为空。北向资金数据通常有1天延迟，建议查询前一个交易日的数据。",
		hsgt.Result)
}

func TestFetchTechnical_UsesTechnicalPrompts(t *testing.T) {
	market := &fakeMarket{
		tables: map[string]*models.Table{
			"pro_bar_D": rowsTable([]string{"trade_date", "close"},
				[]models.Cell{models.String("20250825"), models.Float(11.2)}),
			"stk_factor": rowsTable([]string{"trade_date", "macd_dif"},
				[]models.Cell{models.String("20250825"), models.Float(0.12)}),
		},
	}
	sum := newFakeSummarizer("短线走势偏强。")
	store := newFakeStore()
	svc := newTestService(market, nil, sum, store, nil)

	result, err := svc.FetchTechnical(context.Background(), "000001.SZ", analysisEnd(t))
	require.NoError(t, err)

	wantOrder := []string{"pro_bar_D", "pro_bar_W", "pro_bar_M", "stk_factor", "daily_basic", "limit_list"}
	assert.Equal(t, wantOrder, result.Interfaces.Names())
	assert.Equal(t, models.AnalysisTypeTechnical, result.AnalysisType)
	assert.Empty(t, result.CompanyOverview)

	assert.Equal(t, interfaces.SummaryTechnical, sum.kinds["短期（日线K线与均线走势）"])
	assert.Equal(t, interfaces.SummaryTechnical, sum.kinds["技术指标（MACD/RSI/KDJ等）"])
}

func TestProcessMarket_NoRelevantColumns(t *testing.T) {
	market := &fakeMarket{
		tables: map[string]*models.Table{
			"dividend": rowsTable([]string{"a"}, []models.Cell{models.Int(1)}),
		},
	}
	sum := newFakeSummarizer(summarizer.NoRelevantColumns)
	store := newFakeStore()
	svc := newTestService(market, nil, sum, store, nil)

	result, err := svc.FetchFundamental(context.Background(), "000001.SZ", analysisEnd(t))
	require.NoError(t, err)

	dividend, ok := result.Interfaces.Get("dividend")
	require.True(t, ok)
	assert.Equal(t, "【股东分红回报】: 未找到相关数据列。", dividend.Result)
	assert.Equal(t, models.StatusSuccess, dividend.Status)
}

func TestFetchNews_CombinedSummaryAndOrdering(t *testing.T) {
	flash := rowsTable(
		[]string{"datetime", "src", "title", "content"},
		[]models.Cell{models.String("2025-08-24 09:30:00"), models.String("cls"), models.String("旧闻"), models.String("较早的内容")},
		[]models.Cell{models.String("2025-08-25 10:00:00"), models.String("cls"), models.String("新闻A"), models.String("最新的内容")},
	)
	news := &fakeNews{
		flash: flash,
		errs:  map[string]error{"cctv_news": errors.New("feed down")},
	}
	sum := newFakeSummarizer("摘要")
	store := newFakeStore()
	svc := newTestService(&fakeMarket{}, news, sum, store, nil)

	result, err := svc.FetchNews(context.Background(), "000001.SZ", analysisEnd(t), 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"news", "major_news", "cctv_news"}, result.Interfaces.Names())
	assert.Equal(t, models.AnalysisTypeNews, result.AnalysisType)

	// Only the feed that carried rows contributes to the combined summary.
	assert.Equal(t, "【快讯新闻分析】\n快讯新闻分析摘要(2条)", result.CombinedSummary)

	major, ok := result.Interfaces.Get("major_news")
	require.True(t, ok)
	assert.Equal(t, "【重要新闻分析】: 在20250823到20250826之间重要新闻分析数据为空", major.Result)
	assert.Equal(t, models.StatusSuccess, major.Status)

	cctv, ok := result.Interfaces.Get("cctv_news")
	require.True(t, ok)
	assert.Equal(t, "【央视新闻分析】: 数据获取失败 - feed down", cctv.Result)
	assert.Equal(t, models.StatusError, cctv.Status)

	// Rows render newest-first with the 【time | source】 header.
	items := sum.corpusItems["快讯新闻分析"]
	require.Len(t, items, 2)
	assert.Equal(t, "【2025-08-25 10:00:00 | cls】新闻A\n最新的内容", items[0])
	assert.Equal(t, "【2025-08-24 09:30:00 | cls】旧闻\n较早的内容", items[1])
	assert.Equal(t, 0.55, sum.ratios["快讯新闻分析"])

	_, saved := store.saves[interfaces.ToolNews]
	assert.True(t, saved)
}

func TestFetchNews_AllFeedsEmpty(t *testing.T) {
	sum := newFakeSummarizer("摘要")
	store := newFakeStore()
	svc := newTestService(&fakeMarket{}, &fakeNews{}, sum, store, nil)

	result, err := svc.FetchNews(context.Background(), "000001.SZ", analysisEnd(t), 0)
	require.NoError(t, err)
	assert.Equal(t, NoCombinedSummary, result.CombinedSummary)
	assert.Equal(t, 3, result.Summary.SuccessfulInterfaces)
}

func TestFetchGroups_ProviderUnavailable(t *testing.T) {
	reg := &fakeRegistry{
		marketErr: models.Errorf(models.ErrProviderUnavailable, "registry.market", "no provider pinned"),
		newsErr:   models.Errorf(models.ErrProviderUnavailable, "registry.news", "no provider pinned"),
	}
	svc := NewService(reg, newFakeSummarizer(""), newFakeStore(), &fakeCatalog{}, testLogger())

	_, err := svc.FetchFundamental(context.Background(), "000001.SZ", analysisEnd(t))
	assert.True(t, models.IsKind(err, models.ErrProviderUnavailable))

	_, err = svc.FetchNews(context.Background(), "000001.SZ", analysisEnd(t), 3)
	assert.True(t, models.IsKind(err, models.ErrProviderUnavailable))
}
