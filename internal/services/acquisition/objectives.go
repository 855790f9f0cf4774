package acquisition

import (
	"context"
	"time"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

// marketSpec declares one data interface of a market-data group: its wire
// name, the Chinese analysis objective handed to the summarizer, the prompt
// family, and the fetch against the pinned provider. EmptyNote is appended
// to the empty-window sentence for interfaces with known vendor delays.
type marketSpec struct {
	Name      string
	Objective string
	Kind      interfaces.SummaryKind
	EmptyNote string
	Fetch     func(ctx context.Context, src interfaces.MarketDataProvider, stockCode string, end time.Time) (*models.Table, error)
}

// newsSpec declares one vendor news feed: the objective, the context-window
// fraction reserved for the corpus, and the fetch over the trailing window.
type newsSpec struct {
	Name       string
	Objective  string
	InputRatio float64
	Fetch      func(ctx context.Context, src interfaces.NewsProvider, start, end time.Time) (*models.Table, error)
}

func fundamentalSpecs() []marketSpec {
	return []marketSpec{
		{
			Name: "fina_indicator", Objective: "盈利能力与财务指标", Kind: interfaces.SummaryInsight,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.FinaIndicator(ctx, code, end)
			},
		},
		{
			Name: "daily_basic", Objective: "每日估值水平", Kind: interfaces.SummaryInsight,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.DailyBasic(ctx, code, end)
			},
		},
		{
			Name: "dividend", Objective: "股东分红回报", Kind: interfaces.SummaryInsight,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, _ time.Time) (*models.Table, error) {
				return src.Dividend(ctx, code)
			},
		},
		{
			Name: "income", Objective: "营业收入与利润构成", Kind: interfaces.SummaryInsight,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.Income(ctx, code, end)
			},
		},
		{
			Name: "balance", Objective: "资产与负债结构", Kind: interfaces.SummaryInsight,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.Balance(ctx, code, end)
			},
		},
		{
			Name: "cashflow", Objective: "现金流量质量", Kind: interfaces.SummaryInsight,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.Cashflow(ctx, code, end)
			},
		},
		{
			Name: "forecast", Objective: "未来业绩预期", Kind: interfaces.SummaryInsight,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.Forecast(ctx, code, end)
			},
		},
		{
			Name: "mainbz", Objective: "主营业务构成", Kind: interfaces.SummaryInsight,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.Mainbz(ctx, code, end)
			},
		},
	}
}

func fundSpecs() []marketSpec {
	return []marketSpec{
		{
			Name: "top10_holders", Objective: "前十大股东持股情况", Kind: interfaces.SummaryFund,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.Top10Holders(ctx, code, end)
			},
		},
		{
			Name: "top10_floatholders", Objective: "前十大流通股东持股情况", Kind: interfaces.SummaryFund,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.Top10FloatHolders(ctx, code, end)
			},
		},
		{
			Name: "stk_holdernumber", Objective: "股东人数", Kind: interfaces.SummaryFund,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.StkHolderNumber(ctx, code, end)
			},
		},
		{
			Name: "moneyflow_ths", Objective: "个股主力动向", Kind: interfaces.SummaryFund,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.MoneyflowThs(ctx, code, end)
			},
		},
		{
			Name: "moneyflow_cnt_ths", Objective: "板块主力动向", Kind: interfaces.SummaryFund,
			EmptyNote: "。板块主力动向数据通常有1-2天延迟，建议查询前一个交易日的数据。",
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.MoneyflowCntThs(ctx, code, end)
			},
		},
		{
			Name: "moneyflow_ind_ths", Objective: "行业主力动向", Kind: interfaces.SummaryFund,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.MoneyflowIndThs(ctx, code, end)
			},
		},
		{
			Name: "moneyflow_mkt_dc", Objective: "大盘资金流向", Kind: interfaces.SummaryFund,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, _ string, end time.Time) (*models.Table, error) {
				return src.MoneyflowMktDc(ctx, end)
			},
		},
		{
			Name: "moneyflow_ind_dc", Objective: "板块资金流向", Kind: interfaces.SummaryFund,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.MoneyflowIndDc(ctx, code, end, interfaces.MoneyflowContentIndustry)
			},
		},
		{
			Name: "top_list", Objective: "龙虎榜每日统计", Kind: interfaces.SummaryFund,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.TopList(ctx, code, end)
			},
		},
		{
			Name: "top_inst", Objective: "龙虎榜机构明细", Kind: interfaces.SummaryFund,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.TopInst(ctx, code, end)
			},
		},
		{
			Name: "moneyflow_hsgt", Objective: "北向资金", Kind: interfaces.SummaryFund,
			EmptyNote: "。北向资金数据通常有1天延迟，建议查询前一个交易日的数据。",
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, _ string, end time.Time) (*models.Table, error) {
				return src.MoneyflowHsgt(ctx, end)
			},
		},
		{
			Name: "cyq_perf", Objective: "每日筹码分布", Kind: interfaces.SummaryFund,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.CyqPerf(ctx, code, end)
			},
		},
	}
}

func technicalSpecs() []marketSpec {
	return []marketSpec{
		{
			Name: "pro_bar_D", Objective: "短期（日线K线与均线走势）", Kind: interfaces.SummaryTechnical,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.ProBar(ctx, code, end, interfaces.BarFreqDaily)
			},
		},
		{
			Name: "pro_bar_W", Objective: "中期（周线K线与均线走势）", Kind: interfaces.SummaryTechnical,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.ProBar(ctx, code, end, interfaces.BarFreqWeekly)
			},
		},
		{
			Name: "pro_bar_M", Objective: "长期（月线K线与均线走势）", Kind: interfaces.SummaryTechnical,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.ProBar(ctx, code, end, interfaces.BarFreqMonthly)
			},
		},
		{
			Name: "stk_factor", Objective: "技术指标（MACD/RSI/KDJ等）", Kind: interfaces.SummaryTechnical,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.StkFactor(ctx, code, end)
			},
		},
		{
			Name: "daily_basic", Objective: "估值与成交特征", Kind: interfaces.SummaryTechnical,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, end time.Time) (*models.Table, error) {
				return src.DailyBasic(ctx, code, end)
			},
		},
		{
			Name: "limit_list", Objective: "涨跌停与市场情绪", Kind: interfaces.SummaryTechnical,
			Fetch: func(ctx context.Context, src interfaces.MarketDataProvider, code string, _ time.Time) (*models.Table, error) {
				return src.LimitList(ctx, code)
			},
		},
	}
}

func newsSpecs() []newsSpec {
	return []newsSpec{
		{
			Name: "news", Objective: "快讯新闻分析", InputRatio: 0.55,
			Fetch: func(ctx context.Context, src interfaces.NewsProvider, start, end time.Time) (*models.Table, error) {
				return src.FlashNews(ctx, start, end)
			},
		},
		{
			Name: "major_news", Objective: "重要新闻分析", InputRatio: 0.65,
			Fetch: func(ctx context.Context, src interfaces.NewsProvider, start, end time.Time) (*models.Table, error) {
				return src.MajorNews(ctx, start, end)
			},
		},
		{
			Name: "cctv_news", Objective: "央视新闻分析", InputRatio: 0.65,
			Fetch: func(ctx context.Context, src interfaces.NewsProvider, start, end time.Time) (*models.Table, error) {
				return src.CCTVNews(ctx, start, end)
			},
		},
	}
}
