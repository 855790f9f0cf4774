package tushare

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/models"
)

// ProbeSymbol is the canonical symbol used for the startup availability
// probe (平安银行, the most liquid SZ listing).
const ProbeSymbol = "000001.SZ"

// fallbackDays is how many preceding calendar days a trade-date-keyed
// interface walks back when the requested day is empty.
const fallbackDays = 5

// Provider adapts the tushare pro gateway to the market-data contract.
type Provider struct {
	name   string
	client *Client
	logger arbor.ILogger
}

// New creates a tushare provider over the given wire client. The name is
// what the registry pins and logs ("tushare" or "tinyshare").
func New(name string, client *Client, logger arbor.ILogger) *Provider {
	return &Provider{name: name, client: client, logger: logger}
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.name }

// Probe issues one representative daily-basic call and succeeds only on a
// non-empty table, matching the availability semantics downstream relies
// on: a vendor that answers with nothing is as unusable as one that
// refuses the connection.
func (p *Provider) Probe(ctx context.Context) error {
	table, err := p.DailyBasic(ctx, ProbeSymbol, time.Now())
	if err != nil {
		return err
	}
	if table.IsEmpty() {
		return models.Errorf(models.ErrProviderUnavailable, p.name+".probe", "probe returned empty table")
	}
	p.logger.Info().
		Str("provider", p.name).
		Int("rows", table.Len()).
		Msg("Provider probe succeeded")
	return nil
}

// windowParams builds the ts_code + start/end parameter set for one stock
// over a trailing window of years.
func windowParams(stockCode string, end time.Time, years int) map[string]string {
	w := common.Window{Start: end.AddDate(-years, 0, 0), End: end}
	return map[string]string{
		"ts_code":    stockCode,
		"start_date": w.StartCompact(),
		"end_date":   w.EndCompact(),
	}
}

// callWithDateFallback retries a trade-date-keyed interface on empty
// results, walking back up to fallbackDays preceding calendar days. This
// is the only automatic retry in the acquisition path.
func (p *Provider) callWithDateFallback(ctx context.Context, apiName string, params map[string]string, end time.Time) (*models.Table, error) {
	table, err := p.client.Call(ctx, apiName, params)
	if err != nil {
		return nil, err
	}
	if !table.IsEmpty() {
		return table, nil
	}
	for _, date := range common.PrecedingDates(end, fallbackDays) {
		retry := make(map[string]string, len(params))
		for k, v := range params {
			retry[k] = v
		}
		retry["trade_date"] = date
		table, err = p.client.Call(ctx, apiName, retry)
		if err != nil {
			return nil, err
		}
		if !table.IsEmpty() {
			p.logger.Debug().
				Str("api", apiName).
				Str("trade_date", date).
				Msg("Trade-date fallback found data")
			return table, nil
		}
	}
	return models.NewTable(), nil
}

// --- Fundamentals ---

func (p *Provider) FinaIndicator(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "fina_indicator", windowParams(stockCode, end, 2))
}

func (p *Provider) DailyBasic(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "daily_basic", windowParams(stockCode, end, 2))
}

// Dividend has no window: the full payout history is the signal.
func (p *Provider) Dividend(ctx context.Context, stockCode string) (*models.Table, error) {
	return p.client.Call(ctx, "dividend", map[string]string{"ts_code": stockCode})
}

func (p *Provider) Income(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "income", windowParams(stockCode, end, 2))
}

func (p *Provider) Balance(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "balancesheet", windowParams(stockCode, end, 2))
}

func (p *Provider) Cashflow(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "cashflow", windowParams(stockCode, end, 2))
}

// Forecast is end-anchored only; a start date would hide guidance issued
// before the window that still covers upcoming periods.
func (p *Provider) Forecast(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "forecast", map[string]string{
		"ts_code":  stockCode,
		"end_date": end.Format(common.DateCompact),
	})
}

func (p *Provider) Mainbz(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "fina_mainbz", windowParams(stockCode, end, 2))
}

// --- Technicals ---

// barAPINames maps bar frequency to the vendor endpoint.
var barAPINames = map[string]string{
	"D": "daily",
	"W": "weekly",
	"M": "monthly",
}

// barMAWindows are the moving averages appended to every bar table.
var barMAWindows = []int{5, 10, 20, 60}

// ProBar fetches five years of bars at the requested frequency and appends
// ma5/10/20/60 columns computed over the close series.
func (p *Provider) ProBar(ctx context.Context, stockCode string, end time.Time, freq string) (*models.Table, error) {
	apiName, ok := barAPINames[freq]
	if !ok {
		apiName = barAPINames["D"]
	}
	table, err := p.client.Call(ctx, apiName, windowParams(stockCode, end, 5))
	if err != nil {
		return nil, err
	}
	return appendMovingAverages(table, barMAWindows), nil
}

// appendMovingAverages adds maN columns over the close column, oldest row
// first. Vendors return bars newest-first, so the series is walked in
// reverse. Rows without a full window get a null cell.
func appendMovingAverages(table *models.Table, windows []int) *models.Table {
	closeIdx, ok := table.Col("close")
	if !ok || table.IsEmpty() {
		return table
	}
	n := table.Len()
	closes := make([]float64, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		// index 0 is the newest bar; closes is oldest-first
		closes[n-1-i], valid[n-1-i] = table.Rows[i][closeIdx].Float64()
	}
	for _, w := range windows {
		table.Columns = append(table.Columns, "ma"+strconv.Itoa(w))
		for i := 0; i < n; i++ {
			pos := n - 1 - i
			cell := models.Null()
			if pos+1 >= w {
				sum, ok := 0.0, true
				for j := pos - w + 1; j <= pos; j++ {
					if !valid[j] {
						ok = false
						break
					}
					sum += closes[j]
				}
				if ok {
					cell = models.Float(sum / float64(w))
				}
			}
			table.Rows[i] = append(table.Rows[i], cell)
		}
	}
	return table
}

func (p *Provider) StkFactor(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "stk_factor", windowParams(stockCode, end, 2))
}

// LimitList returns the stock's full limit-up/limit-down history.
func (p *Provider) LimitList(ctx context.Context, stockCode string) (*models.Table, error) {
	return p.client.Call(ctx, "limit_list_d", map[string]string{"ts_code": stockCode})
}

// --- Fund flow ---

func (p *Provider) Top10Holders(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "top10_holders", windowParams(stockCode, end, 2))
}

func (p *Provider) Top10FloatHolders(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "top10_floatholders", windowParams(stockCode, end, 2))
}

func (p *Provider) StkHolderNumber(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "stk_holdernumber", windowParams(stockCode, end, 2))
}

// MoneyflowThs does not accept a date range upstream: fetch the stock's
// series and filter to the trailing year locally.
func (p *Provider) MoneyflowThs(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	table, err := p.client.Call(ctx, "moneyflow_ths", map[string]string{"ts_code": stockCode})
	if err != nil {
		return nil, err
	}
	return filterByTradeDate(table, end.AddDate(-1, 0, 0), end), nil
}

// MoneyflowCntThs prefers the board-level ind_dc interface (range
// queries); on empty it falls back to the single-day cnt_ths interface
// with the trade-date walkback.
func (p *Provider) MoneyflowCntThs(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	table, err := p.MoneyflowIndDc(ctx, stockCode, end, "")
	if err == nil && !table.IsEmpty() {
		return table, nil
	}
	return p.callWithDateFallback(ctx, "moneyflow_cnt_ths", map[string]string{
		"trade_date": end.Format(common.DateCompact),
	}, end)
}

// MoneyflowIndThs fetches industry money flow over the trailing year.
func (p *Provider) MoneyflowIndThs(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	table, err := p.client.Call(ctx, "moneyflow_ind_ths", map[string]string{
		"start_date": end.AddDate(-1, 0, 0).Format(common.DateCompact),
		"end_date":   end.Format(common.DateCompact),
	})
	if err != nil {
		return nil, err
	}
	return p.filterToStockIndustry(ctx, table, stockCode), nil
}

// filterToStockIndustry narrows an industry-level table to the stock's own
// industry when both sides expose one; on any miss the full table stands.
func (p *Provider) filterToStockIndustry(ctx context.Context, table *models.Table, stockCode string) *models.Table {
	indIdx, ok := table.Col("industry")
	if !ok || table.IsEmpty() {
		return table
	}
	basic, err := p.StockBasic(ctx, stockCode)
	if err != nil || basic.IsEmpty() {
		return table
	}
	industry := basic.Cell(0, "industry").Text()
	if industry == "" {
		return table
	}
	out := models.NewTable(table.Columns...)
	for _, row := range table.Rows {
		if strings.Contains(row[indIdx].Text(), industry) || strings.Contains(industry, row[indIdx].Text()) {
			out.Rows = append(out.Rows, row)
		}
	}
	if out.IsEmpty() {
		return table
	}
	return out
}

func (p *Provider) MoneyflowMktDc(ctx context.Context, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "moneyflow_mkt_dc", map[string]string{
		"start_date": end.AddDate(-1, 0, 0).Format(common.DateCompact),
		"end_date":   end.Format(common.DateCompact),
	})
}

func (p *Provider) MoneyflowIndDc(ctx context.Context, stockCode string, end time.Time, contentType string) (*models.Table, error) {
	params := map[string]string{
		"start_date": end.AddDate(-1, 0, 0).Format(common.DateCompact),
		"end_date":   end.Format(common.DateCompact),
	}
	if contentType != "" {
		params["content_type"] = contentType
	}
	return p.client.Call(ctx, "moneyflow_ind_dc", params)
}

func (p *Provider) TopList(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.callWithDateFallback(ctx, "top_list", map[string]string{
		"ts_code":    stockCode,
		"trade_date": end.Format(common.DateCompact),
	}, end)
}

func (p *Provider) TopInst(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.callWithDateFallback(ctx, "top_inst", map[string]string{
		"ts_code":    stockCode,
		"trade_date": end.Format(common.DateCompact),
	}, end)
}

// hsgtColumns is the canonical six-field shape of the northbound table.
// Every provider homogenizes its northbound output to these names.
var hsgtColumns = []struct {
	canonical string
	aliases   []string
}{
	{"当日成交净买额", []string{"north_net_buy", "net_buy", "net_amount"}},
	{"买入成交额", []string{"buy_value", "buy_amount", "buy"}},
	{"卖出成交额", []string{"sell_value", "sell_amount", "sell"}},
	{"历史累计净买额", []string{"north_net_buy_cum", "acc_net_buy", "cum_net_buy"}},
	{"当日资金流入", []string{"north_money", "north_inflow", "amount", "money"}},
}

// MoneyflowHsgt fetches a year of northbound flow and homogenizes it to
// the canonical six fields. Same-day queries step back one day because the
// vendor publishes northbound data with a one-day delay.
func (p *Provider) MoneyflowHsgt(ctx context.Context, end time.Time) (*models.Table, error) {
	today := time.Now()
	if end.Year() == today.Year() && end.YearDay() == today.YearDay() {
		end = end.AddDate(0, 0, -1)
	}
	table, err := p.client.Call(ctx, "moneyflow_hsgt", map[string]string{
		"start_date": end.AddDate(-1, 0, 0).Format(common.DateCompact),
		"end_date":   end.Format(common.DateCompact),
	})
	if err != nil {
		return nil, err
	}
	return normalizeHsgt(table), nil
}

// normalizeHsgt keeps trade_date plus the five canonical flow columns,
// resolving vendor aliases and coercing values to floats.
func normalizeHsgt(table *models.Table) *models.Table {
	dateIdx, ok := table.Col("trade_date")
	if !ok {
		return table
	}
	keep := []int{dateIdx}
	names := []string{"trade_date"}
	for _, col := range hsgtColumns {
		for _, alias := range col.aliases {
			if idx, found := table.Col(alias); found {
				keep = append(keep, idx)
				names = append(names, col.canonical)
				break
			}
		}
	}
	out := models.NewTable(names...)
	seen := map[string]bool{}
	for _, row := range table.Rows {
		date := row[dateIdx].Text()
		if date == "" || seen[date] {
			continue
		}
		seen[date] = true
		cells := make([]models.Cell, len(keep))
		for j, idx := range keep {
			if j == 0 {
				cells[j] = row[idx]
				continue
			}
			if f, ok := row[idx].Float64(); ok {
				cells[j] = models.Float(f)
			} else {
				cells[j] = models.Null()
			}
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

func (p *Provider) CyqPerf(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "cyq_perf", windowParams(stockCode, end, 2))
}

// --- Catalog ---

func (p *Provider) StockBasic(ctx context.Context, stockCode string) (*models.Table, error) {
	params := map[string]string{}
	if stockCode != "" {
		params["ts_code"] = stockCode
	}
	return p.client.Call(ctx, "stock_basic", params)
}

func (p *Provider) StockCompany(ctx context.Context, stockCode string) (*models.Table, error) {
	params := map[string]string{}
	if stockCode != "" {
		params["ts_code"] = stockCode
	}
	return p.client.Call(ctx, "stock_company", params)
}

func (p *Provider) TradeCal(ctx context.Context, start, end time.Time) (*models.Table, error) {
	return p.client.Call(ctx, "trade_cal", map[string]string{
		"start_date": start.Format(common.DateCompact),
		"end_date":   end.Format(common.DateCompact),
	})
}

// filterByTradeDate keeps rows whose trade_date falls inside [start, end].
// Tables without a trade_date column pass through untouched.
func filterByTradeDate(table *models.Table, start, end time.Time) *models.Table {
	idx, ok := table.Col("trade_date")
	if !ok || table.IsEmpty() {
		return table
	}
	startKey := start.Format(common.DateCompact)
	endKey := end.Format(common.DateCompact)
	out := models.NewTable(table.Columns...)
	for i, row := range table.Rows {
		key := row[idx].Text()
		if ts, parsed := table.TimeAt(i, idx); parsed {
			key = ts.Format(common.DateCompact)
		}
		if key >= startKey && key <= endKey {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
