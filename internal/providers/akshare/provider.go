// Package akshare adapts the tertiary data source: a local aktools HTTP
// bridge serving akshare functions as GET endpoints. The bridge returns
// record-oriented JSON with localized (Chinese) column names, so this
// adapter owns the renaming and date filtering the other vendors do
// server-side.
package akshare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/models"
)

const (
	// DefaultBaseURL is the local aktools bridge.
	DefaultBaseURL = "http://127.0.0.1:8081"

	// DefaultTimeout is the default HTTP timeout. The bridge proxies slow
	// upstream scrapes, so this is generous.
	DefaultTimeout = 60 * time.Second
)

// Provider adapts the aktools bridge to the market-data contract.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
}

// New creates the akshare provider from its config section.
func New(cfg common.AkshareConfig, logger arbor.ILogger) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return "akshare" }

// Probe issues one representative bar fetch and requires a non-empty
// table, matching the registry's availability semantics.
func (p *Provider) Probe(ctx context.Context) error {
	table, err := p.DailyBasic(ctx, "000001.SZ", time.Now())
	if err != nil {
		return err
	}
	if table.IsEmpty() {
		return models.Errorf(models.ErrProviderUnavailable, "akshare.probe", "probe returned empty table")
	}
	return nil
}

// get calls one bridge endpoint and decodes the record array into a table
// preserving first-appearance column order.
func (p *Provider) get(ctx context.Context, endpoint string, params url.Values) (*models.Table, error) {
	reqURL := p.baseURL + "/api/public/" + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if p.logger != nil {
		p.logger.Debug().
			Str("endpoint", endpoint).
			Msg("Akshare bridge request")
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("akshare bridge %s failed: status=%d body=%s", endpoint, resp.StatusCode, firstN(string(raw), 200))
	}
	return decodeRecords(resp.Body)
}

// decodeRecords reads a JSON array of objects into a table. Column order
// follows first appearance across records; missing keys become nulls.
func decodeRecords(r io.Reader) (*models.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("expected JSON array, got %v", tok)
	}

	table := models.NewTable()
	colIdx := map[string]int{}
	for dec.More() {
		objTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := objTok.(json.Delim); !ok || d != '{' {
			return nil, fmt.Errorf("expected record object, got %v", objTok)
		}
		row := make([]models.Cell, len(table.Columns))
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			var v interface{}
			if err := dec.Decode(&v); err != nil {
				return nil, err
			}
			idx, known := colIdx[key]
			if !known {
				idx = len(table.Columns)
				colIdx[key] = idx
				table.Columns = append(table.Columns, key)
				for i := range table.Rows {
					table.Rows[i] = append(table.Rows[i], models.Null())
				}
			}
			for len(row) <= idx {
				row = append(row, models.Null())
			}
			row[idx] = models.CellFrom(v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		for len(row) < len(table.Columns) {
			row = append(row, models.Null())
		}
		table.Rows = append(table.Rows, row)
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return table, nil
}

func firstN(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// deSuffix strips the exchange suffix: "000001.SZ" -> "000001".
func deSuffix(stockCode string) string {
	if i := strings.IndexByte(stockCode, '.'); i >= 0 {
		return stockCode[:i]
	}
	return stockCode
}

// dateColumnKeywords locate the date column in localized tables.
var dateColumnKeywords = []string{"日期", "交易日期", "时间", "trade_date", "date"}

// filterByDate keeps rows whose date column lands in [start, end]. Tables
// without a recognizable date column pass through unchanged.
func filterByDate(table *models.Table, start, end time.Time) *models.Table {
	if table.IsEmpty() {
		return table
	}
	col := -1
	for i, name := range table.Columns {
		for _, kw := range dateColumnKeywords {
			if strings.Contains(name, kw) || strings.EqualFold(name, kw) {
				col = i
				break
			}
		}
		if col >= 0 {
			break
		}
	}
	if col < 0 {
		return table
	}
	out := models.NewTable(table.Columns...)
	for i, row := range table.Rows {
		ts, ok := table.TimeAt(i, col)
		if !ok {
			continue
		}
		if !ts.Before(start) && !ts.After(end) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// histColumnMapping translates the bridge's bar columns to the canonical
// vendor-neutral names the summarizer and indicator math expect.
var histColumnMapping = map[string]string{
	"日期":  "trade_date",
	"开盘":  "open",
	"收盘":  "close",
	"最高":  "high",
	"最低":  "low",
	"成交量": "vol",
	"成交额": "amount",
	"涨跌幅": "pct_chg",
	"涨跌额": "change",
	"换手率": "turnover_rate",
}

// renameColumns applies a localization mapping in place.
func renameColumns(table *models.Table, mapping map[string]string) *models.Table {
	for i, name := range table.Columns {
		if canonical, ok := mapping[name]; ok {
			table.Columns[i] = canonical
		}
	}
	return table
}

// hist fetches qfq-adjusted bars at the given period over [start, end].
func (p *Provider) hist(ctx context.Context, stockCode, period string, start, end time.Time) (*models.Table, error) {
	params := url.Values{}
	params.Set("symbol", deSuffix(stockCode))
	params.Set("period", period)
	params.Set("start_date", start.Format(common.DateCompact))
	params.Set("end_date", end.Format(common.DateCompact))
	params.Set("adjust", "qfq")
	return p.get(ctx, "stock_zh_a_hist", params)
}

// financialReport fetches one sina statement (资产负债表/利润表/现金流量表).
func (p *Provider) financialReport(ctx context.Context, stockCode, statement string, end time.Time) (*models.Table, error) {
	params := url.Values{}
	params.Set("stock", deSuffix(stockCode))
	params.Set("symbol", statement)
	table, err := p.get(ctx, "stock_financial_report_sina", params)
	if err != nil {
		return nil, err
	}
	return filterByDate(table, end.AddDate(-2, 0, 0), end), nil
}

// --- Fundamentals ---

func (p *Provider) FinaIndicator(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.financialReport(ctx, stockCode, "资产负债表", end)
}

func (p *Provider) DailyBasic(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	table, err := p.hist(ctx, stockCode, "daily", end.AddDate(-2, 0, 0), end)
	if err != nil {
		return nil, err
	}
	return renameColumns(table, histColumnMapping), nil
}

func (p *Provider) Dividend(ctx context.Context, stockCode string) (*models.Table, error) {
	params := url.Values{}
	params.Set("symbol", deSuffix(stockCode))
	return p.get(ctx, "stock_dividend_cninfo", params)
}

func (p *Provider) Income(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.financialReport(ctx, stockCode, "利润表", end)
}

func (p *Provider) Balance(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.financialReport(ctx, stockCode, "资产负债表", end)
}

func (p *Provider) Cashflow(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	return p.financialReport(ctx, stockCode, "现金流量表", end)
}

func (p *Provider) Forecast(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	params := url.Values{}
	params.Set("symbol", deSuffix(stockCode))
	table, err := p.get(ctx, "stock_yjbb_em", params)
	if err != nil {
		return nil, err
	}
	return filterByDate(table, end.AddDate(-2, 0, 0), end), nil
}

func (p *Provider) Mainbz(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	params := url.Values{}
	params.Set("symbol", deSuffix(stockCode))
	return p.get(ctx, "stock_zygc_em", params)
}

// --- Technicals ---

var histPeriods = map[string]string{
	"D": "daily",
	"W": "weekly",
	"M": "monthly",
}

var barMAWindows = []int{5, 10, 20, 60}

// ProBar fetches five years of bars and appends ma5/10/20/60 computed
// over the close column. Bridge bars arrive oldest-first.
func (p *Provider) ProBar(ctx context.Context, stockCode string, end time.Time, freq string) (*models.Table, error) {
	period, ok := histPeriods[freq]
	if !ok {
		period = "daily"
	}
	table, err := p.hist(ctx, stockCode, period, end.AddDate(-5, 0, 0), end)
	if err != nil {
		return nil, err
	}
	renameColumns(table, histColumnMapping)
	closeIdx, found := table.Col("close")
	if !found || table.IsEmpty() {
		return table, nil
	}
	closes := make([]float64, table.Len())
	for i := range table.Rows {
		closes[i], _ = table.Rows[i][closeIdx].Float64()
	}
	for _, w := range barMAWindows {
		ma, okAt := SMA(closes, w)
		table.Columns = append(table.Columns, "ma"+strconv.Itoa(w))
		for i := range table.Rows {
			if okAt[i] {
				table.Rows[i] = append(table.Rows[i], models.Float(ma[i]))
			} else {
				table.Rows[i] = append(table.Rows[i], models.Null())
			}
		}
	}
	return table, nil
}

// StkFactor computes MACD/RSI/KDJ locally from two years of daily bars,
// mirroring the primary vendor's precomputed factor table.
func (p *Provider) StkFactor(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	bars, err := p.hist(ctx, stockCode, "daily", end.AddDate(-2, 0, 0), end)
	if err != nil {
		return nil, err
	}
	renameColumns(bars, histColumnMapping)
	if bars.IsEmpty() {
		return models.NewTable(), nil
	}
	dateIdx, okDate := bars.Col("trade_date")
	closeIdx, okClose := bars.Col("close")
	highIdx, okHigh := bars.Col("high")
	lowIdx, okLow := bars.Col("low")
	if !okDate || !okClose || !okHigh || !okLow {
		return models.NewTable(), nil
	}

	n := bars.Len()
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i], _ = bars.Rows[i][closeIdx].Float64()
		highs[i], _ = bars.Rows[i][highIdx].Float64()
		lows[i], _ = bars.Rows[i][lowIdx].Float64()
	}
	dif, dea, macd := MACD(closes)
	rsi, rsiOK := RSI(closes, 14)
	k, d, j := KDJ(closes, highs, lows)

	out := models.NewTable("trade_date", "ts_code",
		"macd_dif", "macd_dea", "macd_macd",
		"rsi", "kdj_k", "kdj_d", "kdj_j")
	for i := 0; i < n; i++ {
		date := bars.Rows[i][dateIdx]
		if ts, ok := bars.TimeAt(i, dateIdx); ok {
			date = models.String(ts.Format(common.DateCompact))
		}
		rsiCell := models.Null()
		if rsiOK[i] {
			rsiCell = models.Float(rsi[i])
		}
		out.AppendRow(date, models.String(stockCode),
			models.Float(dif[i]), models.Float(dea[i]), models.Float(macd[i]),
			rsiCell, models.Float(k[i]), models.Float(d[i]), models.Float(j[i]))
	}
	return out, nil
}

func (p *Provider) LimitList(ctx context.Context, stockCode string) (*models.Table, error) {
	table, err := p.get(ctx, "stock_zt_pool_em", nil)
	if err != nil {
		return nil, err
	}
	return filterToStock(table, deSuffix(stockCode)), nil
}

// filterToStock keeps rows whose 代码 column matches the bare stock code.
func filterToStock(table *models.Table, bareCode string) *models.Table {
	idx, ok := table.Col("代码")
	if !ok {
		return table
	}
	out := models.NewTable(table.Columns...)
	for _, row := range table.Rows {
		if row[idx].Text() == bareCode {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// --- Fund flow ---

func (p *Provider) Top10Holders(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	params := url.Values{}
	params.Set("symbol", deSuffix(stockCode))
	table, err := p.get(ctx, "stock_gdfx_top_10_em", params)
	if err != nil {
		return nil, err
	}
	return filterByDate(table, end.AddDate(-2, 0, 0), end), nil
}

func (p *Provider) Top10FloatHolders(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	params := url.Values{}
	params.Set("symbol", deSuffix(stockCode))
	table, err := p.get(ctx, "stock_gdfx_free_top_10_em", params)
	if err != nil {
		return nil, err
	}
	return filterByDate(table, end.AddDate(-2, 0, 0), end), nil
}

func (p *Provider) StkHolderNumber(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	params := url.Values{}
	params.Set("symbol", deSuffix(stockCode))
	table, err := p.get(ctx, "stock_zh_a_gdhs", params)
	if err != nil {
		return nil, err
	}
	return filterByDate(table, end.AddDate(-2, 0, 0), end), nil
}

func (p *Provider) MoneyflowThs(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	table, err := p.get(ctx, "stock_individual_fund_flow_rank", nil)
	if err != nil {
		return nil, err
	}
	return filterByDate(filterToStock(table, deSuffix(stockCode)), end.AddDate(-1, 0, 0), end), nil
}

func (p *Provider) MoneyflowCntThs(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	table, err := p.get(ctx, "stock_sector_fund_flow_rank", nil)
	if err != nil {
		return nil, err
	}
	return filterByDate(table, end.AddDate(-1, 0, 0), end), nil
}

func (p *Provider) MoneyflowIndThs(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	table, err := p.get(ctx, "stock_sector_fund_flow_rank", nil)
	if err != nil {
		return nil, err
	}
	return filterByDate(table, end.AddDate(-1, 0, 0), end), nil
}

func (p *Provider) MoneyflowMktDc(ctx context.Context, end time.Time) (*models.Table, error) {
	table, err := p.get(ctx, "stock_market_fund_flow", nil)
	if err != nil {
		return nil, err
	}
	return filterByDate(table, end.AddDate(-1, 0, 0), end), nil
}

func (p *Provider) MoneyflowIndDc(ctx context.Context, stockCode string, end time.Time, contentType string) (*models.Table, error) {
	params := url.Values{}
	if contentType != "" {
		params.Set("indicator", contentType)
	}
	table, err := p.get(ctx, "stock_sector_fund_flow_rank", params)
	if err != nil {
		return nil, err
	}
	return filterByDate(table, end.AddDate(-1, 0, 0), end), nil
}

func (p *Provider) TopList(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	table, err := p.get(ctx, "stock_lhb_detail_em", nil)
	if err != nil {
		return nil, err
	}
	return filterByDate(filterToStock(table, deSuffix(stockCode)), end.AddDate(0, 0, -30), end), nil
}

func (p *Provider) TopInst(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	table, err := p.get(ctx, "stock_lhb_jgmx_sina", nil)
	if err != nil {
		return nil, err
	}
	return filterByDate(filterToStock(table, deSuffix(stockCode)), end.AddDate(0, 0, -30), end), nil
}

// hsgtCandidates maps the canonical northbound fields to the localized
// column names different bridge versions emit.
var hsgtCandidates = []struct {
	canonical string
	aliases   []string
}{
	{"当日成交净买额", []string{"当日成交净买额", "当日净买额", "北向资金-净流入", "净流入"}},
	{"买入成交额", []string{"买入成交额", "买入额", "买入总额", "买入成交金额"}},
	{"卖出成交额", []string{"卖出成交额", "卖出额", "卖出总额", "卖出成交金额"}},
	{"历史累计净买额", []string{"历史累计净买额", "历史净买额", "历史累计净流入"}},
	{"当日资金流入", []string{"当日资金流入", "资金净流入", "当日净流入", "北向资金净流入"}},
}

// MoneyflowHsgt fetches the northbound history and homogenizes it to the
// canonical six fields, resolving localized units (亿/万) numerically.
func (p *Provider) MoneyflowHsgt(ctx context.Context, end time.Time) (*models.Table, error) {
	params := url.Values{}
	params.Set("symbol", "北向资金")
	table, err := p.get(ctx, "stock_hsgt_hist_em", params)
	if err != nil {
		return nil, err
	}
	return normalizeHsgt(filterByDate(table, end.AddDate(-1, 0, 0), end)), nil
}

// normalizeHsgt projects the localized northbound table onto trade_date
// plus the five canonical flow columns.
func normalizeHsgt(table *models.Table) *models.Table {
	dateIdx := -1
	for i, name := range table.Columns {
		if name == "trade_date" || name == "日期" || name == "交易日期" {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		return table
	}
	keep := []int{}
	names := []string{"trade_date"}
	for _, cand := range hsgtCandidates {
		for _, alias := range cand.aliases {
			if idx, ok := table.Col(alias); ok {
				keep = append(keep, idx)
				names = append(names, cand.canonical)
				break
			}
		}
	}
	out := models.NewTable(names...)
	seen := map[string]bool{}
	for i, row := range table.Rows {
		dateKey := row[dateIdx].Text()
		if ts, ok := table.TimeAt(i, dateIdx); ok {
			dateKey = ts.Format(common.DateCompact)
		}
		if dateKey == "" || seen[dateKey] {
			continue
		}
		seen[dateKey] = true
		cells := []models.Cell{models.String(dateKey)}
		for _, idx := range keep {
			if v, ok := ParseLocalizedAmount(row[idx]); ok {
				cells = append(cells, models.Float(v))
			} else {
				cells = append(cells, models.Null())
			}
		}
		out.Rows = append(out.Rows, cells)
	}
	return out
}

// ParseLocalizedAmount resolves a numeric cell that may carry a Chinese
// unit suffix: 亿 scales by 1e8, 万 by 1e4. Commas and spaces are dropped.
func ParseLocalizedAmount(c models.Cell) (float64, bool) {
	if v, ok := c.Float64(); ok {
		return v, true
	}
	s := strings.TrimSpace(c.Text())
	if s == "" {
		return 0, false
	}
	mul := 1.0
	if strings.HasSuffix(s, "亿") {
		mul = 1e8
		s = strings.TrimSuffix(s, "亿")
	} else if strings.HasSuffix(s, "万") {
		mul = 1e4
		s = strings.TrimSuffix(s, "万")
	}
	s = strings.NewReplacer(",", "", "，", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v * mul, true
}

func (p *Provider) CyqPerf(ctx context.Context, stockCode string, end time.Time) (*models.Table, error) {
	params := url.Values{}
	params.Set("symbol", deSuffix(stockCode))
	table, err := p.get(ctx, "stock_cyq_em", params)
	if err != nil {
		return nil, err
	}
	return filterByDate(table, end.AddDate(-2, 0, 0), end), nil
}

// --- Catalog ---

func (p *Provider) StockBasic(ctx context.Context, stockCode string) (*models.Table, error) {
	table, err := p.get(ctx, "stock_info_a_code_name", nil)
	if err != nil {
		return nil, err
	}
	renameColumns(table, map[string]string{"code": "symbol", "名称": "name", "代码": "symbol"})
	if stockCode != "" {
		table = filterToSymbol(table, deSuffix(stockCode))
	}
	return table, nil
}

func filterToSymbol(table *models.Table, bareCode string) *models.Table {
	idx, ok := table.Col("symbol")
	if !ok {
		return table
	}
	out := models.NewTable(table.Columns...)
	for _, row := range table.Rows {
		if row[idx].Text() == bareCode {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

func (p *Provider) StockCompany(ctx context.Context, stockCode string) (*models.Table, error) {
	params := url.Values{}
	params.Set("symbol", deSuffix(stockCode))
	return p.get(ctx, "stock_individual_info_em", params)
}

func (p *Provider) TradeCal(ctx context.Context, start, end time.Time) (*models.Table, error) {
	table, err := p.get(ctx, "tool_trade_date_hist_sina", nil)
	if err != nil {
		return nil, err
	}
	return filterByDate(table, start, end), nil
}
