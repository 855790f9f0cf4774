package artifacts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/models"
)

func newTestStore(t *testing.T) *Service {
	t.Helper()
	return NewService(t.TempDir(), arbor.NewLogger())
}

func TestSaveAndLoadToolResult(t *testing.T) {
	store := newTestStore(t)

	result := models.ToolResult{AnalysisType: models.AnalysisTypeTechnical}
	result.Interfaces.Set("pro_bar_D", models.InterfaceResult{
		Objective: "短期（日线K线与均线走势）",
		Result:    "【短期（日线K线与均线走势）】\n日线多头排列。",
		Raw:       []map[string]interface{}{{"trade_date": "20250820", "close": 10.5}},
		Status:    models.StatusSuccess,
	})
	result.Summary = result.Interfaces.Counts()

	err := store.SaveToolResult("000001.SZ", "20250821", "tech_data", "2023-08-21 至 2025-08-21", result)
	require.NoError(t, err)

	envelope, err := store.LoadToolResult("000001.SZ", "20250821", "tech_data")
	require.NoError(t, err)
	assert.Equal(t, "tech_data", envelope.Tool)
	assert.Equal(t, "2023-08-21 至 2025-08-21", envelope.AnalysisPeriod)
	_, err = time.Parse("2006-01-02 15:04:05", envelope.Timestamp)
	assert.NoError(t, err)

	var decoded models.ToolResult
	require.NoError(t, envelope.DecodeData(&decoded))
	assert.Equal(t, models.AnalysisTypeTechnical, decoded.AnalysisType)
	entry, ok := decoded.Interfaces.Get("pro_bar_D")
	require.True(t, ok)
	assert.Equal(t, models.StatusSuccess, entry.Status)
}

func TestSaveToolResult_PlainTextPayload(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveToolResult("000001.SZ", "20250821", "news_data", "近两年数据", "这不是JSON的纯文本结果")
	require.NoError(t, err)

	envelope, err := store.LoadToolResult("000001.SZ", "20250821", "news_data")
	require.NoError(t, err)
	assert.Empty(t, envelope.Data)
	assert.Equal(t, "这不是JSON的纯文本结果", envelope.Text)
}

func TestSaveAndLoadReport(t *testing.T) {
	store := newTestStore(t)

	report := &models.AnalystReport{
		AnalystName: models.AnalystNameFundamental,
		Viewpoint:   models.ViewpointBull,
		Reason:      "盈利能力改善",
		Scores:      map[string]int{"profitability": 4},
	}
	err := store.SaveReport("000001.SZ", "20250821", "fundamental_report", "fundamental", "2023-08-21 至 2025-08-21", report)
	require.NoError(t, err)

	envelope, err := store.LoadReport("000001.SZ", "20250821", "fundamental_report")
	require.NoError(t, err)
	assert.Equal(t, "fundamental", envelope.ReportType)

	var decoded models.AnalystReport
	require.NoError(t, envelope.DecodeData(&decoded))
	assert.Equal(t, models.ViewpointBull, decoded.Viewpoint)
	assert.Equal(t, 4, decoded.Scores["profitability"])
}

func TestLoad_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadToolResult("000001.SZ", "20250821", "missing")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrNotFound))
}

func TestOverwriteIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveToolResult("000001.SZ", "20250821", "fund_data", "p", map[string]string{"v": "first"}))
	require.NoError(t, store.SaveToolResult("000001.SZ", "20250821", "fund_data", "p", map[string]string{"v": "second"}))

	envelope, err := store.LoadToolResult("000001.SZ", "20250821", "fund_data")
	require.NoError(t, err)
	var decoded map[string]string
	require.NoError(t, envelope.DecodeData(&decoded))
	assert.Equal(t, "second", decoded["v"])

	// No stray temp files after the rename.
	entries, err := os.ReadDir(store.Dir("000001.SZ", "20250821"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestList(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveToolResult("000001.SZ", "20250821", "tech_data", "p", map[string]int{"a": 1}))
	require.NoError(t, store.SaveReport("000001.SZ", "20250821", "supervisor_report", "supervisor", "p", map[string]int{"b": 2}))
	// Non-json noise is ignored.
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir("000001.SZ", "20250821"), "notes.txt"), []byte("x"), 0o644))

	names, err := store.List("000001.SZ", "20250821")
	require.NoError(t, err)
	assert.Equal(t, []string{"supervisor_report", "tech_data"}, names)

	empty, err := store.List("600000.SH", "20250821")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBuildRunSummary(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveReport("000001.SZ", "20250821", "supervisor_report", "supervisor", "p", map[string]int{}))

	supervisor := &models.SupervisorReport{
		AnalystName: models.AnalystNameSupervisor,
		Summary:     "整体偏多。",
		Forecast: models.SupervisorForecast{
			ShortTerm: models.HorizonForecast{Bias: models.ViewpointBull},
			MidTerm:   models.HorizonForecast{Bias: models.ViewpointNeutral},
			LongTerm:  models.HorizonForecast{Bias: models.ViewpointBull},
		},
	}
	summary := store.BuildRunSummary("000001.SZ", "20250821", supervisor, map[string]time.Duration{
		"fundamental_analysis": 1500 * time.Millisecond,
	})

	assert.Equal(t, "000001.SZ", summary.StockCode)
	assert.Equal(t, []string{"supervisor_report"}, summary.Artifacts)
	require.NotNil(t, summary.Supervisor)
	assert.Equal(t, models.ViewpointBull, summary.Supervisor.ShortTermBias)
	assert.Equal(t, "1.5s", summary.NodeDurations["fundamental_analysis"])
}
