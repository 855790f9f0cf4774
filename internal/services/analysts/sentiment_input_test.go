package analysts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

func newsToolResult(summary string) *models.ToolResult {
	return &models.ToolResult{
		AnalysisType:    models.AnalysisTypeNews,
		CombinedSummary: summary,
	}
}

func fundamentalToolResult() *models.ToolResult {
	result := &models.ToolResult{AnalysisType: models.AnalysisTypeFundamental}
	result.Interfaces.Set("fina_indicator", models.InterfaceResult{
		Objective: "财务指标",
		Result:    "ROE为28%。",
		Status:    models.StatusSuccess,
	})
	result.Interfaces.Set("daily_basic", models.InterfaceResult{
		Objective: "每日估值",
		Result:    "",
		Status:    models.StatusSuccess,
	})
	result.Interfaces.Set("dividend", models.InterfaceResult{
		Objective: "分红送股",
		Result:    "连续十年分红。",
		Status:    models.StatusSuccess,
	})
	return result
}

func TestBuildSentimentInputFromArtifacts(t *testing.T) {
	llm := &cannedLLM{}
	svc, store, _ := newTestAnalysts(t, llm)
	req := testRequest()

	require.NoError(t, store.SaveToolResult(req.StockCode, req.Date, interfaces.ArtifactNewsData, req.AnalysisPeriod, newsToolResult("【新闻分析】整体正面")))
	require.NoError(t, store.SaveToolResult(req.StockCode, req.Date, interfaces.ArtifactFundamentalData, req.AnalysisPeriod, fundamentalToolResult()))

	raw := svc.BuildSentimentInput(req, nil)

	var input models.SentimentInput
	require.NoError(t, json.Unmarshal([]byte(raw), &input))
	assert.Equal(t, "600519.SH", input.StockCode)
	assert.Equal(t, "【新闻分析】整体正面", input.NewsCombined)
	// Interfaces with empty results are skipped; the rest keep declaration order.
	assert.Equal(t, "【财务指标】\nROE为28%。\n\n【分红送股】\n连续十年分红。", input.FundamentalText)

	// The snapshot artifact is persisted.
	envelope, err := store.LoadToolResult(req.StockCode, req.Date, interfaces.ArtifactSentimentInput)
	require.NoError(t, err)
	var snapshot models.SentimentInput
	require.NoError(t, envelope.DecodeData(&snapshot))
	assert.Equal(t, input, snapshot)
}

func TestBuildSentimentInputFallsBackToReport(t *testing.T) {
	llm := &cannedLLM{}
	svc, _, _ := newTestAnalysts(t, llm)
	req := testRequest()

	backup := &models.AnalystReport{
		AnalystName: models.AnalystNameFundamental,
		Viewpoint:   models.ViewpointBull,
		Reason:      "盈利能力稳健",
	}
	raw := svc.BuildSentimentInput(req, backup)

	var input models.SentimentInput
	require.NoError(t, json.Unmarshal([]byte(raw), &input))
	assert.Empty(t, input.NewsCombined)
	assert.Equal(t, "盈利能力稳健", input.FundamentalText)
}

func TestBuildSentimentInputNothingUpstream(t *testing.T) {
	llm := &cannedLLM{}
	svc, _, _ := newTestAnalysts(t, llm)

	raw := svc.BuildSentimentInput(testRequest(), nil)

	var input models.SentimentInput
	require.NoError(t, json.Unmarshal([]byte(raw), &input))
	assert.Empty(t, input.NewsCombined)
	assert.Empty(t, input.FundamentalText)
}
