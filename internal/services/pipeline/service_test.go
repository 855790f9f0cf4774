package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
	"github.com/lunahan/aestimo/internal/services/acquisition"
	"github.com/lunahan/aestimo/internal/services/analysts"
	"github.com/lunahan/aestimo/internal/services/artifacts"
	"github.com/lunahan/aestimo/internal/services/events"
)

const analystResponse = `{
  "analyst_name": "分析师",
  "viewpoint": "看多",
  "reason": "基本面稳健",
  "scores": {"profitability": 4},
  "detailed_analysis": "详细分析。"
}`

const supervisorResponse = `{
  "analyst_name": "总决策分析师",
  "summary": "综合各方观点，建议持有。",
  "forecast": {
    "short_term": {"bias": "看多", "prediction": "小幅上行", "suggestion": "持有", "reason": "资金面支撑", "risks": ["市场波动"]},
    "mid_term": {"bias": "中性", "prediction": "区间震荡", "suggestion": "观望", "reason": "估值中枢", "risks": []},
    "long_term": {"bias": "看多", "prediction": "稳步上行", "suggestion": "逢低布局", "reason": "行业龙头", "risks": []}
  }
}`

const debaterResponse = `{
  "analyst_name": "看涨派分析师",
  "viewpoint": "看多",
  "core_arguments": ["盈利稳健"],
  "rebuttals": ["估值担忧过度"],
  "final_statement": "坚定看多。"
}`

const judgeResponse = `{
  "analyst_name": "首席投资分析师",
  "bull_summary": ["盈利稳健"],
  "bear_summary": ["估值偏高"],
  "score_comparison": {"bull_avg_score": 4.0, "bear_avg_score": 2.5},
  "final_viewpoint": "看多",
  "final_reason": "多方论据更充分。"
}`

// scriptedLLM answers each prompt with the payload matching the stage
// that produced it.
type scriptedLLM struct {
	mu      sync.Mutex
	prompts []string
}

func (l *scriptedLLM) Name() string { return "scripted" }

func (l *scriptedLLM) Chat(_ context.Context, messages []interfaces.Message) (string, error) {
	prompt := messages[len(messages)-1].Content
	l.mu.Lock()
	l.prompts = append(l.prompts, prompt)
	l.mu.Unlock()

	switch {
	case strings.Contains(prompt, "score_comparison"):
		return judgeResponse, nil
	case strings.Contains(prompt, "final_statement"):
		return debaterResponse, nil
	case strings.Contains(prompt, "信息融合"):
		return supervisorResponse, nil
	default:
		return analystResponse, nil
	}
}

func (l *scriptedLLM) ChatStream(ctx context.Context, messages []interfaces.Message, onChunk interfaces.ChunkHandler) (string, error) {
	response, err := l.Chat(ctx, messages)
	if err == nil && onChunk != nil {
		onChunk(response)
	}
	return response, err
}

func (l *scriptedLLM) HealthCheck(context.Context) error { return nil }
func (l *scriptedLLM) Close() error                      { return nil }

// fakeAcquisition persists its tool artifacts like the real service and
// hands back small fixed results. Per-tool errors are injectable.
type fakeAcquisition struct {
	store interfaces.ArtifactStore
	errs  map[string]error
}

func (f *fakeAcquisition) result(analysisType, name, summary string) *models.ToolResult {
	result := &models.ToolResult{AnalysisType: analysisType}
	result.Interfaces.Set(name, models.InterfaceResult{
		Objective: name,
		Result:    summary,
		Status:    models.StatusSuccess,
	})
	result.Summary = result.Interfaces.Counts()
	return result
}

func (f *fakeAcquisition) fetch(tool, analysisType, name, summary string, end time.Time, stockCode string) (*models.ToolResult, error) {
	if err := f.errs[tool]; err != nil {
		return nil, err
	}
	result := f.result(analysisType, name, summary)
	window := common.WindowFromEnd(end)
	_ = f.store.SaveToolResult(stockCode, window.EndCompact(), tool, window.AnalysisPeriod(), result)
	return result, nil
}

func (f *fakeAcquisition) FetchFundamental(_ context.Context, stockCode string, end time.Time) (*models.ToolResult, error) {
	return f.fetch(interfaces.ToolFundamental, models.AnalysisTypeFundamental, "财务指标", "ROE为28%。", end, stockCode)
}

func (f *fakeAcquisition) FetchTechnical(_ context.Context, stockCode string, end time.Time) (*models.ToolResult, error) {
	return f.fetch(interfaces.ToolTechnical, models.AnalysisTypeTechnical, "日线行情", "均线多头排列。", end, stockCode)
}

func (f *fakeAcquisition) FetchFund(_ context.Context, stockCode string, end time.Time) (*models.ToolResult, error) {
	return f.fetch(interfaces.ToolFund, models.AnalysisTypeFund, "主力资金", "主力净流入。", end, stockCode)
}

func (f *fakeAcquisition) FetchNews(_ context.Context, stockCode string, end time.Time, _ int) (*models.ToolResult, error) {
	if err := f.errs[interfaces.ToolNews]; err != nil {
		return nil, err
	}
	result := f.result(models.AnalysisTypeNews, "快讯", "今日快讯两条。")
	result.CombinedSummary = acquisition.NoCombinedSummary
	window := common.WindowFromEnd(end)
	_ = f.store.SaveToolResult(stockCode, window.EndCompact(), interfaces.ToolNews, window.AnalysisPeriod(), result)
	return result, nil
}

type fakeNewsfeed struct {
	text string
}

func (f *fakeNewsfeed) Analyze(context.Context, string, string, string, time.Time) *interfaces.NewsAnalysis {
	return &interfaces.NewsAnalysis{Text: f.text}
}

type fakeCatalog struct{}

func (fakeCatalog) StockName(stockCode string) string {
	if stockCode == "600519.SH" {
		return "贵州茅台"
	}
	return stockCode
}

func (fakeCatalog) Basic(stockCode string) (models.StockBasic, bool) {
	if stockCode != "600519.SH" {
		return models.StockBasic{}, false
	}
	return models.StockBasic{TSCode: stockCode, Name: "贵州茅台", Industry: "白酒"}, true
}

func (fakeCatalog) Company(string) (models.CompanyProfile, bool) { return models.CompanyProfile{}, false }
func (fakeCatalog) OverviewLines(string) []string                { return nil }
func (fakeCatalog) Bootstrap(context.Context) error              { return nil }
func (fakeCatalog) Count() int                                   { return 1 }
func (fakeCatalog) Close() error                                 { return nil }

type pipelineFixture struct {
	svc   *Service
	store *artifacts.Service
	llm   *scriptedLLM
	acq   *fakeAcquisition
	bus   *events.Service
	sub   *interfaces.Subscription
}

func newPipelineFixture(t *testing.T, debate bool) *pipelineFixture {
	t.Helper()
	logger := arbor.NewLogger()
	store := artifacts.NewService(t.TempDir(), logger)
	bus := events.NewService(logger)
	t.Cleanup(func() { bus.Close() })

	llm := &scriptedLLM{}
	acq := &fakeAcquisition{store: store, errs: map[string]error{}}
	analystSvc := analysts.NewService(llm, store, bus, logger)

	cfg := &common.Config{
		Pipeline: common.PipelineConfig{NewsDays: 3, DebateEnabled: debate},
	}

	svc := NewService(cfg, acq, analystSvc, &fakeNewsfeed{text: "两部委发布白酒行业新规，龙头受益。"}, store, fakeCatalog{}, bus, logger)
	return &pipelineFixture{
		svc:   svc,
		store: store,
		llm:   llm,
		acq:   acq,
		bus:   bus,
		sub:   bus.Subscribe(interfaces.AllThreads),
	}
}

// frames drains every event published so far. Call after Run returns.
func (f *pipelineFixture) frames() []models.StreamEvent {
	out := make([]models.StreamEvent, 0, len(f.sub.C))
	for len(f.sub.C) > 0 {
		out = append(out, <-f.sub.C)
	}
	return out
}

func contents(frames []models.StreamEvent) []string {
	out := make([]string, len(frames))
	for i, fr := range frames {
		out[i] = fr.Content
	}
	return out
}

func TestRunProducesFullArtifactSet(t *testing.T) {
	f := newPipelineFixture(t, false)

	summary, err := f.svc.Run(context.Background(), "600519.SH", "2025-08-22", "thread-1")
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, "600519.SH", summary.StockCode)
	assert.Equal(t, "20250822", summary.EndDate)
	require.NotNil(t, summary.Supervisor)
	assert.Equal(t, "看多", summary.Supervisor.ShortTermBias)
	assert.Equal(t, "中性", summary.Supervisor.MidTermBias)

	for _, name := range []string{
		interfaces.ArtifactFundamentalData,
		interfaces.ArtifactTechData,
		interfaces.ArtifactFundData,
		interfaces.ArtifactNewsData,
		interfaces.ArtifactSentimentInput,
		interfaces.ArtifactFundamentalReport,
		interfaces.ArtifactTechnicalReport,
		interfaces.ArtifactSentimentReport,
		interfaces.ArtifactNewsReport,
		interfaces.ArtifactFundReport,
		interfaces.ArtifactSupervisorReport,
	} {
		assert.Contains(t, summary.Artifacts, name)
	}

	// the summary itself is persisted alongside the run artifacts
	envelope, err := f.store.LoadReport("600519.SH", "20250822", interfaces.ArtifactAnalysisSummary)
	require.NoError(t, err)
	var saved models.RunSummary
	require.NoError(t, envelope.DecodeData(&saved))
	assert.Equal(t, summary.StockCode, saved.StockCode)
}

func TestRunEnrichesNewsSummaryWithCrawl(t *testing.T) {
	f := newPipelineFixture(t, false)

	_, err := f.svc.Run(context.Background(), "600519.SH", "20250822", "thread-news")
	require.NoError(t, err)

	envelope, err := f.store.LoadToolResult("600519.SH", "20250822", interfaces.ArtifactNewsData)
	require.NoError(t, err)
	var news models.ToolResult
	require.NoError(t, envelope.DecodeData(&news))

	// the placeholder combined summary was replaced by the crawl narrative
	assert.Equal(t, "两部委发布白酒行业新规，龙头受益。", news.CombinedSummary)
	assert.NotContains(t, news.CombinedSummary, acquisition.NoCombinedSummary)
}

func TestRunStreamEndsWithTerminalFrame(t *testing.T) {
	f := newPipelineFixture(t, false)

	_, err := f.svc.Run(context.Background(), "600519.SH", "20250822", "thread-2")
	require.NoError(t, err)

	frames := f.frames()
	require.NotEmpty(t, frames)

	last := frames[len(frames)-1]
	assert.Equal(t, models.EventMessageChunk, last.EventType)
	assert.Equal(t, "system", last.Agent)
	assert.Equal(t, "final-run", last.ID)
	assert.Equal(t, "分析流程已结束。", last.Content)
	assert.Equal(t, models.FinishReasonStop, last.FinishReason)

	all := contents(frames)
	assert.Contains(t, all, "节点 'supervisor' 开始执行...")
	assert.Contains(t, all, "节点 'supervisor' 执行完成")
	assert.Contains(t, all, "工具 'fundamental_data' 正在执行...")
	for _, fr := range frames {
		assert.Equal(t, "thread-2", fr.ThreadID)
	}
}

func TestRunWithDebateEnabled(t *testing.T) {
	f := newPipelineFixture(t, true)

	summary, err := f.svc.Run(context.Background(), "600519.SH", "20250822", "thread-3")
	require.NoError(t, err)

	assert.Contains(t, summary.Artifacts, "bull_report")
	assert.Contains(t, summary.Artifacts, "bear_report")
	assert.Contains(t, summary.Artifacts, "debate_report")

	envelope, err := f.store.LoadReport("600519.SH", "20250822", "debate_report")
	require.NoError(t, err)
	var judge models.DebateReport
	require.NoError(t, envelope.DecodeData(&judge))
	assert.Equal(t, "看多", judge.FinalViewpoint)

	all := contents(f.frames())
	assert.Contains(t, all, "节点 'bull_debate' 开始执行...")
	assert.Contains(t, all, "节点 'debate_judge' 执行完成")
}

func TestRunSurvivesAcquisitionFailure(t *testing.T) {
	f := newPipelineFixture(t, false)
	f.acq.errs[interfaces.ToolFundamental] = assert.AnError

	summary, err := f.svc.Run(context.Background(), "600519.SH", "20250822", "thread-4")
	require.NoError(t, err)
	require.NotNil(t, summary)

	// the fundamental analyst still ran, on the fetch-error sentence
	assert.Contains(t, summary.Artifacts, interfaces.ArtifactFundamentalReport)
	assert.NotContains(t, summary.Artifacts, interfaces.ArtifactFundamentalData)

	found := false
	for _, content := range contents(f.frames()) {
		if strings.Contains(content, models.MarkerFetchError) {
			found = true
			break
		}
	}
	assert.True(t, found, "fetch failure should surface on the stream")

	prompt := ""
	for _, p := range f.llm.prompts {
		if strings.Contains(p, models.MarkerFetchError) {
			prompt = p
			break
		}
	}
	assert.NotEmpty(t, prompt, "analyst prompt should carry the failure text")
}
