package analysts

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
	"github.com/lunahan/aestimo/internal/services/artifacts"
)

// cannedLLM streams back a fixed response in two chunks.
type cannedLLM struct {
	response string
	err      error
	prompts  []string
}

func (l *cannedLLM) Name() string { return "canned" }

func (l *cannedLLM) Chat(_ context.Context, messages []interfaces.Message) (string, error) {
	l.prompts = append(l.prompts, messages[len(messages)-1].Content)
	return l.response, l.err
}

func (l *cannedLLM) ChatStream(ctx context.Context, messages []interfaces.Message, onChunk interfaces.ChunkHandler) (string, error) {
	if _, err := l.Chat(ctx, messages); err != nil {
		return "", err
	}
	if onChunk != nil {
		half := len(l.response) / 2
		onChunk(l.response[:half])
		onChunk(l.response[half:])
	}
	return l.response, nil
}

func (l *cannedLLM) HealthCheck(_ context.Context) error { return nil }
func (l *cannedLLM) Close() error                        { return nil }

// recordingBus captures published frames.
type recordingBus struct {
	mu     sync.Mutex
	events []models.StreamEvent
}

func (b *recordingBus) Subscribe(_ string) *interfaces.Subscription {
	ch := make(chan models.StreamEvent)
	close(ch)
	return &interfaces.Subscription{C: ch, Cancel: func() {}}
}

func (b *recordingBus) Publish(event models.StreamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) all() []models.StreamEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.StreamEvent, len(b.events))
	copy(out, b.events)
	return out
}

const validFundamentalJSON = `{
  "analyst_name": "基本面分析师",
  "viewpoint": "看多",
  "reason": "盈利能力稳健",
  "scores": {"profitability": 5, "solvency": 4, "growth_potential": 4},
  "detailed_analysis": "ROE持续高于25%。"
}`

func testRequest() interfaces.AnalystRequest {
	return interfaces.AnalystRequest{
		StockCode:      "600519.SH",
		Date:           "20250822",
		AnalysisPeriod: "2023-08-22 至 2025-08-22",
		ThreadID:       "thread-1",
		RunID:          "run-1",
		Agent:          "fundamental_analysis",
	}
}

func newTestAnalysts(t *testing.T, llm *cannedLLM) (*Service, *artifacts.Service, *recordingBus) {
	t.Helper()
	store := artifacts.NewService(t.TempDir(), arbor.NewLogger())
	bus := &recordingBus{}
	return NewService(llm, store, bus, arbor.NewLogger()), store, bus
}

func TestRunProducesReportAndArtifact(t *testing.T) {
	llm := &cannedLLM{response: validFundamentalJSON}
	svc, store, _ := newTestAnalysts(t, llm)
	req := testRequest()

	report := svc.Run(context.Background(), models.PerspectiveFundamental, req, "净利润率30%")
	require.NotNil(t, report)
	assert.Equal(t, models.ViewpointBull, report.Viewpoint)
	assert.Equal(t, 5, report.Scores["profitability"])

	// The prompt carries the role, the stock and the input data.
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "600519.SH")
	assert.Contains(t, llm.prompts[0], "净利润率30%")
	assert.Contains(t, llm.prompts[0], "profitability")

	envelope, err := store.LoadReport(req.StockCode, req.Date, interfaces.ArtifactFundamentalReport)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ArtifactFundamentalReport, envelope.ReportType)
	var saved models.AnalystReport
	require.NoError(t, envelope.DecodeData(&saved))
	assert.Equal(t, models.AnalystNameFundamental, saved.AnalystName)
}

func TestRunForwardsStreamChunks(t *testing.T) {
	llm := &cannedLLM{response: validFundamentalJSON}
	svc, _, bus := newTestAnalysts(t, llm)
	req := testRequest()

	svc.Run(context.Background(), models.PerspectiveFundamental, req, "data")

	events := bus.all()
	require.Len(t, events, 2)
	var rebuilt string
	for _, event := range events {
		assert.Equal(t, models.EventMessageChunk, event.EventType)
		assert.Equal(t, "thread-1", event.ThreadID)
		assert.Equal(t, "fundamental_analysis", event.Agent)
		rebuilt += event.Content
	}
	assert.Equal(t, validFundamentalJSON, rebuilt)
}

func TestRunLLMFailureProducesErrorReport(t *testing.T) {
	llm := &cannedLLM{err: errors.New("rate limited")}
	svc, store, _ := newTestAnalysts(t, llm)
	req := testRequest()

	report := svc.Run(context.Background(), models.PerspectiveFund, req, "data")
	assert.Equal(t, models.AnalystNameFund, report.AnalystName)
	assert.Equal(t, models.ViewpointNeutral, report.Viewpoint)
	assert.Contains(t, report.Reason, models.MarkerReportError)
	assert.Contains(t, report.Reason, "rate limited")
	// Every score key is present and zeroed.
	for _, key := range models.ScoreKeysFor(models.PerspectiveFund) {
		score, ok := report.Scores[key]
		require.True(t, ok)
		assert.Equal(t, 0, score)
	}

	// The error report is persisted like any other.
	_, err := store.LoadReport(req.StockCode, req.Date, interfaces.ArtifactFundReport)
	assert.NoError(t, err)
}

func TestRunUnparseableOutputFallsBack(t *testing.T) {
	llm := &cannedLLM{response: "今天天气不错"}
	svc, _, _ := newTestAnalysts(t, llm)

	report := svc.Run(context.Background(), models.PerspectiveTechnical, testRequest(), "data")
	assert.Equal(t, models.AnalystNameFailed, report.AnalystName)
	assert.Equal(t, "数据解析失败", report.Reason)
}

func TestRunSupervisor(t *testing.T) {
	supervisorJSON := `{
  "analyst_name": "总决策分析师",
  "summary": "整体偏多，建议分批建仓。",
  "forecast": {
    "short_term": {"bias": "看多", "prediction": "p", "suggestion": "s", "reason": "r", "risks": ["波动"]},
    "mid_term": {"bias": "看多", "prediction": "p", "suggestion": "s", "reason": "r", "risks": []},
    "long_term": {"bias": "中性", "prediction": "p", "suggestion": "s", "reason": "r", "risks": []}
  }
}`
	llm := &cannedLLM{response: supervisorJSON}
	svc, store, _ := newTestAnalysts(t, llm)
	req := testRequest()
	req.Agent = "supervisor"

	fundamental := &models.AnalystReport{AnalystName: models.AnalystNameFundamental, Viewpoint: models.ViewpointBull, Scores: map[string]int{"profitability": 5}}
	inputs := SupervisorInputsFrom(fundamental, nil, nil, nil, "【新闻分析】整体正面")

	report := svc.RunSupervisor(context.Background(), req, inputs)
	assert.Equal(t, models.AnalystNameSupervisor, report.AnalystName)
	assert.Equal(t, models.ViewpointBull, report.Forecast.ShortTerm.Bias)

	// Prompt fuses the report JSON and the raw news summary.
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "基本面分析师")
	assert.Contains(t, llm.prompts[0], "【新闻分析】整体正面")

	_, err := store.LoadReport(req.StockCode, req.Date, interfaces.ArtifactSupervisorReport)
	assert.NoError(t, err)
}

func TestRunSupervisorLLMFailure(t *testing.T) {
	llm := &cannedLLM{err: errors.New("boom")}
	svc, _, _ := newTestAnalysts(t, llm)

	report := svc.RunSupervisor(context.Background(), testRequest(), interfaces.SupervisorInputs{})
	assert.Equal(t, models.AnalystNameFailed, report.AnalystName)
	assert.Equal(t, models.ViewpointNeutral, report.Forecast.ShortTerm.Bias)
}

func TestDebateRoundTrip(t *testing.T) {
	bullJSON := `{"analyst_name": "看涨派分析师", "viewpoint": "看多",
  "core_arguments": ["基本面5分"], "rebuttals": ["短期回调无碍"], "final_statement": "坚定看多"}`
	llm := &cannedLLM{response: bullJSON}
	svc, store, _ := newTestAnalysts(t, llm)
	req := testRequest()
	req.Agent = "bull_debate"

	inputs := DebateInputsFrom(
		&models.AnalystReport{AnalystName: models.AnalystNameFundamental, Viewpoint: models.ViewpointBull},
		nil, nil, nil, nil)

	bull := svc.RunBullDebate(context.Background(), req, inputs)
	assert.Equal(t, models.ViewpointBull, bull.Viewpoint)
	_, err := store.LoadReport(req.StockCode, req.Date, artifactBullReport)
	assert.NoError(t, err)

	judgeJSON := `{"analyst_name": "首席投资分析师", "bull_summary": ["a"], "bear_summary": ["b"],
  "score_comparison": {"bull_avg_score": 4, "bear_avg_score": 2},
  "final_viewpoint": "看多", "final_reason": "多头占优"}`
	llm.response = judgeJSON

	verdict := svc.RunDebateJudge(context.Background(), req, inputs, bull, nil)
	assert.Equal(t, "看多", verdict.FinalViewpoint)
	_, err = store.LoadReport(req.StockCode, req.Date, artifactDebateReport)
	assert.NoError(t, err)
}
