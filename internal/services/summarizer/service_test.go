package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

// scriptedLLM returns canned responses in order and records the prompts it
// receives.
type scriptedLLM struct {
	responses []string
	err       error
	prompts   []string
}

func (m *scriptedLLM) Name() string { return "scripted" }

func (m *scriptedLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	m.prompts = append(m.prompts, messages[len(messages)-1].Content)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", errors.New("no scripted response left")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func (m *scriptedLLM) ChatStream(ctx context.Context, messages []interfaces.Message, onChunk interfaces.ChunkHandler) (string, error) {
	return m.Chat(ctx, messages)
}

func (m *scriptedLLM) HealthCheck(ctx context.Context) error { return nil }
func (m *scriptedLLM) Close() error                          { return nil }

func testLogger() arbor.ILogger { return arbor.NewLogger() }

func sampleTable() *models.Table {
	table := models.NewTable("trade_date", "close", "pe", "noise")
	table.AppendRow(models.String("20250820"), models.Float(10.5), models.Float(12.1), models.String("x"))
	table.AppendRow(models.String("20250821"), models.Float(10.8), models.Float(12.4), models.String("y"))
	return table
}

func TestSelectColumns_FiltersHallucinations(t *testing.T) {
	llm := &scriptedLLM{responses: []string{`["close", "pe", "made_up_column"]`}}
	svc := NewService(llm, 0, testLogger())

	out := svc.SelectColumns(context.Background(), "每日估值水平", []string{"trade_date", "close", "pe"})
	assert.Equal(t, []string{"close", "pe"}, out)
}

func TestSelectColumns_FencedArrayAccepted(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"以下是选择的列：\n```json\n[\"close\"]\n```"}}
	svc := NewService(llm, 0, testLogger())

	out := svc.SelectColumns(context.Background(), "目标", []string{"close", "open"})
	assert.Equal(t, []string{"close"}, out)
}

func TestSelectColumns_FailureKeepsAll(t *testing.T) {
	columns := []string{"trade_date", "close"}

	llm := &scriptedLLM{err: errors.New("boom")}
	svc := NewService(llm, 0, testLogger())
	assert.Equal(t, columns, svc.SelectColumns(context.Background(), "目标", columns))

	llm = &scriptedLLM{responses: []string{"这不是JSON"}}
	svc = NewService(llm, 0, testLogger())
	assert.Equal(t, columns, svc.SelectColumns(context.Background(), "目标", columns))
}

func TestSummarizeTable_EmptyTable(t *testing.T) {
	svc := NewService(&scriptedLLM{}, 0, testLogger())
	assert.Equal(t, NoData, svc.SummarizeTable(context.Background(), "目标", models.NewTable("a"), interfaces.SummaryInsight))
	assert.Equal(t, NoData, svc.SummarizeTable(context.Background(), "目标", nil, interfaces.SummaryInsight))
}

func TestSummarizeTable_NoRelevantColumns(t *testing.T) {
	llm := &scriptedLLM{responses: []string{`[]`}}
	svc := NewService(llm, 0, testLogger())

	out := svc.SummarizeTable(context.Background(), "目标", sampleTable(), interfaces.SummaryInsight)
	assert.Equal(t, NoRelevantColumns, out)
}

func TestSummarizeTable_Success(t *testing.T) {
	llm := &scriptedLLM{responses: []string{`["close", "pe"]`, "估值处于历史低位。"}}
	svc := NewService(llm, 0, testLogger())

	out := svc.SummarizeTable(context.Background(), "每日估值水平", sampleTable(), interfaces.SummaryInsight)
	assert.Equal(t, "估值处于历史低位。", out)

	// The summary prompt only carries the selected columns.
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[1], "close | pe")
	assert.NotContains(t, llm.prompts[1], "noise")
}

func TestSummarizeTable_FundTruncatesRows(t *testing.T) {
	table := models.NewTable("trade_date", "net_amount")
	for i := 0; i < 150; i++ {
		table.AppendRow(models.String("20250101"), models.Float(float64(i)))
	}
	llm := &scriptedLLM{responses: []string{`["trade_date", "net_amount"]`, "主力资金持续流入。"}}
	svc := NewService(llm, 0, testLogger())

	out := svc.SummarizeTable(context.Background(), "个股主力动向", table, interfaces.SummaryFund)
	assert.Equal(t, "主力资金持续流入。", out)

	require.Len(t, llm.prompts, 2)
	// Only the newest 100 rows survive; the oldest 50 are dropped.
	assert.Equal(t, 100, strings.Count(llm.prompts[1], "20250101"))
	assert.NotContains(t, llm.prompts[1], "| 49\n")
	assert.Contains(t, llm.prompts[1], "| 149")
}

func TestSummarizeTable_LLMErrorMarker(t *testing.T) {
	// Selection succeeds, summary call fails.
	llm := &scriptedLLM{responses: []string{`["close"]`}}
	svc := NewService(llm, 0, testLogger())

	out := svc.SummarizeTable(context.Background(), "目标", sampleTable(), interfaces.SummaryTechnical)
	assert.True(t, strings.HasPrefix(out, "生成报告时出错: "), out)

	llm = &scriptedLLM{responses: []string{`["close"]`}}
	svc = NewService(llm, 0, testLogger())
	out = svc.SummarizeTable(context.Background(), "目标", sampleTable(), interfaces.SummaryInsight)
	assert.True(t, strings.HasPrefix(out, "生成摘要时出错: "), out)
}

func TestSummarizeCorpus_Empty(t *testing.T) {
	svc := NewService(&scriptedLLM{}, 0, testLogger())
	assert.Equal(t, NoNewsData, svc.SummarizeCorpus(context.Background(), "快讯新闻分析", nil, 0.55))
}

func TestSummarizeCorpus_SingleBatch(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"整体情绪偏正面。"}}
	svc := NewService(llm, 65536, testLogger())

	items := []string{
		"【2025-08-21 10:00:00 | cls】利好消息\n内容一",
		"【2025-08-20 09:00:00 | sina】平稳消息\n内容二",
	}
	out := svc.SummarizeCorpus(context.Background(), "快讯新闻分析", items, 0.55)

	assert.Equal(t, "【批次 1/1】快讯新闻分析\n整体情绪偏正面。", out)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "样本数:2 批次数:1（按长度合并摘要）")
	assert.Contains(t, llm.prompts[0], "2025-08-20 到 2025-08-21")
}

func TestSummarizeCorpus_BatchErrorMarker(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("rate limited")}
	svc := NewService(llm, 65536, testLogger())

	out := svc.SummarizeCorpus(context.Background(), "快讯新闻分析", []string{"【2025-08-20 09:00:00 | cls】标题\n正文"}, 0.55)
	assert.Contains(t, out, "生成新闻语料摘要时出错: rate limited")
	assert.Contains(t, out, "【批次 1/1】")
}
