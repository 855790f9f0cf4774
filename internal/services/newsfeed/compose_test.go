package newsfeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/models"
)

func TestExtractJSONObject(t *testing.T) {
	raw, ok := extractJSONObject("```json\n{\"a\": 1}\n```")
	require.True(t, ok)
	assert.Equal(t, `{"a": 1}`, raw)

	raw, ok = extractJSONObject(`以下是结果：{"a": 1} 供参考`)
	require.True(t, ok)
	assert.Equal(t, `{"a": 1}`, raw)

	_, ok = extractJSONObject("没有任何结构化内容")
	assert.False(t, ok)
}

func TestBuildCorpus_StatAndDetailLines(t *testing.T) {
	ts := time.Date(2025, 8, 25, 9, 0, 0, 0, common.BeijingZone)
	selected := []*workItem{
		{
			item: models.NewsItem{
				Title: "XX股份回购方案获批", Snippet: "回购快讯", PageText: "公司公告称回购方案已获股东大会审议通过。",
				URL: "https://a.example.com/1", SourceNorm: "上海证券报", Level: models.NewsLayerCompany,
				PublishedAt: "2025-08-25 09:00", Sentiment: models.SentimentPositive, Impact: 70,
				Sources: []string{"上海证券报", "财联社"},
			},
			ts: ts, hasTS: true,
		},
		{
			item: models.NewsItem{
				Title: "行业库存去化放缓", URL: "https://b.example.com/2", SourceNorm: "财联社",
				Level: models.NewsLayerIndustry, PublishedAt: "2025-08-24 18:00",
				Sentiment: models.SentimentNegative, Impact: 34,
			},
			ts: ts.Add(-15 * time.Hour), hasTS: true,
		},
		{
			item: models.NewsItem{
				Title: "央行例行操作", URL: "https://c.example.com/3", Level: models.NewsLayerMacro,
				PublishedAt: "2025-08-24 10:00", Sentiment: models.SentimentNeutral, Impact: 50,
				MacroEvent: true,
			},
			ts: ts.Add(-23 * time.Hour), hasTS: true,
		},
	}

	parts := buildCorpus(selected)

	assert.Equal(t, 1, parts.Counts.Positive)
	assert.Equal(t, 1, parts.Counts.Neutral)
	assert.Equal(t, 1, parts.Counts.Negative)
	assert.Equal(t, "统计：正面1 | 中性1 | 负面1（样本数:3）", parts.StatLine)

	// Page text outranks the snippet in the prompt corpus.
	assert.Contains(t, parts.Corpus, "公司公告称回购方案已获股东大会审议通过。")
	assert.NotContains(t, parts.Corpus, "回购快讯")
	assert.Contains(t, parts.Corpus, "来源:上海证券报,财联社")
	assert.Contains(t, parts.Corpus, "影响分:70")
	assert.Contains(t, parts.Corpus, "★宏观事件")

	require.Len(t, parts.DetailLines, 3)
	assert.Equal(t,
		"- [正面][70][company] XX股份回购方案获批 | 上海证券报,财联社 | 2025-08-25 09:00 | https://a.example.com/1",
		parts.DetailLines[0])
	assert.Equal(t,
		"- [中性][50][macro] 央行例行操作 |  | 2025-08-24 10:00 | https://c.example.com/3 ★宏观事件",
		parts.DetailLines[2])
}

func TestFormatStructured(t *testing.T) {
	score := 35
	sum := &structuredSummary{
		OverallSentiment: "正面",
		Reasons:          []string{"回购获批", "资金流入", "政策利好", "多余的第四条"},
		Proportions:      &proportions{Positive: "60%", Neutral: "30%", Negative: "10%"},
		Catalysts:        []horizonPoint{{Point: "中报超预期", Horizon: "短"}},
		Risks:            []horizonPoint{{Point: "行业竞争加剧", Horizon: "中"}},
		PolicyPoints:     []string{"消费补贴延续"},
		Score:            &score,
		OneLiner:         "短期偏多。",
	}

	text := formatStructured(sum)
	assert.Contains(t, text, "总体情绪：正面（情绪分：35）")
	assert.Contains(t, text, "- 回购获批")
	assert.NotContains(t, text, "多余的第四条")
	assert.Contains(t, text, "占比解读：正面60% / 中性30% / 负面10%")
	assert.Contains(t, text, "催化：\n- 中报超预期（短期）")
	assert.Contains(t, text, "风险：\n- 行业竞争加剧（中期）")
	assert.Contains(t, text, "政策/监管要点：\n- 消费补贴延续")
	assert.Contains(t, text, "一句话：短期偏多。")
}

func TestPickEvidence_SkipsAggregatorsAndCaps(t *testing.T) {
	ts := time.Date(2025, 8, 25, 9, 0, 0, 0, common.BeijingZone)

	var selected []*workItem
	selected = append(selected, &workItem{
		item: models.NewsItem{Title: "跳转页", URL: "https://www.bing.com/rebates/x"},
		ts:   ts, hasTS: true,
	})
	selected = append(selected, &workItem{
		item: models.NewsItem{Title: "优先公告", URL: "https://a.example.com/p", Priority: true, Impact: 55},
		ts:   ts.Add(-20 * time.Hour), hasTS: true,
	})
	for i := 0; i < 7; i++ {
		selected = append(selected, &workItem{
			item: models.NewsItem{Title: "普通新闻", URL: "https://a.example.com/n", Impact: 60 - i},
			ts:   ts, hasTS: true,
		})
	}

	evidence := pickEvidence(selected)
	require.Len(t, evidence, evidenceCap)
	assert.Equal(t, "优先公告", evidence[0].Title)
	for _, ev := range evidence {
		assert.NotContains(t, ev.URL, "bing.com")
	}
}

func TestAnnotateItems_AttachesRead(t *testing.T) {
	llm := &cannedLLM{response: `{"summary": "回购获批", "key_points": ["规模上调"], "sentiment": "正面", "confidence": 80}`}
	svc := newTestService(llm)

	high := &workItem{item: models.NewsItem{Title: "回购方案获批", Impact: 70}}
	low := &workItem{item: models.NewsItem{Title: "日常动态", Impact: 50}}

	svc.annotateItems(context.Background(), []*workItem{high, low})

	require.NotNil(t, high.item.ItemRead)
	assert.Equal(t, "回购获批", high.item.ItemSummary)
	assert.Equal(t, "正面", high.item.ItemRead.Sentiment)
	require.NotNil(t, high.item.ItemRead.Confidence)
	assert.Equal(t, 80, *high.item.ItemRead.Confidence)

	assert.Nil(t, low.item.ItemRead, "low impact non-priority items skip the model")
	assert.Len(t, llm.prompts, 1)
}
