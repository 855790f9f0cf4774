package newsfeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/models"
)

func TestEventKey_Canonicalization(t *testing.T) {
	// Reposts differing in punctuation, digits and wire prefixes collapse.
	a := eventKey("【快讯】XX股份：拟回购1200万股！")
	b := eventKey("最新 XX股份：拟回购3400万股")
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)

	assert.NotEqual(t, eventKey("XX股份中标大单"), eventKey("YY集团中标大单"))
}

func TestDedupeEvents_MergesSourcesAndPicksRepresentative(t *testing.T) {
	old := time.Date(2025, 8, 24, 10, 0, 0, 0, common.BeijingZone)
	fresh := time.Date(2025, 8, 25, 18, 0, 0, 0, common.BeijingZone)

	items := []*workItem{
		{
			item: models.NewsItem{Title: "XX股份回购公告", URL: "https://a.example.com/1", SourceNorm: "东方财富"},
			ts:   old, hasTS: true, srcWeight: 1.05,
		},
		{
			item: models.NewsItem{Title: "快讯：XX股份回购公告！", URL: "https://b.example.com/2", SourceNorm: "上海证券报"},
			ts:   fresh, hasTS: true, srcWeight: 1.2,
		},
		{
			item: models.NewsItem{Title: "另一条不相关新闻", URL: "https://c.example.com/3", SourceNorm: "财联社"},
			ts:   old, hasTS: true, srcWeight: 1.15,
		},
	}

	out := dedupeEvents(items)
	require.Len(t, out, 2)

	rep := out[0]
	assert.Equal(t, "https://b.example.com/2", rep.item.URL, "newer duplicate wins")
	assert.Equal(t, []string{"东方财富", "上海证券报"}, rep.item.Sources)
	assert.Equal(t, []string{"https://a.example.com/1", "https://b.example.com/2"}, rep.item.URLs)

	assert.Equal(t, "另一条不相关新闻", out[1].item.Title)
}

func TestDedupeEvents_PriorityBeatsRecency(t *testing.T) {
	old := time.Date(2025, 8, 24, 10, 0, 0, 0, common.BeijingZone)
	fresh := old.Add(24 * time.Hour)

	items := []*workItem{
		{item: models.NewsItem{Title: "XX股份年报发布", URL: "https://a.example.com/1"}, ts: fresh, hasTS: true},
		{item: models.NewsItem{Title: "XX股份年报发布", URL: "https://b.example.com/2", Priority: true}, ts: old, hasTS: true},
	}

	out := dedupeEvents(items)
	require.Len(t, out, 1)
	assert.Equal(t, "https://b.example.com/2", out[0].item.URL)
}
