package newsfeed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearchMarkdown(t *testing.T) {
	md := "# 搜索结果\n\n" +
		"[XX股份发布2025年半年度报告](https://finance.example.com/2025/08/20/a.html) | 上海证券报 |\n" +
		"公司实现营业收入十二亿元，同比增长两成以上，净利润创同期新高。\n\n" +
		"[短](https://example.com/tooshort)\n\n" +
		"[XX股份获机构调研](https://news.example.com/b.html)\n" +
		"http://tracking.example.com/pixel\n"

	hits := parseSearchMarkdown(md)
	require.Len(t, hits, 2, "three-rune minimum drops the short title")

	assert.Equal(t, "XX股份发布2025年半年度报告", hits[0].Title)
	assert.Equal(t, "https://finance.example.com/2025/08/20/a.html", hits[0].URL)
	assert.Contains(t, hits[0].Snippet, "营业收入十二亿元")
	assert.Equal(t, "上海证券报", hits[0].SourceRaw)

	// A URL-bearing follow line is not a snippet.
	assert.Equal(t, "XX股份获机构调研", hits[1].Title)
	assert.Empty(t, hits[1].Snippet)
}

func TestParseSearchMarkdown_DuplicateURLsCollapse(t *testing.T) {
	md := "[同一篇文章标题](https://news.example.com/a.html)\n\n" +
		"[同一篇文章标题转发](https://news.example.com/a.html)\n"

	hits := parseSearchMarkdown(md)
	require.Len(t, hits, 1)
	assert.Equal(t, "同一篇文章标题", hits[0].Title)
}

func TestIsValidArticleURL(t *testing.T) {
	assert.True(t, isValidArticleURL("https://news.example.com/a.html"))
	assert.False(t, isValidArticleURL("javascript:void(0)"))
	assert.False(t, isValidArticleURL("ftp://example.com/a"))
	assert.False(t, isValidArticleURL("https://www.bing.com/rebates/deal"))
	assert.False(t, isValidArticleURL(""))
}

func TestNormalizeArticleURL_Netease(t *testing.T) {
	assert.Equal(t,
		"https://www.163.com/dy/article/ABC123.html",
		normalizeArticleURL("https://dy.163.com/article/ABC123.html"))

	unchanged := "https://news.example.com/a.html"
	assert.Equal(t, unchanged, normalizeArticleURL(unchanged))
}

func TestSearchURL_EscapesQuery(t *testing.T) {
	assert.Equal(t,
		"https://www.baidu.com/s?wd=XX%E8%82%A1%E4%BB%BD+%E5%85%AC%E5%91%8A",
		searchURL("XX股份 公告"))
}
