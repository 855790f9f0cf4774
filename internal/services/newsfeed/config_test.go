package newsfeed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestLoader_DefaultsWithoutFile(t *testing.T) {
	loader := NewLoader("", arbor.NewLogger())

	tuning := loader.Snapshot()
	assert.Equal(t, 3, tuning.WindowDays)
	assert.Equal(t, 10, tuning.TopK)
	assert.InDelta(t, 1.3, tuning.SourceWeights["中国证监会"], 1e-9)
	assert.True(t, tuning.PriorityRegexp().MatchString("公司发布回购公告"))
	assert.False(t, tuning.PriorityRegexp().MatchString("日常经营动态"))
}

func TestLoader_AppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsfeed.yaml")
	content := `
news_window_days: 7
news_topk: 5
source_weights:
  新华社: 1.3
priority_keywords: ["定向增发"]
industry_upper_map:
  白酒: ["食品饮料"]
macro_event_boost: 1.6
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	loader := NewLoader(path, arbor.NewLogger())
	tuning := loader.Snapshot()

	assert.Equal(t, 7, tuning.WindowDays)
	assert.Equal(t, 5, tuning.TopK)
	assert.InDelta(t, 1.3, tuning.SourceWeights["新华社"], 1e-9)
	// Merged, not replaced.
	assert.InDelta(t, 1.2, tuning.SourceWeights["上海证券报"], 1e-9)
	assert.Equal(t, []string{"食品饮料"}, tuning.IndustryUpperMap["白酒"])
	assert.InDelta(t, 1.6, tuning.MacroEventBoost, 1e-9)

	// The keyword list is replaced wholesale and recompiled.
	assert.True(t, tuning.PriorityRegexp().MatchString("公司启动定向增发"))
	assert.False(t, tuning.PriorityRegexp().MatchString("公司发布回购公告"))
}

func TestLoader_ReloadsOnMtimeChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsfeed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("news_topk: 5\n"), 0644))

	loader := NewLoader(path, arbor.NewLogger())
	assert.Equal(t, 5, loader.Snapshot().TopK)

	require.NoError(t, os.WriteFile(path, []byte("news_topk: 8\n"), 0644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Equal(t, 8, loader.Snapshot().TopK)
}

func TestLoader_InvalidFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsfeed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n  - not yaml: ["), 0644))

	loader := NewLoader(path, arbor.NewLogger())
	tuning := loader.Snapshot()
	assert.Equal(t, 3, tuning.WindowDays)
	assert.Equal(t, 10, tuning.TopK)
}

func TestLoader_FileRemovedFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsfeed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("news_topk: 5\n"), 0644))

	loader := NewLoader(path, arbor.NewLogger())
	require.Equal(t, 5, loader.Snapshot().TopK)

	require.NoError(t, os.Remove(path))
	assert.Equal(t, 10, loader.Snapshot().TopK)
}
