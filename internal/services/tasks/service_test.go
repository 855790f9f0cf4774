package tasks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/models"
	"github.com/lunahan/aestimo/internal/storage/badger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := badger.NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewService(badger.NewTaskStorage(db, logger), logger)
}

func TestCreateAndGet(t *testing.T) {
	svc := newTestService(t)

	task, err := svc.Create("600519.SH", "2025-08-22")
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, models.TaskStatusPending, task.Status)

	got, ok := svc.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, "600519.SH", got.StockCode)
	assert.Equal(t, "2025-08-22", got.EndDate)
}

func TestGetUnknownID(t *testing.T) {
	svc := newTestService(t)
	_, ok := svc.Get("task_missing")
	assert.False(t, ok)
}

func TestLifecycleTransitions(t *testing.T) {
	svc := newTestService(t)
	task, err := svc.Create("000001.SZ", "")
	require.NoError(t, err)

	require.NoError(t, svc.MarkRunning(task.ID))
	got, ok := svc.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusRunning, got.Status)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))

	result := json.RawMessage(`{"summary":"整体向好"}`)
	require.NoError(t, svc.Complete(task.ID, result))
	got, ok = svc.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
	assert.JSONEq(t, `{"summary":"整体向好"}`, string(got.Result))
}

func TestFailStoresReason(t *testing.T) {
	svc := newTestService(t)
	task, err := svc.Create("000001.SZ", "")
	require.NoError(t, err)

	require.NoError(t, svc.Fail(task.ID, "数据获取失败: 接口超时"))
	got, ok := svc.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusFailed, got.Status)
	assert.JSONEq(t, `{"error":"数据获取失败: 接口超时"}`, string(got.Result))
}

func TestTransitionUnknownID(t *testing.T) {
	svc := newTestService(t)
	assert.Error(t, svc.MarkRunning("task_missing"))
}

func TestViewReportsNullResult(t *testing.T) {
	svc := newTestService(t)
	task, err := svc.Create("600519.SH", "")
	require.NoError(t, err)

	view := task.View()
	assert.Equal(t, models.TaskStatusPending, view.Status)
	assert.Equal(t, "null", string(view.Result))
}
