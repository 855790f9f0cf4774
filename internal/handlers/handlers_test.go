package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
	"github.com/lunahan/aestimo/internal/services/events"
)

// fakeRunner records invocations and, when wired to a bus, replays a
// minimal frame sequence ending in the terminal frame.
type fakeRunner struct {
	bus interfaces.EventService
	err error

	mu    sync.Mutex
	calls []string
}

func (f *fakeRunner) Run(_ context.Context, stockCode, endDate, threadID string) (*models.RunSummary, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf("%s|%s|%s", stockCode, endDate, threadID))
	f.mu.Unlock()

	if f.bus != nil {
		progress := models.NewStreamEvent(models.EventProgress, threadID, "fundamental_analysis", "run-1")
		progress.Content = "节点 'fundamental_analysis' 开始执行..."
		f.bus.Publish(progress)

		terminal := models.NewStreamEvent(models.EventMessageChunk, threadID, "system", "final-run")
		terminal.Content = "分析流程已结束。"
		terminal.FinishReason = models.FinishReasonStop
		f.bus.Publish(terminal)
	}

	if f.err != nil {
		return nil, f.err
	}
	return &models.RunSummary{StockCode: stockCode, EndDate: "20250822"}, nil
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// memTasks is an in-memory TaskService for handler tests.
type memTasks struct {
	mu    sync.Mutex
	seq   int
	tasks map[string]*models.AnalysisTask
}

func newMemTasks() *memTasks {
	return &memTasks{tasks: map[string]*models.AnalysisTask{}}
}

func (m *memTasks) Create(stockCode, endDate string) (*models.AnalysisTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	task := &models.AnalysisTask{
		ID:        fmt.Sprintf("task_%d", m.seq),
		StockCode: stockCode,
		EndDate:   endDate,
		Status:    models.TaskStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.tasks[task.ID] = task
	return task, nil
}

func (m *memTasks) Get(taskID string) (*models.AnalysisTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, false
	}
	copied := *task
	return &copied, true
}

func (m *memTasks) setStatus(taskID, status string, result json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("task not found: %s", taskID)
	}
	task.Status = status
	if result != nil {
		task.Result = result
	}
	return nil
}

func (m *memTasks) MarkRunning(taskID string) error {
	return m.setStatus(taskID, models.TaskStatusRunning, nil)
}

func (m *memTasks) Complete(taskID string, result json.RawMessage) error {
	return m.setStatus(taskID, models.TaskStatusCompleted, result)
}

func (m *memTasks) Fail(taskID string, reason string) error {
	payload, _ := json.Marshal(map[string]string{"error": reason})
	return m.setStatus(taskID, models.TaskStatusFailed, payload)
}

func (m *memTasks) status(taskID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task, ok := m.tasks[taskID]; ok {
		return task.Status
	}
	return ""
}

func TestAnalyzeStockStartsBackgroundTask(t *testing.T) {
	tasks := newMemTasks()
	runner := &fakeRunner{}
	h := NewAnalysisHandler(runner, tasks, arbor.NewLogger())

	body := strings.NewReader(`{"stock_code":"600519.SH","end_date":"2025-08-22"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze_stock", body)
	rec := httptest.NewRecorder()
	h.AnalyzeStockHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "后台分析任务已启动。", resp["message"])
	assert.NotEmpty(t, resp["task_id"])
	assert.Equal(t, "/api/v1/get_task_status/"+resp["task_id"], resp["status_url"])

	require.Eventually(t, func() bool {
		return tasks.status(resp["task_id"]) == models.TaskStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, runner.callCount())
}

func TestAnalyzeStockFailureMarksTaskFailed(t *testing.T) {
	tasks := newMemTasks()
	runner := &fakeRunner{err: assert.AnError}
	h := NewAnalysisHandler(runner, tasks, arbor.NewLogger())

	body := strings.NewReader(`{"stock_code":"000001.SZ"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze_stock", body)
	rec := httptest.NewRecorder()
	h.AnalyzeStockHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Eventually(t, func() bool {
		return tasks.status(resp["task_id"]) == models.TaskStatusFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAnalyzeStockRejectsBadCode(t *testing.T) {
	h := NewAnalysisHandler(&fakeRunner{}, newMemTasks(), arbor.NewLogger())

	for _, code := range []string{"600519", "600519.XX", "abc123.SH", ""} {
		body := strings.NewReader(fmt.Sprintf(`{"stock_code":%q}`, code))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze_stock", body)
		rec := httptest.NewRecorder()
		h.AnalyzeStockHandler(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "code %q should be rejected", code)
	}
}

func TestAnalyzeStockRejectsWrongMethod(t *testing.T) {
	h := NewAnalysisHandler(&fakeRunner{}, newMemTasks(), arbor.NewLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze_stock", nil)
	rec := httptest.NewRecorder()
	h.AnalyzeStockHandler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetTaskStatus(t *testing.T) {
	tasks := newMemTasks()
	task, err := tasks.Create("600519.SH", "20250822")
	require.NoError(t, err)
	require.NoError(t, tasks.Complete(task.ID, json.RawMessage(`{"stock_code":"600519.SH"}`)))

	h := NewAnalysisHandler(&fakeRunner{}, tasks, arbor.NewLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/get_task_status/{task_id}", h.GetTaskStatusHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/get_task_status/"+task.ID, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, task.ID, resp["task_id"])
	assert.Equal(t, models.TaskStatusCompleted, resp["status"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/get_task_status/task_unknown", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamAnalysisDeliversFramesUntilTerminal(t *testing.T) {
	bus := events.NewService(arbor.NewLogger())
	defer bus.Close()
	runner := &fakeRunner{bus: bus}
	h := NewStreamHandler(runner, bus, arbor.NewLogger())

	body := strings.NewReader(`{"stock_code":"600519.SH","end_date":"20250822"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stream_analysis", body)
	rec := httptest.NewRecorder()
	h.StreamAnalysisHandler(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	payload := rec.Body.String()
	assert.Contains(t, payload, "data: ")
	assert.Contains(t, payload, "节点 'fundamental_analysis' 开始执行...")
	assert.Contains(t, payload, "分析流程已结束。")

	// frames arrive as data-prefixed JSON blocks
	for _, line := range strings.Split(payload, "\n") {
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		require.True(t, strings.HasPrefix(line, "data: "), "unexpected SSE line %q", line)
		var frame models.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame))
	}
}

func TestStreamAnalysisAcceptsGetQuery(t *testing.T) {
	bus := events.NewService(arbor.NewLogger())
	defer bus.Close()
	h := NewStreamHandler(&fakeRunner{bus: bus}, bus, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream_analysis?stock_code=000001.SZ", nil)
	rec := httptest.NewRecorder()
	h.StreamAnalysisHandler(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "分析流程已结束。")
}

func TestStreamAnalysisRejectsBadCode(t *testing.T) {
	bus := events.NewService(arbor.NewLogger())
	defer bus.Close()
	h := NewStreamHandler(&fakeRunner{bus: bus}, bus, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream_analysis?stock_code=garbage", nil)
	rec := httptest.NewRecorder()
	h.StreamAnalysisHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
