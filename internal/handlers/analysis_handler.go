package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

// AnalysisRunner executes one full analysis pipeline run.
type AnalysisRunner interface {
	Run(ctx context.Context, stockCode, endDate, threadID string) (*models.RunSummary, error)
}

var stockCodePattern = regexp.MustCompile(`^\d{6}\.(SZ|SH|BJ)$`)

// AnalyzeRequest is the body of analyze_stock and stream_analysis calls.
// end_date accepts YYYYMMDD, YYYY-MM-DD, YYYY/MM/DD or YYYY.MM.DD and
// defaults to today.
type AnalyzeRequest struct {
	StockCode string `json:"stock_code" validate:"required,stock_code"`
	EndDate   string `json:"end_date"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	// registration only fails for an empty tag
	_ = v.RegisterValidation("stock_code", func(fl validator.FieldLevel) bool {
		return stockCodePattern.MatchString(fl.Field().String())
	})
	return v
}

// AnalysisHandler serves the task-based analysis API: launch a background
// run, poll its status.
type AnalysisHandler struct {
	runner   AnalysisRunner
	tasks    interfaces.TaskService
	validate *validator.Validate
	logger   arbor.ILogger
}

func NewAnalysisHandler(runner AnalysisRunner, tasks interfaces.TaskService, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		runner:   runner,
		tasks:    tasks,
		validate: newValidator(),
		logger:   logger,
	}
}

// AnalyzeStockHandler starts a background analysis task.
// POST /api/v1/analyze_stock
func (h *AnalysisHandler) AnalyzeStockHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req AnalyzeRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "无效的股票代码，格式应为 6 位数字加 .SZ/.SH/.BJ 后缀")
		return
	}

	task, err := h.tasks.Create(req.StockCode, req.EndDate)
	if err != nil {
		h.logger.Error().Err(err).Str("stock_code", req.StockCode).Msg("Failed to create analysis task")
		WriteError(w, http.StatusInternalServerError, "Failed to create analysis task")
		return
	}

	go h.runTask(task)

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"task_id":    task.ID,
		"message":    "后台分析任务已启动。",
		"status_url": "/api/v1/get_task_status/" + task.ID,
	})
}

// runTask drives one background analysis to a terminal task state. The
// task ID doubles as the event thread so a client can follow the run on
// the stream while polling status.
func (h *AnalysisHandler) runTask(task *models.AnalysisTask) {
	if err := h.tasks.MarkRunning(task.ID); err != nil {
		h.logger.Warn().Err(err).Str("task_id", task.ID).Msg("Failed to mark task running")
	}

	summary, err := h.runner.Run(context.Background(), task.StockCode, task.EndDate, task.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("task_id", task.ID).Msg("Background analysis failed")
		if ferr := h.tasks.Fail(task.ID, err.Error()); ferr != nil {
			h.logger.Warn().Err(ferr).Str("task_id", task.ID).Msg("Failed to mark task failed")
		}
		return
	}

	result, err := json.Marshal(summary)
	if err != nil {
		h.tasks.Fail(task.ID, "结果序列化失败: "+err.Error())
		return
	}
	if err := h.tasks.Complete(task.ID, result); err != nil {
		h.logger.Warn().Err(err).Str("task_id", task.ID).Msg("Failed to mark task completed")
	}
}

// GetTaskStatusHandler returns one task's status and result.
// GET /api/v1/get_task_status/{task_id}
func (h *AnalysisHandler) GetTaskStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	taskID := r.PathValue("task_id")
	if taskID == "" {
		WriteError(w, http.StatusBadRequest, "task_id is required")
		return
	}

	task, ok := h.tasks.Get(taskID)
	if !ok {
		WriteError(w, http.StatusNotFound, "未找到任务: "+taskID)
		return
	}

	view := task.View()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"task_id": task.ID,
		"status":  view.Status,
		"result":  view.Result,
	})
}
