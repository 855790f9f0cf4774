package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
	"github.com/lunahan/aestimo/internal/storage/badger"
	"github.com/ternarybob/arbor"
)

// Service tracks background analysis runs in the badger task store so
// status survives a restart.
type Service struct {
	storage *badger.TaskStorage
	logger  arbor.ILogger
}

var _ interfaces.TaskService = (*Service)(nil)

// NewService creates the task service over an open store.
func NewService(storage *badger.TaskStorage, logger arbor.ILogger) *Service {
	return &Service{storage: storage, logger: logger}
}

// Create registers a new pending task and returns it.
func (s *Service) Create(stockCode, endDate string) (*models.AnalysisTask, error) {
	now := time.Now()
	task := &models.AnalysisTask{
		ID:        common.NewTaskID(),
		StockCode: stockCode,
		EndDate:   endDate,
		Status:    models.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.storage.SaveTask(task); err != nil {
		return nil, err
	}
	s.logger.Info().Str("task_id", task.ID).Str("stock_code", stockCode).Msg("Analysis task created")
	return task, nil
}

// Get returns the task; ok is false for unknown IDs.
func (s *Service) Get(taskID string) (*models.AnalysisTask, bool) {
	task, err := s.storage.GetTask(taskID)
	if err != nil {
		return nil, false
	}
	return task, true
}

// MarkRunning transitions the task to running.
func (s *Service) MarkRunning(taskID string) error {
	return s.transition(taskID, func(task *models.AnalysisTask) {
		task.Status = models.TaskStatusRunning
	})
}

// Complete stores the final result and transitions to completed.
func (s *Service) Complete(taskID string, result json.RawMessage) error {
	return s.transition(taskID, func(task *models.AnalysisTask) {
		task.Status = models.TaskStatusCompleted
		task.Result = result
	})
}

// Fail stores the failure reason and transitions to failed.
func (s *Service) Fail(taskID string, reason string) error {
	payload, err := json.Marshal(map[string]string{"error": reason})
	if err != nil {
		payload = json.RawMessage(fmt.Sprintf("%q", reason))
	}
	return s.transition(taskID, func(task *models.AnalysisTask) {
		task.Status = models.TaskStatusFailed
		task.Result = payload
	})
}

func (s *Service) transition(taskID string, mutate func(*models.AnalysisTask)) error {
	task, err := s.storage.GetTask(taskID)
	if err != nil {
		return err
	}
	mutate(task)
	task.UpdatedAt = time.Now()
	return s.storage.SaveTask(task)
}
