package badger

import (
	"fmt"

	"github.com/lunahan/aestimo/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// TaskStorage persists background analysis tasks so their status survives a
// restart.
type TaskStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTaskStorage creates a new TaskStorage instance
func NewTaskStorage(db *BadgerDB, logger arbor.ILogger) *TaskStorage {
	return &TaskStorage{
		db:     db,
		logger: logger,
	}
}

// SaveTask upserts one task record.
func (s *TaskStorage) SaveTask(task *models.AnalysisTask) error {
	if task.ID == "" {
		return fmt.Errorf("task ID is required")
	}
	if err := s.db.Store().Upsert(task.ID, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// GetTask returns one task record.
func (s *TaskStorage) GetTask(taskID string) (*models.AnalysisTask, error) {
	var task models.AnalysisTask
	if err := s.db.Store().Get(taskID, &task); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.Errorf(models.ErrNotFound, "tasks.get", "task not found: %s", taskID)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// ListTasks returns every stored task, newest first.
func (s *TaskStorage) ListTasks(limit int) ([]*models.AnalysisTask, error) {
	var tasks []*models.AnalysisTask
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&tasks, query); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}
