package task

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/skillsenselab/parakeet/errors"
)

// Store persists tasks via GORM. Transitions are guarded by the prior status
// in the WHERE clause, so out-of-order or post-delete writes match zero rows
// and silently do nothing.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store on the given GORM session.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new task record.
func (s *Store) Create(ctx context.Context, t *Task) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return errors.DatabaseError(err)
	}
	return nil
}

// Get returns the task with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Task, error) {
	var t Task
	err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("task", id)
	}
	if err != nil {
		return nil, errors.DatabaseError(err)
	}
	return &t, nil
}

// List returns tasks ordered newest first, with the total count before
// paging. An empty status lists all tasks.
func (s *Store) List(ctx context.Context, limit, offset int, status Status) ([]Task, int64, error) {
	q := s.db.WithContext(ctx).Model(&Task{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.DatabaseError(err)
	}

	var tasks []Task
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&tasks).Error
	if err != nil {
		return nil, 0, errors.DatabaseError(err)
	}
	return tasks, total, nil
}

// Delete removes the task record. The task's background execution, if any,
// keeps running; its remaining writes match zero rows.
func (s *Store) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Task{}, "id = ?", id)
	if res.Error != nil {
		return errors.DatabaseError(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.NotFound("task", id)
	}
	return nil
}

// MarkProcessing transitions a queued task to processing and records the
// start time.
func (s *Store) MarkProcessing(ctx context.Context, id string, startTime time.Time) error {
	return s.transition(ctx, id, []Status{StatusQueued}, map[string]interface{}{
		"status":     StatusProcessing,
		"start_time": startTime,
	})
}

// MarkCompleted transitions a processing task to completed with its result.
func (s *Store) MarkCompleted(ctx context.Context, id string, result *Result, audioDuration float64, language string, endTime time.Time, processingSeconds float64) error {
	return s.transition(ctx, id, []Status{StatusProcessing}, map[string]interface{}{
		"status":         StatusCompleted,
		"result":         result,
		"error":          "",
		"end_time":       endTime,
		"duration":       processingSeconds,
		"audio_duration": audioDuration,
		"language":       language,
	})
}

// MarkFailed transitions a queued or processing task to failed with an error
// message and no result. If the task had started, its processing duration is
// recorded from the persisted start time; a task failed while still queued
// has none.
func (s *Store) MarkFailed(ctx context.Context, id string, message string, endTime time.Time) error {
	updates := map[string]interface{}{
		"status":   StatusFailed,
		"result":   nil,
		"error":    message,
		"end_time": endTime,
	}

	var t Task
	err := s.db.WithContext(ctx).Select("start_time").First(&t, "id = ?", id).Error
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.DatabaseError(err)
	}
	if t.StartTime != nil {
		updates["duration"] = endTime.Sub(*t.StartTime).Seconds()
	}

	return s.transition(ctx, id, []Status{StatusQueued, StatusProcessing}, updates)
}

// transition applies updates to the task only while it is in one of the
// expected prior states. Zero matched rows is not an error.
func (s *Store) transition(ctx context.Context, id string, from []Status, updates map[string]interface{}) error {
	err := s.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates).Error
	if err != nil {
		return errors.DatabaseError(err)
	}
	return nil
}
