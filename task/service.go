package task

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/skillsenselab/parakeet/audio"
	"github.com/skillsenselab/parakeet/database"
	"github.com/skillsenselab/parakeet/diarization"
	"github.com/skillsenselab/parakeet/errors"
	"github.com/skillsenselab/parakeet/logger"
	"github.com/skillsenselab/parakeet/transcription"
)

// Service accepts transcription tasks and executes them in the background.
// Submission never blocks on capacity: every accepted task is persisted as
// queued and admitted to processing by the gate.
type Service struct {
	cfg         Config
	db          *database.DB
	normalizer  *audio.Normalizer
	transcriber transcription.Provider
	diarizer    diarization.Provider
	gate        *Gate
	log         *logger.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a task service. diarizer may be nil when diarization is
// disabled; tasks requesting it then complete without speakers.
func NewService(cfg Config, db *database.DB, normalizer *audio.Normalizer, transcriber transcription.Provider, diarizer diarization.Provider, log *logger.Logger) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:         cfg,
		db:          db,
		normalizer:  normalizer,
		transcriber: transcriber,
		diarizer:    diarizer,
		gate:        NewGate(cfg.MaxConcurrent),
		log:         log.WithComponent("task"),
		baseCtx:     ctx,
		cancel:      cancel,
	}, nil
}

// Gate exposes the admission gate for observability.
func (s *Service) Gate() *Gate { return s.gate }

// Submit stages the uploaded content, persists a queued task, and dispatches
// its background execution. It returns as soon as the task is durable.
func (s *Service) Submit(ctx context.Context, content io.Reader, fileName string, params Params) (*Task, error) {
	if fileName == "" {
		return nil, errors.MissingField("file")
	}
	if params.Language == "" {
		params.Language = s.cfg.DefaultLanguage
	}

	t := NewTask(filepath.Base(fileName), params)

	uploadPath := filepath.Join(s.cfg.UploadDir, t.ID+strings.ToLower(filepath.Ext(fileName)))
	if err := stageUpload(uploadPath, content); err != nil {
		return nil, errors.Internal(err)
	}

	store := NewStore(s.db.Session())
	if err := store.Create(ctx, t); err != nil {
		os.Remove(uploadPath)
		return nil, err
	}

	s.log.Info("Task accepted", map[string]interface{}{
		"task_id":   t.ID,
		"file_name": t.FileName,
	})

	s.wg.Add(1)
	go s.run(t, uploadPath)

	return t, nil
}

// Get returns the task with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	return NewStore(s.db.Session()).Get(ctx, id)
}

// List returns tasks newest first. An empty status lists all tasks.
func (s *Service) List(ctx context.Context, limit, offset int, status Status) ([]Task, int64, error) {
	return NewStore(s.db.Session()).List(ctx, limit, offset, status)
}

// Delete removes the task record. A task still executing keeps running; its
// remaining status writes become no-ops.
func (s *Service) Delete(ctx context.Context, id string) error {
	return NewStore(s.db.Session()).Delete(ctx, id)
}

// Close waits for in-flight tasks to finish. If ctx expires first, pending
// work is canceled and Close waits for the workers to unwind.
func (s *Service) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// run executes one task end to end: admission, normalization, exclusive
// inference, optional diarization, and terminal persistence. Transient files
// are removed exactly once on the way out.
func (s *Service) run(t *Task, uploadPath string) {
	defer s.wg.Done()

	ctx := s.baseCtx
	store := NewStore(s.db.Session())
	log := s.log.WithFields(map[string]interface{}{"task_id": t.ID})

	cleanup := NewCleanup(log)
	cleanup.Add(uploadPath)
	defer cleanup.Run()

	if err := s.gate.Acquire(ctx); err != nil {
		log.WithError(err).Warn("Task canceled before admission")
		s.fail(store, t.ID, errors.Internal(err))
		return
	}
	defer s.gate.Release()

	started := time.Now().UTC()
	if err := store.MarkProcessing(ctx, t.ID, started); err != nil {
		log.WithError(err).Error("Failed to mark task processing")
		s.fail(store, t.ID, err)
		return
	}

	result, artifact, err := s.execute(ctx, t, uploadPath, cleanup, log)
	finished := time.Now().UTC()
	if err != nil {
		log.WithError(err).Warn("Task failed")
		s.fail(store, t.ID, err)
		return
	}

	err = store.MarkCompleted(ctx, t.ID, result, artifact.Duration, t.TaskParams.Language, finished, finished.Sub(started).Seconds())
	if err != nil {
		log.WithError(err).Error("Failed to persist task result")
		return
	}

	log.Info("Task completed", map[string]interface{}{
		"processing_seconds": finished.Sub(started).Seconds(),
		"audio_seconds":      artifact.Duration,
		"speakers":           result.HasSpeakers(),
	})
}

// execute performs the media pipeline for one admitted task.
func (s *Service) execute(ctx context.Context, t *Task, uploadPath string, cleanup *Cleanup, log *logger.Logger) (*Result, *audio.Artifact, error) {
	artifact, err := s.normalizer.Normalize(ctx, uploadPath)
	if err != nil {
		return nil, nil, err
	}
	if !artifact.Source {
		cleanup.Add(artifact.Path)
	}

	var resp *transcription.Response
	err = s.gate.Inference(ctx, func(ctx context.Context) error {
		var terr error
		resp, terr = s.transcriber.Transcribe(ctx, transcription.Request{
			AudioPath:  artifact.Path,
			Timestamps: t.TaskParams.IncludeTimestamps,
			Language:   t.TaskParams.Language,
		})
		return terr
	})
	if err != nil {
		return nil, nil, errors.InferenceUnavailable(err)
	}

	result := Result{Text: resp.Text}
	if t.TaskParams.IncludeTimestamps {
		result.Timestamps = resp.Timestamps
	}

	// Diarization is best effort. A failure degrades the result, it never
	// fails the task.
	if t.TaskParams.IncludeDiarization && s.diarizer != nil {
		dresp, derr := s.diarizer.Diarize(ctx, diarization.Request{
			AudioPath:   artifact.Path,
			MinSpeakers: t.TaskParams.MinSpeakers,
			MaxSpeakers: t.TaskParams.MaxSpeakers,
		})
		if derr != nil {
			log.WithError(errors.DiarizationFailed(derr)).Warn("Diarization failed, completing without speakers")
		} else {
			result = MergeSpeakers(result, dresp.Segments)
		}
	}

	return &result, artifact, nil
}

// fail records a terminal failure. Errors here are logged, not returned: the
// task may already be deleted.
func (s *Service) fail(store *Store, id string, cause error) {
	msg := cause.Error()
	if appErr, ok := errors.AsAppError(cause); ok {
		msg = appErr.Message
	}
	if err := store.MarkFailed(context.Background(), id, msg, time.Now().UTC()); err != nil {
		s.log.WithError(err).Error("Failed to persist task failure", map[string]interface{}{
			"task_id": id,
		})
	}
}

// stageUpload copies the uploaded content to its staging path.
func stageUpload(path string, content io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("stage upload: %w", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("stage upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("stage upload: %w", err)
	}
	return nil
}
