// Package refine fills in true file durations for catalog entries that were
// fast-scanned with a placeholder. It talks only to the catalog; a live
// playback session is never touched.
package refine

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/lecternapp/lectern/internal/config"
	"github.com/lecternapp/lectern/internal/store"
)

// maxPoolSize bounds the probe pool regardless of core count. Probing is
// I/O-bound; thousands of files can be queued at once.
const maxPoolSize = 8

// Task is one file awaiting a duration probe.
type Task struct {
	FileID string
	Path   string
}

// Prober resolves the true duration of a single audio file.
type Prober interface {
	Probe(ctx context.Context, path string) (int64, error)
}

// Worker probes files concurrently and flushes results to the catalog in
// bounded batches.
type Worker struct {
	cfg     config.RefinementConfig
	logger  *slog.Logger
	catalog store.Catalog
	prober  Prober
}

// NewWorker creates a refinement worker.
func NewWorker(cfg config.RefinementConfig, logger *slog.Logger, catalog store.Catalog, prober Prober) *Worker {
	return &Worker{
		cfg:     cfg,
		logger:  logger,
		catalog: catalog,
		prober:  prober,
	}
}

// PendingTasks collects every catalog file whose duration is still the
// placeholder zero.
func (w *Worker) PendingTasks(ctx context.Context) ([]Task, error) {
	books, err := w.catalog.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	var tasks []Task
	for _, book := range books {
		files, err := w.catalog.GetBookFiles(ctx, book.ID)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if f.DurationMs == 0 {
				tasks = append(tasks, Task{FileID: f.ID, Path: f.Path})
			}
		}
	}
	return tasks, nil
}

// Refine probes every task with a bounded worker pool and persists successful
// results in batches. Per-file probe failures are dropped: the duration stays
// at its placeholder and the batch keeps going. Returns the number of
// durations persisted.
func (w *Worker) Refine(ctx context.Context, tasks []Task) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}

	workers := w.cfg.Workers
	if workers <= 0 {
		workers = min(maxPoolSize, runtime.NumCPU()+4)
	}
	batchSize := w.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	type result struct {
		fileID     string
		durationMs int64
		ok         bool
	}

	jobs := make(chan Task, len(tasks))
	results := make(chan result, len(tasks))

	for range workers {
		go func() {
			for task := range jobs {
				select {
				case <-ctx.Done():
					results <- result{}
					return
				default:
				}

				durationMs, err := w.prober.Probe(ctx, task.Path)
				if err != nil {
					w.logger.Debug("duration probe failed",
						"file_id", task.FileID,
						"path", task.Path,
						"error", err,
					)
					results <- result{}
					continue
				}
				results <- result{fileID: task.FileID, durationMs: durationMs, ok: true}
			}
		}()
	}

	for _, task := range tasks {
		select {
		case jobs <- task:
		case <-ctx.Done():
			close(jobs)
			return 0, ctx.Err()
		}
	}
	close(jobs)

	persisted := 0
	batch := make([]store.DurationUpdate, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.catalog.UpdateFileDurationBatch(ctx, batch); err != nil {
			return err
		}
		persisted += len(batch)
		batch = batch[:0]
		return nil
	}

	for range len(tasks) {
		select {
		case r := <-results:
			if !r.ok {
				continue
			}
			batch = append(batch, store.DurationUpdate{FileID: r.fileID, DurationMs: r.durationMs})
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return persisted, err
				}
			}
		case <-ctx.Done():
			return persisted, ctx.Err()
		}
	}

	if err := flush(); err != nil {
		return persisted, err
	}

	w.logger.Info("duration refinement complete",
		"tasks", len(tasks),
		"persisted", persisted,
		"dropped", len(tasks)-persisted,
	)
	return persisted, nil
}
