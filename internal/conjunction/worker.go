package conjunction

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sentinel/orbitgo/internal/orbit"
)

// propagateJob is a unit of work for the worker pool.
type propagateJob struct {
	index int
	obj   orbit.Object
	t     float64
}

// propagateResult is the output of a single object propagation.
type propagateResult struct {
	index    int
	position ObjectPosition
	err      error
}

// WorkerPool manages a fixed number of goroutines for parallel propagation.
// Each object's propagation is independent, so the catalog can be fanned out
// freely; results are reassembled in catalog order so downstream screening
// stays deterministic.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// PropagateBatch propagates all objects to sim time t using the worker pool.
// Returns positions in catalog order for every object that propagated
// cleanly, plus success and error counts. Failed objects are logged and
// skipped; a malformed element set must never fault a detection pass.
func (wp *WorkerPool) PropagateBatch(ctx context.Context, objects []orbit.Object, t float64) ([]ObjectPosition, int, int) {
	if len(objects) == 0 {
		return nil, 0, 0
	}

	jobs := make(chan propagateJob, wp.workers*2)
	results := make(chan propagateResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := propagateSingle(job)
				select {
				case results <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Feed jobs in a goroutine.
	go func() {
		defer close(jobs)
		for i, obj := range objects {
			select {
			case jobs <- propagateJob{index: i, obj: obj, t: t}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Close results when all workers are done.
	go func() {
		wg.Wait()
		close(results)
	}()

	// Reassemble into catalog order via the job index.
	ordered := make([]*ObjectPosition, len(objects))
	var successCount, errorCount int

	for result := range results {
		if result.err != nil {
			errorCount++
			wp.logger.Warn("propagation failed",
				"object_id", objects[result.index].ID,
				"error", result.err,
			)
			continue
		}
		successCount++
		pos := result.position
		ordered[result.index] = &pos
	}

	positions := make([]ObjectPosition, 0, successCount)
	for _, p := range ordered {
		if p != nil {
			positions = append(positions, *p)
		}
	}
	return positions, successCount, errorCount
}

// propagateSingle propagates one object through the Keplerian model.
func propagateSingle(job propagateJob) propagateResult {
	p, err := job.obj.Elements.PositionAt(job.t)
	if err != nil {
		return propagateResult{index: job.index, err: err}
	}
	return propagateResult{
		index: job.index,
		position: ObjectPosition{
			ID:       job.obj.ID,
			Name:     job.obj.Name,
			Type:     job.obj.Type,
			Position: p,
		},
	}
}
