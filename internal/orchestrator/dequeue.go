package orchestrator

import (
	"context"

	"github.com/optctl/opt-orchestrator/internal/obslog"
	"github.com/optctl/opt-orchestrator/internal/optdomain"
)

// DequeueNext atomically selects and transitions the next eligible
// task to running. When jobID is non-nil, only that job is
// considered; otherwise every job is scanned in insertion order.
// Returns (nil, nil) when nothing is ready to dispatch.
func (o *Orchestrator) DequeueNext(ctx context.Context, ownerID string, jobID *string) (*optdomain.OptimizationTask, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var candidates []*optdomain.OptimizationJob
	if jobID != nil {
		if job, ok := o.store.Jobs[*jobID]; ok {
			candidates = []*optdomain.OptimizationJob{job}
		}
	} else {
		candidates = o.store.JobsInOrder()
	}

	for _, job := range candidates {
		if job.OwnerID != ownerID || job.LockedStatus != nil {
			continue
		}

		o.activateSlots(job)

		tasks := o.store.TasksInOrder(job.ID)
		running := 0
		for _, t := range tasks {
			if t.Status == optdomain.TaskRunning {
				running++
			}
		}
		if running >= job.ConcurrencyLimit {
			continue
		}

		now := o.now()
		for _, t := range tasks {
			if t.Status != optdomain.TaskQueued || t.Throttled || t.NextRunAt.After(now) {
				continue
			}

			t.Status = optdomain.TaskRunning
			progress := 0.0
			t.Progress = &progress
			t.LastError = nil
			t.UpdatedAt = now

			job.Status = optdomain.JobRunning
			o.refreshSummary(job)
			o.mirror.UpdateTask(ctx, job.ID, t)
			o.log.Log(obslog.LevelInfo, "task dispatched", job.ID, job.OwnerID, obslog.PhaseStart, nil, nil, "", nil)

			return t, nil
		}
	}

	return nil, nil
}

// activateSlots refills freed concurrency capacity by un-throttling
// queued tasks in insertion order. Unexported,
// non-locking — callers must already hold o.mu.
func (o *Orchestrator) activateSlots(job *optdomain.OptimizationJob) {
	tasks := o.store.TasksInOrder(job.ID)

	running, readyQueued := 0, 0
	for _, t := range tasks {
		switch {
		case t.Status == optdomain.TaskRunning:
			running++
		case t.Status == optdomain.TaskQueued && !t.Throttled:
			readyQueued++
		}
	}

	capacity := job.ConcurrencyLimit - running - readyQueued
	if capacity <= 0 {
		return
	}

	now := o.now()
	for _, t := range tasks {
		if capacity <= 0 {
			break
		}
		if t.Status != optdomain.TaskQueued || !t.Throttled {
			continue
		}
		t.Throttled = false
		if t.NextRunAt.After(now) {
			t.NextRunAt = now
		}
		t.UpdatedAt = now
		capacity--
	}
}
