package orchestrator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/optctl/opt-orchestrator/internal/optdomain"
)

// MarkTaskSucceeded records a successful task outcome, lazily creates
// its result-summary stub when resultSummaryId is supplied, and checks
// whether the job's early-stop policy now triggers. A no-op against a
// locked job, returning the task's current state.
func (o *Orchestrator) MarkTaskSucceeded(ctx context.Context, jobID, taskID string, score *float64, resultSummaryID *string) (*optdomain.OptimizationTask, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, task, err := o.lookupTask(jobID, taskID)
	if err != nil {
		return nil, err
	}

	if job.LockedStatus != nil {
		return task, nil
	}

	now := o.now()
	task.Status = optdomain.TaskSucceeded
	progress := 1.0
	task.Progress = &progress
	task.Throttled = false
	task.Error = nil
	task.LastError = nil
	task.Score = score
	task.ResultSummaryID = resultSummaryID
	task.UpdatedAt = now

	if resultSummaryID != nil {
		o.upsertResultSummary(job, task, *resultSummaryID, score)
	}

	o.activateSlots(job)
	o.refreshSummary(job)
	o.mirror.UpdateTask(ctx, job.ID, task)
	o.checkEarlyStop(ctx, job)

	return task, nil
}

func (o *Orchestrator) upsertResultSummary(job *optdomain.OptimizationJob, task *optdomain.OptimizationTask, stubID string, score *float64) {
	metricsScore := 0.0
	if score != nil {
		metricsScore = *score
	}

	if existing, ok := o.store.ResultSummaries[stubID]; ok {
		existing.Metrics["score"] = metricsScore
		return
	}

	o.store.ResultSummaries[stubID] = &optdomain.ResultSummary{
		ID:      stubID,
		OwnerID: job.OwnerID,
		Metrics: map[string]any{"score": metricsScore},
		Artifacts: []optdomain.Artifact{
			{Type: "metrics", URL: fmt.Sprintf("/internal/optimizations/results/%s/metrics", stubID)},
			{Type: "equity", URL: fmt.Sprintf("/internal/optimizations/results/%s/equity", stubID)},
			{Type: "trades", URL: fmt.Sprintf("/internal/optimizations/results/%s/trades", stubID)},
		},
		EquityCurveRef: fmt.Sprintf("equity://%s", stubID),
		TradesRef:      fmt.Sprintf("trades://%s", stubID),
		CreatedAt:      o.now(),
	}
}

// MarkTaskFailed records a failed task outcome, scheduling a retry with
// monotonic exponential backoff when the error kind is retryable and
// the task has not exhausted its retry budget. A no-op against a
// locked job, returning the task's current state.
func (o *Orchestrator) MarkTaskFailed(ctx context.Context, jobID, taskID string, errorType optdomain.TaskErrorKind, message string) (*optdomain.OptimizationTask, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, task, err := o.lookupTask(jobID, taskID)
	if err != nil {
		return nil, err
	}

	if job.LockedStatus != nil {
		return task, nil
	}

	now := o.now()
	taskErr := &optdomain.TaskError{Code: errorType, Message: message}
	task.Error = taskErr
	task.LastError = taskErr

	retryable := errorType.Retryable() && task.Retries < o.cfg.MaxRetries
	if retryable {
		task.Retries++
		backoff := time.Duration(float64(o.cfg.RetryBaseSeconds)*math.Pow(2, float64(task.Retries-1))) * time.Second
		task.NextRunAt = now.Add(backoff)
		task.Status = optdomain.TaskQueued
		task.Throttled = false
		task.Progress = nil
		o.metrics.IncJobRetryTotal(job.ID)
	} else {
		task.Status = optdomain.TaskFailed
		task.Throttled = false
		task.NextRunAt = now
	}
	task.UpdatedAt = now

	o.activateSlots(job)
	o.refreshSummary(job)
	o.mirror.UpdateTask(ctx, job.ID, task)
	o.log.LogError(job.ID, job.OwnerID, string(errorType), message)

	return task, nil
}

func (o *Orchestrator) lookupTask(jobID, taskID string) (*optdomain.OptimizationJob, *optdomain.OptimizationTask, error) {
	job, ok := o.store.Jobs[jobID]
	if !ok {
		return nil, nil, optdomain.ErrJobNotFound
	}
	tasks, ok := o.store.Tasks[jobID]
	if !ok {
		return nil, nil, optdomain.ErrTaskNotFound
	}
	task, ok := tasks[taskID]
	if !ok {
		return nil, nil, optdomain.ErrTaskNotFound
	}
	return job, task, nil
}
