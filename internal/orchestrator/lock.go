package orchestrator

import (
	"context"

	"github.com/optctl/opt-orchestrator/internal/optdomain"
)

// CancelJob locks a job into the canceled terminal state. Idempotent:
// a job already locked to any terminal status (canceled or otherwise)
// is left untouched.
func (o *Orchestrator) CancelJob(ctx context.Context, jobID, ownerID string, reason *string) (*StatusView, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, ok := o.store.Jobs[jobID]
	if !ok {
		return nil, optdomain.ErrJobNotFound
	}
	if job.OwnerID != ownerID {
		return nil, optdomain.ErrForbidden
	}

	reasonText := ""
	if reason != nil {
		reasonText = *reason
	}
	o.lockJob(ctx, job, optdomain.JobCanceled, &optdomain.StopReason{
		Kind:   optdomain.StopCanceled,
		Reason: reasonText,
	})

	running, queueDepth := o.jobGaugeCounts(job)
	view := statusViewOf(job, running, queueDepth)
	return &view, nil
}

// lockJob performs a terminal transition: idempotent once a job is
// already locked, otherwise it snaps
// every non-terminal task to the locked status, emits stop metrics
// and the stop log line, and refreshes/persists the job. Unexported,
// non-locking — callers must already hold o.mu.
func (o *Orchestrator) lockJob(ctx context.Context, job *optdomain.OptimizationJob, lockedStatus optdomain.JobStatus, reason *optdomain.StopReason) {
	if job.LockedStatus != nil {
		return
	}

	now := o.now()
	job.LockedStatus = &lockedStatus
	job.StopReason = reason
	job.Status = lockedStatus

	taskStatus := optdomain.TaskStatus(lockedStatus)
	for _, t := range o.store.TasksInOrder(job.ID) {
		if t.Status.IsTerminal() {
			continue
		}
		t.Status = taskStatus
		progress := 1.0
		t.Progress = &progress
		t.Throttled = false
		t.Error = nil
		t.LastError = nil
		t.NextRunAt = now
		t.UpdatedAt = now
		o.mirror.UpdateTask(ctx, job.ID, t)
	}

	stopKind := ""
	if reason != nil {
		stopKind = string(reason.Kind)
	}
	o.metrics.ObserveJobStop(job.ID, job.OwnerID, string(lockedStatus), stopKind)
	if reason != nil && reason.Kind == optdomain.StopEarlyStopThreshold {
		o.metrics.SetJobStopThreshold(job.ID, job.OwnerID, reason.Threshold)
		o.metrics.SetJobStopScore(job.ID, job.OwnerID, reason.Score)
	}
	o.log.LogStop(job.ID, job.OwnerID, string(lockedStatus), reason)

	o.refreshSummary(job)
	o.mirror.UpdateJob(ctx, job)
}

// checkEarlyStop evaluates the early-stop policy against the current
// Top-N leaderboard after a successful task, locking the job when the
// best observed score crosses the configured threshold. Unexported,
// non-locking — callers must already hold o.mu.
func (o *Orchestrator) checkEarlyStop(ctx context.Context, job *optdomain.OptimizationJob) {
	if job.EarlyStopPolicy == nil || job.LockedStatus != nil {
		return
	}
	if len(job.Summary.TopN) == 0 {
		return
	}

	policy := job.EarlyStopPolicy
	best := job.Summary.TopN[0].Score
	for _, entry := range job.Summary.TopN[1:] {
		if policy.Mode == optdomain.ModeMin {
			if entry.Score < best {
				best = entry.Score
			}
		} else if entry.Score > best {
			best = entry.Score
		}
	}

	var triggered bool
	if policy.Mode == optdomain.ModeMin {
		triggered = best <= policy.Threshold
	} else {
		triggered = best >= policy.Threshold
	}
	if !triggered {
		return
	}

	o.lockJob(ctx, job, optdomain.JobEarlyStopped, &optdomain.StopReason{
		Kind:      optdomain.StopEarlyStopThreshold,
		Metric:    policy.Metric,
		Threshold: policy.Threshold,
		Score:     best,
		Mode:      policy.Mode,
	})
}

func (o *Orchestrator) jobGaugeCounts(job *optdomain.OptimizationJob) (running, queueDepth int) {
	return job.Summary.Running, job.Summary.Throttled
}
