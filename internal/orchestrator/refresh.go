package orchestrator

import (
	"context"
	"reflect"
	"sort"

	"github.com/optctl/opt-orchestrator/internal/optdomain"
)

// refreshSummary recomputes finished/running/throttled counts and the
// Top-N leaderboard, then recomputes the job's status. It is an
// unexported, non-locking helper — callers must already hold o.mu.
// Persists the job only when status or summary actually changed.
func (o *Orchestrator) refreshSummary(job *optdomain.OptimizationJob) {
	prevStatus := job.Status
	prevSummary := job.Summary
	running := o.recomputeSummary(job)

	changed := job.Status != prevStatus || !reflect.DeepEqual(job.Summary, prevSummary)
	if changed {
		job.UpdatedAt = o.now()
		o.mirror.UpdateJob(context.Background(), job)
	}

	o.metrics.SetActiveJobs(job.ID, float64(running))
}

// refreshSummaryNoWriteBack recomputes a job's summary and status
// without bumping updatedAt or writing through to the persistence
// mirror — used while hydrating from storage.
func (o *Orchestrator) refreshSummaryNoWriteBack(job *optdomain.OptimizationJob) {
	o.recomputeSummary(job)
}

// recomputeSummary mutates job.Summary/job.Status in place and
// returns the running count observed. Unexported, non-locking.
func (o *Orchestrator) recomputeSummary(job *optdomain.OptimizationJob) int {
	tasks := o.store.TasksInOrder(job.ID)

	finished, running, throttled := 0, 0, 0
	anyFailed := false
	for _, t := range tasks {
		if t.Status.IsTerminal() {
			finished++
			if t.Status == optdomain.TaskFailed {
				anyFailed = true
			}
		}
		if t.Status == optdomain.TaskRunning {
			running++
		}
		if t.Status == optdomain.TaskQueued && t.Throttled {
			throttled++
		}
	}

	topN := o.computeTopN(job, tasks)

	summary := optdomain.OptimizationSummary{
		Total:     len(tasks),
		Finished:  finished,
		Running:   running,
		Throttled: throttled,
		TopN:      topN,
	}

	var newStatus optdomain.JobStatus
	switch {
	case job.LockedStatus != nil:
		newStatus = *job.LockedStatus
	case finished >= summary.Total && summary.Total > 0:
		if anyFailed {
			newStatus = optdomain.JobFailed
		} else {
			newStatus = optdomain.JobSucceeded
		}
	case running > 0:
		newStatus = optdomain.JobRunning
	default:
		newStatus = optdomain.JobQueued
	}

	job.Summary = summary
	job.Status = newStatus
	return running
}

// computeTopN filters succeeded tasks with a numeric score, sorts them
// by the policy's mode (ascending for "min", descending otherwise),
// and returns at most cfg.TopNLimit entries. A result-summary stub's
// metrics.score, when present, takes precedence over the task's own
// score.
func (o *Orchestrator) computeTopN(job *optdomain.OptimizationJob, tasks []*optdomain.OptimizationTask) []optdomain.TopNEntry {
	type scored struct {
		task  *optdomain.OptimizationTask
		score float64
	}

	candidates := make([]scored, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != optdomain.TaskSucceeded || t.Score == nil {
			continue
		}
		score := *t.Score
		if t.ResultSummaryID != nil {
			if stub, ok := o.store.ResultSummaries[*t.ResultSummaryID]; ok {
				if v, ok := stub.Metrics["score"].(float64); ok {
					score = v
				}
			}
		}
		candidates = append(candidates, scored{task: t, score: score})
	}

	ascending := job.EarlyStopPolicy != nil && job.EarlyStopPolicy.Mode == optdomain.ModeMin
	sort.SliceStable(candidates, func(i, j int) bool {
		if ascending {
			return candidates[i].score < candidates[j].score
		}
		return candidates[i].score > candidates[j].score
	})

	limit := o.cfg.TopNLimit
	if len(candidates) < limit {
		limit = len(candidates)
	}

	out := make([]optdomain.TopNEntry, 0, limit)
	for i := 0; i < limit; i++ {
		c := candidates[i]
		out = append(out, optdomain.TopNEntry{
			TaskID:          c.task.ID,
			Score:           c.score,
			ResultSummaryID: c.task.ResultSummaryID,
		})
	}
	return out
}
