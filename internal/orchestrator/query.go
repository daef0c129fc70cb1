package orchestrator

import (
	"context"
	"sort"

	"github.com/optctl/opt-orchestrator/internal/optdomain"
)

// GetJobStatus returns a job's current status view after refreshing
// its summary. Owner mismatch returns ErrForbidden; unknown job
// returns ErrJobNotFound.
func (o *Orchestrator) GetJobStatus(ctx context.Context, jobID, ownerID string) (*StatusView, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, err := o.requireOwnedJob(jobID, ownerID)
	if err != nil {
		return nil, err
	}

	o.refreshSummary(job)
	running, queueDepth := o.jobGaugeCounts(job)
	view := statusViewOf(job, running, queueDepth)
	return &view, nil
}

// GetJobSnapshot is GetJobStatus plus the original paramSpace and
// timestamps, used for resume/duplicate flows.
func (o *Orchestrator) GetJobSnapshot(ctx context.Context, jobID, ownerID string) (*SnapshotView, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, err := o.requireOwnedJob(jobID, ownerID)
	if err != nil {
		return nil, err
	}

	o.refreshSummary(job)
	running, queueDepth := o.jobGaugeCounts(job)
	view := snapshotViewOf(job, running, queueDepth)
	return &view, nil
}

// ListJobs returns every job owned by ownerID, ordered by updatedAt
// descending then by insertion order, capped at limit when limit > 0.
func (o *Orchestrator) ListJobs(ctx context.Context, ownerID string, limit int) ([]SnapshotView, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	type indexed struct {
		job *optdomain.OptimizationJob
		idx int
	}
	owned := make([]indexed, 0)
	for idx, job := range o.store.JobsInOrder() {
		if job.OwnerID != ownerID {
			continue
		}
		o.refreshSummary(job)
		owned = append(owned, indexed{job: job, idx: idx})
	}

	sort.SliceStable(owned, func(i, j int) bool {
		a, b := owned[i].job, owned[j].job
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return owned[i].idx < owned[j].idx
	})

	if limit > 0 && len(owned) > limit {
		owned = owned[:limit]
	}

	out := make([]SnapshotView, 0, len(owned))
	for _, item := range owned {
		running, queueDepth := o.jobGaugeCounts(item.job)
		out = append(out, snapshotViewOf(item.job, running, queueDepth))
	}
	return out, nil
}

// ExportTopNBundle joins each Top-N entry's task params and
// result-summary stub into the export payload.
func (o *Orchestrator) ExportTopNBundle(ctx context.Context, jobID, ownerID string) (*ExportBundle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, err := o.requireOwnedJob(jobID, ownerID)
	if err != nil {
		return nil, err
	}
	o.refreshSummary(job)

	taskByID := o.store.Tasks[jobID]
	items := make([]ExportItem, 0, len(job.Summary.TopN))
	for _, entry := range job.Summary.TopN {
		task, ok := taskByID[entry.TaskID]
		if !ok {
			continue
		}
		item := ExportItem{
			TaskID:          entry.TaskID,
			Score:           entry.Score,
			Params:          task.Params,
			ResultSummaryID: entry.ResultSummaryID,
		}
		if entry.ResultSummaryID != nil {
			if stub, ok := o.store.ResultSummaries[*entry.ResultSummaryID]; ok {
				item.Metrics = stub.Metrics
				item.Artifacts = stub.Artifacts
			}
		}
		items = append(items, item)
	}

	return &ExportBundle{
		JobID:       job.ID,
		Status:      job.Status,
		GeneratedAt: o.now(),
		Summary:     job.Summary,
		Items:       items,
	}, nil
}

func (o *Orchestrator) requireOwnedJob(jobID, ownerID string) (*optdomain.OptimizationJob, error) {
	job, ok := o.store.Jobs[jobID]
	if !ok {
		return nil, optdomain.ErrJobNotFound
	}
	if job.OwnerID != ownerID {
		return nil, optdomain.ErrForbidden
	}
	return job, nil
}
