package orchestrator

import (
	"context"
	"fmt"

	"github.com/optctl/opt-orchestrator/internal/obslog"
	"github.com/optctl/opt-orchestrator/internal/optdomain"
	"github.com/optctl/opt-orchestrator/internal/paramspace"
)

// CreateJobInput is create_optimization_job's request shape, minus
// the transport-only fields (the shared secret, checked by
// internal/httpapi before this is called, and the client-supplied
// estimate, which internal/httpapi accepts but does not pass on).
type CreateJobInput struct {
	OwnerID          string
	VersionID        string
	ParamSpace       map[string]any
	KeyOrder         []string // declared key order; falls back to sorted keys when empty
	ConcurrencyLimit int
	EarlyStopPolicy  *optdomain.EarlyStopPolicy
	SourceJobID      *string
}

// CreateJob validates and normalizes the param space, generates tasks,
// stores the job, and emits the throttled_requests metric when
// dispatch starts throttled.
func (o *Orchestrator) CreateJob(ctx context.Context, in CreateJobInput) (*CreateResult, error) {
	if in.OwnerID == "" {
		return nil, &paramspace.InvalidError{Message: "ownerId is required"}
	}
	if in.ConcurrencyLimit <= 0 || in.ConcurrencyLimit > o.cfg.ConcurrencyLimitMax {
		return nil, &paramspace.InvalidError{
			Message: fmt.Sprintf("concurrencyLimit must be between 1 and %d", o.cfg.ConcurrencyLimitMax),
			Details:  map[string]any{"concurrencyLimit": in.ConcurrencyLimit, "max": o.cfg.ConcurrencyLimitMax},
		}
	}

	keyOrder := in.KeyOrder
	if len(keyOrder) == 0 {
		keyOrder = paramspace.KeyOrderOf(in.ParamSpace)
	}

	normalized, estimate, err := paramspace.Normalize(in.ParamSpace, keyOrder, o.cfg.ParamSpaceMax)
	if err != nil {
		return nil, err
	}

	generated := paramspace.Generate(normalized, in.ConcurrencyLimit)

	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	jobID := o.newID()

	tasks := make([]*optdomain.OptimizationTask, 0, len(generated))
	anyThrottled := false
	for _, g := range generated {
		if g.Throttled {
			anyThrottled = true
		}
		tasks = append(tasks, &optdomain.OptimizationTask{
			ID:        o.newID(),
			JobID:     jobID,
			OwnerID:   in.OwnerID,
			VersionID: in.VersionID,
			Params:    g.Params,
			Status:    optdomain.TaskQueued,
			Retries:   0,
			Throttled: g.Throttled,
			NextRunAt: now,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	job := &optdomain.OptimizationJob{
		ID:               jobID,
		OwnerID:          in.OwnerID,
		VersionID:        in.VersionID,
		ParamSpace:       in.ParamSpace,
		ConcurrencyLimit: in.ConcurrencyLimit,
		EarlyStopPolicy:  in.EarlyStopPolicy,
		Status:           optdomain.JobQueued,
		TotalTasks:       len(tasks),
		Estimate:         estimate,
		SourceJobID:      in.SourceJobID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	o.store.AddJob(job, tasks)
	o.refreshSummary(job)

	if anyThrottled {
		o.metrics.IncThrottledRequests(job.ID)
	}
	o.log.Log(obslog.LevelInfo, "optimization job created", job.ID, job.OwnerID, obslog.PhaseEnqueue, nil, nil, "", nil)

	o.mirror.PersistJob(ctx, job, tasks)

	return &CreateResult{
		ID:          job.ID,
		Status:      job.Status,
		Throttled:   anyThrottled,
		TotalTasks:  job.TotalTasks,
		SourceJobID: job.SourceJobID,
	}, nil
}
