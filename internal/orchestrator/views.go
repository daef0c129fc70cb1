package orchestrator

import (
	"time"

	"github.com/optctl/opt-orchestrator/internal/optdomain"
)

// CreateResult is the body create_optimization_job returns.
type CreateResult struct {
	ID          string              `json:"id"`
	Status      optdomain.JobStatus `json:"status"`
	Throttled   bool                `json:"throttled"`
	TotalTasks  int                 `json:"totalTasks"`
	SourceJobID *string             `json:"sourceJobId,omitempty"`
}

// Diagnostics is the nested diagnostics object on StatusView.
type Diagnostics struct {
	Throttled  bool                   `json:"throttled"`
	QueueDepth int                    `json:"queueDepth"`
	Running    int                    `json:"running"`
	Final      *bool                  `json:"final,omitempty"`
	StopReason *optdomain.StopReason  `json:"stopReason,omitempty"`
}

// StatusView is the body get_job_status returns.
type StatusView struct {
	ID               string                        `json:"id"`
	Status           optdomain.JobStatus           `json:"status"`
	TotalTasks       int                           `json:"totalTasks"`
	ConcurrencyLimit int                           `json:"concurrencyLimit"`
	Summary          optdomain.OptimizationSummary `json:"summary"`
	Diagnostics      Diagnostics                   `json:"diagnostics"`
	EarlyStopPolicy  *optdomain.EarlyStopPolicy    `json:"earlyStopPolicy"`
	SourceJobID      *string                       `json:"sourceJobId,omitempty"`
}

// SnapshotView is the body get_job_snapshot / list_jobs returns: a
// StatusView plus the original paramSpace and timestamps.
type SnapshotView struct {
	StatusView
	ParamSpace map[string]any `json:"paramSpace"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// ExportItem is one row of export_top_n_bundle's items list.
type ExportItem struct {
	TaskID          string               `json:"taskId"`
	Score           float64              `json:"score"`
	Params          map[string]any       `json:"params"`
	ResultSummaryID *string              `json:"resultSummaryId,omitempty"`
	Metrics         map[string]any       `json:"metrics,omitempty"`
	Artifacts       []optdomain.Artifact `json:"artifacts,omitempty"`
}

// ExportBundle is the body export_top_n_bundle returns.
type ExportBundle struct {
	JobID       string                        `json:"jobId"`
	Status      optdomain.JobStatus           `json:"status"`
	GeneratedAt time.Time                     `json:"generatedAt"`
	Summary     optdomain.OptimizationSummary `json:"summary"`
	Items       []ExportItem                  `json:"items"`
}

func statusViewOf(job *optdomain.OptimizationJob, running, queueDepth int) StatusView {
	var final *bool
	var stopReason *optdomain.StopReason
	if job.LockedStatus != nil {
		f := true
		final = &f
		stopReason = job.StopReason
	}
	return StatusView{
		ID:               job.ID,
		Status:           job.Status,
		TotalTasks:       job.TotalTasks,
		ConcurrencyLimit: job.ConcurrencyLimit,
		Summary:          job.Summary,
		Diagnostics: Diagnostics{
			Throttled:  job.Summary.Throttled > 0,
			QueueDepth: queueDepth,
			Running:    running,
			Final:      final,
			StopReason: stopReason,
		},
		EarlyStopPolicy: job.EarlyStopPolicy,
		SourceJobID:     job.SourceJobID,
	}
}

func snapshotViewOf(job *optdomain.OptimizationJob, running, queueDepth int) SnapshotView {
	return SnapshotView{
		StatusView: statusViewOf(job, running, queueDepth),
		ParamSpace: job.ParamSpace,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
	}
}
