// Package optdomain defines the data model for the optimization job
// orchestrator: jobs, tasks, summaries, and the closed sets of status,
// error, and stop-reason values that flow between the store, the
// orchestrator core, and the persistence mirror.
package optdomain

import (
	"time"
)

// TaskStatus is the closed set of states an OptimizationTask can be in.
type TaskStatus string

const (
	TaskQueued       TaskStatus = "queued"
	TaskRunning      TaskStatus = "running"
	TaskSucceeded    TaskStatus = "succeeded"
	TaskFailed       TaskStatus = "failed"
	TaskEarlyStopped TaskStatus = "early-stopped"
	TaskCanceled     TaskStatus = "canceled"
)

// IsTerminal reports whether a task status no longer accepts dispatch.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskSucceeded, TaskFailed, TaskEarlyStopped, TaskCanceled:
		return true
	default:
		return false
	}
}

// JobStatus is the closed set of states an OptimizationJob can be in.
type JobStatus string

const (
	JobQueued       JobStatus = "queued"
	JobRunning      JobStatus = "running"
	JobSucceeded    JobStatus = "succeeded"
	JobFailed       JobStatus = "failed"
	JobEarlyStopped JobStatus = "early-stopped"
	JobCanceled     JobStatus = "canceled"
)

// IsTerminal reports whether a job status is a locked, terminal state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobEarlyStopped, JobCanceled:
		return true
	default:
		return false
	}
}

// TaskErrorKind classifies why a task execution failed. Only Upstream
// and Internal are retryable.
type TaskErrorKind string

const (
	ErrKindParam    TaskErrorKind = "PARAM_ERROR"
	ErrKindUpstream TaskErrorKind = "UPSTREAM_ERROR"
	ErrKindInternal TaskErrorKind = "INTERNAL_ERROR"
)

// Retryable reports whether a task error kind may be retried.
func (k TaskErrorKind) Retryable() bool {
	return k == ErrKindUpstream || k == ErrKindInternal
}

// StopKind is the closed set of reasons a job can be locked into a
// terminal state.
type StopKind string

const (
	StopEarlyStopThreshold StopKind = "EARLY_STOP_THRESHOLD"
	StopCanceled           StopKind = "CANCELED"
)

// EarlyStopMode selects the direction in which a score crossing the
// threshold triggers an early stop.
type EarlyStopMode string

const (
	ModeMin EarlyStopMode = "min"
	ModeMax EarlyStopMode = "max"
)

// EarlyStopPolicy is immutable once set on a job.
type EarlyStopPolicy struct {
	Metric    string        `json:"metric"`
	Threshold float64       `json:"threshold"`
	Mode      EarlyStopMode `json:"mode"`
}

// TaskError is the {code, message} shape carried by Task.Error/LastError.
type TaskError struct {
	Code    TaskErrorKind `json:"code"`
	Message string        `json:"message"`
}

// StopReason records why a job was locked into a terminal state.
type StopReason struct {
	Kind      StopKind      `json:"kind"`
	Reason    string        `json:"reason,omitempty"`
	Metric    string        `json:"metric,omitempty"`
	Threshold float64       `json:"threshold,omitempty"`
	Score     float64       `json:"score,omitempty"`
	Mode      EarlyStopMode `json:"mode,omitempty"`
}

// OptimizationTask is a single parameter-set evaluation belonging to a job.
type OptimizationTask struct {
	ID              string         `json:"id"`
	JobID           string         `json:"jobId"`
	OwnerID         string         `json:"ownerId"`
	VersionID       string         `json:"versionId"`
	Params          map[string]any `json:"params"`
	Status          TaskStatus     `json:"status"`
	Progress        *float64       `json:"progress"`
	Retries         int            `json:"retries"`
	Throttled       bool           `json:"throttled"`
	NextRunAt       time.Time      `json:"nextRunAt"`
	Score           *float64       `json:"score"`
	ResultSummaryID *string        `json:"resultSummaryId"`
	Error           *TaskError     `json:"error"`
	LastError       *TaskError     `json:"lastError"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// TopNEntry is one row of a job's leaderboard.
type TopNEntry struct {
	TaskID          string  `json:"taskId"`
	Score           float64 `json:"score"`
	ResultSummaryID *string `json:"resultSummaryId,omitempty"`
}

// OptimizationSummary aggregates task counts and the leaderboard.
type OptimizationSummary struct {
	Total     int         `json:"total"`
	Finished  int         `json:"finished"`
	Running   int         `json:"running"`
	Throttled int         `json:"throttled"`
	TopN      []TopNEntry `json:"topN"`
}

// OptimizationJob groups tasks generated from one parameter-space
// expansion under a shared concurrency cap and optional early-stop
// policy.
type OptimizationJob struct {
	ID              string           `json:"id"`
	OwnerID         string           `json:"ownerId"`
	VersionID       string           `json:"versionId"`
	ParamSpace      map[string]any   `json:"paramSpace"`
	ConcurrencyLimit int             `json:"concurrencyLimit"`
	EarlyStopPolicy *EarlyStopPolicy `json:"earlyStopPolicy"`
	Status          JobStatus        `json:"status"`
	TotalTasks      int              `json:"totalTasks"`
	Estimate        int              `json:"estimate"`
	Summary         OptimizationSummary `json:"summary"`
	LockedStatus    *JobStatus       `json:"lockedStatus"`
	StopReason      *StopReason      `json:"stopReason"`
	SourceJobID     *string          `json:"sourceJobId"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// ResultSummary is a derived cache entry describing artifacts for a
// finished, scored task.
type ResultSummary struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"ownerId"`
	Metrics       map[string]any `json:"metrics"`
	Artifacts     []Artifact     `json:"artifacts"`
	EquityCurveRef string        `json:"equityCurveRef"`
	TradesRef     string         `json:"tradesRef"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// Artifact is one item in a ResultSummary's artifact list.
type Artifact struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}
