// Package postgres implements the persistence mirror: a write-through
// relational store for jobs and tasks, backed by pgx/v5, using the
// usual pooling conventions (ParseConfig + pool-size tuning + Ping on
// startup).
package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optctl/opt-orchestrator/internal/metrics"
	"github.com/optctl/opt-orchestrator/internal/obslog"
	"github.com/optctl/opt-orchestrator/internal/optdomain"
)

// Mirror is the pgx-backed implementation of orchestrator.Mirror. All
// write methods swallow backend errors into a structured-log entry
// and a counter rather than returning them — the in-memory store
// remains authoritative at runtime.
type Mirror struct {
	pool    *pgxpool.Pool
	log     *obslog.Logger
	metrics *metrics.Registry
}

// New builds a Mirror with no pool configured; call Connect to enable
// persistence.
func New(log *obslog.Logger, reg *metrics.Registry) *Mirror {
	return &Mirror{log: log, metrics: reg}
}

// Connect opens a pool against dsn, pings it, and applies the schema.
// An empty dsn is rejected by the caller (config.PersistenceEnabled)
// before Connect is ever invoked.
func (m *Mirror) Connect(ctx context.Context, dsn string) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return err
	}

	m.pool = pool
	return nil
}

// Close releases the underlying pool, when one is open.
func (m *Mirror) Close() {
	if m.pool != nil {
		m.pool.Close()
	}
}

func (m *Mirror) fail(ctx context.Context, jobID, ownerID, message string, err error) {
	m.metrics.IncPersistenceErrors()
	m.log.LogError(jobID, ownerID, "PERSISTENCE_ERROR", message+": "+err.Error())
}

// PersistJob writes one job row and its batched task rows on job
// creation.
func (m *Mirror) PersistJob(ctx context.Context, job *optdomain.OptimizationJob, tasks []*optdomain.OptimizationTask) {
	if m.pool == nil {
		return
	}
	if err := m.upsertJob(ctx, job); err != nil {
		m.fail(ctx, job.ID, job.OwnerID, "persist job", err)
		return
	}

	batch := &pgx.Batch{}
	for _, t := range tasks {
		params, err := json.Marshal(t.Params)
		if err != nil {
			continue
		}
		errJSON, lastErrJSON := marshalTaskErrors(t)
		batch.Queue(insertTaskSQL,
			t.ID, t.JobID, t.OwnerID, t.VersionID, params, string(t.Status),
			t.Progress, t.Retries, t.NextRunAt, t.Throttled, errJSON, lastErrJSON,
			t.ResultSummaryID, t.Score, t.CreatedAt, t.UpdatedAt,
		)
	}
	if batch.Len() == 0 {
		return
	}
	results := m.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			m.fail(ctx, job.ID, job.OwnerID, "persist task batch", err)
			return
		}
	}
}

// UpdateTask upserts a single task row on every task mutation.
func (m *Mirror) UpdateTask(ctx context.Context, jobID string, task *optdomain.OptimizationTask) {
	if m.pool == nil {
		return
	}
	params, err := json.Marshal(task.Params)
	if err != nil {
		m.fail(ctx, jobID, task.OwnerID, "marshal task params", err)
		return
	}
	errJSON, lastErrJSON := marshalTaskErrors(task)
	_, err = m.pool.Exec(ctx, upsertTaskSQL,
		task.ID, task.JobID, task.OwnerID, task.VersionID, params, string(task.Status),
		task.Progress, task.Retries, task.NextRunAt, task.Throttled, errJSON, lastErrJSON,
		task.ResultSummaryID, task.Score, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		m.fail(ctx, jobID, task.OwnerID, "update task", err)
	}
}

// UpdateJob upserts a job row on every summary/status change.
func (m *Mirror) UpdateJob(ctx context.Context, job *optdomain.OptimizationJob) {
	if m.pool == nil {
		return
	}
	if err := m.upsertJob(ctx, job); err != nil {
		m.fail(ctx, job.ID, job.OwnerID, "update job", err)
	}
}

func (m *Mirror) upsertJob(ctx context.Context, job *optdomain.OptimizationJob) error {
	paramSpace, err := json.Marshal(job.ParamSpace)
	if err != nil {
		return err
	}
	policy, err := json.Marshal(job.EarlyStopPolicy)
	if err != nil {
		return err
	}
	summary, err := json.Marshal(job.Summary)
	if err != nil {
		return err
	}
	stopReason, err := json.Marshal(job.StopReason)
	if err != nil {
		return err
	}
	var lockedStatus *string
	if job.LockedStatus != nil {
		s := string(*job.LockedStatus)
		lockedStatus = &s
	}

	_, err = m.pool.Exec(ctx, upsertJobSQL,
		job.ID, job.OwnerID, job.VersionID, paramSpace, job.ConcurrencyLimit,
		policy, string(job.Status), job.TotalTasks, job.Estimate, summary,
		lockedStatus, stopReason, job.SourceJobID, job.CreatedAt, job.UpdatedAt,
	)
	return err
}

func marshalTaskErrors(t *optdomain.OptimizationTask) ([]byte, []byte) {
	errJSON, _ := json.Marshal(t.Error)
	lastErrJSON, _ := json.Marshal(t.LastError)
	return errJSON, lastErrJSON
}

// Hydrate loads every job and its tasks, ordered by createdAt, for
// the orchestrator's configure-persistence rehydration flow.
func (m *Mirror) Hydrate(ctx context.Context) ([]*optdomain.OptimizationJob, map[string][]*optdomain.OptimizationTask, error) {
	if m.pool == nil {
		return nil, nil, nil
	}

	jobRows, err := m.pool.Query(ctx, selectJobsSQL)
	if err != nil {
		return nil, nil, err
	}
	defer jobRows.Close()

	jobs := make([]*optdomain.OptimizationJob, 0)
	for jobRows.Next() {
		job, err := scanJob(jobRows)
		if err != nil {
			return nil, nil, err
		}
		jobs = append(jobs, job)
	}
	if err := jobRows.Err(); err != nil {
		return nil, nil, err
	}

	taskRows, err := m.pool.Query(ctx, selectTasksSQL)
	if err != nil {
		return nil, nil, err
	}
	defer taskRows.Close()

	tasksByJob := make(map[string][]*optdomain.OptimizationTask)
	for taskRows.Next() {
		task, err := scanTask(taskRows)
		if err != nil {
			return nil, nil, err
		}
		tasksByJob[task.JobID] = append(tasksByJob[task.JobID], task)
	}
	if err := taskRows.Err(); err != nil {
		return nil, nil, err
	}

	return jobs, tasksByJob, nil
}

func scanJob(row pgx.Rows) (*optdomain.OptimizationJob, error) {
	var job optdomain.OptimizationJob
	var paramSpace, policy, summary, stopReason []byte
	var lockedStatus *string
	var status string

	if err := row.Scan(
		&job.ID, &job.OwnerID, &job.VersionID, &paramSpace, &job.ConcurrencyLimit,
		&policy, &status, &job.TotalTasks, &job.Estimate, &summary,
		&lockedStatus, &stopReason, &job.SourceJobID, &job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	job.Status = optdomain.JobStatus(status)
	_ = json.Unmarshal(paramSpace, &job.ParamSpace)
	if len(policy) > 0 {
		_ = json.Unmarshal(policy, &job.EarlyStopPolicy)
	}
	_ = json.Unmarshal(summary, &job.Summary)
	if len(stopReason) > 0 {
		_ = json.Unmarshal(stopReason, &job.StopReason)
	}
	if lockedStatus != nil {
		s := optdomain.JobStatus(*lockedStatus)
		job.LockedStatus = &s
	}
	return &job, nil
}

func scanTask(row pgx.Rows) (*optdomain.OptimizationTask, error) {
	var task optdomain.OptimizationTask
	var params, errJSON, lastErrJSON []byte
	var status string

	if err := row.Scan(
		&task.ID, &task.JobID, &task.OwnerID, &task.VersionID, &params, &status,
		&task.Progress, &task.Retries, &task.NextRunAt, &task.Throttled, &errJSON, &lastErrJSON,
		&task.ResultSummaryID, &task.Score, &task.CreatedAt, &task.UpdatedAt,
	); err != nil {
		return nil, err
	}

	task.Status = optdomain.TaskStatus(status)
	_ = json.Unmarshal(params, &task.Params)
	if len(errJSON) > 0 {
		_ = json.Unmarshal(errJSON, &task.Error)
	}
	if len(lastErrJSON) > 0 {
		_ = json.Unmarshal(lastErrJSON, &task.LastError)
	}
	return &task, nil
}
