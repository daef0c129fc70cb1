package postgres

const upsertJobSQL = `
INSERT INTO optimization_jobs (
	id, owner, version, param_space, concurrency_limit, early_stop_policy,
	status, total_tasks, estimate, summary, locked_status, stop_reason,
	source_job_id, created_at, updated_at
) VALUES ($1,$2,$3,$4::jsonb,$5,$6::jsonb,$7,$8,$9,$10::jsonb,$11,$12::jsonb,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	summary = EXCLUDED.summary,
	locked_status = EXCLUDED.locked_status,
	stop_reason = EXCLUDED.stop_reason,
	updated_at = EXCLUDED.updated_at
`

const insertTaskSQL = `
INSERT INTO optimization_tasks (
	id, job_id, owner, version, param_set, status, progress, retries,
	next_run_at, throttled, error, last_error, result_summary_id, score,
	created_at, updated_at
) VALUES ($1,$2,$3,$4,$5::jsonb,$6,$7,$8,$9,$10,$11::jsonb,$12::jsonb,$13,$14,$15,$16)
ON CONFLICT (id) DO NOTHING
`

const upsertTaskSQL = `
INSERT INTO optimization_tasks (
	id, job_id, owner, version, param_set, status, progress, retries,
	next_run_at, throttled, error, last_error, result_summary_id, score,
	created_at, updated_at
) VALUES ($1,$2,$3,$4,$5::jsonb,$6,$7,$8,$9,$10,$11::jsonb,$12::jsonb,$13,$14,$15,$16)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	progress = EXCLUDED.progress,
	retries = EXCLUDED.retries,
	next_run_at = EXCLUDED.next_run_at,
	throttled = EXCLUDED.throttled,
	error = EXCLUDED.error,
	last_error = EXCLUDED.last_error,
	result_summary_id = EXCLUDED.result_summary_id,
	score = EXCLUDED.score,
	updated_at = EXCLUDED.updated_at
`

const selectJobsSQL = `
SELECT id, owner, version, param_space, concurrency_limit, early_stop_policy,
	status, total_tasks, estimate, summary, locked_status, stop_reason,
	source_job_id, created_at, updated_at
FROM optimization_jobs
ORDER BY created_at ASC
`

const selectTasksSQL = `
SELECT id, job_id, owner, version, param_set, status, progress, retries,
	next_run_at, throttled, error, last_error, result_summary_id, score,
	created_at, updated_at
FROM optimization_tasks
ORDER BY created_at ASC
`
