package postgres

// schemaSQL creates the two mirrored tables. JSON
// columns use Postgres jsonb, matching pgx's native jsonb support
// rather than a generic database/sql driver.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS optimization_jobs (
	id                TEXT PRIMARY KEY,
	owner             TEXT NOT NULL,
	version           TEXT NOT NULL,
	param_space       JSONB NOT NULL,
	concurrency_limit INTEGER NOT NULL,
	early_stop_policy JSONB,
	status            TEXT NOT NULL,
	total_tasks       INTEGER NOT NULL,
	estimate          INTEGER NOT NULL,
	summary           JSONB NOT NULL,
	locked_status     TEXT,
	stop_reason       JSONB,
	source_job_id     TEXT,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS optimization_tasks (
	id                TEXT PRIMARY KEY,
	job_id            TEXT NOT NULL REFERENCES optimization_jobs(id) ON DELETE CASCADE,
	owner             TEXT NOT NULL,
	version           TEXT NOT NULL,
	param_set         JSONB NOT NULL,
	status            TEXT NOT NULL,
	progress          DOUBLE PRECISION,
	retries           INTEGER NOT NULL,
	next_run_at       TIMESTAMPTZ NOT NULL,
	throttled         BOOLEAN NOT NULL,
	error             JSONB,
	last_error        JSONB,
	result_summary_id TEXT,
	score             DOUBLE PRECISION,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_optimization_tasks_job_id ON optimization_tasks(job_id);
`
