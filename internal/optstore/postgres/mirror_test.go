package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/optctl/opt-orchestrator/internal/metrics"
	"github.com/optctl/opt-orchestrator/internal/obslog"
	"github.com/optctl/opt-orchestrator/internal/optdomain"
)

func TestMirror_PersistAndHydrateRoundTrip(t *testing.T) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("optorch"),
		tcpostgres.WithUsername("optorch"),
		tcpostgres.WithPassword("optorch"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	mirror := New(obslog.New(obslog.Config{Enabled: false}), metrics.New(false))
	require.NoError(t, mirror.Connect(ctx, dsn))
	defer mirror.Close()

	now := time.Now().UTC().Truncate(time.Second)
	score := 0.42
	job := &optdomain.OptimizationJob{
		ID:               "job-1",
		OwnerID:          "owner-1",
		VersionID:        "v1",
		ParamSpace:       map[string]any{"x": []any{1.0, 2.0}},
		ConcurrencyLimit: 2,
		Status:           optdomain.JobRunning,
		TotalTasks:       2,
		Estimate:         2,
		Summary:          optdomain.OptimizationSummary{Total: 2, Running: 1},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	tasks := []*optdomain.OptimizationTask{
		{ID: "task-1", JobID: "job-1", OwnerID: "owner-1", VersionID: "v1", Params: map[string]any{"x": 1.0}, Status: optdomain.TaskRunning, NextRunAt: now, CreatedAt: now, UpdatedAt: now},
		{ID: "task-2", JobID: "job-1", OwnerID: "owner-1", VersionID: "v1", Params: map[string]any{"x": 2.0}, Status: optdomain.TaskSucceeded, Score: &score, NextRunAt: now, CreatedAt: now.Add(time.Second), UpdatedAt: now},
	}

	mirror.PersistJob(ctx, job, tasks)

	fresh := New(obslog.New(obslog.Config{Enabled: false}), metrics.New(false))
	require.NoError(t, fresh.Connect(ctx, dsn))
	defer fresh.Close()

	jobs, tasksByJob, err := fresh.Hydrate(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "job-1", jobs[0].ID)
	require.Equal(t, optdomain.JobRunning, jobs[0].Status)

	hydratedTasks := tasksByJob["job-1"]
	require.Len(t, hydratedTasks, 2)
	require.Equal(t, 1.0, hydratedTasks[0].Params["x"])
}
