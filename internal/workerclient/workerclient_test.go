package workerclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optctl/opt-orchestrator/internal/metrics"
	"github.com/optctl/opt-orchestrator/internal/obslog"
	"github.com/optctl/opt-orchestrator/internal/optdomain"
)

type fakeOrchestrator struct {
	dequeueTask   *optdomain.OptimizationTask
	succeededArgs []any
	failedArgs    []any
}

func (f *fakeOrchestrator) DequeueNext(ctx context.Context, ownerID string, jobID *string) (*optdomain.OptimizationTask, error) {
	return f.dequeueTask, nil
}

func (f *fakeOrchestrator) MarkTaskSucceeded(ctx context.Context, jobID, taskID string, score *float64, resultSummaryID *string) (*optdomain.OptimizationTask, error) {
	f.succeededArgs = []any{jobID, taskID, score, resultSummaryID}
	return &optdomain.OptimizationTask{ID: taskID, JobID: jobID, Status: optdomain.TaskSucceeded, Score: score}, nil
}

func (f *fakeOrchestrator) MarkTaskFailed(ctx context.Context, jobID, taskID string, errorType optdomain.TaskErrorKind, message string) (*optdomain.OptimizationTask, error) {
	f.failedArgs = []any{jobID, taskID, errorType, message}
	return &optdomain.OptimizationTask{ID: taskID, JobID: jobID, Status: optdomain.TaskFailed}, nil
}

type scriptedRunner struct {
	result RunResult
	err    error
}

func (r scriptedRunner) Run(ctx context.Context, task *optdomain.OptimizationTask) (RunResult, error) {
	return r.result, r.err
}

func newLoop(core Orchestrator, runner Runner) *Loop {
	return New(core, runner, obslog.New(obslog.Config{Enabled: false}), metrics.New(false))
}

func TestProcessNext_NothingReadyReturnsNotDispatched(t *testing.T) {
	core := &fakeOrchestrator{}
	loop := newLoop(core, scriptedRunner{})

	outcome, err := loop.ProcessNext(context.Background(), "owner-1", nil)
	require.NoError(t, err)
	assert.False(t, outcome.Dispatched)
}

func TestProcessNext_SuccessMarksTaskSucceeded(t *testing.T) {
	score := 0.91
	task := &optdomain.OptimizationTask{ID: "t1", JobID: "j1", OwnerID: "owner-1", CreatedAt: time.Now().UTC().Add(-time.Second)}
	core := &fakeOrchestrator{dequeueTask: task}
	loop := newLoop(core, scriptedRunner{result: RunResult{Score: &score}})

	outcome, err := loop.ProcessNext(context.Background(), "owner-1", nil)
	require.NoError(t, err)
	assert.True(t, outcome.Dispatched)
	assert.Equal(t, optdomain.TaskSucceeded, outcome.Task.Status)
	require.Len(t, core.succeededArgs, 4)
}

func TestProcessNext_RunnerErrorMapsToInternal(t *testing.T) {
	task := &optdomain.OptimizationTask{ID: "t1", JobID: "j1", OwnerID: "owner-1", CreatedAt: time.Now().UTC()}
	core := &fakeOrchestrator{dequeueTask: task}
	loop := newLoop(core, scriptedRunner{err: errors.New("boom")})

	outcome, err := loop.ProcessNext(context.Background(), "owner-1", nil)
	require.NoError(t, err)
	assert.True(t, outcome.Dispatched)
	require.Len(t, core.failedArgs, 4)
	assert.Equal(t, optdomain.ErrKindInternal, core.failedArgs[2])
}

func TestProcessNext_UpstreamResultKindMapsToUpstreamError(t *testing.T) {
	task := &optdomain.OptimizationTask{ID: "t1", JobID: "j1", OwnerID: "owner-1", CreatedAt: time.Now().UTC()}
	core := &fakeOrchestrator{dequeueTask: task}
	loop := newLoop(core, scriptedRunner{result: RunResult{Err: errors.New("rate limited"), ErrKind: KindUpstream}})

	_, err := loop.ProcessNext(context.Background(), "owner-1", nil)
	require.NoError(t, err)
	assert.Equal(t, optdomain.ErrKindUpstream, core.failedArgs[2])
}

func TestNormalizeResult_Number(t *testing.T) {
	out, err := NormalizeResult(1.5)
	require.NoError(t, err)
	require.NotNil(t, out.Score)
	assert.Equal(t, 1.5, *out.Score)
}

func TestNormalizeResult_Mapping(t *testing.T) {
	out, err := NormalizeResult(map[string]any{"score": 2.0, "resultSummaryId": "abc"})
	require.NoError(t, err)
	require.NotNil(t, out.Score)
	require.NotNil(t, out.ResultSummaryID)
	assert.Equal(t, "abc", *out.ResultSummaryID)
}

func TestNormalizeResult_Tuple(t *testing.T) {
	out, err := NormalizeResult([]any{3.0, "xyz"})
	require.NoError(t, err)
	assert.Equal(t, 3.0, *out.Score)
	assert.Equal(t, "xyz", *out.ResultSummaryID)
}

func TestNormalizeResult_Null(t *testing.T) {
	out, err := NormalizeResult(nil)
	require.NoError(t, err)
	assert.Nil(t, out.Score)
}

func TestNormalizeResult_UnsupportedType(t *testing.T) {
	_, err := NormalizeResult("not-supported")
	require.Error(t, err)
}
