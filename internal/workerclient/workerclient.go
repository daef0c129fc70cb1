// Package workerclient implements the worker-runner contract as a
// plain Go API: a Runner interface that executes a dequeued task, a
// Loop helper that records the queue-wait metric, executes the task,
// reports the outcome and records the exec-time metric, and a
// NormalizeResult helper for runners whose results are loosely typed.
// The retry and active-jobs metrics are emitted by the orchestrator
// core when the outcome is reported. It has no HTTP dependency — it
// calls the orchestrator's Go API directly, in-process.
package workerclient

import (
	"context"
	"fmt"
	"time"

	"github.com/optctl/opt-orchestrator/internal/metrics"
	"github.com/optctl/opt-orchestrator/internal/obslog"
	"github.com/optctl/opt-orchestrator/internal/optdomain"
)

// ResultKind classifies a runner's outcome before it is mapped to a
// TaskErrorKind.
type ResultKind string

const (
	KindParam    ResultKind = "param"
	KindUpstream ResultKind = "upstream"
	KindInternal ResultKind = "internal"
)

// RunResult is what a Runner returns: either a score/resultSummaryId
// pair on success, or an error kind/message on failure.
type RunResult struct {
	Score           *float64
	ResultSummaryID *string
	Err             error
	ErrKind         ResultKind
}

// Runner is the external collaborator contract: given a dequeued
// task, execute it and return a RunResult.
type Runner interface {
	Run(ctx context.Context, task *optdomain.OptimizationTask) (RunResult, error)
}

// Orchestrator is the subset of *orchestrator.Orchestrator the loop
// needs, expressed as an interface so tests can fake it without
// importing the concrete package.
type Orchestrator interface {
	DequeueNext(ctx context.Context, ownerID string, jobID *string) (*optdomain.OptimizationTask, error)
	MarkTaskSucceeded(ctx context.Context, jobID, taskID string, score *float64, resultSummaryID *string) (*optdomain.OptimizationTask, error)
	MarkTaskFailed(ctx context.Context, jobID, taskID string, errorType optdomain.TaskErrorKind, message string) (*optdomain.OptimizationTask, error)
}

// Loop wraps an Orchestrator with the observability sinks used to
// implement ProcessNext.
type Loop struct {
	core    Orchestrator
	runner  Runner
	log     *obslog.Logger
	metrics *metrics.Registry
	now     func() time.Time
}

// New builds a Loop.
func New(core Orchestrator, runner Runner, log *obslog.Logger, reg *metrics.Registry) *Loop {
	return &Loop{core: core, runner: runner, log: log, metrics: reg, now: func() time.Time { return time.Now().UTC() }}
}

// Outcome is what ProcessNext returns: whether a task was dispatched,
// and if so, its final task view.
type Outcome struct {
	Dispatched bool
	Task       *optdomain.OptimizationTask
}

// ProcessNext dequeues one task, records its queue wait, runs it,
// reports success or failure to the orchestrator and records the
// exec time. The Runner's RunResult is used as returned; it is not
// passed through NormalizeResult. Returns Outcome{Dispatched:false}
// when nothing was ready.
func (l *Loop) ProcessNext(ctx context.Context, ownerID string, jobID *string) (Outcome, error) {
	task, err := l.core.DequeueNext(ctx, ownerID, jobID)
	if err != nil {
		return Outcome{}, err
	}
	if task == nil {
		return Outcome{}, nil
	}

	queueWait := l.now().Sub(task.CreatedAt).Seconds()
	if queueWait < 0 {
		queueWait = 0
	}
	l.metrics.ObserveQueueWaitSeconds(task.JobID, queueWait)
	l.log.LogStart(task.JobID, task.OwnerID)

	start := l.now()
	result, runErr := l.runner.Run(ctx, task)
	execSeconds := l.now().Sub(start).Seconds()
	l.metrics.ObserveJobExecSeconds(task.JobID, execSeconds)

	if runErr != nil {
		result.Err = runErr
		result.ErrKind = KindInternal
	}

	var final *optdomain.OptimizationTask
	if result.Err != nil {
		code := mapErrorKind(result.ErrKind)
		final, err = l.core.MarkTaskFailed(ctx, task.JobID, task.ID, code, result.Err.Error())
		if err != nil {
			return Outcome{}, err
		}
		l.log.LogError(task.JobID, task.OwnerID, string(code), result.Err.Error())
	} else {
		final, err = l.core.MarkTaskSucceeded(ctx, task.JobID, task.ID, result.Score, result.ResultSummaryID)
		if err != nil {
			return Outcome{}, err
		}
	}

	l.log.LogEnd(task.JobID, task.OwnerID, int64(execSeconds*1000), final.Retries)

	return Outcome{Dispatched: true, Task: final}, nil
}

func mapErrorKind(kind ResultKind) optdomain.TaskErrorKind {
	switch kind {
	case KindParam:
		return optdomain.ErrKindParam
	case KindUpstream:
		return optdomain.ErrKindUpstream
	default:
		return optdomain.ErrKindInternal
	}
}

// NormalizeResult implements the "normalize the runner result" step
// for runners that produce loosely-typed results
// (e.g. a scripting bridge) rather than constructing RunResult
// directly: null→(nil,nil); number→(score,nil); mapping→extract
// score/resultSummaryId; 2-tuple→(first,second). Anything else is an
// internal error.
func NormalizeResult(raw any) (RunResult, error) {
	switch v := raw.(type) {
	case nil:
		return RunResult{}, nil
	case float64:
		score := v
		return RunResult{Score: &score}, nil
	case map[string]any:
		out := RunResult{}
		if s, ok := v["score"].(float64); ok {
			out.Score = &s
		}
		if id, ok := v["resultSummaryId"].(string); ok {
			out.ResultSummaryID = &id
		}
		return out, nil
	case []any:
		if len(v) != 2 {
			return RunResult{}, fmt.Errorf("runner tuple result must have exactly 2 elements, got %d", len(v))
		}
		out := RunResult{}
		if s, ok := v[0].(float64); ok {
			out.Score = &s
		}
		if id, ok := v[1].(string); ok {
			out.ResultSummaryID = &id
		}
		return out, nil
	default:
		return RunResult{}, fmt.Errorf("unsupported runner result type %T", raw)
	}
}
