// Package orchestrator implements the job/task state machine: create,
// dequeue, success, failure, cancel, status, snapshot, list, and
// export. Every public method is the single exported, locking entry
// point for its operation; it calls only unexported, non-locking
// helpers, never another exported method — this is how Go's
// non-reentrant sync.Mutex satisfies reentrant-call requirements
// (summary refresh and early-stop both recurse into locking helpers
// conceptually, but never the exported lock).
//
// One mutex is held across each multi-step mutation, including summary
// refresh and persistence write-through, in a single critical section.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/optctl/opt-orchestrator/internal/metrics"
	"github.com/optctl/opt-orchestrator/internal/obslog"
	"github.com/optctl/opt-orchestrator/internal/optdomain"
	"github.com/optctl/opt-orchestrator/internal/optstore"
)

// Mirror is the persistence-mirror contract. Every
// method swallows its own backend errors (logging/counting them) and
// never returns an error to the orchestrator — the in-memory store
// remains authoritative at runtime regardless of backend health.
type Mirror interface {
	PersistJob(ctx context.Context, job *optdomain.OptimizationJob, tasks []*optdomain.OptimizationTask)
	UpdateTask(ctx context.Context, jobID string, task *optdomain.OptimizationTask)
	UpdateJob(ctx context.Context, job *optdomain.OptimizationJob)
	Hydrate(ctx context.Context) ([]*optdomain.OptimizationJob, map[string][]*optdomain.OptimizationTask, error)
}

// noopMirror is used whenever persistence is not configured.
type noopMirror struct{}

func (noopMirror) PersistJob(context.Context, *optdomain.OptimizationJob, []*optdomain.OptimizationTask) {
}
func (noopMirror) UpdateTask(context.Context, string, *optdomain.OptimizationTask) {}
func (noopMirror) UpdateJob(context.Context, *optdomain.OptimizationJob)           {}
func (noopMirror) Hydrate(context.Context) ([]*optdomain.OptimizationJob, map[string][]*optdomain.OptimizationTask, error) {
	return nil, nil, nil
}

// Config carries the clamps and defaults that govern orchestrator
// behavior.
type Config struct {
	ParamSpaceMax       int
	ConcurrencyLimitMax int
	TopNLimit           int
	MaxRetries          int
	RetryBaseSeconds    int
}

// Orchestrator is the single reentrant-lock-equivalent owner of a
// Store. It holds an injected structured logger and metrics registry
// and an optional persistence Mirror.
type Orchestrator struct {
	mu      sync.Mutex
	store   *optstore.Store
	mirror  Mirror
	log     *obslog.Logger
	metrics *metrics.Registry
	cfg     Config
	now     func() time.Time
	newID   func() string
}

// New builds an Orchestrator backed by a fresh in-memory Store, with
// no persistence mirror configured.
func New(cfg Config, log *obslog.Logger, reg *metrics.Registry) *Orchestrator {
	return &Orchestrator{
		store:   optstore.New(),
		mirror:  noopMirror{},
		log:     log,
		metrics: reg,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.NewString() },
	}
}
