package orchestrator

import (
	"context"
	"sort"
)

// ConfigurePersistence installs the given Mirror (or disables
// persistence when mirror is nil) and rehydrates the in-memory store
// from it: clear in-memory state, load all jobs
// ordered by createdAt, load their tasks, refresh each job's summary
// without writing back. This is the single exported, locking entry
// point that implements configure_persistence.
func (o *Orchestrator) ConfigurePersistence(ctx context.Context, mirror Mirror) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if mirror == nil {
		mirror = noopMirror{}
	}
	o.mirror = mirror

	jobs, tasksByJob, err := mirror.Hydrate(ctx)
	if err != nil {
		return err
	}

	o.store.Reset()

	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})

	for _, job := range jobs {
		tasks := tasksByJob[job.ID]
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		})
		o.store.AddJob(job, tasks)
	}

	for _, job := range o.store.JobsInOrder() {
		o.refreshSummaryNoWriteBack(job)
	}

	return nil
}
