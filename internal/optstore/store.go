// Package optstore holds the in-memory authoritative state for jobs
// and tasks: the maps themselves, plus insertion-order slices. It
// deliberately does no locking of its own — internal/orchestrator
// owns the single mutex that serializes every access, so every method
// here assumes the caller already holds it.
package optstore

import "github.com/optctl/opt-orchestrator/internal/optdomain"

// Store is the plain in-memory data container: jobs,
// tasks, task insertion order per job, job insertion order, and
// derived result-summary stubs.
type Store struct {
	Jobs            map[string]*optdomain.OptimizationJob
	Tasks           map[string]map[string]*optdomain.OptimizationTask
	TaskOrder       map[string][]string
	JobOrder        []string
	ResultSummaries map[string]*optdomain.ResultSummary
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		Jobs:            make(map[string]*optdomain.OptimizationJob),
		Tasks:           make(map[string]map[string]*optdomain.OptimizationTask),
		TaskOrder:       make(map[string][]string),
		JobOrder:        make([]string, 0),
		ResultSummaries: make(map[string]*optdomain.ResultSummary),
	}
}

// Reset clears all in-memory state, used before hydration.
func (s *Store) Reset() {
	s.Jobs = make(map[string]*optdomain.OptimizationJob)
	s.Tasks = make(map[string]map[string]*optdomain.OptimizationTask)
	s.TaskOrder = make(map[string][]string)
	s.JobOrder = make([]string, 0)
	s.ResultSummaries = make(map[string]*optdomain.ResultSummary)
}

// TasksInOrder returns a job's tasks following its insertion order.
func (s *Store) TasksInOrder(jobID string) []*optdomain.OptimizationTask {
	order := s.TaskOrder[jobID]
	byID := s.Tasks[jobID]
	out := make([]*optdomain.OptimizationTask, 0, len(order))
	for _, id := range order {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// AddJob registers a newly created job and its tasks, appending to
// both order slices.
func (s *Store) AddJob(job *optdomain.OptimizationJob, tasks []*optdomain.OptimizationTask) {
	s.Jobs[job.ID] = job
	s.JobOrder = append(s.JobOrder, job.ID)

	byID := make(map[string]*optdomain.OptimizationTask, len(tasks))
	order := make([]string, 0, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		order = append(order, t.ID)
	}
	s.Tasks[job.ID] = byID
	s.TaskOrder[job.ID] = order
}

// JobsInOrder returns every job in job-insertion order.
func (s *Store) JobsInOrder() []*optdomain.OptimizationJob {
	out := make([]*optdomain.OptimizationJob, 0, len(s.JobOrder))
	for _, id := range s.JobOrder {
		if j, ok := s.Jobs[id]; ok {
			out = append(out, j)
		}
	}
	return out
}
