// Package metrics wires the orchestrator's named metrics onto Prometheus
// vectors, using the promauto counter/gauge/
// histogram-vector style.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every named metric the orchestrator and worker
// client emit. A Registry built with New(false), or a nil *Registry,
// makes every method a no-op, matching OBS_METRICS_ENABLED="false".
type Registry struct {
	enabled bool

	ThrottledRequests    *prometheus.CounterVec
	JobStopTotal         *prometheus.CounterVec
	JobStopThreshold     *prometheus.GaugeVec
	JobStopScore         *prometheus.GaugeVec
	QueueWaitSeconds     *prometheus.HistogramVec
	JobExecSeconds       *prometheus.HistogramVec
	JobRetryTotal        *prometheus.CounterVec
	ActiveJobs           *prometheus.GaugeVec
	PersistenceErrors    prometheus.Counter
}

// New builds and registers every vector against the default registry.
func New(enabled bool) *Registry {
	r := &Registry{enabled: enabled}
	if !enabled {
		return r
	}

	r.ThrottledRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optorch_throttled_requests_total",
		Help: "Tasks that started throttled at job creation.",
	}, []string{"jobId"})

	r.JobStopTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optorch_job_stop_total",
		Help: "Jobs locked into a terminal state.",
	}, []string{"jobId", "ownerId", "status", "stopKind"})

	r.JobStopThreshold = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "optorch_job_stop_threshold",
		Help: "Early-stop threshold that triggered a lock.",
	}, []string{"jobId", "ownerId"})

	r.JobStopScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "optorch_job_stop_score",
		Help: "Best score observed at early-stop trigger time.",
	}, []string{"jobId", "ownerId"})

	r.QueueWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optorch_queue_wait_seconds",
		Help:    "Time a task spent queued before being dequeued.",
		Buckets: prometheus.DefBuckets,
	}, []string{"jobId"})

	r.JobExecSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optorch_job_exec_seconds",
		Help:    "Runner execution duration per task.",
		Buckets: prometheus.DefBuckets,
	}, []string{"jobId"})

	r.JobRetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optorch_job_retry_total",
		Help: "Task retries scheduled after a retryable failure.",
	}, []string{"jobId"})

	r.ActiveJobs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "optorch_active_jobs",
		Help: "Running task count for a job, refreshed on every mutation.",
	}, []string{"jobId"})

	r.PersistenceErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optorch_persistence_errors_total",
		Help: "Persistence-mirror writes that failed and were swallowed.",
	})

	return r
}

func (r *Registry) IncThrottledRequests(jobID string) {
	if r == nil || !r.enabled {
		return
	}
	r.ThrottledRequests.WithLabelValues(jobID).Inc()
}

func (r *Registry) ObserveJobStop(jobID, ownerID, status, stopKind string) {
	if r == nil || !r.enabled {
		return
	}
	r.JobStopTotal.WithLabelValues(jobID, ownerID, status, stopKind).Inc()
}

func (r *Registry) SetJobStopThreshold(jobID, ownerID string, threshold float64) {
	if r == nil || !r.enabled {
		return
	}
	r.JobStopThreshold.WithLabelValues(jobID, ownerID).Set(threshold)
}

func (r *Registry) SetJobStopScore(jobID, ownerID string, score float64) {
	if r == nil || !r.enabled {
		return
	}
	r.JobStopScore.WithLabelValues(jobID, ownerID).Set(score)
}

func (r *Registry) ObserveQueueWaitSeconds(jobID string, seconds float64) {
	if r == nil || !r.enabled {
		return
	}
	r.QueueWaitSeconds.WithLabelValues(jobID).Observe(seconds)
}

func (r *Registry) ObserveJobExecSeconds(jobID string, seconds float64) {
	if r == nil || !r.enabled {
		return
	}
	r.JobExecSeconds.WithLabelValues(jobID).Observe(seconds)
}

func (r *Registry) IncJobRetryTotal(jobID string) {
	if r == nil || !r.enabled {
		return
	}
	r.JobRetryTotal.WithLabelValues(jobID).Inc()
}

func (r *Registry) SetActiveJobs(jobID string, running float64) {
	if r == nil || !r.enabled {
		return
	}
	r.ActiveJobs.WithLabelValues(jobID).Set(running)
}

func (r *Registry) IncPersistenceErrors() {
	if r == nil || !r.enabled {
		return
	}
	r.PersistenceErrors.Inc()
}
