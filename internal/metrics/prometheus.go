package metrics

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink with the Prometheus client library.
// Registration errors are logged and never propagated.
type PrometheusSink struct {
	jobsSubmittedTotal prometheus.Counter
	jobsRejectedTotal  *prometheus.CounterVec
	jobsCompletedTotal prometheus.Counter
	jobsFailedTotal    *prometheus.CounterVec
	jobDuration        prometheus.Histogram

	stageDuration      *prometheus.HistogramVec
	stageAttemptsTotal *prometheus.CounterVec
	retryAttemptsTotal *prometheus.CounterVec

	jobsRunning prometheus.Gauge
	queueDepth  prometheus.Gauge
}

var _ Sink = (*PrometheusSink)(nil)

func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		jobsSubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deckgen_jobs_submitted_total",
			Help: "Total number of accepted generation jobs.",
		}),
		jobsRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deckgen_jobs_rejected_total",
			Help: "Total number of rejected submissions by reason.",
		}, []string{"reason"}),
		jobsCompletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deckgen_jobs_completed_total",
			Help: "Total number of jobs that reached Completed.",
		}),
		jobsFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deckgen_jobs_failed_total",
			Help: "Total number of jobs that reached Failed, by stage.",
		}, []string{"stage"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "deckgen_job_duration_seconds",
			Help:    "End-to-end duration of completed jobs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "deckgen_stage_duration_seconds",
			Help:    "Duration of each stage attempt.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"stage", "success"}),
		stageAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deckgen_stage_attempts_total",
			Help: "Total stage attempts by stage and success.",
		}, []string{"stage", "success"}),
		retryAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deckgen_stage_retries_total",
			Help: "Total stage retries by stage.",
		}, []string{"stage"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deckgen_jobs_running",
			Help: "Jobs currently held by an executor.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deckgen_admission_queue_depth",
			Help: "Jobs waiting in the admission queue.",
		}),
	}

	for _, c := range []prometheus.Collector{
		s.jobsSubmittedTotal, s.jobsRejectedTotal, s.jobsCompletedTotal,
		s.jobsFailedTotal, s.jobDuration, s.stageDuration,
		s.stageAttemptsTotal, s.retryAttemptsTotal, s.jobsRunning, s.queueDepth,
	} {
		if err := reg.Register(c); err != nil {
			slog.Warn("metrics registration failed", "error", err)
		}
	}
	return s
}

func (s *PrometheusSink) JobSubmitted() {
	s.jobsSubmittedTotal.Inc()
}

func (s *PrometheusSink) JobRejected(reason string) {
	s.jobsRejectedTotal.WithLabelValues(reason).Inc()
}

func (s *PrometheusSink) StageCompleted(stage string, duration time.Duration, err error) {
	success := strconv.FormatBool(err == nil)
	s.stageAttemptsTotal.WithLabelValues(stage, success).Inc()
	s.stageDuration.WithLabelValues(stage, success).Observe(duration.Seconds())
}

func (s *PrometheusSink) RetryAttempt(stage string) {
	s.retryAttemptsTotal.WithLabelValues(stage).Inc()
}

func (s *PrometheusSink) JobCompleted(duration time.Duration) {
	s.jobsCompletedTotal.Inc()
	s.jobDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) JobFailed(stage string) {
	s.jobsFailedTotal.WithLabelValues(stage).Inc()
}

func (s *PrometheusSink) RunningIncr() { s.jobsRunning.Inc() }
func (s *PrometheusSink) RunningDecr() { s.jobsRunning.Dec() }

func (s *PrometheusSink) QueueDepthUpdate(depth int64) {
	s.queueDepth.Set(float64(depth))
}
