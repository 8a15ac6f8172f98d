// Package metrics defines the metrics sink used across the pipeline and
// scheduler. All methods are fire-and-forget: implementations must not block
// or propagate errors.
package metrics

import "time"

type Sink interface {
	// Submission metrics
	JobSubmitted()
	JobRejected(reason string)

	// Pipeline metrics
	StageCompleted(stage string, duration time.Duration, err error)
	RetryAttempt(stage string)
	JobCompleted(duration time.Duration)
	JobFailed(stage string)

	// Scheduler metrics
	RunningIncr()
	RunningDecr()
	QueueDepthUpdate(depth int64)
}

// Rejection reason labels for JobRejected.
const (
	RejectValidation = "validation"
	RejectOverloaded = "overloaded"
)
