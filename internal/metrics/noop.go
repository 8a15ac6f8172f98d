package metrics

import "time"

// NoopSink discards all metrics. Used in tests and when metrics are disabled.
type NoopSink struct{}

var _ Sink = NoopSink{}

func (NoopSink) JobSubmitted()                                  {}
func (NoopSink) JobRejected(string)                             {}
func (NoopSink) StageCompleted(string, time.Duration, error)    {}
func (NoopSink) RetryAttempt(string)                            {}
func (NoopSink) JobCompleted(time.Duration)                     {}
func (NoopSink) JobFailed(string)                               {}
func (NoopSink) RunningIncr()                                   {}
func (NoopSink) RunningDecr()                                   {}
func (NoopSink) QueueDepthUpdate(int64)                         {}
