package monitoring

import "time"

// Transcoder stages used as label values
const (
	StageDecode = "decode"
	StageEncode = "encode"
)

// Grid outcomes used as label values
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Timer measures grid duration
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
	}
}

// Stop records the elapsed time under status and returns it
func (t *Timer) Stop(status string) time.Duration {
	duration := time.Since(t.start)
	t.metrics.RecordGrid(status, duration)
	return duration
}
