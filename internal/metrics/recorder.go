package metrics

import "time"

// ResultLabel enumerates per-file result categories for counters.
type ResultLabel string

const (
	ResultWritten ResultLabel = "written"
	ResultRemoved ResultLabel = "removed"
	ResultFailed  ResultLabel = "failed"
)

// OutcomeLabel enumerates assembly pass outcomes.
type OutcomeLabel string

const (
	OutcomeSuccess OutcomeLabel = "success"
	OutcomeFailed  OutcomeLabel = "failed"
)

// Recorder defines observability hooks for assembly passes. Implementations
// may forward to Prometheus or any other backend.
type Recorder interface {
	ObservePassDuration(scope string, d time.Duration)
	IncPassOutcome(outcome OutcomeLabel)
	IncFileResult(result ResultLabel)
	IncMissingInclude()
	SetLastPass(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePassDuration(string, time.Duration) {}
func (NoopRecorder) IncPassOutcome(OutcomeLabel)               {}
func (NoopRecorder) IncFileResult(ResultLabel)                 {}
func (NoopRecorder) IncMissingInclude()                        {}
func (NoopRecorder) SetLastPass(time.Time)                     {}
