package task

import "time"

// Observer receives lifecycle notifications for the Executions of a Task.
// Attach one with [WithObserver]; tasks derived through combinators inherit
// it. Implementations must be safe for concurrent use.
//
// The observe/prom package provides a Prometheus-backed implementation and
// observe/otel a no-op placeholder.
type Observer interface {
	// ExecutionStarted fires when an executor is invoked.
	ExecutionStarted(name string)
	// ExecutionSettled fires when an Execution fulfils or rejects.
	// err is nil on fulfilment.
	ExecutionSettled(name string, d time.Duration, err error)
	// ExecutionAbandoned fires when a cancelled Execution is left
	// permanently unsettled.
	ExecutionAbandoned(name string)
	// TaskCancelled fires once per Task on the first Cancel.
	TaskCancelled(name string)
}
