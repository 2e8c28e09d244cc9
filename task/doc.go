// Package task provides lazy, cancellable, composable units of asynchronous
// work. A Task describes a computation without running it; every call to Run
// produces an independent Execution bound to a fresh cancellation Scope.
// Combinators (Map, Retry, Debounce, Throttle, Memoize, ...) wrap a Task in a
// new Task, and group helpers (Sequence, Parallel, Race, Any) orchestrate many
// Executions with bounded concurrency and failure-triggered cancellation.
package task
