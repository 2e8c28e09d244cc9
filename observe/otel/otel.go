package otel

import "time"

// Nop is a no-op implementation of the task.Observer interface.
// It serves as a placeholder for an OpenTelemetry-backed observer without
// adding dependencies.
type Nop struct{}

// NewNop returns a no-op observer.
func NewNop() *Nop { return &Nop{} }

func (*Nop) ExecutionStarted(string)                       {}
func (*Nop) ExecutionSettled(string, time.Duration, error) {}
func (*Nop) ExecutionAbandoned(string)                     {}
func (*Nop) TaskCancelled(string)                          {}
