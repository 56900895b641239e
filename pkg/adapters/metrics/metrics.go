// Package metrics holds the metrics collector implementations. The
// prometheus subpackage is used in production; Nop discards everything.
package metrics

import "time"

// Nop implements ports.MetricsCollector and records nothing
type Nop struct{}

func (Nop) RecordTaskSubmitted(status string)                          {}
func (Nop) RecordTaskFinished(state string, duration time.Duration)    {}
func (Nop) ObserveStage(stage, outcome string, duration time.Duration) {}
func (Nop) RecordCacheLookup(hit bool)                                 {}
func (Nop) AddActiveTasks(delta int)                                   {}
func (Nop) SetQueueDepth(depth int)                                    {}
func (Nop) SetBoundObservers(count int)                                {}
func (Nop) RecordWorkerPoolStatus(idle, busy, stopped int)             {}
