package planner

import "time"

// EventSink is the optional, non-blocking, best-effort logger of spec §6: the
// core never blocks on it and never inspects its return value. Concrete
// sinks (structured logging, tracing) live outside the core — see the
// eventsink package for the two the gateway ships.
type EventSink interface {
	PlanStart(id, opType string, rootCount int)
	PlanStop(id string, elapsed time.Duration, searchSpace, expandedNodes, stepCount int)
	PlanError(id, opType, errorKind string, elapsed time.Duration)
	PlanDequeue(id string, cycle, queueLength int, workItemLabel, schemaName string)
}

// NoopSink discards every event; the default when a caller supplies none.
type NoopSink struct{}

func (NoopSink) PlanStart(string, string, int)                      {}
func (NoopSink) PlanStop(string, time.Duration, int, int, int)      {}
func (NoopSink) PlanError(string, string, string, time.Duration)    {}
func (NoopSink) PlanDequeue(string, int, int, string, string)       {}
