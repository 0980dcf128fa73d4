// Package eventsink provides the planner.EventSink implementations this
// repository ships: structured logging via log/slog and distributed tracing
// via OpenTelemetry, grounded in the teacher's own logger/tracer wiring
// (server/gateway.go: slog.New(slog.NewJSONHandler(...)) and the
// gateway.InitTracer bootstrap call).
package eventsink

import (
	"log/slog"
	"time"
)

// SlogSink logs every planner event as a structured JSON record. Logger
// defaults to slog.Default() when left nil.
type SlogSink struct {
	Logger *slog.Logger
}

func (s SlogSink) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s SlogSink) PlanStart(id, opType string, rootCount int) {
	s.logger().Info("plan start", "plan_id", id, "operation_type", opType, "root_count", rootCount)
}

func (s SlogSink) PlanStop(id string, elapsed time.Duration, searchSpace, expandedNodes, stepCount int) {
	s.logger().Info("plan stop",
		"plan_id", id,
		"elapsed_ms", elapsed.Milliseconds(),
		"search_space", searchSpace,
		"expanded_nodes", expandedNodes,
		"step_count", stepCount,
	)
}

func (s SlogSink) PlanError(id, opType, errorKind string, elapsed time.Duration) {
	s.logger().Error("plan error",
		"plan_id", id,
		"operation_type", opType,
		"error_kind", errorKind,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

func (s SlogSink) PlanDequeue(id string, cycle, queueLength int, workItemLabel, schemaName string) {
	s.logger().Debug("plan dequeue",
		"plan_id", id,
		"cycle", cycle,
		"queue_length", queueLength,
		"work_item", workItemLabel,
		"schema", schemaName,
	)
}
