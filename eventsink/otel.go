package eventsink

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName matches the teacher's convention of naming tracers after the
// package that emits the spans (gateway/gateway.go uses the module path).
const tracerName = "github.com/n9te9/fusion-query-planner/planner"

// OTelSink emits one span per plan call, from PlanStart to PlanStop/PlanError,
// plus a dequeue event per search cycle. It keeps the in-flight span per plan
// id since EventSink carries no context.Context (spec §6: the sink is
// fire-and-forget, not wired into request tracing by the core itself).
type OTelSink struct {
	Tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]spanState
}

type spanState struct {
	span trace.Span
	ctx  context.Context
}

// NewOTelSink returns a sink using the given tracer provider, or the global
// one when tp is nil.
func NewOTelSink(tp trace.TracerProvider) *OTelSink {
	tracer := otel.Tracer(tracerName)
	if tp != nil {
		tracer = tp.Tracer(tracerName)
	}
	return &OTelSink{Tracer: tracer, spans: make(map[string]spanState)}
}

func (s *OTelSink) PlanStart(id, opType string, rootCount int) {
	ctx, span := s.Tracer.Start(context.Background(), "fusionplan.create_plan",
		trace.WithAttributes(
			attribute.String("plan.id", id),
			attribute.String("plan.operation_type", opType),
			attribute.Int("plan.root_count", rootCount),
		),
	)
	s.mu.Lock()
	s.spans[id] = spanState{span: span, ctx: ctx}
	s.mu.Unlock()
}

func (s *OTelSink) PlanStop(id string, elapsed time.Duration, searchSpace, expandedNodes, stepCount int) {
	st, ok := s.take(id)
	if !ok {
		return
	}
	st.span.SetAttributes(
		attribute.Int64("plan.elapsed_ms", elapsed.Milliseconds()),
		attribute.Int("plan.search_space", searchSpace),
		attribute.Int("plan.expanded_nodes", expandedNodes),
		attribute.Int("plan.step_count", stepCount),
	)
	st.span.SetStatus(codes.Ok, "")
	st.span.End()
}

func (s *OTelSink) PlanError(id, opType, errorKind string, elapsed time.Duration) {
	st, ok := s.take(id)
	if !ok {
		return
	}
	st.span.SetAttributes(
		attribute.String("plan.error_kind", errorKind),
		attribute.Int64("plan.elapsed_ms", elapsed.Milliseconds()),
	)
	st.span.SetStatus(codes.Error, errorKind)
	st.span.End()
}

func (s *OTelSink) PlanDequeue(id string, cycle, queueLength int, workItemLabel, schemaName string) {
	s.mu.Lock()
	st, ok := s.spans[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	st.span.AddEvent("dequeue", trace.WithAttributes(
		attribute.Int("cycle", cycle),
		attribute.Int("queue_length", queueLength),
		attribute.String("work_item", workItemLabel),
		attribute.String("schema", schemaName),
	))
}

func (s *OTelSink) take(id string) (spanState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.spans[id]
	if ok {
		delete(s.spans, id)
	}
	return st, ok
}
