package otel

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	metricRequests = "supportdesk.http.requests"
	metricDuration = "supportdesk.http.duration"
)

// HTTPInstruments publishes metrics and traces for workspace HTTP traffic.
type HTTPInstruments struct {
	meterEnabled bool
	traceEnabled bool

	counterRequests metric.Int64Counter
	histDuration    metric.Int64Histogram

	tracer trace.Tracer
}

// RequestHandle tracks a single in-flight request.
type RequestHandle struct {
	ctx   context.Context
	span  trace.Span
	start time.Time
	attrs []attribute.KeyValue
}

func newHTTPInstruments(p *Provider) *HTTPInstruments {
	inst := &HTTPInstruments{
		meterEnabled: p.meterProvider != nil,
		traceEnabled: p.tracerProvider != nil,
	}
	if inst.meterEnabled {
		inst.counterRequests, _ = p.meter.Int64Counter(
			metricRequests,
			metric.WithDescription("Number of HTTP requests served by the workspace"),
		)
		inst.histDuration, _ = p.meter.Int64Histogram(
			metricDuration,
			metric.WithDescription("Duration of HTTP requests in milliseconds"),
			metric.WithUnit("ms"),
		)
	}
	if inst.traceEnabled {
		inst.tracer = p.tracer
	}
	return inst
}

// Start opens a server span for r when tracing is enabled.
func (i *HTTPInstruments) Start(r *http.Request, route string) (*RequestHandle, context.Context) {
	parent := r.Context()
	if i == nil {
		return nil, parent
	}

	h := &RequestHandle{
		ctx:   parent,
		start: time.Now(),
		attrs: []attribute.KeyValue{
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
		},
	}
	if i.traceEnabled && i.tracer != nil {
		ctx, span := i.tracer.Start(parent, "http "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(h.attrs...),
		)
		h.ctx = ctx
		h.span = span
	}
	return h, h.ctx
}

// Finish records the request counter and duration and closes the span.
func (i *HTTPInstruments) Finish(h *RequestHandle, status int) {
	if i == nil || h == nil {
		return
	}
	elapsed := time.Since(h.start)
	attrs := append([]attribute.KeyValue{}, h.attrs...)
	if status > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", status))
	}

	if i.meterEnabled {
		i.counterRequests.Add(h.ctx, 1, metric.WithAttributes(attrs...))
		i.histDuration.Record(h.ctx, elapsed.Milliseconds(), metric.WithAttributes(attrs...))
	}

	if h.span != nil {
		h.span.SetAttributes(attrs...)
		if status >= http.StatusInternalServerError {
			h.span.SetStatus(codes.Error, strconv.Itoa(status))
		}
		h.span.End()
	}
}

// StartSpan opens an internal span named name when tracing is enabled. The
// returned end func is always safe to call.
func (i *HTTPInstruments) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if i == nil || !i.traceEnabled || i.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := i.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
