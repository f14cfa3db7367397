package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartSpan(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := StartSpan(context.Background(), "report.run", attribute.String(SpanAttrRunID, "run-1"))
	if GetTraceID(ctx) == "" {
		t.Error("expected a trace ID inside the span")
	}
	SetSpanSuccess(span)
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	if ended[0].Name() != "report.run" {
		t.Errorf("span name = %q, want report.run", ended[0].Name())
	}
	if ended[0].Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", ended[0].Status().Code)
	}
}

func TestStartClientSpan_Error(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartClientSpan(context.Background(), "facilities.RoomInfo")
	SetSpanError(span, errors.New("status 500"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", ended[0].Status().Code)
	}
	if len(ended[0].Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("GetTraceID without span = %q, want empty", id)
	}
}
