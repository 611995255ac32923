package observability

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-handoff-backend/internal/config"
)

// EventTracker records named business events with flat string properties.
// Tracking never fails from the caller's point of view.
type EventTracker interface {
	TrackEvent(ctx context.Context, name string, props map[string]string)
}

// NopTracker discards events.
type NopTracker struct{}

// TrackEvent implements EventTracker.
func (NopTracker) TrackEvent(context.Context, string, map[string]string) {}

// SpanTracker attaches events to the active span, starting a short-lived
// span when the context carries none that is recording.
type SpanTracker struct {
	Tracer trace.Tracer
}

// NewSpanTracker returns a SpanTracker using the global tracer provider.
func NewSpanTracker() *SpanTracker {
	return &SpanTracker{Tracer: otel.Tracer("observability/events")}
}

// TrackEvent implements EventTracker.
func (t *SpanTracker) TrackEvent(ctx context.Context, name string, props map[string]string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		_, span = t.Tracer.Start(ctx, "event."+name)
		defer span.End()
	}
	span.AddEvent(name, trace.WithAttributes(attributes(props)...))
}

func attributes(props map[string]string) []attribute.KeyValue {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, attribute.String(k, props[k]))
	}
	return out
}

// LogTracker writes events as structured log lines.
type LogTracker struct {
	Log zerolog.Logger
}

// TrackEvent implements EventTracker.
func (t LogTracker) TrackEvent(_ context.Context, name string, props map[string]string) {
	ev := t.Log.Info().Str("event", name)
	for k, v := range props {
		ev = ev.Str(k, v)
	}
	ev.Msg("telemetry event")
}

// MultiTracker fans an event out to every tracker in order.
type MultiTracker []EventTracker

// TrackEvent implements EventTracker.
func (m MultiTracker) TrackEvent(ctx context.Context, name string, props map[string]string) {
	for _, t := range m {
		t.TrackEvent(ctx, name, props)
	}
}

// NewEventTracker builds the tracker selected by cfg. A disabled config
// yields a NopTracker.
func NewEventTracker(cfg config.TelemetryConfig, log zerolog.Logger) EventTracker {
	if !cfg.Enabled {
		return NopTracker{}
	}
	logT := LogTracker{Log: log.With().Str("component", "telemetry").Logger()}
	switch cfg.Sink {
	case "otel":
		return NewSpanTracker()
	case "both":
		return MultiTracker{NewSpanTracker(), logT}
	default:
		return logT
	}
}
