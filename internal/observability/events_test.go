package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tbourn/go-handoff-backend/internal/config"
)

func TestSpanTracker_StartsSpanWhenNoneActive(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tr := &SpanTracker{Tracer: tp.Tracer("test")}

	tr.TrackEvent(context.Background(), "Transcript", map[string]string{"from": "Customer", "text": "hi"})

	ended := rec.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "event.Transcript", ended[0].Name())
	events := ended[0].Events()
	require.Len(t, events, 1)
	require.Equal(t, "Transcript", events[0].Name)
	require.Len(t, events[0].Attributes, 2)
	require.Equal(t, "from", string(events[0].Attributes[0].Key))
}

func TestSpanTracker_UsesActiveSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tr := &SpanTracker{Tracer: tp.Tracer("test")}

	ctx, parent := tp.Tracer("test").Start(context.Background(), "append")
	tr.TrackEvent(ctx, "Transcript", map[string]string{"k": "v"})
	parent.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "append", ended[0].Name())
	require.Len(t, ended[0].Events(), 1)
}

func TestLogTracker_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	tr := LogTracker{Log: zerolog.New(&buf)}
	tr.TrackEvent(context.Background(), "Transcript", map[string]string{"customerId": "u1"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "Transcript", line["event"])
	require.Equal(t, "u1", line["customerId"])
}

type countingTracker struct{ n int }

func (c *countingTracker) TrackEvent(context.Context, string, map[string]string) { c.n++ }

func TestMultiTracker_FansOut(t *testing.T) {
	a, b := &countingTracker{}, &countingTracker{}
	MultiTracker{a, b}.TrackEvent(context.Background(), "x", nil)
	require.Equal(t, 1, a.n)
	require.Equal(t, 1, b.n)
}

func TestNewEventTracker_SelectsSink(t *testing.T) {
	log := zerolog.Nop()
	require.IsType(t, NopTracker{}, NewEventTracker(config.TelemetryConfig{Enabled: false, Sink: "both"}, log))
	require.IsType(t, LogTracker{}, NewEventTracker(config.TelemetryConfig{Enabled: true, Sink: "log"}, log))
	require.IsType(t, &SpanTracker{}, NewEventTracker(config.TelemetryConfig{Enabled: true, Sink: "otel"}, log))
	multi, ok := NewEventTracker(config.TelemetryConfig{Enabled: true, Sink: "both"}, log).(MultiTracker)
	require.True(t, ok)
	require.Len(t, multi, 2)
}

func TestRecordCollectors(t *testing.T) {
	before := testutil.ToFloat64(handoffTransitions.WithLabelValues("queue", OutcomeOK))
	RecordTransition("queue", OutcomeOK)
	require.Equal(t, before+1, testutil.ToFloat64(handoffTransitions.WithLabelValues("queue", OutcomeOK)))

	other := testutil.ToFloat64(transcriptLines.WithLabelValues("other"))
	RecordTranscriptLine("Supervisor")
	require.Equal(t, other+1, testutil.ToFloat64(transcriptLines.WithLabelValues("other")))

	skipped := testutil.ToFloat64(sentimentRequests.WithLabelValues(OutcomeSkipped))
	RecordSentiment(OutcomeSkipped)
	require.Equal(t, skipped+1, testutil.ToFloat64(sentimentRequests.WithLabelValues(OutcomeSkipped)))
}
