package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName         = "prism-board/api"
	observabilityEvent = "observability.event"
	boardEventDomain   = "prism.board"

	snapshotSpanName  = "board.snapshot.request"
	snapshotEventName = "board.snapshot.request.metrics"
	moveSpanName      = "board.move.request"
	moveEventName     = "board.move.request.metrics"
)

// requestMetrics times the stages of one instrumented request and reports them
// as a span plus a structured log entry carrying the same attributes.
type requestMetrics struct {
	logger    *log.Logger
	span      trace.Span
	route     string
	eventName string
	start     time.Time

	authDuration   time.Duration
	storeDuration  time.Duration
	encodeDuration time.Duration
	counts         map[string]int
	flags          map[string]bool
	errorStage     string
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, spanName, eventName, route string) (*requestMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.route", route)),
	)
	return &requestMetrics{
		logger:    logger,
		span:      span,
		route:     route,
		eventName: eventName,
		start:     time.Now(),
		counts:    map[string]int{},
		flags:     map[string]bool{},
	}, ctx
}

func (m *requestMetrics) ObserveAuth(d time.Duration)   { m.authDuration = max(d, 0) }
func (m *requestMetrics) ObserveStore(d time.Duration)  { m.storeDuration = max(d, 0) }
func (m *requestMetrics) ObserveEncode(d time.Duration) { m.encodeDuration = max(d, 0) }

// SetCount records a non-negative counter such as lists returned or changes applied.
func (m *requestMetrics) SetCount(name string, n int) { m.counts[name] = max(n, 0) }

func (m *requestMetrics) SetFlag(name string, v bool) { m.flags[name] = v }

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

// Log ends the span and emits the observability event. It must be called once.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	defer m.span.End()

	attrs := m.attributes(status)
	severityText, severityNumber := severityForStatus(status, err)

	eventAttrs := append([]attribute.KeyValue{
		attribute.String("event.name", m.eventName),
		attribute.String("event.domain", boardEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
	}, attrs...)
	if err != nil {
		eventAttrs = append(eventAttrs, attribute.String("error.message", err.Error()))
	}

	m.span.SetAttributes(attrs...)
	m.span.AddEvent(observabilityEvent, trace.WithAttributes(eventAttrs...))
	switch {
	case err != nil:
		m.span.RecordError(err)
		m.span.SetStatus(codes.Error, err.Error())
	case status >= http.StatusInternalServerError:
		m.span.SetStatus(codes.Error, http.StatusText(status))
	default:
		m.span.SetStatus(codes.Ok, "")
	}

	if m.logger == nil {
		return
	}
	logged := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		logged[string(kv.Key)] = kv.Value.AsInterface()
	}
	fields := log.Fields{
		"event.name":      m.eventName,
		"event.domain":    boardEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      logged,
	}
	if sc := m.span.SpanContext(); sc.IsValid() {
		fields["trace_id"] = sc.TraceID().String()
		fields["span_id"] = sc.SpanID().String()
	}
	entry := m.logger.WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Log(logLevel(severityText), observabilityEvent)
}

func (m *requestMetrics) attributes(status int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.Int("http.status_code", status),
		attribute.Float64(boardEventDomain+".total_ms", durationToMillis(time.Since(m.start))),
	}
	for name, d := range map[string]time.Duration{
		"auth_ms":   m.authDuration,
		"store_ms":  m.storeDuration,
		"encode_ms": m.encodeDuration,
	} {
		if d > 0 {
			attrs = append(attrs, attribute.Float64(boardEventDomain+"."+name, durationToMillis(d)))
		}
	}
	for name, n := range m.counts {
		attrs = append(attrs, attribute.Int(boardEventDomain+"."+name, n))
	}
	for name, v := range m.flags {
		attrs = append(attrs, attribute.Bool(boardEventDomain+"."+name, v))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String(boardEventDomain+".error_stage", m.errorStage))
	}
	return attrs
}

// severityForStatus maps a response to OpenTelemetry log severity text and number.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case status >= http.StatusInternalServerError, err != nil && status < http.StatusBadRequest:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func logLevel(severity string) log.Level {
	switch severity {
	case "ERROR":
		return log.ErrorLevel
	case "WARN":
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
