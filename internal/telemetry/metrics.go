package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	TokensUsed          metric.Int64Counter
	PDFProcessingTime   metric.Float64Histogram
	ChunksIngested      metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
	VectorOperations    metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("pdf-qa-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"gemini.tokens.used",
		metric.WithDescription("Total Gemini tokens used"),
	)
	if err != nil {
		return nil, err
	}

	pdfProcessingTime, err := meter.Float64Histogram(
		"pdf.processing.duration",
		metric.WithDescription("PDF ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksIngested, err := meter.Int64Counter(
		"pdf.chunks.ingested",
		metric.WithDescription("Chunks embedded and written to the vector index"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	vectorOperations, err := meter.Int64Counter(
		"vector.operations.total",
		metric.WithDescription("Total vector index operations"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		TokensUsed:          tokensUsed,
		PDFProcessingTime:   pdfProcessingTime,
		ChunksIngested:      chunksIngested,
		CircuitBreakerState: circuitBreakerState,
		VectorOperations:    vectorOperations,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordTokensUsed records Gemini token usage
func (m *Metrics) RecordTokensUsed(tokens int64, model string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("gemini.model", model),
		attribute.String("service", "gemini"),
	}

	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}

// RecordPDFProcessing records one ingestion run
func (m *Metrics) RecordPDFProcessing(duration float64, chunks int, status string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("pdf.status", status),
		attribute.String("service", "pdf_processor"),
	}

	m.PDFProcessingTime.Record(context.Background(), duration, metric.WithAttributes(attrs...))
	if chunks > 0 {
		m.ChunksIngested.Add(context.Background(), int64(chunks), metric.WithAttributes(attrs...))
	}
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordVectorOperation records vector index calls per backend
func (m *Metrics) RecordVectorOperation(operation, backend string, success bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("vector.operation", operation),
		attribute.String("vector.backend", backend),
		attribute.Bool("vector.success", success),
	}

	m.VectorOperations.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
