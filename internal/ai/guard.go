package ai

import (
	"context"
	"errors"
	"time"

	"pdf-qa-platform/internal/logger"
	"pdf-qa-platform/internal/telemetry"
	"pdf-qa-platform/models"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

// Guard wraps upstream calls with a client-side rate limiter, a circuit
// breaker, a per-call deadline and a tracing span.
type Guard struct {
	service string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
}

func NewGuard(service string, rpm int, timeout time.Duration, metrics *telemetry.Metrics) *Guard {
	if rpm <= 0 {
		rpm = 60
	}
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        service,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// Caller cancellations say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordCircuitBreakerState(name, to.String())
		},
	})

	return &Guard{
		service: service,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		timeout: timeout,
	}
}

// State reports the breaker state, mainly for health output and tests.
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

// Do runs fn under the guard. Every failure comes back as *models.UpstreamError.
func Do[T any](ctx context.Context, g *Guard, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	ctx, span := otel.Tracer("gemini-client").Start(ctx, g.service+"."+op)
	defer span.End()
	span.SetAttributes(attribute.String("upstream.service", g.service))

	if err := g.limiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("upstream.rate_limited", true))
		span.SetStatus(codes.Error, err.Error())
		return zero, models.Upstream(g.service, op, err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("upstream.circuit_breaker_open", true))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, models.Upstream(g.service, op, err)
	}

	return result.(T), nil
}
