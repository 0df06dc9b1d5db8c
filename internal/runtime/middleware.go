package runtime

import (
	"context"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/drblury/lambdaloop/internal/runtime/errors"
	loggingpkg "github.com/drblury/lambdaloop/internal/runtime/logging"
	transportpkg "github.com/drblury/lambdaloop/internal/runtime/transport"
)

const tracerName = "lambdaloop-runtime"

// InvokeFunc is the invocation pipeline signature: resolve, decode, call
// the function and encode its output. Middlewares wrap it.
type InvokeFunc func(ctx context.Context, inv *transportpkg.Invocation) ([]byte, error)

// InvokeMiddleware decorates an InvokeFunc.
type InvokeMiddleware func(next InvokeFunc) InvokeFunc

// MiddlewareRegistration couples a middleware with a name for logging.
// Either Middleware or Builder must be set; Builder runs at loop
// construction time and may return a nil middleware to opt out.
type MiddlewareRegistration struct {
	Name       string
	Middleware InvokeMiddleware
	Builder    func(l *EventLoop) (InvokeMiddleware, error)
}

// DefaultMiddlewares returns the built-in middleware stack in wrapping
// order: the first entry is outermost, the recoverer sits closest to the
// function so its panics are caught before anything else observes them.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		LogInvocationMiddleware(),
		TracerMiddleware(),
		MetricsMiddleware(),
		RecovererMiddleware(),
	}
}

// LogInvocationMiddleware logs the start and outcome of every invocation
// at debug level on the loop's logger.
func LogInvocationMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_invocation",
		Builder: func(l *EventLoop) (InvokeMiddleware, error) {
			return func(next InvokeFunc) InvokeFunc {
				return func(ctx context.Context, inv *transportpkg.Invocation) ([]byte, error) {
					log := l.Logger.With(loggingpkg.LogFields{"request_id": inv.RequestID})
					log.Debug("invocation received", loggingpkg.LogFields{
						"content_type": inv.ContentType,
						"payload_size": len(inv.Payload),
					})
					started := time.Now()
					body, err := next(ctx, inv)
					if err != nil {
						log.Error("invocation failed", err, loggingpkg.LogFields{
							"elapsed": time.Since(started).String(),
						})
						return nil, err
					}
					log.Debug("invocation succeeded", loggingpkg.LogFields{
						"elapsed":       time.Since(started).String(),
						"response_size": len(body),
					})
					return body, nil
				}
			}, nil
		},
	}
}

// TracerMiddleware wraps each invocation in an OpenTelemetry span.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Middleware: func(next InvokeFunc) InvokeFunc {
			return func(ctx context.Context, inv *transportpkg.Invocation) ([]byte, error) {
				tracer := otel.Tracer(tracerName)
				ctx, span := tracer.Start(ctx, "Invoke", trace.WithSpanKind(trace.SpanKindServer))
				defer span.End()
				span.SetAttributes(
					attribute.String("invocation.request_id", inv.RequestID),
					attribute.String("invocation.content_type", inv.ContentType),
				)
				body, err := next(ctx, inv)
				if err != nil {
					span.RecordError(err)
				}
				return body, err
			}
		},
	}
}

// MetricsMiddleware records invocation counts and durations. It is a no-op
// registration when metrics are disabled in the loop configuration.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Builder: func(l *EventLoop) (InvokeMiddleware, error) {
			if !l.Conf.MetricsEnabled {
				return nil, nil
			}
			return func(next InvokeFunc) InvokeFunc {
				return func(ctx context.Context, inv *transportpkg.Invocation) ([]byte, error) {
					started := time.Now()
					body, err := next(ctx, inv)
					outcome := "success"
					if err != nil {
						outcome = "error"
					}
					l.metrics.invocation(outcome, time.Since(started))
					return body, err
				}
			}, nil
		},
	}
}

// RecovererMiddleware converts a panicking function into a regular
// invocation error so the loop survives and the failure is reported
// upstream with the captured stack.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "recoverer",
		Middleware: func(next InvokeFunc) InvokeFunc {
			return func(ctx context.Context, inv *transportpkg.Invocation) (body []byte, err error) {
				defer func() {
					if v := recover(); v != nil {
						body = nil
						err = &errspkg.PanicError{Value: v, Stack: debug.Stack()}
					}
				}()
				return next(ctx, inv)
			}
		},
	}
}
