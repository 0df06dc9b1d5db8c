package runtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	configpkg "github.com/drblury/lambdaloop/internal/runtime/config"
	errspkg "github.com/drblury/lambdaloop/internal/runtime/errors"
	loggingpkg "github.com/drblury/lambdaloop/internal/runtime/logging"
	registrypkg "github.com/drblury/lambdaloop/internal/runtime/registry"
	tracingpkg "github.com/drblury/lambdaloop/internal/runtime/tracing"
	transportpkg "github.com/drblury/lambdaloop/internal/runtime/transport"
)

// Transport is the control-endpoint client contract the loop drives. A
// fatal error from Poll stops the loop; a (nil, nil) result is a transient
// miss and the loop retries after a backoff.
type Transport interface {
	Poll(ctx context.Context) (*transportpkg.Invocation, error)
	Respond(ctx context.Context, requestID string, body []byte) error
	ReportError(ctx context.Context, requestID string, body []byte) error
}

// Dependencies carries the collaborators of an event loop. Catalog is
// required; everything else has a default.
type Dependencies struct {
	// Catalog resolves function names to registered functions.
	Catalog registrypkg.Catalog

	// Transport overrides the HTTP control-endpoint client.
	Transport Transport

	// Codec overrides the event/message conversion.
	Codec MessageCodec

	// Middlewares are appended inside the default stack. Set
	// DisableDefaultMiddlewares to replace the stack entirely.
	Middlewares               []MiddlewareRegistration
	DisableDefaultMiddlewares bool

	// Registerer receives the loop's Prometheus collectors when metrics
	// are enabled. Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// EventLoop polls the control endpoint for invocation events, resolves the
// target function, invokes it and posts the outcome back. One loop runs at
// most one worker goroutine; Start and Stop may be called from any
// goroutine.
type EventLoop struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	catalog  registrypkg.Catalog
	client   Transport
	codec    MessageCodec
	invoke   InvokeFunc
	reporter *reporter

	stats   *LoopStats
	metrics *loopMetrics

	running     atomic.Bool
	metricsOnce sync.Once

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	terminalErr error
}

// NewEventLoop builds an event loop and panics when the configuration or
// dependencies are unusable. Use TryNewEventLoop to handle the error
// instead.
func NewEventLoop(conf *configpkg.Config, logger loggingpkg.ServiceLogger, deps Dependencies) *EventLoop {
	l, err := TryNewEventLoop(conf, logger, deps)
	if err != nil {
		panic(err)
	}
	return l
}

// TryNewEventLoop builds an event loop, validating the configuration and
// wiring defaults for any dependency left unset.
func TryNewEventLoop(conf *configpkg.Config, logger loggingpkg.ServiceLogger, deps Dependencies) (*EventLoop, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if deps.Catalog == nil {
		return nil, errspkg.ErrCatalogRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	l := &EventLoop{
		Conf:    conf,
		Logger:  logger,
		catalog: deps.Catalog,
		client:  deps.Transport,
		codec:   deps.Codec,
		stats:   &LoopStats{},
		done:    closedChan(),
	}
	if l.client == nil {
		l.client = transportpkg.NewClient(conf, logger)
	}
	if l.codec == nil {
		l.codec = defaultCodec{}
	}
	if conf.MetricsEnabled {
		reg := deps.Registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		l.metrics = newLoopMetrics(reg)
	}
	l.reporter = &reporter{client: l.client, logger: logger, metrics: l.metrics, stats: l.stats}

	if err := l.buildInvokePipeline(deps); err != nil {
		return nil, err
	}
	return l, nil
}

// buildInvokePipeline composes the middleware chain around the base
// resolve/decode/invoke/encode pipeline. The first registration ends up
// outermost.
func (l *EventLoop) buildInvokePipeline(deps Dependencies) error {
	var registrations []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		registrations = DefaultMiddlewares()
	}
	registrations = append(registrations, deps.Middlewares...)

	l.invoke = l.process
	for i := len(registrations) - 1; i >= 0; i-- {
		registration := registrations[i]
		mw := registration.Middleware
		if registration.Builder != nil {
			built, err := registration.Builder(l)
			if err != nil {
				return fmt.Errorf("lambdaloop: building middleware %q: %w", registration.Name, err)
			}
			mw = built
		}
		if mw == nil {
			continue
		}
		l.Logger.Debug("registering middleware", loggingpkg.LogFields{"middleware": registration.Name})
		l.invoke = mw(l.invoke)
	}
	return nil
}

// Start launches the worker goroutine. Calling Start on a running loop is
// a no-op. The loop keeps running until Stop is called, the context is
// cancelled, or the transport fails fatally.
func (l *EventLoop) Start(ctx context.Context) {
	if !l.running.CompareAndSwap(false, true) {
		l.Logger.Debug("event loop already running", nil)
		return
	}

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.mu.Lock()
	l.cancel = cancel
	l.done = done
	l.terminalErr = nil
	l.mu.Unlock()

	l.startMetricsServer()
	l.Logger.Info("starting event loop", loggingpkg.LogFields{
		"runtime_api": l.Conf.RuntimeAPI,
		"version":     l.Conf.Version(),
		"user_agent":  transportpkg.UserAgent,
	})
	go l.run(workerCtx, done)
}

// Stop signals the worker to exit. It returns immediately; wait on Done
// for the worker to finish. Stop is idempotent.
func (l *EventLoop) Stop() {
	l.running.Store(false)
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// IsRunning reports whether the worker goroutine is active.
func (l *EventLoop) IsRunning() bool {
	return l.running.Load()
}

// Done returns a channel closed when no worker goroutine is running:
// before the first Start it is already closed, after a Start it closes
// when that worker exits.
func (l *EventLoop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Err returns the error that terminated the loop, if any. A clean Stop
// leaves it nil.
func (l *EventLoop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.terminalErr
}

// Stats returns a snapshot of the loop counters.
func (l *EventLoop) Stats() LoopStatsSnapshot {
	return l.stats.Snapshot()
}

func (l *EventLoop) fail(err error) {
	l.mu.Lock()
	l.terminalErr = err
	l.mu.Unlock()
	l.Stop()
}

func (l *EventLoop) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer l.running.Store(false)

	l.Logger.Info("entering event loop", nil)
	pollBackoff := l.newPollBackoff()

	for l.running.Load() {
		inv, err := l.client.Poll(ctx)
		if err != nil {
			l.metrics.pollOutcome("fatal")
			l.Logger.Error("control endpoint unreachable, exiting event loop", err, nil)
			l.fail(err)
			return
		}
		if inv == nil {
			if ctx.Err() != nil {
				return
			}
			l.metrics.pollOutcome("transient")
			l.stats.recordTransientPoll()
			l.sleep(ctx, pollBackoff.NextBackOff())
			continue
		}
		pollBackoff = l.newPollBackoff()
		l.metrics.pollOutcome("event")
		l.handle(ctx, inv)
	}
}

// handle runs one invocation end to end. Failures anywhere in the pipeline
// are reported upstream as structured errors; only a failure to deliver
// that report terminates the loop.
func (l *EventLoop) handle(ctx context.Context, inv *transportpkg.Invocation) {
	l.stats.recordPoll(inv.RequestID)
	if inv.TraceID != "" {
		tracingpkg.Propagate(inv.TraceID)
	}
	// The platform deadline bounds the function only. Respond and Report
	// run on the worker context so an expired invocation can still be
	// reported upstream.
	invokeCtx := ctx
	if deadline, ok := inv.Deadline(); ok {
		var cancel context.CancelFunc
		invokeCtx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	body, err := l.invoke(invokeCtx, inv)
	if err == nil {
		err = l.client.Respond(ctx, inv.RequestID, body)
	}
	if err == nil {
		l.stats.recordSuccess()
		return
	}

	l.stats.recordFailure(err)
	if reportErr := l.reporter.Report(ctx, inv.RequestID, err); reportErr != nil {
		l.Logger.Error("cannot deliver error report, exiting event loop", reportErr,
			loggingpkg.LogFields{"request_id": inv.RequestID})
		l.fail(reportErr)
	}
}

// process is the innermost InvokeFunc: resolve the target function, decode
// the event, invoke and encode the result.
func (l *EventLoop) process(ctx context.Context, inv *transportpkg.Invocation) ([]byte, error) {
	fn, err := resolveFunction(l.Conf, l.catalog, inv)
	if err != nil {
		return nil, err
	}

	in, err := l.codec.Decode(ctx, inv, fn.Supplier())
	if err != nil {
		return nil, err
	}

	l.Logger.Debug("invoking function", loggingpkg.LogFields{
		"function":   fn.Name(),
		"request_id": inv.RequestID,
	})
	out, err := fn.Invoke(in)
	if err != nil {
		return nil, err
	}
	return l.codec.Encode(in, out)
}

func (l *EventLoop) newPollBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if l.Conf.PollBackoffInitialInterval > 0 {
		b.InitialInterval = l.Conf.PollBackoffInitialInterval
	}
	if l.Conf.PollBackoffMaxInterval > 0 {
		b.MaxInterval = l.Conf.PollBackoffMaxInterval
	}
	return b
}

func (l *EventLoop) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (l *EventLoop) startMetricsServer() {
	if !l.Conf.MetricsEnabled || l.Conf.MetricsPort <= 0 {
		return
	}
	l.metricsOnce.Do(func() {
		addr := fmt.Sprintf(":%d", l.Conf.MetricsPort)
		l.Logger.Info("starting metrics server", loggingpkg.LogFields{"address": addr})
		go func() {
			if err := http.ListenAndServe(addr, promhttp.Handler()); err != nil {
				l.Logger.Error("metrics server stopped", err, loggingpkg.LogFields{"address": addr})
			}
		}()
	})
}
