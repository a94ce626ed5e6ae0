// Package scope drives one build's worth of signal collection end to end:
// it wires a bus to a backend, runs the caller's closure with a Sender
// available in its context, and guarantees a BuildFinished signal is sent
// and the report published no matter how the closure exits.
package scope

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/latticebuild/critpath/backend"
	"github.com/latticebuild/critpath/internal/config"
	"github.com/latticebuild/critpath/internal/critlog"
	"github.com/latticebuild/critpath/internal/metrics"
	"github.com/latticebuild/critpath/listener"
	"github.com/latticebuild/critpath/signal"
)

// Options configures a Run call. A zero Options is valid: it selects the
// backend from BUCK2_USE_LONGEST_PATH_GRAPH (Default when unset), a no-op
// logger, a disabled metrics registry, and discards the report.
type Options struct {
	Logger  *critlog.Logger
	Metrics *metrics.Registry
	Sink    listener.EventSink

	// Backend overrides automatic backend selection. When nil, the
	// backend is chosen by internal/config.UseLongestPathGraph.
	Backend backend.Backend
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = critlog.New(nil, nil)
	}
	if o.Sink == nil {
		o.Sink = listener.NoopEventSink
	}
	if o.Backend == nil {
		o.Backend = selectBackend(o.Logger)
	}
	return o
}

// selectBackend reads BUCK2_USE_LONGEST_PATH_GRAPH once and constructs the
// chosen backend, logging the choice (and any parse failure) through
// logger's structured and hot-path loggers respectively.
func selectBackend(logger *critlog.Logger) backend.Backend {
	use, present, parseable := config.UseLongestPathGraph()
	if present && !parseable {
		logger.Warn(fmt.Sprintf("%s is set but not a recognized boolean; falling back to the default backend", config.EnvUseLongestPathGraph))
	}

	var (
		be   backend.Backend
		name string
	)
	if use {
		name = "longest_path"
		be = backend.NewLongestPath().WithLogger(logger)
	} else {
		name = "default"
		be = backend.NewDefault()
	}

	logger.Structured().Info("selected critical-path backend",
		zap.String("backend", name),
		zap.Bool("env_present", present),
		zap.Bool("env_parseable", parseable),
	)
	return be
}

// Run executes fn with a signal Sender threaded through ctx, collects
// every signal fn's goroutines emit via that Sender, and publishes the
// resulting report through opts.Sink once fn returns. A BuildFinished
// signal is sent on every exit path, including when fn returns an error
// or panics; a panic in fn is recovered and returned as an error, after
// the report has been published, so the report is never silently lost.
func Run(ctx context.Context, opts Options, fn func(ctx context.Context) error) (listener.BuildGraphExecutionInfo, error) {
	opts = opts.withDefaults()
	start := time.Now()

	bus := signal.NewBus()
	sender := bus.Sender()
	recv := listener.New(bus.Receiver(), opts.Backend, opts.Logger, opts.Metrics)

	type result struct {
		info listener.BuildGraphExecutionInfo
		err  error
	}
	done := make(chan result, 1)
	go func() {
		info, err := recv.Run()
		done <- result{info: info, err: err}
	}()

	runCtx := listener.WithSender(ctx, sender)

	fnErr := callProtected(func() error {
		return fn(runCtx)
	})

	sender.Signal(signal.BuildFinishedSignal{})

	r := <-done
	if r.err != nil {
		opts.Logger.Error("listener failed to assemble report", r.err)
		return listener.BuildGraphExecutionInfo{}, r.err
	}

	opts.Logger.Structured().Info("build critical path computed",
		zap.Uint64("num_nodes", r.info.NumNodes),
		zap.Uint64("num_edges", r.info.NumEdges),
		zap.Int("critical_path_len", len(r.info.CriticalPath)),
		zap.Duration("scope_elapsed", time.Since(start)),
	)

	opts.Sink.Publish(r.info)

	if fnErr != nil {
		return r.info, fnErr
	}
	return r.info, nil
}

// callProtected runs fn and converts a panic into an error, so Run still
// reaches its BuildFinished send and a panicking build body never leaves
// the bus without its terminal signal.
func callProtected(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicError{rec}
		}
	}()
	return fn()
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("scope: panic in build closure: %v", p.v) }
