// Package telemetry sets up OpenTelemetry tracing and metrics. Spans and
// metric snapshots are written as JSON to size-rotated files.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/soyeahso/vchat/internal/logging"
	"github.com/soyeahso/vchat/internal/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Init.
type Options struct {
	Enabled     bool
	Dir         string // directory for trace and metric files
	ServiceName string // e.g. "vchat-chat" or "vchat-server"
	Interval    time.Duration

	// TraceWriter and MetricWriter replace the rotated files when set.
	TraceWriter  io.Writer
	MetricWriter io.Writer
}

// Shutdown flushes and stops the providers installed by Init.
type Shutdown func(ctx context.Context) error

// Init installs global tracer and meter providers. When telemetry is
// disabled the global no-op providers are left in place.
func Init(ctx context.Context, opts Options, log *logging.Logger) (Shutdown, error) {
	if !opts.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "vchat"
	}
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	tlog := log.Sub("telemetry")

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(version.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var closers []io.Closer
	traceOut, err := output(opts.TraceWriter, opts.Dir, opts.ServiceName+"_traces.log", &closers)
	if err != nil {
		return nil, err
	}
	metricOut, err := output(opts.MetricWriter, opts.Dir, opts.ServiceName+"_metrics.log", &closers)
	if err != nil {
		return nil, err
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(traceOut))
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(metricOut))
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(opts.Interval))),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	tlog.Info().Str("service", opts.ServiceName).Str("dir", opts.Dir).Msg("telemetry enabled")

	return func(ctx context.Context) error {
		var errs []error
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
		for _, c := range closers {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			tlog.Warn().Err(err).Msg("telemetry shutdown")
			return err
		}
		return nil
	}, nil
}

func output(w io.Writer, dir, name string, closers *[]io.Closer) (io.Writer, error) {
	if w != nil {
		return w, nil
	}
	if dir == "" {
		return nil, errors.New("telemetry: dir is required when writers are not set")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating telemetry directory: %w", err)
	}
	lj := &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	*closers = append(*closers, lj)
	return lj, nil
}
