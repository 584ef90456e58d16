package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"gapfill/internal/artifact"
	"gapfill/internal/blob"
	"gapfill/internal/config"
	"gapfill/internal/gapfill"
	"gapfill/internal/oracle"
	"gapfill/internal/refdb"
	"gapfill/pkg/domain"
)

// app holds everything a command needs, built from configuration.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	ref       *domain.Reference
	catalog   *refdb.Catalog
	oracle    domain.Oracle
	runs      gapfill.LedgerStore
	artifacts *artifact.Store
	metrics   gapfill.MetricsRecorder
	tracer    gapfill.Tracer
	closers   []func() error
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// setup loads configuration and opens every collaborator. needReference is
// false for commands that only read the run ledger.
func setup(ctx context.Context, flags *rootFlags, stderr io.Writer, needReference bool) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: newLogger(cfg, stderr)}
	if err := a.open(ctx, stderr, needReference); err != nil {
		return nil, errors.Join(err, a.Close())
	}
	return a, nil
}

func (a *app) open(ctx context.Context, stderr io.Writer, needReference bool) error {
	runs, err := gapfill.OpenRunStore(ctx, gapfill.StorageDriver(a.cfg.Storage.Driver), a.cfg.Storage.SQLitePath, a.cfg.Storage.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open run ledger: %w", err)
	}
	a.runs = runs
	if c, ok := runs.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
	if !needReference {
		return nil
	}

	blobs, err := blob.Open(ctx, blob.Config{
		Driver: blob.Driver(a.cfg.Blob.Driver),
		FSRoot: a.cfg.Blob.FSRoot,
		S3: blob.S3Config{
			Bucket:          a.cfg.Blob.S3.Bucket,
			Region:          a.cfg.Blob.S3.Region,
			Endpoint:        a.cfg.Blob.S3.Endpoint,
			PathStyle:       a.cfg.Blob.S3.PathStyle,
			AccessKeyID:     a.cfg.Blob.S3.AccessKey,
			SecretAccessKey: a.cfg.Blob.S3.SecretKey,
		},
	})
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}
	a.artifacts = artifact.New(blobs)

	if a.cfg.ReferencePath == "" {
		return errors.New("reference_path is not configured")
	}
	organism, err := domain.ParseOrganismType(a.cfg.OrganismType)
	if err != nil {
		return err
	}
	a.ref, err = refdb.Load(a.cfg.ReferencePath, organism)
	if err != nil {
		return err
	}
	a.catalog = refdb.NewCatalog(a.ref)
	a.logger.Info("reference loaded", "organism", organism, "reactions", a.ref.Reactions.Len(), "enzymes", len(a.ref.Enzymes))

	if a.oracle, err = newOracle(a.cfg.Oracle); err != nil {
		return err
	}
	if err := a.openMetrics(); err != nil {
		return err
	}
	return a.openTracer(stderr)
}

func newOracle(cfg config.Oracle) (domain.Oracle, error) {
	var base domain.Oracle
	switch cfg.Driver {
	case "exec":
		solver, err := oracle.NewExec(cfg.Command)
		if err != nil {
			return nil, err
		}
		base = solver
	default:
		base = oracle.NewExpansion()
	}
	if cfg.CacheSize == 0 {
		return base, nil
	}
	return oracle.NewCached(base, cfg.CacheSize)
}

// openTracer installs the configured tracer. The otel exporter installs an
// SDK tracer provider that writes spans to w and is flushed on Close.
func (a *app) openTracer(w io.Writer) error {
	switch a.cfg.Tracing {
	case "json":
		a.tracer = gapfill.NewJSONTracer(w)
	case "otel":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return fmt.Errorf("trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", "gapfill"))),
		)
		otel.SetTracerProvider(tp)
		a.tracer = gapfill.NewOTelTracer(tp.Tracer("gapfill"))
		a.closers = append(a.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return tp.Shutdown(ctx)
		})
	}
	return nil
}

func (a *app) openMetrics() error {
	mux := http.NewServeMux()
	switch a.cfg.Metrics.Exporter {
	case "expvar":
		a.metrics = gapfill.NewExpvarMetricsRecorder("gapfill")
		mux.Handle("/debug/vars", expvar.Handler())
	case "prometheus":
		reg := prometheus.NewRegistry()
		rec, err := gapfill.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return err
		}
		a.metrics = rec
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	default:
		return nil
	}

	ln, err := net.Listen("tcp", a.cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "error", err)
		}
	}()
	a.logger.Info("metrics exporter listening", "exporter", a.cfg.Metrics.Exporter, "addr", ln.Addr().String())
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
	return nil
}

func (a *app) options() []gapfill.Option {
	opts := []gapfill.Option{
		gapfill.WithLogger(a.logger),
		gapfill.WithRunStore(a.runs),
	}
	if a.artifacts != nil {
		opts = append(opts, gapfill.WithArtifacts(a.artifacts))
	}
	if a.metrics != nil {
		opts = append(opts, gapfill.WithMetricsRecorder(a.metrics))
	}
	if a.tracer != nil {
		opts = append(opts, gapfill.WithTracer(a.tracer))
	}
	return opts
}

func (a *app) service(ev gapfill.Evidence) *gapfill.Service {
	return gapfill.NewService(a.ref, a.oracle, a.catalog, gapfill.ServiceConfig{
		GrowthThreshold:    a.cfg.GrowthThreshold,
		DefaultProbability: a.cfg.DefaultProbability,
		Concurrency:        a.cfg.Concurrency,
		Evidence:           ev,
	}, a.options()...)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
