// Package exporter wires the probe attacher, the translation loop and the HTTP
// endpoint into one process lifecycle.
package exporter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coral-mesh/jitterbuffer-exporter/internal/bpf"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/catalog"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/config"
	exporterrors "github.com/coral-mesh/jitterbuffer-exporter/internal/errors"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/metrics"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/probe"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/server"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/stats"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/target"
	"github.com/coral-mesh/jitterbuffer-exporter/internal/translator"
	"github.com/coral-mesh/jitterbuffer-exporter/pkg/version"
)

// Exporter holds the process-scoped state built during startup.
// The phases must run in order; Close releases whatever was acquired.
type Exporter struct {
	cfg        *config.Config
	logger     zerolog.Logger
	instanceID string
	objectPath string

	target     target.Target
	objects    *bpf.Objects
	probes     *probe.AttachedSet
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	translator *translator.Translator
	server     *server.Server
}

// New creates an Exporter for cfg.
func New(cfg *config.Config, logger zerolog.Logger) *Exporter {
	return &Exporter{
		cfg:        cfg,
		logger:     logger,
		instanceID: uuid.NewString(),
	}
}

// InstanceID identifies this process in the health payload.
func (e *Exporter) InstanceID() string {
	return e.instanceID
}

// Validate checks the configuration and that the instrumentation object exists.
func (e *Exporter) Validate() error {
	if err := e.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	path, err := bpf.ResolveObjectPath(e.cfg.Instrumentation.BPFObject)
	if err != nil {
		return err
	}
	if err := bpf.CheckSource(path); err != nil {
		return err
	}
	e.objectPath = path

	caps := bpf.DetectCapabilities()
	e.logger.Info().
		Str("kernel", caps.KernelRelease).
		Bool("btf", caps.BTFAvailable).
		Bool("privileged", caps.Privileged).
		Msg("Host capabilities")
	if !caps.Privileged {
		e.logger.Warn().Msg("Not running as root; loading the instrumentation program will likely fail")
	}

	return nil
}

// ResolveTarget resolves the configured binary or pid.
func (e *Exporter) ResolveTarget() error {
	t, err := target.Resolve(target.Spec{
		BinaryPath: e.cfg.Target.Binary,
		PID:        e.cfg.Target.PID,
	}, e.logger)
	if err != nil {
		return err
	}
	e.target = t

	e.logger.Info().Str("target", t.String()).Msg("Resolved target")
	return nil
}

// LoadInstrumentation loads the BPF object into the kernel.
func (e *Exporter) LoadInstrumentation() error {
	objs, err := bpf.Load(e.objectPath, e.logger)
	if err != nil {
		return err
	}
	e.objects = objs
	return nil
}

// AttachProbes attaches every candidate it can to the target.
func (e *Exporter) AttachProbes(ctx context.Context) error {
	attacher, err := probe.New(probe.Config{
		Programs: e.objects,
		Catalog:  catalog.Default().WithLibraryPaths(e.cfg.Instrumentation.LibraryPaths),
		Logger:   e.logger,
	})
	if err != nil {
		return err
	}

	set, err := attacher.Attach(ctx, e.target)
	if err != nil {
		return err
	}
	e.probes = set

	e.logger.Info().
		Int("attached", set.Len()).
		Int("tried", len(set.Results())).
		Strs("probes", set.IDs()).
		Msg("Probes attached")
	return nil
}

// InitializeMetrics builds the registry and the translation loop.
func (e *Exporter) InitializeMetrics() error {
	table, err := stats.NewMapTable(e.objects.Stats)
	if err != nil {
		return err
	}

	e.registry = prometheus.NewRegistry()
	e.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	e.metrics = metrics.New(e.registry)
	e.metrics.AttachedProbes.Set(float64(e.probes.Len()))

	e.translator = translator.New(table, e.metrics, e.cfg.Collection.Interval, e.logger)
	return nil
}

// InitializeServer binds the exposition endpoint.
func (e *Exporter) InitializeServer(ctx context.Context) error {
	handler := server.NewHandler(e.registry, e.health, e.logger)

	e.server = server.New(server.Config{
		Address:         e.cfg.Server.Address,
		Port:            e.cfg.Server.Port,
		ShutdownTimeout: e.cfg.Server.ShutdownTimeout,
		Logger:          e.logger,
	}, handler)

	return e.server.Listen(ctx)
}

// Run serves metrics and runs the translation loop until ctx is cancelled.
func (e *Exporter) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return e.translator.Run(ctx)
	})
	g.Go(func() error {
		return e.server.Serve(ctx)
	})

	e.logger.Info().
		Str("instance_id", e.instanceID).
		Str("addr", e.server.Addr().String()).
		Msg("Exporter started - waiting for shutdown signal")

	return g.Wait()
}

// Close detaches the probes and releases the BPF collection.
func (e *Exporter) Close() error {
	exporterrors.DeferClose(e.logger, e.probes, "Failed to detach probes")
	exporterrors.DeferClose(e.logger, e.objects, "Failed to close instrumentation program")
	e.probes, e.objects = nil, nil
	return nil
}

func (e *Exporter) health() server.Health {
	h := server.Health{
		InstanceID:     e.instanceID,
		Version:        version.Version,
		AttachedProbes: e.probes.Len(),
	}
	if e.translator != nil {
		if last := e.translator.LastCollection(); !last.IsZero() {
			last = last.UTC().Truncate(time.Millisecond)
			h.LastCollection = &last
		}
	}
	return h
}

// Start runs every startup phase and then blocks in Run.
func Start(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	e := New(cfg, logger)
	defer e.Close() // nolint:errcheck

	phases := []struct {
		name string
		fn   func() error
	}{
		{"validate", e.Validate},
		{"resolve target", e.ResolveTarget},
		{"load instrumentation", e.LoadInstrumentation},
		{"attach probes", func() error { return e.AttachProbes(ctx) }},
		{"initialize metrics", e.InitializeMetrics},
		{"initialize server", func() error { return e.InitializeServer(ctx) }},
	}

	for _, p := range phases {
		if err := p.fn(); err != nil {
			logger.Debug().Err(err).Str("phase", p.name).Msg("Startup phase failed")
			return err
		}
	}

	return e.Run(ctx)
}
