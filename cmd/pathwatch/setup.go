package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vango-dev/pathwatch/internal/config"
	"github.com/vango-dev/pathwatch/internal/errors"
	"github.com/vango-dev/pathwatch/internal/telemetry"
	"github.com/vango-dev/pathwatch/pkg/observe"
)

// env is what every command builds before doing its work.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	graph    *observe.Graph
	metrics  *telemetry.Metrics
	registry *prometheus.Registry
}

func setup(flags *globalFlags, logOut io.Writer) (*env, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	e := &env{
		cfg: cfg,
		logger: slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})),
	}

	opts := []observe.Option{observe.WithLogger(e.logger)}
	if cfg.Metrics.Enabled {
		e.registry = prometheus.NewRegistry()
		e.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		e.metrics = telemetry.NewMetrics(
			telemetry.WithNamespace(cfg.Metrics.Namespace),
			telemetry.WithRegistry(e.registry),
		)
		opts = append(opts, observe.WithMetrics(e.metrics))
	}
	e.graph = observe.New(opts...)
	return e, nil
}

// loadDocument reads a JSON object or array from path and instruments it.
func (e *env) loadDocument(path string) (*observe.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("P201").WithDetail(path).Wrap(err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("P201").WithDetail(path).Wrap(err)
	}
	if !observe.CanObserve(doc) {
		return nil, errors.New("P202").WithDetail(path)
	}

	root, _, err := e.graph.Wrap(doc)
	if err != nil {
		return nil, errors.New("P202").WithDetail(path).Wrap(err)
	}
	e.logger.Debug("document loaded", "path", path, "nodes", e.graph.Len())
	return root, nil
}

// gatherer returns the registry as a Gatherer, or nil when metrics are off.
func (e *env) gatherer() prometheus.Gatherer {
	if e.registry == nil {
		return nil
	}
	return e.registry
}
