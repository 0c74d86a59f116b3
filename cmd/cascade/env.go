package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/cascade/internal/config"
	"github.com/vango-dev/cascade/internal/errors"
	"github.com/vango-dev/cascade/pkg/cascade"
	"github.com/vango-dev/cascade/pkg/metrics"
	"github.com/vango-dev/cascade/pkg/scenario"
	"github.com/vango-dev/cascade/pkg/tracestore"
)

// env is what a command needs once flags and cascade.json are resolved.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func loadEnv(cmd *cobra.Command, g *globals) (*env, error) {
	cfg, err := config.LoadOrDefault(g.dir)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		logger: cfg.Logger(cmd.ErrOrStderr()),
	}, nil
}

// schedulerOptions returns the logger and limits from cascade.json
// followed by extra.
func (e *env) schedulerOptions(extra ...cascade.Option) []cascade.Option {
	opts := append([]cascade.Option{
		cascade.WithLogger(e.logger.With("component", "cascade")),
	}, e.cfg.SchedulerOptions()...)
	return append(opts, extra...)
}

// collector creates a metrics collector registered on reg.
func (e *env) collector(reg prometheus.Registerer) *metrics.Collector {
	m := e.cfg.Metrics
	return metrics.New(
		metrics.WithRegistry(reg),
		metrics.WithNamespace(m.Namespace),
		metrics.WithSubsystem(m.Subsystem),
		metrics.WithConstLabels(prometheus.Labels(m.ConstLabels)),
	)
}

// traceStore opens the configured store.
func (e *env) traceStore() (tracestore.Store, error) {
	if e.cfg.UseS3() {
		s3cfg := e.cfg.Traces.S3
		client := tracestore.NewS3Client(tracestore.S3Config{
			Region:       s3cfg.Region,
			Endpoint:     s3cfg.Endpoint,
			UsePathStyle: s3cfg.PathStyle,
		})
		e.logger.Debug("using s3 trace store", "bucket", s3cfg.Bucket, "prefix", s3cfg.Prefix)
		return tracestore.NewS3Store(client, s3cfg.Bucket, s3cfg.Prefix), nil
	}
	store, err := tracestore.NewDiskStore(e.cfg.TracePath())
	if err != nil {
		return nil, errors.New("C101").Wrap(err)
	}
	return store, nil
}

// scenarioFiles expands paths (files or directories) into scenario files.
// Without paths the configured scenario directory is used.
func (e *env) scenarioFiles(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{e.cfg.ScenarioPath()}
	}
	var files []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, errors.New("C060").Wrap(err)
		}
		if !fi.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := scenario.Files(p)
		if err != nil {
			return nil, errors.New("C060").Wrap(err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, errors.New("C062").WithDetail(fmt.Sprintf("No .yaml or .yml files in %v", paths))
	}
	return files, nil
}

// loadScenario loads one file and turns decoding errors into C060 with
// the offending line.
func loadScenario(path string) (*scenario.Scenario, error) {
	sc, err := scenario.Load(path)
	if err != nil {
		return nil, errors.New("C060").
			WithDetail(fmt.Sprintf("%s could not be loaded.", filepath.Base(path))).
			WithLocationFromYAML(path, err).
			Wrap(err)
	}
	return sc, nil
}

func loadScenarios(files []string) ([]*scenario.Scenario, error) {
	out := make([]*scenario.Scenario, 0, len(files))
	for _, f := range files {
		sc, err := loadScenario(f)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
