package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	cerrors "github.com/vango-dev/cascade/internal/errors"
	"github.com/vango-dev/cascade/pkg/cascade"
	"github.com/vango-dev/cascade/pkg/inspect"
	"github.com/vango-dev/cascade/pkg/scenario"
)

func inspectCmd(g *globals) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "inspect <scenario>",
		Short: "Play a scenario and serve its tree for inspection",
		Long: `Play a scenario, keep its tree mounted and serve it over HTTP.

Endpoints:
  GET /tree      the mounted tree with attrs, state and rendered text
  GET /events    recorded notifications (?limit=n)
  GET /warnings  deprecated state changes
  GET /metrics   Prometheus metrics
  GET /ws        live stream

Examples:
  cascade inspect scenarios/03_did_insert_element_mutation.yaml
  cascade inspect --port=9000 scenarios/01_lifecycle_order.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, g)
			if err != nil {
				return err
			}
			if port > 0 {
				e.cfg.Inspect.Port = port
			}
			if host != "" {
				e.cfg.Inspect.Host = host
			}
			return runInspect(cmd, e, args[0])
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from cascade.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from cascade.json)")

	return cmd
}

func runInspect(cmd *cobra.Command, e *env, path string) error {
	out := cmd.OutOrStdout()

	sc, err := loadScenario(path)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	session, err := scenario.Prepare(sc, e.schedulerOptions(cascade.WithMetrics(e.collector(reg)))...)
	if err != nil {
		return cerrors.Classify(err)
	}

	in := inspect.New(session.Scheduler(), inspect.Config{
		Buffer:   session.Buffer(),
		Gatherer: reg,
		Logger:   e.logger,
	})
	defer in.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res := session.Play(ctx)
	if res.Passed() {
		success(out, "%s played %d steps", sc.Name, len(res.Steps))
	} else {
		warn(out, "%s played with mismatches", sc.Name)
		for _, f := range res.Failures() {
			info(out, "%s", f)
		}
	}

	ln, err := net.Listen("tcp", e.cfg.InspectAddress())
	if err != nil {
		return cerrors.New("C120").WithDetail("Could not listen on " + e.cfg.InspectAddress()).Wrap(err)
	}
	server := &http.Server{
		Handler:           in.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	info(out, "inspector on http://%s", ln.Addr())

	errc := make(chan error, 1)
	go func() { errc <- server.Serve(ln) }()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return cerrors.New("C120").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	info(out, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	in.Close()
	return server.Shutdown(shutdownCtx)
}
