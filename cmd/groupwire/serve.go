package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/vango-dev/groupwire/internal/errors"
	"github.com/vango-dev/groupwire/pkg/inspect"
	"github.com/vango-dev/groupwire/pkg/message"
	"github.com/vango-dev/groupwire/pkg/metrics"
)

func serveCmd(e *env) *cobra.Command {
	var (
		addr      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the inspection server",
		Long: `Start an HTTP server that decodes and encodes messages.

Routes:
  POST /v1/decode   decode a type byte + message, answer with JSON
  POST /v1/encode   build a message from JSON, answer with its encoding
  GET  /v1/ws       decode binary WebSocket frames
  GET  /metrics     Prometheus metrics (unless disabled)
  GET  /healthz

Examples:
  groupwire serve
  groupwire serve --addr :7811`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				e.cfg.Server.Addr = addr
			}
			if noMetrics {
				e.cfg.Metrics.Enabled = false
			}

			var (
				codecOpts  []message.CodecOption
				serverOpts = []inspect.Option{
					inspect.WithLogger(e.logger.With("component", "inspect")),
					inspect.WithTracerName(e.cfg.Server.TracerName),
					inspect.WithReadLimit(e.cfg.Server.ReadLimit),
				}
			)
			if e.cfg.Metrics.Enabled {
				reg := prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				obs := metrics.New(
					metrics.WithRegistry(reg),
					metrics.WithNamespace(e.cfg.Metrics.Namespace),
				)
				codecOpts = append(codecOpts, message.WithObserver(obs))
				serverOpts = append(serverOpts, inspect.WithGatherer(reg))
			}

			codec, err := e.newCodec(codecOpts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := inspect.New(codec, serverOpts...)
			if err := srv.ListenAndServe(ctx, e.cfg.Server.Addr); err != nil {
				return errors.New("G061").WithDetail("listening on " + e.cfg.Server.Addr).Wrap(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from groupwire.toml)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Disable the /metrics endpoint")

	return cmd
}
