package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/editstream/internal/config"
	"github.com/vango-dev/editstream/internal/demo"
	clierrors "github.com/vango-dev/editstream/internal/errors"
	"github.com/vango-dev/editstream/pkg/journal"
	"github.com/vango-dev/editstream/pkg/metrics"
	"github.com/vango-dev/editstream/pkg/scheduler"
	"github.com/vango-dev/editstream/pkg/transport"
)

func serveCmd(load configLoader) *cobra.Command {
	var (
		listen string
		codec  string
		start  int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo counter over WebSocket",
		Long: `Serve the demo counter model. Every WebSocket connection on /ws
gets its own counter and scheduler.

Endpoints:
  /ws                         renderer link
  /healthz                    liveness and session count
  /metrics                    Prometheus metrics
  /sessions                   connected sessions
  /sessions/{id}/journal      applied streams of a session
  /sessions/{id}/tasks/{name} post "reset" or "increment" to a counter
  /sessions/{id}/rebuild      force a full rebuild

Examples:
  editstream serve
  editstream serve --listen :9000 --codec cbor
  EDITSTREAM_JOURNAL_S3_BUCKET=archive editstream serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if codec != "" {
				cfg.Server.Codec = codec
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			return runServe(cmd.Context(), cfg, start)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&codec, "codec", "", "Edit stream codec: binary or cbor (default from config)")
	cmd.Flags().IntVar(&start, "start", 0, "Initial counter value")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, start int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cfg.Logger(os.Stderr)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithRegistry(reg),
	)

	srvCfg := transport.DefaultServerConfig()
	srvCfg.Link.PingInterval = cfg.PingInterval()
	srvCfg.Link.Observer = collector
	srvCfg.Codec = cfg.Codec()
	srvCfg.AckTimeout = cfg.AckTimeout()
	srvCfg.EventBuffer = cfg.Server.EventBuffer
	srvCfg.HistoryCapacity = cfg.Journal.Capacity
	srvCfg.SchedulerObserver = collector
	srvCfg.Gatherer = reg
	srvCfg.Logger = logger
	if origins := cfg.Server.AllowedOrigins; len(origins) > 0 {
		srvCfg.CheckOrigin = func(r *http.Request) bool {
			return slices.Contains(origins, r.Header.Get("Origin"))
		}
	}
	if cfg.S3Enabled() {
		s3cfg := cfg.Journal.S3
		client := journal.NewS3Client(journal.S3Config{
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			UsePathStyle:    s3cfg.UsePathStyle,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
		})
		srvCfg.Sink = journal.NewS3Sink(client, s3cfg.Bucket, s3cfg.Prefix)
		logger.Info("archiving streams", "bucket", s3cfg.Bucket, "prefix", s3cfg.Prefix)
	}

	srv := transport.NewServer(func(id string) (scheduler.Model, error) {
		return demo.NewCounter(start), nil
	}, srvCfg)

	httpServer := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Listen, "codec", cfg.Codec())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return clierrors.New("E301").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("sessions did not stop in time", "error", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return clierrors.New("E301").Wrap(err)
	}
	return nil
}
