// Command cryptexqd runs the quantum-secure messaging key-establishment
// server: a WebSocket endpoint for clients plus an optional observability
// endpoint exposing Prometheus metrics and health.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cryptexq/cryptexq-go/internal/config"
	"github.com/cryptexq/cryptexq-go/pkg/metrics"
	"github.com/cryptexq/cryptexq-go/pkg/session"
	"github.com/cryptexq/cryptexq-go/pkg/transport"
)

var (
	version   = "dev"     // Set via -ldflags "-X main.version=x.y.z"
	gitCommit = "unknown" // Set via -ldflags "-X main.gitCommit=..."
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("cryptexqd %s (%s)\n", version, gitCommit)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "cryptexqd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := metrics.NewLogger(
		metrics.WithLevel(metrics.ParseLevel(cfg.Log.Level)),
		metrics.WithFormat(metrics.ParseFormat(cfg.Log.Format)),
		metrics.WithName("cryptexqd"),
	)
	logger.Info("starting", metrics.Fields{"version": version})

	collectors := metrics.NewCollectors()

	svc, err := session.NewService(cfg,
		session.WithLogger(logger.Named("session")),
		session.WithCollectors(collectors),
		session.WithTracer(metrics.NewOTelTracer("cryptexqd")),
	)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}

	hub := transport.NewHub(svc,
		transport.WithHubLogger(logger.Named("transport")),
		transport.WithRateLimit(cfg.RateLimit.EventsPerSecond, cfg.RateLimit.Burst),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collectors.Handler())
		obs := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			logger.Info("observability listening", metrics.Fields{"addr": cfg.MetricsAddr})
			if err := obs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("observability server error", metrics.Fields{"err": err.Error()})
			}
		}()
		go func() {
			<-ctx.Done()
			_ = obs.Shutdown(context.Background())
		}()
	}

	if err := hub.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
