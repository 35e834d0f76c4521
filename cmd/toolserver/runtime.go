package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/toolserver"
)

// serve binds addr and serves server's mux (plus /metrics, when
// enabled) until SIGINT/SIGTERM, then shuts down gracefully. Every
// domain subcommand's RunE delegates here once its Store is wired.
func serve(ctx context.Context, server *toolserver.Server, addr string, metricsEnabled bool, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mux := http.NewServeMux()
	mux.Handle("/", server.Mux())
	if metricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("tool server http error", "error", err)
		}
	}()
	logger.Info("tool server started", "server", server.Name, "addr", addr)

	<-ctx.Done()
	logger.Info("shutdown signal received", "server", server.Name)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
