package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	session "github.com/parley-ai/parley-core/core"
	"github.com/parley-ai/parley-core/core/metrics"
	"github.com/parley-ai/parley-core/core/vad"
	"github.com/parley-ai/parley-core/internal/config"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	credentials := config.LoadCredentials()
	if credentials.DeepgramKey == "" {
		logger.Warn("DEEPGRAM_API_KEY is not set, speech providers will refuse to connect")
	}

	logger.Info("Service starting",
		slog.String("config_path", *configPath),
		slog.String("address", cfg.Server.Address),
		slog.String("llm_model", cfg.Providers.LLMModel),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.String("encoding", cfg.Audio.Encoding),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	engineMetrics := metrics.NewMetrics(registry)

	worker := session.NewWorker(session.WithWorkerMetrics(engineMetrics))
	if err := worker.Prewarm(ctx, vad.WithSampleRate(cfg.Audio.SampleRate)); err != nil {
		logger.Error("Failed to prewarm worker", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.Metrics.Address, Handler: metricsMux}
		go func() {
			logger.Info("Metrics server listening", slog.String("address", cfg.Metrics.Address))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	sessions := newSessionServer(cfg, worker, logger)
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           sessions.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Session server listening", slog.String("address", cfg.Server.Address))
		serverErrors <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Session server failed", slog.String("error", err.Error()))
		}
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Session server shutdown failed", slog.String("error", err.Error()))
		_ = server.Close()
	}

	if err := worker.Drain(shutdownCtx); err != nil {
		logger.Error("Worker drain incomplete", slog.String("error", err.Error()))
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed", slog.String("error", err.Error()))
		}
	}

	logger.Info("Service stopped", slog.Int("active_sessions", worker.ActiveSessions()))
}
