package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tbxark/formpilot/config"
	"github.com/tbxark/formpilot/internal/app"
	"github.com/tbxark/formpilot/internal/logger"
	"github.com/tbxark/formpilot/metrics"
	"github.com/tbxark/formpilot/server"
)

func main() {
	conf := flag.String("config", "config.json", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*conf)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	slog.SetDefault(logger.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.New("formpilot", reg)
	if err != nil {
		return err
	}
	producer, err := app.NewProducer(ctx, cfg)
	if err != nil {
		return err
	}
	chat, err := app.NewChat(cfg, producer, recorder)
	if err != nil {
		return err
	}

	e := server.New(chat, reg)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Listen, "provider", cfg.Provider, "max_steps", cfg.MaxSteps)
		if err := e.Start(cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
