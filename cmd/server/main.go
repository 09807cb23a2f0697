package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/texgest/internal/api"
	"github.com/dgallion1/texgest/internal/arxiv"
	"github.com/dgallion1/texgest/internal/config"
	"github.com/dgallion1/texgest/internal/latex"
	"github.com/dgallion1/texgest/internal/pipeline"
	"github.com/dgallion1/texgest/internal/store"
	"github.com/dgallion1/texgest/internal/version"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Info(fmt.Sprintf(format, args...))
	}))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	spec := latex.DefaultMarkerSpec()
	if cfg.MarkerSpecFile != "" {
		var err error
		if spec, err = latex.LoadMarkerSpec(cfg.MarkerSpecFile); err != nil {
			log.Error("invalid marker spec", "path", cfg.MarkerSpecFile, "error", err)
			os.Exit(1)
		}
	}

	processor, err := pipeline.NewProcessor(spec, cfg.FallbackTitles, cfg.MatchTimeout)
	if err != nil {
		log.Error("failed to build processor", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ax := arxiv.NewClient(cfg.ArxivURL, cfg.ArxivAPIURL)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, processor, st, ax, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, ax, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}

		orch.Stop()
		ax.Close()
		if err := st.Close(); err != nil {
			log.Warn("store close", "error", err)
		}
	}()

	log.Info("starting texgest",
		"port", cfg.Port,
		"version", version.Version,
		"workers", cfg.WorkerCount,
		"commands", spec.Commands(),
		"environments", spec.Environments(),
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
