package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/concierge"
	"github.com/hupe1980/concierge/config"
	"github.com/hupe1980/concierge/core"
	"github.com/hupe1980/concierge/logging"
	"github.com/hupe1980/concierge/model"
	"github.com/hupe1980/concierge/model/anthropic"
	"github.com/hupe1980/concierge/model/openai"
	"github.com/hupe1980/concierge/prompt"
	"github.com/hupe1980/concierge/server"
	"github.com/hupe1980/concierge/state"
	"github.com/hupe1980/concierge/state/sqlite"
	"github.com/hupe1980/concierge/tool"
	"github.com/hupe1980/concierge/tool/entities"
	"github.com/hupe1980/concierge/tool/websearch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the assistant HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(logging.Config{
		Level:  logLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})

	llm, err := buildModel(cfg.Model)
	if err != nil {
		return err
	}

	store, closeStore, err := buildStateStore(cfg.State)
	if err != nil {
		return err
	}
	defer closeStore()

	prompts := prompt.NewFileStore(cfg.Prompts.Dir)

	assistant := concierge.New(func(o *concierge.Options) {
		o.Model = llm
		o.Prompts = prompts
		o.StateStore = store
		o.Logger = logger
		o.MaxIterations = cfg.Loop.MaxIterations
		o.MaxParallelTools = cfg.Loop.MaxParallelTools
		o.Tools = []tool.Tool{
			websearch.New(),
			entities.New(llm, prompts),
		}
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(assistant, func(o *server.Options) { o.Logger = logger }).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server.listening", "addr", cfg.Server.Addr, "model", llm.Info().Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.Temperature = cfg.Temperature
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.Temperature = cfg.Temperature
		}), nil
	case "mock":
		return model.NewMockModel("mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

func buildStateStore(cfg config.StateConfig) (core.StateStore, func(), error) {
	switch cfg.Backend {
	case "memory":
		return state.NewInMemoryStore(), func() {}, nil
	case "file":
		store, err := state.NewFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "sqlite":
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
