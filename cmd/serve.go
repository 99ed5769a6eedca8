package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tableloom/internal/ai"
	"github.com/KaramelBytes/tableloom/internal/dispatch"
	"github.com/KaramelBytes/tableloom/internal/engine"
	"github.com/KaramelBytes/tableloom/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tableloom web UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return errors.New("configuration not loaded")
		}
		// Hard startup failure: no credential means no server, no store,
		// no table is ever constructed.
		if err := cfg.ValidateForQuery(); err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.ListenAddr = serveAddr
		}

		logger, err := newLogger()
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		runtime := newRuntime()
		opts := web.Options{
			Addr:           cfg.ListenAddr,
			MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
			MaxRows:        cfg.MaxRows,
			SampleRows:     cfg.SampleRows,
		}
		querierFor := func(d *web.Dataset) web.Querier {
			eng := engine.New(runtime, d.Table, d.Profile, engine.Options{
				Model:       cfg.Model,
				MaxTokens:   cfg.MaxTokens,
				Temperature: cfg.Temperature,
				PromptRows:  cfg.PromptRows,
			})
			return dispatch.New(eng, logger)
		}
		srv := web.NewServer(opts, querierFor, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		logger.Info("starting tableloom",
			zap.String("addr", cfg.ListenAddr),
			zap.String("provider", providerName()),
			zap.String("model", cfg.Model))
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config listen_addr)")
	rootCmd.AddCommand(serveCmd)
}

func providerName() string {
	if cfg.Provider == "" {
		return ai.ProviderOpenRouter
	}
	return cfg.Provider
}

// newRuntime builds the configured LLM backend.
func newRuntime() ai.Runtime {
	timeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second
	baseDelay := time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
	if providerName() == ai.ProviderOllama {
		return ai.NewOllamaClient(cfg.OllamaHost, timeout, cfg.RetryMaxAttempts, baseDelay)
	}
	maxDelay := time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
	return ai.NewClient(cfg.APIKey, timeout, cfg.RetryMaxAttempts, baseDelay, maxDelay)
}
