// Package cmd defines and implements the CLI commands for the jobscraper executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-scraper/internal/api"
	"github.com/JakeFAU/jobboard-scraper/internal/app"
	"github.com/JakeFAU/jobboard-scraper/internal/config"
	"github.com/JakeFAU/jobboard-scraper/internal/logging"
	"github.com/JakeFAU/jobboard-scraper/internal/orchestrator"
)

// ctxKeyType keys values placed on the command context.
type ctxKeyType string

const (
	appKey    ctxKeyType = "app"
	configKey ctxKeyType = "config"
)

// skipApp marks commands that only need configuration.
const skipApp = "skip-app"

// App defines the application interface that commands use.
// This allows us to inject a fake app during tests.
type App interface {
	Close()
	Logger() *zap.Logger
	Run(ctx context.Context, runID string) orchestrator.Summary
	NewRunID() string
	SourceNames() []string
	Checks() map[string]api.Checker
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.New(ctx, cfg, logger)
}

// newLogger is swapped in tests to silence output.
var newLogger = func(cfg config.LoggingConfig) (*zap.Logger, error) {
	return logging.New(logging.Config{Development: cfg.Development, Level: cfg.Level})
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		srcs    []string
	)
	cmd := &cobra.Command{
		Use:   "jobscraper",
		Short: "Scrapes contractor listings from UK job boards into Postgres.",
		Long: `jobscraper fetches search pages from several job boards through an
anti-bot broker, extracts normalized listings and upserts them into a
Postgres table keyed by listing link.`,
		SilenceUsage: true,

		// Loads config, builds the logger and injects the application.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if len(srcs) > 0 {
				cfg.Scrape.Sources = srcs
				if err := cfg.Validate(); err != nil {
					return fmt.Errorf("invalid --sources: %w", err)
				}
			}
			logger, err := newLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			ctx := context.WithValue(cmd.Context(), configKey, cfg)
			if cmd.Annotations[skipApp] != "true" {
				appInstance, err := newApp(ctx, cfg, logger)
				if err != nil {
					return fmt.Errorf("failed to initialize application services: %w", err)
				}
				ctx = context.WithValue(ctx, appKey, appInstance)
			}
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
				_ = appInstance.Logger().Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().StringSliceVar(&srcs, "sources", nil, "comma-separated boards to scrape, overriding scrape.sources")

	cmd.AddCommand(newRunCmd(), newServeCmd(), newSourcesCmd())
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

func resolveConfig(ctx context.Context) (config.Config, error) {
	cfg, ok := ctx.Value(configKey).(config.Config)
	if !ok {
		return config.Config{}, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "jobscraper:", err)
		os.Exit(1)
	}
}
