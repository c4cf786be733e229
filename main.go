package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"airbnb-explorer/api"
	"airbnb-explorer/cache"
	"airbnb-explorer/config"
	"airbnb-explorer/dataset"
	"airbnb-explorer/fetcher"
	"airbnb-explorer/services"
	"airbnb-explorer/utils"
)

func main() {
	cfg := config.Load()

	root := &cobra.Command{
		Use:          "airbnb-explorer",
		Short:        "Explore the Inside Airbnb NYC listings",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfg.SourceURL, "source", cfg.SourceURL,
		"listings source: path, file://, http(s)://, s3://, gs://, browser+https:// or postgres://")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	var asJSON bool
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Load the listings once and print the standard views",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), cfg, asJSON)
		},
	}
	reportCmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	root.AddCommand(reportCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the views over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
	serveCmd.Flags().StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "listen address")
	serveCmd.Flags().BoolVar(&cfg.WatchSource, "watch", cfg.WatchSource, "reload when a local source file changes")
	root.AddCommand(serveCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	logger   *utils.Logger
	explorer *services.Explorer
	shutdown func(context.Context) error
}

func newApp(cfg *config.Config) (*app, error) {
	logger, err := utils.NewLogger(utils.LogConfig{Level: cfg.LogLevel, Encoding: cfg.LogFormat})
	if err != nil {
		return nil, err
	}
	shutdown, err := utils.InitTracing(cfg.TraceToStdout, os.Stderr)
	if err != nil {
		return nil, err
	}

	loader := dataset.NewLoader(newFetchRouter(cfg, logger), nil, logger)
	explorer := services.NewExplorer(cache.NewFetchCache(loader), cfg.SourceURL, services.Options{
		ExpensiveThreshold: cfg.ExpensiveThreshold,
		AffordableCeiling:  cfg.AffordableCeiling,
		PriceSliderCap:     cfg.PriceSliderCap,
		SampleSeed:         cfg.SampleSeed,
		ReviewsLimit:       cfg.ReviewsLimit,
		MaxConcurrency:     cfg.MaxConcurrency,
	}, logger)

	return &app{cfg: cfg, logger: logger, explorer: explorer, shutdown: shutdown}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("Tracer shutdown: %v", err)
	}
	a.logger.Sync()
}

func newFetchRouter(cfg *config.Config, logger *utils.Logger) *fetcher.Router {
	router := fetcher.NewRouter()
	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:          cfg.HTTPTimeout,
		MaxRetries:       cfg.MaxRetries,
		RetryBaseDelay:   cfg.RetryBaseDelay,
		BreakerThreshold: cfg.BreakerThreshold,
		Logger:           logger,
	})
	router.Register("http", httpFetcher)
	router.Register("https", httpFetcher)
	router.Register("s3", fetcher.NewS3Fetcher(nil))
	router.Register("gs", fetcher.NewGCSFetcher(nil))

	browser := fetcher.NewBrowserFetcher(cfg.ChromeBin, cfg.HTTPTimeout, cfg.MaxRetries, logger)
	router.Register(fetcher.BrowserScheme+"http", browser)
	router.Register(fetcher.BrowserScheme+"https", browser)
	return router
}

func runReport(ctx context.Context, cfg *config.Config, asJSON bool) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info("=== Airbnb listings explorer: report ===")
	a.logger.Info("Source: %s", cfg.SourceURL)

	report, err := a.explorer.Report(ctx)
	if err != nil {
		a.logger.Error("Report failed: %v", err)
		return err
	}
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	services.PrintReport(os.Stdout, report)
	fmt.Printf("  Done. %d listings from %s\n\n", report.Info.Rows, report.Info.Source)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info("=== Airbnb listings explorer: serving on %s ===", cfg.ListenAddr)
	a.logger.Info("Config | source: %s | concurrency: %d | expensive at: $%.0f",
		cfg.SourceURL, cfg.MaxConcurrency, cfg.ExpensiveThreshold)

	// A source that cannot be loaded is fatal at startup.
	if err := a.explorer.Warm(ctx); err != nil {
		a.logger.Error("Failed to load %s: %v", cfg.SourceURL, err)
		return err
	}

	if cfg.WatchSource {
		if fetcher.Scheme(cfg.SourceURL) == "file" {
			go func() {
				err := dataset.Watch(ctx, fetcher.LocalPath(cfg.SourceURL), 500*time.Millisecond, a.logger, func() {
					if err := a.explorer.Reload(ctx); err == nil {
						_ = a.explorer.Warm(ctx)
					}
				})
				if err != nil {
					a.logger.Error("Watcher stopped: %v", err)
				}
			}()
		} else {
			a.logger.Warn("--watch only applies to local files; ignoring for %s", cfg.SourceURL)
		}
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(a.explorer, cfg.CORSOrigins, a.logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
