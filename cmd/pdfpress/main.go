package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/skelding/pdfpress/internal/api"
	"github.com/skelding/pdfpress/internal/app"
	"github.com/skelding/pdfpress/internal/handlers"
	"github.com/skelding/pdfpress/internal/infra/config"
	"github.com/skelding/pdfpress/internal/infra/logger"
	"github.com/skelding/pdfpress/internal/platform"
	"github.com/skelding/pdfpress/internal/queue"
	"github.com/skelding/pdfpress/internal/ratelimit"
	"github.com/skelding/pdfpress/internal/store"
	"github.com/skelding/pdfpress/internal/tools"
	"github.com/skelding/pdfpress/internal/upload"
)

// version is overridden at build time via -ldflags.
var version = "0.3.0-dev"

func main() {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:     "pdfpress",
		Short:   "Queued PDF processing service",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfgFile)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Report external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			return check(cfgFile)
		},
	}

	rootCmd.AddCommand(serveCmd, checkCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func serve(cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return fmt.Errorf("logger error: %w", err)
	}
	defer log.Close()

	st, err := store.NewTempStore(cfg.Storage.UploadsDir, cfg.Storage.DownloadsDir, log)
	if err != nil {
		return err
	}

	// Required binaries fail startup; optional ones only disable their
	// feature.
	bins := platform.NewBinaries(cfg.Tools.ChromiumPath)
	disabled, err := bins.ValidateDependencies()
	if err != nil {
		return err
	}
	for _, feature := range disabled {
		log.Warn("startup: %s is disabled, binary not found", feature)
	}

	toolbox := tools.NewToolbox(bins, st, log)
	set := handlers.NewSet(st, toolbox, log)
	manager := queue.NewManager(cfg, set, st, log)

	appCtx := app.NewContext(cfg, log)
	appCtx.Queue = manager
	appCtx.Uploads = upload.NewValidator(st, cfg, log)
	appCtx.Store = st
	appCtx.CV = set
	appCtx.Limit = ratelimit.New(cfg.Rate.Window, cfg.Rate.Max)
	appCtx.DisabledFeatures = disabled

	e := echo.New()
	api.RegisterRoutes(e, appCtx)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup Signal Handling for Graceful Shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http: listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown: signal received, draining")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.ShutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown: http server: %v", err)
		}

		// Workers stopped taking new jobs when ctx fired; Stop gives the
		// in-flight ones their grace, then kills their children.
		manager.Stop()
		return nil
	})

	return g.Wait()
}

func check(cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	bins := platform.NewBinaries(cfg.Tools.ChromiumPath)
	report := bins.Report()

	names := make([]string, 0, len(report))
	for name := range report {
		names = append(names, name)
	}
	sort.Strings(names)

	missing := 0
	for _, name := range names {
		fmt.Printf("%-12s %s\n", name, report[name])
		if report[name] == "missing" {
			missing++
		}
	}
	if missing > 0 {
		fmt.Printf("\n%d tool(s) missing; the matching operations will be refused.\n", missing)
	}
	return nil
}
