package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mpedge/internal/api/handlers"
	"github.com/cloo-solutions/mpedge/internal/api/middleware"
	"github.com/cloo-solutions/mpedge/internal/cli"
	"github.com/cloo-solutions/mpedge/internal/config"
	"github.com/cloo-solutions/mpedge/internal/jobs"
	"github.com/cloo-solutions/mpedge/internal/server"
	"github.com/cloo-solutions/mpedge/internal/service"
)

const (
	shutdownTimeout     = 30 * time.Second
	askLogQueueSize     = 1024
	askLogFlushInterval = 2 * time.Second
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Load the MPEP corpus and serve /ask, /chapters, /health and /metrics",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (default MPEDGE_PORT or 8080)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cli.BindFlagEnv(cmd.Flags(), "port", config.EnvPrefix+"_PORT")

	return withConfigEnv(cmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()
	log := rt.log

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		rt.cfg.Port = port
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if rt.cfg.HasDatabase() && !noMigrate {
		if err := rt.migrate(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	store, err := rt.openStore(ctx)
	if err != nil {
		return err
	}

	var (
		askLog    service.AskLogRepository
		logQueue  *jobs.AskLogQueue
		logWorker *jobs.Worker
	)
	repo, err := rt.askLogRepository(ctx)
	if err != nil {
		return err
	}
	if repo != nil {
		logQueue = jobs.NewAskLogQueue(repo, askLogQueueSize, log)
		logWorker = jobs.NewWorker(logQueue, askLogFlushInterval, log)
		go logWorker.Start(ctx)
		askLog = logQueue
	}

	askSvc, err := rt.askService(store, askLog)
	if err != nil {
		return err
	}

	routerCfg := server.RouterConfig{
		Logger:         log,
		MaxBodyBytes:   middleware.DefaultMaxBodyBytes,
		MetricsHandler: rt.metrics.Handler(),
		HealthHandler:  handlers.NewHealthHandler(store),
		ChapterHandler: handlers.NewChapterHandler(store),
		AskHandler:     handlers.NewAskHandler(askSvc),
	}
	if rt.cfg.APIKey != "" {
		routerCfg.AuthValidator = middleware.NewStaticKeyValidator(rt.cfg.APIKey)
	} else {
		log.Warn().Msg("MPEDGE_API_KEY not set, /ask and /chapters are unauthenticated")
	}

	srv := &http.Server{
		Addr:              ":" + rt.cfg.Port,
		Handler:           server.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", rt.cfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if logWorker != nil {
		logWorker.Stop()
		if err := logQueue.ProcessJobs(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("ask logs lost during shutdown")
		}
	}

	log.Info().Msg("server exited")
	return nil
}
