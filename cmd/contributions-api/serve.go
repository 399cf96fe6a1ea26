package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/deppfellow/contributions-api/internal/config"
	"github.com/deppfellow/contributions-api/internal/handler"
	"github.com/deppfellow/contributions-api/internal/logger"
	"github.com/deppfellow/contributions-api/internal/middleware"
	"github.com/deppfellow/contributions-api/internal/repository"
	"github.com/deppfellow/contributions-api/internal/router"
	"github.com/deppfellow/contributions-api/internal/server"
	"github.com/deppfellow/contributions-api/internal/service"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	loggerService := logger.NewLoggerService(cfg.Observability)
	defer loggerService.Shutdown()

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	srv, err := server.New(cfg, &log, loggerService)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	h, err := buildHandler(srv)
	if err != nil {
		shutdown(srv, &log)
		return err
	}
	srv.SetupHTTPServer(h)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			shutdown(srv, &log)
			return fmt.Errorf("server stopped: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited properly")
	return nil
}

// buildHandler wires repositories, services and routes. Job workers
// start last, once nothing else can fail.
func buildHandler(srv *server.Server) (http.Handler, error) {
	repos := repository.NewRepositories(srv)

	services, err := service.NewService(srv, repos)
	if err != nil {
		return nil, fmt.Errorf("could not create services: %w", err)
	}

	mw, err := middleware.NewMiddlewares(srv)
	if err != nil {
		return nil, fmt.Errorf("could not create middlewares: %w", err)
	}

	r := router.NewRouter(handler.NewHandlers(srv, services), mw)

	if err := srv.StartJobs(services.Contributions); err != nil {
		return nil, err
	}

	return r, nil
}

// shutdown releases what server.New opened when startup is aborted.
func shutdown(srv *server.Server, log *zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to release server resources")
	}
}
