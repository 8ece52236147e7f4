package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"blogkeeper/internal/app/server/api"
	"blogkeeper/internal/app/server/config"
	"blogkeeper/internal/infrastructure/storage/memory"
	"blogkeeper/internal/infrastructure/storage/postgres"
	"blogkeeper/internal/utils/logger"
)

func main() {
	conf := config.MustLoad()
	log := logger.New(conf.Env, logger.WithLevel(conf.Logger.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, conf *config.Config, log *slog.Logger) error {
	backend := api.Backend{Name: "memory", Repos: memory.NewRepositories()}
	if !conf.UseMemory() {
		store, err := postgres.New(ctx, conf.DB.DatabaseURI, log)
		if err != nil {
			return err
		}
		defer store.Close()
		backend = api.Backend{Name: "postgres", Repos: store.Repositories(), Pinger: store}
	}

	srv := &http.Server{
		Addr:              conf.Server.RunAddress,
		Handler:           api.New(backend, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", "address", conf.Server.RunAddress, "storage", backend.Name, "env", conf.Env)
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

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
