package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/raddle-teams-backend/internal/config"
	"github.com/DoyleJ11/raddle-teams-backend/internal/httpapi"
	"github.com/DoyleJ11/raddle-teams-backend/internal/hub"
	"github.com/DoyleJ11/raddle-teams-backend/internal/lobby"
	"github.com/DoyleJ11/raddle-teams-backend/internal/logging"
	"github.com/DoyleJ11/raddle-teams-backend/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.Testing(), cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.DotenvFile == "" {
		log.Warn("no dotenv file found, using process environment only")
	}

	db, err := store.Open(cfg.DatabaseURL, log.Named("store"))
	if err != nil {
		return err
	}

	h := hub.NewHub(log.Named("hub"), hub.Options{
		WriteTimeout: cfg.WriteTimeout,
		FanoutLimit:  cfg.FanoutLimit,
	})
	svc := lobby.NewService(db, h, log.Named("lobby"))

	handler := httpapi.SetupRoutes(httpapi.Deps{
		Service:       svc,
		Store:         db,
		Hub:           h,
		Log:           log,
		AdminPassword: cfg.AdminPassword,
		Testing:       cfg.Testing(),
	})
	srv := &http.Server{Addr: cfg.Addr(), Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr), zap.Bool("testing", cfg.Testing()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		// Sockets are hijacked, so close them before waiting on the server.
		if err := h.Shutdown(); err != nil {
			log.Warn("closing websockets", zap.Error(err))
		}
		return multierr.Combine(
			srv.Shutdown(shutdownCtx),
			db.Close(),
		)
	})

	return g.Wait()
}
