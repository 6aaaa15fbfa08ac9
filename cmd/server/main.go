package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/billboardcp/billboard-server/auth"
	"github.com/billboardcp/billboard-server/internal/config"
	"github.com/billboardcp/billboard-server/internal/logger"
	"github.com/billboardcp/billboard-server/server"
	"github.com/billboardcp/billboard-server/store"
	"github.com/billboardcp/billboard-server/store/sqlite"
	"github.com/billboardcp/billboard-server/users"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running server: %s\n", err)
	}
	log.Printf("Server stopped\n")
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	displayAppname(cfg.AppName)

	lg := logger.Init(cfg.LogLevel, cfg.LogPretty)

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := seedAdmin(db, cfg, lg); err != nil {
		return err
	}

	go serveMetrics(cfg.MetricsAddr, lg)

	srv, err := server.New(cfg, db, lg)
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	select {
	case err := <-errCh:
		return err
	case <-stopSignal():
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// seedAdmin creates the configured administrator when the user table is
// empty, so a fresh install is administrable. The configured password hash
// is the same client-side hash a control panel would send at login.
func seedAdmin(db store.Repository, cfg *config.Config, lg zerolog.Logger) error {
	existing, err := db.GetUsers()
	if err != nil {
		return errors.Wrap(err, "[seedAdmin] GetUsers")
	}
	if len(existing) > 0 {
		return nil
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return errors.Wrap(err, "[seedAdmin]")
	}
	admin := users.User{
		Username:   cfg.AdminUsername,
		Password:   auth.DeriveStoredHash(cfg.AdminPasswordHash, salt),
		Permission: users.PermissionEditUsers,
	}
	if err := db.AddUser(admin); err != nil {
		return errors.Wrap(err, "[seedAdmin] AddUser")
	}
	if err := db.AddSalt(admin.Username, salt); err != nil {
		return errors.Wrap(err, "[seedAdmin] AddSalt")
	}

	lg.Info().Str("username", admin.Username).Msg("seeded administrator account")
	return nil
}

func serveMetrics(addr string, lg zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	lg.Info().Str("addr", addr).Msg("metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		lg.Error().Err(err).Msg("metrics server failed")
	}
}

func stopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
