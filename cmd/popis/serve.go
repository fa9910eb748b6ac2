package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/popis/internal/api"
	"github.com/erazemk/popis/internal/config"
	"github.com/erazemk/popis/internal/db"
	"github.com/erazemk/popis/internal/metrics"
	"github.com/erazemk/popis/internal/model"
	"github.com/erazemk/popis/internal/store"
)

func serveCmd(load loader) *cobra.Command {
	var adminUser string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLog, err := load()
			if err != nil {
				return err
			}
			defer closeLog()
			return serve(cmd.Context(), cfg, adminUser)
		},
	}
	cmd.Flags().StringVarP(&adminUser, "user", "u", "admin", "super admin username created on first run")
	return cmd
}

func migrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLog, err := load()
			if err != nil {
				return err
			}
			defer closeLog()

			database, err := openDatabase(cmd.Context(), cfg.Database.Path)
			if err != nil {
				return err
			}
			return database.Close()
		},
	}
}

// openDatabase opens the database and brings its schema up to date.
func openDatabase(ctx context.Context, path string) (*sql.DB, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", path)
	return database, nil
}

func serve(ctx context.Context, cfg config.Config, adminUser string) error {
	database, err := openDatabase(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	// An empty database gets a super admin with a generated password.
	count, err := store.CountUsers(ctx, database)
	if err != nil {
		return err
	}
	if count == 0 {
		password, err := generatePassword(16)
		if err != nil {
			return fmt.Errorf("generating password: %w", err)
		}
		if _, err := createAdmin(ctx, database, adminUser, "", password, "", model.RoleSuperAdmin); err != nil {
			return err
		}
		printInitResult(cfg.Database.Path, adminUser, password)
	}

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		// Persisted in the database and generated on first use.
		jwtSecret, err = store.GetJWTSecret(ctx, database)
		if err != nil {
			return fmt.Errorf("loading jwt secret: %w", err)
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	handler := api.NewRouter(database, api.Options{
		JWTSecret:            jwtSecret,
		AccessTTL:            cfg.Auth.AccessTTL,
		RefreshTTL:           cfg.Auth.RefreshTTL,
		AllowRegistration:    cfg.Auth.AllowRegistration,
		StockPrefix:          cfg.Registry.StockPrefix,
		ProtectNonZeroDelete: cfg.Inventory.ProtectNonZeroDelete,
		CORSOrigins:          cfg.HTTP.CORSOrigins,
		Metrics:              m,
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.HTTP.Addr, "metrics", cfg.Metrics.Enabled)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}
