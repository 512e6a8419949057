package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crucial707/userdir/internal/config"
	"github.com/crucial707/userdir/internal/db"
	"github.com/crucial707/userdir/internal/repo"
	"github.com/crucial707/userdir/internal/scheduler"
)

func main() {

	// Load configuration
	cfg := config.Load()

	setupLogger(cfg.LogFormat)

	if cfg.Env == "prod" && cfg.JWTSecret == "supersecretkey" {
		slog.Error("JWT_SECRET must be set when ENV=prod")
		os.Exit(1)
	}

	// Connect to database FIRST
	database, err := db.Connect(
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBUser,
		cfg.DBPass,
		cfg.DBMaxOpenConns,
		cfg.DBMaxIdleConns,
	)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	slog.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	if err := db.Migrate(db.URL(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass)); err != nil {
		slog.Error("run migrations", "error", err)
		os.Exit(1)
	}

	if err := bootstrapAdmin(context.Background(), repo.NewUserRepo(database), cfg); err != nil {
		slog.Error("bootstrap admin", "error", err)
		os.Exit(1)
	}

	retention := time.Duration(cfg.AuditRetentionDays) * 24 * time.Hour
	cronJobs, err := scheduler.Run(repo.NewAuditRepo(database), cfg.AuditSweepSchedule, retention)
	if err != nil {
		slog.Error("start audit retention scheduler", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(database, cfg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		var err error
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown", "error", err)
		os.Exit(1)
	}
	<-cronJobs.Stop().Done()
	slog.Info("server stopped")
}

// setupLogger configures the process-wide slog handler.
func setupLogger(format string) {
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(handler))
}

// bootstrapAdmin creates the initial superuser when one is configured and
// the account does not exist yet. Without it a fresh deployment has no
// staff account and nobody can manage other users.
func bootstrapAdmin(ctx context.Context, users *repo.UserRepo, cfg config.Config) error {
	if cfg.BootstrapAdminPassword == "" {
		return nil
	}

	_, err := users.GetByUsername(ctx, cfg.BootstrapAdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	admin, err := users.CreateSuperuser(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
	if err != nil {
		return err
	}
	slog.Info("created bootstrap admin", "username", admin.Username, "id", admin.ID)
	return nil
}
