package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/harborgate/admin-api/internal/admin"
	"github.com/harborgate/admin-api/internal/auth"
	"github.com/harborgate/admin-api/internal/config"
	"github.com/harborgate/admin-api/internal/gotrue"
	profilerepo "github.com/harborgate/admin-api/internal/profile/repo"
	"github.com/harborgate/admin-api/internal/router"
	"github.com/harborgate/admin-api/pkg/database"
	"github.com/harborgate/admin-api/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.InitLogger(utilities.LogConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting admin-api")

	cfg := config.FromEnv()

	// init db (profiles side table)
	dbCfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	// wrap with sqlx for the profile repo
	sqlxDB := sqlx.NewDb(sqlDB, "postgres")
	defer sqlxDB.Close()

	profiles := profilerepo.NewProfileRepo(sqlxDB)

	// local development convenience; real deployments provision profiles
	// alongside identities in the backend
	if os.Getenv("DB_ENSURE_TABLES") == "1" {
		if err := profiles.EnsureTable(context.Background()); err != nil {
			sugar.Fatalf("ensure profiles table: %v", err)
		}
	}

	// two long-lived backend clients: service role for admin calls and
	// token verification, anon for the password grant
	adminClient := gotrue.New(cfg.BackendURL, cfg.ServiceRoleKey)
	anonClient := gotrue.New(cfg.BackendURL, cfg.AnonKey)

	mw := auth.NewMiddleware(adminClient, profiles, sugar)
	authHandler := auth.NewHandler(anonClient, profiles, sugar)
	adminSvc := admin.NewService(adminClient, profiles, sugar)
	adminHandler := admin.NewHandler(adminSvc, sugar)

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// mount http server
	handler := router.RegisterRoutes(sugar, mw, authHandler, adminHandler)
	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: handler,
	}

	// run server in background
	go func() {
		sugar.Infow("admin api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	if err := sqlDB.PingContext(doneCtx); err != nil {
		sugar.Warnf("db ping on shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
