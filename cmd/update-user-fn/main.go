// Binary update-user-fn serves the folded admin-update-user operation as a
// single-function deployment target: one handler, one route, same
// authorization and update semantics as the admin API server.
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
	"github.com/harborgate/admin-api/internal/config"
	"github.com/harborgate/admin-api/internal/function"
	"github.com/harborgate/admin-api/internal/gotrue"
	profilerepo "github.com/harborgate/admin-api/internal/profile/repo"
	"github.com/harborgate/admin-api/pkg/database"
	"github.com/harborgate/admin-api/pkg/utilities"
)

func main() {
	_ = godotenv.Load()

	lg, err := utilities.InitLogger(utilities.LogConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting update-user function")

	cfg := config.FromEnv()

	sqlDB, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()
	sqlxDB := sqlx.NewDb(sqlDB, "postgres")
	defer sqlxDB.Close()

	profiles := profilerepo.NewProfileRepo(sqlxDB)
	adminClient := gotrue.New(cfg.BackendURL, cfg.ServiceRoleKey)
	svc := admin.NewService(adminClient, profiles, sugar)
	handler := function.NewUpdateUserHandler(adminClient, profiles, svc, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: handler,
	}
	go func() {
		sugar.Infow("function listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sugar.Info("goodbye")
}
