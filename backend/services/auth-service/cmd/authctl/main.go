package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	libdb "evcharge/backend/libs/db"
	"evcharge/backend/libs/logging"
	"evcharge/backend/migrations"
	"evcharge/backend/services/auth-service/internal/cli"
	"evcharge/backend/services/auth-service/internal/config"
	"evcharge/backend/services/auth-service/internal/password"
	"evcharge/backend/services/auth-service/internal/repository"
	"evcharge/backend/services/auth-service/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(connect).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func connect(_ context.Context) (cli.UserAdmin, func(), error) {
	cfg, err := config.LoadCLI()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}

	repo := repository.NewUserRepository(sqlDB)
	// authctl never issues tokens.
	svc := service.NewAuthService(repo, password.NewBcryptHasher(cfg.BcryptCost), nil, logger)

	release := func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("failed to close db", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return &operator{AuthService: svc, db: sqlDB, logger: logger}, release, nil
}

type operator struct {
	*service.AuthService
	db     *sql.DB
	logger *zap.Logger
}

func (o *operator) Migrate(ctx context.Context) ([]string, error) {
	return migrations.Apply(ctx, o.db, o.logger)
}
