// cmd/migrate/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"hireflow/internal/common/config"
	"hireflow/internal/common/database"
	"hireflow/internal/common/logger"
)

func main() {
	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
		Service: "migrate",
		Version: cfg.App.Version,
	})
	defer log.Sync()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		log.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := pg.Ping(ctx); err != nil {
		log.Fatal("postgres ping failed", zap.Error(err))
	}

	switch os.Args[1] {
	case "up":
		err = database.RunMigrations(ctx, pg.GetDB())
	case "status":
		err = database.MigrationStatus(ctx, pg.GetDB())
	case "down":
		err = database.RollbackLast(ctx, pg.GetDB())
	default:
		help()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal("migration command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
	log.Info("migration command finished", zap.String("command", os.Args[1]))
}

func help() {
	fmt.Println("Usage: migrate <up|status|down>")
	fmt.Println("  up      Apply all pending migrations")
	fmt.Println("  status  Print the state of every migration")
	fmt.Println("  down    Roll back the most recent migration")
}
