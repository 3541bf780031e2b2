package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/odyssey-erp/costing/internal/app"
	"github.com/odyssey-erp/costing/internal/platform/db"
	"github.com/odyssey-erp/costing/migrations"
)

func main() {
	down := flag.Bool("down", false, "roll back every applied migration")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	m, err := db.NewMigrator(migrations.FS, cfg.PGDSN, logger)
	if err != nil {
		logger.Error("open migrator", slog.Any("error", err))
		os.Exit(1)
	}
	defer m.Close() //nolint:errcheck

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}
}
