package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"trip-optimizer-service/internal/adapters/cache"
	"trip-optimizer-service/internal/config"
	"trip-optimizer-service/internal/platform/db"
	"trip-optimizer-service/internal/platform/logging"
)

// dbtool creates the geocode cache schema in SQLite or Postgres.
func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found (using environment variables)")
	}
	logging.Setup(config.Get("LOG_LEVEL", "info"), "text")

	backend := flag.String("backend", config.Get("GEOCODE_CACHE", "sqlite"), "cache backend: sqlite or postgres")
	flag.Parse()

	if err := initSchema(context.Background(), strings.ToLower(*backend)); err != nil {
		slog.Error("schema initialization failed", "err", err)
		os.Exit(1)
	}
}

func initSchema(ctx context.Context, backend string) error {
	switch backend {
	case "sqlite":
		path := config.Get("SQLITE_PATH", "data/cache.db")
		sqlite, err := db.OpenSQLite(path)
		if err != nil {
			return err
		}
		defer sqlite.Close()

		slog.Info("initializing geocode cache schema", "backend", backend, "path", path)
		if err := cache.InitSQLiteSchema(sqlite); err != nil {
			return err
		}

	case "postgres":
		databaseURL := strings.TrimSpace(config.Get("DATABASE_URL", ""))
		if databaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		pool, err := db.ConnectPostgres(ctx, databaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		slog.Info("initializing geocode cache schema", "backend", backend)
		if err := cache.InitPostgresSchema(ctx, pool); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown backend %q (want sqlite or postgres)", backend)
	}

	slog.Info("schema ready")
	return nil
}
