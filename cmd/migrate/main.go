package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/ogurasousui/employee-management/internal/platform/config"
	"github.com/ogurasousui/employee-management/internal/platform/logger"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath    = flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
		migrationsDir = flag.String("dir", "assets/migrations", "directory containing migration files")
		steps         = flag.Int("steps", 0, "number of migrations to roll back with down (0 = all)")
	)
	flag.Parse()

	action := "up"
	if flag.NArg() > 0 {
		action = flag.Arg(0)
	}

	if _, err := config.LoadEnvFiles(".env", ".env.local"); err != nil {
		log.Fatalf("failed to load env files: %v", err)
	}

	cfg, err := config.Load(effectiveConfigPath(*configPath))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log, "employee-management-migrate")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := runMigration(zl, action, *migrationsDir, cfg.Database.DSN(), *steps); err != nil {
		zl.Fatal("migration failed", zap.String("action", action), zap.Error(err))
	}

	zl.Info("migration completed", zap.String("action", action))
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}

func runMigration(zl *zap.Logger, action, dir, dsn string, steps int) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve path for %s: %w", dir, err)
	}
	absDir = filepath.ToSlash(absDir)

	m, err := migrate.New(fmt.Sprintf("file://%s", absDir), dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch action {
	case "up":
		return ignoreNoChange(m.Up())
	case "down":
		if steps > 0 {
			return ignoreNoChange(m.Steps(-steps))
		}
		return ignoreNoChange(m.Down())
	case "drop":
		return m.Drop()
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			zl.Info("no migration applied")
			return nil
		}
		if err != nil {
			return err
		}
		zl.Info("current schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
