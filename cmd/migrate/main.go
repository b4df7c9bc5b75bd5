package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"clinic-bot/internal/config"
	"clinic-bot/migrations"
	"clinic-bot/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
)

const usage = "usage: migrate [up | down | version | force <version>]"

func main() {
	log := logger.New(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	os.Exit(realMain(log, os.Args[1:], openMigrator))
}

func openMigrator(dsn string) (migrator, error) {
	return migrations.Open(dsn)
}

// realMain returns the process exit code so deferred cleanup runs first.
func realMain(log *slog.Logger, args []string, open func(dsn string) (migrator, error)) int {
	dsn, err := databaseURL(log)
	if err != nil {
		log.Error("config load failed", "err", err)
		return 1
	}

	m, err := open(dsn)
	if err != nil {
		log.Error("migrator init failed", "err", err)
		return 1
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn("migrator close failed", "source_err", srcErr, "db_err", dbErr)
		}
	}()

	if err := run(m, args); err != nil {
		log.Error("migrate failed", "err", err)
		return 1
	}
	return 0
}

// databaseURL prefers DATABASE_URL and otherwise builds the URL from DB_*.
func databaseURL(log *slog.Logger) (string, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn("load .env failed", "err", err)
	}
	if u := strings.TrimSpace(os.Getenv("DATABASE_URL")); u != "" {
		return u, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.PostgresURL(), nil
}

type migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Version() (uint, bool, error)
	Close() (source error, database error)
}

func run(m migrator, args []string) error {
	cmd := "up"
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
	case "force":
		if len(args) < 2 {
			return errors.New(usage)
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}
		fmt.Printf("version %d dirty=%t\n", v, dirty)
		return nil
	default:
		return errors.New(usage)
	}

	v, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read version: %w", err)
	}
	fmt.Printf("%s complete: version %d dirty=%t\n", cmd, v, dirty)
	return nil
}
