package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"Newsletterwebserver/internal/config"
	"Newsletterwebserver/internal/store/postgres"
)

const (
	migrationUp   = "up"
	migrationDown = "down"
)

func mustMigrateUp(m *migrate.Migrate) {
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no migrations to apply")
			return
		}

		panic(err)
	}

	fmt.Println("migrations applied successfully")
}

func mustMigrateDown(m *migrate.Migrate) {
	if err := m.Down(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			fmt.Println("no migrations to apply")
			return
		}

		panic(err)
	}

	fmt.Println("migrations downed successfully")
}

func main() {
	var dsn, migrationType string
	flag.StringVar(&migrationType, "migration-type", migrationUp, "migration type (up or down)")
	flag.StringVar(&dsn, "dsn", "", "postgres DSN (default APP_DB_DSN)")
	flag.Parse()

	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			_, _ = os.Stderr.WriteString(err.Error() + "\n")
			os.Exit(1)
		}
		dsn = cfg.DBDSN
	}
	if dsn == "" {
		panic("dsn is required (set -dsn or APP_DB_DSN)")
	}

	m, err := postgres.NewMigrator(dsn)
	if err != nil {
		panic(err)
	}
	defer m.Close()

	switch migrationType {
	case migrationUp:
		mustMigrateUp(m)
	case migrationDown:
		mustMigrateDown(m)
	default:
		panic(fmt.Sprintf("unknown migration type %q", migrationType))
	}
}
