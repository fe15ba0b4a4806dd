// Package store selects the storage backend named by the configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"Newsletterwebserver/internal/config"
	"Newsletterwebserver/internal/service"
	"Newsletterwebserver/internal/store/filestore"
	"Newsletterwebserver/internal/store/memory"
	"Newsletterwebserver/internal/store/postgres"
	"Newsletterwebserver/internal/store/sqlite"
	"Newsletterwebserver/internal/throttle"
)

type UsersStore interface {
	service.UsersStore
	service.AdminUsersStore
}

// Set holds one implementation of every store the services need.
type Set struct {
	Backend string

	Users       UsersStore
	Sessions    service.SessionsStore
	Subscribers service.SubscribersStore
	Submissions service.SubmissionsStore
	Views       service.ViewsStore
	DispatchLog service.DispatchLogStore

	// LoginFailures is set only by backends that can share throttle state.
	LoginFailures throttle.Store

	Ping  func(context.Context) error
	close func()
}

func (s *Set) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// Open opens the backend chosen by cfg.StorageBackend. Postgres migrations
// are applied before the pool is returned.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Set, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch backend := cfg.StorageBackend(); backend {
	case "postgres":
		if err := postgres.MigrateUp(cfg.DBDSN); err != nil {
			return nil, err
		}
		pool, err := postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		logger.Info("storage ready", "backend", backend)
		return &Set{
			Backend:       backend,
			Users:         postgres.NewUsersStore(pool),
			Sessions:      postgres.NewSessionsStore(pool),
			Subscribers:   postgres.NewSubscribersStore(pool),
			Submissions:   postgres.NewSubmissionsStore(pool),
			Views:         postgres.NewStatsStore(pool),
			DispatchLog:   postgres.NewDispatchLogStore(pool),
			LoginFailures: postgres.NewLoginFailuresStore(pool),
			Ping:          pool.Ping,
			close:         pool.Close,
		}, nil

	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("storage ready", "backend", backend, "path", cfg.SQLitePath)
		return &Set{
			Backend:     backend,
			Users:       sqlite.NewUsersStore(db),
			Sessions:    sqlite.NewSessionsStore(db),
			Subscribers: sqlite.NewSubscribersStore(db),
			Submissions: sqlite.NewSubmissionsStore(db),
			Views:       sqlite.NewStatsStore(db),
			DispatchLog: sqlite.NewDispatchLogStore(db),
			Ping:        db.PingContext,
			close:       func() { _ = db.Close() },
		}, nil

	case "file":
		dir, err := filepath.Abs(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("data dir: %w", err)
		}
		logger.Info("storage ready", "backend", backend, "dir", dir)
		return &Set{
			Backend:     backend,
			Users:       filestore.NewUsersStore(dir),
			Sessions:    memory.NewSessionsStore(),
			Subscribers: filestore.NewSubscribersStore(dir),
			Submissions: filestore.NewSubmissionsStore(dir),
			Views:       filestore.NewStatsStore(dir),
			DispatchLog: filestore.NewDispatchLogStore(dir),
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
