package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"Newsletterwebserver/internal/config"
)

func TestOpenFileBackend(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{DataDir: t.TempDir()}

	s, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, "file", s.Backend)
	require.Nil(t, s.LoginFailures)
	require.Nil(t, s.Ping)

	_, err = s.Subscribers.AddSubscriber(ctx, "a@example.com")
	require.NoError(t, err)
	n, err := s.Subscribers.CountSubscribers(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestOpenSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{SQLitePath: filepath.Join(t.TempDir(), "newsletter.db")}

	s, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, "sqlite", s.Backend)
	require.NoError(t, s.Ping(ctx))

	views, err := s.Views.IncrementViews(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, views)
}
