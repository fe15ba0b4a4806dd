package memory

import (
	"context"
	"testing"
	"time"

	"Newsletterwebserver/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestSessionsLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSessionsStore()
	s.now = func() time.Time { return now }

	id, err := s.CreateSession(ctx, "u1", now.Add(time.Hour), "127.0.0.1", "test")
	require.NoError(t, err)

	sess, err := s.GetSession(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "u1", sess.UserID)

	require.NoError(t, s.RevokeSession(ctx, id, now))
	_, err = s.GetSession(ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionsExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSessionsStore()
	s.now = func() time.Time { return now }

	id, err := s.CreateSession(ctx, "u1", now.Add(time.Minute), "", "")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.GetSession(ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.CreateSession(ctx, "u2", now.Add(time.Minute), "", "")
	require.NoError(t, err)
	require.Len(t, s.sessions, 1)
}
