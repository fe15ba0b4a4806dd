package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"Newsletterwebserver/internal/domain"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(migrationsFS, "migrations")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	require.EqualValues(t, 1, first)

	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
}

func TestParseUUID(t *testing.T) {
	const id = "6f1c2b9e-4a52-4d4b-9c1e-2f5e8b7a9d10"
	u, ok := parseUUID(id)
	require.True(t, ok)
	require.Equal(t, id, uuidOrEmpty(u))

	_, ok = parseUUID("not-a-uuid")
	require.False(t, ok)
}

// openTestPool connects to APP_TEST_DB_DSN, migrating it first. Tests that
// need a database skip when it is unset.
func openTestPool(t *testing.T) *SubscribersStore {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("APP_TEST_DB_DSN"))
	if dsn == "" {
		t.Skip("APP_TEST_DB_DSN not set")
	}
	require.NoError(t, MigrateUp(dsn))

	ctx := context.Background()
	pool, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE subscribers, users, sessions, submissions, dispatch_logs, page_stats, login_failures`)
	require.NoError(t, err)
	return NewSubscribersStore(pool)
}

func TestSubscribersIntegration(t *testing.T) {
	s := openTestPool(t)
	ctx := context.Background()

	_, err := s.AddSubscriber(ctx, "a@example.com")
	require.NoError(t, err)
	_, err = s.AddSubscriber(ctx, "a@example.com")
	require.ErrorIs(t, err, domain.ErrAlreadySubscribed)

	n, err := s.CountSubscribers(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestSubmissionsAndThrottleIntegration(t *testing.T) {
	subs := openTestPool(t)
	ctx := context.Background()
	pool := subs.pool

	users := NewUsersStore(pool)
	u, err := users.CreateUser(ctx, "shop@example.com", "Boulangerie", "hash", domain.UserRoleMerchant)
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, "shop@example.com", "Autre", "hash", domain.UserRoleMerchant)
	require.ErrorIs(t, err, domain.ErrEmailTaken)

	store := NewSubmissionsStore(pool)
	sub, err := store.CreateSubmission(ctx, domain.NewSubmission{UserID: u.ID, Category: "Food", Title: "Croissants", Description: "-20%"})
	require.NoError(t, err)

	reviewed, err := store.ReviewSubmission(ctx, sub.ID, domain.SubmissionApproved, time.Now())
	require.NoError(t, err)
	require.Equal(t, "Boulangerie", reviewed.CompanyName)
	_, err = store.ReviewSubmission(ctx, sub.ID, domain.SubmissionRejected, time.Now())
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	failures := NewLoginFailuresStore(pool)
	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, failures.Add(ctx, "10.0.0.1", now.Add(-20*time.Minute)))
	require.NoError(t, failures.Add(ctx, "10.0.0.1", now.Add(-time.Minute)))
	ts, err := failures.Window(ctx, "10.0.0.1", now.Add(-10*time.Minute), now)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	require.NoError(t, failures.Clear(ctx, "10.0.0.1"))
}
