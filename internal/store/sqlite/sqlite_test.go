package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"Newsletterwebserver/internal/domain"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "newsletter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsletter.db")
	for i := 0; i < 2; i++ {
		db, err := Open(context.Background(), path)
		require.NoError(t, err)
		require.NoError(t, db.Close())
	}
}

func TestSubscribersDeduplicate(t *testing.T) {
	ctx := context.Background()
	s := NewSubscribersStore(openTestDB(t))

	sub, err := s.AddSubscriber(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, sub.ID)

	_, err = s.AddSubscriber(ctx, "a@example.com")
	require.ErrorIs(t, err, domain.ErrAlreadySubscribed)

	_, err = s.AddSubscriber(ctx, "b@example.com")
	require.NoError(t, err)

	n, err := s.CountSubscribers(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	list, err := s.ListSubscribers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, s.DeleteSubscriber(ctx, "a@example.com"))
	require.ErrorIs(t, s.DeleteSubscriber(ctx, "a@example.com"), domain.ErrNotFound)
}

func TestUsersAndSessions(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUsersStore(db)
	sessions := NewSessionsStore(db)

	u, err := users.CreateUser(ctx, "shop@example.com", "Shop", "hash", domain.UserRoleMerchant)
	require.NoError(t, err)
	_, err = users.CreateUser(ctx, "shop@example.com", "Shop 2", "hash", domain.UserRoleMerchant)
	require.ErrorIs(t, err, domain.ErrEmailTaken)

	withPw, err := users.GetUserByEmail(ctx, "shop@example.com")
	require.NoError(t, err)
	require.Equal(t, "hash", withPw.PasswordHash)
	require.Equal(t, domain.UserRoleMerchant, withPw.Role)

	require.NoError(t, users.SetLastLogin(ctx, u.ID, time.Now()))
	require.NoError(t, users.SetUserStatus(ctx, u.ID, domain.UserStatusDisabled))
	got, err := users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.UserStatusDisabled, got.Status)
	require.NotNil(t, got.LastLoginAt)

	list, err := users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	id, err := sessions.CreateSession(ctx, u.ID, time.Now().Add(time.Hour), "127.0.0.1", "go-test")
	require.NoError(t, err)
	sess, err := sessions.GetSession(ctx, id)
	require.NoError(t, err)
	require.Equal(t, u.ID, sess.UserID)

	require.NoError(t, sessions.RevokeSession(ctx, id, time.Now()))
	_, err = sessions.GetSession(ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)

	expired, err := sessions.CreateSession(ctx, u.ID, time.Now().Add(-time.Minute), "", "")
	require.NoError(t, err)
	_, err = sessions.GetSession(ctx, expired)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmissionsReview(t *testing.T) {
	ctx := context.Background()
	s := NewSubmissionsStore(openTestDB(t))
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return base }
	first, err := s.CreateSubmission(ctx, domain.NewSubmission{UserID: "u1", CompanyName: "Boulangerie", Category: "Food", Title: "Croissants", Description: "-20%"})
	require.NoError(t, err)
	s.now = func() time.Time { return base.Add(500 * time.Millisecond) }
	second, err := s.CreateSubmission(ctx, domain.NewSubmission{UserID: "u1", Category: "Food", Title: "Pain", Description: "frais", LinkURL: "https://example.com"})
	require.NoError(t, err)

	pending, err := s.ListSubmissions(ctx, domain.SubmissionPending)
	require.NoError(t, err)
	require.Equal(t, []string{second.ID, first.ID}, []string{pending[0].ID, pending[1].ID})

	approved, err := s.ReviewSubmission(ctx, first.ID, domain.SubmissionApproved, base.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, domain.SubmissionApproved, approved.Status)
	require.NotNil(t, approved.ReviewedAt)

	_, err = s.ReviewSubmission(ctx, first.ID, domain.SubmissionRejected, base.Add(time.Hour))
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = s.ReviewSubmission(ctx, second.ID, domain.SubmissionPending, base.Add(time.Hour))
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = s.ReviewSubmission(ctx, "missing", domain.SubmissionApproved, base)
	require.ErrorIs(t, err, domain.ErrNotFound)

	byUser, err := s.ListSubmissionsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	require.Equal(t, "https://example.com", byUser[0].LinkURL)
}

func TestStatsAndDispatchLogs(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	stats := NewStatsStore(db)

	v, err := stats.Views(ctx)
	require.NoError(t, err)
	require.Zero(t, v)
	for i := 0; i < 3; i++ {
		_, err = stats.IncrementViews(ctx)
		require.NoError(t, err)
	}
	v, err = stats.Views(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, v)

	logs := NewDispatchLogStore(db)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, logs.AddDispatchLog(ctx, domain.DispatchLog{Recipient: "a@example.com", Subject: "s", Provider: "smtp", Status: domain.DispatchSent, SentAt: base}))
	require.NoError(t, logs.AddDispatchLog(ctx, domain.DispatchLog{Recipient: "b@example.com", Subject: "s", Provider: "smtp", Status: domain.DispatchFailed, Error: "550", SentAt: base.Add(time.Second)}))

	list, err := logs.ListDispatchLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "b@example.com", list[0].Recipient)
	require.Equal(t, "550", list[0].Error)
}
