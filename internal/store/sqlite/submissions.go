package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"Newsletterwebserver/internal/domain"

	"github.com/google/uuid"
)

type SubmissionsStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSubmissionsStore(db *sql.DB) *SubmissionsStore {
	return &SubmissionsStore{db: db, now: time.Now}
}

const submissionColumns = `id, user_id, company_name, category, title, description, link_url, image_url, status, created_at, reviewed_at`

func scanSubmission(row rowScanner) (domain.Submission, error) {
	var (
		sub      domain.Submission
		created  string
		reviewed sql.NullString
	)
	err := row.Scan(&sub.ID, &sub.UserID, &sub.CompanyName, &sub.Category, &sub.Title, &sub.Description,
		&sub.LinkURL, &sub.ImageURL, &sub.Status, &created, &reviewed)
	if err != nil {
		return domain.Submission{}, err
	}
	if sub.CreatedAt, err = parseTime(created); err != nil {
		return domain.Submission{}, err
	}
	if sub.ReviewedAt, err = parseTimePtr(reviewed); err != nil {
		return domain.Submission{}, err
	}
	return sub, nil
}

func (s *SubmissionsStore) CreateSubmission(ctx context.Context, in domain.NewSubmission) (domain.Submission, error) {
	sub := domain.Submission{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		CompanyName: in.CompanyName,
		Category:    in.Category,
		Title:       in.Title,
		Description: in.Description,
		LinkURL:     in.LinkURL,
		ImageURL:    in.ImageURL,
		Status:      domain.SubmissionPending,
		CreatedAt:   s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, user_id, company_name, category, title, description, link_url, image_url, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.UserID, sub.CompanyName, sub.Category, sub.Title, sub.Description,
		sub.LinkURL, sub.ImageURL, string(sub.Status), formatTime(sub.CreatedAt),
	)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("store.sqlite.CreateSubmission: %w", err)
	}
	return sub, nil
}

func (s *SubmissionsStore) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	sub, err := scanSubmission(s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Submission{}, domain.ErrNotFound
		}
		return domain.Submission{}, fmt.Errorf("store.sqlite.GetSubmission: %w", err)
	}
	return sub, nil
}

func (s *SubmissionsStore) ListSubmissions(ctx context.Context, status domain.SubmissionStatus) ([]domain.Submission, error) {
	if status == "" {
		return s.list(ctx, "store.sqlite.ListSubmissions", `SELECT `+submissionColumns+` FROM submissions ORDER BY created_at DESC`)
	}
	return s.list(ctx, "store.sqlite.ListSubmissions",
		`SELECT `+submissionColumns+` FROM submissions WHERE status = ? ORDER BY created_at DESC`, string(status))
}

func (s *SubmissionsStore) ListSubmissionsByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	return s.list(ctx, "store.sqlite.ListSubmissionsByUser",
		`SELECT `+submissionColumns+` FROM submissions WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

func (s *SubmissionsStore) list(ctx context.Context, op, q string, args ...any) ([]domain.Submission, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ReviewSubmission moves a pending submission to its final status.
func (s *SubmissionsStore) ReviewSubmission(ctx context.Context, id string, to domain.SubmissionStatus, when time.Time) (domain.Submission, error) {
	const op = "store.sqlite.ReviewSubmission"

	if !domain.SubmissionPending.CanTransition(to) {
		return domain.Submission{}, domain.ErrInvalidTransition
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET status = ?, reviewed_at = ? WHERE id = ? AND status = ?`,
		string(to), formatTime(when), id, string(domain.SubmissionPending),
	)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Submission{}, fmt.Errorf("%s: %w", op, err)
	}

	sub, err := s.GetSubmission(ctx, id)
	if err != nil {
		return domain.Submission{}, err
	}
	if n == 0 {
		return domain.Submission{}, domain.ErrInvalidTransition
	}
	return sub, nil
}
