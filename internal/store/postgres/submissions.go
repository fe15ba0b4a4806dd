package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Newsletterwebserver/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubmissionsStore struct {
	pool *pgxpool.Pool
}

func NewSubmissionsStore(pool *pgxpool.Pool) *SubmissionsStore {
	return &SubmissionsStore{pool: pool}
}

const submissionSelect = `
	SELECT s.id, s.user_id, u.company_name, s.category, s.title, s.description,
	       s.link_url, s.image_url, s.status, s.created_at, s.reviewed_at
	FROM submissions s
	JOIN users u ON u.id = s.user_id
`

func (s *SubmissionsStore) CreateSubmission(ctx context.Context, in domain.NewSubmission) (domain.Submission, error) {
	const q = `
		INSERT INTO submissions (user_id, category, title, description, link_url, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, status, created_at
	`

	uid, ok := parseUUID(in.UserID)
	if !ok {
		return domain.Submission{}, domain.ErrNotFound
	}

	sub := domain.Submission{
		UserID:      in.UserID,
		CompanyName: in.CompanyName,
		Category:    in.Category,
		Title:       in.Title,
		Description: in.Description,
		LinkURL:     in.LinkURL,
		ImageURL:    in.ImageURL,
	}
	var (
		idUUID pgtype.UUID
		status string
	)
	err := s.pool.QueryRow(ctx, q, uid, in.Category, in.Title, in.Description,
		nullIfEmpty(in.LinkURL), nullIfEmpty(in.ImageURL),
	).Scan(&idUUID, &status, &sub.CreatedAt)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("create submission: %w", err)
	}
	sub.ID = uuidOrEmpty(idUUID)
	sub.Status = domain.SubmissionStatus(status)
	return sub, nil
}

func (s *SubmissionsStore) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	sid, ok := parseUUID(id)
	if !ok {
		return domain.Submission{}, domain.ErrNotFound
	}
	sub, err := scanSubmission(s.pool.QueryRow(ctx, submissionSelect+` WHERE s.id = $1`, sid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Submission{}, domain.ErrNotFound
		}
		return domain.Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

func (s *SubmissionsStore) ListSubmissions(ctx context.Context, status domain.SubmissionStatus) ([]domain.Submission, error) {
	if status == "" {
		return s.list(ctx, "list submissions", submissionSelect+` ORDER BY s.created_at DESC`)
	}
	return s.list(ctx, "list submissions", submissionSelect+` WHERE s.status = $1 ORDER BY s.created_at DESC`, string(status))
}

func (s *SubmissionsStore) ListSubmissionsByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	uid, ok := parseUUID(userID)
	if !ok {
		return nil, nil
	}
	return s.list(ctx, "list user submissions", submissionSelect+` WHERE s.user_id = $1 ORDER BY s.created_at DESC`, uid)
}

func (s *SubmissionsStore) list(ctx context.Context, op, q string, args ...any) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *SubmissionsStore) ReviewSubmission(ctx context.Context, id string, to domain.SubmissionStatus, when time.Time) (domain.Submission, error) {
	const q = `
		UPDATE submissions
		SET status = $2, reviewed_at = $3
		WHERE id = $1 AND status = 'pending'
	`

	if !domain.SubmissionPending.CanTransition(to) {
		return domain.Submission{}, domain.ErrInvalidTransition
	}
	sid, ok := parseUUID(id)
	if !ok {
		return domain.Submission{}, domain.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, q, sid, string(to), when)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("review submission: %w", err)
	}

	sub, err := s.GetSubmission(ctx, id)
	if err != nil {
		return domain.Submission{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.Submission{}, domain.ErrInvalidTransition
	}
	return sub, nil
}

func scanSubmission(row pgx.Row) (domain.Submission, error) {
	var (
		sub        domain.Submission
		idUUID     pgtype.UUID
		userIDUU   pgtype.UUID
		linkText   pgtype.Text
		imageText  pgtype.Text
		status     string
		reviewedTS pgtype.Timestamptz
	)
	err := row.Scan(&idUUID, &userIDUU, &sub.CompanyName, &sub.Category, &sub.Title, &sub.Description,
		&linkText, &imageText, &status, &sub.CreatedAt, &reviewedTS)
	if err != nil {
		return domain.Submission{}, err
	}
	sub.ID = uuidOrEmpty(idUUID)
	sub.UserID = uuidOrEmpty(userIDUU)
	sub.LinkURL = textOrEmpty(linkText)
	sub.ImageURL = textOrEmpty(imageText)
	sub.Status = domain.SubmissionStatus(status)
	sub.ReviewedAt = timestamptzPtr(reviewedTS)
	return sub, nil
}
