package domain

import (
	"strings"
	"time"
)

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

func ParseSubmissionStatus(s string) (SubmissionStatus, bool) {
	switch SubmissionStatus(strings.TrimSpace(strings.ToLower(s))) {
	case SubmissionPending:
		return SubmissionPending, true
	case SubmissionApproved:
		return SubmissionApproved, true
	case SubmissionRejected:
		return SubmissionRejected, true
	default:
		return "", false
	}
}

// CanTransition reports whether a submission may move from one status to
// another. Only pending submissions are reviewed; reviews are final.
func (s SubmissionStatus) CanTransition(to SubmissionStatus) bool {
	if s != SubmissionPending {
		return false
	}
	return to == SubmissionApproved || to == SubmissionRejected
}

// Submission is an offer a merchant wants published in the newsletter.
type Submission struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	CompanyName string           `json:"company_name"`
	Category    string           `json:"category"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	LinkURL     string           `json:"link_url,omitempty"`
	ImageURL    string           `json:"image_url,omitempty"`
	Status      SubmissionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	ReviewedAt  *time.Time       `json:"reviewed_at,omitempty"`
}

type NewSubmission struct {
	UserID      string
	CompanyName string
	Category    string `form:"category" validate:"required,max=60"`
	Title       string `form:"title" validate:"required,max=160"`
	Description string `form:"description" validate:"required,max=2000"`
	LinkURL     string `form:"link_url" validate:"omitempty,url,max=500"`
	ImageURL    string `form:"image_url" validate:"omitempty,url,max=500"`
}
