package service

import (
	"context"
	"errors"
	"testing"

	"Newsletterwebserver/internal/domain"
	"Newsletterwebserver/internal/store/filestore"
)

func TestSubmitValidates(t *testing.T) {
	svc := &SubmissionService{Submissions: filestore.NewSubmissionsStore(t.TempDir())}
	author := domain.User{ID: "m-1", CompanyName: "Boulangerie"}

	_, err := svc.Submit(context.Background(), author, domain.NewSubmission{
		Category: " ",
		Title:    "Croissants",
		LinkURL:  "not a url",
	})
	fields := domain.FieldErrors(err)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, f := range []string{"category", "description", "link_url"} {
		if fields[f] == "" {
			t.Fatalf("expected error on %s, got %v", f, fields)
		}
	}
	if fields["title"] != "" {
		t.Fatalf("unexpected error on title: %v", fields)
	}
}

func TestSubmitAndReview(t *testing.T) {
	svc := &SubmissionService{Submissions: filestore.NewSubmissionsStore(t.TempDir())}
	ctx := context.Background()
	author := domain.User{ID: "m-1", CompanyName: "Boulangerie"}

	sub, err := svc.Submit(ctx, author, domain.NewSubmission{
		Category:    "Alimentation",
		Title:       " Croissants ",
		Description: "Deux achetés, un offert",
		LinkURL:     "https://example.com/offre",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Status != domain.SubmissionPending || sub.Title != "Croissants" || sub.CompanyName != "Boulangerie" || sub.UserID != "m-1" {
		t.Fatalf("unexpected submission: %+v", sub)
	}

	approved, err := svc.Approve(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != domain.SubmissionApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}

	if _, err := svc.Reject(ctx, sub.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if _, err := svc.Approve(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	list, err := svc.Approved(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 approved submission, got %d (%v)", len(list), err)
	}
	mine, err := svc.ListByUser(ctx, "m-1")
	if err != nil || len(mine) != 1 {
		t.Fatalf("expected 1 own submission, got %d (%v)", len(mine), err)
	}
}
