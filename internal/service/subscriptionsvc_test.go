package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"Newsletterwebserver/internal/domain"
	"Newsletterwebserver/internal/store/filestore"
)

func TestSubscribeNormalizesAndDeduplicates(t *testing.T) {
	svc := &SubscriptionService{Subscribers: filestore.NewSubscribersStore(t.TempDir())}
	ctx := context.Background()

	res, err := svc.Subscribe(ctx, "  Reader@Example.COM ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Email != "reader@example.com" || res.AlreadySubscribed || res.Count != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	res, err = svc.Subscribe(ctx, "reader@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.AlreadySubscribed || res.Count != 1 {
		t.Fatalf("expected already subscribed with count 1, got %+v", res)
	}
}

func TestSubscribeRejectsInvalidEmail(t *testing.T) {
	svc := &SubscriptionService{Subscribers: filestore.NewSubscribersStore(t.TempDir())}

	for _, in := range []string{"", "   ", "no-at-sign.com", "no-dot@localhost", "@example.com"} {
		_, err := svc.Subscribe(context.Background(), in)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%q: expected validation error, got %v", in, err)
		}
		if domain.FieldErrors(err)["email"] != "Adresse email invalide" {
			t.Fatalf("%q: unexpected message %v", in, domain.FieldErrors(err))
		}
	}
}

func TestSubscriptionExportCSV(t *testing.T) {
	svc := &SubscriptionService{Subscribers: filestore.NewSubscribersStore(t.TempDir())}
	ctx := context.Background()
	for _, e := range []string{"a@example.com", "b@example.com"} {
		if _, err := svc.Subscribe(ctx, e); err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := svc.ExportCSV(ctx, &buf); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || lines[0] != "email,created_at" || !strings.HasPrefix(lines[1], "a@example.com,") {
		t.Fatalf("unexpected csv: %q", buf.String())
	}

	if err := svc.Unsubscribe(ctx, " A@example.com"); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	recipients, err := svc.Recipients(ctx)
	if err != nil {
		t.Fatalf("Recipients: %v", err)
	}
	if len(recipients) != 1 || recipients[0] != "b@example.com" {
		t.Fatalf("unexpected recipients: %v", recipients)
	}
}
