package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	brevo "github.com/getbrevo/brevo-go/lib"
)

const DefaultBrevoBaseURL = "https://api.brevo.com"

type BrevoSender struct {
	cfg    *brevo.Configuration
	client *brevo.APIClient
}

func NewBrevoSender(apiKey string) (*BrevoSender, error) {
	if apiKey == "" {
		return nil, errors.New("brevo api key required")
	}
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)
	cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}

	s := &BrevoSender{cfg: cfg, client: brevo.NewAPIClient(cfg)}
	s.SetBaseURL(DefaultBrevoBaseURL)
	return s, nil
}

// SetBaseURL points the client at another host; the /v3 prefix is appended.
func (s *BrevoSender) SetBaseURL(base string) {
	s.cfg.BasePath = strings.TrimRight(base, "/") + "/v3"
}

func (s *BrevoSender) Provider() string { return ProviderBrevo }

func (s *BrevoSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	email := brevo.SendSmtpEmail{
		Sender:      &brevo.SendSmtpEmailSender{Email: msg.FromEmail, Name: msg.FromName},
		To:          []brevo.SendSmtpEmailTo{{Email: msg.ToEmail}},
		Subject:     msg.Subject,
		HtmlContent: msg.HTMLBody,
		TextContent: msg.TextBody,
	}

	_, resp, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if err != nil {
		var apiErr brevo.GenericSwaggerError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("brevo send: %s: %s", apiErr.Error(), strings.TrimSpace(string(apiErr.Body())))
		}
		if resp != nil {
			return fmt.Errorf("brevo send: status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("brevo send: %w", err)
	}
	return nil
}
