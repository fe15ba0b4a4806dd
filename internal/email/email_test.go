package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Newsletterwebserver/internal/config"
	"Newsletterwebserver/internal/domain"

	brevo "github.com/getbrevo/brevo-go/lib"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func testMessage() Message {
	return Message{
		FromName:  "Newsletter Locale",
		FromEmail: "newsletter@example.com",
		ToEmail:   "reader@example.com",
		Subject:   "Votre Newsletter Hebdo",
		HTMLBody:  "<p>Bonjour</p>",
	}
}

func TestSMTPSenderBuildsMessage(t *testing.T) {
	d := &fakeDialer{}
	s := &SMTPSender{dialer: d}

	require.NoError(t, s.Send(context.Background(), testMessage()))
	require.Len(t, d.sent, 1)
	require.Equal(t, []string{"reader@example.com"}, d.sent[0].GetHeader("To"))
	require.Equal(t, []string{"Votre Newsletter Hebdo"}, d.sent[0].GetHeader("Subject"))
	require.Contains(t, d.sent[0].GetHeader("From")[0], "newsletter@example.com")
}

func TestSMTPSenderWrapsErrors(t *testing.T) {
	boom := errors.New("connection refused")
	s := &SMTPSender{dialer: &fakeDialer{err: boom}}
	err := s.Send(context.Background(), testMessage())
	require.ErrorIs(t, err, boom)
}

func TestNewSMTPSenderValidates(t *testing.T) {
	_, err := NewSMTPSender(SMTPSettings{})
	require.Error(t, err)
	_, err = NewSMTPSender(SMTPSettings{Host: "smtp.example.com", TLSMode: "ssl3"})
	require.Error(t, err)
	s, err := NewSMTPSender(SMTPSettings{Host: "smtp.example.com", TLSMode: "tls", Port: 465})
	require.NoError(t, err)
	require.Equal(t, ProviderSMTP, s.Provider())
}

func TestMessageValidation(t *testing.T) {
	msg := testMessage()
	msg.ToEmail = ""
	require.Error(t, (&SMTPSender{dialer: &fakeDialer{}}).Send(context.Background(), msg))

	msg = testMessage()
	msg.HTMLBody = ""
	require.Error(t, msg.validate())
}

func TestBrevoSender(t *testing.T) {
	var got brevo.SendSmtpEmail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/smtp/email", r.URL.Path)
		require.Equal(t, "key-123", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<1@brevo>"}`))
	}))
	defer srv.Close()

	s, err := NewBrevoSender("key-123")
	require.NoError(t, err)
	s.SetBaseURL(srv.URL)

	require.NoError(t, s.Send(context.Background(), testMessage()))
	require.Equal(t, "reader@example.com", got.To[0].Email)
	require.Equal(t, "Newsletter Locale", got.Sender.Name)
	require.Equal(t, "<p>Bonjour</p>", got.HtmlContent)
}

func TestBrevoSenderReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	s, err := NewBrevoSender("bad")
	require.NoError(t, err)
	s.SetBaseURL(srv.URL)

	err = s.Send(context.Background(), testMessage())
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestMailgunSender(t *testing.T) {
	var path string
	var to string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		to = r.FormValue("to")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"<1@mailgun>","message":"Queued. Thank you."}`))
	}))
	defer srv.Close()

	s, err := NewMailgunSender("mg.example.com", "key-abc", srv.URL+"/v3")
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), testMessage()))
	require.Equal(t, "/v3/mg.example.com/messages", path)
	require.Equal(t, "reader@example.com", to)
}

func TestNewSenderSelectsProvider(t *testing.T) {
	cfg := config.MailConfig{
		Provider:      ProviderSMTP,
		SMTPHost:      "smtp.example.com",
		SMTPPort:      587,
		SMTPTLSMode:   "starttls",
		BrevoAPIKey:   "k",
		MailgunAPIKey: "k",
		MailgunDomain: "mg.example.com",
	}
	for _, p := range []string{"", ProviderSMTP, ProviderBrevo, ProviderMailgun} {
		s, err := NewSender(cfg, p)
		require.NoError(t, err, p)
		want := p
		if want == "" {
			want = ProviderSMTP
		}
		require.Equal(t, want, s.Provider())
	}
	_, err := NewSender(cfg, "sendgrid")
	require.Error(t, err)
}

func TestRenderDigestGroupsByCategory(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	subs := []domain.Submission{
		{Category: "Sport", Title: "Yoga", Description: "cours", Status: domain.SubmissionApproved, CreatedAt: base},
		{Category: "Food", Title: "Old croissant", Description: "a", Status: domain.SubmissionApproved, CreatedAt: base},
		{Category: "Food", Title: "New bread", Description: "b", Status: domain.SubmissionApproved, CreatedAt: base.Add(time.Hour), LinkURL: "https://example.com/pain", ImageURL: "https://example.com/pain.jpg"},
		{Category: "Food", Title: "Pending pie", Description: "c", Status: domain.SubmissionPending, CreatedAt: base},
	}

	sections := GroupByCategory(subs[:3])
	require.Len(t, sections, 2)
	require.Equal(t, "Food", sections[0].Category)
	require.Equal(t, "New bread", sections[0].Items[0].Title)

	html, err := RenderDigest(subs)
	require.NoError(t, err)
	require.NotContains(t, html, "Pending pie")
	require.Contains(t, html, "Lire la suite")
	require.Contains(t, html, `src="https://example.com/pain.jpg"`)
	require.Less(t, strings.Index(html, "New bread"), strings.Index(html, "Old croissant"))
	require.Less(t, strings.Index(html, "Old croissant"), strings.Index(html, "Yoga"))
}

func TestRenderDigestEscapes(t *testing.T) {
	html, err := RenderDigest([]domain.Submission{{
		Category: "Food", Title: "<script>x</script>", Description: "d", Status: domain.SubmissionApproved,
	}})
	require.NoError(t, err)
	require.NotContains(t, html, "<script>x</script>")
	require.Contains(t, html, "&lt;script&gt;")

	empty, err := RenderDigest(nil)
	require.NoError(t, err)
	require.Contains(t, empty, "Aucune offre cette semaine.")
}
