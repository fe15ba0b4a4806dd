package merchantui

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"Newsletterwebserver/internal/auth"
	"Newsletterwebserver/internal/service"
	"Newsletterwebserver/internal/store/filestore"
	"Newsletterwebserver/internal/store/memory"
	"Newsletterwebserver/internal/throttle"
)

func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	dir := t.TempDir()
	authSvc := &service.AuthService{
		Users:          filestore.NewUsersStore(dir),
		Sessions:       memory.NewSessionsStore(),
		SessionTTL:     time.Hour,
		Throttle:       throttle.New(throttle.NewMemoryStore(), 10*time.Minute, 5),
		ClearOnSuccess: true,
	}
	h := New(Opts{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Auth:        authSvc,
		Submissions: &service.SubmissionService{Submissions: filestore.NewSubmissionsStore(dir)},
		CookieCodec: auth.NewCookieCodec([]byte("merchant-test-secret-merchant-test")),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return srv, client
}

func post(t *testing.T, c *http.Client, u string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(u, form)
	if err != nil {
		t.Fatalf("POST %s: %v", u, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func TestHomeRequiresLogin(t *testing.T) {
	srv, c := newTestServer(t)
	resp, _ := get(t, c, srv.URL+"/commercant/")
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/commercant/login" {
		t.Fatalf("expected redirect to login, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestRegisterValidation(t *testing.T) {
	srv, c := newTestServer(t)
	resp, body := post(t, c, srv.URL+"/commercant/register", url.Values{
		"company_name": {""},
		"email":        {"bad"},
		"password":     {"short"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	for _, want := range []string{"champ obligatoire", "adresse email invalide", "10 caractères minimum"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in page", want)
		}
	}
}

func TestRegisterSubmitAndList(t *testing.T) {
	srv, c := newTestServer(t)

	resp, _ := post(t, c, srv.URL+"/commercant/register", url.Values{
		"company_name": {"Boulangerie du Port"},
		"email":        {"Shop@Example.com"},
		"password":     {"une baguette svp"},
	})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect after register, got %d", resp.StatusCode)
	}

	_, body := get(t, c, srv.URL+"/commercant/")
	if !strings.Contains(body, "Boulangerie du Port") || !strings.Contains(body, "Bienvenue") {
		t.Fatalf("expected welcome page, got %s", body)
	}

	resp, body = post(t, c, srv.URL+"/commercant/submissions", url.Values{
		"category": {"Alimentation"},
		"title":    {""},
		"link_url": {"pas une url"},
	})
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(body, "URL invalide") {
		t.Fatalf("expected validation errors, got %d", resp.StatusCode)
	}

	resp, _ = post(t, c, srv.URL+"/commercant/submissions", url.Values{
		"category":    {"Alimentation"},
		"title":       {"Croissants -20%"},
		"description": {"Tous les matins avant 9h"},
		"link_url":    {"https://example.com/offre"},
	})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 after submit, got %d", resp.StatusCode)
	}

	_, body = get(t, c, srv.URL+"/commercant/")
	if !strings.Contains(body, "Croissants -20%") || !strings.Contains(body, "En attente") {
		t.Fatalf("expected pending submission listed, got %s", body)
	}

	resp, _ = post(t, c, srv.URL+"/commercant/logout", nil)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect after logout, got %d", resp.StatusCode)
	}
	resp, _ = get(t, c, srv.URL+"/commercant/")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected logged out, got %d", resp.StatusCode)
	}

	resp, _ = post(t, c, srv.URL+"/commercant/login", url.Values{"email": {"shop@example.com"}, "password": {"une baguette svp"}})
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/commercant/" {
		t.Fatalf("expected login redirect, got %d", resp.StatusCode)
	}
}

func TestLoginBlockedAfterRepeatedFailures(t *testing.T) {
	srv, c := newTestServer(t)
	form := url.Values{"email": {"nobody@example.com"}, "password": {"wrong password"}}

	for i := range 5 {
		resp, _ := post(t, c, srv.URL+"/commercant/login", form)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, resp.StatusCode)
		}
	}
	resp, body := post(t, c, srv.URL+"/commercant/login", form)
	if resp.StatusCode != http.StatusTooManyRequests || !strings.Contains(body, "Trop de tentatives") {
		t.Fatalf("expected blocked login, got %d", resp.StatusCode)
	}
}
