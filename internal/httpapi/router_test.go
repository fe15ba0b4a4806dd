package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Newsletterwebserver/internal/auth"
	"Newsletterwebserver/internal/content"
	"Newsletterwebserver/internal/metrics"
	"Newsletterwebserver/internal/ratelimit"
	"Newsletterwebserver/internal/service"
	"Newsletterwebserver/internal/store/filestore"
	"Newsletterwebserver/internal/store/memory"
)

type testEnv struct {
	dir     string
	opts    RouterOpts
	handler http.Handler
}

func newTestEnv(t *testing.T, mutate func(*RouterOpts)) *testEnv {
	t.Helper()
	dir := t.TempDir()
	subscribers := filestore.NewSubscribersStore(dir)
	submissions := filestore.NewSubmissionsStore(dir)
	logs := filestore.NewDispatchLogStore(dir)

	opts := RouterOpts{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Subscriptions: &service.SubscriptionService{Subscribers: subscribers},
		Stats:         &service.StatsService{Subscribers: subscribers, Views: filestore.NewStatsStore(dir)},
		Submissions:   &service.SubmissionService{Submissions: submissions},
		Dispatch:      &service.DispatchService{Subscribers: subscribers, Submissions: submissions, Logs: logs},
		Library:       content.NewLibrary(dir, content.DefaultDelay, time.UTC),
		Auth: &service.AuthService{
			Users:      filestore.NewUsersStore(dir),
			Sessions:   memory.NewSessionsStore(),
			SessionTTL: time.Hour,
		},
		Metrics:     metrics.New(),
		CookieCodec: auth.NewCookieCodec([]byte("test-secret-test-secret-test-secret")),
	}
	if mutate != nil {
		mutate(&opts)
	}
	return &testEnv{dir: dir, opts: opts, handler: NewRouter(opts)}
}

func (e *testEnv) do(t *testing.T, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	if r.RemoteAddr == "" {
		r.RemoteAddr = "192.0.2.10:4321"
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, r)
	return rr
}

func postForm(path string, form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode json: %v (%s)", err, rr.Body.String())
	}
	return body
}

func TestSubscribeFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, postForm("/subscribe", url.Values{"email": {"not-an-email"}}))
	if rr.Code != http.StatusBadRequest || rr.Body.String() != "Adresse email invalide" {
		t.Fatalf("expected 400 invalid email, got %d %q", rr.Code, rr.Body.String())
	}

	rr = env.do(t, postForm("/subscribe", url.Values{"email": {"  Reader@Example.com "}}))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Merci pour votre inscription") {
		t.Fatalf("expected success page, got %d %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "reader@example.com") {
		t.Fatalf("expected normalized email on page")
	}

	rr = env.do(t, postForm("/subscribe", url.Values{"email": {"reader@example.com"}}))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "déjà inscrit") {
		t.Fatalf("expected already subscribed page, got %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/api/subscribers/count", nil))
	body := decodeEnvelope(t, rr)
	data, _ := body["data"].(map[string]any)
	if body["status"] != "success" || data["count"] != float64(1) {
		t.Fatalf("unexpected count envelope: %v", body)
	}
}

func TestSubscribeRateLimited(t *testing.T) {
	env := newTestEnv(t, func(o *RouterOpts) {
		o.SubscribeLimiter = ratelimit.NewStore(0.001, 1)
	})

	rr := env.do(t, postForm("/subscribe", url.Values{"email": {"a@example.com"}}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected first post to pass, got %d", rr.Code)
	}
	rr = env.do(t, postForm("/subscribe", url.Values{"email": {"b@example.com"}}))
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rr.Code)
	}
}

func TestSubscribeRateLimitIgnoresUntrustedForwardedFor(t *testing.T) {
	env := newTestEnv(t, func(o *RouterOpts) {
		o.SubscribeLimiter = ratelimit.NewStore(0.001, 1)
	})

	codes := make([]int, 0, 2)
	for i, xff := range []string{"198.51.100.1", "198.51.100.2"} {
		r := postForm("/subscribe", url.Values{"email": {fmt.Sprintf("r%d@example.com", i)}})
		r.Header.Set("X-Forwarded-For", xff)
		codes = append(codes, env.do(t, r).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestSubscribeRateLimitTrustedProxyPerClient(t *testing.T) {
	proxies, err := ratelimit.ParseTrustedProxies([]string{"192.0.2.0/24"})
	if err != nil {
		t.Fatalf("ParseTrustedProxies: %v", err)
	}
	env := newTestEnv(t, func(o *RouterOpts) {
		o.SubscribeLimiter = ratelimit.NewStore(0.001, 1)
		o.TrustedProxies = proxies
	})

	codes := make([]int, 0, 3)
	for i, xff := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.1"} {
		r := postForm("/subscribe", url.Values{"email": {fmt.Sprintf("p%d@example.com", i)}})
		r.Header.Set("X-Forwarded-For", xff)
		codes = append(codes, env.do(t, r).Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestHomeCountsViews(t *testing.T) {
	env := newTestEnv(t, nil)

	for range 2 {
		rr := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "abonnés") {
			t.Fatalf("unexpected home: %d", rr.Code)
		}
	}

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `<span class="count">2</span>`) {
		t.Fatalf("expected 2 views on stats page, got %s", rr.Body.String())
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

type failingViews struct{}

func (failingViews) IncrementViews(context.Context) (int64, error) { return 0, errors.New("disk full") }
func (failingViews) Views(context.Context) (int64, error)          { return 0, errors.New("disk full") }

func TestStatsStorageFailureIsGenericText(t *testing.T) {
	env := newTestEnv(t, func(o *RouterOpts) {
		o.Stats = &service.StatsService{Subscribers: o.Subscriptions.Subscribers, Views: failingViews{}}
	})

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != statsErrorText {
		t.Fatalf("expected generic stats error, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestNewsletterServesSelectedEdition(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/newsletter", nil))
	if !strings.Contains(rr.Body.String(), "pas encore disponible") {
		t.Fatalf("expected placeholder, got %s", rr.Body.String())
	}

	if err := os.WriteFile(filepath.Join(env.dir, content.UpcomingFile), []byte("<h2>Edition 42</h2>"), 0o644); err != nil {
		t.Fatal(err)
	}
	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/newsletter", nil))
	if !strings.Contains(rr.Body.String(), "<h2>Edition 42</h2>") {
		t.Fatalf("expected upcoming edition without meta, got %s", rr.Body.String())
	}

	rr = env.do(t, httptest.NewRequest(http.MethodGet, "/newsletter-test", nil))
	if !strings.Contains(rr.Body.String(), "Aperçu") || !strings.Contains(rr.Body.String(), "pas encore disponible") {
		t.Fatalf("expected draft preview placeholder, got %s", rr.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, func(o *RouterOpts) {
		o.DBPing = func(context.Context) error { return errors.New("down") }
	})
	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable || rr.Body.String() != "db down" {
		t.Fatalf("unexpected healthz: %d %q", rr.Code, rr.Body.String())
	}
}

func TestAPIUnknownRouteIsJSON404(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	if rr.Code != http.StatusNotFound || decodeEnvelope(t, rr)["status"] != "error" {
		t.Fatalf("unexpected response: %d %s", rr.Code, rr.Body.String())
	}
}

func TestAPIDispatchLogsRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/api/dispatch/logs", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	if _, _, err := env.opts.Auth.EnsureAdmin(context.Background(), "admin@example.com", "Mairie", "correct horse battery"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	login := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"admin@example.com","password":"correct horse battery"}`))
	rr = env.do(t, login)
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rr.Code, rr.Body.String())
	}
	cookies := rr.Result().Cookies()
	if len(cookies) == 0 || cookies[0].Name != auth.AdminCookieName {
		t.Fatalf("expected admin cookie, got %v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/dispatch/logs?limit=5", nil)
	req.AddCookie(cookies[0])
	rr = env.do(t, req)
	body := decodeEnvelope(t, rr)
	if rr.Code != http.StatusOK || body["status"] != "success" {
		t.Fatalf("unexpected logs response: %d %v", rr.Code, body)
	}
	if _, ok := body["data"].([]any); !ok {
		t.Fatalf("expected data array, got %v", body["data"])
	}

	req = httptest.NewRequest(http.MethodGet, "/api/dispatch/logs?limit=0", nil)
	req.AddCookie(cookies[0])
	if rr = env.do(t, req); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rr.Code)
	}
}

func TestAPILoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, _, err := env.opts.Auth.EnsureAdmin(context.Background(), "admin@example.com", "Mairie", "correct horse battery"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	rr := env.do(t, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"admin@example.com","password":"wrong password!"}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestMountsAdminAndMerchantHandlers(t *testing.T) {
	mark := func(name string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(name)) })
	}
	env := newTestEnv(t, func(o *RouterOpts) {
		o.Admin = mark("admin")
		o.Merchant = mark("merchant")
	})

	for path, want := range map[string]string{"/admin": "admin", "/admin/users": "admin", "/commercant/": "merchant"} {
		rr := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Body.String() != want {
			t.Fatalf("%s: expected %q, got %q", path, want, rr.Body.String())
		}
	}
	rr := env.do(t, httptest.NewRequest(http.MethodGet, "/administration", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected /administration to fall through to 404, got %d", rr.Code)
	}
}
