// Package merchantui serves the merchant area under /commercant: account
// creation, login and offer submission.
package merchantui

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"Newsletterwebserver/internal/auth"
	"Newsletterwebserver/internal/domain"
	"Newsletterwebserver/internal/metrics"
	"Newsletterwebserver/internal/service"
)

type Opts struct {
	Logger *slog.Logger

	Auth         *service.AuthService
	Submissions  *service.SubmissionService
	Metrics      *metrics.Metrics
	CookieCodec  auth.CookieCodec
	CookieSecure bool
	SessionTTL   time.Duration
}

func New(opts Opts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Auth == nil || opts.Submissions == nil {
		logger.Warn("merchantui: missing services", "auth", opts.Auth != nil, "submissions", opts.Submissions != nil)
	}

	app := &app{
		logger:       logger,
		authSvc:      opts.Auth,
		submitSvc:    opts.Submissions,
		metrics:      opts.Metrics,
		cookieCodec:  opts.CookieCodec,
		cookieSecure: opts.CookieSecure,
		sessionTTL:   opts.SessionTTL,
	}

	t, err := parseTemplates()
	if err != nil {
		logger.Error("merchantui: parse templates failed", "err", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		})
	}
	app.templates = t

	mux := http.NewServeMux()
	mux.HandleFunc("GET /commercant", app.redirectHome)
	mux.HandleFunc("GET /commercant/{$}", app.requireAuth(app.handleHome))
	mux.HandleFunc("GET /commercant/login", app.handleLoginGet)
	mux.HandleFunc("POST /commercant/login", app.handleLoginPost)
	mux.HandleFunc("GET /commercant/register", app.handleRegisterGet)
	mux.HandleFunc("POST /commercant/register", app.handleRegisterPost)
	mux.HandleFunc("POST /commercant/logout", app.handleLogoutPost)
	mux.HandleFunc("POST /commercant/submissions", app.requireAuth(app.handleSubmissionPost))

	staticFS, err := fs.Sub(assets, "static")
	if err != nil {
		logger.Error("merchantui: static fs setup failed", "err", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		})
	}
	static := http.StripPrefix("/commercant/static/", http.FileServer(http.FS(staticFS)))
	mux.Handle("GET /commercant/static/", static)
	mux.Handle("HEAD /commercant/static/", static)

	return mux
}

type app struct {
	logger *slog.Logger

	authSvc   *service.AuthService
	submitSvc *service.SubmissionService
	metrics   *metrics.Metrics

	cookieCodec  auth.CookieCodec
	cookieSecure bool
	sessionTTL   time.Duration

	templates *templates
}

func (a *app) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/commercant/", http.StatusFound)
}

func (a *app) requireAuth(next func(http.ResponseWriter, *http.Request, domain.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, _, ok := a.currentUser(r)
		if !ok {
			http.Redirect(w, r, "/commercant/login", http.StatusFound)
			return
		}
		next(w, r, u)
	}
}

func (a *app) currentUser(r *http.Request) (domain.User, string, bool) {
	if a.authSvc == nil {
		return domain.User{}, "", false
	}
	c, err := r.Cookie(auth.MerchantCookieName)
	if err != nil || c.Value == "" {
		return domain.User{}, "", false
	}
	sessID, ok := a.cookieCodec.DecodeSessionID(c.Value)
	if !ok {
		return domain.User{}, "", false
	}
	u, err := a.authSvc.GetUserForSession(r.Context(), sessID)
	if err != nil {
		return domain.User{}, "", false
	}
	return u, sessID, true
}
