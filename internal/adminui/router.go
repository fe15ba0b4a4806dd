// Package adminui serves the administration panel under /admin.
package adminui

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"Newsletterwebserver/internal/auth"
	"Newsletterwebserver/internal/content"
	"Newsletterwebserver/internal/domain"
	"Newsletterwebserver/internal/metrics"
	"Newsletterwebserver/internal/service"
)

type Opts struct {
	Logger *slog.Logger

	Auth          *service.AuthService
	Admin         *service.AdminService
	Subscriptions *service.SubscriptionService
	Submissions   *service.SubmissionService
	Dispatch      *service.DispatchService
	Publisher     *content.Publisher
	Metrics       *metrics.Metrics

	CookieCodec  auth.CookieCodec
	CookieSecure bool
	SessionTTL   time.Duration

	// GoogleClientID and AppleServiceID enable the matching sign-in buttons.
	GoogleClientID string
	AppleServiceID string
	PublicURL      string

	Now func() time.Time
}

func New(opts Opts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Auth == nil || opts.Admin == nil {
		return http.NotFoundHandler()
	}

	app := &app{
		logger:         logger,
		authSvc:        opts.Auth,
		adminSvc:       opts.Admin,
		subsSvc:        opts.Subscriptions,
		submitSvc:      opts.Submissions,
		dispatchSvc:    opts.Dispatch,
		publisher:      opts.Publisher,
		metrics:        opts.Metrics,
		cookieCodec:    opts.CookieCodec,
		cookieSecure:   opts.CookieSecure,
		sessionTTL:     opts.SessionTTL,
		googleClientID: opts.GoogleClientID,
		appleServiceID: opts.AppleServiceID,
		publicURL:      opts.PublicURL,
		now:            opts.Now,
	}
	if app.now == nil {
		app.now = time.Now
	}

	t, err := parseTemplates()
	if err != nil {
		logger.Error("adminui: parse templates failed", "err", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		})
	}
	app.templates = t

	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin", app.redirectAdmin)
	mux.HandleFunc("GET /admin/{$}", app.requireAdmin(app.handleDashboard))
	mux.HandleFunc("GET /admin/login", app.handleLoginGet)
	mux.HandleFunc("POST /admin/login", app.handleLoginPost)
	mux.HandleFunc("POST /admin/login/{provider}", app.handleIDTokenLogin)
	mux.HandleFunc("POST /admin/logout", app.handleLogoutPost)

	mux.HandleFunc("GET /admin/subscribers", app.requireAdmin(app.handleSubscribersList))
	mux.HandleFunc("GET /admin/subscribers.csv", app.requireAdmin(app.handleSubscribersCSV))
	mux.HandleFunc("POST /admin/subscribers/delete", app.requireAdmin(app.handleSubscriberDelete))

	mux.HandleFunc("GET /admin/users", app.requireAdmin(app.handleUsersList))
	mux.HandleFunc("POST /admin/users/{id}/status", app.requireAdmin(app.handleUserStatus))

	mux.HandleFunc("GET /admin/submissions", app.requireAdmin(app.handleSubmissionsList))
	mux.HandleFunc("POST /admin/submissions/{id}/{action}", app.requireAdmin(app.handleSubmissionReview))

	mux.HandleFunc("GET /admin/dispatch", app.requireAdmin(app.handleDispatchLogs))
	mux.HandleFunc("POST /admin/publish", app.requireAdmin(app.handlePublish))
	mux.HandleFunc("POST /admin/send-test", app.requireAdmin(app.handleSendTest))

	staticFS, err := fs.Sub(assets, "static")
	if err != nil {
		logger.Error("adminui: static fs setup failed", "err", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		})
	}
	static := http.StripPrefix("/admin/static/", http.FileServer(http.FS(staticFS)))
	mux.Handle("GET /admin/static/", static)
	mux.Handle("HEAD /admin/static/", static)

	return mux
}

type app struct {
	logger *slog.Logger

	authSvc     *service.AuthService
	adminSvc    *service.AdminService
	subsSvc     *service.SubscriptionService
	submitSvc   *service.SubmissionService
	dispatchSvc *service.DispatchService
	publisher   *content.Publisher
	metrics     *metrics.Metrics

	cookieCodec  auth.CookieCodec
	cookieSecure bool
	sessionTTL   time.Duration

	googleClientID string
	appleServiceID string
	publicURL      string

	now func() time.Time

	templates *templates
}

func (a *app) redirectAdmin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin/", http.StatusFound)
}

type adminHandler func(w http.ResponseWriter, r *http.Request, u domain.User)

func (a *app) requireAdmin(next adminHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, _, err := a.currentAdmin(r)
		if err != nil {
			if errors.Is(err, domain.ErrForbidden) {
				a.templates.renderError(w, http.StatusForbidden, "Accès refusé", "Ce compte n'a pas accès à l'administration.")
				return
			}
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}
		next(w, r, u)
	}
}

func (a *app) currentAdmin(r *http.Request) (domain.User, string, error) {
	c, err := r.Cookie(auth.AdminCookieName)
	if err != nil || c.Value == "" {
		return domain.User{}, "", domain.ErrUnauthorized
	}
	sessID, ok := a.cookieCodec.DecodeSessionID(c.Value)
	if !ok {
		return domain.User{}, "", domain.ErrUnauthorized
	}
	u, err := a.authSvc.GetAdminForSession(r.Context(), sessID)
	if err != nil {
		return domain.User{}, "", err
	}
	return u, sessID, nil
}
