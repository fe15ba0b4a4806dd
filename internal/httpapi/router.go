package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"Newsletterwebserver/internal/auth"
	"Newsletterwebserver/internal/content"
	"Newsletterwebserver/internal/metrics"
	"Newsletterwebserver/internal/ratelimit"
	"Newsletterwebserver/internal/service"

	"github.com/gorilla/mux"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Subscriptions *service.SubscriptionService
	Stats         *service.StatsService
	Submissions   *service.SubmissionService
	Dispatch      *service.DispatchService
	Library       *content.Library
	Auth          *service.AuthService

	Metrics *metrics.Metrics
	// SubscribeLimiter throttles POST /subscribe per client IP. Nil disables it.
	SubscribeLimiter *ratelimit.Store
	// TrustedProxies decides whose X-Forwarded-For sets the client IP. Nil trusts nobody.
	TrustedProxies *ratelimit.TrustedProxies

	CookieCodec  auth.CookieCodec
	CookieSecure bool
	SessionTTL   time.Duration

	// Admin and Merchant serve /admin and /commercant when set.
	Admin    http.Handler
	Merchant http.Handler
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:       logger,
		isProd:       opts.IsProd,
		dbPing:       opts.DBPing,
		subsSvc:      opts.Subscriptions,
		statsSvc:     opts.Stats,
		submitSvc:    opts.Submissions,
		dispatchSvc:  opts.Dispatch,
		library:      opts.Library,
		authSvc:      opts.Auth,
		metrics:      opts.Metrics,
		cookieCodec:  opts.CookieCodec,
		cookieSecure: opts.CookieSecure,
		sessionTTL:   opts.SessionTTL,
	}

	limit := ratelimit.Middleware(ratelimit.Options{
		Store: opts.SubscribeLimiter,
		OnReject: func(r *http.Request, key string) {
			logger.Warn("subscribe rate limited", "ip", key)
			if api.metrics != nil {
				api.metrics.RateLimited.WithLabelValues(r.URL.Path).Inc()
			}
		},
		Reject: func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			http.Error(w, "Trop de demandes, réessayez dans quelques instants.", http.StatusTooManyRequests)
		},
	})

	publicMux := http.NewServeMux()
	publicMux.HandleFunc("GET /", api.handleHome)
	publicMux.Handle("POST /subscribe", limit(http.HandlerFunc(api.handleSubscribe)))
	publicMux.HandleFunc("GET /newsletter", api.handleNewsletter)
	publicMux.HandleFunc("GET /newsletter-test", api.handleNewsletterTest)
	publicMux.HandleFunc("GET /stats", api.handleStats)
	publicMux.HandleFunc("GET /apropos", api.handleAbout)
	publicMux.HandleFunc("GET /healthz", api.handleHealthz)
	if api.metrics != nil {
		publicMux.Handle("GET /metrics", api.metrics.Handler())
	}

	apiRouter := mux.NewRouter()
	apiRouter.NotFoundHandler = http.HandlerFunc(handleAPINotFound)
	apiRouter.MethodNotAllowedHandler = http.HandlerFunc(handleAPIMethodNotAllowed)

	v := apiRouter.PathPrefix("/api").Subrouter()
	v.HandleFunc("/subscribers/count", api.handleAPISubscriberCount).Methods(http.MethodGet)
	v.Handle("/subscribe", limit(http.HandlerFunc(api.handleAPISubscribe))).Methods(http.MethodPost)
	v.HandleFunc("/stats", api.handleAPIStats).Methods(http.MethodGet)
	v.HandleFunc("/newsletter", api.handleAPINewsletter).Methods(http.MethodGet)
	if api.authSvc != nil {
		v.HandleFunc("/auth/login", api.handleAuthLogin).Methods(http.MethodPost)
		v.Handle("/auth/logout", api.requireAdmin(http.HandlerFunc(api.handleAuthLogout))).Methods(http.MethodPost)
		v.Handle("/auth/me", api.requireAdmin(http.HandlerFunc(api.handleAuthMe))).Methods(http.MethodGet)
		v.Handle("/dispatch/logs", api.requireAdmin(http.HandlerFunc(api.handleAPIDispatchLogs))).Methods(http.MethodGet)
		v.Handle("/submissions", api.requireAdmin(http.HandlerFunc(api.handleAPISubmissions))).Methods(http.MethodGet)
	} else {
		v.HandleFunc("/dispatch/logs", handleNotImplemented).Methods(http.MethodGet)
		v.HandleFunc("/submissions", handleNotImplemented).Methods(http.MethodGet)
	}

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case hasPathPrefix(r.URL.Path, "/api"):
			apiRouter.ServeHTTP(w, r)
		case opts.Admin != nil && hasPathPrefix(r.URL.Path, "/admin"):
			opts.Admin.ServeHTTP(w, r)
		case opts.Merchant != nil && hasPathPrefix(r.URL.Path, "/commercant"):
			opts.Merchant.ServeHTTP(w, r)
		default:
			publicMux.ServeHTTP(w, r)
		}
	})

	var onPanic func()
	if api.metrics != nil {
		onPanic = api.metrics.PanicsRecovered.Inc
	}

	var h http.Handler = root
	h = RequestLogger(logger)(h)
	h = ratelimit.RealIP(opts.TrustedProxies)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd, onPanic)(h)
	return h
}

func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleAPINotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

func handleAPIMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	subsSvc     *service.SubscriptionService
	statsSvc    *service.StatsService
	submitSvc   *service.SubmissionService
	dispatchSvc *service.DispatchService
	library     *content.Library
	authSvc     *service.AuthService
	metrics     *metrics.Metrics

	cookieCodec  auth.CookieCodec
	cookieSecure bool
	sessionTTL   time.Duration
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
