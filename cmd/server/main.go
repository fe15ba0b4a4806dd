package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"Newsletterwebserver/internal/adminui"
	"Newsletterwebserver/internal/auth"
	"Newsletterwebserver/internal/config"
	"Newsletterwebserver/internal/content"
	"Newsletterwebserver/internal/email"
	"Newsletterwebserver/internal/httpapi"
	"Newsletterwebserver/internal/merchantui"
	"Newsletterwebserver/internal/metrics"
	"Newsletterwebserver/internal/ratelimit"
	"Newsletterwebserver/internal/service"
	"Newsletterwebserver/internal/store"
	"Newsletterwebserver/internal/throttle"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage open failed", "backend", cfg.StorageBackend(), "err", err)
		os.Exit(1)
	}
	defer stores.Close()

	m := metrics.New()

	loginThrottle, closeThrottle := newLoginThrottle(ctx, cfg, stores, logger)
	defer closeThrottle()

	verifier := auth.IDTokenVerifier{GoogleClientID: cfg.GoogleClientID, AppleServiceID: cfg.AppleServiceID}
	authSvc := &service.AuthService{
		Users:          stores.Users,
		Sessions:       stores.Sessions,
		SessionTTL:     cfg.SessionTTL,
		Logger:         logger,
		Throttle:       loginThrottle,
		ClearOnSuccess: cfg.LoginClearOnSuccess,
		AdminEmails:    cfg.AdminEmails,
	}
	if verifier.Enabled(auth.ProviderGoogle) || verifier.Enabled(auth.ProviderApple) {
		authSvc.VerifyIDToken = verifier.Verify
	}

	if cfg.AdminBootstrapPassword != "" {
		_, created, err := authSvc.EnsureAdmin(ctx, cfg.AdminBootstrapEmail, cfg.AdminBootstrapCompany, cfg.AdminBootstrapPassword)
		if err != nil {
			logger.Error("bootstrap admin failed", "err", err)
			os.Exit(1)
		}
		logger.Info("admin bootstrap", "email", cfg.AdminBootstrapEmail, "created", created)
	}

	subsSvc := &service.SubscriptionService{Subscribers: stores.Subscribers}
	statsSvc := &service.StatsService{Subscribers: stores.Subscribers, Views: stores.Views}
	submitSvc := &service.SubmissionService{Submissions: stores.Submissions}
	adminSvc := &service.AdminService{
		Users:       stores.Users,
		Subscribers: stores.Subscribers,
		Submissions: stores.Submissions,
		Views:       stores.Views,
	}
	dispatchSvc := &service.DispatchService{
		Subscribers: stores.Subscribers,
		Submissions: stores.Submissions,
		Logs:        stores.DispatchLog,
		FromEmail:   cfg.Mail.From,
		FromName:    cfg.Mail.FromName,
		Subject:     cfg.Mail.Subject,
		Logger:      logger,
		OnResult:    m.ObserveDispatch,
	}
	if sender, err := email.NewSender(cfg.Mail, ""); err != nil {
		logger.Warn("mail sender disabled", "provider", cfg.Mail.Provider, "err", err)
	} else {
		dispatchSvc.Sender = sender
	}

	library := content.NewLibrary(cfg.ContentDir, cfg.ContentDelay, cfg.Location)
	publisher := content.NewPublisher(cfg.ContentDir, cfg.Location)

	trustedProxies, err := ratelimit.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Error("trusted proxies", "err", err)
		os.Exit(1)
	}

	var subscribeLimiter *ratelimit.Store
	if cfg.SubscribeRPS > 0 {
		subscribeLimiter = ratelimit.NewStore(cfg.SubscribeRPS, cfg.SubscribeBurst)
		subscribeLimiter.StartJanitor(ctx)
	}

	cookieCodec := auth.NewCookieCodec([]byte(cfg.CookieSecret))
	publicURL := ""
	if cfg.PublicURL != nil {
		publicURL = cfg.PublicURL.String()
	}

	adminRouter := adminui.New(adminui.Opts{
		Logger:         logger,
		Auth:           authSvc,
		Admin:          adminSvc,
		Subscriptions:  subsSvc,
		Submissions:    submitSvc,
		Dispatch:       dispatchSvc,
		Publisher:      publisher,
		Metrics:        m,
		CookieCodec:    cookieCodec,
		CookieSecure:   cfg.CookieSecure(),
		SessionTTL:     cfg.SessionTTL,
		GoogleClientID: cfg.GoogleClientID,
		AppleServiceID: cfg.AppleServiceID,
		PublicURL:      publicURL,
	})
	merchantRouter := merchantui.New(merchantui.Opts{
		Logger:       logger,
		Auth:         authSvc,
		Submissions:  submitSvc,
		Metrics:      m,
		CookieCodec:  cookieCodec,
		CookieSecure: cfg.CookieSecure(),
		SessionTTL:   cfg.SessionTTL,
	})
	if len(cfg.AdminEmails) == 0 {
		logger.Info("no admin emails configured; only accounts with the admin role can open /admin")
	}

	root := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:           logger,
		IsProd:           cfg.IsProd(),
		DBPing:           stores.Ping,
		Subscriptions:    subsSvc,
		Stats:            statsSvc,
		Submissions:      submitSvc,
		Dispatch:         dispatchSvc,
		Library:          library,
		Auth:             authSvc,
		Metrics:          m,
		SubscribeLimiter: subscribeLimiter,
		TrustedProxies:   trustedProxies,
		CookieCodec:      cookieCodec,
		CookieSecure:     cfg.CookieSecure(),
		SessionTTL:       cfg.SessionTTL,
		Admin:            adminRouter,
		Merchant:         merchantRouter,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr, "storage", stores.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

// newLoginThrottle picks where failed logins are counted: Redis when
// configured, then the Postgres table, then process memory.
func newLoginThrottle(ctx context.Context, cfg config.Config, stores *store.Set, logger *slog.Logger) (*throttle.Throttle, func()) {
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, falling back", "addr", cfg.RedisAddr, "err", err)
			_ = rdb.Close()
		} else {
			logger.Info("login throttle", "store", "redis", "addr", cfg.RedisAddr)
			return throttle.New(throttle.NewRedisStore(rdb, cfg.LoginWindow), cfg.LoginWindow, cfg.LoginMaxAttempts), func() { _ = rdb.Close() }
		}
	}
	if stores.LoginFailures != nil {
		logger.Info("login throttle", "store", stores.Backend)
		return throttle.New(stores.LoginFailures, cfg.LoginWindow, cfg.LoginMaxAttempts), func() {}
	}
	logger.Info("login throttle", "store", "memory")
	return throttle.New(throttle.NewMemoryStore(), cfg.LoginWindow, cfg.LoginMaxAttempts), func() {}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
