package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env          string
	Addr         string
	PublicURL    *url.URL
	DBDSN        string
	SQLitePath   string
	DataDir      string
	CookieSecret string
	SessionTTL   time.Duration
	LogLevel     string
	AdminEmails  []string

	AdminBootstrapEmail    string
	AdminBootstrapCompany  string
	AdminBootstrapPassword string

	ContentDir   string
	ContentDelay time.Duration
	Location     *time.Location

	LoginWindow         time.Duration
	LoginMaxAttempts    int
	LoginClearOnSuccess bool
	RedisAddr           string

	SubscribeRPS   float64
	SubscribeBurst int

	// TrustedProxies lists addresses or CIDR ranges allowed to set X-Forwarded-For.
	TrustedProxies []string

	GoogleClientID string
	AppleServiceID string

	Mail MailConfig
}

type MailConfig struct {
	Provider string
	From     string
	FromName string
	Subject  string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPTLSMode  string

	BrevoAPIKey string

	MailgunAPIKey  string
	MailgunDomain  string
	MailgunAPIBase string
}

// Load reads an optional .env file (APP_ENV_FILE, default ".env") and then the
// process environment. Variables already set in the environment win.
func Load() (Config, error) {
	path := os.Getenv("APP_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := loadDotEnvFile(path, os.Setenv, os.Getenv); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return LoadFromEnv(os.Getenv)
}

func loadDotEnvFile(path string, setenv func(string, string) error, getenv func(string) string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		return err
	}
	for k, v := range vars {
		if v == "" || getenv(k) != "" {
			continue
		}
		if err := setenv(k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:            getenv("APP_ENV"),
		Addr:           getenv("APP_ADDR"),
		DBDSN:          getenv("APP_DB_DSN"),
		SQLitePath:     getenv("APP_SQLITE_PATH"),
		DataDir:        getenv("APP_DATA_DIR"),
		ContentDir:     getenv("APP_CONTENT_DIR"),
		LogLevel:       getenv("APP_LOG_LEVEL"),
		CookieSecret:   getenv("APP_COOKIE_SECRET"),
		RedisAddr:      strings.TrimSpace(getenv("APP_REDIS_ADDR")),
		GoogleClientID: strings.TrimSpace(getenv("APP_GOOGLE_CLIENT_ID")),
		AppleServiceID: strings.TrimSpace(getenv("APP_APPLE_SERVICE_ID")),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.ContentDir == "" {
		cfg.ContentDir = "content"
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	publicURLRaw := getenv("APP_PUBLIC_URL")
	if publicURLRaw != "" {
		parsed, err := url.Parse(publicURLRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_PUBLIC_URL: %w", err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return Config{}, errors.New("APP_PUBLIC_URL: must be an absolute URL")
		}
		switch parsed.Scheme {
		case "http", "https":
		default:
			return Config{}, errors.New("APP_PUBLIC_URL: scheme must be http or https")
		}
		cfg.PublicURL = parsed
	}

	var err error
	if cfg.SessionTTL, err = durationVar(getenv, "APP_SESSION_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ContentDelay, err = durationVar(getenv, "APP_CONTENT_DELAY", 48*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.LoginWindow, err = durationVar(getenv, "APP_LOGIN_WINDOW", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.LoginMaxAttempts, err = intVar(getenv, "APP_LOGIN_MAX_ATTEMPTS", 5); err != nil {
		return Config{}, err
	}
	if cfg.SubscribeBurst, err = intVar(getenv, "APP_SUBSCRIBE_BURST", 5); err != nil {
		return Config{}, err
	}

	cfg.LoginClearOnSuccess = true
	if raw := strings.TrimSpace(getenv("APP_LOGIN_CLEAR_ON_SUCCESS")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_LOGIN_CLEAR_ON_SUCCESS: %w", err)
		}
		cfg.LoginClearOnSuccess = v
	}

	cfg.SubscribeRPS = 0.5
	if raw := strings.TrimSpace(getenv("APP_SUBSCRIBE_RPS")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Config{}, fmt.Errorf("APP_SUBSCRIBE_RPS: %w", err)
		}
		if v < 0 {
			return Config{}, errors.New("APP_SUBSCRIBE_RPS: must be >= 0")
		}
		cfg.SubscribeRPS = v
	}

	cfg.Location = time.Local
	if tz := strings.TrimSpace(getenv("APP_TIMEZONE")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("APP_TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	cfg.TrustedProxies = parseCSV(getenv("APP_TRUSTED_PROXIES"))
	for _, p := range cfg.TrustedProxies {
		if _, err := netip.ParsePrefix(p); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(p); err != nil {
			return Config{}, fmt.Errorf("APP_TRUSTED_PROXIES: invalid address or CIDR %q", p)
		}
	}

	cfg.AdminEmails = parseCSV(getenv("APP_ADMIN_EMAILS"))
	cfg.AdminBootstrapEmail = strings.TrimSpace(strings.ToLower(getenv("APP_ADMIN_BOOTSTRAP_EMAIL")))
	cfg.AdminBootstrapCompany = strings.TrimSpace(getenv("APP_ADMIN_BOOTSTRAP_COMPANY"))
	cfg.AdminBootstrapPassword = getenv("APP_ADMIN_BOOTSTRAP_PASSWORD")

	if cfg.AdminBootstrapPassword != "" && cfg.AdminBootstrapEmail == "" {
		return Config{}, errors.New("APP_ADMIN_BOOTSTRAP_EMAIL: required when APP_ADMIN_BOOTSTRAP_PASSWORD is set")
	}
	if cfg.AdminBootstrapPassword != "" && cfg.AdminBootstrapCompany == "" {
		cfg.AdminBootstrapCompany = "Administration"
	}
	if cfg.AdminBootstrapEmail != "" && !contains(cfg.AdminEmails, cfg.AdminBootstrapEmail) {
		cfg.AdminEmails = append(cfg.AdminEmails, cfg.AdminBootstrapEmail)
	}

	if cfg.Mail, err = loadMail(getenv); err != nil {
		return Config{}, err
	}

	if cfg.IsProd() {
		if cfg.PublicURL == nil {
			return Config{}, errors.New("APP_PUBLIC_URL: required in prod")
		}
		if len(cfg.CookieSecret) < 32 {
			return Config{}, errors.New("APP_COOKIE_SECRET: must be at least 32 bytes in prod")
		}
	}

	return cfg, nil
}

func loadMail(getenv func(string) string) (MailConfig, error) {
	m := MailConfig{
		Provider:       strings.TrimSpace(strings.ToLower(getenv("APP_MAIL_PROVIDER"))),
		From:           strings.TrimSpace(getenv("APP_MAIL_FROM")),
		FromName:       strings.TrimSpace(getenv("APP_MAIL_FROM_NAME")),
		Subject:        strings.TrimSpace(getenv("APP_MAIL_SUBJECT")),
		SMTPHost:       strings.TrimSpace(getenv("APP_SMTP_HOST")),
		SMTPUsername:   getenv("APP_SMTP_USERNAME"),
		SMTPPassword:   getenv("APP_SMTP_PASSWORD"),
		SMTPTLSMode:    strings.TrimSpace(strings.ToLower(getenv("APP_SMTP_TLS_MODE"))),
		BrevoAPIKey:    getenv("APP_BREVO_API_KEY"),
		MailgunAPIKey:  getenv("APP_MAILGUN_API_KEY"),
		MailgunDomain:  strings.TrimSpace(getenv("APP_MAILGUN_DOMAIN")),
		MailgunAPIBase: strings.TrimSpace(getenv("APP_MAILGUN_API_BASE")),
	}
	if m.Provider == "" {
		m.Provider = "smtp"
	}
	if m.FromName == "" {
		m.FromName = "Newsletter Locale"
	}
	if m.Subject == "" {
		m.Subject = "Votre Newsletter Hebdo - Les Plans Malin"
	}
	if m.SMTPTLSMode == "" {
		m.SMTPTLSMode = "starttls"
	}

	port, err := intVar(getenv, "APP_SMTP_PORT", 587)
	if err != nil {
		return MailConfig{}, err
	}
	m.SMTPPort = port

	switch m.Provider {
	case "smtp", "brevo", "mailgun":
	default:
		return MailConfig{}, errors.New("APP_MAIL_PROVIDER: must be one of smtp, brevo, mailgun")
	}
	switch m.SMTPTLSMode {
	case "starttls", "tls", "none":
	default:
		return MailConfig{}, errors.New("APP_SMTP_TLS_MODE: must be one of starttls, tls, none")
	}
	return m, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) CookieSecure() bool {
	if c.PublicURL != nil {
		return c.PublicURL.Scheme == "https"
	}
	return c.IsProd()
}

// StorageBackend names the store implementation selected by the config:
// postgres when a DSN is set, sqlite when a database path is set, files otherwise.
func (c Config) StorageBackend() string {
	switch {
	case c.DBDSN != "":
		return "postgres"
	case c.SQLitePath != "":
		return "sqlite"
	default:
		return "file"
	}
}

func durationVar(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be > 0", key)
	}
	return d, nil
}

func intVar(getenv func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s: must be > 0", key)
	}
	return n, nil
}

func parseCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func contains(ss []string, needle string) bool {
	for _, s := range ss {
		if s == needle {
			return true
		}
	}
	return false
}
