package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"Newsletterwebserver/internal/auth"
	"Newsletterwebserver/internal/domain"
)

type UsersStore interface {
	CreateUser(ctx context.Context, email, companyName, passwordHash string, role domain.UserRole) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	SetLastLogin(ctx context.Context, userID string, when time.Time) error
}

type SessionsStore interface {
	CreateSession(ctx context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	RevokeSession(ctx context.Context, sessionID string, when time.Time) error
}

// LoginThrottle counts failed logins per client key. *throttle.Throttle
// satisfies it.
type LoginThrottle interface {
	RecordAttempt(ctx context.Context, key string, at time.Time) error
	IsBlocked(ctx context.Context, key string, now time.Time) (bool, error)
	Reset(ctx context.Context, key string) error
}

type AuthService struct {
	Users      UsersStore
	Sessions   SessionsStore
	SessionTTL time.Duration
	Now        func() time.Time
	Logger     *slog.Logger

	// Throttle is optional; nil disables brute-force protection.
	Throttle       LoginThrottle
	ClearOnSuccess bool

	AdminEmails   []string
	VerifyIDToken func(ctx context.Context, provider, token string) (*auth.ExternalTokenClaims, error)
}

type RegisterRequest struct {
	Email       string
	CompanyName string
	Password    string
	IP          string
	UserAgent   string
}

type LoginRequest struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
	// AdminOnly rejects valid credentials of non-admin accounts as invalid.
	AdminOnly bool
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *AuthService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// IsAdmin reports whether u may use the admin panel.
func (s *AuthService) IsAdmin(u domain.User) bool {
	if u.Role == domain.UserRoleAdmin {
		return true
	}
	return s.adminEmail(u.Email)
}

func (s *AuthService) adminEmail(email string) bool {
	email = NormalizeEmail(email)
	for _, e := range s.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (domain.User, string, error) {
	email := NormalizeEmail(req.Email)
	company := strings.TrimSpace(req.CompanyName)

	fields := map[string]string{}
	if !ValidEmail(email) {
		fields["email"] = "adresse email invalide"
	}
	if company == "" {
		fields["company_name"] = "champ obligatoire"
	} else if utf8.RuneCountInString(company) > 120 {
		fields["company_name"] = "120 caractères maximum"
	}
	if err := auth.CheckPasswordPolicy(req.Password); err != nil {
		fields["password"] = "10 caractères minimum"
	}
	if len(fields) > 0 {
		return domain.User{}, "", domain.NewValidationError(fields)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, "", err
	}

	u, err := s.Users.CreateUser(ctx, email, company, passwordHash, domain.UserRoleMerchant)
	if err != nil {
		return domain.User{}, "", err
	}

	sessID, err := s.Sessions.CreateSession(ctx, u.ID, s.now().Add(s.SessionTTL), req.IP, req.UserAgent)
	if err != nil {
		return domain.User{}, "", err
	}

	return u, sessID, nil
}

func throttleKeys(ip, email string) []string {
	keys := make([]string, 0, 2)
	if ip != "" {
		keys = append(keys, ip)
	}
	if email != "" {
		keys = append(keys, "email:"+email)
	}
	return keys
}

func (s *AuthService) checkBlocked(ctx context.Context, keys []string) error {
	if s.Throttle == nil {
		return nil
	}
	now := s.now()
	for _, k := range keys {
		blocked, err := s.Throttle.IsBlocked(ctx, k, now)
		if err != nil {
			return err
		}
		if blocked {
			return domain.ErrLoginBlocked
		}
	}
	return nil
}

// recordFailure counts a failed attempt for every key and returns cause.
func (s *AuthService) recordFailure(ctx context.Context, keys []string, cause error) error {
	if s.Throttle == nil {
		return cause
	}
	now := s.now()
	for _, k := range keys {
		if err := s.Throttle.RecordAttempt(ctx, k, now); err != nil {
			s.logger().Error("record login failure", "key", k, "err", err)
		}
	}
	return cause
}

func (s *AuthService) clearFailures(ctx context.Context, keys []string) {
	if s.Throttle == nil || !s.ClearOnSuccess {
		return
	}
	for _, k := range keys {
		if err := s.Throttle.Reset(ctx, k); err != nil {
			s.logger().Error("reset login failures", "key", k, "err", err)
		}
	}
}

// Login checks credentials. Once a client IP or an email has reached the
// failure threshold, every attempt returns domain.ErrLoginBlocked without
// looking at the password.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (domain.User, string, error) {
	email := NormalizeEmail(req.Email)
	keys := throttleKeys(req.IP, email)

	if err := s.checkBlocked(ctx, keys); err != nil {
		return domain.User{}, "", err
	}

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			auth.BurnVerify(req.Password)
			return domain.User{}, "", s.recordFailure(ctx, keys, domain.ErrInvalidCredentials)
		}
		return domain.User{}, "", err
	}

	ok, err := auth.VerifyPassword(u.PasswordHash, req.Password)
	if err != nil {
		return domain.User{}, "", err
	}
	if !ok {
		return domain.User{}, "", s.recordFailure(ctx, keys, domain.ErrInvalidCredentials)
	}
	if req.AdminOnly && !s.IsAdmin(u.User) {
		return domain.User{}, "", s.recordFailure(ctx, keys, domain.ErrInvalidCredentials)
	}
	if u.Status == domain.UserStatusDisabled {
		return domain.User{}, "", domain.ErrUserDisabled
	}

	s.clearFailures(ctx, keys)
	return s.startSession(ctx, u.User, req.IP, req.UserAgent)
}

// LoginWithIDToken signs an allow-listed admin in with a Google or Apple ID
// token, creating the admin account on first use.
func (s *AuthService) LoginWithIDToken(ctx context.Context, provider, token, ip, userAgent string) (domain.User, string, error) {
	keys := throttleKeys(ip, "")
	if err := s.checkBlocked(ctx, keys); err != nil {
		return domain.User{}, "", err
	}
	if s.VerifyIDToken == nil {
		return domain.User{}, "", domain.ErrForbidden
	}

	claims, err := s.VerifyIDToken(ctx, provider, token)
	if err != nil {
		s.logger().Warn("id token rejected", "provider", provider, "err", err)
		return domain.User{}, "", s.recordFailure(ctx, keys, domain.ErrInvalidCredentials)
	}
	email := NormalizeEmail(claims.Email)
	if email == "" || !s.adminEmail(email) {
		return domain.User{}, "", s.recordFailure(ctx, keys, domain.ErrForbidden)
	}

	u, err := s.Users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		created, err := s.createAdmin(ctx, email, "Administration", "")
		if err != nil {
			return domain.User{}, "", err
		}
		u = domain.UserWithPassword{User: created}
	default:
		return domain.User{}, "", err
	}
	if u.Status == domain.UserStatusDisabled {
		return domain.User{}, "", domain.ErrUserDisabled
	}

	s.clearFailures(ctx, keys)
	return s.startSession(ctx, u.User, ip, userAgent)
}

func (s *AuthService) startSession(ctx context.Context, u domain.User, ip, userAgent string) (domain.User, string, error) {
	now := s.now()
	sessID, err := s.Sessions.CreateSession(ctx, u.ID, now.Add(s.SessionTTL), ip, userAgent)
	if err != nil {
		return domain.User{}, "", err
	}
	if err := s.Users.SetLastLogin(ctx, u.ID, now); err != nil {
		s.logger().Warn("set last login", "user_id", u.ID, "err", err)
	}
	return u, sessID, nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist.
// An existing account is left untouched.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, companyName, password string) (domain.User, bool, error) {
	email = NormalizeEmail(email)
	if u, err := s.Users.GetUserByEmail(ctx, email); err == nil {
		return u.User, false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, false, err
	}
	u, err := s.createAdmin(ctx, email, companyName, password)
	if err != nil {
		return domain.User{}, false, err
	}
	return u, true, nil
}

// createAdmin stores an admin account. An empty password gets a random one
// nobody knows, so only ID-token sign-in works for that account.
func (s *AuthService) createAdmin(ctx context.Context, email, companyName, password string) (domain.User, error) {
	if password == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return domain.User{}, err
		}
		password = base64.RawURLEncoding.EncodeToString(buf)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	return s.Users.CreateUser(ctx, email, companyName, hash, domain.UserRoleAdmin)
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.Sessions.RevokeSession(ctx, sessionID, s.now())
}

func (s *AuthService) GetUserForSession(ctx context.Context, sessionID string) (domain.User, error) {
	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}

	u, err := s.Users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	if u.Status == domain.UserStatusDisabled {
		return domain.User{}, domain.ErrForbidden
	}

	return u, nil
}

// GetAdminForSession is GetUserForSession restricted to admins.
func (s *AuthService) GetAdminForSession(ctx context.Context, sessionID string) (domain.User, error) {
	u, err := s.GetUserForSession(ctx, sessionID)
	if err != nil {
		return domain.User{}, err
	}
	if !s.IsAdmin(u) {
		return domain.User{}, domain.ErrForbidden
	}
	return u, nil
}
