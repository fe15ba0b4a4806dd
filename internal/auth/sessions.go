package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

const (
	AdminCookieName    = "newsletter_admin"
	MerchantCookieName = "newsletter_merchant"
	FlashCookieName    = "newsletter_flash"
)

// CookieCodec signs cookie values with HMAC-SHA256. An empty secret leaves
// values unsigned, which is only accepted outside production.
type CookieCodec struct {
	secret []byte
}

func NewCookieCodec(secret []byte) CookieCodec {
	secretCopy := make([]byte, len(secret))
	copy(secretCopy, secret)
	return CookieCodec{secret: secretCopy}
}

func (c CookieCodec) sign(value string) string {
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (c CookieCodec) verify(value, sigB64 string) bool {
	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil || len(sig) != sha256.Size {
		return false
	}
	mac := hmac.New(sha256.New, c.secret)
	_, _ = mac.Write([]byte(value))
	return subtle.ConstantTimeCompare(sig, mac.Sum(nil)) == 1
}

func (c CookieCodec) EncodeSessionID(sessionID string) string {
	if len(c.secret) == 0 {
		return sessionID
	}
	return sessionID + "." + c.sign(sessionID)
}

func (c CookieCodec) DecodeSessionID(cookieValue string) (string, bool) {
	if len(c.secret) == 0 {
		return cookieValue, cookieValue != ""
	}

	id, sigB64, ok := strings.Cut(cookieValue, ".")
	if !ok || id == "" || sigB64 == "" {
		return "", false
	}
	if !c.verify(id, sigB64) {
		return "", false
	}
	return id, true
}

// EncodeFlash packs a one-shot message. The text is base64 encoded so it
// survives cookie value restrictions.
func (c CookieCodec) EncodeFlash(kind, message string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(kind + "\n" + message))
	if len(c.secret) == 0 {
		return payload
	}
	return payload + "." + c.sign(payload)
}

func (c CookieCodec) DecodeFlash(cookieValue string) (kind, message string, ok bool) {
	payload := cookieValue
	if len(c.secret) > 0 {
		p, sigB64, found := strings.Cut(cookieValue, ".")
		if !found || !c.verify(p, sigB64) {
			return "", "", false
		}
		payload = p
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", "", false
	}
	kind, message, ok = strings.Cut(string(raw), "\n")
	return kind, message, ok
}

func SetSessionCookie(w http.ResponseWriter, name, cookieValue string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    cookieValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	})
}

func ClearSessionCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// SetFlash stores a message shown on the next rendered page.
func SetFlash(w http.ResponseWriter, codec CookieCodec, kind, message string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    codec.EncodeFlash(kind, message),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

// PopFlash reads and clears the pending flash message, if any.
func PopFlash(w http.ResponseWriter, r *http.Request, codec CookieCodec, secure bool) (kind, message string, ok bool) {
	c, err := r.Cookie(FlashCookieName)
	if err != nil || c.Value == "" {
		return "", "", false
	}
	ClearSessionCookie(w, FlashCookieName, secure)
	return codec.DecodeFlash(c.Value)
}
