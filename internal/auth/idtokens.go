package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendrickPhan/go-verify-apple-id-token/validator"
	"google.golang.org/api/idtoken"
)

const (
	ProviderGoogle = "google"
	ProviderApple  = "apple"
)

var ErrUnknownProvider = errors.New("unknown identity provider")

type ExternalTokenClaims struct {
	Provider string
	Issuer   string
	Subject  string
	Email    string
}

// IDTokenVerifier checks ID tokens issued to the admin panel's OAuth clients.
// A provider with an empty audience is disabled.
type IDTokenVerifier struct {
	GoogleClientID string
	AppleServiceID string
}

func (v IDTokenVerifier) Enabled(provider string) bool {
	switch provider {
	case ProviderGoogle:
		return strings.TrimSpace(v.GoogleClientID) != ""
	case ProviderApple:
		return strings.TrimSpace(v.AppleServiceID) != ""
	default:
		return false
	}
}

func (v IDTokenVerifier) Verify(ctx context.Context, provider, token string) (*ExternalTokenClaims, error) {
	switch provider {
	case ProviderGoogle:
		return VerifyGoogleIDToken(ctx, token, v.GoogleClientID)
	case ProviderApple:
		return VerifyAppleIDToken(ctx, token, v.AppleServiceID)
	default:
		return nil, ErrUnknownProvider
	}
}

func VerifyGoogleIDToken(ctx context.Context, tokenString, expectedAud string) (*ExternalTokenClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, errors.New("missing id token")
	}
	if strings.TrimSpace(expectedAud) == "" {
		return nil, errors.New("missing google client id")
	}

	payload, err := idtoken.Validate(ctx, tokenString, expectedAud)
	if err != nil {
		return nil, err
	}
	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", payload.Issuer)
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return nil, errors.New("google email not verified")
	}

	email, _ := payload.Claims["email"].(string)
	return &ExternalTokenClaims{
		Provider: ProviderGoogle,
		Issuer:   payload.Issuer,
		Subject:  payload.Subject,
		Email:    strings.TrimSpace(strings.ToLower(email)),
	}, nil
}

func VerifyAppleIDToken(ctx context.Context, tokenString, expectedAud string) (*ExternalTokenClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, errors.New("missing id token")
	}
	if strings.TrimSpace(expectedAud) == "" {
		return nil, errors.New("missing apple service id")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := validator.NewClient()
	idToken, err := client.VerifyIdToken(expectedAud, tokenString)
	if err != nil {
		return nil, err
	}
	if idToken.Iss != "https://appleid.apple.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", idToken.Iss)
	}

	return &ExternalTokenClaims{
		Provider: ProviderApple,
		Issuer:   idToken.Iss,
		Subject:  idToken.Sub,
		Email:    strings.TrimSpace(strings.ToLower(idToken.Email)),
	}, nil
}
