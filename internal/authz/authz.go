// Package authz obtains the bearer credential attached to every backend call.
package authz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/apierr"
)

// devBypassHeader is honoured by the backend when DEV_BYPASS_AUTH is on.
const devBypassHeader = "x-user-sub"

// TokenSource is the identity provider boundary: it yields the current ID token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken is a TokenSource that always returns the same token. An empty
// StaticToken means there is no session.
type StaticToken string

// Token returns the token or ErrUnauthenticated when it is empty.
func (s StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", apierr.ErrUnauthenticated
	}
	return string(s), nil
}

// Accessor hands out a fresh token for each request. It never caches; any
// caching belongs to the TokenSource.
type Accessor struct {
	src    TokenSource
	devSub string
}

// NewAccessor wraps src. devSub, when set, is sent as the dev bypass header.
func NewAccessor(src TokenSource, devSub string) *Accessor {
	return &Accessor{src: src, devSub: strings.TrimSpace(devSub)}
}

// Token returns the current bearer token.
func (a *Accessor) Token(ctx context.Context) (string, error) {
	if a == nil || a.src == nil {
		return "", apierr.ErrUnauthenticated
	}
	tok, err := a.src.Token(ctx)
	if err != nil {
		if errors.Is(err, apierr.ErrUnauthenticated) {
			return "", err
		}
		return "", fmt.Errorf("get token: %w", err)
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", apierr.ErrUnauthenticated
	}
	return tok, nil
}

// Authorize sets the Authorization header (and the dev bypass header when
// configured) on req.
func (a *Accessor) Authorize(ctx context.Context, req *http.Request) error {
	tok, err := a.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	if a.devSub != "" {
		req.Header.Set(devBypassHeader, a.devSub)
	}
	return nil
}

// Subject extracts the "sub" claim from a JWT without verifying it. The
// backend's authorizer does the verification.
func Subject(token string) string {
	claims, err := unverifiedClaims(token)
	if err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}

// ExpiresAt returns the token's "exp" claim. ok is false when the token is
// not a JWT or carries no expiry.
func ExpiresAt(token string) (exp time.Time, ok bool) {
	claims, err := unverifiedClaims(token)
	if err != nil {
		return time.Time{}, false
	}
	nd, err := claims.GetExpirationTime()
	if err != nil || nd == nil {
		return time.Time{}, false
	}
	return nd.Time, true
}

func unverifiedClaims(token string) (jwt.MapClaims, error) {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[len("bearer "):])
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
