// Package config loads configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/apierr"
)

// DefaultRefreshDelay is how long the client waits after a successful
// transfer before re-listing claims, giving the indexer time to finalize.
const DefaultRefreshDelay = 700 * time.Millisecond

// Env holds the configuration values for the client.
type Env struct {
	APIBaseURL          string // validated, no trailing slash
	Region              string
	CognitoClientID     string
	CognitoRefreshToken string
	IDToken             string
	DevUserSub          string
	RefreshDelay        time.Duration
	LogLevel            string
}

// UseCognito reports whether enough is configured to mint ID tokens from Cognito.
func (e Env) UseCognito() bool {
	return e.CognitoClientID != "" && e.CognitoRefreshToken != ""
}

// Load reads .env (when present) and the process environment.
func Load() (Env, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Env{}, fmt.Errorf("read .env: %w", err)
	}

	base, err := ParseBaseURL(os.Getenv("CLAIMS_API_BASE_URL"))
	if err != nil {
		return Env{}, err
	}
	delay, err := time.ParseDuration(get("REFRESH_DELAY", DefaultRefreshDelay.String()))
	if err != nil || delay < 0 {
		return Env{}, fmt.Errorf("%w: invalid REFRESH_DELAY", apierr.ErrMisconfigured)
	}

	return Env{
		APIBaseURL:          base,
		Region:              get("AWS_REGION", "us-east-1"),
		CognitoClientID:     strings.TrimSpace(os.Getenv("COGNITO_CLIENT_ID")),
		CognitoRefreshToken: strings.TrimSpace(os.Getenv("COGNITO_REFRESH_TOKEN")),
		IDToken:             strings.TrimSpace(os.Getenv("CLAIMS_ID_TOKEN")),
		DevUserSub:          strings.TrimSpace(os.Getenv("DEV_USER_SUB")),
		RefreshDelay:        delay,
		LogLevel:            get("LOG_LEVEL", "info"),
	}, nil
}

// MustLoad is Load that panics on error.
func MustLoad() Env {
	e, err := Load()
	if err != nil {
		panic(err)
	}
	return e
}

// ParseBaseURL validates the backend base URL and strips trailing slashes.
// Only absolute http(s) URLs with a host and no query or fragment are
// accepted.
func ParseBaseURL(raw string) (string, error) {
	base := strings.TrimSpace(raw)
	if base == "" {
		return "", fmt.Errorf("%w: missing CLAIMS_API_BASE_URL", apierr.ErrMisconfigured)
	}
	u, err := url.Parse(base)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: invalid CLAIMS_API_BASE_URL %q", apierr.ErrMisconfigured, base)
	}
	// Request paths are appended to the base, so it cannot carry a query or fragment.
	if u.RawQuery != "" || u.ForceQuery || u.Fragment != "" || u.RawFragment != "" {
		return "", fmt.Errorf("%w: CLAIMS_API_BASE_URL %q must not have a query or fragment", apierr.ErrMisconfigured, base)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// get returns the value of the environment variable k or def if not set.
func get(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
