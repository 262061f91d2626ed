package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/authz"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/config"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/httpx"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/logger"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/s3io"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the single chokepoint for calls to the claims API.
type Client struct {
	base string
	auth *authz.Accessor
	http Doer
	log  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(d Doer) Option { return func(c *Client) { c.http = d } }

// WithLogger sets the logger used for request logging.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

// New validates base and returns a client. An invalid base fails with
// apierr.ErrMisconfigured before any request is made.
func New(base string, auth *authz.Accessor, opts ...Option) (*Client, error) {
	b, err := config.ParseBaseURL(base)
	if err != nil {
		return nil, err
	}
	c := &Client{base: b, auth: auth, http: http.DefaultClient, log: logger.Discard()}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.base }

// Do sends method path with an optional JSON body and decodes the JSON
// answer into out.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	reqID := logger.RequestID(ctx)
	if reqID == "" {
		reqID = logger.NewRequestID()
		ctx = logger.WithRequestID(ctx, reqID)
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if err := c.auth.Authorize(ctx, req); err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.ErrorContext(ctx, "claims api request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	err = httpx.Decode(resp, out)
	c.log.DebugContext(ctx, "claims api request",
		"method", method,
		"path", path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if err != nil {
		c.log.WarnContext(ctx, "claims api error", "method", method, "path", path, "status_code", resp.StatusCode, "error", err)
	}
	return err
}

// ListClaims fetches every claim owned by the caller.
func (c *Client) ListClaims(ctx context.Context) (*ListResponse, error) {
	var out ListResponse
	if err := c.Do(ctx, http.MethodGet, "/claims", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Presign asks the backend for an upload authorization. ContentType
// defaults to text/plain.
func (c *Client) Presign(ctx context.Context, req PresignRequest) (*PresignResponse, error) {
	if req.ContentType == "" {
		req.ContentType = s3io.ContentTypeText
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}
	var out PresignResponse
	if err := c.Do(ctx, http.MethodPost, "/claims/presign", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
