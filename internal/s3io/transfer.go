// Package s3io performs the direct-to-storage transfer against a presigned URL.
package s3io

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/apierr"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// PutRequest turns a presigned URL and its required headers into the
// request the storage backend expects.
func PutRequest(url string, headers map[string]string) *v4.PresignedHTTPRequest {
	h := make(http.Header, len(headers))
	for k, v := range headers {
		// Keys are kept as given; signature validation is strict about them.
		h[k] = []string{v}
	}
	return &v4.PresignedHTTPRequest{URL: url, Method: http.MethodPut, SignedHeader: h}
}

// TransferOption customizes a single Transfer.
type TransferOption func(*transferOptions)

type transferOptions struct {
	expires time.Time
	now     func() time.Time
}

// WithExpiry refuses to send once expires has passed. The check runs after
// the body is ready, right before the request goes out. now defaults to
// time.Now.
func WithExpiry(expires time.Time, now func() time.Time) TransferOption {
	return func(o *transferOptions) {
		o.expires = expires
		if now != nil {
			o.now = now
		}
	}
}

// Transfer uploads body to the presigned target with exactly the signed
// headers. size < 0 means unknown: the body is buffered so a Content-Length
// can be sent, since presigned PUTs reject chunked bodies. Any non-2xx
// answer is a *apierr.TransferError carrying the status code.
func Transfer(ctx context.Context, d Doer, p *v4.PresignedHTTPRequest, body io.Reader, size int64, opts ...TransferOption) error {
	o := transferOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if body == nil || size == 0 {
		body, size = http.NoBody, 0
	} else if size < 0 {
		b, err := io.ReadAll(body)
		if err != nil {
			return &apierr.TransferError{Err: fmt.Errorf("read file: %w", err)}
		}
		body, size = bytes.NewReader(b), int64(len(b))
		if size == 0 {
			body = http.NoBody
		}
	}

	method := p.Method
	if method == "" {
		method = http.MethodPut
	}
	req, err := http.NewRequestWithContext(ctx, method, p.URL, body)
	if err != nil {
		return &apierr.TransferError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.ContentLength = size
	if !o.expires.IsZero() && o.now().After(o.expires) {
		return &apierr.TransferError{Err: apierr.ErrAuthorizationExpired}
	}
	for k, vs := range p.SignedHeader {
		req.Header[k] = append([]string(nil), vs...)
	}
	if _, ok := req.Header["User-Agent"]; !ok {
		// An empty value keeps net/http from adding its default.
		req.Header["User-Agent"] = []string{""}
	}

	resp, err := d.Do(req)
	if err != nil {
		return &apierr.TransferError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apierr.TransferError{StatusCode: resp.StatusCode}
	}
	return nil
}
