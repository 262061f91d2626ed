package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/apierr"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/authz"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/logger"
	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/models"
)

type captured struct {
	method string
	path   string
	header http.Header
	body   []byte
}

func server(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method, got.path, got.header = r.Method, r.URL.Path, r.Header.Clone()
		got.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func newClient(t *testing.T, srv *httptest.Server, devSub string) *Client {
	t.Helper()
	c, err := New(srv.URL+"/", authz.NewAccessor(authz.StaticToken("id-token"), devSub), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadBase(t *testing.T) {
	for _, base := range []string{"", "   ", "not a url", "ftp://example.com", "/claims", "https://api.example.com/prod?stage=1", "https://api.example.com/prod#x"} {
		_, err := New(base, authz.NewAccessor(authz.StaticToken("t"), ""))
		assert.ErrorIs(t, err, apierr.ErrMisconfigured, base)
	}
}

func TestListClaimsEnvelope(t *testing.T) {
	srv, got := server(t, http.StatusOK, `{"user_id":"user-1","items":[
		{"ClaimID":"01A","UserID":"user-1","Filename":"a.txt","S3Key":"user/user-1/01A.txt","Tags":["x"],"Client":"Acme","Status":"COMPLETE","UploadedAt":"2026-10-01T10:00:00Z","SizeBytes":10}
	]}`)
	c := newClient(t, srv, "")

	out, err := c.ListClaims(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/claims", got.path)
	assert.Equal(t, "Bearer id-token", got.header.Get("Authorization"))
	assert.Empty(t, got.header.Get("x-user-sub"))
	assert.NotEmpty(t, got.header.Get("X-Request-ID"))
	assert.Empty(t, got.header.Get("Content-Type"))

	assert.Equal(t, "user-1", out.UserID)
	require.Len(t, out.Items, 1)
	assert.Equal(t, models.StatusComplete, out.Items[0].Status)
	assert.EqualValues(t, 10, out.Items[0].SizeBytes)
	assert.Equal(t, c.BaseURL(), srv.URL)
}

func TestListClaimsShapes(t *testing.T) {
	cases := map[string]int{
		`[{"ClaimID":"1"},{"ClaimID":"2"}]`: 2,
		`{"user_id":"u","items":null}`:      0,
		`{"user_id":"u"}`:                   0,
		`[]`:                                0,
	}
	for reply, n := range cases {
		srv, _ := server(t, http.StatusOK, reply)
		out, err := newClient(t, srv, "").ListClaims(context.Background())
		require.NoError(t, err, reply)
		assert.NotNil(t, out.Items, reply)
		assert.Len(t, out.Items, n, reply)
	}
}

func TestRequestIDFromContext(t *testing.T) {
	srv, got := server(t, http.StatusOK, `[]`)
	ctx := logger.WithRequestID(context.Background(), "req-123")
	_, err := newClient(t, srv, "").ListClaims(ctx)
	require.NoError(t, err)
	assert.Equal(t, "req-123", got.header.Get("X-Request-ID"))
}

func TestDevUserHeader(t *testing.T) {
	srv, got := server(t, http.StatusOK, `[]`)
	_, err := newClient(t, srv, "dev-user").ListClaims(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev-user", got.header.Get("x-user-sub"))
}

func TestPresignDefaults(t *testing.T) {
	srv, got := server(t, http.StatusOK, `{
		"claim_id":"01C","s3_key":"user/u/01C.txt","presigned_url":"https://bucket.example/u/01C.txt?sig=1",
		"expires_in":300,"content_type":"text/plain",
		"upload_headers":{"Content-Type":"text/plain","x-amz-server-side-encryption":"aws:kms"}}`)
	c := newClient(t, srv, "")

	out, err := c.Presign(context.Background(), PresignRequest{Filename: "claim.txt", Client: "Acme"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/claims/presign", got.path)
	assert.Equal(t, "application/json", got.header.Get("Content-Type"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(got.body, &sent))
	assert.Equal(t, map[string]any{
		"filename":     "claim.txt",
		"tags":         []any{},
		"client":       "Acme",
		"content_type": "text/plain",
	}, sent)

	assert.Equal(t, "01C", out.ClaimID)
	assert.Equal(t, 300, out.ExpiresIn)
	assert.Equal(t, "aws:kms", out.UploadHeaders["x-amz-server-side-encryption"])
}

func TestBackendErrors(t *testing.T) {
	cases := []struct {
		status int
		reply  string
		want   string
	}{
		{http.StatusUnauthorized, `{"message":"token expired"}`, "token expired"},
		{http.StatusBadRequest, `{"error":"filename must end with .txt"}`, "filename must end with .txt"},
		{http.StatusInternalServerError, `oops`, "HTTP 500"},
		{http.StatusBadGateway, `{"message":""}`, "HTTP 502"},
	}
	for _, tc := range cases {
		srv, _ := server(t, tc.status, tc.reply)
		_, err := newClient(t, srv, "").ListClaims(context.Background())
		var be *apierr.BackendError
		require.True(t, errors.As(err, &be), tc.reply)
		assert.Equal(t, tc.status, be.StatusCode)
		assert.Equal(t, tc.want, be.Message)
		assert.Equal(t, tc.want, apierr.Message(err))
	}
}

func TestMalformedSuccessBody(t *testing.T) {
	srv, _ := server(t, http.StatusOK, `<!doctype html><title>SPA</title>`)
	_, err := newClient(t, srv, "").ListClaims(context.Background())
	assert.ErrorIs(t, err, apierr.ErrMalformedResponse)
}

func TestUnauthenticatedMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, authz.NewAccessor(authz.StaticToken(""), ""), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.ListClaims(context.Background())
	assert.ErrorIs(t, err, apierr.ErrUnauthenticated)
	_, err = c.Presign(context.Background(), PresignRequest{Filename: "a.txt", Client: "Acme"})
	assert.ErrorIs(t, err, apierr.ErrUnauthenticated)
	assert.Zero(t, hits.Load())
}

func TestTransportError(t *testing.T) {
	srv, _ := server(t, http.StatusOK, `[]`)
	c := newClient(t, srv, "")
	srv.Close()

	_, err := c.ListClaims(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET /claims")
}
