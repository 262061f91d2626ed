package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/apierr"
)

// fakeBackend serves the claims API and the storage bucket from one server.
type fakeBackend struct {
	mu      sync.Mutex
	srv     *httptest.Server
	claims  []map[string]any
	stored  map[string]string
	headers http.Header
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{stored: map[string]string{}}
	b.claims = []map[string]any{
		{"ClaimID": "01OLD", "Filename": "old.txt", "Client": "Globex", "Tags": []string{"home"}, "Status": "COMPLETE", "UploadedAt": "2026-10-01T10:00:00Z"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /claims", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer id-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"token expired"}`)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"user_id": "user-1", "items": b.claims})
	})
	mux.HandleFunc("POST /claims/presign", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Filename string   `json:"filename"`
			Client   string   `json:"client"`
			Tags     []string `json:"tags"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.claims = append(b.claims, map[string]any{
			"ClaimID": "01NEW", "Filename": req.Filename, "Client": req.Client, "Tags": req.Tags, "Status": "UPLOADING",
		})
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"claim_id":       "01NEW",
			"s3_key":         "user/user-1/01NEW.txt",
			"presigned_url":  b.srv.URL + "/bucket/user/user-1/01NEW.txt?X-Amz-Signature=sig",
			"expires_in":     300,
			"content_type":   "text/plain",
			"upload_headers": map[string]string{"Content-Type": "text/plain", "x-amz-server-side-encryption": "aws:kms"},
		})
	})
	mux.HandleFunc("PUT /bucket/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.stored[r.URL.Path] = string(body)
		b.headers = r.Header.Clone()
		b.mu.Unlock()
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func setEnv(t *testing.T, base, token string) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("CLAIMS_API_BASE_URL", base)
	t.Setenv("CLAIMS_ID_TOKEN", token)
	t.Setenv("COGNITO_CLIENT_ID", "")
	t.Setenv("COGNITO_REFRESH_TOKEN", "")
	t.Setenv("DEV_USER_SUB", "")
	t.Setenv("REFRESH_DELAY", "1ms")
	t.Setenv("LOG_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUploadThenList(t *testing.T) {
	b := newFakeBackend(t)
	setEnv(t, b.srv.URL+"/", "id-token")

	path := filepath.Join(t.TempDir(), "crash.txt")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o600))

	out, err := run(t, "upload", path, "--client", "Acme Insurance", "--tags", "car accident, urgent")
	require.NoError(t, err)
	assert.Contains(t, out, "Upload complete")
	assert.Contains(t, out, "01NEW")
	assert.Contains(t, out, "crash.txt")
	assert.Contains(t, out, "2 shown, 2 total")

	assert.Equal(t, "0123456789", b.stored["/bucket/user/user-1/01NEW.txt"])
	assert.Equal(t, "aws:kms", b.headers.Get("x-amz-server-side-encryption"))

	out, err = run(t, "list", "--status", "UPLOADING", "--search", "ACME")
	require.NoError(t, err)
	assert.Contains(t, out, "crash.txt")
	assert.NotContains(t, out, "old.txt")
	assert.Contains(t, out, "1 shown, 2 total (1 complete, 1 uploading, 0 failed)")
}

func TestUploadRejectsNonTxt(t *testing.T) {
	b := newFakeBackend(t)
	setEnv(t, b.srv.URL, "id-token")

	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	_, err := run(t, "upload", path, "--client", "Acme")
	assert.ErrorIs(t, err, apierr.ErrValidation)
	assert.Len(t, b.claims, 1)
	assert.Empty(t, b.stored)
}

func TestPresignAndPut(t *testing.T) {
	b := newFakeBackend(t)
	setEnv(t, b.srv.URL, "id-token")

	out, err := run(t, "presign", "docs/claim.txt ", "--client", "Acme", "--tags", "a,b")
	require.NoError(t, err)
	b.mu.Lock()
	assert.Equal(t, "claim.txt", b.claims[len(b.claims)-1]["Filename"])
	b.mu.Unlock()
	var auth struct {
		PresignedURL string `json:"presigned_url"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &auth))
	require.NotEmpty(t, auth.PresignedURL)

	path := filepath.Join(t.TempDir(), "claim.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))
	out, err = run(t, "put", auth.PresignedURL, path, "-H", "Content-Type=text/plain")
	require.NoError(t, err)
	assert.Contains(t, out, "uploaded claim.txt (5 bytes)")
	assert.Equal(t, "hello", b.stored["/bucket/user/user-1/01NEW.txt"])
}

func TestListBackendError(t *testing.T) {
	b := newFakeBackend(t)
	setEnv(t, b.srv.URL, "stale-token")

	_, err := run(t, "list")
	require.Error(t, err)
	assert.Equal(t, "token expired", apierr.Message(err))
}

func TestMisconfigured(t *testing.T) {
	setEnv(t, "", "id-token")
	_, err := run(t, "list")
	assert.ErrorIs(t, err, apierr.ErrMisconfigured)
}

func TestUnauthenticated(t *testing.T) {
	b := newFakeBackend(t)
	setEnv(t, b.srv.URL, "")
	_, err := run(t, "list", "--json")
	assert.ErrorIs(t, err, apierr.ErrUnauthenticated)
}
