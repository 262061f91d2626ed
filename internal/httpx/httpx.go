// Package httpx applies the client's response handling policy to backend replies.
package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/apierr"
)

// maxExcerpt bounds how much of an unparsable body ends up in an error.
const maxExcerpt = 120

// OK reports whether status is in the 2xx range.
func OK(status int) bool { return status >= 200 && status < 300 }

// Decode reads the whole body, then either decodes it into out (2xx) or
// turns it into a *apierr.BackendError. A 2xx body that is not JSON yields
// apierr.ErrMalformedResponse.
func Decode(resp *http.Response, out any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if !OK(resp.StatusCode) {
		return &apierr.BackendError{StatusCode: resp.StatusCode, Message: ErrorMessage(resp.StatusCode, body)}
	}
	if out == nil {
		out = new(json.RawMessage)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: status %d, body %q", apierr.ErrMalformedResponse, resp.StatusCode, excerpt(body))
	}
	return nil
}

// ErrorMessage extracts a human readable message from an error body,
// checking "message" then "error", falling back to "HTTP <status>".
func ErrorMessage(status int, body []byte) string {
	var j struct {
		Message any `json:"message"`
		Error   any `json:"error"`
	}
	if json.Unmarshal(body, &j) == nil {
		if s := stringIf(j.Message); s != "" {
			return s
		}
		if s := stringIf(j.Error); s != "" {
			return s
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

// stringIf returns v when it is a non-empty string.
func stringIf(v any) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return ""
}

func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxExcerpt {
		s = s[:maxExcerpt] + "..."
	}
	return s
}
