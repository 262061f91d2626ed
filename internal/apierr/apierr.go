// Package apierr defines the error taxonomy shared by the claim client.
package apierr

import (
	"errors"
	"strconv"
	"strings"
)

// Sentinel errors. Callers compare with errors.Is.
var (
	// ErrMisconfigured is returned when the backend base URL is missing or malformed.
	ErrMisconfigured = errors.New("client misconfigured")

	// ErrUnauthenticated is returned when no valid identity session exists.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrMalformedResponse is returned when a 2xx response body is not valid JSON.
	ErrMalformedResponse = errors.New("unexpected non-JSON response from API")

	// ErrBusy is returned when an upload is submitted while another is in flight.
	ErrBusy = errors.New("upload already in progress")

	// ErrAuthorizationExpired is returned when a presigned URL outlived its validity window.
	ErrAuthorizationExpired = errors.New("upload authorization expired")
)

// ValidationError describes bad local input. No network I/O happens after one.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Is reports true for ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// BackendError is a non-2xx answer from the claims API.
type BackendError struct {
	StatusCode int
	Message    string
}

// Error returns the backend message verbatim.
func (e *BackendError) Error() string { return e.Message }

// TransferError is a failed direct-to-storage PUT. StatusCode is zero when
// the request never reached storage.
type TransferError struct {
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return "storage upload failed: " + e.Err.Error()
	}
	return "storage upload failed: " + strconv.Itoa(e.StatusCode)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Message converts err into the text shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	var te *TransferError
	if errors.As(err, &te) {
		return te.Error()
	}
	switch {
	case errors.Is(err, ErrMalformedResponse):
		return ErrMalformedResponse.Error() + " (check API base URL)"
	case errors.Is(err, ErrUnauthenticated):
		return "Not authenticated (no ID token)"
	case errors.Is(err, ErrMisconfigured):
		detail := strings.Replace(err.Error(), ErrMisconfigured.Error()+": ", "", 1)
		if detail == ErrMisconfigured.Error() {
			return "Client not configured"
		}
		return "Client not configured: " + detail
	}
	return err.Error()
}
