package s3io

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Common S3 key patterns and helper functions.
const (
	ContentTypeText = "text/plain"
)

// ParseKey extracts userID and claimID from the S3 key path
// (user/<sub>/<claimID>.txt).
func ParseKey(key string) (userID, claimID string, ok bool) {
	if strings.ToLower(filepath.Ext(key)) != ".txt" {
		return "", "", false
	}
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != "user" || parts[1] == "" {
		return "", "", false
	}
	claimID = strings.TrimSuffix(parts[2], filepath.Ext(parts[2]))
	if claimID == "" {
		return "", "", false
	}
	return parts[1], claimID, true
}

// CheckKey reports whether key is the storage key the backend allocates for claimID.
func CheckKey(key, claimID string) error {
	_, cid, ok := ParseKey(key)
	if !ok {
		return fmt.Errorf("unexpected key shape %q", key)
	}
	if claimID != "" && cid != claimID {
		return fmt.Errorf("key %q does not belong to claim %s", key, claimID)
	}
	return nil
}

// UploadHeaders returns the headers the client must send on PUT. The
// backend's list is used verbatim; when it sent none, only Content-Type is
// set.
func UploadHeaders(required map[string]string, contentType string) map[string]string {
	if len(required) > 0 {
		out := make(map[string]string, len(required))
		for k, v := range required {
			out[k] = v
		}
		return out
	}
	if contentType == "" {
		contentType = ContentTypeText
	}
	return map[string]string{"Content-Type": contentType}
}
