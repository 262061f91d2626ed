// Package validate checks upload form input before anything leaves the machine.
package validate

import (
	"path/filepath"
	"strings"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/apierr"
)

// FilenameTxt checks that the filename has a .txt extension (case insensitive).
func FilenameTxt(fn string) error {
	if strings.ToLower(filepath.Ext(fn)) != ".txt" {
		return apierr.Invalid("file", "Only .txt files allowed")
	}
	return nil
}

// ClientOK checks that the client string is non-empty after trimming whitespace.
func ClientOK(c string) error {
	if strings.TrimSpace(c) == "" {
		return apierr.Invalid("client", "Client required")
	}
	return nil
}

// ParseTags splits a comma-separated tag string. Pieces are trimmed, empty
// ones dropped, order kept and duplicates left alone.
func ParseTags(csv string) []string {
	tags := make([]string, 0)
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
