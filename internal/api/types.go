// Package api contains the claims API wire types and the request client.
package api

import (
	"bytes"
	"encoding/json"

	"github.com/kylejryan/insurance-claim-upload-portal/client/internal/models"
)

// PresignRequest represents the request payload for generating a presigned S3 upload URL.
type PresignRequest struct {
	Filename    string   `json:"filename"`
	Tags        []string `json:"tags"`
	Client      string   `json:"client"`
	ContentType string   `json:"content_type"`
}

// PresignResponse is an upload authorization: a single-use presigned PUT
// target plus the headers that must accompany it.
type PresignResponse struct {
	ClaimID       string            `json:"claim_id"`
	S3Key         string            `json:"s3_key"`
	PresignedURL  string            `json:"presigned_url"`
	ExpiresIn     int               `json:"expires_in"`
	ContentType   string            `json:"content_type"`
	UploadHeaders map[string]string `json:"upload_headers"`
}

// ListResponse is the claim list for the calling user.
type ListResponse struct {
	UserID string         `json:"user_id"`
	Items  []models.Claim `json:"items"`
}

// UnmarshalJSON accepts both the {user_id, items} envelope and a bare array
// of claims, which older deployments of the list function return.
func (l *ListResponse) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []models.Claim
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*l = ListResponse{Items: items}
	} else {
		type envelope ListResponse
		var e envelope
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return err
		}
		*l = ListResponse(e)
	}
	if l.Items == nil {
		l.Items = []models.Claim{}
	}
	return nil
}
