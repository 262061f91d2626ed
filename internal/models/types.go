// Package models defines the claim records mirrored from the backend.
package models

import "time"

// ClaimStatus represents the status of an insurance claim.
type ClaimStatus string

// Possible values for ClaimStatus
const (
	StatusUploading ClaimStatus = "UPLOADING"
	StatusComplete  ClaimStatus = "COMPLETE"
	StatusFailed    ClaimStatus = "FAILED"
)

// StatusAll is the filter value that matches every status.
const StatusAll = "all"

// Claim is a backend-owned claim record. The list endpoint encodes it with
// its Go field names, so the JSON keys are spelled out here to match.
type Claim struct {
	ClaimID    string      `json:"ClaimID"`
	UserID     string      `json:"UserID"`
	Filename   string      `json:"Filename"`
	S3Key      string      `json:"S3Key"`
	Tags       []string    `json:"Tags"`
	Client     string      `json:"Client"`
	Status     ClaimStatus `json:"Status"`
	UploadedAt string      `json:"UploadedAt"` // ISO8601; empty until the indexer finalizes
	SizeBytes  int64       `json:"SizeBytes"`
	ETag       string      `json:"ETag"`
}

// UploadedTime parses UploadedAt. ok is false while the claim has not been finalized.
func (c Claim) UploadedTime() (t time.Time, ok bool) {
	if c.UploadedAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, c.UploadedAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
