package models

import (
	"time"
)

type JobKind string

const (
	KindDownload JobKind = "download"
	KindEncode   JobKind = "encode"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusExpired    JobStatus = "expired"
)

// IsTerminal reports whether a job in this status will never be picked up
// again without an explicit retry.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired:
		return true
	}
	return false
}

// GuestOwner is the reserved owner id for unauthenticated callers. It is not
// a valid user id, so guest jobs can never collide with an account.
const GuestOwner = "guest"

// Descriptor holds the kind-specific job parameters. Exactly one set of
// fields is populated depending on the kind.
type Descriptor struct {
	// download
	SourceURL  string `json:"source_url,omitempty"`
	StartTime  int    `json:"start_time,omitempty"`
	EndTime    int    `json:"end_time,omitempty"`
	Format     string `json:"format,omitempty"`
	Resolution string `json:"resolution,omitempty"`

	// encode
	InputKey      string  `json:"input_key,omitempty"`
	Codec         string  `json:"codec,omitempty"`
	QualityPreset string  `json:"quality_preset,omitempty"`
	Duration      float64 `json:"duration,omitempty"`
}

type Job struct {
	ID           string
	Owner        string
	Kind         JobKind
	Status       JobStatus
	Descriptor   Descriptor
	ResultKey    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    *time.Time
}
