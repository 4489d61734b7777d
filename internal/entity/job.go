package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// ErrInvalidTransition is returned when a status update would move a job
// backwards or touch a record that is already terminal.
var ErrInvalidTransition = errors.New("invalid status transition")

func (s JobStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a record in status s may be patched into
// status next. An empty s means the record does not exist yet.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if !next.Valid() {
		return false
	}
	switch s {
	case "", StatusQueued:
		return true
	case StatusProcessing:
		return next != StatusQueued
	default:
		return false
	}
}

// Accepts reports whether patch p may be merged into a record in status s.
// Terminal records are immutable.
func (s JobStatus) Accepts(p StatusPatch) bool {
	if s.Terminal() {
		return false
	}
	if p.Status != nil {
		return s.CanTransition(*p.Status)
	}
	return true
}

type Strategy string

const (
	StrategyRapidAPI      Strategy = "rapid_api"
	StrategyGoogleCrawler Strategy = "google_crawler"
)

func (s Strategy) Valid() bool {
	return s == StrategyRapidAPI || s == StrategyGoogleCrawler
}

// JobDescriptor is the immutable unit of work carried by the queue.
type JobDescriptor struct {
	JobID           string    `json:"job_id"`
	RequirementText string    `json:"requirement_text"`
	Strategy        Strategy  `json:"search_strategy"`
	Limit           int       `json:"limit"`
	Fingerprint     string    `json:"fingerprint"`
	EnqueuedAt      time.Time `json:"enqueued_at"`
}

// StatusRecord is the persisted view of a job's lifecycle.
type StatusRecord struct {
	JobID            string     `json:"job_id"`
	Status           JobStatus  `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Progress         *int       `json:"progress,omitempty"`
	Message          string     `json:"message,omitempty"`
	Error            string     `json:"error,omitempty"`
	TotalCandidates  *int       `json:"total_candidates,omitempty"`
	PassedCandidates *int       `json:"passed_candidates,omitempty"`
	SearchMethod     Strategy   `json:"search_method,omitempty"`
	Fingerprint      string     `json:"fingerprint,omitempty"`
}

// StatusPatch is a partial update. Only non-nil fields are merged into the
// stored record; everything else is left as it was.
type StatusPatch struct {
	Status           *JobStatus `json:"status,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Progress         *int       `json:"progress,omitempty"`
	Message          *string    `json:"message,omitempty"`
	Error            *string    `json:"error,omitempty"`
	TotalCandidates  *int       `json:"total_candidates,omitempty"`
	PassedCandidates *int       `json:"passed_candidates,omitempty"`
}

// Fields returns the patch as top-level JSON fields ready for a shallow merge.
func (p StatusPatch) Fields() (map[string]json.RawMessage, error) {
	if p.Status != nil && !p.Status.Valid() {
		return nil, fmt.Errorf("unknown status %q", *p.Status)
	}
	if p.Progress != nil && (*p.Progress < 0 || *p.Progress > 100) {
		return nil, fmt.Errorf("progress out of range: %d", *p.Progress)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	out := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ptr is a small helper for building patches.
func Ptr[T any](v T) *T { return &v }
