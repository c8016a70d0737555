package model

import "time"

// JobStatus represents the lifecycle state of an evaluation job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusRunning    JobStatus = "running"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusDeadLetter JobStatus = "dead_letter"
)

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusDeadLetter:
		return true
	}
	return false
}

// Job asks a worker to re-evaluate a set of profiles for an organization.
type Job struct {
	ID                 string    `json:"id"`
	OrganizationID     string    `json:"organization_id"`
	AffectedProfileIDs []string  `json:"affected_profile_ids"`
	Status             JobStatus `json:"status"`
	RetryCount         int       `json:"retry_count"`
	MaxRetries         int       `json:"max_retries"`
	RunNotBefore       time.Time `json:"run_not_before"`
	ErrorMessage       string    `json:"error_message,omitempty"`
	ErrorCode          string    `json:"error_code,omitempty"`

	// LeaseToken identifies the current claim; zero-valued when unclaimed.
	LeaseToken     string    `json:"lease_token,omitempty"`
	LeaseExpiresAt time.Time `json:"lease_expires_at,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RetriesExhausted reports whether the retry budget has been used up.
func (j *Job) RetriesExhausted() bool {
	return j.RetryCount > j.MaxRetries
}
