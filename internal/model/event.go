package model

import "time"

// EventType names a job lifecycle event.
type EventType string

const (
	EventEvaluationStarted EventType = "evaluation_started"
	EventEvaluationDone    EventType = "evaluation_done"
)

// Event is broadcast on the organization's channel so UIs can refresh.
// Counts are only set on evaluation_done.
type Event struct {
	Type               EventType `json:"type"`
	JobID              string    `json:"job_id"`
	OrganizationID     string    `json:"org_id"`
	AffectedProfileIDs []string  `json:"affected_profile_ids"`
	UpsertedCount      *int64    `json:"upserted_count,omitempty"`
	PrunedCount        *int64    `json:"pruned_count,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// StartedEvent builds the evaluation_started event for a claimed job.
func StartedEvent(job *Job, at time.Time) Event {
	return Event{
		Type:               EventEvaluationStarted,
		JobID:              job.ID,
		OrganizationID:     job.OrganizationID,
		AffectedProfileIDs: job.AffectedProfileIDs,
		Timestamp:          at,
	}
}

// DoneEvent builds the evaluation_done event for a completed job.
func DoneEvent(job *Job, upserted, pruned int64, at time.Time) Event {
	return Event{
		Type:               EventEvaluationDone,
		JobID:              job.ID,
		OrganizationID:     job.OrganizationID,
		AffectedProfileIDs: job.AffectedProfileIDs,
		UpsertedCount:      &upserted,
		PrunedCount:        &pruned,
		Timestamp:          at,
	}
}
