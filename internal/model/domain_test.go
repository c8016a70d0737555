package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnProfile(t *testing.T) {
	t.Parallel()

	profiles := []Profile{
		{ID: "partner-1"},
		{ID: "own", IsOwnProfile: true},
		{ID: "partner-2"},
	}
	own := OwnProfile(profiles)
	require.NotNil(t, own)
	assert.Equal(t, "own", own.ID)

	assert.Nil(t, OwnProfile(profiles[:1]))
	assert.Nil(t, OwnProfile(nil))
}

func TestCombinations(t *testing.T) {
	t.Parallel()

	solo := Solo("p1")
	assert.True(t, solo.IsSolo())
	assert.Empty(t, solo.PartnerProfileID)

	lp := LeadPartner("own", "partner")
	assert.Equal(t, CombinationLeadPartner, lp.Type)
	assert.False(t, lp.IsSolo())

	pl := PartnerLed("partner", "own")
	assert.Equal(t, CombinationPartnerLed, pl.Type)
	assert.Equal(t, "own", pl.PartnerProfileID)

	assert.True(t, CombinationSolo.Valid())
	assert.False(t, CombinationType("trio").Valid())
}

func TestJobStatus_Valid(t *testing.T) {
	t.Parallel()

	for _, s := range []JobStatus{JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusDeadLetter} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, JobStatus("failed").Valid())
	assert.False(t, JobStatus("").Valid())
}

func TestJob_RetriesExhausted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		retries, max int
		want         bool
	}{
		{0, 5, false},
		{5, 5, false},
		{6, 5, true},
		{1, 0, true},
	}
	for _, tt := range tests {
		j := Job{RetryCount: tt.retries, MaxRetries: tt.max}
		assert.Equal(t, tt.want, j.RetriesExhausted(), "retry_count=%d max_retries=%d", tt.retries, tt.max)
	}
}

func TestEvents(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	job := &Job{ID: "j1", OrganizationID: "org", AffectedProfileIDs: []string{"p1", "p2"}}

	started := StartedEvent(job, at)
	data, err := json.Marshal(started)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"evaluation_started","job_id":"j1","org_id":"org","affected_profile_ids":["p1","p2"],"timestamp":"2026-05-04T10:00:00Z"}`, string(data))

	done := DoneEvent(job, 12, 3, at)
	assert.Equal(t, EventEvaluationDone, done.Type)
	require.NotNil(t, done.UpsertedCount)
	require.NotNil(t, done.PrunedCount)
	assert.Equal(t, int64(12), *done.UpsertedCount)
	assert.Equal(t, int64(3), *done.PrunedCount)
}

func TestEvaluation_Key(t *testing.T) {
	t.Parallel()

	ev := Evaluation{TenderID: "t", OrganizationID: "o", LeadProfileID: "p", AllMinimumRequirementsMet: true}
	assert.Equal(t, EvaluationKey{TenderID: "t", OrganizationID: "o", LeadProfileID: "p"}, ev.Key())
	assert.True(t, ev.Qualifies())
}
