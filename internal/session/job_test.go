package session

import (
	"errors"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestJobStatus_CanTransition(t *testing.T) {
	assert := assert_.New(t)
	all := []JobStatus{JobStatusPending, JobStatusDownloading, JobStatusCompleted, JobStatusError, JobStatusErrorInfoFetch}
	allowed := map[[2]JobStatus]bool{
		{JobStatusPending, JobStatusDownloading}:    true,
		{JobStatusPending, JobStatusError}:          true,
		{JobStatusDownloading, JobStatusCompleted}:  true,
		{JobStatusDownloading, JobStatusError}:      true,
		{JobStatusError, JobStatusPending}:          true,
		{JobStatusErrorInfoFetch, JobStatusPending}: true,
		{JobStatusCompleted, JobStatusPending}:      true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(allowed[[2]JobStatus{from, to}], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestJobStatus_IsSkippedByBatch(t *testing.T) {
	assert := assert_.New(t)
	assert.False(JobStatusPending.IsSkippedByBatch())
	assert.False(JobStatusDownloading.IsSkippedByBatch())
	assert.True(JobStatusCompleted.IsSkippedByBatch())
	assert.True(JobStatusError.IsSkippedByBatch())
	assert.True(JobStatusErrorInfoFetch.IsSkippedByBatch())
}

func TestJobState_transition(t *testing.T) {
	assert := assert_.New(t)
	j := JobState{JobRecord: JobRecord{Status: JobStatusPending}}

	assert.ErrorIs(j.transition(JobStatusCompleted), ErrInvalidTransition)
	assert.Equal(JobStatusPending, j.Status)

	assert.NoError(j.transition(JobStatusDownloading))
	j.DownloadedBytes = 10
	assert.NoError(j.fail(errors.New("boom")))
	assert.Equal(JobStatusError, j.Status)
	assert.Equal("boom", j.Error)
	assert.Zero(j.DownloadedBytes)

	assert.NoError(j.transition(JobStatusPending))
	assert.Empty(j.Error)
}

func TestIsProgressOnly(t *testing.T) {
	assert := assert_.New(t)
	old := JobState{JobRecord: JobRecord{Status: JobStatusDownloading}}
	progressed := old
	progressed.DownloadedBytes = 100
	finished := progressed
	finished.Status = JobStatusCompleted

	assert.True(IsProgressOnly(JobUpdated{jobEvent{"a"}, old, progressed}))
	assert.False(IsProgressOnly(JobUpdated{jobEvent{"a"}, progressed, finished}))
	assert.False(IsProgressOnly(JobUpdated{jobEvent{"a"}, old, old}))
	assert.False(IsProgressOnly(JobsCleared{}))
}
