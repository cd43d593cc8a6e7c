package boltdb

import (
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanbriolat/video-harvester"
	"github.com/alanbriolat/video-harvester/generic"
	"github.com/alanbriolat/video-harvester/internal/session"
)

func TestDatabase(t *testing.T) {
	assert := assert_.New(t)
	path := filepath.Join(t.TempDir(), "state.db")

	db, err := New(path)
	require.NoError(t, err)
	jobs, err := db.ListJobs()
	assert.NoError(err)
	assert.Empty(jobs)

	option := video_harvester.FormatOption{FormatID: "22", Height: generic.Some(720), Combined: true}
	second := session.JobRecord{ID: session.NewJobID(), URL: "https://example.com/view_video?id=2", Sequence: 51, Status: session.JobStatusErrorInfoFetch, Error: "boom"}
	first := session.JobRecord{
		ID:       session.NewJobID(),
		URL:      "https://example.com/view_video?id=1",
		Title:    "My Video",
		Sequence: 50,
		Catalog:  &video_harvester.Catalog{Title: "My Video"},
		Formats:  []video_harvester.FormatOption{option},
		Chosen:   generic.Some(option),
		Quality:  "720p",
		Status:   session.JobStatusPending,
	}
	require.NoError(t, db.WriteJob(&second))
	require.NoError(t, db.WriteJob(&first))

	jobs, err = db.ListJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(first.ID, jobs[0].ID)
	assert.Equal(second.ID, jobs[1].ID)
	assert.Equal("22", jobs[0].Chosen.Unwrap().FormatID)
	assert.Equal(720, jobs[0].Formats[0].Height.Unwrap())
	assert.True(jobs[1].Chosen.IsNone())
	assert.Nil(jobs[1].Catalog)

	// Overwrite, then reopen
	first.Status = session.JobStatusCompleted
	require.NoError(t, db.WriteJob(&first))
	require.NoError(t, db.DeleteJob(&second))
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	defer db.Close()
	jobs, err = db.ListJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(session.JobStatusCompleted, jobs[0].Status)
}
