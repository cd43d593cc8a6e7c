package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alanbriolat/video-harvester"
	"github.com/alanbriolat/video-harvester/generic"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
)

type JobID string

func NewJobID() JobID {
	return JobID(generic.Unwrap(uuid.NewRandom()).String())
}

type JobStatus string

const (
	JobStatusPending        JobStatus = "pending"
	JobStatusDownloading    JobStatus = "downloading"
	JobStatusCompleted      JobStatus = "completed"
	JobStatusError          JobStatus = "error"
	JobStatusErrorInfoFetch JobStatus = "error_info_fetch"
)

var allowedTransitions = map[JobStatus]generic.Set[JobStatus]{
	JobStatusPending:        generic.NewSet(JobStatusDownloading, JobStatusError),
	JobStatusDownloading:    generic.NewSet(JobStatusCompleted, JobStatusError),
	JobStatusError:          generic.NewSet(JobStatusPending),
	JobStatusErrorInfoFetch: generic.NewSet(JobStatusPending),
	JobStatusCompleted:      generic.NewSet(JobStatusPending),
}

// batchSkipStatuses are left alone by DownloadAll.
var batchSkipStatuses = generic.NewSet(
	JobStatusCompleted,
	JobStatusError,
	JobStatusErrorInfoFetch,
)

func (s JobStatus) CanTransition(to JobStatus) bool {
	next, ok := allowedTransitions[s]
	return ok && next.Contains(to)
}

// IsSkippedByBatch is true for statuses a batch download treats as already done.
func (s JobStatus) IsSkippedByBatch() bool {
	return batchSkipStatuses.Contains(s)
}

func (s JobStatus) IsError() bool {
	return s == JobStatusError || s == JobStatusErrorInfoFetch
}

// A Preset is the best option for one of the configured preset heights.
type Preset struct {
	Quality string                                       `json:"quality"`
	Option  generic.Option[video_harvester.FormatOption] `json:"option"`
}

func (p Preset) Available() bool {
	return p.Option.IsSome()
}

func (p Preset) SizeLabel() string {
	if p.Option.IsNone() {
		return "not available"
	}
	return p.Option.Value.SizeLabel()
}

// JobRecord is the persisted part of a job.
type JobRecord struct {
	ID         JobID                                        `json:"id"`
	URL        string                                       `json:"url"`
	Title      string                                       `json:"title"`
	BaseName   string                                       `json:"base_name"`
	Sequence   int                                          `json:"sequence"`
	Provider   string                                       `json:"provider"`
	Catalog    *video_harvester.Catalog                     `json:"catalog"`
	Formats    []video_harvester.FormatOption               `json:"formats"`
	Presets    []Preset                                     `json:"presets"`
	Chosen     generic.Option[video_harvester.FormatOption] `json:"chosen"`
	Quality    string                                       `json:"quality"`
	OutputPath string                                       `json:"output_path"`
	Status     JobStatus                                    `json:"status"`
	Error      string                                       `json:"error"`
	AddedAt    time.Time                                    `json:"added_at"`
	UpdatedAt  time.Time                                    `json:"updated_at"`
}

// JobProgress is never persisted.
type JobProgress struct {
	DownloadedBytes int64 `json:"downloaded_bytes"`
	ExpectedBytes   int64 `json:"expected_bytes"`
}

type JobState struct {
	JobRecord
	JobProgress
}

func (j *JobState) String() string {
	return fmt.Sprintf("Job{ID:\"%s\", Sequence:%d, URL:\"%s\", Status:\"%s\"}", j.ID, j.Sequence, j.URL, j.Status)
}

func (j *JobState) transition(to JobStatus) error {
	if !j.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	if to != JobStatusError && to != JobStatusErrorInfoFetch {
		j.Error = ""
	}
	if to != JobStatusDownloading {
		j.JobProgress = JobProgress{}
	}
	return nil
}

func (j *JobState) fail(err error) error {
	if terr := j.transition(JobStatusError); terr != nil {
		return terr
	}
	j.Error = err.Error()
	return nil
}

// Summary is the flat view of a job used for change logging.
type JobSummary struct {
	Title      string
	Sequence   int
	Provider   string
	Quality    string
	OutputPath string
	Status     JobStatus
	Error      string
}

func (j *JobState) Summary() JobSummary {
	return JobSummary{
		Title:      j.Title,
		Sequence:   j.Sequence,
		Provider:   j.Provider,
		Quality:    j.Quality,
		OutputPath: j.OutputPath,
		Status:     j.Status,
		Error:      j.Error,
	}
}
