package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/alanbriolat/video-harvester"
	"github.com/alanbriolat/video-harvester/generic"
)

var (
	ErrNotPending         = errors.New("job is not pending")
	ErrNoQuality          = errors.New("no quality selected")
	ErrQualityUnavailable = errors.New("quality not available")
	ErrOutputMissing      = errors.New("download finished but output file is missing")
)

// ChooseQuality selects the format to download. quality is a format ID from the job's list, or else a height label
// ("720p" or "720") resolved against the job's catalog. If it cannot be resolved the job is left unchanged.
func (s *Session) ChooseQuality(id JobID, quality string) (JobState, error) {
	return s.updateJob(id, true, func(j *JobState) error {
		if j.Status == JobStatusDownloading {
			return fmt.Errorf("%w: job is downloading", ErrBusy)
		}
		if j.Catalog == nil {
			return fmt.Errorf("%w: %s: no format information", ErrQualityUnavailable, quality)
		}
		var (
			o  video_harvester.FormatOption
			ok bool
		)
		o, ok = video_harvester.FindOption(j.Formats, quality)
		if !ok {
			if h, isHeight := video_harvester.ParseHeightLabel(quality); isHeight {
				o, ok = video_harvester.SelectBest(j.Catalog.Encodings, h)
			}
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrQualityUnavailable, quality)
		}
		return s.choose(j, o)
	})
}

// DownloadJob downloads a single pending job.
func (s *Session) DownloadJob(ctx context.Context, id JobID) error {
	if err := s.beginStep(); err != nil {
		return err
	}
	defer s.endStep()
	return s.downloadJob(ctx, id)
}

// StartDownloadJob is DownloadJob in the background on the session context.
func (s *Session) StartDownloadJob(id JobID) error {
	if _, err := s.GetJob(id); err != nil {
		return err
	}
	return s.background("download", func(ctx context.Context) error {
		return s.downloadJob(ctx, id)
	})
}

// BatchResult counts what DownloadAll did with each job.
type BatchResult struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// DownloadAll downloads every pending job one at a time in sequence order. Completed and failed jobs are skipped
// without calling their source. The error aggregates every job that failed during this run.
func (s *Session) DownloadAll(ctx context.Context) (BatchResult, error) {
	if err := s.beginStep(); err != nil {
		return BatchResult{}, err
	}
	defer s.endStep()
	return s.downloadAll(ctx)
}

// StartDownloadAll is DownloadAll in the background on the session context.
func (s *Session) StartDownloadAll() error {
	return s.background("batch download", func(ctx context.Context) error {
		_, err := s.downloadAll(ctx)
		return err
	})
}

func (s *Session) downloadAll(ctx context.Context) (BatchResult, error) {
	jobs := s.ListJobs()
	result := BatchResult{Total: len(jobs)}
	var errs *multierror.Error
	for i, j := range jobs {
		if ctx.Err() != nil {
			errs = multierror.Append(errs, ctx.Err())
			break
		}
		if j.Status.IsSkippedByBatch() {
			s.log.Debugw("skipping job", "job", j.ID, "status", j.Status)
			result.Skipped++
		} else if err := s.downloadJob(ctx, j.ID); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", j.URL, err))
			result.Failed++
		} else {
			result.Completed++
		}
		s.events.Send(BatchProgress{Done: i + 1, Total: len(jobs)})
	}
	s.log.Infow("batch finished", "completed", result.Completed, "failed", result.Failed, "skipped", result.Skipped)
	s.events.Send(BatchFinished{Result: result})
	return result, errs.ErrorOrNil()
}

// downloadJob runs one pending job to completed or error. The returned error is nil only if the job completed.
func (s *Session) downloadJob(ctx context.Context, id JobID) error {
	j, err := s.GetJob(id)
	if err != nil {
		return err
	}
	if j.Status != JobStatusPending {
		return fmt.Errorf("%w: %s", ErrNotPending, j.Status)
	}
	if j.Chosen.IsNone() {
		return s.failJob(id, ErrNoQuality)
	}
	chosen := j.Chosen.Value
	if _, ok := video_harvester.FindOption(j.Formats, chosen.FormatID); !ok {
		return s.failJob(id, fmt.Errorf("%w: %s", ErrQualityUnavailable, chosen.DisplayLabel))
	}

	log := s.log.With("job", id, "url", j.URL)

	if done, err := s.config.History.Completed(j.OutputPath); err != nil {
		log.Warnw("failed to check download history", "error", err)
	} else if done && fileExists(j.OutputPath) {
		log.Infow("already downloaded", "path", j.OutputPath)
		return s.completeJob(id)
	}

	if _, err := s.updateJob(id, true, func(j *JobState) error { return j.transition(JobStatusDownloading) }); err != nil {
		return err
	}

	match, err := s.match(j.Provider, j.URL)
	if err != nil {
		return s.failJob(id, err)
	}

	d, err := video_harvester.NewDownloadBuilder().
		WithContext(video_harvester.WithLogger(ctx, log.Desugar())).
		WithTargetDir(s.config.DownloadDir).
		WithProgressCallback(s.progressCallback(id)).
		Build()
	if err != nil {
		return s.failJob(id, err)
	}
	log.Infow("downloading", "format", chosen.FetchSelector(), "path", j.OutputPath)
	err = match.Source.Fetch(d, video_harvester.FetchRequest{
		Format:   chosen,
		Filename: filepath.Base(j.OutputPath),
		Retries:  s.config.Retries,
	})
	if cerr := d.Close(); cerr != nil {
		log.Warnw("failed to clean up download", "error", cerr)
	}
	if err != nil {
		return s.failJob(id, err)
	}
	if !fileExists(j.OutputPath) {
		return s.failJob(id, fmt.Errorf("%w: %s", ErrOutputMissing, j.OutputPath))
	}

	entry := HistoryEntry{
		URL:         j.URL,
		Title:       j.Title,
		OutputPath:  j.OutputPath,
		FormatID:    chosen.FormatID,
		Quality:     j.Quality,
		CompletedAt: time.Now(),
	}
	if info, err := os.Stat(j.OutputPath); err == nil {
		entry.SizeBytes = info.Size()
	}
	if err := s.config.History.Record(entry); err != nil {
		log.Warnw("failed to record download history", "error", err)
	}
	log.Infow("download complete", "path", j.OutputPath)
	if _, err := s.updateJob(id, true, func(j *JobState) error { return j.transition(JobStatusCompleted) }); err != nil {
		return err
	}
	return nil
}

// completeJob moves a pending job straight through downloading to completed.
func (s *Session) completeJob(id JobID) error {
	_, err := s.updateJob(id, true, func(j *JobState) error {
		if err := j.transition(JobStatusDownloading); err != nil {
			return err
		}
		return j.transition(JobStatusCompleted)
	})
	return err
}

// failJob moves the job to error with cause as its message, and returns cause.
func (s *Session) failJob(id JobID, cause error) error {
	s.log.Warnw("job failed", "job", id, "error", cause)
	if _, err := s.updateJob(id, true, func(j *JobState) error { return j.fail(cause) }); err != nil {
		return err
	}
	return cause
}

func (s *Session) progressCallback(id JobID) func(downloaded int64, expected int64) {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func(downloaded int64, expected int64) {
		mu.Lock()
		now := time.Now()
		due := now.Sub(last) >= s.config.ProgressUpdateInterval || (expected > 0 && downloaded >= expected)
		if due {
			last = now
		}
		mu.Unlock()
		if !due {
			return
		}
		_, _ = s.updateJob(id, false, func(j *JobState) error {
			if j.Status != JobStatusDownloading {
				return ErrNotPending
			}
			j.DownloadedBytes = downloaded
			j.ExpectedBytes = expected
			return nil
		})
	}
}

// Retry makes a failed or completed job pending again. A job whose formats could not be described is described
// again first, and stays in error_info_fetch with the new message if that fails.
func (s *Session) Retry(ctx context.Context, id JobID) (JobState, error) {
	if err := s.beginStep(); err != nil {
		return JobState{}, err
	}
	defer s.endStep()

	j, err := s.GetJob(id)
	if err != nil {
		return JobState{}, err
	}
	switch j.Status {
	case JobStatusError, JobStatusCompleted:
		return s.updateJob(id, true, func(j *JobState) error {
			if err := j.transition(JobStatusPending); err != nil {
				return err
			}
			if j.Chosen.IsSome() {
				if _, ok := video_harvester.FindOption(j.Formats, j.Chosen.Value.FormatID); !ok {
					j.Error = fmt.Sprintf("%s: %s", ErrQualityUnavailable, j.Chosen.Value.DisplayLabel)
					j.Chosen = generic.None[video_harvester.FormatOption]()
					j.Quality = ""
					j.OutputPath = ""
				}
			}
			return nil
		})
	case JobStatusErrorInfoFetch:
		provider, catalog, derr := s.describe(ctx, j.URL)
		updated, err := s.updateJob(id, true, func(j *JobState) error {
			j.Provider = provider
			if derr != nil {
				j.Error = derr.Error()
				return nil
			}
			if err := j.transition(JobStatusPending); err != nil {
				return err
			}
			return s.applyCatalog(j, catalog)
		})
		if err != nil {
			return updated, err
		}
		if derr != nil {
			return updated, derr
		}
		return updated, nil
	default:
		return j, fmt.Errorf("%w: cannot retry a %s job", ErrInvalidTransition, j.Status)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
