package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/r3labs/diff/v3"
	"go.uber.org/zap"

	"github.com/alanbriolat/video-harvester"
	"github.com/alanbriolat/video-harvester/internal/crawl"
	"github.com/alanbriolat/video-harvester/internal/pubsub"
	"github.com/alanbriolat/video-harvester/internal/sync_"
)

var (
	ErrBusy       = errors.New("another operation is in progress")
	ErrUnknownJob = errors.New("unknown job")
)

const (
	DefaultDownloadDir = "downloads"
	DefaultWorkers     = 5
	DefaultRetries     = 3
)

type Config struct {
	DownloadDir string
	BaseName    string
	BaseNumber  int
	Naming      video_harvester.NamingConfig
	Crawl       crawl.Config
	// Maximum number of concurrent title or catalog lookups.
	Workers int
	Retries int
	// Heights offered as quick choices; the first available one is chosen automatically.
	QualityPresets   []int
	Database         Database
	History          History
	ProviderRegistry *video_harvester.ProviderRegistry
	// If set, every URL is described by this provider instead of the first one in priority order that accepts it.
	Provider string
	// Minimum interval between JobUpdated events from progress updates.
	ProgressUpdateInterval time.Duration
}

var DefaultConfig = Config{
	DownloadDir:            DefaultDownloadDir,
	BaseName:               video_harvester.DefaultBaseName,
	BaseNumber:             video_harvester.DefaultBaseNumber,
	Naming:                 video_harvester.NewNamingConfig(),
	Crawl:                  crawl.NewConfig(),
	Workers:                DefaultWorkers,
	Retries:                DefaultRetries,
	QualityPresets:         []int{720, 1080},
	Database:               NilDatabase{},
	History:                NilHistory{},
	ProviderRegistry:       &video_harvester.DefaultProviderRegistry,
	ProgressUpdateInterval: 500 * time.Millisecond,
}

// A DiscoveredLink is a candidate video page found by Discover.
type DiscoveredLink struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type jobsByID = map[JobID]JobState

type Session struct {
	config    Config
	ctx       context.Context
	ctxCancel context.CancelFunc
	log       *zap.SugaredLogger
	crawler   *crawl.Crawler

	// Set while a user action is running.
	busy sync_.Event

	baseURL   *sync_.RWMutexed[string]
	links     *sync_.RWMutexed[[]DiscoveredLink]
	selection *sync_.RWMutexed[[]string]
	jobs      *sync_.RWMutexed[jobsByID]
	events    pubsub.Publisher[Event]
}

func New(config Config, ctx context.Context) (*Session, error) {
	if config.Database == nil {
		config.Database = NilDatabase{}
	}
	if config.History == nil {
		config.History = NilHistory{}
	}
	if config.ProviderRegistry == nil {
		config.ProviderRegistry = &video_harvester.DefaultProviderRegistry
	}
	if config.Workers < 1 {
		config.Workers = DefaultWorkers
	}
	if config.Naming.FilenameTemplate == nil {
		config.Naming = video_harvester.NewNamingConfig()
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		config:    config,
		ctx:       ctx,
		ctxCancel: cancel,
		log:       zap.S().Named("session"),
		crawler:   crawl.New(config.Crawl),

		baseURL:   sync_.NewRWMutexed(""),
		links:     sync_.NewRWMutexed[[]DiscoveredLink](nil),
		selection: sync_.NewRWMutexed[[]string](nil),
		jobs:      sync_.NewRWMutexed(make(jobsByID)),
	}
	s.events = pubsub.NewPublisher[Event]()

	records, err := config.Database.ListJobs()
	if err != nil {
		cancel()
		s.events.Close()
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}
	jobs := make(jobsByID, len(records))
	for _, record := range records {
		// A download cannot survive a restart
		if record.Status == JobStatusDownloading {
			record.Status = JobStatusPending
		}
		jobs[record.ID] = JobState{JobRecord: record}
	}
	s.jobs.Set(jobs)
	s.log.Debugf("loaded %d jobs", len(jobs))
	return s, nil
}

func (s *Session) Config() Config {
	return s.config
}

// Subscribe returns a receiver for all session events. The receiver must be drained or closed.
func (s *Session) Subscribe() (pubsub.ReceiverCloser[Event], error) {
	return s.events.SubscribeBufSize(16)
}

// AddSubscriber attaches a custom sender, e.g. a filtered one, to the session events.
func (s *Session) AddSubscriber(sender pubsub.SenderCloser[Event]) error {
	return s.events.AddSubscriber(sender, true)
}

func (s *Session) RemoveSubscriber(sender pubsub.SenderCloser[Event]) {
	s.events.RemoveSubscriber(sender)
}

// Busy reports whether a user action is currently running.
func (s *Session) Busy() bool {
	return s.busy.IsSet()
}

func (s *Session) BaseURL() string {
	return s.baseURL.Get()
}

func (s *Session) Links() []DiscoveredLink {
	return append([]DiscoveredLink(nil), s.links.Get()...)
}

func (s *Session) Selection() []string {
	return append([]string(nil), s.selection.Get()...)
}

// ListJobs returns a snapshot of all jobs ordered by sequence number.
func (s *Session) ListJobs() []JobState {
	var list []JobState
	_ = s.jobs.RLocked(func(jobs *jobsByID) error {
		list = make([]JobState, 0, len(*jobs))
		for _, j := range *jobs {
			list = append(list, j)
		}
		return nil
	})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Sequence != list[j].Sequence {
			return list[i].Sequence < list[j].Sequence
		}
		return list[i].AddedAt.Before(list[j].AddedAt)
	})
	return list
}

func (s *Session) GetJob(id JobID) (JobState, error) {
	var (
		j     JobState
		found bool
	)
	_ = s.jobs.RLocked(func(jobs *jobsByID) error {
		j, found = (*jobs)[id]
		return nil
	})
	if !found {
		return JobState{}, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	return j, nil
}

func (s *Session) Close() {
	s.ctxCancel()
	s.events.Close()
}

func (s *Session) beginStep() error {
	if !s.busy.Set() {
		return ErrBusy
	}
	return nil
}

func (s *Session) endStep() {
	s.busy.Clear()
}

// background runs f as a step on the session context after acquiring the step synchronously.
func (s *Session) background(name string, f func(ctx context.Context) error) error {
	if err := s.beginStep(); err != nil {
		return err
	}
	go func() {
		defer s.endStep()
		if err := f(s.ctx); err != nil {
			s.log.Warnw(name+" failed", "error", err)
		}
	}()
	return nil
}

func (s *Session) insertJob(j JobState) JobState {
	now := time.Now()
	j.AddedAt = now
	j.UpdatedAt = now
	_ = s.jobs.Locked(func(jobs *jobsByID) error {
		(*jobs)[j.ID] = j
		return nil
	})
	if err := s.config.Database.WriteJob(&j.JobRecord); err != nil {
		s.log.Errorw("failed to persist job", "job", j.ID, "error", err)
	}
	s.events.Send(JobAdded{jobEvent{j.ID}, j})
	return j
}

// updateJob applies f to a copy of the job and stores the result if f succeeds. Stored fields are written to the
// database only when persist is true.
func (s *Session) updateJob(id JobID, persist bool, f func(j *JobState) error) (JobState, error) {
	var old, updated JobState
	err := s.jobs.Locked(func(jobs *jobsByID) error {
		j, found := (*jobs)[id]
		if !found {
			return fmt.Errorf("%w: %s", ErrUnknownJob, id)
		}
		old = j
		if err := f(&j); err != nil {
			return err
		}
		if persist {
			j.UpdatedAt = time.Now()
		}
		(*jobs)[id] = j
		updated = j
		return nil
	})
	if err != nil {
		return old, err
	}
	if persist {
		if err := s.config.Database.WriteJob(&updated.JobRecord); err != nil {
			s.log.Errorw("failed to persist job", "job", id, "error", err)
		}
		s.logChanges(&old, &updated)
	}
	s.events.Send(JobUpdated{jobEvent{id}, old, updated})
	return updated, nil
}

func (s *Session) logChanges(old *JobState, updated *JobState) {
	changes, err := diff.Diff(old.Summary(), updated.Summary())
	if err != nil || len(changes) == 0 {
		return
	}
	fields := make([]interface{}, 0, 2+2*len(changes))
	fields = append(fields, "job", updated.ID)
	for _, c := range changes {
		fields = append(fields, c.Path[len(c.Path)-1], fmt.Sprintf("%v -> %v", c.From, c.To))
	}
	s.log.Debugw("job updated", fields...)
}

func (s *Session) clearJobs() {
	old := s.jobs.Swap(make(jobsByID))
	for _, j := range old {
		if err := s.config.Database.DeleteJob(&j.JobRecord); err != nil {
			s.log.Errorw("failed to delete job", "job", j.ID, "error", err)
		}
	}
	if len(old) > 0 {
		s.events.Send(JobsCleared{})
	}
}
