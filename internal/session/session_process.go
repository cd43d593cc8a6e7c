package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/alanbriolat/video-harvester"
	"github.com/alanbriolat/video-harvester/async"
	"github.com/alanbriolat/video-harvester/generic"
	"github.com/alanbriolat/video-harvester/internal/crawl"
)

var (
	ErrNothingSelected = errors.New("no URLs selected")
)

type ProcessOptions struct {
	// URLs to process, in order; the current selection when empty.
	URLs []string
	// BaseName and BaseNumber default to the session configuration.
	BaseName   string
	BaseNumber int
}

type described struct {
	title    string
	provider string
	catalog  *video_harvester.Catalog
	err      error
}

// Process replaces all jobs with one job per URL, numbered from the base number in order, and looks up the
// available formats for each. A URL whose formats cannot be described still gets a job, in error_info_fetch.
func (s *Session) Process(ctx context.Context, opts ProcessOptions) ([]JobState, error) {
	if err := s.beginStep(); err != nil {
		return nil, err
	}
	defer s.endStep()

	urls := opts.URLs
	if len(urls) == 0 {
		urls = s.selection.Get()
	}
	if len(urls) == 0 {
		return nil, ErrNothingSelected
	}
	baseName := opts.BaseName
	if baseName == "" {
		baseName = s.config.BaseName
	}
	baseNumber := opts.BaseNumber
	if baseNumber < 1 {
		baseNumber = s.config.BaseNumber
	}

	s.clearJobs()
	s.log.Infow("processing selection", "count", len(urls), "base_name", baseName, "base_number", baseNumber)

	results := async.Map(ctx, s.config.Workers, urls, func(ctx context.Context, u string) described {
		title := s.linkTitle(u).OrElse(func() generic.Option[string] {
			return generic.Some(s.crawler.Title(ctx, u))
		}).Unwrap()
		provider, catalog, err := s.describe(ctx, u)
		return described{title: title, provider: provider, catalog: catalog, err: err}
	})

	jobs := make([]JobState, 0, len(urls))
	for i, u := range urls {
		r := results[i]
		j := JobState{JobRecord: JobRecord{
			ID:       NewJobID(),
			URL:      u,
			Title:    r.title,
			BaseName: baseName,
			Sequence: baseNumber + i,
			Provider: r.provider,
		}}
		if r.err != nil {
			s.log.Warnw("failed to fetch video info", "url", u, "error", r.err)
			j.Status = JobStatusErrorInfoFetch
			j.Error = r.err.Error()
		} else {
			j.Status = JobStatusPending
			if err := s.applyCatalog(&j, r.catalog); err != nil {
				j.Status = JobStatusErrorInfoFetch
				j.Error = err.Error()
			}
		}
		jobs = append(jobs, s.insertJob(j))
	}
	return jobs, nil
}

// describe matches u to a provider and fetches its catalog.
func (s *Session) describe(ctx context.Context, u string) (string, *video_harvester.Catalog, error) {
	match, err := s.match(s.config.Provider, u)
	if err != nil {
		return "", nil, err
	}
	catalog, err := match.Source.Describe(ctx)
	if err != nil {
		return match.ProviderName, nil, err
	}
	return match.ProviderName, catalog, nil
}

// match finds the source for u, using the named provider if there is one.
func (s *Session) match(provider string, u string) (*video_harvester.Match, error) {
	if provider != "" {
		return s.config.ProviderRegistry.MatchWith(provider, u)
	}
	return s.config.ProviderRegistry.Match(u)
}

// applyCatalog fills in everything that derives from a freshly described catalog, and picks the first available
// preset.
func (s *Session) applyCatalog(j *JobState, catalog *video_harvester.Catalog) error {
	j.Catalog = catalog
	j.Formats = video_harvester.ListAll(catalog.Encodings)
	j.Presets = make([]Preset, 0, len(s.config.QualityPresets))
	for _, h := range s.config.QualityPresets {
		p := Preset{Quality: video_harvester.HeightLabel(h)}
		if o, ok := video_harvester.SelectBest(catalog.Encodings, h); ok {
			p.Option = generic.Some(o)
		}
		j.Presets = append(j.Presets, p)
	}
	if crawl.IsUnknownTitle(j.Title) && catalog.Title != "" {
		j.Title = catalog.Title
	}
	j.Chosen = generic.None[video_harvester.FormatOption]()
	j.Quality = ""
	j.OutputPath = ""
	for _, p := range j.Presets {
		if p.Available() {
			return s.choose(j, p.Option.Value)
		}
	}
	return nil
}

// choose records o as the job's format and derives the output path from it.
func (s *Session) choose(j *JobState, o video_harvester.FormatOption) error {
	quality := o.QualityLabel()
	if quality == "" {
		quality = o.FormatID
	}
	name, err := s.config.Naming.Filename(j.BaseName, j.Sequence, j.Title, quality)
	if err != nil {
		return fmt.Errorf("failed to build filename: %w", err)
	}
	j.Chosen = generic.Some(o)
	j.Quality = quality
	j.OutputPath = filepath.Join(s.config.DownloadDir, name)
	return nil
}
