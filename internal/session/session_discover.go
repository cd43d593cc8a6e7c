package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/alanbriolat/video-harvester/async"
	"github.com/alanbriolat/video-harvester/generic"
)

var (
	ErrUnknownLink = errors.New("not a discovered link")
)

type DiscoverOptions struct {
	// Marker overrides the configured link marker when not empty.
	Marker string
}

// Discover crawls baseURL for video links and looks up a title for each. The previous links, selection and jobs are
// discarded, even if the crawl fails.
func (s *Session) Discover(ctx context.Context, baseURL string, opts DiscoverOptions) ([]DiscoveredLink, error) {
	if err := s.beginStep(); err != nil {
		return nil, err
	}
	defer s.endStep()

	marker := opts.Marker
	if marker == "" {
		marker = s.crawler.Marker()
	}
	s.log.Infow("discovering links", "url", baseURL, "marker", marker)

	s.baseURL.Set(baseURL)
	s.links.Set(nil)
	s.selection.Set(nil)
	s.clearJobs()

	urls, err := s.crawler.LinksWithMarker(ctx, baseURL, marker)
	if err != nil {
		s.events.Send(LinksDiscovered{BaseURL: baseURL, Err: err})
		return nil, err
	}

	links := async.Map(ctx, s.config.Workers, urls, func(ctx context.Context, u string) DiscoveredLink {
		return DiscoveredLink{URL: u, Title: s.crawler.Title(ctx, u)}
	})
	s.links.Set(links)
	s.log.Infof("found %d links", len(links))
	s.events.Send(LinksDiscovered{BaseURL: baseURL, Links: links})
	return append([]DiscoveredLink(nil), links...), nil
}

// Select replaces the selection. Every URL must be a discovered link; order is kept and duplicates are dropped.
func (s *Session) Select(urls []string) error {
	known := generic.NewSet[string]()
	for _, l := range s.links.Get() {
		known.Add(l.URL)
	}
	seen := generic.NewSet[string]()
	selection := make([]string, 0, len(urls))
	for _, u := range urls {
		if !known.Contains(u) {
			return fmt.Errorf("%w: %s", ErrUnknownLink, u)
		}
		if seen.Add(u) {
			selection = append(selection, u)
		}
	}
	s.selection.Set(selection)
	s.events.Send(SelectionChanged{URLs: append([]string(nil), selection...)})
	return nil
}

// linkTitle is the discovered title for u, if u was discovered.
func (s *Session) linkTitle(u string) generic.Option[string] {
	for _, l := range s.links.Get() {
		if l.URL == u {
			return generic.Some(l.Title)
		}
	}
	return generic.None[string]()
}
