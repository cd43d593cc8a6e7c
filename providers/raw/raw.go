// Package raw handles URLs that point straight at a media file.
package raw

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/alanbriolat/video-harvester"
	"github.com/alanbriolat/video-harvester/async"
	"github.com/alanbriolat/video-harvester/generic"
	"github.com/alanbriolat/video-harvester/util"
)

// FormatID of the single encoding a raw source offers.
const FormatID = "raw"

type Config struct {
	Protocols    generic.Set[string]
	Extensions   generic.Set[string]
	HTTPClient   *http.Client
	RetryBackoff time.Duration
}

func NewConfig() Config {
	return Config{
		Protocols: generic.NewSet(
			"http",
			"https",
		),
		Extensions: generic.NewSet(
			"flv",
			"m4v",
			"mkv",
			"mp4",
			"webm",
		),
		HTTPClient:   http.DefaultClient,
		RetryBackoff: 2 * time.Second,
	}
}

func (c Config) Match(s string) (video_harvester.Source, error) {
	// Expect string to be a URL
	parsedURL, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	// Check that scheme/protocol is valid
	if !c.Protocols.Contains(parsedURL.Scheme) {
		return nil, fmt.Errorf("unknown URL scheme %v", parsedURL.Scheme)
	}
	// Attempt to extract filename and extension
	filename, err := util.FilenameFromURL(parsedURL)
	if err != nil {
		return nil, err
	}
	_, extension := util.SplitExt(filename)
	if extension == "" {
		return nil, fmt.Errorf("no file extension found")
	}
	if !c.Extensions.Contains(extension) {
		return nil, fmt.Errorf("unknown file extension %v", extension)
	}
	res := source{
		config:    c,
		url:       s,
		filename:  filename,
		extension: extension,
	}
	return &res, nil
}

func (c Config) Provider() video_harvester.Provider {
	return video_harvester.Provider{
		Name:     "raw",
		Match:    c.Match,
		Priority: video_harvester.PriorityLowest,
	}
}

type source struct {
	config    Config
	url       string
	filename  string
	extension string
}

func (s *source) URL() string {
	return s.url
}

func (s *source) String() string {
	return s.URL()
}

// Describe offers a single encoding. Its height can only come from a "720p" style marker in the file name, and its
// size from the Content-Length of a HEAD request.
func (s *source) Describe(ctx context.Context) (*video_harvester.Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to describe: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to describe: %s", resp.Status)
	}
	e := video_harvester.Encoding{
		FormatID:   FormatID,
		Ext:        s.extension,
		FormatNote: s.filename,
	}
	if resp.ContentLength > 0 {
		e.Filesize = generic.Some(resp.ContentLength)
	}
	return &video_harvester.Catalog{Title: util.TitleFromFilename(s.filename), Encodings: []video_harvester.Encoding{e}}, nil
}

func (s *source) Fetch(d video_harvester.Download, req video_harvester.FetchRequest) error {
	return async.Retry(d.Context(), req.Retries, s.config.RetryBackoff, func(attempt int) error {
		if attempt > 0 {
			d.SetProgress(0, 0)
		}
		return d.SaveURL(req.Filename, s.url)
	})
}
