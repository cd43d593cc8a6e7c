// Package crawl fetches single HTML pages to find candidate video links and human-readable page titles.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	DefaultMarker       = "view_video"
	DefaultPageTimeout  = 15 * time.Second
	DefaultTitleTimeout = 10 * time.Second
	DefaultUserAgent    = "video-harvester/1.0"
)

var ErrEmptyURL = errors.New("empty URL")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

type Config struct {
	HTTPClient   *http.Client
	UserAgent    string
	Marker       string
	PageTimeout  time.Duration
	TitleTimeout time.Duration
}

func NewConfig() Config {
	return Config{
		HTTPClient:   http.DefaultClient,
		UserAgent:    DefaultUserAgent,
		Marker:       DefaultMarker,
		PageTimeout:  DefaultPageTimeout,
		TitleTimeout: DefaultTitleTimeout,
	}
}

type Crawler struct {
	config Config
	log    *zap.SugaredLogger
}

func New(config Config) *Crawler {
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	return &Crawler{
		config: config,
		log:    zap.S().Named("crawl"),
	}
}

func (c *Crawler) Marker() string {
	return c.config.Marker
}

func (c *Crawler) fetch(ctx context.Context, pageURL string, timeout time.Duration) (*goquery.Document, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: pageURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	return doc, nil
}
