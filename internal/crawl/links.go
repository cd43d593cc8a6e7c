package crawl

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alanbriolat/video-harvester/generic"
)

var linkSchemes = generic.NewSet("http", "https")

// Links fetches a single page and returns the absolute URLs of its anchors that contain the marker, deduplicated and
// sorted. Nothing is returned if the page cannot be fetched.
func (c *Crawler) Links(ctx context.Context, baseURL string) ([]string, error) {
	return c.LinksWithMarker(ctx, baseURL, c.config.Marker)
}

func (c *Crawler) LinksWithMarker(ctx context.Context, baseURL string, marker string) ([]string, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, ErrEmptyURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("invalid base URL: %q is not absolute", baseURL)
	}
	doc, err := c.fetch(ctx, baseURL, c.config.PageTimeout)
	if err != nil {
		return nil, err
	}
	links := ExtractLinks(doc, base, marker)
	c.log.Debugw("links found", "url", baseURL, "marker", marker, "count", len(links))
	return links, nil
}

// ExtractLinks resolves every a[href] in doc against base and keeps the http(s) URLs containing marker. The result
// has no duplicates and is sorted.
func ExtractLinks(doc *goquery.Document, base *url.URL, marker string) []string {
	seen := generic.NewSet[string]()
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if !abs.IsAbs() || !linkSchemes.Contains(abs.Scheme) {
			return
		}
		link := abs.String()
		if strings.Contains(link, marker) {
			seen.Add(link)
		}
	})
	links := seen.ToSlice()
	sort.Strings(links)
	return links
}
