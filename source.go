package video_harvester

import "context"

type Source interface {
	// URL should return the canonical URL for this source. It is assumed that the Provider.Match that created the
	// Source would successfully match this canonical URL.
	URL() string
	// Describe lists the available encodings without transferring any media.
	Describe(ctx context.Context) (*Catalog, error)
	// Fetch downloads the requested format to req.Filename within the target directory of d, using d.Context().
	Fetch(d Download, req FetchRequest) error
}

type FetchRequest struct {
	Format FormatOption
	// Filename is relative to the target directory of the Download.
	Filename string
	// Retries on transient errors, on top of the first attempt.
	Retries int
}
