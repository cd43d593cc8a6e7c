// Package ytdlp describes and fetches videos by running yt-dlp.
package ytdlp

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"github.com/alanbriolat/video-harvester"
	"github.com/alanbriolat/video-harvester/generic"
)

const Executable = "yt-dlp"

var lookPath = exec.LookPath

type Config struct {
	Protocols generic.Set[string]
	// ForceGeneric makes describe use the generic extractor, for pages yt-dlp has no dedicated extractor for.
	ForceGeneric bool
	// Retries passed to yt-dlp when describing.
	Retries          int
	MergeFormat      string
	DescribeTimeout  time.Duration
	ProgressInterval time.Duration
}

func NewConfig() Config {
	return Config{
		Protocols:        generic.NewSet("http", "https"),
		ForceGeneric:     true,
		Retries:          3,
		MergeFormat:      video_harvester.DefaultExt,
		DescribeTimeout:  60 * time.Second,
		ProgressInterval: 500 * time.Millisecond,
	}
}

func (c Config) Match(s string) (video_harvester.Source, error) {
	parsedURL, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if !c.Protocols.Contains(parsedURL.Scheme) {
		return nil, fmt.Errorf("unknown URL scheme %v", parsedURL.Scheme)
	}
	if _, err := lookPath(Executable); err != nil {
		return nil, fmt.Errorf("%s not available: %w", Executable, err)
	}
	return &source{config: c, url: s}, nil
}

func (c Config) Provider() video_harvester.Provider {
	return video_harvester.Provider{
		Name:     "ytdlp",
		Match:    c.Match,
		Priority: video_harvester.PriorityHighest,
	}
}

type source struct {
	config Config
	url    string
}

func (s *source) URL() string {
	return s.url
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) log() *zap.SugaredLogger {
	return zap.S().Named("ytdlp").With("url", s.url)
}

func (s *source) Describe(ctx context.Context) (*video_harvester.Catalog, error) {
	if s.config.DescribeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.DescribeTimeout)
		defer cancel()
	}
	cmd := ytdlp.New().
		SkipDownload().
		DumpSingleJSON().
		NoPlaylist().
		Retries(strconv.Itoa(s.config.Retries))
	if s.config.ForceGeneric {
		cmd = cmd.ForceGenericExtractor()
	}
	s.log().Debug("describing")
	result, err := cmd.Run(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp describe failed: %w", err)
	}
	catalog, err := ParseInfo([]byte(result.Stdout))
	if err != nil {
		return nil, fmt.Errorf("yt-dlp describe failed: %w", err)
	}
	return catalog, nil
}

func (s *source) Fetch(d video_harvester.Download, req video_harvester.FetchRequest) error {
	target := d.TargetPath(req.Filename)
	cmd := ytdlp.New().
		Format(req.Format.FetchSelector()).
		MergeOutputFormat(s.config.MergeFormat).
		Output(OutputTemplate(target)).
		NoPlaylist().
		Retries(strconv.Itoa(req.Retries))
	cmd.ProgressFunc(s.config.ProgressInterval, func(update ytdlp.ProgressUpdate) {
		d.SetProgress(int64(update.DownloadedBytes), int64(update.TotalBytes))
	})
	s.log().Infow("fetching", "format", req.Format.FormatID, "target", target)
	if _, err := cmd.Run(d.Context(), s.url); err != nil {
		return fmt.Errorf("yt-dlp fetch failed: %w", err)
	}
	return nil
}

// OutputTemplate escapes a literal path for use as a yt-dlp output template.
func OutputTemplate(path string) string {
	return strings.ReplaceAll(path, "%", "%%")
}
