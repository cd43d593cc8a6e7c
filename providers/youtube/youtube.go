// Package youtube describes and fetches YouTube videos without yt-dlp. Only streams that already carry both audio and
// video can be fetched, since combining separate streams needs a muxer.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"github.com/alanbriolat/video-harvester"
	"github.com/alanbriolat/video-harvester/async"
	"github.com/alanbriolat/video-harvester/generic"
)

var (
	ErrNeedsMux      = errors.New("format has no audio and would need muxing")
	ErrUnknownFormat = errors.New("format no longer offered")
	ErrInvalidFormat = errors.New("invalid format ID")
	retryBackoff     = 2 * time.Second
)

type source struct {
	videoID string
	client  *youtube.Client
}

func (s *source) URL() string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", s.videoID)
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Describe(ctx context.Context) (*video_harvester.Catalog, error) {
	video, err := s.client.GetVideoContext(ctx, s.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	catalog := &video_harvester.Catalog{
		Title:     video.Title,
		Encodings: make([]video_harvester.Encoding, 0, len(video.Formats)),
	}
	for i := range video.Formats {
		catalog.Encodings = append(catalog.Encodings, encoding(&video.Formats[i]))
	}
	return catalog, nil
}

func (s *source) Fetch(d video_harvester.Download, req video_harvester.FetchRequest) error {
	itag, err := strconv.Atoi(req.Format.FormatID)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, req.Format.FormatID)
	}
	ctx := d.Context()
	return async.Retry(ctx, req.Retries, retryBackoff, func(int) error {
		video, err := s.client.GetVideoContext(ctx, s.URL())
		if err != nil {
			return fmt.Errorf("failed to get video info: %w", err)
		}
		formats := video.Formats.Itag(itag)
		if len(formats) == 0 {
			return ErrUnknownFormat
		}
		format := &formats[0]
		if format.AudioChannels == 0 {
			return ErrNeedsMux
		}
		stream, size, err := s.client.GetStreamContext(ctx, video, format)
		if err != nil {
			return fmt.Errorf("failed to get stream: %w", err)
		}
		defer stream.Close()
		d.SetProgress(0, size)
		return d.SaveStream(req.Filename, stream)
	})
}

func encoding(f *youtube.Format) video_harvester.Encoding {
	mimeType, codecs := splitMimeType(f.MimeType)
	e := video_harvester.Encoding{
		FormatID:   strconv.Itoa(f.ItagNo),
		FormatNote: f.QualityLabel,
		VCodec:     "none",
		ACodec:     "none",
	}
	if parts := strings.SplitN(mimeType, "/", 2); len(parts) == 2 {
		e.Ext = parts[1]
	}
	isVideo := strings.HasPrefix(mimeType, "video/")
	if isVideo {
		e.VCodec = codecs[0]
		if f.AudioChannels > 0 && len(codecs) > 1 {
			e.ACodec = codecs[1]
		} else if f.AudioChannels > 0 {
			e.ACodec = "unknown"
		}
	} else if f.AudioChannels > 0 {
		e.ACodec = codecs[0]
	}
	if f.Width > 0 {
		e.Width = generic.Some(f.Width)
	}
	if f.Height > 0 {
		e.Height = generic.Some(f.Height)
	}
	if f.Bitrate > 0 {
		e.TBR = generic.Some(float64(f.Bitrate) / 1000)
	}
	if f.ContentLength > 0 {
		e.Filesize = generic.Some(f.ContentLength)
	}
	return e
}

// splitMimeType turns `video/mp4; codecs="avc1.42001E, mp4a.40.2"` into ("video/mp4", ["avc1.42001E", "mp4a.40.2"]).
// The codec list always has at least one element.
func splitMimeType(s string) (string, []string) {
	parts := strings.SplitN(s, ";", 2)
	mimeType := strings.TrimSpace(parts[0])
	codecs := []string{"unknown"}
	if len(parts) == 2 {
		params := strings.TrimSpace(parts[1])
		if strings.HasPrefix(params, "codecs=") {
			list := strings.Trim(strings.TrimPrefix(params, "codecs="), `"`)
			codecs = codecs[:0]
			for _, c := range strings.Split(list, ",") {
				if c = strings.TrimSpace(c); c != "" {
					codecs = append(codecs, c)
				}
			}
			if len(codecs) == 0 {
				codecs = []string{"unknown"}
			}
		}
	}
	return mimeType, codecs
}

type Config struct {
	Client *youtube.Client
}

func NewConfig() Config {
	return Config{Client: &youtube.Client{}}
}

func (c Config) Match(s string) (video_harvester.Source, error) {
	if parsedURL, err := url.Parse(s); err != nil {
		return nil, err
	} else if videoID, err := extractVideoID(parsedURL); err != nil {
		return nil, err
	} else {
		return &source{videoID: *videoID, client: c.Client}, nil
	}
}

func (c Config) Provider() video_harvester.Provider {
	return video_harvester.Provider{Name: "youtube", Match: c.Match}
}

// Extract video ID from YouTube URL.
//
// Allowed URL formats:
//
//	http(s?)://(www|m).youtube.com/(watch|details)?v={VIDEO_ID}
//	http(s?)://(www|m).youtube.com/v/{VIDEO_ID}
//	http(s?)://(www|m).youtube.com/shorts/{VIDEO_ID}
//	http(s?)://youtu.be/{VIDEO_ID}
func extractVideoID(url *url.URL) (*string, error) {
	var id string
	switch url.Hostname() {
	case "youtube.com", "www.youtube.com", "m.youtube.com":
		if strings.HasPrefix(url.Path, "/v/") || strings.HasPrefix(url.Path, "/shorts/") {
			id = strings.SplitN(url.Path, "/", 4)[2]
		} else if url.Path == "/watch" || url.Path == "/details" {
			if url.Query().Has("v") {
				id = url.Query().Get("v")
			} else {
				return nil, fmt.Errorf("missing ?v= query parameter")
			}
		}
	case "youtu.be":
		id = strings.Trim(url.Path, "/")
	default:
		return nil, fmt.Errorf("unrecognised hostname")
	}
	if id == "" {
		return nil, fmt.Errorf("could not extract video ID")
	}
	return &id, nil
}
