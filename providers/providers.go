// Package providers assembles the extraction capabilities into a registry. Importing it also fills
// video_harvester.DefaultProviderRegistry with the default configuration.
package providers

import (
	"github.com/alanbriolat/video-harvester"
	"github.com/alanbriolat/video-harvester/providers/raw"
	"github.com/alanbriolat/video-harvester/providers/youtube"
	"github.com/alanbriolat/video-harvester/providers/ytdlp"
)

type Config struct {
	YtDlp   ytdlp.Config
	YouTube youtube.Config
	Raw     raw.Config
}

func NewConfig() Config {
	return Config{
		YtDlp:   ytdlp.NewConfig(),
		YouTube: youtube.NewConfig(),
		Raw:     raw.NewConfig(),
	}
}

// Register adds every provider to r. yt-dlp is tried first; the others only match when it is not installed or for
// URLs it cannot take.
func Register(r *video_harvester.ProviderRegistry, c Config) error {
	for _, p := range []video_harvester.Provider{
		c.YtDlp.Provider(),
		c.YouTube.Provider(),
		c.Raw.Provider(),
	} {
		if err := r.Add(p); err != nil {
			return err
		}
	}
	return nil
}

func NewRegistry(c Config) (*video_harvester.ProviderRegistry, error) {
	r := &video_harvester.ProviderRegistry{}
	if err := Register(r, c); err != nil {
		return nil, err
	}
	return r, nil
}

func init() {
	if err := Register(&video_harvester.DefaultProviderRegistry, NewConfig()); err != nil {
		panic(err)
	}
}
