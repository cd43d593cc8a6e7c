package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/alanbriolat/video-harvester"
	"github.com/alanbriolat/video-harvester/database"
	"github.com/alanbriolat/video-harvester/internal/boltdb"
	"github.com/alanbriolat/video-harvester/internal/crawl"
	"github.com/alanbriolat/video-harvester/internal/session"
	"github.com/alanbriolat/video-harvester/providers"
)

const envPrefix = "VIDEO_HARVESTER_"

func envVars(name string) []string {
	return []string{envPrefix + name}
}

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "download-dir",
		Value:   session.DefaultDownloadDir,
		Usage:   "save downloaded videos to `DIR`",
		EnvVars: envVars("DOWNLOAD_DIR"),
	},
	&cli.StringFlag{
		Name:    "state",
		Usage:   "keep jobs in the bbolt database at `FILE` (not kept if empty)",
		EnvVars: envVars("STATE"),
	},
	&cli.StringFlag{
		Name:    "history",
		Value:   "video-harvester.sqlite",
		Usage:   "record completed downloads in the SQLite database at `FILE` (not recorded if empty)",
		EnvVars: envVars("HISTORY"),
	},
	&cli.StringFlag{
		Name:    "marker",
		Value:   crawl.DefaultMarker,
		Usage:   "only follow links containing `TEXT`",
		EnvVars: envVars("MARKER"),
	},
	&cli.IntFlag{
		Name:    "workers",
		Value:   session.DefaultWorkers,
		Usage:   "look up at most `N` titles or formats at once",
		EnvVars: envVars("WORKERS"),
	},
	&cli.DurationFlag{
		Name:    "title-timeout",
		Value:   crawl.DefaultTitleTimeout,
		Usage:   "give up on a page title after `DURATION`",
		EnvVars: envVars("TITLE_TIMEOUT"),
	},
	&cli.DurationFlag{
		Name:    "page-timeout",
		Value:   crawl.DefaultPageTimeout,
		Usage:   "give up on the link page after `DURATION`",
		EnvVars: envVars("PAGE_TIMEOUT"),
	},
	&cli.IntFlag{
		Name:    "retries",
		Value:   session.DefaultRetries,
		Usage:   "retry failed downloads `N` times",
		EnvVars: envVars("RETRIES"),
	},
	&cli.BoolFlag{
		Name:    "force-generic",
		Value:   true,
		Usage:   "use yt-dlp's generic extractor when describing videos",
		EnvVars: envVars("FORCE_GENERIC"),
	},
	&cli.StringFlag{
		Name:    "provider",
		Usage:   "describe every video with provider `NAME` instead of the first one that accepts it",
		EnvVars: envVars("PROVIDER"),
	},
	&cli.StringSliceFlag{
		Name:    "prefer",
		Usage:   "try provider `NAME` before the others (repeatable)",
		EnvVars: envVars("PREFER"),
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "log debug messages",
		EnvVars: envVars("VERBOSE"),
	},
}

// sessionConfig maps the global flags onto a session configuration.
func sessionConfig(c *cli.Context) (session.Config, error) {
	pc := providers.NewConfig()
	pc.YtDlp.ForceGeneric = c.Bool("force-generic")
	pc.YtDlp.Retries = c.Int("retries")
	registry, err := providers.NewRegistry(pc)
	if err != nil {
		return session.Config{}, err
	}
	if err := preferProviders(registry, c.StringSlice("prefer")); err != nil {
		return session.Config{}, err
	}
	provider := c.String("provider")
	if provider != "" {
		if _, err := registry.GetPriority(provider); err != nil {
			return session.Config{}, fmt.Errorf("--provider %s: %w", provider, err)
		}
	}

	config := session.DefaultConfig
	config.DownloadDir = c.String("download-dir")
	config.Workers = c.Int("workers")
	config.Retries = c.Int("retries")
	config.ProviderRegistry = registry
	config.Provider = provider
	config.Crawl = crawl.NewConfig()
	config.Crawl.Marker = c.String("marker")
	config.Crawl.TitleTimeout = c.Duration("title-timeout")
	config.Crawl.PageTimeout = c.Duration("page-timeout")
	return config, nil
}

// preferProviders moves the named providers ahead of the rest, keeping their relative order.
func preferProviders(registry *video_harvester.ProviderRegistry, names []string) error {
	for i, name := range names {
		if err := registry.SetPriority(name, video_harvester.PriorityHighest+int16(i)); err != nil {
			return fmt.Errorf("--prefer %s: %w", name, err)
		}
	}
	return nil
}

// environment is a session together with the stores it was opened with.
type environment struct {
	session *session.Session
	state   boltdb.Database
	history *database.Database
}

func openEnvironment(c *cli.Context) (_ *environment, err error) {
	config, err := sessionConfig(c)
	if err != nil {
		return nil, err
	}
	env := &environment{}
	defer func() {
		if err != nil {
			env.Close()
		}
	}()

	if path := c.String("state"); path != "" {
		if env.state, err = boltdb.New(path); err != nil {
			return nil, fmt.Errorf("failed to open state file: %w", err)
		}
		config.Database = env.state
	}
	if path := c.String("history"); path != "" {
		if env.history, err = database.NewDatabase(path); err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		if err = env.history.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate history: %w", err)
		}
		config.History = env.history
	}
	if env.session, err = session.New(config, c.Context); err != nil {
		return nil, err
	}
	zap.S().Debugw("session ready", "download_dir", config.DownloadDir, "state", c.String("state"), "history", c.String("history"))
	return env, nil
}

func (e *environment) Close() {
	if e.session != nil {
		e.session.Close()
	}
	if e.state != nil {
		_ = e.state.Close()
	}
	if e.history != nil {
		e.history.Close()
	}
}
