package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/alanbriolat/video-harvester/internal/session"
	"github.com/alanbriolat/video-harvester/internal/web"
)

var (
	qualityFlag = &cli.StringFlag{
		Name:  "quality",
		Usage: "download `QUALITY` (height like 720p, or a format ID) instead of the first available preset",
	}
	baseNameFlag = &cli.StringFlag{
		Name:  "base-name",
		Value: session.DefaultConfig.BaseName,
		Usage: "start output file names with `NAME`",
	}
	baseNumberFlag = &cli.IntFlag{
		Name:  "base-number",
		Value: session.DefaultConfig.BaseNumber,
		Usage: "number the first output file `N`",
	}
)

func newApp(level zap.AtomicLevel) *cli.App {
	return &cli.App{
		Name:  "video-harvester",
		Usage: "find video links on a page and download them in a chosen quality",
		Flags: globalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				level.SetLevel(zap.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serveAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "listen",
						Value:   web.DefaultListenAddr,
						Usage:   "listen on `ADDR`",
						EnvVars: envVars("LISTEN"),
					},
				},
			},
			{
				Name:      "discover",
				Usage:     "list the video links on a page",
				ArgsUsage: "PAGE_URL",
				Action:    discoverAction,
			},
			{
				Name:      "formats",
				Usage:     "list the formats available for a video",
				ArgsUsage: "VIDEO_URL",
				Action:    formatsAction,
			},
			{
				Name:      "download",
				Usage:     "download videos",
				ArgsUsage: "VIDEO_URL...",
				Action:    downloadAction,
				Flags:     []cli.Flag{qualityFlag, baseNameFlag, baseNumberFlag},
			},
			{
				Name:      "batch",
				Usage:     "discover the video links on a page and download them all",
				ArgsUsage: "PAGE_URL",
				Action:    batchAction,
				Flags: []cli.Flag{
					qualityFlag, baseNameFlag, baseNumberFlag,
					&cli.StringFlag{
						Name:  "match",
						Usage: "only download links whose URL or title contains `TEXT`",
					},
				},
			},
			{
				Name:   "providers",
				Usage:  "list providers in the order they are tried",
				Action: providersAction,
			},
			{
				Name:   "history",
				Usage:  "show recently completed downloads",
				Action: historyAction,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "show at most `N` downloads"},
				},
			},
		},
		HideHelpCommand: true,
	}
}

func requireArgs(c *cli.Context, min int) error {
	if c.NArg() < min {
		return cli.Exit(fmt.Sprintf("expected %s", c.Command.ArgsUsage), 2)
	}
	return nil
}

func serveAction(c *cli.Context) error {
	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer env.Close()
	var history web.HistoryLister
	if env.history != nil {
		history = env.history
	}
	return web.New(env.session, history).Run(c.Context, c.String("listen"))
}

func discoverAction(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer env.Close()
	links, err := env.session.Discover(c.Context, c.Args().First(), session.DiscoverOptions{})
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, renderLinks(links))
	return nil
}

func formatsAction(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer env.Close()
	jobs, err := env.session.Process(c.Context, session.ProcessOptions{URLs: []string{c.Args().First()}})
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, renderFormats(jobs[0]))
	if jobs[0].Status == session.JobStatusErrorInfoFetch {
		return cli.Exit("", 1)
	}
	return nil
}

func downloadAction(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer env.Close()
	return processAndDownload(c, env, c.Args().Slice())
}

func batchAction(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer env.Close()
	links, err := env.session.Discover(c.Context, c.Args().First(), session.DiscoverOptions{})
	if err != nil {
		return err
	}
	urls := filterLinks(links, c.String("match"))
	if len(urls) == 0 {
		return cli.Exit("no matching links found", 1)
	}
	if err := env.session.Select(urls); err != nil {
		return err
	}
	return processAndDownload(c, env, nil)
}

// processAndDownload creates jobs for urls (or the selection when nil), applies --quality, and downloads them all.
func processAndDownload(c *cli.Context, env *environment, urls []string) error {
	log := zap.S()
	jobs, err := env.session.Process(c.Context, session.ProcessOptions{
		URLs:       urls,
		BaseName:   c.String("base-name"),
		BaseNumber: c.Int("base-number"),
	})
	if err != nil {
		return err
	}
	if quality := c.String("quality"); quality != "" {
		for _, j := range jobs {
			if j.Status != session.JobStatusPending {
				continue
			}
			if _, err := env.session.ChooseQuality(j.ID, quality); err != nil {
				log.Warnf("%s: %v", j.URL, err)
			}
		}
	}
	fmt.Fprint(c.App.Writer, renderJobs(env.session.ListJobs()))

	w, err := watchProgress(env.session, c.App.ErrWriter)
	if err != nil {
		return err
	}
	result, err := env.session.DownloadAll(c.Context)
	w.Stop()

	fmt.Fprint(c.App.Writer, renderJobs(env.session.ListJobs()))
	fmt.Fprintln(c.App.Writer, renderBatchResult(result))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func providersAction(c *cli.Context) error {
	config, err := sessionConfig(c)
	if err != nil {
		return err
	}
	out, err := renderProviders(config.ProviderRegistry, config.Provider)
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, out)
	return nil
}

func historyAction(c *cli.Context) error {
	env, err := openEnvironment(c)
	if err != nil {
		return err
	}
	defer env.Close()
	if env.history == nil {
		return cli.Exit("no history database configured", 1)
	}
	records, err := env.history.Recent(c.Int("limit"))
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, renderHistory(records))
	return nil
}
