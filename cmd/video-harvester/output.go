package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/alanbriolat/video-harvester"
	"github.com/alanbriolat/video-harvester/database"
	"github.com/alanbriolat/video-harvester/internal/crawl"
	"github.com/alanbriolat/video-harvester/internal/pubsub"
	"github.com/alanbriolat/video-harvester/internal/session"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
)

func statusStyle(status session.JobStatus) lipgloss.Style {
	switch status {
	case session.JobStatusCompleted:
		return okStyle
	case session.JobStatusDownloading:
		return activeStyle
	case session.JobStatusError, session.JobStatusErrorInfoFetch:
		return errorStyle
	default:
		return mutedStyle
	}
}

func renderStatus(status session.JobStatus) string {
	return statusStyle(status).Render(string(status))
}

// filterLinks returns the URLs of links whose URL or title contains match, ignoring case.
func filterLinks(links []session.DiscoveredLink, match string) []string {
	match = strings.ToLower(match)
	urls := make([]string, 0, len(links))
	for _, l := range links {
		if match == "" || strings.Contains(strings.ToLower(l.URL), match) || strings.Contains(strings.ToLower(l.Title), match) {
			urls = append(urls, l.URL)
		}
	}
	return urls
}

func renderLinks(links []session.DiscoveredLink) string {
	var b strings.Builder
	fmt.Fprintln(&b, titleStyle.Render(fmt.Sprintf("%d links", len(links))))
	for i, l := range links {
		title := l.Title
		if crawl.IsUnknownTitle(title) {
			title = mutedStyle.Render(title)
		}
		fmt.Fprintf(&b, "%3d. %s\n     %s\n", i+1, title, mutedStyle.Render(l.URL))
	}
	return b.String()
}

func renderFormats(j session.JobState) string {
	var b strings.Builder
	fmt.Fprintln(&b, titleStyle.Render(j.Title), renderStatus(j.Status))
	if j.Error != "" {
		fmt.Fprintln(&b, errorStyle.Render(j.Error))
	}
	for _, p := range j.Presets {
		fmt.Fprintf(&b, "  preset %-6s %s\n", p.Quality, p.SizeLabel())
	}
	for _, o := range j.Formats {
		marker := " "
		if j.Chosen.IsSome() && j.Chosen.Value.FormatID == o.FormatID {
			marker = okStyle.Render("*")
		}
		fmt.Fprintf(&b, "%s %-10s %s\n", marker, o.FormatID, o.DisplayLabel)
	}
	return b.String()
}

func renderJobs(jobs []session.JobState) string {
	var b strings.Builder
	for _, j := range jobs {
		quality := j.Quality
		if quality == "" {
			quality = "-"
		}
		fmt.Fprintf(&b, "%4d %-16s %-6s %s\n", j.Sequence, renderStatus(j.Status), quality, j.Title)
		if j.Error != "" {
			fmt.Fprintf(&b, "     %s\n", errorStyle.Render(j.Error))
		} else if j.OutputPath != "" {
			fmt.Fprintf(&b, "     %s\n", mutedStyle.Render(j.OutputPath))
		}
	}
	return b.String()
}

func renderBatchResult(r session.BatchResult) string {
	summary := fmt.Sprintf("%d completed, %d failed, %d skipped", r.Completed, r.Failed, r.Skipped)
	if r.Failed > 0 {
		return errorStyle.Render(summary)
	}
	return okStyle.Render(summary)
}

// renderProviders lists providers in match order with their priorities, marking the forced one.
func renderProviders(registry *video_harvester.ProviderRegistry, forced string) (string, error) {
	var b strings.Builder
	for _, name := range registry.List() {
		priority, err := registry.GetPriority(name)
		if err != nil {
			return "", err
		}
		line := fmt.Sprintf("%-8s %6d", name, priority)
		if name == forced {
			line += " " + activeStyle.Render("forced")
		}
		b.WriteString(line + "\n")
	}
	return b.String(), nil
}

func renderHistory(records []database.HistoryRecord) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%s  %-6s %s\n", r.CompletedAt.Local().Format("2006-01-02 15:04"), r.Quality, r.OutputPath)
	}
	return b.String()
}

// progressWatcher draws a progress bar for each downloading job.
type progressWatcher struct {
	events pubsub.ReceiverCloser[session.Event]
	out    io.Writer
	bars   map[session.JobID]*progressbar.ProgressBar
	wg     sync.WaitGroup
}

func watchProgress(s *session.Session, out io.Writer) (*progressWatcher, error) {
	events, err := s.Subscribe()
	if err != nil {
		return nil, err
	}
	w := &progressWatcher{
		events: events,
		out:    out,
		bars:   make(map[session.JobID]*progressbar.ProgressBar),
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for e := range events.Receive() {
			if u, ok := e.(session.JobUpdated); ok {
				w.update(u.NewState)
			}
		}
	}()
	return w, nil
}

func (w *progressWatcher) update(j session.JobState) {
	bar, found := w.bars[j.ID]
	switch {
	case j.Status == session.JobStatusDownloading:
		if !found {
			bar = progressbar.NewOptions64(-1,
				progressbar.OptionSetWriter(w.out),
				progressbar.OptionSetDescription(fmt.Sprintf("%d %s", j.Sequence, j.Title)),
				progressbar.OptionShowBytes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionClearOnFinish(),
			)
			w.bars[j.ID] = bar
		}
		if j.ExpectedBytes > 0 && bar.GetMax64() != j.ExpectedBytes {
			bar.ChangeMax64(j.ExpectedBytes)
		}
		_ = bar.Set64(j.DownloadedBytes)
	case found:
		_ = bar.Finish()
		delete(w.bars, j.ID)
		fmt.Fprintf(w.out, "%d %s: %s\n", j.Sequence, j.Title, renderStatus(j.Status))
	}
}

func (w *progressWatcher) Stop() {
	w.events.Close()
	w.wg.Wait()
}
