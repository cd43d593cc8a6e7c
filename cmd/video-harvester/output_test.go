package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/schollz/progressbar/v3"
	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/video-harvester"
	"github.com/alanbriolat/video-harvester/generic"
	"github.com/alanbriolat/video-harvester/internal/crawl"
	"github.com/alanbriolat/video-harvester/internal/session"
)

func TestFilterLinks(t *testing.T) {
	assert := assert_.New(t)
	links := []session.DiscoveredLink{
		{URL: "https://example.com/view_video?id=1", Title: "Cooking Pasta"},
		{URL: "https://example.com/view_video?id=2", Title: crawl.UnknownTitle},
		{URL: "https://example.com/view_video?id=pasta", Title: "Other"},
	}
	assert.Len(filterLinks(links, ""), 3)
	assert.Equal([]string{links[0].URL, links[2].URL}, filterLinks(links, "PASTA"))
	assert.Empty(filterLinks(links, "nothing"))
}

func TestStatusStyle(t *testing.T) {
	assert := assert_.New(t)
	assert.Equal(okStyle, statusStyle(session.JobStatusCompleted))
	assert.Equal(errorStyle, statusStyle(session.JobStatusErrorInfoFetch))
	assert.Equal(activeStyle, statusStyle(session.JobStatusDownloading))
	assert.Equal(mutedStyle, statusStyle(session.JobStatusPending))
	assert.Contains(renderStatus(session.JobStatusError), "error")
}

func TestRenderFormats(t *testing.T) {
	assert := assert_.New(t)
	option := video_harvester.FormatOption{
		FormatID:        "22",
		ApproxSizeBytes: generic.Some(int64(10 * 1024 * 1024)),
		DisplayLabel:    "720p [avc1+mp4a] 10.00 MB",
	}
	j := session.JobState{JobRecord: session.JobRecord{
		Title:   "My Video",
		Status:  session.JobStatusPending,
		Formats: []video_harvester.FormatOption{option, {FormatID: "18", DisplayLabel: "360p [avc1+mp4a] unknown size"}},
		Presets: []session.Preset{{Quality: "720p", Option: generic.Some(option)}, {Quality: "1080p"}},
		Chosen:  generic.Some(option),
	}}
	out := renderFormats(j)
	assert.Contains(out, "My Video")
	assert.Contains(out, "preset 720p   10.00 MB")
	assert.Contains(out, "preset 1080p  not available")
	assert.Contains(out, "720p [avc1+mp4a] 10.00 MB")
	assert.Contains(out, "18         360p [avc1+mp4a] unknown size")
}

func TestProgressWatcher_update(t *testing.T) {
	assert := assert_.New(t)
	var out bytes.Buffer
	w := &progressWatcher{out: &out, bars: make(map[session.JobID]*progressbar.ProgressBar)}
	j := session.JobState{
		JobRecord:   session.JobRecord{ID: "a", Sequence: 50, Title: "My Video", Status: session.JobStatusDownloading},
		JobProgress: session.JobProgress{DownloadedBytes: 50, ExpectedBytes: 100},
	}
	w.update(j)
	assert.Len(w.bars, 1)
	assert.Equal(int64(100), w.bars["a"].GetMax64())

	j.Status = session.JobStatusCompleted
	w.update(j)
	assert.Empty(w.bars)
	assert.Contains(out.String(), "50 My Video:")
	assert.Contains(out.String(), "completed")

	// Jobs that never started downloading are not reported
	out.Reset()
	w.update(session.JobState{JobRecord: session.JobRecord{ID: "b", Status: session.JobStatusError}})
	assert.Empty(out.String())
}

func testRegistry() *video_harvester.ProviderRegistry {
	var r video_harvester.ProviderRegistry
	for _, name := range []string{"one", "two", "three"} {
		r.MustAdd(video_harvester.Provider{
			Name:  name,
			Match: func(string) (video_harvester.Source, error) { return nil, nil },
		})
	}
	return &r
}

func TestPreferProviders(t *testing.T) {
	assert := assert_.New(t)
	r := testRegistry()
	assert.NoError(preferProviders(r, []string{"three", "two"}))
	assert.Equal([]string{"three", "two", "one"}, r.List())
	assert.ErrorIs(preferProviders(r, []string{"nope"}), video_harvester.ErrUnknownProvider)
}

func TestRenderProviders(t *testing.T) {
	assert := assert_.New(t)
	r := testRegistry()
	assert.NoError(preferProviders(r, []string{"two"}))
	out, err := renderProviders(r, "one")
	assert.NoError(err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.Len(lines, 3)
	assert.True(strings.HasPrefix(lines[0], "two"))
	assert.Contains(lines[0], "-32768")
	assert.True(strings.HasPrefix(lines[1], "one"))
	assert.Contains(lines[1], "forced")
	assert.NotContains(lines[2], "forced")
}
