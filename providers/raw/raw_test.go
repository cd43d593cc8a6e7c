package raw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanbriolat/video-harvester"
)

func TestConfig_Match(t *testing.T) {
	assert := assert_.New(t)
	c := NewConfig()

	s, err := c.Match("https://cdn.example/videos/clip_720p.MP4")
	assert.NoError(err)
	assert.Equal("https://cdn.example/videos/clip_720p.MP4", s.URL())

	for _, input := range []string{
		"ftp://cdn.example/clip.mp4",
		"https://cdn.example/",
		"https://cdn.example/page.html",
		"https://cdn.example/noextension",
	} {
		_, err := c.Match(input)
		assert.Error(err, input)
	}
}

func TestSource(t *testing.T) {
	assert := assert_.New(t)
	var failures int32 = 1
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && atomic.AddInt32(&failures, -1) >= 0 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Length", "5")
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte("video"))
		}
	}))
	defer srv.Close()

	c := NewConfig()
	c.RetryBackoff = time.Millisecond
	s, err := c.Match(srv.URL + "/files/clip_720p.mp4")
	require.NoError(t, err)

	catalog, err := s.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal("clip 720p", catalog.Title)
	require.Len(t, catalog.Encodings, 1)
	assert.Equal(int64(5), catalog.Encodings[0].Filesize.Unwrap())

	best, ok := video_harvester.SelectBest(catalog.Encodings, 720)
	require.True(t, ok)
	assert.Equal(FormatID, best.FormatID)

	dir := t.TempDir()
	d, err := video_harvester.NewDownloadBuilder().WithTargetDir(dir).Build()
	require.NoError(t, err)
	defer d.Close()
	err = s.Fetch(d, video_harvester.FetchRequest{Format: best, Filename: "Clip50 clip_720p.mp4", Retries: 1})
	assert.NoError(err)
	data, err := os.ReadFile(filepath.Join(dir, "Clip50 clip_720p.mp4"))
	assert.NoError(err)
	assert.Equal("video", string(data))
}
