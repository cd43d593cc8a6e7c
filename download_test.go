package video_harvester

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload_SaveURL(t *testing.T) {
	assert := assert_.New(t)
	body := strings.Repeat("x", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video.mp4" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "downloads")
	var lastDownloaded, lastExpected int64
	d, err := NewDownloadBuilder().
		WithTargetDir(dir).
		WithProgressCallback(func(downloaded, expected int64) {
			lastDownloaded, lastExpected = downloaded, expected
		}).
		Build()
	require.NoError(t, err)
	defer d.Close()

	assert.NoError(d.SaveURL("Clip50 x_720p.mp4", srv.URL+"/video.mp4"))
	data, err := os.ReadFile(filepath.Join(dir, "Clip50 x_720p.mp4"))
	assert.NoError(err)
	assert.Equal(body, string(data))
	assert.Equal(int64(4096), lastDownloaded)
	assert.Equal(int64(4096), lastExpected)
	_, err = os.Stat(filepath.Join(dir, "Clip50 x_720p.mp4"+partialSuffix))
	assert.True(os.IsNotExist(err))

	err = d.SaveURL("missing.mp4", srv.URL+"/missing.mp4")
	assert.Error(err)
	_, err = os.Stat(filepath.Join(dir, "missing.mp4"))
	assert.True(os.IsNotExist(err))
}

func TestDownload_CancelledStream(t *testing.T) {
	assert := assert_.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	dir := t.TempDir()
	d, err := NewDownloadBuilder().WithContext(ctx).WithTargetDir(dir).Build()
	require.NoError(t, err)

	cancel()
	err = d.SaveStream("out.mp4", strings.NewReader("data"))
	assert.ErrorIs(err, context.Canceled)
	_, err = os.Stat(filepath.Join(dir, "out.mp4"))
	assert.True(os.IsNotExist(err))

	// Close removes the leftover partial file
	assert.NoError(d.Close())
	_, err = os.Stat(filepath.Join(dir, "out.mp4"+partialSuffix))
	assert.True(os.IsNotExist(err))
}

func TestDownload_TargetPathIsFlat(t *testing.T) {
	assert := assert_.New(t)
	d, err := NewDownloadBuilder().WithTargetDir(t.TempDir()).Build()
	require.NoError(t, err)
	defer d.Close()
	target := d.TargetPath("../../etc/passwd")
	assert.Equal("passwd", filepath.Base(target))
	assert.NotContains(target, "..")
}
