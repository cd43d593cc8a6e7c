package youtube

import (
	"net/url"
	"testing"

	"github.com/kkdai/youtube/v2"
	assert_ "github.com/stretchr/testify/assert"
)

func TestExtractVideoID(t *testing.T) {
	assert := assert_.New(t)
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ": "dQw4w9WgXcQ",
		"http://m.youtube.com/details?v=abc":          "abc",
		"https://youtube.com/v/xyz":                   "xyz",
		"https://www.youtube.com/shorts/short1":       "short1",
		"https://youtu.be/dQw4w9WgXcQ/":               "dQw4w9WgXcQ",
	}
	for input, expected := range cases {
		u, _ := url.Parse(input)
		id, err := extractVideoID(u)
		if assert.NoError(err, input) {
			assert.Equal(expected, *id, input)
		}
	}

	for _, input := range []string{
		"https://www.youtube.com/watch",
		"https://example.com/watch?v=abc",
		"https://youtu.be/",
	} {
		u, _ := url.Parse(input)
		_, err := extractVideoID(u)
		assert.Error(err, input)
	}
}

func TestConfig_Match(t *testing.T) {
	assert := assert_.New(t)
	c := NewConfig()
	s, err := c.Match("https://youtu.be/dQw4w9WgXcQ")
	assert.NoError(err)
	assert.Equal("https://www.youtube.com/watch?v=dQw4w9WgXcQ", s.URL())
	_, err = c.Match("https://example.com/view_video?id=1")
	assert.Error(err)
}

func TestEncoding(t *testing.T) {
	assert := assert_.New(t)

	combined := encoding(&youtube.Format{
		ItagNo:        18,
		MimeType:      `video/mp4; codecs="avc1.42001E, mp4a.40.2"`,
		QualityLabel:  "360p",
		Bitrate:       500000,
		Width:         640,
		Height:        360,
		ContentLength: 1000,
		AudioChannels: 2,
	})
	assert.Equal("18", combined.FormatID)
	assert.Equal("mp4", combined.Ext)
	assert.Equal("avc1.42001E", combined.VCodec)
	assert.Equal("mp4a.40.2", combined.ACodec)
	assert.Equal(360, combined.Height.Unwrap())
	assert.Equal(500.0, combined.TBR.Unwrap())
	assert.Equal(int64(1000), combined.Filesize.Unwrap())
	assert.True(combined.HasAudio())

	videoOnly := encoding(&youtube.Format{
		ItagNo:       137,
		MimeType:     `video/mp4; codecs="avc1.640028"`,
		QualityLabel: "1080p",
		Height:       1080,
	})
	assert.True(videoOnly.HasVideo())
	assert.False(videoOnly.HasAudio())
	assert.True(videoOnly.TBR.IsNone())

	audio := encoding(&youtube.Format{
		ItagNo:        140,
		MimeType:      `audio/mp4; codecs="mp4a.40.2"`,
		AudioChannels: 2,
	})
	assert.False(audio.HasVideo())
	assert.Equal("mp4a.40.2", audio.ACodec)
}

func TestSplitMimeType(t *testing.T) {
	assert := assert_.New(t)
	mimeType, codecs := splitMimeType(`video/webm; codecs="vp9"`)
	assert.Equal("video/webm", mimeType)
	assert.Equal([]string{"vp9"}, codecs)
	mimeType, codecs = splitMimeType("video/mp4")
	assert.Equal("video/mp4", mimeType)
	assert.Equal([]string{"unknown"}, codecs)
}
