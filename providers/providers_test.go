package providers

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/video-harvester"
)

func TestNewRegistry(t *testing.T) {
	assert := assert_.New(t)
	r, err := NewRegistry(NewConfig())
	assert.NoError(err)
	assert.Equal([]string{"ytdlp", "youtube", "raw"}, r.List())
	assert.Equal([]string{"ytdlp", "youtube", "raw"}, video_harvester.DefaultProviderRegistry.List())

	// Registering twice is refused
	assert.ErrorIs(Register(r, NewConfig()), video_harvester.ErrDuplicateProvider)
}
