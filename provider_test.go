package video_harvester

import (
	"context"
	"errors"
	"strings"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

type stubSource struct {
	url string
}

func (s *stubSource) URL() string                               { return s.url }
func (s *stubSource) Describe(context.Context) (*Catalog, error) { return &Catalog{}, nil }
func (s *stubSource) Fetch(Download, FetchRequest) error         { return nil }

func prefixMatcher(prefix string) MatchFunc {
	return func(s string) (Source, error) {
		if strings.HasPrefix(s, prefix) {
			return &stubSource{url: s}, nil
		}
		return nil, errors.New("wrong prefix")
	}
}

func TestProviderRegistry_Add(t *testing.T) {
	assert := assert_.New(t)
	var r ProviderRegistry

	assert.ErrorIs(r.Add(Provider{Name: "nomatch"}), ErrInvalidProvider)
	assert.ErrorIs(r.Add(Provider{Match: prefixMatcher("x")}), ErrInvalidProvider)
	assert.NoError(r.Add(Provider{Name: "low", Match: prefixMatcher("http"), Priority: PriorityLowest}))
	assert.NoError(r.Add(Provider{Name: "high", Match: prefixMatcher("https"), Priority: PriorityHighest}))
	assert.NoError(r.Add(Provider{Name: "default", Match: prefixMatcher("https://www")}))
	assert.ErrorIs(r.Add(Provider{Name: "low", Match: prefixMatcher("x")}), ErrDuplicateProvider)
	assert.Equal([]string{"high", "default", "low"}, r.List())

	assert.NoError(r.SetPriority("high", PriorityLowest))
	p, err := r.GetPriority("high")
	assert.NoError(err)
	assert.Equal(PriorityLowest, p)
	// Equal priorities keep their existing order
	assert.Equal([]string{"default", "high", "low"}, r.List())
	assert.NoError(r.SetPriority("low", PriorityDefault+1))
	assert.Equal([]string{"default", "low", "high"}, r.List())
	assert.ErrorIs(r.SetPriority("nope", 0), ErrUnknownProvider)
}

func TestProviderRegistry_Match(t *testing.T) {
	assert := assert_.New(t)
	var r ProviderRegistry
	r.MustAdd(Provider{Name: "https", Match: prefixMatcher("https://")})
	r.MustAdd(Provider{Name: "any-http", Match: prefixMatcher("http"), Priority: PriorityLowest})

	m, err := r.Match("https://example.com/view_video?id=1")
	assert.NoError(err)
	assert.Equal("https", m.ProviderName)

	m, err = r.Match("http://example.com/view_video?id=1")
	assert.NoError(err)
	assert.Equal("any-http", m.ProviderName)

	_, err = r.Match("ftp://example.com")
	assert.ErrorIs(err, ErrNoMatch)
	assert.Contains(err.Error(), "[https]")
	assert.Contains(err.Error(), "[any-http]")

	m, err = r.MatchWith("any-http", "https://example.com")
	assert.NoError(err)
	assert.Equal("any-http", m.ProviderName)
	_, err = r.MatchWith("https", "http://example.com")
	assert.ErrorIs(err, ErrNoMatch)
	_, err = r.MatchWith("nope", "http://example.com")
	assert.ErrorIs(err, ErrUnknownProvider)

	var empty ProviderRegistry
	_, err = empty.Match("https://example.com")
	assert.ErrorIs(err, ErrNoMatch)
}
