package crawl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingPage = `<html><head><title>Listing</title></head><body>
<a href="/view_video.php?viewkey=1">one</a>
<a href="view_video.php?viewkey=2">two (relative)</a>
<a href="https://other.example/view_video.php?viewkey=3">three (absolute)</a>
<a href="/about">about</a>
<a href="/contact">contact</a>
<a href="/videos">videos</a>
<a href="/categories">categories</a>
<a href="mailto:view_video@example.com">mail</a>
<a href="#top">top</a>
<a>no href</a>
<a href="">empty</a>
</body></html>`

func parse(t *testing.T, html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractLinks(t *testing.T) {
	assert := assert_.New(t)
	base, _ := url.Parse("https://site.example/list/index.html")

	links := ExtractLinks(parse(t, listingPage), base, DefaultMarker)
	assert.Equal([]string{
		"https://other.example/view_video.php?viewkey=3",
		"https://site.example/list/view_video.php?viewkey=2",
		"https://site.example/view_video.php?viewkey=1",
	}, links)
	for _, link := range links {
		u, err := url.Parse(link)
		assert.NoError(err)
		assert.True(u.IsAbs())
		assert.Contains(link, DefaultMarker)
	}
}

func TestExtractLinks_DuplicateByResolution(t *testing.T) {
	assert := assert_.New(t)
	base, _ := url.Parse("https://site.example/")

	// 10 anchors: 7 that do not match, 3 that do, two of which resolve to the same URL
	html := `<body>
<a href="/a">1</a><a href="/b">2</a><a href="/c">3</a><a href="/d">4</a>
<a href="/e">5</a><a href="/f">6</a><a href="/g">7</a>
<a href="/view_video?id=1">8</a>
<a href="https://site.example/view_video?id=1">9</a>
<a href="view_video?id=2">10</a>
</body>`
	links := ExtractLinks(parse(t, html), base, DefaultMarker)
	assert.Equal([]string{
		"https://site.example/view_video?id=1",
		"https://site.example/view_video?id=2",
	}, links)
}

func TestExtractTitle(t *testing.T) {
	assert := assert_.New(t)

	title, ok := ExtractTitle(parse(t, `<html><head><title>  Page
	Title </title></head><body><h1>Heading</h1></body></html>`))
	assert.True(ok)
	assert.Equal("Page Title", title)

	title, ok = ExtractTitle(parse(t, `<html><head><title> </title></head><body><h1>Heading</h1><h1>Second</h1></body></html>`))
	assert.True(ok)
	assert.Equal("Heading", title)

	_, ok = ExtractTitle(parse(t, `<html><body><p>nothing</p></body></html>`))
	assert.False(ok)
}

func newTestServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listingPage))
	})
	mux.HandleFunc("/titled", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>A Video</title></head></html>`))
	})
	mux.HandleFunc("/h1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Only Heading</h1></body></html>`))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	return httptest.NewServer(mux)
}

func TestCrawler_Links(t *testing.T) {
	assert := assert_.New(t)
	srv := newTestServer()
	defer srv.Close()
	c := New(NewConfig())
	ctx := context.Background()

	links, err := c.Links(ctx, srv.URL+"/list")
	assert.NoError(err)
	assert.Len(links, 3)
	assert.Contains(links, srv.URL+"/view_video.php?viewkey=1")

	links, err = c.Links(ctx, srv.URL+"/broken")
	assert.Empty(links)
	var statusErr *StatusError
	assert.True(errors.As(err, &statusErr))
	assert.Equal(http.StatusInternalServerError, statusErr.StatusCode)

	_, err = c.Links(ctx, "  ")
	assert.ErrorIs(err, ErrEmptyURL)
	_, err = c.Links(ctx, "/relative/only")
	assert.Error(err)

	links, err = c.LinksWithMarker(ctx, srv.URL+"/list", "/about")
	assert.NoError(err)
	assert.Equal([]string{srv.URL + "/about"}, links)
}

func TestCrawler_Title(t *testing.T) {
	assert := assert_.New(t)
	srv := newTestServer()
	defer srv.Close()
	config := NewConfig()
	config.TitleTimeout = 100 * time.Millisecond
	c := New(config)
	ctx := context.Background()

	assert.Equal("A Video", c.Title(ctx, srv.URL+"/titled"))
	assert.Equal("Only Heading", c.Title(ctx, srv.URL+"/h1"))
	assert.Equal(UnknownTitle, c.Title(ctx, srv.URL+"/broken"))
	assert.Equal(UnknownTitle, c.Title(ctx, srv.URL+"/slow"))
	assert.Equal(UnknownTitle, c.Title(ctx, "http://127.0.0.1:0/unreachable"))
	assert.True(IsUnknownTitle(UnknownTitle))
	assert.False(IsUnknownTitle("A Video"))
}
