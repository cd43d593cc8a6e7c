package crawl

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// UnknownTitle stands in for a page title that could not be found or fetched.
const UnknownTitle = "Unknown Title"

// Title fetches a page and returns its <title>, or its first <h1>, or UnknownTitle. Fetch errors are logged and
// also give UnknownTitle.
func (c *Crawler) Title(ctx context.Context, pageURL string) string {
	doc, err := c.fetch(ctx, pageURL, c.config.TitleTimeout)
	if err != nil {
		c.log.Warnw("could not fetch page title", "url", pageURL, "error", err)
		return UnknownTitle
	}
	if title, ok := ExtractTitle(doc); ok {
		return title
	}
	return UnknownTitle
}

// ExtractTitle returns the text of the first <title> if it is not blank, else that of the first <h1>.
func ExtractTitle(doc *goquery.Document) (string, bool) {
	for _, selector := range []string{"title", "h1"} {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return strings.Join(strings.Fields(text), " "), true
		}
	}
	return "", false
}

// IsUnknownTitle reports whether title is the placeholder.
func IsUnknownTitle(title string) bool {
	return title == "" || title == UnknownTitle
}
