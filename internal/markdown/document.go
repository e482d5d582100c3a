package markdown

import (
	"fmt"
	"strings"
	"time"
)

// BuildDocument renders the full stored document for an article: the fixed
// metadata header, title, optional subtitle, date line, then the converted
// body. The header field order is a textual contract the search engine
// depends on; change it only together with the search header extraction.
func (c *Converter) BuildDocument(art *Article, scrapedAt time.Time) (string, error) {
	body, err := c.Convert(art.BodyHTML)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Original URL: %s\n", art.CanonicalURL)
	fmt.Fprintf(&b, "Scraped: %s\n", scrapedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "By %s\n\n", art.Author)
	fmt.Fprintf(&b, "# %s\n\n", art.Title)
	if art.Subtitle != "" {
		fmt.Fprintf(&b, "## %s\n\n", art.Subtitle)
	}
	fmt.Fprintf(&b, "*%s*\n\n", art.PostDate)
	b.WriteString(body)
	return b.String(), nil
}
