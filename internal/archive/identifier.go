package archive

import (
	"fmt"
	"strings"
)

// slugMarkers are the path segments that precede an article slug in a
// canonical article URL.
var slugMarkers = []string{"/p/", "/p-", "/cp/", "/cp-"}

// ArticleID derives the stable identifier for an article from its author
// subdomain and canonical URL. Identical source articles always yield the
// same identifier across re-scrapes.
func ArticleID(subdomain, canonicalURL string) (string, error) {
	for _, marker := range slugMarkers {
		idx := strings.Index(canonicalURL, marker)
		if idx < 0 {
			continue
		}
		slug := strings.TrimSuffix(canonicalURL[idx+len(marker):], "/")
		if i := strings.IndexAny(slug, "?#"); i >= 0 {
			slug = slug[:i]
		}
		if slug == "" {
			return "", fmt.Errorf("empty article slug in %q", canonicalURL)
		}
		return subdomain + "/" + slug, nil
	}
	return "", fmt.Errorf("no article slug marker in %q", canonicalURL)
}
