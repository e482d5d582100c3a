// Package discovery enumerates candidate article URLs for an author and
// candidate author subdomains for a category, via the platform's paginated
// archive and leaderboard APIs.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stackdown/stackdown/internal/archive"
)

const (
	// archivePageSize is the fixed page size of the archive listing API.
	archivePageSize = 20
	// archiveOffsetCeiling is the hard stop for archive pagination.
	archiveOffsetCeiling = 300
)

// Config controls discovery behavior.
type Config struct {
	// BaseHost is the platform's apex host, e.g. "substack.com".
	BaseHost string
	// CourtesyDelay is the pause between paginated requests.
	CourtesyDelay time.Duration
}

// Discoverer pages the platform listing APIs.
type Discoverer struct {
	fetcher archive.Fetcher
	cfg     Config
	logger  *zap.Logger
}

// New creates a Discoverer.
func New(fetcher archive.Fetcher, cfg Config, logger *zap.Logger) *Discoverer {
	if cfg.BaseHost == "" {
		cfg.BaseHost = "substack.com"
	}
	if cfg.CourtesyDelay == 0 {
		cfg.CourtesyDelay = time.Second
	}
	return &Discoverer{fetcher: fetcher, cfg: cfg, logger: logger}
}

// ArticlesForAuthor enumerates canonical article URLs from the author's
// archive listing. It stops when maxCount is reached, the offset ceiling is
// hit, or a page comes back empty. Only fully public, non-audio posts are
// kept, deduplicated in discovery order; a post sliding across page
// boundaries mid-pagination shows up only once. A page fetch failure stops
// pagination and returns what was gathered so far rather than propagating
// the error.
func (d *Discoverer) ArticlesForAuthor(ctx context.Context, subdomain string, maxCount int) ([]string, error) {
	var urls []string
	seen := make(map[string]struct{})
	for offset := 0; offset < archiveOffsetCeiling && len(urls) < maxCount; offset += archivePageSize {
		if offset > 0 && !sleep(ctx, d.cfg.CourtesyDelay) {
			return urls, ctx.Err()
		}

		url := fmt.Sprintf("https://%s.%s/api/v1/archive?sort=new&search=&offset=%d&limit=%d",
			subdomain, d.cfg.BaseHost, offset, archivePageSize)
		resp, err := d.fetcher.Fetch(ctx, url)
		if err != nil {
			d.logger.Warn("archive page fetch failed, stopping pagination",
				zap.String("subdomain", subdomain),
				zap.Int("offset", offset),
				zap.Error(err),
			)
			return urls, nil
		}

		var posts []archive.Post
		if err := json.Unmarshal([]byte(resp.Body), &posts); err != nil {
			return urls, fmt.Errorf("parse archive page for %s: %w", subdomain, err)
		}
		if len(posts) == 0 {
			break
		}
		for _, post := range posts {
			if post.Audience != "everyone" || post.Type == "podcast" {
				continue
			}
			if _, ok := seen[post.CanonicalURL]; ok {
				continue
			}
			seen[post.CanonicalURL] = struct{}{}
			urls = append(urls, post.CanonicalURL)
			if len(urls) >= maxCount {
				break
			}
		}
	}
	return urls, nil
}

type leaderboardPage struct {
	Publications []archive.Publication `json:"publications"`
	More         bool                  `json:"more"`
}

// SubdomainsForCategory enumerates publication subdomains from the category
// leaderboard, paging until its more-results flag goes false. Only English
// language entries are kept, deduplicated in discovery order.
func (d *Discoverer) SubdomainsForCategory(ctx context.Context, categoryID int) ([]string, error) {
	var subs []string
	seen := make(map[string]struct{})
	for page := 0; ; page++ {
		if page > 0 && !sleep(ctx, d.cfg.CourtesyDelay) {
			return subs, ctx.Err()
		}

		url := fmt.Sprintf("https://%s/api/v1/category/public/%d/all?page=%d", d.cfg.BaseHost, categoryID, page)
		resp, err := d.fetcher.Fetch(ctx, url)
		if err != nil {
			d.logger.Warn("leaderboard page fetch failed, stopping pagination",
				zap.Int("category", categoryID),
				zap.Int("page", page),
				zap.Error(err),
			)
			return subs, nil
		}

		var lp leaderboardPage
		if err := json.Unmarshal([]byte(resp.Body), &lp); err != nil {
			return subs, fmt.Errorf("parse leaderboard page for category %d: %w", categoryID, err)
		}
		for _, pub := range lp.Publications {
			if pub.Language != "en" || pub.Subdomain == "" {
				continue
			}
			if _, ok := seen[pub.Subdomain]; ok {
				continue
			}
			seen[pub.Subdomain] = struct{}{}
			subs = append(subs, pub.Subdomain)
		}
		if !lp.More {
			break
		}
	}
	return subs, nil
}

// sleep pauses for the courtesy delay; false means the context finished.
func sleep(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
