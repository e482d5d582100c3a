// Package archive defines the shared domain types and interfaces for the
// newsletter article archive.
package archive

import (
	"context"
	"net/http"
	"time"
)

// Post is a single entry from a publication's archive listing API.
type Post struct {
	Title        string `json:"title"`
	CanonicalURL string `json:"canonical_url"`
	Audience     string `json:"audience"`
	Type         string `json:"type"`
}

// Publication is a single entry from the category leaderboard API.
type Publication struct {
	Subdomain string `json:"subdomain"`
	Language  string `json:"language"`
}

// Response is the decoded result of one resilient fetch.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       string
}

// SearchResult is one ranked hit from a keyword query. It is materialized
// transiently per query and never persisted.
type SearchResult struct {
	Score  float64 `json:"score"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	File   string  `json:"file"`
}

// Fetcher performs a resilient HTTP GET and returns the decoded body.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Response, error)
}

// DocumentStore owns the sharded on-disk archive layout. All article reads
// and writes go through it so the sharding invariant stays in one place.
type DocumentStore interface {
	Exists(id string) (bool, error)
	Write(id string, body string) error
	Read(hash string) (string, error)
	WalkDocs(fn func(name, body string) error) error
}

// Hasher computes hex digests for content addressing.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
