package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stackdown/stackdown/internal/archive"
	"github.com/stackdown/stackdown/internal/bulk"
	"github.com/stackdown/stackdown/internal/discovery"
	"github.com/stackdown/stackdown/internal/hash/sha256"
	"github.com/stackdown/stackdown/internal/markdown"
	"github.com/stackdown/stackdown/internal/store"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// fakeFetcher serves canned bodies and counts requests per URL.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls map[string]int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (archive.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[url]++
	body, ok := f.pages[url]
	if !ok {
		return archive.Response{}, errors.New("no page for " + url)
	}
	return archive.Response{StatusCode: http.StatusOK, Body: body}, nil
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// articlePage renders a minimal article page whose preload script carries
// the given post fields.
func articlePage(t *testing.T, title, canonicalURL, bodyHTML string) string {
	t.Helper()
	payload := map[string]any{
		"post": map[string]any{
			"title":            title,
			"post_date":        "2026-02-01T10:00:00.000Z",
			"canonical_url":    canonicalURL,
			"body_html":        bodyHTML,
			"publishedBylines": []map[string]any{{"name": "Alice"}},
		},
		"pub": map[string]any{"name": "Alice Writes"},
	}
	inner, err := json.Marshal(payload)
	require.NoError(t, err)
	literal, err := json.Marshal(string(inner))
	require.NoError(t, err)
	return `<html><head><script>window._preloads = JSON.parse(` + string(literal) + `);</script></head><body></body></html>`
}

func archiveListing(posts ...archive.Post) string {
	body, _ := json.Marshal(posts)
	return string(body)
}

func newTestPipeline(t *testing.T, fetcher archive.Fetcher) (*Pipeline, *store.Store) {
	t.Helper()
	logger := zap.NewNop()
	st, err := store.New(store.Config{BaseDir: t.TempDir()}, sha256.New())
	require.NoError(t, err)
	disc := discovery.New(fetcher, discovery.Config{BaseHost: "substack.com", CourtesyDelay: time.Millisecond}, logger)
	exec := bulk.New()
	t.Cleanup(exec.Shutdown)
	clock := fixedClock{now: time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)}
	return New(fetcher, markdown.New(logger), st, disc, exec, clock, logger), st
}

func TestDownloadAuthorStoresArticles(t *testing.T) {
	t.Parallel()

	oneURL := "https://alice.substack.com/p/one"
	twoURL := "https://alice.substack.com/p/two"
	f := &fakeFetcher{pages: map[string]string{
		"https://alice.substack.com/api/v1/archive?sort=new&search=&offset=0&limit=20": archiveListing(
			archive.Post{CanonicalURL: oneURL, Audience: "everyone", Type: "newsletter"},
			archive.Post{CanonicalURL: twoURL, Audience: "everyone", Type: "newsletter"},
		),
		"https://alice.substack.com/api/v1/archive?sort=new&search=&offset=20&limit=20": `[]`,
		oneURL: articlePage(t, "Post One", oneURL, "<p>First body.</p>"),
		twoURL: articlePage(t, "Post Two", twoURL, "<p>Second body.</p>"),
	}}

	p, st := newTestPipeline(t, f)
	require.NoError(t, p.DownloadAuthor(context.Background(), "alice", 50, false))

	for _, id := range []string{"alice/one", "alice/two"} {
		ok, err := st.Exists(id)
		require.NoError(t, err)
		assert.True(t, ok, "expected %s to be stored", id)
	}

	digest, err := st.HashID("alice/one")
	require.NoError(t, err)
	doc, err := st.Read(digest)
	require.NoError(t, err)
	assert.Contains(t, doc, "Original URL: "+oneURL+"\n")
	assert.Contains(t, doc, "Scraped: 2026-02-02T12:00:00Z\n")
	assert.Contains(t, doc, "# Post One\n")
	assert.Contains(t, doc, "First body.\n")
}

func TestDownloadAuthorSkipExisting(t *testing.T) {
	t.Parallel()

	url := "https://alice.substack.com/p/one"
	f := &fakeFetcher{pages: map[string]string{
		"https://alice.substack.com/api/v1/archive?sort=new&search=&offset=0&limit=20": archiveListing(
			archive.Post{CanonicalURL: url, Audience: "everyone", Type: "newsletter"},
		),
	}}

	p, st := newTestPipeline(t, f)
	require.NoError(t, st.Write("alice/one", "already archived"))

	require.NoError(t, p.DownloadAuthor(context.Background(), "alice", 50, true))
	assert.Zero(t, f.callCount(url), "stored article must not be re-fetched")

	digest, err := st.HashID("alice/one")
	require.NoError(t, err)
	doc, err := st.Read(digest)
	require.NoError(t, err)
	assert.Equal(t, "already archived", doc, "existing document must not be overwritten")
}

func TestDownloadAuthorSkipsFailedArticles(t *testing.T) {
	t.Parallel()

	badURL := "https://alice.substack.com/p/bad"
	goodURL := "https://alice.substack.com/p/good"
	f := &fakeFetcher{pages: map[string]string{
		"https://alice.substack.com/api/v1/archive?sort=new&search=&offset=0&limit=20": archiveListing(
			archive.Post{CanonicalURL: badURL, Audience: "everyone", Type: "newsletter"},
			archive.Post{CanonicalURL: goodURL, Audience: "everyone", Type: "newsletter"},
		),
		badURL:  articlePage(t, "Bad", badURL, "<canvas></canvas>"),
		goodURL: articlePage(t, "Good", goodURL, "<p>fine</p>"),
	}}

	p, st := newTestPipeline(t, f)
	require.NoError(t, p.DownloadAuthor(context.Background(), "alice", 50, false))

	ok, err := st.Exists("alice/bad")
	require.NoError(t, err)
	assert.False(t, ok, "unconvertible article must not be stored")

	ok, err = st.Exists("alice/good")
	require.NoError(t, err)
	assert.True(t, ok, "one bad article must not stop the rest")
}

func TestDownloadAuthorSkipsURLsWithoutSlug(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]string{
		"https://alice.substack.com/api/v1/archive?sort=new&search=&offset=0&limit=20": archiveListing(
			archive.Post{CanonicalURL: "https://alice.substack.com/about", Audience: "everyone", Type: "newsletter"},
		),
	}}

	p, _ := newTestPipeline(t, f)
	require.NoError(t, p.DownloadAuthor(context.Background(), "alice", 50, false))
	assert.Zero(t, f.callCount("https://alice.substack.com/about"), "unidentifiable URL fails before fetch")
}

func TestDownloadCategoryFansOutPerAuthor(t *testing.T) {
	t.Parallel()

	aliceURL := "https://alice.substack.com/p/one"
	bobURL := "https://bob.substack.com/p/two"
	f := &fakeFetcher{pages: map[string]string{
		"https://substack.com/api/v1/category/public/4/all?page=0": `{
			"publications":[
				{"subdomain":"alice","language":"en"},
				{"subdomain":"bob","language":"en"}
			],
			"more":false
		}`,
		"https://alice.substack.com/api/v1/archive?sort=new&search=&offset=0&limit=20": archiveListing(
			archive.Post{CanonicalURL: aliceURL, Audience: "everyone", Type: "newsletter"},
		),
		"https://bob.substack.com/api/v1/archive?sort=new&search=&offset=0&limit=20": archiveListing(
			archive.Post{CanonicalURL: bobURL, Audience: "everyone", Type: "newsletter"},
		),
		aliceURL: articlePage(t, "One", aliceURL, "<p>a</p>"),
		bobURL:   articlePage(t, "Two", bobURL, "<p>b</p>"),
	}}

	p, st := newTestPipeline(t, f)
	require.NoError(t, p.DownloadCategory(context.Background(), 4, 50))

	for _, id := range []string{"alice/one", "bob/two"} {
		ok, err := st.Exists(id)
		require.NoError(t, err)
		assert.True(t, ok, "expected %s to be stored", id)
	}
}

func TestDownloadAllContinuesPastCategoryFailure(t *testing.T) {
	t.Parallel()

	url := "https://alice.substack.com/p/one"
	f := &fakeFetcher{pages: map[string]string{
		// category 1 has no leaderboard pages and yields nothing; category 4 succeeds
		"https://substack.com/api/v1/category/public/4/all?page=0": `{
			"publications":[{"subdomain":"alice","language":"en"}],
			"more":false
		}`,
		"https://alice.substack.com/api/v1/archive?sort=new&search=&offset=0&limit=20": archiveListing(
			archive.Post{CanonicalURL: url, Audience: "everyone", Type: "newsletter"},
		),
		url: articlePage(t, "One", url, "<p>a</p>"),
	}}

	p, st := newTestPipeline(t, f)
	require.NoError(t, p.DownloadAll(context.Background(), []int{1, 4}, 50))

	ok, err := st.Exists("alice/one")
	require.NoError(t, err)
	assert.True(t, ok)
}
