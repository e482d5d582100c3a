// Package pipeline ties discovery, fetching, conversion, and storage into
// the per-author and per-category download routines.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stackdown/stackdown/internal/archive"
	"github.com/stackdown/stackdown/internal/bulk"
	"github.com/stackdown/stackdown/internal/discovery"
	"github.com/stackdown/stackdown/internal/markdown"
	"github.com/stackdown/stackdown/internal/metrics"
)

// Pipeline orchestrates article downloads into the content store.
type Pipeline struct {
	fetcher   archive.Fetcher
	converter *markdown.Converter
	store     archive.DocumentStore
	disc      *discovery.Discoverer
	exec      *bulk.Executor
	clock     archive.Clock
	logger    *zap.Logger
}

// New constructs a Pipeline.
func New(
	fetcher archive.Fetcher,
	converter *markdown.Converter,
	store archive.DocumentStore,
	disc *discovery.Discoverer,
	exec *bulk.Executor,
	clock archive.Clock,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		converter: converter,
		store:     store,
		disc:      disc,
		exec:      exec,
		clock:     clock,
		logger:    logger,
	}
}

// DownloadAuthor discovers and stores up to maxCount articles for one
// author subdomain. A single article's failure is logged and skipped; it
// never aborts the rest of the loop.
func (p *Pipeline) DownloadAuthor(ctx context.Context, subdomain string, maxCount int, skipExisting bool) error {
	urls, err := p.disc.ArticlesForAuthor(ctx, subdomain, maxCount)
	if err != nil {
		return fmt.Errorf("discover articles for %s: %w", subdomain, err)
	}
	p.logger.Info("author discovery complete",
		zap.String("subdomain", subdomain),
		zap.Int("articles", len(urls)),
	)

	for _, url := range urls {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.downloadArticle(ctx, subdomain, url, skipExisting); err != nil {
			metrics.ObserveArticle("failed")
			p.logger.Warn("article failed, skipping",
				zap.String("subdomain", subdomain),
				zap.String("url", url),
				zap.Error(err),
			)
		}
	}
	return nil
}

// downloadArticle runs one article's fetch, convert, store sequence. The
// store write happens only after fetch and convert fully succeed, so a
// cancellation mid-flight never leaves a partial file behind.
func (p *Pipeline) downloadArticle(ctx context.Context, subdomain, url string, skipExisting bool) error {
	id, err := archive.ArticleID(subdomain, url)
	if err != nil {
		return err
	}
	if skipExisting {
		exists, err := p.store.Exists(id)
		if err != nil {
			return err
		}
		if exists {
			metrics.ObserveArticle("skipped")
			p.logger.Debug("article already stored", zap.String("id", id))
			return nil
		}
	}

	resp, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch article: %w", err)
	}
	art, err := markdown.ExtractArticle(resp.Body)
	if err != nil {
		return fmt.Errorf("extract article: %w", err)
	}
	doc, err := p.converter.BuildDocument(art, p.clock.Now())
	if err != nil {
		return fmt.Errorf("convert article: %w", err)
	}
	if err := p.store.Write(id, doc); err != nil {
		return fmt.Errorf("store article: %w", err)
	}

	metrics.ObserveArticle("stored")
	p.logger.Info("article stored", zap.String("id", id))
	return nil
}

// DownloadCategory resolves the category's subdomains and downloads each
// author concurrently through the bulk executor. Skip-existing is always
// on at category scale so re-runs never re-fetch the whole graph.
func (p *Pipeline) DownloadCategory(ctx context.Context, categoryID int, maxPerAuthor int) error {
	subs, err := p.disc.SubdomainsForCategory(ctx, categoryID)
	if err != nil {
		return fmt.Errorf("discover category %d: %w", categoryID, err)
	}
	p.logger.Info("category discovery complete",
		zap.Int("category", categoryID),
		zap.Int("authors", len(subs)),
	)

	tasks := make([]bulk.Task, 0, len(subs))
	for _, sub := range subs {
		subdomain := sub
		tasks = append(tasks, func(taskCtx context.Context) error {
			return p.DownloadAuthor(mergeCancel(ctx, taskCtx), subdomain, maxPerAuthor, true)
		})
	}
	results, err := p.exec.RunAll(tasks)
	if err != nil {
		return fmt.Errorf("run category downloads: %w", err)
	}
	for _, res := range results {
		if res.Err != nil {
			p.logger.Warn("author download failed",
				zap.String("subdomain", subs[res.Index]),
				zap.Error(res.Err),
			)
		}
	}
	return nil
}

// DownloadAll runs DownloadCategory for each configured category in turn.
func (p *Pipeline) DownloadAll(ctx context.Context, categories []int, maxPerAuthor int) error {
	for _, id := range categories {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.DownloadCategory(ctx, id, maxPerAuthor); err != nil {
			p.logger.Error("category download failed", zap.Int("category", id), zap.Error(err))
		}
	}
	return nil
}

// mergeCancel derives a context that is cancelled when either parent is.
func mergeCancel(a, b context.Context) context.Context {
	merged, cancel := context.WithCancel(a)
	go func() {
		defer cancel()
		select {
		case <-a.Done():
		case <-b.Done():
		case <-merged.Done():
		}
	}()
	return merged
}
