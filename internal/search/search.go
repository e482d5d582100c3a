// Package search implements brute-force keyword retrieval over the content
// store. Every query scans all 256 shards; there is no persistent index,
// a deliberate simplicity trade-off at archive scale.
package search

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/stackdown/stackdown/internal/archive"
	"github.com/stackdown/stackdown/internal/metrics"
)

// Engine scores stored documents against keyword queries.
type Engine struct {
	store  archive.DocumentStore
	logger *zap.Logger
}

// New creates an Engine over the given store.
func New(store archive.DocumentStore, logger *zap.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// Search scores every stored document against the keywords and returns the
// top-K results plus the total number of documents scanned. Matching is
// case-insensitive.
func (e *Engine) Search(keywords []string, topK int) ([]archive.SearchResult, int, error) {
	if topK <= 0 {
		return nil, 0, fmt.Errorf("topK must be positive, got %d", topK)
	}

	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}

	results := make([]archive.SearchResult, 0, topK)
	scanned := 0
	err := e.store.WalkDocs(func(name, body string) error {
		scanned++
		if len(lowered) == 0 {
			return nil
		}
		score := scoreDocument(body, lowered)
		if score <= 0 {
			return nil
		}
		// Only consider the document once it beats the worst kept score.
		if len(results) >= topK && score <= results[len(results)-1].Score {
			return nil
		}
		title, author := extractHeader(body)
		results = append(results, archive.SearchResult{
			Score:  score,
			Title:  title,
			Author: author,
			File:   name,
		})
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Score > results[j].Score
		})
		if len(results) > topK {
			results = results[:topK]
		}
		return nil
	})
	if err != nil {
		return nil, scanned, err
	}

	metrics.ObserveSearch(scanned)
	e.logger.Debug("search complete",
		zap.Strings("keywords", lowered),
		zap.Int("scanned", scanned),
		zap.Int("hits", len(results)),
	)
	return results, scanned, nil
}

// scoreDocument implements the ranking formula: the occurrence-weighted sum
// over matched keywords, scaled by the squared matched-keyword ratio and
// normalized by the square root of the document length. Keywords with zero
// occurrences contribute nothing and do not count as matched.
func scoreDocument(body string, keywords []string) float64 {
	text := strings.ToLower(body)
	sum := 0.0
	matched := 0
	for _, kw := range keywords {
		count := countOccurrences(text, kw)
		if count == 0 {
			continue
		}
		matched++
		sum += float64(count) * math.Pow(2, float64(len(kw)))
	}
	if matched == 0 {
		return 0
	}
	ratio := float64(matched) / float64(len(keywords))
	return sum * ratio * ratio / math.Sqrt(float64(len(body)))
}

// countOccurrences counts overlapping occurrences of needle in text by
// advancing one position past each hit.
func countOccurrences(text, needle string) int {
	if needle == "" {
		return 0
	}
	count := 0
	for from := 0; ; {
		idx := strings.Index(text[from:], needle)
		if idx < 0 {
			return count
		}
		count++
		from += idx + 1
	}
}

// extractHeader reads the title and author out of the fixed document header
// produced by the converter: the first "# " heading and the first "By " line.
func extractHeader(body string) (title, author string) {
	for _, line := range strings.Split(body, "\n") {
		if title == "" && strings.HasPrefix(line, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
		if author == "" && strings.HasPrefix(line, "By ") {
			author = strings.TrimSpace(strings.TrimPrefix(line, "By "))
		}
		if title != "" && author != "" {
			break
		}
	}
	return title, author
}
