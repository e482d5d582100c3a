// Package metrics exposes Prometheus collectors for the archiver service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	articlesTotal      *prometheus.CounterVec
	fetchRetriesTotal  prometheus.Counter
	searchQueriesTotal prometheus.Counter
	searchDocsScanned  prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		articlesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_articles_total",
				Help: "Total number of articles processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "archiver_fetch_retries_total",
				Help: "Total number of fetch retry attempts.",
			},
		)

		searchQueriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "archiver_search_queries_total",
				Help: "Total number of keyword search queries served.",
			},
		)

		searchDocsScanned = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "archiver_search_documents_scanned_total",
				Help: "Total number of stored documents scanned across all queries.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveArticle increments the article counter for the given outcome
// (stored, skipped, or failed).
func ObserveArticle(outcome string) {
	if articlesTotal == nil {
		return
	}
	articlesTotal.WithLabelValues(outcome).Inc()
}

// ObserveFetchRetry increments the fetch retry counter.
func ObserveFetchRetry() {
	if fetchRetriesTotal == nil {
		return
	}
	fetchRetriesTotal.Inc()
}

// ObserveSearch records one query and the number of documents it scanned.
func ObserveSearch(scanned int) {
	if searchQueriesTotal == nil {
		return
	}
	searchQueriesTotal.Inc()
	searchDocsScanned.Add(float64(scanned))
}
