// Package metrics exposes the pipeline's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched tracks pages fetched per source, by outcome.
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealcrawl_pages_fetched_total",
		Help: "The total number of pages fetched, labeled by source and outcome.",
	}, []string{"source", "outcome"})

	// DealsExtracted tracks candidate deals emitted per source.
	DealsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealcrawl_deals_extracted_total",
		Help: "The total number of candidate deals extracted, labeled by source.",
	}, []string{"source"})

	// ItemsDropped tracks pipeline drops by reason.
	ItemsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealcrawl_items_dropped_total",
		Help: "The total number of items dropped, labeled by reason.",
	}, []string{"reason"})

	// Retries tracks retry attempts by retry class.
	Retries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealcrawl_retries_total",
		Help: "The total number of retry attempts, labeled by class.",
	}, []string{"class"})

	// BlockedResponses tracks 403/429 responses per domain.
	BlockedResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealcrawl_blocked_responses_total",
		Help: "The total number of blocked responses, labeled by domain.",
	}, []string{"domain"})

	// PolitenessDelay observes how long fetches waited for their
	// politeness slot.
	PolitenessDelay = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dealcrawl_politeness_delay_seconds",
		Help:    "Time spent waiting for the per-domain politeness slot.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	// FetchDuration observes end-to-end fetch latency.
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dealcrawl_fetch_duration_seconds",
		Help:    "End-to-end page fetch latency.",
		Buckets: prometheus.DefBuckets,
	})

	// RunsTotal tracks completed crawl runs by result.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealcrawl_runs_total",
		Help: "The total number of crawl runs, labeled by result.",
	}, []string{"result"})
)
