// Package metrics exposes Prometheus collectors for the acquisition
// pipeline.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gardenshed/seedscout/internal/plant"
)

var (
	sourceSearchesTotal        *prometheus.CounterVec
	sourceDetailFetchesTotal   *prometheus.CounterVec
	botBlocksTotal             *prometheus.CounterVec
	imagesDownloadedTotal      prometheus.Counter
	imagesFailedTotal          prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple
// times.
func Init() {
	once.Do(func() {
		sourceSearchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seedscout_source_searches_total",
				Help: "Source search calls, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)
		sourceDetailFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seedscout_source_detail_fetches_total",
				Help: "Detail-page fetches, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)
		botBlocksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seedscout_bot_blocks_total",
				Help: "Anti-automation challenges encountered, labeled by source.",
			},
			[]string{"source"},
		)
		imagesDownloadedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "seedscout_images_downloaded_total",
				Help: "Images successfully downloaded and stored.",
			},
		)
		imagesFailedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "seedscout_images_failed_total",
				Help: "Image downloads that failed and were skipped.",
			},
		)
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seedscout_http_requests_total",
				Help: "HTTP requests served, labeled by method, route and status.",
			},
			[]string{"method", "route", "status"},
		)
		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seedscout_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)
	})
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, plant.ErrTimeout):
		return "timeout"
	case errors.Is(err, plant.ErrSourceDisabled):
		return "disabled"
	default:
		var blocked *plant.BotBlockedError
		if errors.As(err, &blocked) {
			return "blocked"
		}
		return "error"
	}
}

// ObserveSearch records one source search outcome.
func ObserveSearch(source plant.Source, err error) {
	if sourceSearchesTotal == nil {
		return
	}
	sourceSearchesTotal.WithLabelValues(string(source), outcomeLabel(err)).Inc()
	recordBlock(source, err)
}

// ObserveDetailFetch records one detail-page fetch outcome.
func ObserveDetailFetch(source plant.Source, err error) {
	if sourceDetailFetchesTotal == nil {
		return
	}
	sourceDetailFetchesTotal.WithLabelValues(string(source), outcomeLabel(err)).Inc()
	recordBlock(source, err)
}

func recordBlock(source plant.Source, err error) {
	var blocked *plant.BotBlockedError
	if errors.As(err, &blocked) && botBlocksTotal != nil {
		botBlocksTotal.WithLabelValues(string(source)).Inc()
	}
}

// ObserveImage records one image pipeline download attempt.
func ObserveImage(err error) {
	if imagesDownloadedTotal == nil {
		return
	}
	if err != nil {
		imagesFailedTotal.Inc()
		return
	}
	imagesDownloadedTotal.Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
