package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "altrates"

// Collector holds the service collectors on a private registry.
type Collector struct {
	registry *prometheus.Registry

	feedMessages   *prometheus.CounterVec
	feedReconnects *prometheus.CounterVec
	feedState      *prometheus.GaugeVec

	merges     *prometheus.CounterVec
	rejections *prometheus.CounterVec
	rates      *prometheus.GaugeVec

	cacheLookups *prometheus.CounterVec

	baselineDuration *prometheus.HistogramVec

	historyRows   prometheus.Counter
	historyErrors prometheus.Counter
}

// NewCollector creates and registers all collectors under namespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.feedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "messages_total",
			Help:      "Total number of messages received per feed",
		},
		[]string{"feed"},
	)

	c.feedReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of reconnect attempts per feed",
		},
		[]string{"feed"},
	)

	c.feedState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "state",
			Help:      "Current connection state (0=disconnected, 1=connecting, 2=connected, 3=error, 4=lost, 5=closed)",
		},
		[]string{"feed"},
	)

	c.merges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "merges_total",
			Help:      "Total number of candidate tables merged into the store",
		},
		[]string{"source"},
	)

	c.rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "rejections_total",
			Help:      "Total number of candidate tables rejected",
		},
		[]string{"source", "kind"},
	)

	c.rates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "rate",
			Help:      "Current canonical rate from src to dst",
		},
		[]string{"src", "dst"},
	)

	c.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of cache lookups by key family and result",
		},
		[]string{"family", "result"},
	)

	c.baselineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "baseline",
			Name:      "fetch_duration_seconds",
			Help:      "Time taken to build the baseline ticker table",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"result"},
	)

	c.historyRows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "history",
		Name:      "rows_total",
		Help:      "Total number of rate rows written to the history database",
	})

	c.historyErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "history",
		Name:      "errors_total",
		Help:      "Total number of failed history writes",
	})

	c.registry.MustRegister(
		c.feedMessages,
		c.feedReconnects,
		c.feedState,
		c.merges,
		c.rejections,
		c.rates,
		c.cacheLookups,
		c.baselineDuration,
		c.historyRows,
		c.historyErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordFeedMessage(feed string) {
	if c == nil {
		return
	}
	c.feedMessages.WithLabelValues(feed).Inc()
}

func (c *Collector) RecordFeedReconnect(feed string) {
	if c == nil {
		return
	}
	c.feedReconnects.WithLabelValues(feed).Inc()
}

func (c *Collector) RecordFeedState(feed string, state int) {
	if c == nil {
		return
	}
	c.feedState.WithLabelValues(feed).Set(float64(state))
}

func (c *Collector) RecordMerge(source string) {
	if c == nil {
		return
	}
	c.merges.WithLabelValues(source).Inc()
}

func (c *Collector) RecordRejection(source, kind string) {
	if c == nil {
		return
	}
	c.rejections.WithLabelValues(source, kind).Inc()
}

func (c *Collector) RecordRate(src, dst string, rate float64) {
	if c == nil {
		return
	}
	c.rates.WithLabelValues(src, dst).Set(rate)
}

func (c *Collector) RecordCacheLookup(family string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(family, result).Inc()
}

func (c *Collector) RecordBaselineFetch(duration time.Duration, err error) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	c.baselineDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func (c *Collector) RecordHistoryRows(n int) {
	if c == nil {
		return
	}
	c.historyRows.Add(float64(n))
}

func (c *Collector) RecordHistoryError() {
	if c == nil {
		return
	}
	c.historyErrors.Inc()
}
