// Package metrics defines the Prometheus collectors of the job pipeline.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// depthTimeout bounds the queue length lookup made on each scrape.
const depthTimeout = 2 * time.Second

// Metrics groups the pipeline collectors. Both the API and the worker build
// one and register it on their own registry.
type Metrics struct {
	JobsSubmitted   prometheus.Counter
	JobsProcessed   *prometheus.CounterVec
	JobDuration     prometheus.Histogram
	MessagesDropped prometheus.Counter
	QueueErrors     prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobs_submitted_total",
			Help: "Jobs accepted and dispatched by the API.",
		}),
		JobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Jobs finished by the worker, by final status.",
		}, []string{"status"}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Time from dequeue to final status.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "messages_dropped_total",
			Help: "Dispatch messages dropped because they could not be parsed.",
		}),
		QueueErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_errors_total",
			Help: "Transport errors while popping from the queue or claiming a job.",
		}),
	}
	reg.MustRegister(m.JobsSubmitted, m.JobsProcessed, m.JobDuration, m.MessagesDropped, m.QueueErrors)
	return m
}

// DepthFunc reports the number of messages waiting in a queue.
type DepthFunc func(ctx context.Context) (int64, error)

type queueDepth struct {
	desc  *prometheus.Desc
	depth DepthFunc
}

// NewQueueDepth returns a collector that reads the queue length on every
// scrape and exposes it as the queue_depth gauge. When the lookup fails the
// sample is omitted for that scrape.
func NewQueueDepth(queue string, depth DepthFunc) prometheus.Collector {
	return &queueDepth{
		desc: prometheus.NewDesc("queue_depth", "Dispatch messages waiting in the queue.",
			nil, prometheus.Labels{"queue": queue}),
		depth: depth,
	}
}

func (c *queueDepth) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *queueDepth) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), depthTimeout)
	defer cancel()

	n, err := c.depth(ctx)
	if err != nil {
		slog.Warn("reading queue depth failed", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n))
}
