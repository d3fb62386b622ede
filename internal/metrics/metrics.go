package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes playback scheduling metrics. It satisfies the
// playback package's Metrics interface.
type Collector struct {
	registry *prometheus.Registry

	playbacksStarted *prometheus.CounterVec
	playbacksFailed  *prometheus.CounterVec
	queueRejections  *prometheus.CounterVec
	normalizations   *prometheus.CounterVec
}

// New creates a collector with its own registry.
func New() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: registry,
		playbacksStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxclip_playbacks_started_total",
			Help: "Clips handed to the streaming loop.",
		}, []string{"guild_id"}),
		playbacksFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxclip_playbacks_failed_total",
			Help: "Clip streams that ended in an error.",
		}, []string{"guild_id"}),
		queueRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxclip_queue_rejections_total",
			Help: "Play requests rejected because the guild queue was full.",
		}, []string{"guild_id"}),
		normalizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxclip_normalizations_total",
			Help: "Loudness normalization jobs by result.",
		}, []string{"result"}),
	}
	registry.MustRegister(c.playbacksStarted, c.playbacksFailed, c.queueRejections, c.normalizations)
	return c
}

func (c *Collector) PlaybackStarted(guildID string) {
	c.playbacksStarted.WithLabelValues(guildID).Inc()
}

func (c *Collector) PlaybackFailed(guildID string) {
	c.playbacksFailed.WithLabelValues(guildID).Inc()
}

func (c *Collector) QueueRejected(guildID string) {
	c.queueRejections.WithLabelValues(guildID).Inc()
}

// NormalizationFinished records a normalization outcome ("updated",
// "skipped", "error").
func (c *Collector) NormalizationFinished(result string) {
	c.normalizations.WithLabelValues(result).Inc()
}

// Handler serves the /metrics endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
