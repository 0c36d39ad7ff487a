package metrics

import (
	"github.com/latoulicious/Baguetta/pkg/playback"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "baguetta"

// Collector exports playback activity as Prometheus metrics.
type Collector struct {
	sessionsActive prometheus.Gauge
	sessionsTotal  prometheus.Counter
	tracksStarted  prometheus.Counter
	tracksEnded    *prometheus.CounterVec
	fetchFailures  prometheus.Counter
}

var _ playback.Observer = (*Collector)(nil)

// NewCollector creates the playback metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of guilds with an active playback session.",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Playback sessions created.",
		}),
		tracksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_started_total",
			Help:      "Tracks handed to the audio sink.",
		}),
		tracksEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_ended_total",
			Help:      "Tracks removed from a queue, by outcome.",
		}, []string{"outcome"}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempt_failures_total",
			Help:      "Failed stream fetch attempts, retries included.",
		}),
	}

	for _, col := range []prometheus.Collector{c.sessionsActive, c.sessionsTotal, c.tracksStarted, c.tracksEnded, c.fetchFailures} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) SessionStarted(string) {
	c.sessionsTotal.Inc()
	c.sessionsActive.Inc()
}

func (c *Collector) SessionClosed(string) {
	c.sessionsActive.Dec()
}

func (c *Collector) TrackStarted(string, playback.Track) {
	c.tracksStarted.Inc()
}

func (c *Collector) TrackFinished(_ string, _ playback.Track, skipped bool) {
	if skipped {
		c.tracksEnded.WithLabelValues("skipped").Inc()
		return
	}
	c.tracksEnded.WithLabelValues("finished").Inc()
}

func (c *Collector) TrackFailed(string, playback.Track, error) {
	c.tracksEnded.WithLabelValues("failed").Inc()
}

func (c *Collector) FetchAttemptFailed(string, string, int, error) {
	c.fetchFailures.Inc()
}
