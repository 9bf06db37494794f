package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ExporterMetrics describes the exporter's own behaviour.
type ExporterMetrics struct {
	ScrapeDuration prometheus.Histogram
	ScrapesFailed  prometheus.Counter
	PlayersLoaded  prometheus.Counter
	PlayersFailed  *prometheus.CounterVec
	SeriesRejected *prometheus.CounterVec
	SeriesCached   prometheus.Gauge
	NameLookups    *prometheus.CounterVec
}

// NewExporterMetrics creates the exporter metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewExporterMetrics(reg prometheus.Registerer) *ExporterMetrics {
	f := promauto.With(reg)

	return &ExporterMetrics{
		ScrapeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mc_exporter_scrape_duration_seconds",
			Help:    "Duration of a full scrape cycle over all players",
			Buckets: prometheus.DefBuckets,
		}),
		ScrapesFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "mc_exporter_scrapes_failed_total",
			Help: "Total number of scrape cycles aborted by a structural error",
		}),
		PlayersLoaded: f.NewCounter(prometheus.CounterOpts{
			Name: "mc_exporter_players_loaded_total",
			Help: "Total number of player records loaded and projected",
		}),
		PlayersFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mc_exporter_players_failed_total",
			Help: "Total number of player records skipped in a scrape cycle",
		}, []string{"reason"}),
		SeriesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mc_exporter_series_rejected_total",
			Help: "Total number of series updates that were skipped",
		}, []string{"reason"}),
		SeriesCached: f.NewGauge(prometheus.GaugeOpts{
			Name: "mc_exporter_series",
			Help: "Number of player series currently exported",
		}),
		NameLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mc_exporter_name_lookups_total",
			Help: "Player name resolutions by result",
		}, []string{"result"}),
	}
}
