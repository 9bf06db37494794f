// Package metrics holds the process-wide table of exported player series.
//
// Stat categories are lifetime totals and are exported as counters. The game
// reports absolute values, so each update adds the difference to the value
// last applied. A decrease cannot be expressed by a counter; it is rejected
// with ErrNonMonotonicUpdate and the series keeps its value and baseline.
//
// Scalar fields (health, food level, xp, score) go up and down during normal
// play and are exported as gauges that are set to the observed value.
package metrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mcstats/exporter/internal/logic"
	"github.com/mcstats/exporter/internal/models"
)

type series struct {
	mu      sync.Mutex
	counter prometheus.Counter
	gauge   prometheus.Gauge
	last    float64
}

// Cache maps series keys to registered collectors. A key is registered with
// the Registerer at most once and its series lives for the process lifetime.
type Cache struct {
	registerer prometheus.Registerer
	rejected   *prometheus.CounterVec
	logger     *zap.SugaredLogger

	mu     sync.Mutex
	series map[logic.SeriesKey]*series
}

// NewCache creates an empty cache registering into reg. rejected may be nil.
func NewCache(reg prometheus.Registerer, rejected *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		registerer: reg,
		rejected:   rejected,
		logger:     logger.Sugar(),
		series:     make(map[logic.SeriesKey]*series),
	}
}

// Apply records an absolute value for a series, creating and registering the
// series on first sight. Updates for one key are serialized.
func (c *Cache) Apply(obs logic.Observation) error {
	s, err := c.getOrCreate(obs)
	if err != nil {
		c.reject("duplicate")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gauge != nil {
		s.gauge.Set(obs.Value)
		s.last = obs.Value
		return nil
	}

	delta := obs.Value - s.last
	if delta < 0 {
		c.reject("non_monotonic")
		return fmt.Errorf("%w: %s went from %v to %v", models.ErrNonMonotonicUpdate, obs.Key, s.last, obs.Value)
	}
	if delta > 0 {
		s.counter.Add(delta)
	}
	s.last = obs.Value

	return nil
}

// Value returns the last absolute value applied to a series.
func (c *Cache) Value(key logic.SeriesKey) (float64, bool) {
	c.mu.Lock()
	s, ok := c.series[key]
	c.mu.Unlock()
	if !ok {
		return 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, true
}

// Len returns the number of series created so far.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.series)
}

func (c *Cache) getOrCreate(obs logic.Observation) (*series, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.series[obs.Key]; ok {
		return s, nil
	}

	s := &series{}
	var collector prometheus.Collector
	if obs.Key.IsScalar() {
		s.gauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        obs.Name,
			Help:        obs.Help,
			ConstLabels: obs.Labels,
		})
		collector = s.gauge
	} else {
		s.counter = prometheus.NewCounter(prometheus.CounterOpts{
			Name:        obs.Name,
			Help:        obs.Help,
			ConstLabels: obs.Labels,
		})
		collector = s.counter
	}

	if err := c.registerer.Register(collector); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			// Another key already exports this name and label set, e.g. two
			// players currently sharing a display name.
			return nil, fmt.Errorf("%w: %s as %s%v", models.ErrDuplicateRegistration, obs.Key, obs.Name, obs.Labels)
		}
		return nil, fmt.Errorf("registering %s: %w", obs.Key, err)
	}

	c.series[obs.Key] = s
	c.logger.Debugw("Registered series", "series", obs.Key.String(), "metric", obs.Name)

	return s, nil
}

func (c *Cache) reject(reason string) {
	if c.rejected != nil {
		c.rejected.WithLabelValues(reason).Inc()
	}
}
