package logic

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mcstats/exporter/internal/models"
)

// SeriesKey identifies one exported series. The player's display name is not
// part of it, so a rename never creates a second series for the same stat.
type SeriesKey struct {
	PlayerID string
	Category models.StatCategory // empty for scalar series
	Type     string              // namespace-stripped type key
	Scalar   models.ScalarField  // empty for category series
}

// IsScalar reports whether the key names a scalar field series.
func (k SeriesKey) IsScalar() bool {
	return k.Scalar != ""
}

func (k SeriesKey) String() string {
	if k.IsScalar() {
		return fmt.Sprintf("%s/%s", k.PlayerID, k.Scalar)
	}
	return fmt.Sprintf("%s/%s/%s", k.PlayerID, k.Category.Name(), k.Type)
}

// Observation is one absolute value for a series, with everything needed to
// create the series on first sight.
type Observation struct {
	Key    SeriesKey
	Name   string
	Help   string
	Labels prometheus.Labels
	Value  float64
}

// Projector maps a player record to observations. It does no I/O and holds no
// state besides its logger.
type Projector struct {
	logger *zap.SugaredLogger
}

// NewProjector creates a projector
func NewProjector(logger *zap.Logger) *Projector {
	return &Projector{logger: logger.Sugar()}
}

// Project returns one observation per stat entry of the tracked categories and
// one per scalar field. Absent categories yield nothing and are only logged.
// A non-numeric stat leaf fails the whole projection with ErrNonNumericValue.
func (p *Projector) Project(player *models.Player) ([]Observation, error) {
	out := make([]Observation, 0, len(models.ScalarFields)+32)

	for _, category := range models.StatCategories {
		entries, ok := player.Stats.Category(category)
		if !ok {
			p.logger.Debugw("Missing category for player",
				"category", category.Name(),
				"player", player.Name,
			)
			continue
		}

		// Type keys with and without the namespace collapse onto one series;
		// the namespaced entry wins.
		seen := make(map[string]bool, len(entries))
		for rawType, rawValue := range entries {
			value, err := toFloat(rawValue)
			if err != nil {
				return nil, fmt.Errorf("%s %s %q: %w", player.ID, category.Name(), rawType, err)
			}

			typ := models.StripNamespace(rawType)
			if seen[typ] {
				if rawType != models.NamespacePrefix+typ {
					continue
				}
				out = dropKey(out, SeriesKey{PlayerID: player.ID, Category: category, Type: typ})
			}
			seen[typ] = true

			out = append(out, Observation{
				Key:  SeriesKey{PlayerID: player.ID, Category: category, Type: typ},
				Name: category.MetricName(),
				Help: category.Help(),
				Labels: prometheus.Labels{
					"player": player.Name,
					"type":   typ,
				},
				Value: value,
			})
		}
	}

	for _, spec := range models.ScalarFields {
		out = append(out, Observation{
			Key:    SeriesKey{PlayerID: player.ID, Scalar: spec.Field},
			Name:   spec.Metric,
			Help:   spec.Help,
			Labels: prometheus.Labels{"player": player.Name},
			Value:  spec.Get(player.Scalars),
		})
	}

	return out, nil
}

func dropKey(obs []Observation, key SeriesKey) []Observation {
	for i := range obs {
		if obs[i].Key == key {
			return append(obs[:i], obs[i+1:]...)
		}
	}
	return obs
}

// toFloat accepts only values the JSON decoder produced as numbers.
func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s", models.ErrNonNumericValue, n)
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, fmt.Errorf("%w: %v (%T)", models.ErrNonNumericValue, v, v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", models.ErrNonNumericValue, f)
	}
	return f, nil
}
