// Package names resolves player ids to display names.
package names

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mcstats/exporter/internal/models"
)

// Lookup performs one remote name lookup for a player id.
type Lookup interface {
	LookupName(ctx context.Context, id string) (string, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, id string) (string, error)

func (f LookupFunc) LookupName(ctx context.Context, id string) (string, error) {
	return f(ctx, id)
}

// Resolver caches player names in memory and falls back to a remote Lookup on a miss.
// Entries are never evicted. The cache lock is never held during the remote call.
type Resolver struct {
	lookup  Lookup
	logger  *zap.SugaredLogger
	lookups *prometheus.CounterVec

	mu    sync.RWMutex
	names map[string]string
}

// NewResolver creates an empty resolver. lookups may be nil.
func NewResolver(lookup Lookup, lookups *prometheus.CounterVec, logger *zap.Logger) *Resolver {
	return &Resolver{
		lookup:  lookup,
		logger:  logger.Sugar(),
		lookups: lookups,
		names:   make(map[string]string),
	}
}

// Resolve returns the display name for id.
// On a miss it performs exactly one remote lookup; failures are not cached.
func (r *Resolver) Resolve(ctx context.Context, id string) (string, error) {
	r.mu.RLock()
	name, ok := r.names[id]
	r.mu.RUnlock()

	if ok {
		r.logger.Debugw("Got name from cache", "player", id)
		r.count("hit")
		return name, nil
	}

	r.logger.Debugw("Fetching name from directory", "player", id)
	name, err := r.lookup.LookupName(ctx, id)
	if err != nil || name == "" {
		r.count("error")
		r.logger.Errorw("No name found for player", "player", id, "error", err)
		if err == nil {
			return "", fmt.Errorf("%w: %s: empty name", models.ErrNameNotFound, id)
		}
		return "", fmt.Errorf("%w: %s: %v", models.ErrNameNotFound, id, err)
	}
	r.count("miss")

	// Concurrent misses for the same id may both land here; last write wins.
	r.mu.Lock()
	r.names[id] = name
	r.mu.Unlock()

	return name, nil
}

// Len returns the number of cached names.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

func (r *Resolver) count(result string) {
	if r.lookups != nil {
		r.lookups.WithLabelValues(result).Inc()
	}
}
