// Package worker runs scrape cycles over all players of a world:
// load each player record, project it to observations and apply them to the
// series cache.
//
// Players are processed on a bounded set of goroutines. A failure for one
// player is logged and skips that player only; a missing world layout aborts
// the cycle.
package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mcstats/exporter/internal/logic"
	"github.com/mcstats/exporter/internal/metrics"
	"github.com/mcstats/exporter/internal/models"
)

// PlayerSource enumerates and loads player records
type PlayerSource interface {
	PlayerIDs(ctx context.Context) ([]string, error)
	Load(ctx context.Context, id string) (*models.Player, error)
}

// Projector maps a player record to observations
type Projector interface {
	Project(player *models.Player) ([]logic.Observation, error)
}

// SeriesSink receives observations
type SeriesSink interface {
	Apply(obs logic.Observation) error
	Len() int
}

// ScraperConfig configures the scraper
type ScraperConfig struct {
	WorkerCount int
	Interval    time.Duration // 0 disables background scraping
	Source      PlayerSource
	Projector   Projector
	Sink        SeriesSink
	Metrics     *metrics.ExporterMetrics
	Logger      *zap.Logger
}

// PlayerResult is the outcome for one player in a cycle. Err is nil on success.
type PlayerResult struct {
	ID       string
	Name     string
	Applied  int
	Rejected int
	Err      error
}

// OK reports whether the player was loaded and projected.
func (r PlayerResult) OK() bool {
	return r.Err == nil
}

// BatchOutcome collects the per-player results of one cycle
type BatchOutcome struct {
	Results  []PlayerResult
	Duration time.Duration
}

// Failed returns the results of players that were skipped.
func (b *BatchOutcome) Failed() []PlayerResult {
	var out []PlayerResult
	for _, r := range b.Results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Succeeded returns the number of players that were exported.
func (b *BatchOutcome) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.OK() {
			n++
		}
	}
	return n
}

// Scraper runs scrape cycles
type Scraper struct {
	config  ScraperConfig
	logger  *zap.SugaredLogger
	metrics *metrics.ExporterMetrics

	// cycles allows one scrape cycle in flight; concurrent callers join it
	cycles singleflight.Group

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewScraper creates a scraper
func NewScraper(cfg ScraperConfig) *Scraper {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewExporterMetrics(nil)
	}

	return &Scraper{
		config:  cfg,
		logger:  cfg.Logger.Sugar(),
		metrics: cfg.Metrics,
	}
}

// Background reports whether cycles run on an interval rather than per request.
func (s *Scraper) Background() bool {
	return s.config.Interval > 0
}

// Scrape runs one cycle over all players. It only returns an error when the
// cycle could not run at all.
//
// Cycles never overlap: a call made while a cycle is running waits for that
// cycle and returns its outcome. Every series is therefore updated in the
// order its values were read from disk.
func (s *Scraper) Scrape(ctx context.Context) (*BatchOutcome, error) {
	v, err, shared := s.cycles.Do("scrape", func() (interface{}, error) {
		return s.scrape(ctx)
	})
	if shared {
		s.logger.Debug("Shared an in-flight scrape cycle")
	}
	if err != nil {
		return nil, err
	}
	return v.(*BatchOutcome), nil
}

func (s *Scraper) scrape(ctx context.Context) (*BatchOutcome, error) {
	start := time.Now()

	ids, err := s.config.Source.PlayerIDs(ctx)
	if err != nil {
		s.metrics.ScrapesFailed.Inc()
		s.logger.Errorw("Scrape aborted", "error", err)
		return nil, err
	}

	results := make([]PlayerResult, len(ids))

	var g errgroup.Group
	g.SetLimit(s.config.WorkerCount)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = s.scrapePlayer(ctx, id)
			return nil
		})
	}
	g.Wait()

	outcome := &BatchOutcome{
		Results:  results,
		Duration: time.Since(start),
	}

	s.metrics.ScrapeDuration.Observe(outcome.Duration.Seconds())
	s.metrics.SeriesCached.Set(float64(s.config.Sink.Len()))

	s.logger.Infow("Scrape completed",
		"players", len(ids),
		"exported", outcome.Succeeded(),
		"skipped", len(ids)-outcome.Succeeded(),
		"series", s.config.Sink.Len(),
		"duration", outcome.Duration,
	)

	return outcome, nil
}

// scrapePlayer never returns an error: failures are recorded in the result
func (s *Scraper) scrapePlayer(ctx context.Context, id string) PlayerResult {
	result := PlayerResult{ID: id}

	player, err := s.config.Source.Load(ctx, id)
	if err != nil {
		return s.fail(result, err)
	}
	result.Name = player.Name

	observations, err := s.config.Projector.Project(player)
	if err != nil {
		return s.fail(result, err)
	}

	for _, obs := range observations {
		if err := s.config.Sink.Apply(obs); err != nil {
			result.Rejected++
			s.logger.Warnw("Skipped series update",
				"player", id,
				"name", player.Name,
				"series", obs.Key.String(),
				"error", err,
			)
			continue
		}
		result.Applied++
	}

	s.metrics.PlayersLoaded.Inc()
	return result
}

func (s *Scraper) fail(result PlayerResult, err error) PlayerResult {
	result.Err = err
	s.metrics.PlayersFailed.WithLabelValues(failureReason(err)).Inc()
	s.logger.Errorw("Skipping player", "player", result.ID, "error", err)
	return result
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrNameNotFound):
		return "name_not_found"
	case errors.Is(err, models.ErrParseFailure):
		return "parse_failure"
	case errors.Is(err, models.ErrNonNumericValue):
		return "non_numeric"
	case errors.Is(err, os.ErrNotExist):
		return "missing_file"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "other"
}

// Start runs a cycle immediately and then one per interval until Stop or ctx
// is done. It does nothing when no interval is configured.
func (s *Scraper) Start(ctx context.Context) {
	if !s.Background() {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Infow("Background scraping started",
		"interval", s.config.Interval,
		"workers", s.config.WorkerCount,
	)
}

// Stop halts background scraping and waits for the running cycle to finish.
func (s *Scraper) Stop() {
	if s.cancel == nil {
		return
	}
	s.logger.Info("Stopping background scraping...")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("Background scraping stopped")
}

func (s *Scraper) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Structural errors are logged by Scrape; the next tick retries.
	s.Scrape(ctx)

	for {
		select {
		case <-ticker.C:
			s.Scrape(ctx)
		case <-ctx.Done():
			return
		}
	}
}
