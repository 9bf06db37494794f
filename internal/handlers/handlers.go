package handlers

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mcstats/exporter/internal/worker"
)

// Scraper runs scrape cycles
type Scraper interface {
	Scrape(ctx context.Context) (*worker.BatchOutcome, error)
	Background() bool
}

// StructureChecker verifies the world layout
type StructureChecker interface {
	CheckStructure() error
	WorldPath() string
}

// Pinger checks a Redis connection
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type Config struct {
	Scraper        Scraper
	World          StructureChecker
	Gatherer       prometheus.Gatherer
	Redis          Pinger // optional
	AllowedOrigins []string
	Logger         *zap.Logger
}

type Handler struct {
	scraper        Scraper
	world          StructureChecker
	gatherer       prometheus.Gatherer
	redis          Pinger
	allowedOrigins []string
	logger         *zap.SugaredLogger
}

func New(cfg Config) *Handler {
	return &Handler{
		scraper:        cfg.Scraper,
		world:          cfg.World,
		gatherer:       cfg.Gatherer,
		redis:          cfg.Redis,
		allowedOrigins: cfg.AllowedOrigins,
		logger:         cfg.Logger.Sugar(),
	}
}
