// Package loader assembles player records from a world directory.
//
// A world directory contains playerdata/<uuid>.dat (gzip NBT save files) and
// stats/<uuid>.json (per-player statistics). The set of players is the set of
// save files.
package loader

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Tnze/go-mc/nbt"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mcstats/exporter/internal/models"
)

const (
	PlayerDataDir = "playerdata"
	StatsDir      = "stats"
)

// NameResolver resolves a player id to a display name.
type NameResolver interface {
	Resolve(ctx context.Context, id string) (string, error)
}

// Loader reads player records from one world directory.
type Loader struct {
	worldPath string
	names     NameResolver
	logger    *zap.SugaredLogger
}

// New creates a loader for worldPath.
func New(worldPath string, names NameResolver, logger *zap.Logger) *Loader {
	return &Loader{
		worldPath: worldPath,
		names:     names,
		logger:    logger.Sugar(),
	}
}

// WorldPath returns the directory the loader reads from.
func (l *Loader) WorldPath() string {
	return l.worldPath
}

// CheckStructure verifies that the player layout exists.
func (l *Loader) CheckStructure() error {
	for _, dir := range []string{PlayerDataDir, StatsDir} {
		p := filepath.Join(l.worldPath, dir)
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", models.ErrMissingStructure, p, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a directory", models.ErrMissingStructure, p)
		}
	}
	return nil
}

// PlayerIDs lists the ids of all players with a save file, sorted.
// It fails with ErrMissingStructure when the layout is absent.
func (l *Loader) PlayerIDs(ctx context.Context) ([]string, error) {
	if err := l.CheckStructure(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(l.worldPath, PlayerDataDir))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMissingStructure, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".dat" {
			continue
		}

		stem := strings.TrimSuffix(entry.Name(), ".dat")
		if _, err := uuid.Parse(stem); err != nil {
			l.logger.Debugw("Skipping non-player file", "file", entry.Name())
			continue
		}
		ids = append(ids, stem)
	}

	sort.Strings(ids)
	return ids, nil
}

// Load assembles the record for one player. Local files are parsed before the
// name is resolved so that a broken save never costs a remote lookup.
func (l *Loader) Load(ctx context.Context, id string) (*models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats, err := l.loadStats(id)
	if err != nil {
		return nil, err
	}

	scalars, err := l.loadScalars(id)
	if err != nil {
		return nil, err
	}

	name, err := l.names.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.Player{
		ID:      id,
		Name:    name,
		Stats:   stats,
		Scalars: scalars,
	}, nil
}

func (l *Loader) loadStats(id string) (models.Stats, error) {
	path := filepath.Join(l.worldPath, StatsDir, id+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stats for %s: %w", id, err)
	}

	stats, err := models.ParseStats(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stats, nil
}

// playerData holds the scalar tags of a player save file. Other tags are
// skipped by the decoder; a field stays nil when its tag is absent.
type playerData struct {
	XpTotal   any `nbt:"XpTotal"`
	XpLevel   any `nbt:"XpLevel"`
	Score     any `nbt:"Score"`
	Health    any `nbt:"Health"`
	FoodLevel any `nbt:"foodLevel"`
}

func (p *playerData) tags() map[string]any {
	return map[string]any{
		"XpTotal":   p.XpTotal,
		"XpLevel":   p.XpLevel,
		"Score":     p.Score,
		"Health":    p.Health,
		"foodLevel": p.FoodLevel,
	}
}

func (l *Loader) loadScalars(id string) (models.Scalars, error) {
	var scalars models.Scalars
	path := filepath.Join(l.worldPath, PlayerDataDir, id+".dat")

	data, err := os.ReadFile(path)
	if err != nil {
		return scalars, fmt.Errorf("reading player data for %s: %w", id, err)
	}

	var r io.Reader = bytes.NewReader(data)
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return scalars, fmt.Errorf("%w: %s: %v", models.ErrParseFailure, path, err)
		}
		defer gz.Close()
		r = gz
	}

	var pd playerData
	if _, err := nbt.NewDecoder(r).Decode(&pd); err != nil {
		return scalars, fmt.Errorf("%w: %s: %v", models.ErrParseFailure, path, err)
	}

	tags := pd.tags()
	for _, spec := range models.ScalarFields {
		raw := tags[spec.Tag]
		if raw == nil {
			return scalars, fmt.Errorf("%w: %s: missing tag %s", models.ErrParseFailure, path, spec.Tag)
		}
		v, ok := number(raw)
		if !ok {
			return scalars, fmt.Errorf("%w: %s: tag %s is %T, not a number", models.ErrParseFailure, path, spec.Tag, raw)
		}
		spec.Set(&scalars, v)
	}

	return scalars, nil
}

// number converts any numeric NBT tag value.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
