// Package worldgen writes world directories in the layout the loader reads.
// It backs the seeder command and test fixtures.
package worldgen

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Tnze/go-mc/nbt"

	"github.com/mcstats/exporter/internal/models"
)

const dataVersion = 3465

// Init creates the playerdata and stats directories under dir.
func Init(dir string) error {
	for _, sub := range []string{"playerdata", "stats"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", sub, err)
		}
	}
	return nil
}

// WriteStats writes stats/<id>.json with the given category -> type -> value tree.
func WriteStats(dir, id string, stats map[string]map[string]any) error {
	if stats == nil {
		stats = map[string]map[string]any{}
	}
	doc := map[string]any{
		"stats":       stats,
		"DataVersion": dataVersion,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding stats: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "stats", id+".json"), data, 0o644)
}

// playerData is the subset of a player save file the exporter reads, with
// the tag types the game writes.
type playerData struct {
	DataVersion int32   `nbt:"DataVersion"`
	XpTotal     int32   `nbt:"XpTotal"`
	XpLevel     int32   `nbt:"XpLevel"`
	Score       int32   `nbt:"Score"`
	Health      float32 `nbt:"Health"`
	FoodLevel   int32   `nbt:"foodLevel"`
}

// WritePlayerData writes playerdata/<id>.dat with the scalar fields.
func WritePlayerData(dir, id string, scalars models.Scalars) error {
	return WriteNBT(filepath.Join(dir, "playerdata", id+".dat"), playerData{
		DataVersion: dataVersion,
		XpTotal:     int32(scalars.XPTotal),
		XpLevel:     int32(scalars.XPLevel),
		Score:       int32(scalars.Score),
		Health:      float32(scalars.Health),
		FoodLevel:   int32(scalars.FoodLevel),
	})
}

// WriteNBT writes v as a gzip-compressed NBT file with an unnamed root compound.
func WriteNBT(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(f)
	if err := nbt.NewEncoder(gz).Encode(v, ""); err != nil {
		f.Close()
		return fmt.Errorf("encoding player data: %w", err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WritePlayer writes both files for one player.
func WritePlayer(dir, id string, stats map[string]map[string]any, scalars models.Scalars) error {
	if err := WriteStats(dir, id, stats); err != nil {
		return err
	}
	return WritePlayerData(dir, id, scalars)
}
