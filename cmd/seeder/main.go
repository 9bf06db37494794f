// Command seeder writes a synthetic world with random player stats, for
// exercising the exporter locally.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mcstats/exporter/internal/models"
	"github.com/mcstats/exporter/internal/worldgen"
)

var itemTypes = []string{
	"stone", "dirt", "oak_log", "iron_ore", "diamond_ore",
	"zombie", "skeleton", "creeper", "diamond_sword", "bread",
}

func main() {
	var (
		players int
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "seeder <world-path>",
		Short: "Generate a synthetic world for the exporter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return generate(args[0], players, rand.New(rand.NewSource(seed)), logger.Sugar())
		},
	}
	cmd.Flags().IntVarP(&players, "players", "n", 10, "number of players to generate")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for stat values")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func generate(dir string, players int, rng *rand.Rand, logger *zap.SugaredLogger) error {
	if err := worldgen.Init(dir); err != nil {
		return err
	}

	for i := 0; i < players; i++ {
		id := uuid.New().String()

		stats := make(map[string]map[string]any, len(models.StatCategories))
		for _, c := range models.StatCategories {
			values := make(map[string]any)
			for _, t := range itemTypes {
				if rng.Intn(3) == 0 {
					continue
				}
				values[models.NamespacePrefix+t] = rng.Intn(5000)
			}
			stats[string(c)] = values
		}

		scalars := models.Scalars{
			XPTotal:   float64(rng.Intn(10000)),
			XPLevel:   float64(rng.Intn(50)),
			Score:     float64(rng.Intn(10000)),
			Health:    float64(rng.Intn(21)),
			FoodLevel: float64(rng.Intn(21)),
		}

		if err := worldgen.WritePlayer(dir, id, stats, scalars); err != nil {
			return fmt.Errorf("writing player %s: %w", id, err)
		}
		logger.Infow("Wrote player", "id", id, "categories", len(stats))
	}

	logger.Infow("World generated", "path", dir, "players", players)
	return nil
}
