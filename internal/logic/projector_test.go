package logic

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/mcstats/exporter/internal/models"
)

func mustStats(t *testing.T, raw string) models.Stats {
	t.Helper()
	stats, err := models.ParseStats([]byte(raw))
	if err != nil {
		t.Fatalf("ParseStats failed: %v", err)
	}
	return stats
}

func testPlayer(t *testing.T, raw string) *models.Player {
	return &models.Player{
		ID:    "abc",
		Name:  "Alice",
		Stats: mustStats(t, raw),
		Scalars: models.Scalars{
			XPTotal:   1395,
			XPLevel:   30,
			Score:     100,
			Health:    17.5,
			FoodLevel: 20,
		},
	}
}

func byKey(obs []Observation) map[SeriesKey]Observation {
	out := make(map[SeriesKey]Observation, len(obs))
	for _, o := range obs {
		out[o.Key] = o
	}
	return out
}

func TestProject_EndToEndExample(t *testing.T) {
	p := NewProjector(zap.NewNop())
	player := testPlayer(t, `{"stats": {"minecraft:mined": {"minecraft:stone": 42}}}`)

	obs, err := p.Project(player)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if len(obs) != 6 {
		t.Fatalf("len(obs) = %d, want 6 (1 stat + 5 scalars)", len(obs))
	}

	got := byKey(obs)

	mined, ok := got[SeriesKey{PlayerID: "abc", Category: models.CategoryMined, Type: "stone"}]
	if !ok {
		t.Fatalf("missing mined/stone observation in %v", obs)
	}
	if mined.Name != "mc_mined" {
		t.Errorf("Name = %q, want mc_mined", mined.Name)
	}
	if mined.Labels["player"] != "Alice" || mined.Labels["type"] != "stone" {
		t.Errorf("Labels = %v", mined.Labels)
	}
	if mined.Value != 42 {
		t.Errorf("Value = %v, want 42", mined.Value)
	}
	if mined.Help != "collected stats for category `mined`" {
		t.Errorf("Help = %q", mined.Help)
	}

	score, ok := got[SeriesKey{PlayerID: "abc", Scalar: models.ScalarScore}]
	if !ok {
		t.Fatal("missing score observation")
	}
	if score.Name != "mc_score" || score.Value != 100 {
		t.Errorf("score = %+v", score)
	}
	if len(score.Labels) != 1 || score.Labels["player"] != "Alice" {
		t.Errorf("score labels = %v, want only player", score.Labels)
	}
}

func TestProject_MissingCategoryYieldsNothing(t *testing.T) {
	p := NewProjector(zap.NewNop())
	player := testPlayer(t, `{"stats": {"minecraft:mined": {"minecraft:stone": 1}}}`)

	obs, err := p.Project(player)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	for _, o := range obs {
		if o.Key.Category == models.CategoryBroken {
			t.Errorf("unexpected broken observation %+v", o)
		}
	}
}

func TestProject_ScalarsAreUnconditional(t *testing.T) {
	tests := []struct {
		name  string
		stats string
	}{
		{"Empty stats", `{"stats": {}}`},
		{"All categories", `{"stats": {
			"minecraft:mined": {"minecraft:stone": 1},
			"minecraft:crafted": {"minecraft:torch": 2},
			"minecraft:broken": {"minecraft:iron_pickaxe": 3},
			"minecraft:custom": {"minecraft:jump": 4},
			"minecraft:picked_up": {"minecraft:dirt": 5},
			"minecraft:killed_by": {"minecraft:creeper": 6},
			"minecraft:used": {"minecraft:bread": 7},
			"minecraft:dropped": {"minecraft:cobblestone": 8},
			"minecraft:killed": {"minecraft:zombie": 9}
		}}`},
		{"Unknown categories only", `{"stats": {"modded:things": {"x": 1}}}`},
	}

	p := NewProjector(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, err := p.Project(testPlayer(t, tt.stats))
			if err != nil {
				t.Fatalf("Project failed: %v", err)
			}

			scalars := 0
			for _, o := range obs {
				if o.Key.IsScalar() {
					scalars++
				}
			}
			if scalars != 5 {
				t.Errorf("scalar observations = %d, want 5", scalars)
			}
		})
	}
}

func TestProject_AllCategoriesExported(t *testing.T) {
	p := NewProjector(zap.NewNop())
	player := testPlayer(t, `{"stats": {
		"minecraft:mined": {"minecraft:stone": 1},
		"minecraft:crafted": {"minecraft:torch": 2},
		"minecraft:broken": {"minecraft:iron_pickaxe": 3},
		"minecraft:custom": {"minecraft:jump": 4},
		"minecraft:picked_up": {"minecraft:dirt": 5},
		"minecraft:killed_by": {"minecraft:creeper": 6},
		"minecraft:used": {"minecraft:bread": 7},
		"minecraft:dropped": {"minecraft:cobblestone": 8},
		"minecraft:killed": {"minecraft:zombie": 9}
	}}`)

	obs, err := p.Project(player)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}

	names := make(map[string]bool)
	for _, o := range obs {
		names[o.Name] = true
	}
	for _, want := range []string{
		"mc_mined", "mc_crafted", "mc_broken", "mc_custom", "mc_picked_up",
		"mc_killed_by", "mc_used", "mc_dropped", "mc_killed",
		"mc_xp_total", "mc_xp_level", "mc_score", "mc_health", "mc_food_level",
	} {
		if !names[want] {
			t.Errorf("missing metric %s", want)
		}
	}
}

func TestProject_NonNumericValue(t *testing.T) {
	tests := []struct {
		name  string
		stats string
	}{
		{"String leaf", `{"stats": {"minecraft:mined": {"minecraft:stone": "42"}}}`},
		{"Object leaf", `{"stats": {"minecraft:used": {"minecraft:bread": {"n": 1}}}}`},
		{"Bool leaf", `{"stats": {"minecraft:custom": {"minecraft:jump": true}}}`},
		{"Null leaf", `{"stats": {"minecraft:killed": {"minecraft:zombie": null}}}`},
	}

	p := NewProjector(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Project(testPlayer(t, tt.stats))
			if !errors.Is(err, models.ErrNonNumericValue) {
				t.Errorf("err = %v, want ErrNonNumericValue", err)
			}
		})
	}
}

func TestProject_UniqueKeysAndRepeatable(t *testing.T) {
	p := NewProjector(zap.NewNop())
	player := testPlayer(t, `{"stats": {
		"minecraft:mined": {"minecraft:stone": 42, "stone": 40, "minecraft:dirt": 3},
		"minecraft:custom": {"minecraft:jump": 12.5}
	}}`)

	first, err := p.Project(player)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}

	keys := byKey(first)
	if len(keys) != len(first) {
		t.Errorf("duplicate series keys: %d observations, %d unique", len(first), len(keys))
	}

	stone := keys[SeriesKey{PlayerID: "abc", Category: models.CategoryMined, Type: "stone"}]
	if stone.Value != 42 {
		t.Errorf("stone = %v, want the namespaced value 42", stone.Value)
	}

	for i := 0; i < 10; i++ {
		again, err := p.Project(player)
		if err != nil {
			t.Fatalf("Project failed: %v", err)
		}
		againKeys := byKey(again)
		if len(againKeys) != len(keys) {
			t.Fatalf("run %d: %d keys, want %d", i, len(againKeys), len(keys))
		}
		for k, o := range keys {
			if againKeys[k].Value != o.Value {
				t.Errorf("run %d: %s = %v, want %v", i, k, againKeys[k].Value, o.Value)
			}
		}
	}
}

func TestSeriesKey_NameNotPartOfIdentity(t *testing.T) {
	p := NewProjector(zap.NewNop())

	before := testPlayer(t, `{"stats": {"minecraft:mined": {"minecraft:stone": 1}}}`)
	after := testPlayer(t, `{"stats": {"minecraft:mined": {"minecraft:stone": 1}}}`)
	after.Name = "Alice2"

	a, _ := p.Project(before)
	b, _ := p.Project(after)

	ka, kb := byKey(a), byKey(b)
	for k := range ka {
		if _, ok := kb[k]; !ok {
			t.Errorf("key %s changed after rename", k)
		}
	}
}
