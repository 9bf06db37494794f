package models

import (
	"fmt"
	"strings"
)

// NamespacePrefix is the game namespace carried by category and type identifiers.
// It is exactly 10 characters long.
const NamespacePrefix = "minecraft:"

// StripNamespace removes the game namespace from a raw identifier.
// Identifiers without the prefix are returned unchanged, so "minecraft:stone"
// and "stone" name the same stat type.
func StripNamespace(id string) string {
	return strings.TrimPrefix(id, NamespacePrefix)
}

// StatCategory is a raw category identifier as found in a stats file
type StatCategory string

const (
	CategoryMined    StatCategory = "minecraft:mined"
	CategoryCrafted  StatCategory = "minecraft:crafted"
	CategoryBroken   StatCategory = "minecraft:broken"
	CategoryCustom   StatCategory = "minecraft:custom"
	CategoryPickedUp StatCategory = "minecraft:picked_up"
	CategoryKilledBy StatCategory = "minecraft:killed_by"
	CategoryUsed     StatCategory = "minecraft:used"
	CategoryDropped  StatCategory = "minecraft:dropped"
	CategoryKilled   StatCategory = "minecraft:killed"
)

// StatCategories is the closed set of categories exported as metrics.
var StatCategories = [...]StatCategory{
	CategoryMined,
	CategoryCrafted,
	CategoryBroken,
	CategoryCustom,
	CategoryPickedUp,
	CategoryKilledBy,
	CategoryUsed,
	CategoryDropped,
	CategoryKilled,
}

// Name returns the category without its namespace, e.g. "picked_up".
func (c StatCategory) Name() string {
	return StripNamespace(string(c))
}

// MetricName returns the exported metric name, e.g. "mc_picked_up".
func (c StatCategory) MetricName() string {
	return "mc_" + c.Name()
}

// Help returns the exported help text for the category.
func (c StatCategory) Help() string {
	return fmt.Sprintf("collected stats for category `%s`", c.Name())
}

// ScalarField tags one of the fixed numeric fields of a player save file.
type ScalarField string

const (
	ScalarXPTotal   ScalarField = "xp_total"
	ScalarXPLevel   ScalarField = "xp_level"
	ScalarScore     ScalarField = "score"
	ScalarHealth    ScalarField = "health"
	ScalarFoodLevel ScalarField = "food_level"
)

// Scalars holds the fixed-shape numeric fields read from a player save file
type Scalars struct {
	XPTotal   float64
	XPLevel   float64
	Score     float64
	Health    float64
	FoodLevel float64
}

// ScalarSpec describes how a scalar field is read from the save file and exported.
type ScalarSpec struct {
	Field  ScalarField
	Tag    string // NBT tag name in the player file
	Metric string
	Help   string
	Get    func(Scalars) float64
	Set    func(*Scalars, float64)
}

// ScalarFields is the table of exported scalar fields.
var ScalarFields = []ScalarSpec{
	{
		Field: ScalarXPTotal, Tag: "XpTotal", Metric: "mc_xp_total", Help: "total collected xp",
		Get: func(s Scalars) float64 { return s.XPTotal },
		Set: func(s *Scalars, v float64) { s.XPTotal = v },
	},
	{
		Field: ScalarXPLevel, Tag: "XpLevel", Metric: "mc_xp_level", Help: "current player level",
		Get: func(s Scalars) float64 { return s.XPLevel },
		Set: func(s *Scalars, v float64) { s.XPLevel = v },
	},
	{
		Field: ScalarScore, Tag: "Score", Metric: "mc_score", Help: "current player score",
		Get: func(s Scalars) float64 { return s.Score },
		Set: func(s *Scalars, v float64) { s.Score = v },
	},
	{
		Field: ScalarHealth, Tag: "Health", Metric: "mc_health", Help: "current player health",
		Get: func(s Scalars) float64 { return s.Health },
		Set: func(s *Scalars, v float64) { s.Health = v },
	},
	{
		Field: ScalarFoodLevel, Tag: "foodLevel", Metric: "mc_food_level", Help: "current player food level",
		Get: func(s Scalars) float64 { return s.FoodLevel },
		Set: func(s *Scalars, v float64) { s.FoodLevel = v },
	},
}

// Player is the record assembled for one player during a scrape cycle.
// It is not modified after construction.
type Player struct {
	ID      string
	Name    string
	Stats   Stats
	Scalars Scalars
}
