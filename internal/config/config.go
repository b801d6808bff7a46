// Package config loads terraclass configuration from defaults, an
// optional YAML file, TERRACLASS_ environment variables, and command
// line flags, in rising order of precedence.
package config

import (
	"fmt"

	"github.com/andaleebali/terraclass/internal/forest"
	"github.com/andaleebali/terraclass/internal/raster"
)

// Config file names looked for in the working directory.
const (
	ConfigFileName    = "terraclass.yaml"
	ConfigFileNameAlt = "terraclass.yml"
)

// ForestConfig holds the random forest hyperparameters.
type ForestConfig struct {
	Trees           int    `koanf:"trees"`
	MaxDepth        int    `koanf:"max_depth"`
	MinSamplesSplit int    `koanf:"min_samples_split"`
	MinSamplesLeaf  int    `koanf:"min_samples_leaf"`
	Criterion       string `koanf:"criterion"`
	// MaxFeatures of zero picks sqrt(feature count) per split.
	MaxFeatures int  `koanf:"max_features"`
	Bootstrap   bool `koanf:"bootstrap"`
}

// Config is the resolved configuration for a terraclass invocation.
type Config struct {
	// Dataset.
	MapFile    string   `koanf:"map_file"`
	DataDir    string   `koanf:"data_dir"`
	TileWidth  int      `koanf:"tile_width"`
	TileHeight int      `koanf:"tile_height"`
	Mode       string   `koanf:"mode"`
	Augment    []string `koanf:"augment"`
	// Workers of zero uses one loader per CPU.
	Workers int `koanf:"workers"`

	// Train/test split.
	TestFraction float64 `koanf:"test_fraction"`
	Seed         int64   `koanf:"seed"`

	Forest ForestConfig `koanf:"forest"`

	// Output paths.
	ModelPath   string `koanf:"model_path"`
	DotPath     string `koanf:"dot_path"`
	MontagePath string `koanf:"montage_path"`
	StatePath   string `koanf:"state_path"`

	ServeAddr string `koanf:"serve_addr"`
	Verbose   bool   `koanf:"verbose"`

	// File is the config file the values were loaded from, if any.
	File string `koanf:"-"`
}

// Defaults mirror the original experiment setup: 50x50 tiles, an 80/20
// split seeded with 60, and sklearn's RandomForestClassifier defaults.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"map_file":      "map.txt",
		"data_dir":      ".",
		"tile_width":    50,
		"tile_height":   50,
		"mode":          string(raster.ModeBands),
		"workers":       0,
		"test_fraction": 0.2,
		"seed":          60,

		"forest.trees":             100,
		"forest.max_depth":         0,
		"forest.min_samples_split": 2,
		"forest.min_samples_leaf":  1,
		"forest.criterion":         forest.CriterionGini,
		"forest.max_features":      0,
		"forest.bootstrap":         true,

		"model_path":   "model.bin",
		"dot_path":     "tree.dot",
		"montage_path": "montage.png",
		"state_path":   "terraclass.db",
		"serve_addr":   ":8080",
		"verbose":      false,
	}
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if _, err := raster.ParseMode(c.Mode); err != nil {
		return err
	}
	if _, err := forest.ParseCriterion(c.Forest.Criterion); err != nil {
		return err
	}
	if c.TileWidth <= 0 || c.TileHeight <= 0 {
		return fmt.Errorf("tile size %dx%d is not positive", c.TileWidth, c.TileHeight)
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("test fraction %v is outside (0, 1)", c.TestFraction)
	}
	if c.Forest.Trees <= 0 {
		return fmt.Errorf("forest needs at least one tree, got %d", c.Forest.Trees)
	}
	if c.Forest.MinSamplesSplit < 2 {
		return fmt.Errorf("min samples split %d is below 2", c.Forest.MinSamplesSplit)
	}
	if c.Forest.MinSamplesLeaf < 1 {
		return fmt.Errorf("min samples leaf %d is below 1", c.Forest.MinSamplesLeaf)
	}
	return nil
}
