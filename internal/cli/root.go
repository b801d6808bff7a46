// Package cli wires up the terraclass command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/andaleebali/terraclass/internal/config"
)

// Version information, set by ldflags during build.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

type configKey struct{}
type loggerKey struct{}

// NewRootCmd builds the root command with all subcommands attached.
// Configuration loads in PersistentPreRunE so every subcommand sees the
// fully resolved config and a leveled logger on its context.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "terraclass",
		Short: "Random forest land cover classification for raster tiles",
		Long: `terraclass trains and serves a random forest classifier for small
aerial and satellite raster tiles.

A map file pairs each tile image with a Pascal VOC annotation naming
its land cover class. Training extracts per-pixel band features, fits
the forest, prints accuracy and per-class metrics, and writes the
model alongside a Graphviz view of one tree. The trained model then
classifies new tiles from the command line or over HTTP.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "__complete", "version":
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, loggerKey{}, logger)
			cmd.SetContext(ctx)

			if cfg.File != "" {
				logger.Debug("loaded config file", slog.String("path", cfg.File))
			}
			return nil
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("terraclass {{.Version}} (built %s, commit %s)\n", BuildDate, GitCommit))

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default terraclass.yaml in the working directory)")
	pf.Bool("verbose", false, "enable debug logging")
	pf.String("map-file", "map.txt", "map file listing tile and annotation pairs")
	pf.String("data-dir", ".", "directory map file paths are relative to")
	pf.Int("tile-width", 50, "tile width in pixels")
	pf.Int("tile-height", 50, "tile height in pixels")
	pf.String("mode", "rgbn", "feature mode: rgbn or masked-rgb")
	pf.StringSlice("augment", nil, "augmentations per tile: flip, rotate90, rotate:<degrees>")
	pf.Int("workers", 0, "concurrent tile loaders and tree fitters (0 = one per CPU)")
	pf.Float64("test-fraction", 0.2, "share of samples held out for testing")
	pf.Int64("seed", 60, "seed for the split and the forest")
	pf.Int("trees", 100, "trees in the forest")
	pf.Int("max-depth", 0, "maximum tree depth (0 = grow to purity)")
	pf.Int("min-samples-split", 2, "minimum samples to split a node")
	pf.Int("min-samples-leaf", 1, "minimum samples per leaf")
	pf.String("criterion", "gini", "split criterion: gini or entropy")
	pf.Int("max-features", 0, "features tried per split (0 = sqrt of feature count)")
	pf.Bool("bootstrap", true, "bootstrap-resample rows per tree")
	pf.String("model", "model.bin", "model file path")
	pf.String("dot", "tree.dot", "Graphviz export path for the first tree")
	pf.String("montage", "montage.png", "montage image path")
	pf.String("state", "terraclass.db", "run history database path")
	pf.String("addr", ":8080", "HTTP listen address for serve")

	rootCmd.AddCommand(
		NewTrainCommand(),
		NewPredictCommand(),
		NewInspectCommand(),
		NewServeCommand(),
		NewRunsCommand(),
		NewVersionCommand(Version),
	)
	return rootCmd
}

// Execute runs the command tree and reports any error on stderr.
func Execute(ctx context.Context) error {
	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// GetConfig returns the configuration resolved by the root command.
func GetConfig(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// GetLogger returns the command logger, or the default logger when the
// context carries none.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
