package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/andaleebali/terraclass/internal/config"
	"github.com/andaleebali/terraclass/internal/dataset"
	"github.com/andaleebali/terraclass/internal/eval"
	"github.com/andaleebali/terraclass/internal/forest"
	"github.com/andaleebali/terraclass/internal/raster"
	"github.com/andaleebali/terraclass/internal/report"
	"github.com/andaleebali/terraclass/internal/state"
)

// montageTiles caps how many tiles the montage renders.
const montageTiles = 12

// NewTrainCommand creates the train command.
func NewTrainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train a random forest on the labeled tile dataset",
		Long: `Train loads the tiles listed in the map file, extracts per-pixel band
features under the configured mode, splits them into train and test
sets, fits a random forest, and prints the evaluation report.

Alongside the model file it writes a Graphviz view of the first tree
and a montage of held-out tiles with their true and predicted labels.
The run is recorded in the local history database; see the runs
command.`,
		Example: `  terraclass train
  terraclass train --map-file data/map.txt --augment flip,rotate90
  terraclass train --trees 200 --criterion entropy --seed 7`,
		Args: cobra.NoArgs,
		RunE: runTrain,
	}
}

func runTrain(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := GetConfig(ctx)
	if err != nil {
		return err
	}
	logger := GetLogger(ctx)

	store, err := state.Open(cfg.StatePath)
	if err != nil {
		return err
	}
	defer store.Close()

	run := &state.Run{
		MapFile:       cfg.MapFile,
		Mode:          cfg.Mode,
		TileWidth:     cfg.TileWidth,
		TileHeight:    cfg.TileHeight,
		Augmentations: strings.Join(cfg.Augment, ","),
		Trees:         cfg.Forest.Trees,
		MaxDepth:      cfg.Forest.MaxDepth,
		Criterion:     cfg.Forest.Criterion,
		Seed:          cfg.Seed,
	}
	if err := store.CreateRun(ctx, run); err != nil {
		return err
	}

	res, err := trainAndEvaluate(ctx, cfg, logger, cmd.OutOrStdout())
	if err != nil {
		if failErr := store.FailRun(ctx, run.ID, err.Error()); failErr != nil {
			logger.Error("failed to record run failure",
				slog.String("run_id", run.ID),
				slog.String("error", failErr.Error()))
		}
		return err
	}
	if err := store.CompleteRun(ctx, run.ID, *res); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nRecorded run %s in %s\n", run.ID, cfg.StatePath)
	return nil
}

// trainAndEvaluate runs the pipeline proper. It is split from runTrain
// so failures can be recorded against the run before they propagate.
func trainAndEvaluate(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*state.Result, error) {
	mode, err := raster.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	augs, err := dataset.ParseAugmentations(cfg.Augment)
	if err != nil {
		return nil, err
	}

	logger.Info("loading dataset",
		slog.String("map_file", cfg.MapFile),
		slog.String("mode", cfg.Mode),
		slog.Int("augmentations", len(augs)))

	loadStart := time.Now()
	ds, err := dataset.Load(ctx, dataset.LoadOptions{
		MapFile:       cfg.MapFile,
		DataDir:       cfg.DataDir,
		TileWidth:     cfg.TileWidth,
		TileHeight:    cfg.TileHeight,
		Mode:          mode,
		Augmentations: augs,
		Workers:       cfg.Workers,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded",
		slog.Int("tiles", ds.TileCount),
		slog.Int("samples", len(ds.Samples)),
		slog.Int("classes", len(ds.Classes)),
		slog.Int("feature_len", ds.FeatureLen()),
		slog.Duration("elapsed", time.Since(loadStart)))

	train, test, err := dataset.TrainTestSplit(ds.Samples, cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, err
	}
	xTrain, yTrain := dataset.Matrix(train)
	xTest, yTest := dataset.Matrix(test)

	f := forest.New(
		forest.WithTrees(cfg.Forest.Trees),
		forest.WithForestMaxDepth(cfg.Forest.MaxDepth),
		forest.WithForestMinSamplesSplit(cfg.Forest.MinSamplesSplit),
		forest.WithForestMinSamplesLeaf(cfg.Forest.MinSamplesLeaf),
		forest.WithForestCriterion(cfg.Forest.Criterion),
		forest.WithForestMaxFeatures(cfg.Forest.MaxFeatures),
		forest.WithBootstrap(cfg.Forest.Bootstrap),
		forest.WithForestSeed(cfg.Seed),
		forest.WithWorkers(cfg.Workers),
	)

	logger.Info("fitting forest",
		slog.Int("trees", cfg.Forest.Trees),
		slog.Int("train_samples", len(train)),
		slog.Int("test_samples", len(test)))
	fitStart := time.Now()
	if err := f.Fit(ctx, xTrain, yTrain, len(ds.Classes)); err != nil {
		return nil, fmt.Errorf("failed to fit forest: %w", err)
	}
	logger.Info("forest fitted", slog.Duration("elapsed", time.Since(fitStart)))

	preds := f.Predict(xTest)
	rep, err := eval.Evaluate(ds.Classes, yTest, preds)
	if err != nil {
		return nil, err
	}
	report.WriteReport(out, rep)

	model := &forest.Model{
		Manifest: forest.Manifest{
			FormatVersion: forest.ModelFormatVersion,
			Classes:       ds.Classes,
			Mode:          cfg.Mode,
			TileWidth:     cfg.TileWidth,
			TileHeight:    cfg.TileHeight,
			Channels:      mode.Channels(),
			SampleMax:     ds.SampleMax,
			TrainedAt:     time.Now().UTC(),
			TrainSamples:  len(train),
			TestSamples:   len(test),
			Augmentations: cfg.Augment,
		},
		Forest: f,
	}
	if err := model.Save(cfg.ModelPath); err != nil {
		return nil, err
	}
	logger.Info("model saved", slog.String("path", cfg.ModelPath))

	if err := exportFirstTree(f, mode, cfg, ds.Classes); err != nil {
		return nil, err
	}
	logger.Info("tree exported", slog.String("path", cfg.DotPath))

	if err := saveTestMontage(cfg, ds, test, preds); err != nil {
		return nil, err
	}
	logger.Info("montage saved", slog.String("path", cfg.MontagePath))

	reportJSON, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}

	return &state.Result{
		TrainSamples: len(train),
		TestSamples:  len(test),
		ClassCount:   len(ds.Classes),
		Accuracy:     rep.Accuracy,
		ModelPath:    cfg.ModelPath,
		ReportJSON:   string(reportJSON),
	}, nil
}

// exportFirstTree writes the forest's first tree as Graphviz DOT, with
// features named after the pixel and band they read.
func exportFirstTree(f *forest.Forest, mode raster.Mode, cfg *config.Config, classes []string) error {
	out, err := os.Create(cfg.DotPath)
	if err != nil {
		return fmt.Errorf("failed to create dot file: %w", err)
	}

	names := forest.FeatureNames(cfg.TileWidth, cfg.TileHeight, mode.BandNames())
	if err := forest.ExportDOT(out, f.Trees[0], names, classes); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// saveTestMontage renders a strip of held-out tiles with their true
// and predicted labels.
func saveTestMontage(cfg *config.Config, ds *dataset.Dataset, test []dataset.Sample, preds []int) error {
	n := len(test)
	if n > montageTiles {
		n = montageTiles
	}
	cells := make([]report.MontageCell, n)
	for i := 0; i < n; i++ {
		cells[i] = report.MontageCell{
			Features:  test[i].Features,
			TrueLabel: test[i].Label,
			PredLabel: ds.Classes[preds[i]],
		}
	}
	return report.SaveMontage(cfg.MontagePath, cells, ds.Mode, ds.TileWidth, ds.TileHeight, ds.SampleMax)
}
