package cli

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/andaleebali/terraclass/internal/forest"
	"github.com/andaleebali/terraclass/internal/raster"
)

// prediction is one classified tile in predict's output.
type prediction struct {
	Tile  string             `json:"tile"`
	Label string             `json:"label"`
	Votes map[string]float64 `json:"votes"`
}

// NewPredictCommand creates the predict command.
func NewPredictCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "predict <tile>...",
		Short: "Classify tile images with the trained model",
		Long: `Predict loads the trained model and classifies each tile image given
on the command line, printing the winning label and the share of trees
that voted for it. Tiles are resized to the model's training size when
their dimensions differ.`,
		Example: `  terraclass predict tile_042.png
  terraclass predict --json exports/*.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, args, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print predictions as JSON")
	return cmd
}

func runPredict(cmd *cobra.Command, args []string, asJSON bool) error {
	ctx := cmd.Context()
	cfg, err := GetConfig(ctx)
	if err != nil {
		return err
	}
	logger := GetLogger(ctx)

	model, err := forest.LoadModel(cfg.ModelPath)
	if err != nil {
		return err
	}
	mode, err := raster.ParseMode(model.Manifest.Mode)
	if err != nil {
		return fmt.Errorf("model manifest: %w", err)
	}
	logger.Debug("model loaded",
		slog.String("path", cfg.ModelPath),
		slog.Int("classes", len(model.Manifest.Classes)),
		slog.Int("trees", len(model.Forest.Trees)))

	m := model.Manifest
	results := make([]prediction, 0, len(args))
	for _, path := range args {
		img, err := decodeImageFile(path)
		if err != nil {
			return err
		}
		features, err := raster.ExtractFeatures(img, m.TileWidth, m.TileHeight, mode, m.SampleMax)
		if err != nil {
			return fmt.Errorf("tile %s: %w", path, err)
		}
		label, fractions, err := model.Classify(features)
		if err != nil {
			return fmt.Errorf("tile %s: %w", path, err)
		}

		votes := make(map[string]float64, len(m.Classes))
		for i, c := range m.Classes {
			votes[c] = fractions[i]
		}
		results = append(results, prediction{Tile: path, Label: label, Votes: votes})
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	writePredictions(out, results)
	return nil
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tile: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("tile %s: failed to decode: %w", path, err)
	}
	return img, nil
}

func writePredictions(w io.Writer, results []prediction) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"tile", "label", "vote share"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Tile, r.Label, fmt.Sprintf("%.2f", r.Votes[r.Label])})
	}
	t.Render()
}
