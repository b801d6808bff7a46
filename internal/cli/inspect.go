package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/andaleebali/terraclass/internal/config"
	"github.com/andaleebali/terraclass/internal/dataset"
	"github.com/andaleebali/terraclass/internal/raster"
	"github.com/andaleebali/terraclass/internal/report"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var writeMontage bool

	cmd := &cobra.Command{
		Use:   "inspect [tile]",
		Short: "Summarize the dataset or a single tile",
		Long: `Inspect without arguments summarizes the dataset behind the map file:
tile count, class frequencies, and the tile dimensions and sample
depth. With --write-montage it also renders a strip of sample tiles to
the montage path.

With a tile path it prints that tile's dimensions, format, sample
depth and per-band statistics instead.`,
		Example: `  terraclass inspect
  terraclass inspect --map-file data/map.txt --write-montage
  terraclass inspect data/tiles/tile_042.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return inspectTile(cmd, args[0])
			}
			return inspectDataset(cmd, writeMontage)
		},
	}
	cmd.Flags().BoolVar(&writeMontage, "write-montage", false, "render sample tiles to the montage path")
	return cmd
}

func inspectTile(cmd *cobra.Command, path string) error {
	info, err := raster.LoadInfo(path)
	if err != nil {
		return err
	}
	img, err := decodeImageFile(path)
	if err != nil {
		return err
	}
	report.WriteTileInfo(cmd.OutOrStdout(), info, report.TileStats(img))
	return nil
}

func inspectDataset(cmd *cobra.Command, writeMontage bool) error {
	ctx := cmd.Context()
	cfg, err := GetConfig(ctx)
	if err != nil {
		return err
	}

	entries, err := dataset.ReadMapFile(cfg.MapFile, cfg.DataDir)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	labels := make([]string, len(entries))
	for i, e := range entries {
		label, err := dataset.ReadLabel(e.LabelPath)
		if err != nil {
			return err
		}
		labels[i] = label
		counts[label]++
	}

	// The first tile stands in for the dataset's dimensions and depth;
	// train rejects tiles that disagree.
	info, err := raster.LoadInfo(entries[0].ImagePath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	writeDatasetSummary(out, cfg, len(entries), counts, info)

	if !writeMontage {
		return nil
	}
	if err := saveSampleMontage(cfg, entries, labels, info); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nWrote sample montage to %s\n", cfg.MontagePath)
	return nil
}

func writeDatasetSummary(w io.Writer, cfg *config.Config, tiles int, counts map[string]int, info *raster.TileInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendRow(table.Row{"map file", cfg.MapFile})
	t.AppendRow(table.Row{"tiles", tiles})
	t.AppendRow(table.Row{"classes", len(counts)})
	t.AppendRow(table.Row{"tile size", fmt.Sprintf("%dx%d", info.Width, info.Height)})
	t.AppendRow(table.Row{"color depth", info.ColorDepth})
	t.AppendRow(table.Row{"format", info.Format})
	t.Render()

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	ct := table.NewWriter()
	ct.SetOutputMirror(w)
	ct.SetStyle(table.StyleLight)
	ct.AppendHeader(table.Row{"label", "tiles", "share"})
	for _, label := range labels {
		share := 100 * float64(counts[label]) / float64(tiles)
		ct.AppendRow(table.Row{label, counts[label], fmt.Sprintf("%.1f%%", share)})
	}
	ct.Render()
}

// saveSampleMontage renders the first tiles of the dataset with their
// labels, without a trained model in the loop.
func saveSampleMontage(cfg *config.Config, entries []dataset.Entry, labels []string, info *raster.TileInfo) error {
	mode, err := raster.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}

	n := len(entries)
	if n > montageTiles {
		n = montageTiles
	}
	cells := make([]report.MontageCell, 0, n)
	var sampleMax float64
	for i := 0; i < n; i++ {
		tile, err := raster.Load(entries[i].ImagePath)
		if err != nil {
			return err
		}
		features, err := raster.FeatureVector(tile, mode)
		if err != nil {
			return fmt.Errorf("tile %s: %w", entries[i].ImagePath, err)
		}
		if tile.SampleMax > sampleMax {
			sampleMax = tile.SampleMax
		}
		cells = append(cells, report.MontageCell{Features: features, TrueLabel: labels[i]})
	}
	return report.SaveMontage(cfg.MontagePath, cells, mode, info.Width, info.Height, sampleMax)
}
