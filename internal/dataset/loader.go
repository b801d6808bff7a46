package dataset

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/andaleebali/terraclass/internal/raster"
)

// Augmentation is one extra variant generated per tile.
type Augmentation struct {
	// Name is the config spelling, e.g. "flip" or "rotate90".
	Name string

	flip  bool
	angle float64
}

// ParseAugmentations validates augmentation names from config.
// Recognized forms are "flip", "rotate90" and "rotate:<degrees>".
func ParseAugmentations(names []string) ([]Augmentation, error) {
	out := make([]Augmentation, 0, len(names))
	for _, name := range names {
		a, err := parseAugmentation(name)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func parseAugmentation(name string) (Augmentation, error) {
	switch {
	case name == "flip":
		return Augmentation{Name: name, flip: true}, nil
	case name == "rotate90":
		return Augmentation{Name: name, angle: 90}, nil
	case strings.HasPrefix(name, "rotate:"):
		deg, err := strconv.ParseFloat(strings.TrimPrefix(name, "rotate:"), 64)
		if err != nil {
			return Augmentation{}, fmt.Errorf("bad rotation angle in augmentation %q: %w", name, err)
		}
		return Augmentation{Name: name, angle: deg}, nil
	}
	return Augmentation{}, fmt.Errorf("unknown augmentation %q (want flip, rotate90 or rotate:<degrees>)", name)
}

// Sample is one labeled feature vector: a tile under one augmentation
// variant.
type Sample struct {
	TilePath string
	// Variant is "base" for the unaugmented tile, otherwise the
	// augmentation name that produced it.
	Variant  string
	Label    string
	Class    int
	Features []float64
}

// Dataset is the fully assembled training input.
type Dataset struct {
	Samples []Sample
	// Classes holds the distinct labels in id order.
	Classes    []string
	Mode       raster.Mode
	TileWidth  int
	TileHeight int
	// SampleMax is the full-scale sample value of the source tiles.
	SampleMax float64
	// TileCount is the number of distinct tiles before augmentation.
	TileCount int
}

// FeatureLen returns the length every feature vector in the dataset has.
func (d *Dataset) FeatureLen() int {
	return d.TileWidth * d.TileHeight * d.Mode.Channels()
}

// LoadOptions configures dataset assembly.
type LoadOptions struct {
	MapFile       string
	DataDir       string
	TileWidth     int
	TileHeight    int
	Mode          raster.Mode
	Augmentations []Augmentation
	// Workers bounds concurrent tile loads. Zero means one per CPU.
	Workers int
}

// Load reads the map file and assembles the dataset, decoding tiles
// concurrently. Samples come back grouped by map-file row with the base
// variant first, so output order does not depend on scheduling.
func Load(ctx context.Context, opts LoadOptions) (*Dataset, error) {
	entries, err := ReadMapFile(opts.MapFile, opts.DataDir)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	perEntry := make([][]Sample, len(entries))
	maxes := make([]float64, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			samples, sampleMax, err := loadEntry(entry, opts)
			if err != nil {
				return err
			}
			perEntry[i] = samples
			maxes[i] = sampleMax
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := &Dataset{
		Mode:       opts.Mode,
		TileWidth:  opts.TileWidth,
		TileHeight: opts.TileHeight,
		TileCount:  len(entries),
	}
	labels := make([]string, 0, len(entries))
	for i, samples := range perEntry {
		ds.Samples = append(ds.Samples, samples...)
		labels = append(labels, samples[0].Label)

		// Raw band features are only comparable across tiles of one
		// sample depth.
		if opts.Mode == raster.ModeBands && maxes[i] != maxes[0] {
			return nil, fmt.Errorf("tile %s: %v-bit samples in a %v-bit dataset", entries[i].ImagePath, depthBits(maxes[i]), depthBits(maxes[0]))
		}
		if maxes[i] > ds.SampleMax {
			ds.SampleMax = maxes[i]
		}
	}

	enc := NewLabelEncoder(labels)
	ds.Classes = enc.Classes()
	for i := range ds.Samples {
		class, err := enc.Encode(ds.Samples[i].Label)
		if err != nil {
			return nil, err
		}
		ds.Samples[i].Class = class
	}
	return ds, nil
}

func loadEntry(entry Entry, opts LoadOptions) ([]Sample, float64, error) {
	tile, err := raster.Load(entry.ImagePath)
	if err != nil {
		return nil, 0, err
	}
	if tile.Width != opts.TileWidth || tile.Height != opts.TileHeight {
		return nil, 0, fmt.Errorf("tile %s: got %dx%d, want %dx%d", entry.ImagePath, tile.Width, tile.Height, opts.TileWidth, opts.TileHeight)
	}

	label, err := ReadLabel(entry.LabelPath)
	if err != nil {
		return nil, 0, err
	}

	base, err := raster.Preprocess(tile, opts.Mode)
	if err != nil {
		return nil, 0, fmt.Errorf("tile %s: %w", entry.ImagePath, err)
	}

	samples := make([]Sample, 0, 1+len(opts.Augmentations))
	samples = append(samples, Sample{
		TilePath: entry.ImagePath,
		Variant:  "base",
		Label:    label,
		Features: raster.Interleave(base, tile.Width, tile.Height),
	})

	for _, aug := range opts.Augmentations {
		var planes [][]float64
		if aug.flip {
			// Flip the raw tile so the mask flips along with the
			// bands, then preprocess the flipped view.
			planes, err = raster.Preprocess(tile.FlipVertical(), opts.Mode)
			if err != nil {
				return nil, 0, fmt.Errorf("tile %s (%s): %w", entry.ImagePath, aug.Name, err)
			}
		} else {
			planes = raster.RotatePlanes(base, tile.Width, tile.Height, aug.angle)
		}
		samples = append(samples, Sample{
			TilePath: entry.ImagePath,
			Variant:  aug.Name,
			Label:    label,
			Features: raster.Interleave(planes, tile.Width, tile.Height),
		})
	}
	return samples, tile.SampleMax, nil
}

func depthBits(sampleMax float64) int {
	if sampleMax > 255 {
		return 16
	}
	return 8
}

// Matrix converts samples into the feature matrix and class vector the
// classifier trains on, preserving sample order.
func Matrix(samples []Sample) ([][]float64, []int) {
	x := make([][]float64, len(samples))
	y := make([]int, len(samples))
	for i, s := range samples {
		x[i] = s.Features
		y[i] = s.Class
	}
	return x, y
}
