package report

import (
	"fmt"
	"image"
	"io"

	"github.com/anthonynsimon/bild/histogram"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/andaleebali/terraclass/internal/raster"
)

// BandStats summarizes one band's histogram.
type BandStats struct {
	Band string  `json:"band"`
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	// ZeroFraction is the share of samples at zero. On the fourth band
	// it measures mask coverage.
	ZeroFraction float64 `json:"zero_fraction"`
}

// TileStats computes per-band statistics from the image histogram.
// 16-bit sources quantize to 256 bins, which is plenty for judging
// exposure and mask coverage by eye.
func TileStats(img image.Image) []BandStats {
	h := histogram.NewRGBAHistogram(img)
	return []BandStats{
		bandStats("red", h.R.Bins),
		bandStats("green", h.G.Bins),
		bandStats("blue", h.B.Bins),
		bandStats("alpha/nir", h.A.Bins),
	}
}

func bandStats(name string, bins []int) BandStats {
	s := BandStats{Band: name, Min: -1}
	total := 0
	sum := 0
	for v, count := range bins {
		if count == 0 {
			continue
		}
		if s.Min < 0 {
			s.Min = v
		}
		s.Max = v
		total += count
		sum += v * count
	}
	if total == 0 {
		s.Min = 0
		return s
	}
	s.Mean = float64(sum) / float64(total)
	s.ZeroFraction = float64(bins[0]) / float64(total)
	return s
}

// WriteTileInfo renders tile metadata and band statistics as tables.
func WriteTileInfo(w io.Writer, info *raster.TileInfo, stats []BandStats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendRow(table.Row{"path", info.Path})
	t.AppendRow(table.Row{"format", info.Format})
	t.AppendRow(table.Row{"dimensions", fmt.Sprintf("%dx%d", info.Width, info.Height)})
	t.AppendRow(table.Row{"depth", info.ColorDepth})
	t.AppendRow(table.Row{"alpha", info.HasAlpha})
	t.AppendRow(table.Row{"file size", fmt.Sprintf("%d bytes", info.FileSizeBytes)})
	t.Render()

	fmt.Fprintln(w)

	bt := table.NewWriter()
	bt.SetOutputMirror(w)
	bt.SetStyle(table.StyleLight)
	bt.AppendHeader(table.Row{"band", "min", "max", "mean", "zero"})
	for _, s := range stats {
		bt.AppendRow(table.Row{
			s.Band,
			s.Min,
			s.Max,
			fmt.Sprintf("%.1f", s.Mean),
			fmt.Sprintf("%.1f%%", 100*s.ZeroFraction),
		})
	}
	bt.Render()
}
