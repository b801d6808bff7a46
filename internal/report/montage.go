package report

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/andaleebali/terraclass/internal/raster"
)

// MontageCell is one tile of the montage: a stored feature vector with
// its true and predicted labels. PredLabel may be empty for montages of
// unclassified samples.
type MontageCell struct {
	Features  []float64
	TrueLabel string
	PredLabel string
}

const (
	montageScale = 2 // tiles render at twice native size
	montagePad   = 10
	lineHeight   = 14
	glyphWidth   = 7 // basicfont.Face7x13 advance
)

// TilePreview rebuilds an 8-bit RGB preview from a feature vector. Raw
// band features scale down by sampleMax; masked features are already in
// [0, 1]. Only the visible bands render.
func TilePreview(features []float64, width, height int, mode raster.Mode, sampleMax float64) (*image.NRGBA, error) {
	channels := mode.Channels()
	if len(features) != width*height*channels {
		return nil, fmt.Errorf("got %d features, want %d for a %dx%d tile with %d channels", len(features), width*height*channels, width, height, channels)
	}
	norm := 1.0
	if mode == raster.ModeBands {
		norm = sampleMax
	}

	planes := raster.Deinterleave(features, width, height, channels)
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			img.SetNRGBA(x, y, color.NRGBA{
				R: previewByte(planes[0][i], norm),
				G: previewByte(planes[1][i], norm),
				B: previewByte(planes[2][i], norm),
				A: 255,
			})
		}
	}
	return img, nil
}

func previewByte(v, norm float64) uint8 {
	s := v / norm * 255
	if s <= 0 {
		return 0
	}
	if s >= 255 {
		return 255
	}
	return uint8(s + 0.5)
}

// Montage lays tiles out in one row with the true and predicted label
// under each, for a quick visual check of what the model got right.
func Montage(cells []MontageCell, mode raster.Mode, tileWidth, tileHeight int, sampleMax float64) (*image.NRGBA, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("no tiles to render")
	}

	tileW := tileWidth * montageScale
	tileH := tileHeight * montageScale
	inner := tileW
	if inner < 13*glyphWidth {
		inner = 13 * glyphWidth
	}
	cellW := inner + 2*montagePad
	cellH := tileH + 2*lineHeight + 3*montagePad

	canvas := imaging.New(cellW*len(cells), cellH, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	for i, cell := range cells {
		preview, err := TilePreview(cell.Features, tileWidth, tileHeight, mode, sampleMax)
		if err != nil {
			return nil, fmt.Errorf("montage tile %d: %w", i, err)
		}
		scaled := imaging.Resize(preview, tileW, tileH, imaging.NearestNeighbor)

		x := i * cellW
		canvas = imaging.Paste(canvas, scaled, image.Pt(x+montagePad, montagePad))

		maxChars := (cellW - 2*montagePad) / glyphWidth
		textY := montagePad + tileH + lineHeight
		drawLabel(canvas, x+montagePad, textY, truncate("True: "+cell.TrueLabel, maxChars))
		if cell.PredLabel != "" {
			drawLabel(canvas, x+montagePad, textY+lineHeight, truncate("Pred: "+cell.PredLabel, maxChars))
		}
	}
	return canvas, nil
}

// SaveMontage renders the montage and writes it to path. The image
// format follows the file extension.
func SaveMontage(path string, cells []MontageCell, mode raster.Mode, tileWidth, tileHeight int, sampleMax float64) error {
	img, err := Montage(cells, mode, tileWidth, tileHeight, sampleMax)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to write montage: %w", err)
	}
	return nil
}

func drawLabel(dst *image.NRGBA, x, y int, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.NRGBA{R: 20, G: 20, B: 20, A: 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func truncate(s string, max int) string {
	if max < 4 || len(s) <= max {
		return s
	}
	return s[:max-2] + ".."
}
