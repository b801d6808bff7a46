package raster

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Mode selects how a tile's bands become feature channels.
type Mode string

const (
	// ModeBands feeds the four raw band planes through unscaled, in
	// R, G, B, NIR order.
	ModeBands Mode = "rgbn"

	// ModeMasked feeds the three visible bands masked by non-zero
	// alpha, normalized to [0, 1] and compacted to full planes.
	ModeMasked Mode = "masked-rgb"
)

// ParseMode validates a mode name from config or a model manifest.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBands, ModeMasked:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown preprocessing mode %q (want %q or %q)", s, ModeBands, ModeMasked)
}

// Channels returns the number of feature channels a mode produces per
// pixel.
func (m Mode) Channels() int {
	if m == ModeMasked {
		return 3
	}
	return NumBands
}

// BandNames returns display names for a mode's feature channels, in
// channel order.
func (m Mode) BandNames() []string {
	if m == ModeMasked {
		return []string{"red", "green", "blue"}
	}
	return []string{"red", "green", "blue", "nir"}
}

// Preprocess produces the channel planes for a tile under the given mode.
// Each plane has Width*Height samples.
func Preprocess(t *Tile, mode Mode) ([][]float64, error) {
	switch mode {
	case ModeBands:
		if !t.HasAlpha {
			return nil, fmt.Errorf("tile has no fourth band, mode %q needs 4", mode)
		}
		planes := make([][]float64, NumBands)
		for b := range planes {
			planes[b] = append([]float64(nil), t.bands[b]...)
		}
		return planes, nil
	case ModeMasked:
		planes := make([][]float64, 3)
		for b := BandRed; b <= BandBlue; b++ {
			p, err := t.CompactBand(b)
			if err != nil {
				return nil, err
			}
			planes[b] = p
		}
		return planes, nil
	}
	return nil, fmt.Errorf("unknown preprocessing mode %q", mode)
}

// Interleave flattens channel planes into a single feature vector in
// pixel-major order with channels innermost: the feature for channel c of
// pixel (x, y) lands at (y*w+x)*len(planes)+c. A w×h tile with C channels
// always yields w*h*C features.
func Interleave(planes [][]float64, w, h int) []float64 {
	channels := len(planes)
	out := make([]float64, w*h*channels)
	for i := 0; i < w*h; i++ {
		for c, plane := range planes {
			out[i*channels+c] = plane[i]
		}
	}
	return out
}

// Deinterleave splits a feature vector back into channel planes. It is
// the inverse of Interleave and is used to rebuild tile previews from
// stored feature rows.
func Deinterleave(features []float64, w, h, channels int) [][]float64 {
	planes := make([][]float64, channels)
	for c := range planes {
		planes[c] = make([]float64, w*h)
	}
	for i := 0; i < w*h; i++ {
		for c := range planes {
			planes[c][i] = features[i*channels+c]
		}
	}
	return planes
}

// FeatureVector preprocesses a tile and flattens it in one step.
func FeatureVector(t *Tile, mode Mode) ([]float64, error) {
	planes, err := Preprocess(t, mode)
	if err != nil {
		return nil, err
	}
	return Interleave(planes, t.Width, t.Height), nil
}

// NormalizeSize resizes an image to w×h with linear filtering when its
// dimensions differ. Images already at the target size pass through
// untouched, so correctly sized 16-bit sources keep their depth.
func NormalizeSize(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Linear)
}

// ExtractFeatures turns an arbitrary decoded image into the feature
// vector a model trained with the given recipe expects: resize to w×h,
// preprocess under mode, and for raw-band features rescale to the
// training sample depth when the source depth differs. sampleMax is the
// full-scale sample value of the training tiles; zero skips rescaling.
func ExtractFeatures(img image.Image, w, h int, mode Mode, sampleMax float64) ([]float64, error) {
	tile := FromImage(NormalizeSize(img, w, h))
	features, err := FeatureVector(tile, mode)
	if err != nil {
		return nil, err
	}
	if mode == ModeBands && sampleMax > 0 && tile.SampleMax != sampleMax {
		scale := sampleMax / tile.SampleMax
		for i := range features {
			features[i] *= scale
		}
	}
	return features, nil
}
