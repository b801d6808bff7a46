package raster

import "fmt"

// MaskNonZero returns the values of plane at every position where mask is
// non-zero, in row-major order. The result aliases nothing and may be
// shorter than plane.
func MaskNonZero(plane, mask []float64) []float64 {
	out := make([]float64, 0, len(plane))
	for i, m := range mask {
		if m != 0 {
			out = append(out, plane[i])
		}
	}
	return out
}

// resample1D linearly resamples values to length n using half-pixel
// sample centers, the same mapping image resamplers use.
func resample1D(values []float64, n int) []float64 {
	out := make([]float64, n)
	k := len(values)
	if k == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	scale := float64(k) / float64(n)
	for i := range out {
		pos := (float64(i)+0.5)*scale - 0.5
		if pos <= 0 {
			out[i] = values[0]
			continue
		}
		if pos >= float64(k-1) {
			out[i] = values[k-1]
			continue
		}
		lo := int(pos)
		frac := pos - float64(lo)
		out[i] = values[lo]*(1-frac) + values[lo+1]*frac
	}
	return out
}

// CompactBand masks a band by the tile's alpha plane, normalizes the
// surviving samples to [0, 1], and linearly resamples them back to a full
// Width×Height plane. Tiles that are fully masked out carry no signal and
// are rejected.
func (t *Tile) CompactBand(band int) ([]float64, error) {
	strip := MaskNonZero(t.bands[band], t.bands[BandAlpha])
	if len(strip) == 0 {
		return nil, fmt.Errorf("tile has no unmasked pixels")
	}
	for i := range strip {
		strip[i] /= t.SampleMax
	}
	return resample1D(strip, t.Width*t.Height), nil
}
