package raster

import "math"

// FlipVertical returns a copy of t with every band flipped top to bottom.
// The alpha plane flips along with the visible bands so masked
// preprocessing sees the mask in its new orientation.
func (t *Tile) FlipVertical() *Tile {
	out := &Tile{
		Width:     t.Width,
		Height:    t.Height,
		SampleMax: t.SampleMax,
		HasAlpha:  t.HasAlpha,
	}
	for b := range t.bands {
		out.bands[b] = flipVerticalPlane(t.bands[b], t.Width, t.Height)
	}
	return out
}

func flipVerticalPlane(plane []float64, w, h int) []float64 {
	out := make([]float64, len(plane))
	for y := 0; y < h; y++ {
		copy(out[(h-1-y)*w:(h-y)*w], plane[y*w:(y+1)*w])
	}
	return out
}

// RotatePlanes rotates a set of channel planes anticlockwise by angle
// degrees about the tile center, keeping the w×h canvas. Corners rotated
// outside the canvas are clipped and uncovered corners fill with zero.
//
// Square tiles rotated by exact multiples of 90 degrees use a lossless
// index permutation; everything else is resampled bilinearly.
func RotatePlanes(planes [][]float64, w, h int, angle float64) [][]float64 {
	norm := math.Mod(angle, 360)
	if norm < 0 {
		norm += 360
	}
	if w == h && norm == math.Trunc(norm) && int(norm)%90 == 0 {
		return rotateExact(planes, w, h, int(norm)/90)
	}
	return rotateBilinear(planes, w, h, angle)
}

// rotateExact applies quarter-turn anticlockwise rotations as index
// permutations. Only valid for square planes.
func rotateExact(planes [][]float64, w, h, quarters int) [][]float64 {
	out := make([][]float64, len(planes))
	for c, plane := range planes {
		cur := append([]float64(nil), plane...)
		for q := 0; q < quarters%4; q++ {
			next := make([]float64, len(cur))
			// Destination (x, y) takes source (w-1-y, x).
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					next[y*w+x] = cur[x*w+(w-1-y)]
				}
			}
			cur = next
		}
		out[c] = cur
	}
	return out
}

func rotateBilinear(planes [][]float64, w, h int, angle float64) [][]float64 {
	rad := angle * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	cx := float64(w-1) / 2
	cy := float64(h-1) / 2

	out := make([][]float64, len(planes))
	for c := range planes {
		out[c] = make([]float64, w*h)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Inverse-map the destination pixel into the source.
			dx := float64(x) - cx
			dy := float64(y) - cy
			sx := cos*dx - sin*dy + cx
			sy := sin*dx + cos*dy + cy
			if sx < 0 || sy < 0 || sx > float64(w-1) || sy > float64(h-1) {
				continue
			}
			x0, y0 := int(sx), int(sy)
			x1, y1 := x0+1, y0+1
			if x1 > w-1 {
				x1 = w - 1
			}
			if y1 > h-1 {
				y1 = h - 1
			}
			fx := sx - float64(x0)
			fy := sy - float64(y0)
			i := y*w + x
			for c, plane := range planes {
				top := plane[y0*w+x0]*(1-fx) + plane[y0*w+x1]*fx
				bot := plane[y1*w+x0]*(1-fx) + plane[y1*w+x1]*fx
				out[c][i] = top*(1-fy) + bot*fy
			}
		}
	}
	return out
}
