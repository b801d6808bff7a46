package raster

import (
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"

	_ "golang.org/x/image/tiff" // register TIFF decoder
)

// Band indices into a Tile's planes.
const (
	BandRed = iota
	BandGreen
	BandBlue
	// BandAlpha is the fourth band. For masked tiles it is a validity
	// mask; for four-band imagery it carries near-infrared.
	BandAlpha

	// NumBands is the number of planes every Tile carries.
	NumBands
)

// Tile is a decoded raster tile held as per-band float64 planes.
//
// Samples keep the raw values of the source encoding: 0..255 for 8-bit
// images, 0..65535 for 16-bit. SampleMax records which, so callers can
// normalize without guessing the source depth.
type Tile struct {
	Width  int
	Height int

	// SampleMax is the full-scale sample value of the source,
	// 255 for 8-bit images and 65535 for 16-bit.
	SampleMax float64

	// HasAlpha reports whether the source encoding carried a fourth
	// channel. Sources without one get an opaque BandAlpha plane.
	HasAlpha bool

	bands [NumBands][]float64
}

// Band returns the row-major plane for the given band index.
func (t *Tile) Band(i int) []float64 { return t.bands[i] }

// Load reads and decodes a raster tile from disk.
//
// TIFF, PNG and JPEG are supported. 16-bit TIFF and PNG sources keep
// their full sample depth.
func Load(path string) (*Tile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tile: %w", err)
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tile %s: %w", path, err)
	}
	return t, nil
}

// Decode decodes a raster tile from r. See Load for supported formats.
func Decode(r io.Reader) (*Tile, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}

// FromImage converts a decoded image into band planes.
//
// Known concrete types are read straight from their pixel buffers so
// 16-bit samples and unassociated alpha survive untouched. Anything else
// goes through the generic 16-bit accessor.
func FromImage(img image.Image) *Tile {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	t := &Tile{Width: w, Height: h}
	for i := range t.bands {
		t.bands[i] = make([]float64, w*h)
	}

	switch src := img.(type) {
	case *image.NRGBA64:
		t.SampleMax = 65535
		t.HasAlpha = true
		fillFromPix16(t, src.Pix, src.Stride, w, h, 4)
	case *image.RGBA64:
		// Premultiplied. Mask alphas are 0 or full scale in practice,
		// where premultiplication is the identity.
		t.SampleMax = 65535
		t.HasAlpha = true
		fillFromPix16(t, src.Pix, src.Stride, w, h, 4)
	case *image.NRGBA:
		t.SampleMax = 255
		t.HasAlpha = true
		fillFromPix8(t, src.Pix, src.Stride, w, h)
	case *image.RGBA:
		t.SampleMax = 255
		t.HasAlpha = true
		fillFromPix8(t, src.Pix, src.Stride, w, h)
	case *image.Gray16:
		t.SampleMax = 65535
		fillFromGray16(t, src.Pix, src.Stride, w, h)
	case *image.Gray:
		t.SampleMax = 255
		fillFromGray8(t, src.Pix, src.Stride, w, h)
	default:
		t.SampleMax = 65535
		fillGeneric(t, img, b)
	}
	return t
}

func fillFromPix16(t *Tile, pix []uint8, stride, w, h, channels int) {
	for y := 0; y < h; y++ {
		row := pix[y*stride:]
		for x := 0; x < w; x++ {
			o := x * channels * 2
			i := y*w + x
			for c := 0; c < channels; c++ {
				v := uint16(row[o+2*c])<<8 | uint16(row[o+2*c+1])
				t.bands[c][i] = float64(v)
			}
		}
	}
}

func fillFromPix8(t *Tile, pix []uint8, stride, w, h int) {
	for y := 0; y < h; y++ {
		row := pix[y*stride:]
		for x := 0; x < w; x++ {
			o := x * 4
			i := y*w + x
			t.bands[BandRed][i] = float64(row[o])
			t.bands[BandGreen][i] = float64(row[o+1])
			t.bands[BandBlue][i] = float64(row[o+2])
			t.bands[BandAlpha][i] = float64(row[o+3])
		}
	}
}

func fillFromGray16(t *Tile, pix []uint8, stride, w, h int) {
	for y := 0; y < h; y++ {
		row := pix[y*stride:]
		for x := 0; x < w; x++ {
			v := float64(uint16(row[2*x])<<8 | uint16(row[2*x+1]))
			i := y*w + x
			t.bands[BandRed][i] = v
			t.bands[BandGreen][i] = v
			t.bands[BandBlue][i] = v
			t.bands[BandAlpha][i] = 65535
		}
	}
}

func fillFromGray8(t *Tile, pix []uint8, stride, w, h int) {
	for y := 0; y < h; y++ {
		row := pix[y*stride:]
		for x := 0; x < w; x++ {
			v := float64(row[x])
			i := y*w + x
			t.bands[BandRed][i] = v
			t.bands[BandGreen][i] = v
			t.bands[BandBlue][i] = v
			t.bands[BandAlpha][i] = 255
		}
	}
}

func fillGeneric(t *Tile, img image.Image, b image.Rectangle) {
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			i := (y-b.Min.Y)*t.Width + (x - b.Min.X)
			t.bands[BandRed][i] = float64(r)
			t.bands[BandGreen][i] = float64(g)
			t.bands[BandBlue][i] = float64(bl)
			t.bands[BandAlpha][i] = float64(a)
		}
	}
}

// TileInfo describes a tile file without keeping its pixels around.
type TileInfo struct {
	Path          string `json:"path"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	ColorDepth    string `json:"color_depth"`
	HasAlpha      bool   `json:"has_alpha"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// LoadInfo reads a tile and reports its dimensions, format, sample depth
// and alpha presence.
func LoadInfo(path string) (*TileInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat tile: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open tile: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tile %s: %w", path, err)
	}

	info := &TileInfo{
		Path:          path,
		Width:         img.Bounds().Dx(),
		Height:        img.Bounds().Dy(),
		Format:        format,
		FileSizeBytes: fi.Size(),
	}

	switch img.(type) {
	case *image.NRGBA64, *image.RGBA64:
		info.ColorDepth = "16-bit"
		info.HasAlpha = true
	case *image.Gray16:
		info.ColorDepth = "16-bit"
	case *image.NRGBA, *image.RGBA:
		info.ColorDepth = "8-bit"
		info.HasAlpha = true
	default:
		info.ColorDepth = "8-bit"
	}
	return info, nil
}
