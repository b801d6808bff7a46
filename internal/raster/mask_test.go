package raster

import (
	"math"
	"testing"
)

// newTestTile builds a tile directly from band planes.
func newTestTile(t *testing.T, w, h int, sampleMax float64, bands [NumBands][]float64) *Tile {
	t.Helper()
	for b := range bands {
		if len(bands[b]) != w*h {
			t.Fatalf("band %d: got %d samples, want %d", b, len(bands[b]), w*h)
		}
	}
	return &Tile{
		Width:     w,
		Height:    h,
		SampleMax: sampleMax,
		HasAlpha:  true,
		bands:     bands,
	}
}

func TestMaskNonZero(t *testing.T) {
	plane := []float64{1, 2, 3, 4, 5, 6}
	mask := []float64{255, 0, 255, 0, 0, 128}

	got := MaskNonZero(plane, mask)
	want := []float64{1, 3, 6}

	if len(got) != len(want) {
		t.Fatalf("length: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMaskNonZero_AllZero(t *testing.T) {
	got := MaskNonZero([]float64{1, 2}, []float64{0, 0})
	if len(got) != 0 {
		t.Errorf("length: got %d, want 0", len(got))
	}
}

func Test_resample1D(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		n      int
		want   []float64
	}{
		{
			name:   "identity",
			values: []float64{1, 2, 3, 4},
			n:      4,
			want:   []float64{1, 2, 3, 4},
		},
		{
			name:   "single value replicates",
			values: []float64{7},
			n:      3,
			want:   []float64{7, 7, 7},
		},
		{
			name:   "upsample doubles",
			values: []float64{0, 1},
			n:      4,
			want:   []float64{0, 0.25, 0.75, 1},
		},
		{
			name:   "downsample halves",
			values: []float64{0, 0, 1, 1},
			n:      2,
			want:   []float64{0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resample1D(tt.values, tt.n)
			if len(got) != tt.n {
				t.Fatalf("length: got %d, want %d", len(got), tt.n)
			}
			for i := range tt.want {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("value %d: got %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCompactBand(t *testing.T) {
	// 2x2 tile where only the left column survives the mask.
	tile := newTestTile(t, 2, 2, 255, [NumBands][]float64{
		{255, 10, 255, 20},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{255, 0, 255, 0},
	})

	got, err := tile.CompactBand(BandRed)
	if err != nil {
		t.Fatalf("CompactBand failed: %v", err)
	}

	if len(got) != 4 {
		t.Fatalf("length: got %d, want 4 (full plane)", len(got))
	}
	// Two surviving samples, both full scale, resampled over four slots.
	for i, v := range got {
		if math.Abs(v-1.0) > 1e-9 {
			t.Errorf("value %d: got %v, want 1.0", i, v)
		}
	}
}

func TestCompactBand_Normalizes16Bit(t *testing.T) {
	tile := newTestTile(t, 2, 1, 65535, [NumBands][]float64{
		{65535, 0},
		{0, 0},
		{0, 0},
		{65535, 65535},
	})

	got, err := tile.CompactBand(BandRed)
	if err != nil {
		t.Fatalf("CompactBand failed: %v", err)
	}

	for _, v := range got {
		if v < 0 || v > 1 {
			t.Errorf("value %v outside [0, 1]", v)
		}
	}
	if got[0] != 1 {
		t.Errorf("first value: got %v, want 1", got[0])
	}
}

func TestCompactBand_AllMasked(t *testing.T) {
	tile := newTestTile(t, 2, 2, 255, [NumBands][]float64{
		{1, 2, 3, 4},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 0},
	})

	_, err := tile.CompactBand(BandRed)
	if err == nil {
		t.Error("CompactBand should fail when every pixel is masked out")
	}
}
