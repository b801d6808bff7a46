package forest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fitTestModel trains a small forest on clustered data and wraps it in
// a model envelope. Feature vectors are 2-D, standing in for a 1x1 tile
// with two channels.
func fitTestModel(t *testing.T) (*Model, [][]float64, []int) {
	t.Helper()
	x, y := clusteredData()

	f := New(WithTrees(12), WithForestSeed(11))
	if err := f.Fit(context.Background(), x, y, 2); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	m := &Model{
		Manifest: Manifest{
			FormatVersion: ModelFormatVersion,
			Classes:       []string{"crop", "water"},
			Mode:          "rgbn",
			TileWidth:     1,
			TileHeight:    1,
			Channels:      2,
			SampleMax:     255,
			TrainedAt:     time.Now().UTC(),
			TrainSamples:  len(x),
		},
		Forest: f,
	}
	return m, x, y
}

func TestModel_SaveLoadRoundTrip(t *testing.T) {
	m, x, _ := fitTestModel(t)
	path := filepath.Join(t.TempDir(), "model.bin")

	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}

	if loaded.Manifest.Mode != "rgbn" || loaded.Manifest.SampleMax != 255 {
		t.Errorf("manifest did not survive: %+v", loaded.Manifest)
	}
	if len(loaded.Manifest.Classes) != 2 || loaded.Manifest.Classes[1] != "water" {
		t.Errorf("classes: got %v, want [crop water]", loaded.Manifest.Classes)
	}

	want := m.Forest.Predict(x)
	got := loaded.Forest.Predict(x)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: loaded model predicts %d, original %d", i, got[i], want[i])
		}
	}
}

func TestModel_Classify(t *testing.T) {
	m, x, y := fitTestModel(t)

	label, votes, err := m.Classify(x[0])
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if want := m.Manifest.Classes[y[0]]; label != want {
		t.Errorf("label: got %q, want %q", label, want)
	}
	if len(votes) != 2 {
		t.Errorf("votes: got %d classes, want 2", len(votes))
	}
}

func TestModel_Classify_WrongFeatureLength(t *testing.T) {
	m, _, _ := fitTestModel(t)

	if _, _, err := m.Classify([]float64{1, 2, 3}); err == nil {
		t.Error("Classify should fail when the feature length does not match the manifest")
	}
}

func TestLoadModel_Missing(t *testing.T) {
	if _, err := LoadModel("/nonexistent/model.bin"); err == nil {
		t.Error("LoadModel should fail for a missing file")
	}
}

func TestLoadModel_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	if err := os.WriteFile(path, []byte("not a model"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := LoadModel(path); err == nil {
		t.Error("LoadModel should fail for corrupt data")
	}
}

func TestLoadModel_VersionMismatch(t *testing.T) {
	m, _, _ := fitTestModel(t)
	m.Manifest.FormatVersion = ModelFormatVersion + 1

	path := filepath.Join(t.TempDir(), "model.bin")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := LoadModel(path); err == nil {
		t.Error("LoadModel should reject an unknown format version")
	}
}

func TestLoadModel_ClassCountMismatch(t *testing.T) {
	m, _, _ := fitTestModel(t)
	m.Manifest.Classes = []string{"crop"}

	path := filepath.Join(t.TempDir(), "model.bin")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := LoadModel(path); err == nil {
		t.Error("LoadModel should reject a manifest that disagrees with the forest")
	}
}
