package forest

import (
	"encoding/gob"
	"fmt"
	"os"
	"time"
)

// ModelFormatVersion is bumped when the serialized layout changes.
const ModelFormatVersion = 1

// Manifest records how a model's training data was preprocessed, so
// prediction can rebuild identical feature vectors from new tiles.
type Manifest struct {
	FormatVersion int

	// Classes maps class ids to labels in id order.
	Classes []string

	// Preprocessing recipe.
	Mode       string
	TileWidth  int
	TileHeight int
	Channels   int
	// SampleMax is the full-scale sample value of the training tiles.
	SampleMax float64

	// Training provenance.
	TrainedAt     time.Time
	TrainSamples  int
	TestSamples   int
	Augmentations []string
}

// FeatureLen returns the feature vector length the model expects.
func (m Manifest) FeatureLen() int {
	return m.TileWidth * m.TileHeight * m.Channels
}

// Model is a fitted forest bundled with its preprocessing manifest.
type Model struct {
	Manifest Manifest
	Forest   *Forest
}

// Classify runs one feature vector through the forest and resolves the
// label, returning the per-class vote fractions alongside.
func (m *Model) Classify(features []float64) (string, []float64, error) {
	if len(features) != m.Manifest.FeatureLen() {
		return "", nil, fmt.Errorf("got %d features, model wants %d", len(features), m.Manifest.FeatureLen())
	}
	class := m.Forest.PredictOne(features)
	if class < 0 || class >= len(m.Manifest.Classes) {
		return "", nil, fmt.Errorf("predicted class id %d outside %d known classes", class, len(m.Manifest.Classes))
	}
	return m.Manifest.Classes[class], m.Forest.Votes(features), nil
}

// Save writes the model to path with encoding/gob.
func (m *Model) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}

// LoadModel reads a model written by Save and checks it is usable.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()

	var m Model
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", path, err)
	}
	if m.Manifest.FormatVersion != ModelFormatVersion {
		return nil, fmt.Errorf("model %s is format version %d, this build reads %d", path, m.Manifest.FormatVersion, ModelFormatVersion)
	}
	if m.Forest == nil || len(m.Forest.Trees) == 0 {
		return nil, fmt.Errorf("model %s contains no trees", path)
	}
	if len(m.Manifest.Classes) != m.Forest.NumClasses {
		return nil, fmt.Errorf("model %s names %d classes but the forest was fit on %d", path, len(m.Manifest.Classes), m.Forest.NumClasses)
	}
	return &m, nil
}
