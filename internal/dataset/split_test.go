package dataset

import (
	"fmt"
	"testing"
)

func makeSamples(n int) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{
			TilePath: fmt.Sprintf("tile_%03d.tif", i),
			Variant:  "base",
			Features: []float64{float64(i)},
		}
	}
	return samples
}

func TestTrainTestSplit_Sizes(t *testing.T) {
	train, test, err := TrainTestSplit(makeSamples(10), 0.2, 60)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}
	if len(test) != 2 {
		t.Errorf("test size: got %d, want 2", len(test))
	}
	if len(train) != 8 {
		t.Errorf("train size: got %d, want 8", len(train))
	}
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	samples := makeSamples(20)

	train1, test1, err := TrainTestSplit(samples, 0.25, 60)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}
	train2, test2, err := TrainTestSplit(samples, 0.25, 60)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}

	for i := range train1 {
		if train1[i].TilePath != train2[i].TilePath {
			t.Fatalf("train order differs at %d: %s vs %s", i, train1[i].TilePath, train2[i].TilePath)
		}
	}
	for i := range test1 {
		if test1[i].TilePath != test2[i].TilePath {
			t.Fatalf("test order differs at %d: %s vs %s", i, test1[i].TilePath, test2[i].TilePath)
		}
	}
}

func TestTrainTestSplit_Disjoint(t *testing.T) {
	train, test, err := TrainTestSplit(makeSamples(10), 0.3, 7)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, s := range append(append([]Sample(nil), train...), test...) {
		if seen[s.TilePath] {
			t.Errorf("sample %s appears in both sets", s.TilePath)
		}
		seen[s.TilePath] = true
	}
	if len(seen) != 10 {
		t.Errorf("samples covered: got %d, want 10", len(seen))
	}
}

func TestTrainTestSplit_SmallSetKeepsOneTestSample(t *testing.T) {
	_, test, err := TrainTestSplit(makeSamples(3), 0.2, 1)
	if err != nil {
		t.Fatalf("TrainTestSplit failed: %v", err)
	}
	if len(test) != 1 {
		t.Errorf("test size: got %d, want 1", len(test))
	}
}

func TestTrainTestSplit_BadFraction(t *testing.T) {
	for _, fraction := range []float64{0, 1, -0.2, 1.5} {
		if _, _, err := TrainTestSplit(makeSamples(10), fraction, 1); err == nil {
			t.Errorf("TrainTestSplit should fail for fraction %v", fraction)
		}
	}
}

func TestTrainTestSplit_TooFewSamples(t *testing.T) {
	if _, _, err := TrainTestSplit(makeSamples(1), 0.2, 1); err == nil {
		t.Error("TrainTestSplit should fail with a single sample")
	}
}
