package dataset

import (
	"fmt"
	"math/rand"
)

// TrainTestSplit shuffles samples with the given seed and splits them
// into a training and a test set. testFraction is the share of samples
// held out for testing, in (0, 1). The same seed always yields the same
// split.
func TrainTestSplit(samples []Sample, testFraction float64, seed int64) (train, test []Sample, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction %v out of range (0, 1)", testFraction)
	}
	if len(samples) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 samples to split, got %d", len(samples))
	}

	testCount := int(float64(len(samples)) * testFraction)
	if testCount == 0 {
		testCount = 1
	}

	r := rand.New(rand.NewSource(seed))
	perm := r.Perm(len(samples))

	test = make([]Sample, 0, testCount)
	train = make([]Sample, 0, len(samples)-testCount)
	for i, idx := range perm {
		if i < testCount {
			test = append(test, samples[idx])
		} else {
			train = append(train, samples[idx])
		}
	}
	return train, test, nil
}
