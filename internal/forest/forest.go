package forest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// Forest is a random forest classifier.
type Forest struct {
	// NumTrees is the ensemble size.
	NumTrees int
	MaxDepth int
	// MinSamplesSplit and MinSamplesLeaf carry through to every tree.
	MinSamplesSplit int
	MinSamplesLeaf  int
	Criterion       string
	// MaxFeatures is the per-split feature subsample size. 0 picks
	// sqrt of the feature count, the usual classification default.
	MaxFeatures int
	// Bootstrap resamples the training rows with replacement per tree.
	Bootstrap bool
	Seed      int64
	// Workers bounds concurrent tree fits. Zero means one per CPU.
	Workers int

	NumClasses int
	Trees      []*Tree
}

// Option configures a Forest before fitting.
type Option func(*Forest)

func WithTrees(n int) Option          { return func(f *Forest) { f.NumTrees = n } }
func WithForestMaxDepth(d int) Option { return func(f *Forest) { f.MaxDepth = d } }
func WithForestMinSamplesSplit(n int) Option {
	return func(f *Forest) { f.MinSamplesSplit = n }
}
func WithForestMinSamplesLeaf(n int) Option {
	return func(f *Forest) { f.MinSamplesLeaf = n }
}
func WithForestCriterion(c string) Option {
	return func(f *Forest) { f.Criterion = c }
}
func WithForestMaxFeatures(k int) Option { return func(f *Forest) { f.MaxFeatures = k } }
func WithBootstrap(b bool) Option        { return func(f *Forest) { f.Bootstrap = b } }
func WithForestSeed(seed int64) Option   { return func(f *Forest) { f.Seed = seed } }
func WithWorkers(n int) Option           { return func(f *Forest) { f.Workers = n } }

// New returns a forest with the usual classification defaults:
// 100 trees, gini splits, bootstrap resampling, sqrt feature
// subsampling, trees grown to purity.
func New(opts ...Option) *Forest {
	f := &Forest{
		NumTrees:        100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       CriterionGini,
		Bootstrap:       true,
		Seed:            time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fit trains the forest on feature matrix x and class vector y. Classes
// must be dense ids in [0, numClasses). Trees fit concurrently; each
// tree derives its seed from the forest seed and its position, so a
// seeded fit reproduces exactly.
func (f *Forest) Fit(ctx context.Context, x [][]float64, y []int, numClasses int) error {
	if f.NumTrees < 1 {
		return fmt.Errorf("need at least 1 tree, got %d", f.NumTrees)
	}
	if len(x) == 0 {
		return fmt.Errorf("empty feature matrix")
	}
	if len(y) != len(x) {
		return fmt.Errorf("feature matrix has %d rows but %d labels", len(x), len(y))
	}

	maxFeatures := f.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(len(x[0]))))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	workers := f.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	f.NumClasses = numClasses
	f.Trees = make([]*Tree, f.NumTrees)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < f.NumTrees; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			seed := f.Seed + int64(i)
			tree := NewTree(
				WithMaxDepth(f.MaxDepth),
				WithMinSamplesSplit(f.MinSamplesSplit),
				WithMinSamplesLeaf(f.MinSamplesLeaf),
				WithCriterion(f.Criterion),
				WithMaxFeatures(maxFeatures),
				WithSeed(seed),
			)

			idx := make([]int, len(x))
			if f.Bootstrap {
				rnd := rand.New(rand.NewSource(seed))
				for j := range idx {
					idx[j] = rnd.Intn(len(x))
				}
			} else {
				for j := range idx {
					idx[j] = j
				}
			}

			if err := tree.fit(x, y, numClasses, idx); err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
			f.Trees[i] = tree
			return nil
		})
	}
	return g.Wait()
}

// Votes returns the fraction of trees voting for each class on one
// feature vector.
func (f *Forest) Votes(x []float64) []float64 {
	votes := make([]float64, f.NumClasses)
	for _, tree := range f.Trees {
		votes[tree.PredictOne(x)]++
	}
	for i := range votes {
		votes[i] /= float64(len(f.Trees))
	}
	return votes
}

// PredictOne returns the majority-vote class for one feature vector.
// Ties resolve to the lower class id.
func (f *Forest) PredictOne(x []float64) int {
	counts := make([]int, f.NumClasses)
	for _, tree := range f.Trees {
		counts[tree.PredictOne(x)]++
	}
	best := 0
	for c := 1; c < len(counts); c++ {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

// Predict returns majority-vote classes for every row of x, spreading
// the per-tree work across CPUs.
func (f *Forest) Predict(x [][]float64) []int {
	perTree := make([][]int, len(f.Trees))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, tree := range f.Trees {
		i, tree := i, tree
		g.Go(func() error {
			preds := make([]int, len(x))
			for j := range x {
				preds[j] = tree.PredictOne(x[j])
			}
			perTree[i] = preds
			return nil
		})
	}
	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	out := make([]int, len(x))
	counts := make([]int, f.NumClasses)
	for j := range x {
		for i := range counts {
			counts[i] = 0
		}
		for _, preds := range perTree {
			counts[preds[j]]++
		}
		best := 0
		for c := 1; c < len(counts); c++ {
			if counts[c] > counts[best] {
				best = c
			}
		}
		out[j] = best
	}
	return out
}
