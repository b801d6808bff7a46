package forest

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
)

// Split criteria accepted by ParseCriterion.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

// ParseCriterion validates a split criterion name from config.
func ParseCriterion(s string) (string, error) {
	switch s {
	case CriterionGini, CriterionEntropy:
		return s, nil
	}
	return "", fmt.Errorf("unknown split criterion %q (want %q or %q)", s, CriterionGini, CriterionEntropy)
}

// Node is one node of a fitted tree. Fields are exported so fitted
// trees serialize with encoding/gob.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      *Node
	Right     *Node

	// Samples, Impurity and Counts describe the training samples that
	// reached this node. They are kept on internal nodes too so the
	// tree can be exported for visualization.
	Samples  int
	Impurity float64
	Counts   []int
}

// Class returns the majority class index at this node.
func (n *Node) Class() int {
	best := 0
	for i := 1; i < len(n.Counts); i++ {
		if n.Counts[i] > n.Counts[best] {
			best = i
		}
	}
	return best
}

// Tree is a CART decision tree classifier. Class labels are dense ids
// in [0, NumClasses).
type Tree struct {
	// MaxDepth limits tree depth; 0 means unlimited.
	MaxDepth int
	// MinSamplesSplit is the minimum node size worth splitting.
	MinSamplesSplit int
	// MinSamplesLeaf is the minimum size of each child a split may
	// produce.
	MinSamplesLeaf int
	Criterion      string
	// MaxFeatures is how many features to consider per split;
	// 0 means all.
	MaxFeatures int
	Seed        int64

	NumClasses int
	Root       *Node
}

// TreeOption configures a Tree before fitting.
type TreeOption func(*Tree)

func WithMaxDepth(d int) TreeOption        { return func(t *Tree) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) TreeOption { return func(t *Tree) { t.MinSamplesSplit = n } }
func WithMinSamplesLeaf(n int) TreeOption  { return func(t *Tree) { t.MinSamplesLeaf = n } }
func WithCriterion(c string) TreeOption    { return func(t *Tree) { t.Criterion = c } }
func WithMaxFeatures(k int) TreeOption     { return func(t *Tree) { t.MaxFeatures = k } }
func WithSeed(seed int64) TreeOption       { return func(t *Tree) { t.Seed = seed } }

// NewTree returns a tree with the usual defaults: unlimited depth, gini
// criterion, all features considered at every split.
func NewTree(opts ...TreeOption) *Tree {
	t := &Tree{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       CriterionGini,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fit trains the tree on feature matrix x and class vector y. Classes
// must be dense ids in [0, numClasses).
func (t *Tree) Fit(x [][]float64, y []int, numClasses int) error {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	return t.fit(x, y, numClasses, idx)
}

// fit trains on the rows named by idx, which may repeat for bootstrap
// resamples.
func (t *Tree) fit(x [][]float64, y []int, numClasses int, idx []int) error {
	if len(x) == 0 {
		return fmt.Errorf("empty feature matrix")
	}
	if len(y) != len(x) {
		return fmt.Errorf("feature matrix has %d rows but %d labels", len(x), len(y))
	}
	if numClasses < 1 {
		return fmt.Errorf("need at least 1 class, got %d", numClasses)
	}
	p := len(x[0])
	for i := range x {
		if len(x[i]) != p {
			return fmt.Errorf("row %d has %d features, want %d", i, len(x[i]), p)
		}
	}
	for i, c := range y {
		if c < 0 || c >= numClasses {
			return fmt.Errorf("label %d at row %d out of range [0, %d)", c, i, numClasses)
		}
	}

	t.NumClasses = numClasses
	rnd := rand.New(rand.NewSource(t.Seed))
	t.Root = t.build(x, y, idx, 0, p, rnd)
	return nil
}

func (t *Tree) build(x [][]float64, y []int, idx []int, depth, p int, rnd *rand.Rand) *Node {
	counts := countClasses(y, idx, t.NumClasses)
	node := &Node{
		Samples:  len(idx),
		Counts:   counts,
		Impurity: t.impurity(counts, len(idx)),
	}

	if isPure(counts) || len(idx) < t.MinSamplesSplit {
		node.Leaf = true
		return node
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		node.Leaf = true
		return node
	}

	best := t.bestSplit(x, y, idx, t.sampleFeatures(p, rnd), node.Impurity)
	if best.feature < 0 {
		node.Leaf = true
		return node
	}

	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = t.build(x, y, best.left, depth+1, p, rnd)
	node.Right = t.build(x, y, best.right, depth+1, p, rnd)
	return node
}

// sampleFeatures picks the feature subset to consider at one split.
func (t *Tree) sampleFeatures(p int, rnd *rand.Rand) []int {
	feats := make([]int, p)
	for j := range feats {
		feats[j] = j
	}
	if t.MaxFeatures <= 0 || t.MaxFeatures >= p {
		return feats
	}
	for i := 0; i < t.MaxFeatures; i++ {
		j := i + rnd.Intn(p-i)
		feats[i], feats[j] = feats[j], feats[i]
	}
	return feats[:t.MaxFeatures]
}

// split is a candidate partition of a node's samples.
type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

// better orders candidate splits by gain, breaking ties on the lower
// feature index so concurrent search stays deterministic.
func (s split) better(o split) bool {
	if s.feature < 0 {
		return false
	}
	if o.feature < 0 {
		return true
	}
	if s.gain != o.gain {
		return s.gain > o.gain
	}
	return s.feature < o.feature
}

// bestSplit searches the candidate features in parallel chunks and
// returns the best split, or feature -1 when nothing improves on the
// parent impurity.
func (t *Tree) bestSplit(x [][]float64, y []int, idx, features []int, parentImpurity float64) split {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(features) {
		workers = len(features)
	}
	if workers < 1 {
		workers = 1
	}

	results := make(chan split, workers)
	chunk := (len(features) + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < len(features); lo += chunk {
		hi := lo + chunk
		if hi > len(features) {
			hi = len(features)
		}
		wg.Add(1)
		go func(feats []int) {
			defer wg.Done()
			best := split{feature: -1}
			for _, f := range feats {
				if s := t.splitFeature(x, y, idx, f, parentImpurity); s.better(best) {
					best = s
				}
			}
			results <- best
		}(features[lo:hi])
	}
	wg.Wait()
	close(results)

	best := split{feature: -1}
	for s := range results {
		if s.better(best) {
			best = s
		}
	}
	return best
}

// splitFeature scans the midpoint thresholds of one feature with running
// class counts, so each candidate threshold costs O(classes) instead of
// a full recount.
func (t *Tree) splitFeature(x [][]float64, y []int, idx []int, f int, parentImpurity float64) split {
	type pair struct {
		v     float64
		class int
		row   int
	}
	pairs := make([]pair, len(idx))
	for k, row := range idx {
		pairs[k] = pair{v: x[row][f], class: y[row], row: row}
	}
	sort.Slice(pairs, func(a, b int) bool { return pairs[a].v < pairs[b].v })

	left := make([]int, t.NumClasses)
	right := make([]int, t.NumClasses)
	for _, p := range pairs {
		right[p.class]++
	}

	n := len(pairs)
	best := split{feature: -1}
	bestPos := 0
	for s := 1; s < n; s++ {
		left[pairs[s-1].class]++
		right[pairs[s-1].class]--
		if pairs[s].v == pairs[s-1].v {
			continue
		}
		if s < t.MinSamplesLeaf || n-s < t.MinSamplesLeaf {
			continue
		}
		weighted := (float64(s)*t.impurity(left, s) + float64(n-s)*t.impurity(right, n-s)) / float64(n)
		// Zero-value best has gain 0, so only strictly positive gains
		// are ever taken.
		if gain := parentImpurity - weighted; gain > best.gain {
			best = split{
				feature:   f,
				threshold: (pairs[s-1].v + pairs[s].v) / 2,
				gain:      gain,
			}
			bestPos = s
		}
	}
	if best.feature < 0 {
		return split{feature: -1}
	}

	best.left = make([]int, bestPos)
	best.right = make([]int, n-bestPos)
	for k := 0; k < bestPos; k++ {
		best.left[k] = pairs[k].row
	}
	for k := bestPos; k < n; k++ {
		best.right[k-bestPos] = pairs[k].row
	}
	return best
}

// PredictOne returns the majority class at the leaf x lands in.
func (t *Tree) PredictOne(x []float64) int {
	return t.leaf(x).Class()
}

// leaf walks x down to its leaf node.
func (t *Tree) leaf(x []float64) *Node {
	node := t.Root
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

func (t *Tree) impurity(counts []int, total int) float64 {
	if t.Criterion == CriterionEntropy {
		return entropyImpurity(counts, total)
	}
	return giniImpurity(counts, total)
}

func giniImpurity(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		res += p * (1 - p)
	}
	return res
}

func entropyImpurity(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		res -= p * math.Log2(p)
	}
	return res
}

func countClasses(y []int, idx []int, numClasses int) []int {
	counts := make([]int, numClasses)
	for _, row := range idx {
		counts[y[row]]++
	}
	return counts
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}
