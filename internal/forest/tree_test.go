package forest

import (
	"math"
	"testing"
)

// separableData returns a tiny two-class set split cleanly on the first
// feature.
func separableData() ([][]float64, []int) {
	x := [][]float64{
		{0.1, 5}, {0.2, 3}, {0.3, 9}, {0.4, 1},
		{0.7, 4}, {0.8, 8}, {0.9, 2}, {1.0, 6},
	}
	y := []int{0, 0, 0, 0, 1, 1, 1, 1}
	return x, y
}

func TestTree_FitPredict(t *testing.T) {
	x, y := separableData()

	tree := NewTree()
	if err := tree.Fit(x, y, 2); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	for i := range x {
		if got := tree.PredictOne(x[i]); got != y[i] {
			t.Errorf("sample %d: got class %d, want %d", i, got, y[i])
		}
	}

	root := tree.Root
	if root.Leaf {
		t.Fatal("root should split separable data")
	}
	if root.Feature != 0 {
		t.Errorf("split feature: got %d, want 0", root.Feature)
	}
	if root.Threshold <= 0.4 || root.Threshold >= 0.7 {
		t.Errorf("threshold %v should fall between the clusters", root.Threshold)
	}
}

func TestTree_PureDataIsOneLeaf(t *testing.T) {
	x := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	y := []int{1, 1, 1}

	tree := NewTree()
	if err := tree.Fit(x, y, 2); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if !tree.Root.Leaf {
		t.Error("pure training data should produce a single leaf")
	}
	if got := tree.PredictOne([]float64{100, 100}); got != 1 {
		t.Errorf("prediction: got %d, want 1", got)
	}
}

func TestTree_ThreeClasses(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {11}, {12}, {13}, {21}, {22}, {23}}
	y := []int{0, 0, 0, 1, 1, 1, 2, 2, 2}

	tree := NewTree()
	if err := tree.Fit(x, y, 3); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	tests := []struct {
		in   float64
		want int
	}{
		{in: 2, want: 0},
		{in: 12, want: 1},
		{in: 22, want: 2},
	}
	for _, tt := range tests {
		if got := tree.PredictOne([]float64{tt.in}); got != tt.want {
			t.Errorf("PredictOne(%v): got %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTree_MaxDepthStump(t *testing.T) {
	x, y := separableData()

	tree := NewTree(WithMaxDepth(1))
	if err := tree.Fit(x, y, 2); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if tree.Root.Leaf {
		t.Fatal("depth-1 tree should still split once")
	}
	if !tree.Root.Left.Leaf || !tree.Root.Right.Leaf {
		t.Error("children of a depth-1 tree must be leaves")
	}
}

func TestTree_MinSamplesLeaf(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}, {3}}
	y := []int{0, 0, 1, 1}

	// Any split of four samples leaves fewer than three on one side.
	tree := NewTree(WithMinSamplesLeaf(3))
	if err := tree.Fit(x, y, 2); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if !tree.Root.Leaf {
		t.Error("min samples leaf should block every candidate split")
	}
}

func TestTree_EntropyCriterion(t *testing.T) {
	x, y := separableData()

	tree := NewTree(WithCriterion(CriterionEntropy))
	if err := tree.Fit(x, y, 2); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	for i := range x {
		if got := tree.PredictOne(x[i]); got != y[i] {
			t.Errorf("sample %d: got class %d, want %d", i, got, y[i])
		}
	}
}

func TestTree_FeatureSubsampleDeterministic(t *testing.T) {
	x := [][]float64{
		{0.1, 5, 1}, {0.2, 3, 0}, {0.3, 9, 1}, {0.4, 1, 0},
		{0.7, 4, 1}, {0.8, 8, 0}, {0.9, 2, 1}, {1.0, 6, 0},
	}
	y := []int{0, 0, 0, 0, 1, 1, 1, 1}

	fit := func() *Tree {
		tree := NewTree(WithMaxFeatures(1), WithSeed(42))
		if err := tree.Fit(x, y, 2); err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		return tree
	}

	t1, t2 := fit(), fit()
	if t1.Root.Leaf != t2.Root.Leaf {
		t.Fatal("seeded fits disagree on root shape")
	}
	if !t1.Root.Leaf {
		if t1.Root.Feature != t2.Root.Feature || t1.Root.Threshold != t2.Root.Threshold {
			t.Errorf("seeded fits disagree: feature %d/%d threshold %v/%v",
				t1.Root.Feature, t2.Root.Feature, t1.Root.Threshold, t2.Root.Threshold)
		}
	}
}

func TestTree_NodeStatistics(t *testing.T) {
	x, y := separableData()

	tree := NewTree()
	if err := tree.Fit(x, y, 2); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	root := tree.Root
	if root.Samples != 8 {
		t.Errorf("root samples: got %d, want 8", root.Samples)
	}
	if root.Counts[0] != 4 || root.Counts[1] != 4 {
		t.Errorf("root counts: got %v, want [4 4]", root.Counts)
	}
	if math.Abs(root.Impurity-0.5) > 1e-9 {
		t.Errorf("root gini: got %v, want 0.5", root.Impurity)
	}
}

func TestTree_FitValidation(t *testing.T) {
	tests := []struct {
		name       string
		x          [][]float64
		y          []int
		numClasses int
	}{
		{name: "empty matrix", x: nil, y: nil, numClasses: 2},
		{name: "label count mismatch", x: [][]float64{{1}, {2}}, y: []int{0}, numClasses: 2},
		{name: "ragged rows", x: [][]float64{{1, 2}, {3}}, y: []int{0, 1}, numClasses: 2},
		{name: "label out of range", x: [][]float64{{1}, {2}}, y: []int{0, 5}, numClasses: 2},
		{name: "no classes", x: [][]float64{{1}}, y: []int{0}, numClasses: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := NewTree()
			if err := tree.Fit(tt.x, tt.y, tt.numClasses); err == nil {
				t.Error("Fit should fail")
			}
		})
	}
}

func TestGiniImpurity(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		total  int
		want   float64
	}{
		{name: "pure", counts: []int{10, 0}, total: 10, want: 0},
		{name: "even two class", counts: []int{5, 5}, total: 10, want: 0.5},
		{name: "even three class", counts: []int{2, 2, 2}, total: 6, want: 2.0 / 3.0},
		{name: "empty", counts: []int{0, 0}, total: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := giniImpurity(tt.counts, tt.total); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("gini: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntropyImpurity(t *testing.T) {
	if got := entropyImpurity([]int{5, 5}, 10); math.Abs(got-1) > 1e-9 {
		t.Errorf("entropy of even split: got %v, want 1", got)
	}
	if got := entropyImpurity([]int{10, 0}, 10); got != 0 {
		t.Errorf("entropy of pure node: got %v, want 0", got)
	}
}

func TestParseCriterion(t *testing.T) {
	if _, err := ParseCriterion("gini"); err != nil {
		t.Errorf("ParseCriterion(gini) failed: %v", err)
	}
	if _, err := ParseCriterion("entropy"); err != nil {
		t.Errorf("ParseCriterion(entropy) failed: %v", err)
	}
	if _, err := ParseCriterion("chi2"); err == nil {
		t.Error("ParseCriterion should fail for unknown criterion")
	}
}
