package forest

import (
	"bytes"
	"strings"
	"testing"
)

func TestFeatureNames(t *testing.T) {
	names := FeatureNames(2, 2, []string{"red", "green"})

	if len(names) != 8 {
		t.Fatalf("names: got %d, want 8", len(names))
	}
	tests := []struct {
		i    int
		want string
	}{
		{i: 0, want: "px0_0 red"},
		{i: 1, want: "px0_0 green"},
		{i: 3, want: "px0_1 green"},
		{i: 4, want: "px1_0 red"},
		{i: 7, want: "px1_1 green"},
	}
	for _, tt := range tests {
		if names[tt.i] != tt.want {
			t.Errorf("name %d: got %q, want %q", tt.i, names[tt.i], tt.want)
		}
	}
}

func TestExportDOT(t *testing.T) {
	x, y := separableData()
	tree := NewTree()
	if err := tree.Fit(x, y, 2); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	var buf bytes.Buffer
	names := FeatureNames(2, 1, []string{"red"})
	if err := ExportDOT(&buf, tree, names, []string{"crop", "water"}); err != nil {
		t.Fatalf("ExportDOT failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"digraph Tree {",
		`shape=box`,
		"px0_0 red <=",
		"gini = 0.500",
		"samples = 8",
		"value = [4, 4]",
		`headlabel="True"`,
		`headlabel="False"`,
		"class = crop",
		"class = water",
		"}",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if !strings.Contains(out, "fillcolor=\"#") {
		t.Error("nodes should carry fill colors")
	}
	if strings.Count(out, "->") < 2 {
		t.Error("tree with a split needs at least two edges")
	}
}

func TestExportDOT_FallbackFeatureNames(t *testing.T) {
	x, y := separableData()
	tree := NewTree()
	if err := tree.Fit(x, y, 2); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	var buf bytes.Buffer
	if err := ExportDOT(&buf, tree, nil, []string{"crop", "water"}); err != nil {
		t.Fatalf("ExportDOT failed: %v", err)
	}
	if !strings.Contains(buf.String(), "feature_0 <=") {
		t.Errorf("fallback feature name missing:\n%s", buf.String())
	}
}

func TestExportDOT_NotFitted(t *testing.T) {
	if err := ExportDOT(&bytes.Buffer{}, NewTree(), nil, nil); err == nil {
		t.Error("ExportDOT should fail for an unfitted tree")
	}
}

func TestExportDOT_ClassNameMismatch(t *testing.T) {
	x, y := separableData()
	tree := NewTree()
	if err := tree.Fit(x, y, 2); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if err := ExportDOT(&bytes.Buffer{}, tree, nil, []string{"crop"}); err == nil {
		t.Error("ExportDOT should fail when class names do not cover the classes")
	}
}
