package forest

import (
	"fmt"
	"io"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// FeatureNames labels every feature by its pixel position and band, for
// readable tree exports: "px<y>_<x> <band>".
func FeatureNames(width, height int, bands []string) []string {
	names := make([]string, width*height*len(bands))
	for i := range names {
		pixel := i / len(bands)
		band := bands[i%len(bands)]
		names[i] = fmt.Sprintf("px%d_%d %s", pixel/width, pixel%width, band)
	}
	return names
}

// ExportDOT writes one fitted tree as a Graphviz digraph. Nodes carry
// the split, impurity, sample counts and majority class; fill colors
// take their hue from the majority class and their saturation from how
// pure the node is. featureNames may be nil, in which case features are
// named feature_<i>.
func ExportDOT(w io.Writer, tree *Tree, featureNames, classNames []string) error {
	if tree == nil || tree.Root == nil {
		return fmt.Errorf("tree is not fitted")
	}
	if len(classNames) != tree.NumClasses {
		return fmt.Errorf("got %d class names for %d classes", len(classNames), tree.NumClasses)
	}

	if _, err := fmt.Fprintln(w, "digraph Tree {"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, `node [shape=box, style="filled, rounded", color="black", fontname="helvetica"] ;`); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, `edge [fontname="helvetica"] ;`); err != nil {
		return err
	}

	e := &dotExporter{
		w:            w,
		tree:         tree,
		featureNames: featureNames,
		classNames:   classNames,
	}
	if _, err := e.writeNode(tree.Root, 0); err != nil {
		return err
	}

	_, err := fmt.Fprintln(w, "}")
	return err
}

type dotExporter struct {
	w            io.Writer
	tree         *Tree
	featureNames []string
	classNames   []string
	nextID       int
}

// writeNode emits node and its subtree in preorder and returns node's id.
func (e *dotExporter) writeNode(node *Node, depth int) (int, error) {
	id := e.nextID
	e.nextID++

	var label strings.Builder
	if !node.Leaf {
		fmt.Fprintf(&label, "%s <= %.4g\\n", e.featureName(node.Feature), node.Threshold)
	}
	fmt.Fprintf(&label, "%s = %.3f\\nsamples = %d\\nvalue = %s\\nclass = %s",
		e.tree.Criterion, node.Impurity, node.Samples, countsString(node.Counts), escapeDOT(e.classNames[node.Class()]))

	if _, err := fmt.Fprintf(e.w, "%d [label=\"%s\", fillcolor=\"%s\"] ;\n", id, label.String(), e.fillColor(node)); err != nil {
		return 0, err
	}
	if node.Leaf {
		return id, nil
	}

	leftID, err := e.writeNode(node.Left, depth+1)
	if err != nil {
		return 0, err
	}
	if err := e.writeEdge(id, leftID, depth, true); err != nil {
		return 0, err
	}

	rightID, err := e.writeNode(node.Right, depth+1)
	if err != nil {
		return 0, err
	}
	if err := e.writeEdge(id, rightID, depth, false); err != nil {
		return 0, err
	}
	return id, nil
}

// writeEdge labels only the root's outgoing edges with True/False, the
// way readers expect from scikit-style renderings.
func (e *dotExporter) writeEdge(parent, child, depth int, left bool) error {
	if depth > 0 {
		_, err := fmt.Fprintf(e.w, "%d -> %d ;\n", parent, child)
		return err
	}
	angle, head := 45.0, "True"
	if !left {
		angle, head = -45.0, "False"
	}
	_, err := fmt.Fprintf(e.w, "%d -> %d [labeldistance=2.5, labelangle=%g, headlabel=\"%s\"] ;\n", parent, child, angle, head)
	return err
}

func (e *dotExporter) featureName(f int) string {
	if f >= 0 && f < len(e.featureNames) {
		return escapeDOT(e.featureNames[f])
	}
	return fmt.Sprintf("feature_%d", f)
}

// fillColor picks a hue per majority class and saturates it by how far
// the node is from a uniform class mix.
func (e *dotExporter) fillColor(node *Node) string {
	k := len(node.Counts)
	if k == 0 || node.Samples == 0 {
		return "#ffffff"
	}
	hue := 360 * float64(node.Class()) / float64(k)
	majority := float64(node.Counts[node.Class()]) / float64(node.Samples)
	uniform := 1 / float64(k)
	strength := 0.0
	if majority > uniform {
		strength = (majority - uniform) / (1 - uniform)
	}
	return colorful.Hsv(hue, 0.05+0.85*strength, 1).Hex()
}

func countsString(counts []int) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%d", c)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
