package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/andaleebali/terraclass/internal/eval"
)

// WriteReport renders an evaluation report as text tables: overall
// accuracy, the confusion matrix, the per-label prediction breakdown,
// then the per-class metrics.
func WriteReport(w io.Writer, r *eval.Report) {
	fmt.Fprintf(w, "Accuracy: %.4f (%d test samples)\n\n", r.Accuracy, r.Matrix.Total())
	WriteConfusionMatrix(w, r.Matrix)
	fmt.Fprintln(w)
	WritePredictedCounts(w, r.Matrix)
	fmt.Fprintln(w)
	writeClassMetrics(w, r)
}

// WritePredictedCounts writes, for every true label, how often each
// label was predicted for it.
func WritePredictedCounts(w io.Writer, m *eval.ConfusionMatrix) {
	for i, c := range m.Classes {
		fmt.Fprintf(w, "Label: %s\n", c)
		for j, p := range m.Classes {
			fmt.Fprintf(w, "  Predicted: %s, Count: %d\n", p, m.Counts[i][j])
		}
	}
}

// WriteConfusionMatrix renders the matrix with true classes as rows and
// predicted classes as columns.
func WriteConfusionMatrix(w io.Writer, m *eval.ConfusionMatrix) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, 0, len(m.Classes)+1)
	header = append(header, "true \\ predicted")
	for _, c := range m.Classes {
		header = append(header, c)
	}
	t.AppendHeader(header)

	for i, c := range m.Classes {
		row := make(table.Row, 0, len(m.Classes)+1)
		row = append(row, c)
		for _, n := range m.Counts[i] {
			row = append(row, n)
		}
		t.AppendRow(row)
	}
	t.Render()
}

func writeClassMetrics(w io.Writer, r *eval.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"class", "precision", "recall", "f1", "support"})

	for _, c := range r.PerClass {
		t.AppendRow(table.Row{
			c.Label,
			fmt.Sprintf("%.3f", c.Precision),
			fmt.Sprintf("%.3f", c.Recall),
			fmt.Sprintf("%.3f", c.F1),
			c.Support,
		})
	}
	t.AppendFooter(table.Row{
		"macro avg",
		fmt.Sprintf("%.3f", r.MacroPrecision),
		fmt.Sprintf("%.3f", r.MacroRecall),
		fmt.Sprintf("%.3f", r.MacroF1),
		r.Matrix.Total(),
	})
	t.AppendFooter(table.Row{
		"weighted avg",
		fmt.Sprintf("%.3f", r.WeightedPrecision),
		fmt.Sprintf("%.3f", r.WeightedRecall),
		fmt.Sprintf("%.3f", r.WeightedF1),
		r.Matrix.Total(),
	})
	t.Render()
}
