package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/andaleebali/terraclass/internal/state"
)

// WriteRunTable renders training run history, most recent first.
func WriteRunTable(w io.Writer, runs []*state.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"id", "started", "duration", "status", "mode", "samples", "classes", "trees", "accuracy"})

	for _, r := range runs {
		t.AppendRow(table.Row{
			shortID(r.ID),
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Duration().Round(time.Second).String(),
			string(r.Status),
			r.Mode,
			fmt.Sprintf("%d/%d", r.TrainSamples, r.TestSamples),
			r.ClassCount,
			r.Trees,
			formatAccuracy(r),
		})
	}
	t.Render()
}

// WriteRunDetail renders one run's full record.
func WriteRunDetail(w io.Writer, r *state.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendRow(table.Row{"id", r.ID})
	t.AppendRow(table.Row{"status", string(r.Status)})
	t.AppendRow(table.Row{"started", r.StartedAt.Format(time.RFC3339)})
	if r.CompletedAt != nil {
		t.AppendRow(table.Row{"completed", r.CompletedAt.Format(time.RFC3339)})
		t.AppendRow(table.Row{"duration", r.Duration().Round(time.Millisecond).String()})
	}
	t.AppendRow(table.Row{"map file", r.MapFile})
	t.AppendRow(table.Row{"mode", r.Mode})
	t.AppendRow(table.Row{"tile size", fmt.Sprintf("%dx%d", r.TileWidth, r.TileHeight)})
	if r.Augmentations != "" {
		t.AppendRow(table.Row{"augmentations", r.Augmentations})
	}
	t.AppendRow(table.Row{"trees", r.Trees})
	if r.MaxDepth > 0 {
		t.AppendRow(table.Row{"max depth", r.MaxDepth})
	}
	t.AppendRow(table.Row{"criterion", r.Criterion})
	t.AppendRow(table.Row{"seed", r.Seed})
	if r.Status == state.RunStatusCompleted {
		t.AppendRow(table.Row{"samples", fmt.Sprintf("%d train / %d test", r.TrainSamples, r.TestSamples)})
		t.AppendRow(table.Row{"classes", r.ClassCount})
		t.AppendRow(table.Row{"accuracy", fmt.Sprintf("%.4f", r.Accuracy)})
		t.AppendRow(table.Row{"model", r.ModelPath})
	}
	if r.Error != "" {
		t.AppendRow(table.Row{"error", r.Error})
	}
	t.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatAccuracy(r *state.Run) string {
	if r.Status != state.RunStatusCompleted {
		return "-"
	}
	return fmt.Sprintf("%.4f", r.Accuracy)
}
