package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andaleebali/terraclass/internal/forest"
	"github.com/andaleebali/terraclass/internal/state"
)

// writeTile writes a uniform 4x4 tile under dir and returns its path
// relative to dir.
func writeTile(t *testing.T, dir, name string, c color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, c)
		}
	}

	rel := filepath.Join("img", name)
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return rel
}

// writeLabel writes a VOC annotation under dir and returns its path
// relative to dir.
func writeLabel(t *testing.T, dir, name, label string) string {
	t.Helper()
	rel := filepath.Join("ann", name)
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	content := fmt.Sprintf("<annotation><object><name>%s</name></object></annotation>", label)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return rel
}

// tileColor keeps the two classes far apart so a handful of trees
// separates them reliably.
func tileColor(label string, i int) color.NRGBA {
	if label == "water" {
		return color.NRGBA{R: 10, G: 20, B: uint8(200 + i%8), A: 255}
	}
	return color.NRGBA{R: 30, G: uint8(180 + i%8), B: 40, A: 255}
}

// buildDataDir lays out eight tiles per class with a map file and
// returns the data dir and map file path.
func buildDataDir(t *testing.T) (dir, mapFile string) {
	t.Helper()
	dir = t.TempDir()

	var rows strings.Builder
	labels := []string{"water", "crop"}
	for i := 0; i < 16; i++ {
		label := labels[i%2]
		tileRel := writeTile(t, dir, fmt.Sprintf("tile_%03d.png", i), tileColor(label, i))
		labelRel := writeLabel(t, dir, fmt.Sprintf("tile_%03d.xml", i), label)
		rows.WriteString(filepath.ToSlash(tileRel) + " " + filepath.ToSlash(labelRel) + "\n")
	}

	mapFile = filepath.Join(dir, "map.txt")
	require.NoError(t, os.WriteFile(mapFile, []byte(rows.String()), 0o644))
	return dir, mapFile
}

// runCommand executes the root command with args and returns its
// combined output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	root := NewRootCmd()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestTrainPipeline(t *testing.T) {
	dir, mapFile := buildDataDir(t)
	outDir := t.TempDir()
	modelPath := filepath.Join(outDir, "model.bin")
	dotPath := filepath.Join(outDir, "tree.dot")
	montagePath := filepath.Join(outDir, "montage.png")
	statePath := filepath.Join(outDir, "state.db")

	out, err := runCommand(t,
		"train",
		"--map-file", mapFile,
		"--data-dir", dir,
		"--tile-width", "4", "--tile-height", "4",
		"--augment", "flip",
		"--trees", "15", "--seed", "7",
		"--test-fraction", "0.25",
		"--model", modelPath,
		"--dot", dotPath,
		"--montage", montagePath,
		"--state", statePath,
	)
	require.NoError(t, err, "train output:\n%s", out)

	assert.Contains(t, out, "Accuracy:")
	assert.Contains(t, out, "Label: crop")
	assert.Contains(t, out, "Recorded run")

	model, err := forest.LoadModel(modelPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"crop", "water"}, model.Manifest.Classes)
	assert.Equal(t, 4, model.Manifest.TileWidth)
	assert.Equal(t, []string{"flip"}, model.Manifest.Augmentations)
	assert.Len(t, model.Forest.Trees, 15)

	dot, err := os.ReadFile(dotPath)
	require.NoError(t, err)
	assert.Contains(t, string(dot), "digraph")

	mf, err := os.Open(montagePath)
	require.NoError(t, err)
	defer mf.Close()
	_, err = png.Decode(mf)
	require.NoError(t, err, "montage should be a readable PNG")

	store, err := state.Open(statePath)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, state.RunStatusCompleted, run.Status)
	assert.Equal(t, "flip", run.Augmentations)
	assert.Equal(t, 24, run.TrainSamples, "16 tiles with one extra variant, quarter held out")
	assert.Equal(t, 8, run.TestSamples)
	assert.Greater(t, run.Accuracy, 0.5)
	assert.NotEmpty(t, run.ReportJSON)

	// The recorded run shows up in the history listing and in detail.
	listOut, err := runCommand(t, "runs", "--state", statePath)
	require.NoError(t, err)
	assert.Contains(t, listOut, run.ID[:8])
	assert.Contains(t, listOut, "completed")

	detailOut, err := runCommand(t, "runs", run.ID, "--state", statePath)
	require.NoError(t, err)
	assert.Contains(t, detailOut, run.ID)
	assert.Contains(t, detailOut, "map file")
	assert.Contains(t, detailOut, "Accuracy:", "detail should re-render the stored report")

	// The saved model classifies a fresh tile from the command line.
	probeRel := writeTile(t, dir, "probe.png", color.NRGBA{R: 10, G: 20, B: 205, A: 255})
	probe := filepath.Join(dir, probeRel)

	predictOut, err := runCommand(t, "predict", "--model", modelPath, probe)
	require.NoError(t, err)
	assert.Contains(t, predictOut, "water")

	jsonOut, err := runCommand(t, "predict", "--model", modelPath, "--json", probe)
	require.NoError(t, err)
	var preds []prediction
	require.NoError(t, json.Unmarshal([]byte(jsonOut), &preds))
	require.Len(t, preds, 1)
	assert.Equal(t, "water", preds[0].Label)
	assert.InDelta(t, 1.0, preds[0].Votes["water"]+preds[0].Votes["crop"], 1e-9)
}

func TestTrain_RecordsFailedRun(t *testing.T) {
	dir := t.TempDir()
	mapFile := filepath.Join(dir, "map.txt")
	require.NoError(t, os.WriteFile(mapFile, []byte("img/missing.png ann/missing.xml\n"), 0o644))
	statePath := filepath.Join(dir, "state.db")

	out, err := runCommand(t,
		"train",
		"--map-file", mapFile,
		"--data-dir", dir,
		"--state", statePath,
	)
	require.Error(t, err, "train output:\n%s", out)

	store, err := state.Open(statePath)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, state.RunStatusFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestTrain_RejectsUnknownMode(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.db")

	_, err := runCommand(t, "train", "--mode", "sepia", "--state", statePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown preprocessing mode")
}

func TestInspectDataset(t *testing.T) {
	dir, mapFile := buildDataDir(t)
	montagePath := filepath.Join(t.TempDir(), "samples.png")

	out, err := runCommand(t,
		"inspect",
		"--map-file", mapFile,
		"--data-dir", dir,
		"--montage", montagePath,
		"--write-montage",
	)
	require.NoError(t, err, "inspect output:\n%s", out)

	assert.Contains(t, out, "map file")
	assert.Contains(t, out, "16")
	assert.Contains(t, out, "water")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "Wrote sample montage")

	mf, err := os.Open(montagePath)
	require.NoError(t, err)
	defer mf.Close()
	_, err = png.Decode(mf)
	require.NoError(t, err)
}

func TestInspectTile(t *testing.T) {
	dir := t.TempDir()
	rel := writeTile(t, dir, "tile.png", color.NRGBA{R: 50, G: 100, B: 150, A: 255})

	out, err := runCommand(t, "inspect", filepath.Join(dir, rel))
	require.NoError(t, err, "inspect output:\n%s", out)

	assert.Contains(t, out, "dimensions")
	assert.Contains(t, out, "4x4")
	assert.Contains(t, out, "BAND")
}

func TestRuns_EmptyHistory(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.db")

	out, err := runCommand(t, "runs", "--state", statePath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded yet.")
}
