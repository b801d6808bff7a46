package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one row of a map file: a tile image and its annotation,
// resolved to full paths.
type Entry struct {
	ImagePath string
	LabelPath string
}

// ReadMapFile parses the dataset map file at path. Each non-blank row
// holds a tile path and an annotation path separated by whitespace, both
// relative to dataDir. Backslash separators are accepted so map files
// written on Windows keep working.
func ReadMapFile(path, dataDir string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open map file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(strings.ReplaceAll(scanner.Text(), `\`, "/"))
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("map file %s line %d: got %d fields, want 2 (image and label paths)", path, line, len(fields))
		}
		entries = append(entries, Entry{
			ImagePath: filepath.Join(dataDir, filepath.FromSlash(fields[0])),
			LabelPath: filepath.Join(dataDir, filepath.FromSlash(fields[1])),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("map file %s lists no tiles", path)
	}
	return entries, nil
}
