package dataset

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadLabel extracts the class label from a Pascal VOC annotation file.
//
// The label is the text of the last name element anywhere in the
// document, so annotations with several object blocks resolve to the
// final one.
func ReadLabel(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open annotation: %w", err)
	}
	defer f.Close()

	label, err := readLastName(f)
	if err != nil {
		return "", fmt.Errorf("failed to parse annotation %s: %w", path, err)
	}
	return label, nil
}

func readLastName(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var label string
	found := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "name" {
			continue
		}
		var text string
		if err := dec.DecodeElement(&text, &start); err != nil {
			return "", err
		}
		label = strings.TrimSpace(text)
		found = true
	}
	if !found {
		return "", fmt.Errorf("no name element in annotation")
	}
	if label == "" {
		return "", fmt.Errorf("annotation name element is empty")
	}
	return label, nil
}
