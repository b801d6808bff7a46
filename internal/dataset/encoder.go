package dataset

import (
	"fmt"
	"sort"
)

// LabelEncoder maps class labels to dense integer ids. Ids are assigned
// by sorted label order, so the same set of labels always encodes the
// same way no matter which tile was seen first.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// NewLabelEncoder fits an encoder over the given labels. Duplicates are
// collapsed.
func NewLabelEncoder(labels []string) *LabelEncoder {
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		seen[l] = struct{}{}
	}

	classes := make([]string, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, l := range classes {
		index[l] = i
	}
	return &LabelEncoder{classes: classes, index: index}
}

// Classes returns the fitted labels in id order.
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

// Encode returns the id for a fitted label.
func (e *LabelEncoder) Encode(label string) (int, error) {
	id, ok := e.index[label]
	if !ok {
		return 0, fmt.Errorf("unknown label %q", label)
	}
	return id, nil
}

// Decode returns the label for a class id.
func (e *LabelEncoder) Decode(class int) (string, error) {
	if class < 0 || class >= len(e.classes) {
		return "", fmt.Errorf("class id %d out of range [0, %d)", class, len(e.classes))
	}
	return e.classes[class], nil
}
