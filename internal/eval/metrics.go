// Package eval scores classifier predictions: accuracy, confusion
// matrix and a per-class precision/recall/F1 breakdown.
package eval

import "fmt"

// ConfusionMatrix counts test samples by true and predicted class.
type ConfusionMatrix struct {
	// Classes maps class ids to labels in id order.
	Classes []string `json:"classes"`
	// Counts[t][p] is how many samples of true class t were predicted
	// as class p.
	Counts [][]int `json:"counts"`
}

// NewConfusionMatrix tallies predictions against truth. Class ids must
// be dense in [0, len(classes)).
func NewConfusionMatrix(classes []string, yTrue, yPred []int) (*ConfusionMatrix, error) {
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("no predictions to score")
	}
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("got %d truths and %d predictions", len(yTrue), len(yPred))
	}

	k := len(classes)
	counts := make([][]int, k)
	for i := range counts {
		counts[i] = make([]int, k)
	}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= k {
			return nil, fmt.Errorf("true class %d at sample %d out of range [0, %d)", t, i, k)
		}
		if p < 0 || p >= k {
			return nil, fmt.Errorf("predicted class %d at sample %d out of range [0, %d)", p, i, k)
		}
		counts[t][p]++
	}
	return &ConfusionMatrix{Classes: classes, Counts: counts}, nil
}

// Total returns the number of scored samples.
func (m *ConfusionMatrix) Total() int {
	total := 0
	for _, row := range m.Counts {
		for _, c := range row {
			total += c
		}
	}
	return total
}

// Support returns how many samples truly belong to class t.
func (m *ConfusionMatrix) Support(t int) int {
	n := 0
	for _, c := range m.Counts[t] {
		n += c
	}
	return n
}

// Predicted returns how many samples were predicted as class p.
func (m *ConfusionMatrix) Predicted(p int) int {
	n := 0
	for _, row := range m.Counts {
		n += row[p]
	}
	return n
}

// Accuracy is the fraction of samples on the matrix diagonal.
func (m *ConfusionMatrix) Accuracy() float64 {
	correct := 0
	for i := range m.Counts {
		correct += m.Counts[i][i]
	}
	return float64(correct) / float64(m.Total())
}

// Accuracy is the fraction of matching predictions. Empty input scores
// zero.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// ClassMetrics is one class's row of the evaluation report.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report bundles everything a training run prints about model quality.
// Macro averages weight classes equally; weighted averages weight them
// by support.
type Report struct {
	Accuracy float64          `json:"accuracy"`
	Matrix   *ConfusionMatrix `json:"confusion_matrix"`
	PerClass []ClassMetrics   `json:"per_class"`

	MacroPrecision float64 `json:"macro_precision"`
	MacroRecall    float64 `json:"macro_recall"`
	MacroF1        float64 `json:"macro_f1"`

	WeightedPrecision float64 `json:"weighted_precision"`
	WeightedRecall    float64 `json:"weighted_recall"`
	WeightedF1        float64 `json:"weighted_f1"`
}

// Evaluate scores predictions against truth. Metrics that would divide
// by zero (a class never predicted, or absent from the test set) score
// zero for the affected term.
func Evaluate(classes []string, yTrue, yPred []int) (*Report, error) {
	m, err := NewConfusionMatrix(classes, yTrue, yPred)
	if err != nil {
		return nil, err
	}

	r := &Report{
		Accuracy: m.Accuracy(),
		Matrix:   m,
		PerClass: make([]ClassMetrics, len(classes)),
	}

	total := m.Total()
	for t := range classes {
		tp := m.Counts[t][t]
		support := m.Support(t)
		predicted := m.Predicted(t)

		var prec, rec, f1 float64
		if predicted > 0 {
			prec = float64(tp) / float64(predicted)
		}
		if support > 0 {
			rec = float64(tp) / float64(support)
		}
		if prec+rec > 0 {
			f1 = 2 * prec * rec / (prec + rec)
		}

		r.PerClass[t] = ClassMetrics{
			Label:     classes[t],
			Precision: prec,
			Recall:    rec,
			F1:        f1,
			Support:   support,
		}

		r.MacroPrecision += prec
		r.MacroRecall += rec
		r.MacroF1 += f1
		weight := float64(support) / float64(total)
		r.WeightedPrecision += prec * weight
		r.WeightedRecall += rec * weight
		r.WeightedF1 += f1 * weight
	}

	k := float64(len(classes))
	r.MacroPrecision /= k
	r.MacroRecall /= k
	r.MacroF1 /= k
	return r, nil
}
