package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/ludanortmun/bargal/internal/pipeline"
)

// TruthColumns are the catalog columns recognised as reference bar labels.
var TruthColumns = []string{"is_barred", "barred", "bars", "bar"}

// Agreement scores predictions against a reference label column.
type Agreement struct {
	Column         string  `yaml:"column"`
	Scored         int     `yaml:"scored"`
	TruePositives  int     `yaml:"truepositives"`
	FalsePositives int     `yaml:"falsepositives"`
	TrueNegatives  int     `yaml:"truenegatives"`
	FalseNegatives int     `yaml:"falsenegatives"`
	Accuracy       float64 `yaml:"accuracy"`
	Precision      float64 `yaml:"precision"`
	Recall         float64 `yaml:"recall"`
	F1             float64 `yaml:"f1"`
}

// CompareTruth returns nil when the catalog has no reference column.
// Failed records and unreadable labels are not scored.
func CompareTruth(columns []string, results []pipeline.Result) *Agreement {
	col := -1
	for _, want := range TruthColumns {
		for i, c := range columns {
			if strings.EqualFold(strings.TrimSpace(c), want) {
				col = i
				break
			}
		}
		if col >= 0 {
			break
		}
	}
	if col < 0 {
		return nil
	}

	a := &Agreement{Column: columns[col]}
	for _, res := range results {
		if res.Label == nil || col >= len(res.Record.Values) {
			continue
		}
		truth, ok := parseTruth(res.Record.Values[col])
		if !ok {
			continue
		}

		a.Scored++
		switch {
		case truth && *res.Label == 1:
			a.TruePositives++
		case !truth && *res.Label == 1:
			a.FalsePositives++
		case !truth:
			a.TrueNegatives++
		default:
			a.FalseNegatives++
		}
	}

	if a.Scored > 0 {
		a.Accuracy = float64(a.TruePositives+a.TrueNegatives) / float64(a.Scored)
	}
	if p := a.TruePositives + a.FalsePositives; p > 0 {
		a.Precision = float64(a.TruePositives) / float64(p)
	}
	if p := a.TruePositives + a.FalseNegatives; p > 0 {
		a.Recall = float64(a.TruePositives) / float64(p)
	}
	if a.Precision+a.Recall > 0 {
		a.F1 = 2 * a.Precision * a.Recall / (a.Precision + a.Recall)
	}
	return a
}

// parseTruth reads boolean words or a bar strength: 0 is no bar, any
// positive strength is a bar and negative values mean undetermined.
func parseTruth(s string) (bool, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true", "t", "yes", "y", "barred":
		return true, true
	case "false", "f", "no", "n", "unbarred":
		return false, true
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return false, false
	}
	return v > 0, true
}
