// Package metrics scores predicted churn probabilities against observed
// labels. Every scorer is "higher is better"
package metrics

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	perr "churnlearn/internal/platform/errors"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Scorer maps labels in {0, 1} and scores to a number where higher is better
type Scorer func(y, p []float64) (float64, error)

func check(y, p []float64) (pos int, err error) {
	if len(y) != len(p) {
		return 0, perr.InvalidArgf("metrics: %d labels for %d scores", len(y), len(p))
	}
	if len(y) == 0 {
		return 0, perr.InvalidArgf("metrics: no rows to score")
	}
	for i, v := range y {
		switch v {
		case 1:
			pos++
		case 0:
		default:
			return 0, perr.InvalidArgf("metrics: label %d is %v, want 0 or 1", i, v)
		}
	}
	return pos, nil
}

// ROCAUC is the area under the ROC curve. A single-class y is an error
func ROCAUC(y, p []float64) (float64, error) {
	pos, err := check(y, p)
	if err != nil {
		return 0, err
	}
	if pos == 0 || pos == len(y) {
		return 0, perr.Newf(perr.ErrorCodeValidation, "metrics: roc_auc needs both classes, got %d of %d positive", pos, len(y))
	}
	scores := slices.Clone(p)
	classes := make([]bool, len(y))
	for i, v := range y {
		classes[i] = v == 1
	}
	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// PrecisionAtK is the share of positives among the top k percent of rows by
// score, at least one row. Ties at the cut are broken by row order
func PrecisionAtK(k float64) Scorer {
	return func(y, p []float64) (float64, error) {
		if _, err := check(y, p); err != nil {
			return 0, err
		}
		if k <= 0 || k > 100 {
			return 0, perr.InvalidArgf("metrics: precision_at_k needs 0 < k <= 100, got %v", k)
		}
		n := max(1, int(float64(len(y))*k/100))
		idx := make([]int, len(y))
		for i := range idx {
			idx[i] = i
		}
		slices.SortStableFunc(idx, func(a, b int) int { return cmp.Compare(p[b], p[a]) })
		var hits float64
		for _, i := range idx[:n] {
			hits += y[i]
		}
		return hits / float64(n), nil
	}
}

// NegLogLoss is minus the mean binary cross-entropy with probabilities
// clipped to [1e-15, 1-1e-15]
func NegLogLoss(y, p []float64) (float64, error) {
	if _, err := check(y, p); err != nil {
		return 0, err
	}
	const eps = 1e-15
	var sum float64
	for i, v := range y {
		q := min(max(p[i], eps), 1-eps)
		sum += v*math.Log(q) + (1-v)*math.Log(1-q)
	}
	return sum / float64(len(y)), nil
}

// Confusion holds the counts at one probability threshold
type Confusion struct {
	TP, FP, TN, FN int
}

// ConfusionAt classifies p >= threshold as churn
func ConfusionAt(y, p []float64, threshold float64) (Confusion, error) {
	var c Confusion
	if _, err := check(y, p); err != nil {
		return c, err
	}
	for i, v := range y {
		pred := p[i] >= threshold
		switch {
		case pred && v == 1:
			c.TP++
		case pred:
			c.FP++
		case v == 1:
			c.FN++
		default:
			c.TN++
		}
	}
	return c, nil
}

// Precision is TP / (TP + FP), 0 when nothing is predicted positive
func (c Confusion) Precision() float64 {
	if c.TP+c.FP == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// Recall is TP / (TP + FN), 0 when there are no positives
func (c Confusion) Recall() float64 {
	if c.TP+c.FN == 0 {
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// Lookup resolves a scorer name: roc_auc, neg_log_loss or
// precision_at_<k> with k a percentage, e.g. precision_at_10
func Lookup(name string) (Scorer, error) {
	switch name {
	case "roc_auc":
		return ROCAUC, nil
	case "neg_log_loss":
		return NegLogLoss, nil
	}
	if rest, ok := strings.CutPrefix(name, "precision_at_"); ok {
		k, err := strconv.ParseFloat(rest, 64)
		if err == nil && k > 0 && k <= 100 {
			return PrecisionAtK(k), nil
		}
	}
	return nil, perr.Configurationf("metrics: unknown scoring %q (want roc_auc, neg_log_loss or precision_at_<k>)", name)
}
