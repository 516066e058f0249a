// Package topsis ranks alternatives against weighted criteria using TOPSIS
// (Technique for Order Preference by Similarity to Ideal Solution).
//
// The engine is a pure function: it never mutates its inputs, keeps no state
// between calls and returns bit-identical output for identical input, so it
// is safe to call from any number of goroutines.
package topsis

import (
	"cmp"
	"math"
	"slices"
)

// neutralScore is assigned when an alternative coincides with both ideal
// points and there is nothing to discriminate on.
const neutralScore = 0.5

// Alternative is a labelled row of raw criterion values.
type Alternative struct {
	Label  string
	Values []float64
}

// Criterion describes one column of the decision matrix.
type Criterion struct {
	Name   string
	Impact Impact
	Weight float64
}

// Result holds per-row closeness scores and ranks for a decision matrix.
// Scores[i] and Ranks[i] refer to input row i.
type Result struct {
	// Scores are closeness coefficients in [0, 1]; higher is better.
	Scores []float64
	// Ranks are strict ordinals 1..R; ties keep input order.
	Ranks []int
	// Order lists row indexes best first.
	Order []int
	// Weights are the input weights rescaled to sum to 1.
	Weights []float64
}

// Ranked is an alternative together with its score and rank.
type Ranked struct {
	Alternative
	Score float64
	Rank  int
}

// Rank scores every row of matrix and orders the rows best first.
//
// matrix is R×C, weights and impacts have length C. Inputs are validated
// before any arithmetic and a *ValidationError is returned on the first
// violation.
func Rank(matrix [][]float64, weights []float64, impacts []Impact) (Result, error) {
	if err := validate(matrix, weights, impacts); err != nil {
		return Result{}, err
	}

	rows, cols := len(matrix), len(weights)
	w := normalizeWeights(weights)

	// Weighted, vector-normalised matrix.
	v := make([][]float64, rows)
	for i := range v {
		v[i] = make([]float64, cols)
	}
	for j := 0; j < cols; j++ {
		norm := columnNorm(matrix, j)
		if norm == 0 {
			// All-zero column: leave zeros, it contributes nothing to distances.
			continue
		}
		for i := 0; i < rows; i++ {
			v[i][j] = matrix[i][j] / norm * w[j]
		}
	}

	best, worst := idealPoints(v, impacts)

	scores := make([]float64, rows)
	for i := 0; i < rows; i++ {
		dBest := distance(v[i], best)
		dWorst := distance(v[i], worst)
		scores[i] = closeness(dBest, dWorst)
	}

	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})
	ranks := make([]int, rows)
	for pos, row := range order {
		ranks[row] = pos + 1
	}

	return Result{Scores: scores, Ranks: ranks, Order: order, Weights: w}, nil
}

// RankAlternatives ranks labelled alternatives and returns them best first.
func RankAlternatives(alts []Alternative, criteria []Criterion) ([]Ranked, error) {
	if len(alts) == 0 {
		return nil, newValidationError(ErrEmptyInput, -1, "no alternatives")
	}
	if len(criteria) == 0 {
		return nil, newValidationError(ErrEmptyInput, -1, "no criteria")
	}

	matrix := make([][]float64, len(alts))
	for i, a := range alts {
		if len(a.Values) != len(criteria) {
			return nil, newValidationError(ErrShapeMismatch, i,
				"alternative %q has %d values, want %d", a.Label, len(a.Values), len(criteria))
		}
		matrix[i] = a.Values
	}
	weights := make([]float64, len(criteria))
	impacts := make([]Impact, len(criteria))
	for j, c := range criteria {
		weights[j] = c.Weight
		impacts[j] = c.Impact
	}

	res, err := Rank(matrix, weights, impacts)
	if err != nil {
		return nil, err
	}

	out := make([]Ranked, 0, len(alts))
	for _, row := range res.Order {
		out = append(out, Ranked{
			Alternative: Alternative{
				Label:  alts[row].Label,
				Values: slices.Clone(alts[row].Values),
			},
			Score: res.Scores[row],
			Rank:  res.Ranks[row],
		})
	}
	return out, nil
}

func validate(matrix [][]float64, weights []float64, impacts []Impact) error {
	if len(matrix) == 0 {
		return newValidationError(ErrEmptyInput, -1, "matrix has no rows")
	}
	cols := len(matrix[0])
	if cols == 0 {
		return newValidationError(ErrEmptyInput, -1, "matrix has no columns")
	}
	if len(weights) != cols {
		return newValidationError(ErrShapeMismatch, -1, "%d weights for %d criteria", len(weights), cols)
	}
	if len(impacts) != cols {
		return newValidationError(ErrShapeMismatch, -1, "%d impacts for %d criteria", len(impacts), cols)
	}
	for i, row := range matrix {
		if len(row) != cols {
			return newValidationError(ErrShapeMismatch, i, "row has %d values, want %d", len(row), cols)
		}
	}
	for j, imp := range impacts {
		if !imp.Valid() {
			return newValidationError(ErrInvalidImpact, j, "impact must be benefit or cost, got %s", imp)
		}
	}
	var total float64
	for j, wt := range weights {
		if math.IsNaN(wt) || math.IsInf(wt, 0) {
			return newValidationError(ErrInvalidWeight, j, "weight is not finite")
		}
		if wt < 0 {
			return newValidationError(ErrInvalidWeight, j, "weight %g is negative", wt)
		}
		total += wt
	}
	if total == 0 {
		return newValidationError(ErrInvalidWeight, -1, "all weights are zero")
	}
	for i, row := range matrix {
		for j, x := range row {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return newValidationError(ErrInvalidValue, i, "value in column %d is not finite", j)
			}
		}
	}
	return nil
}

// normalizeWeights rescales weights to sum to 1. Dividing by the largest
// weight first keeps the sum finite for huge inputs.
func normalizeWeights(weights []float64) []float64 {
	maxW := slices.Max(weights)
	out := make([]float64, len(weights))
	var sum float64
	for j, wt := range weights {
		out[j] = wt / maxW
		sum += out[j]
	}
	for j := range out {
		out[j] /= sum
	}
	return out
}

// columnNorm is the Euclidean norm of column j, scaled by the column's
// largest magnitude so squaring cannot overflow or underflow.
func columnNorm(matrix [][]float64, j int) float64 {
	var scale float64
	for _, row := range matrix {
		scale = math.Max(scale, math.Abs(row[j]))
	}
	if scale == 0 {
		return 0
	}
	var sum float64
	for _, row := range matrix {
		r := row[j] / scale
		sum += r * r
	}
	return scale * math.Sqrt(sum)
}

func idealPoints(v [][]float64, impacts []Impact) (best, worst []float64) {
	cols := len(impacts)
	best = make([]float64, cols)
	worst = make([]float64, cols)
	for j := 0; j < cols; j++ {
		hi, lo := v[0][j], v[0][j]
		for _, row := range v[1:] {
			hi = math.Max(hi, row[j])
			lo = math.Min(lo, row[j])
		}
		if impacts[j] == Benefit {
			best[j], worst[j] = hi, lo
		} else {
			best[j], worst[j] = lo, hi
		}
	}
	return best, worst
}

func distance(row, ref []float64) float64 {
	var sum float64
	for j := range row {
		d := row[j] - ref[j]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func closeness(dBest, dWorst float64) float64 {
	total := dBest + dWorst
	if total == 0 {
		return neutralScore
	}
	s := dWorst / total
	// Guard against rounding drift outside the closed unit interval.
	return math.Max(0, math.Min(1, s))
}
