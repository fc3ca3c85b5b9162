package layout

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// CostModel holds the edit costs used to align two storage layouts. Appending a variable after the end of the
// original layout is the only change that leaves every existing slot in place, so it must be the cheapest edit, and
// a substitution must cost more than an insertion or a deletion alone but less than both together.
type CostModel struct {
	// Substitution is the cost of replacing one variable with a different one at the same position.
	Substitution int `json:"substitution"`
	// Insertion is the cost of inserting a variable before the end of the original layout.
	Insertion int `json:"insertion"`
	// Deletion is the cost of removing a variable.
	Deletion int `json:"deletion"`
	// Append is the cost of inserting a variable past the end of the original layout.
	Append int `json:"append"`
}

// DefaultCostModel is the cost model used by Compare.
var DefaultCostModel = CostModel{
	Substitution: 3,
	Insertion:    2,
	Deletion:     2,
	Append:       0,
}

// Validate returns an error if the cost model does not preserve the relative ordering of edits which the
// classification of operations relies on.
func (c CostModel) Validate() error {
	if c.Substitution < 0 || c.Insertion < 0 || c.Deletion < 0 || c.Append < 0 {
		return fmt.Errorf("edit costs must not be negative: %+v", c)
	}
	if c.Append >= c.Insertion || c.Append >= c.Deletion {
		return fmt.Errorf("the append cost (%d) must be lower than the insertion (%d) and deletion (%d) costs", c.Append, c.Insertion, c.Deletion)
	}
	if c.Substitution <= c.Insertion || c.Substitution <= c.Deletion {
		return fmt.Errorf("the substitution cost (%d) must be higher than the insertion (%d) and deletion (%d) costs", c.Substitution, c.Insertion, c.Deletion)
	}
	if c.Substitution >= c.Insertion+c.Deletion {
		return fmt.Errorf("the substitution cost (%d) must be lower than an insertion plus a deletion (%d)", c.Substitution, c.Insertion+c.Deletion)
	}
	return nil
}

// edit is a single step of an alignment between two sequences.
type edit[T any] struct {
	action   Action
	original *T
	updated  *T
}

// levenshtein aligns the original sequence against the updated one and returns the edits in sequence order,
// including the elements that match. The match function classifies a pair of elements as ActionEqual or as one of
// the substitution actions.
func levenshtein[T any](original []T, updated []T, match func(a, b T) Action, costs CostModel) []edit[T] {
	n, m := len(original), len(updated)

	insertionCost := func(j int) int {
		if j > n {
			return costs.Append
		}
		return costs.Insertion
	}

	matrix := make([][]int, n+1)
	for i := range matrix {
		matrix[i] = make([]int, m+1)
	}
	for i := 1; i <= n; i++ {
		matrix[i][0] = i * costs.Deletion
	}
	for j := 1; j <= m; j++ {
		matrix[0][j] = matrix[0][j-1] + insertionCost(j)
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			substitution := matrix[i-1][j-1]
			if match(original[i-1], updated[j-1]) != ActionEqual {
				substitution += costs.Substitution
			}
			insertion := matrix[i][j-1] + insertionCost(j)
			deletion := matrix[i-1][j] + costs.Deletion
			matrix[i][j] = min(substitution, insertion, deletion)
		}
	}

	return walkMatrix(matrix, original, updated, match, costs, insertionCost)
}

// walkMatrix walks a filled cost matrix from the bottom-right corner back to the origin. When several edits reach a
// cell at the same cost, a match wins over an insertion, an insertion over a deletion and a deletion over a
// substitution. An insertion is only an append once every original variable precedes it, and a deletion is only a
// pop once every updated variable precedes it.
func walkMatrix[T any](matrix [][]int, original []T, updated []T, match func(a, b T) Action, costs CostModel, insertionCost func(int) int) []edit[T] {
	n, m := len(original), len(updated)
	edits := make([]edit[T], 0, max(n, m))

	i, j := n, m
	for i > 0 || j > 0 {
		cost := matrix[i][j]

		var step edit[T]
		switch {
		case i > 0 && j > 0 && cost == matrix[i-1][j-1] && match(original[i-1], updated[j-1]) == ActionEqual:
			step = edit[T]{action: ActionEqual, original: &original[i-1], updated: &updated[j-1]}
			i--
			j--
		case j > 0 && cost == matrix[i][j-1]+insertionCost(j):
			step = edit[T]{action: ActionInsert, updated: &updated[j-1]}
			if i == n && j > n {
				step.action = ActionAppend
			}
			j--
		case i > 0 && cost == matrix[i-1][j]+costs.Deletion:
			step = edit[T]{action: ActionDelete, original: &original[i-1]}
			if j == m && i > m {
				step.action = ActionPop
			}
			i--
		case i > 0 && j > 0 && cost == matrix[i-1][j-1]+costs.Substitution:
			step = edit[T]{action: match(original[i-1], updated[j-1]), original: &original[i-1], updated: &updated[j-1]}
			i--
			j--
		default:
			panic(fmt.Sprintf("inconsistent edit distance matrix at (%d, %d)", i, j))
		}
		edits = append(edits, step)
	}

	// The walk runs back to front
	slices.Reverse(edits)
	return edits
}
