package matching

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// GridFeeMatrix holds the fee in EUR/kWh that is charged for transporting
// energy from one grid cluster to another. Row i, column j is the fee from
// cluster i to cluster j.
type GridFeeMatrix struct {
	fees [][]float64
}

// NewGridFeeMatrix creates a grid fee matrix from the given rows. The matrix
// must be square and every fee finite and non-negative.
func NewGridFeeMatrix(fees [][]float64) (*GridFeeMatrix, error) {
	g := &GridFeeMatrix{
		fees: make([][]float64, len(fees)),
	}
	for i, row := range fees {
		g.fees[i] = append([]float64(nil), row...)
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return g, nil
}

// ParseGridFeeMatrix decodes a grid fee matrix from a JSON array of arrays,
// e.g. "[[0,1,1],[1,0,1],[1,1,0]]".
func ParseGridFeeMatrix(s string) (*GridFeeMatrix, error) {
	var fees [][]float64
	if err := json.Unmarshal([]byte(s), &fees); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGridFees, err)
	}

	return NewGridFeeMatrix(fees)
}

// ReadGridFeeMatrixFile decodes the grid fee matrix stored at the given path.
func ReadGridFeeMatrixFile(path string) (*GridFeeMatrix, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read grid fee matrix: %w", err)
	}

	return ParseGridFeeMatrix(string(content))
}

// Validate makes sure the matrix is square and only holds finite,
// non-negative fees.
func (g *GridFeeMatrix) Validate() error {
	n := len(g.fees)
	for i, row := range g.fees {
		if len(row) != n {
			return fmt.Errorf("%w: row %d has %d columns, expected "+
				"%d", ErrInvalidGridFees, i, len(row), n)
		}

		for j, fee := range row {
			if math.IsNaN(fee) || math.IsInf(fee, 0) || fee < 0 {
				return fmt.Errorf("%w: fee %v from cluster %d "+
					"to %d", ErrInvalidGridFees, fee, i, j)
			}
		}
	}

	return nil
}

// Size returns the number of clusters of the matrix.
func (g *GridFeeMatrix) Size() int {
	return len(g.fees)
}

// Fee returns the fee in EUR/kWh for transporting energy from one cluster to
// another.
func (g *GridFeeMatrix) Fee(from, to int64) (float64, error) {
	n := int64(len(g.fees))
	if from < 0 || from >= n || to < 0 || to >= n {
		return 0, fmt.Errorf("%w: %d -> %d with %d clusters",
			ErrClusterOutOfRange, from, to, n)
	}

	return g.fees[from][to], nil
}

// MarshalJSON encodes the matrix as a JSON array of arrays.
func (g *GridFeeMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.fees)
}

// UnmarshalJSON decodes and validates a JSON array of arrays.
func (g *GridFeeMatrix) UnmarshalJSON(b []byte) error {
	var fees [][]float64
	if err := json.Unmarshal(b, &fees); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGridFees, err)
	}

	parsed, err := NewGridFeeMatrix(fees)
	if err != nil {
		return err
	}

	*g = *parsed
	return nil
}
