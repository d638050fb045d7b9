package matching

import "errors"

var (
	// ErrInvalidGridFees is returned if a grid fee matrix isn't square or
	// contains negative or non-finite fees.
	ErrInvalidGridFees = errors.New("invalid grid fee matrix")

	// ErrClusterOutOfRange is returned if a grid fee is requested for a
	// cluster that isn't part of the matrix.
	ErrClusterOutOfRange = errors.New("cluster index out of range")

	// ErrStrategyUnavailable is returned if a fee-aware clearing run is
	// requested but no FeeAwareClearer was provided.
	ErrStrategyUnavailable = errors.New("fee-aware clearing strategy " +
		"unavailable")
)
