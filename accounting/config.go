package accounting

import (
	"github.com/simplyr/simplyr/matching"
)

type Config struct {
	// GridFees is the optional fee matrix used to charge buyers for the
	// transport of energy between grid clusters. If nil, no grid fees
	// are accounted for.
	GridFees *matching.GridFeeMatrix
}
