package engine

import (
	"math"

	"adpilot/internal/features/rule"
)

// MinBid is the platform's absolute bid floor.
const MinBid = 0.02

// NewBid applies a bid action to the current bid. Increases round up to
// the nearest cent, decreases round down; the result never drops below
// MinBid; optional clamps apply after rounding. Returns false when the
// final bid equals the current one, so callers can skip redundant API
// writes.
func NewBid(current float64, act rule.BidAction) (float64, bool) {
	raw := current
	if act.Percent != nil {
		raw = current * (1 + *act.Percent/100)
	} else if act.Delta != nil {
		raw = current + *act.Delta
	}

	cents := raw * 100
	if raw > current {
		cents = math.Ceil(cents - 1e-9)
	} else {
		cents = math.Floor(cents + 1e-9)
	}
	bid := cents / 100

	if bid < MinBid {
		bid = MinBid
	}
	if act.MinBid != nil && bid < *act.MinBid {
		bid = *act.MinBid
	}
	if act.MaxBid != nil && bid > *act.MaxBid {
		bid = *act.MaxBid
	}

	return bid, bid != current
}
