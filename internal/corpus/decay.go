package corpus

import (
	"fmt"
	"math"
	"strings"
)

// DecayFunc maps a recency rank (0 = most recently added) and the corpus size
// to a weight in (0,1]. Implementations must return 1 for rank 0 and be
// monotonically non-increasing in rank.
type DecayFunc func(rank, n int) float64

// Decay curve names accepted by ParseDecay.
const (
	DecayLog         = "log"
	DecayExponential = "exponential"
	DecayLinear      = "linear"
)

// DefaultHalfLife is the rank at which exponential decay halves the weight.
const DefaultHalfLife = 100

// linearFloor keeps the oldest item's linear weight strictly positive.
const linearFloor = 0.05

// LogDecay weights rank r as 1/(1+log10(r+1)). This is the default curve:
// it drops quickly over the first few dozen items and flattens afterwards.
func LogDecay(rank, _ int) float64 {
	return 1 / (1 + math.Log10(float64(rank)+1))
}

// ExponentialDecay returns a curve that halves the weight every halfLife ranks.
func ExponentialDecay(halfLife float64) DecayFunc {
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	return func(rank, _ int) float64 {
		return math.Exp(-float64(rank) * math.Ln2 / halfLife)
	}
}

// LinearDecay falls linearly from 1 at rank 0 to linearFloor at the oldest item.
func LinearDecay(rank, n int) float64 {
	if n <= 1 {
		return 1
	}
	w := 1 - float64(rank)/float64(n-1)*(1-linearFloor)
	return math.Max(w, linearFloor)
}

// ParseDecay resolves a configured curve name.
func ParseDecay(name string, halfLife float64) (DecayFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DecayLog:
		return LogDecay, nil
	case DecayExponential:
		return ExponentialDecay(halfLife), nil
	case DecayLinear:
		return LinearDecay, nil
	default:
		return nil, fmt.Errorf("unknown decay curve %q (want %s, %s or %s)", name, DecayLog, DecayExponential, DecayLinear)
	}
}
