package dice

import (
	"math"

	"go.uber.org/zap"
)

// Roller wraps a Source and logger to provide logged battle rolls.
// All rolls are logged at debug level so a full battle can be audited.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Variance returns a multiplier drawn uniformly from the integer percent
// steps spanning [min, max], e.g. min=0.85 max=1.15 yields one of
// 0.85, 0.86, ..., 1.15.
//
// Precondition: 0 < min <= max.
// Postcondition: min <= result <= max.
func (r *Roller) Variance(min, max float64) float64 {
	lo := int(math.Round(min * 100))
	hi := int(math.Round(max * 100))
	if hi < lo {
		hi = lo
	}
	pct := lo + r.src.Intn(hi-lo+1)
	v := float64(pct) / 100
	r.logger.Debug("variance roll",
		zap.Float64("min", min),
		zap.Float64("max", max),
		zap.Float64("value", v),
	)
	return v
}

// Chance performs an independent probability check.
//
// Precondition: 0 <= p <= 1.
// Postcondition: always false for p == 0 and always true for p == 1.
func (r *Roller) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	roll := r.src.Intn(10000)
	hit := roll < int(math.Round(p*10000))
	r.logger.Debug("chance roll",
		zap.Float64("p", p),
		zap.Int("roll", roll),
		zap.Bool("hit", hit),
	)
	return hit
}

// Pick returns a uniformly random index in [0, n).
//
// Precondition: n > 0.
func (r *Roller) Pick(n int) int {
	return r.src.Intn(n)
}

// Source returns the underlying randomness source.
func (r *Roller) Source() Source { return r.src }
