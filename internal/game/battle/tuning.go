package battle

import "github.com/gekkinggu/turn-based-combat/internal/config"

// Tuning holds the numeric parameters of a battle. The values are data, not
// engine constants: they arrive from configuration and are fixed for the
// battle's lifetime.
type Tuning struct {
	// ReadyThreshold is the gauge value at which a combatant becomes ready.
	// The threshold is per battle, not per combatant, so speed alone
	// differentiates readiness rate.
	ReadyThreshold float64
	// GaugeRate scales accrual: gauge += speed * GaugeRate * dt.
	GaugeRate float64
	// VarianceMin/VarianceMax bound the random damage/heal multiplier.
	VarianceMin float64
	VarianceMax float64
	// CritChance is the critical-hit probability in [0,1].
	CritChance float64
	// CritMultiplier scales damage on a critical hit.
	CritMultiplier float64
	// StartingGaugeMax bounds randomized starting gauges; 0 disables them.
	StartingGaugeMax float64
}

// DefaultTuning returns the baseline parameters of the original rule set.
func DefaultTuning() Tuning {
	return Tuning{
		ReadyThreshold:   296,
		GaugeRate:        5,
		VarianceMin:      0.85,
		VarianceMax:      1.15,
		CritChance:       0.15,
		CritMultiplier:   2,
		StartingGaugeMax: 0,
	}
}

// TuningFromConfig converts a validated BattleConfig into a Tuning.
//
// Precondition: cfg has passed config.Validate.
func TuningFromConfig(cfg config.BattleConfig) Tuning {
	return Tuning{
		ReadyThreshold:   cfg.ReadyThreshold,
		GaugeRate:        cfg.GaugeRate,
		VarianceMin:      cfg.VarianceMin,
		VarianceMax:      cfg.VarianceMax,
		CritChance:       cfg.CritChance,
		CritMultiplier:   cfg.CritMultiplier,
		StartingGaugeMax: cfg.StartingGaugeMax,
	}
}
