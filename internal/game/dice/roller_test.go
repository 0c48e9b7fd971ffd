package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/gekkinggu/turn-based-combat/internal/game/dice"
)

func TestSeededSource_Deterministic(t *testing.T) {
	a := dice.NewSeededSource(42)
	b := dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestSeededSource_ZeroSeedIsValid(t *testing.T) {
	src := dice.NewSeededSource(0)
	v := src.Intn(10)
	assert.GreaterOrEqual(t, v, 0)
	assert.Less(t, v, 10)
}

func TestRoller_Chance_Extremes(t *testing.T) {
	r := dice.NewRoller(dice.NewSeededSource(1), zap.NewNop())
	for i := 0; i < 50; i++ {
		assert.False(t, r.Chance(0))
		assert.True(t, r.Chance(1))
	}
}

func TestRoller_Variance_DegenerateRange(t *testing.T) {
	r := dice.NewRoller(dice.NewSeededSource(1), zap.NewNop())
	assert.InDelta(t, 1.0, r.Variance(1.0, 1.0), 1e-9)
}

func TestRoller_Property_VarianceWithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64().Draw(rt, "seed")
		r := dice.NewRoller(dice.NewSeededSource(seed), zap.NewNop())
		v := r.Variance(0.85, 1.15)
		assert.GreaterOrEqual(rt, v, 0.85)
		assert.LessOrEqual(rt, v, 1.15)
		// Integer percent steps only.
		pct := v * 100
		assert.InDelta(rt, pct, float64(int(pct+0.5)), 1e-9)
	})
}

func TestRoller_Property_PickInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Int64().Draw(rt, "seed")
		n := rapid.IntRange(1, 50).Draw(rt, "n")
		r := dice.NewRoller(dice.NewSeededSource(seed), zap.NewNop())
		got := r.Pick(n)
		assert.GreaterOrEqual(rt, got, 0)
		assert.Less(rt, got, n)
	})
}

func TestCryptoSource_Range(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 100; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}
