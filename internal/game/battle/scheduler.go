package battle

import (
	"sort"

	"github.com/gekkinggu/turn-based-combat/internal/game/character"
)

// readyEntry pairs a newly-ready combatant with its gauge overflow, the
// primary tie-break key.
type readyEntry struct {
	combatant *character.Combatant
	overflow  float64
}

// advanceGauges increases every living, unqueued combatant's gauge by
// speed * GaugeRate * dt in a single atomic pass and returns the combatants
// that crossed the readiness threshold during this step, in promotion order.
//
// Ordering is fully deterministic: overflow descending, then effective speed
// descending, then roster position ascending. No map iteration is involved,
// so identical inputs always produce identical orderings.
//
// Postcondition: every gauge satisfies 0 <= gauge <= ReadyThreshold; dead and
// already-queued combatants are untouched.
func (b *Battle) advanceGauges(dt float64) []*character.Combatant {
	var ready []readyEntry
	for _, c := range b.battlers() {
		if c.IsDefeated() || b.isQueued(c) {
			continue
		}
		raw := c.Gauge + float64(c.EffectiveSpeed())*b.tuning.GaugeRate*dt
		if raw >= b.tuning.ReadyThreshold {
			ready = append(ready, readyEntry{combatant: c, overflow: raw - b.tuning.ReadyThreshold})
			c.Gauge = b.tuning.ReadyThreshold
			continue
		}
		c.Gauge = raw
	}

	sort.SliceStable(ready, func(i, j int) bool {
		if ready[i].overflow != ready[j].overflow {
			return ready[i].overflow > ready[j].overflow
		}
		si, sj := ready[i].combatant.EffectiveSpeed(), ready[j].combatant.EffectiveSpeed()
		if si != sj {
			return si > sj
		}
		return ready[i].combatant.RosterIndex < ready[j].combatant.RosterIndex
	})

	out := make([]*character.Combatant, len(ready))
	for i, e := range ready {
		out[i] = e.combatant
	}
	return out
}

// battlers returns party then enemies in roster order.
func (b *Battle) battlers() []*character.Combatant {
	out := make([]*character.Combatant, 0, len(b.party)+len(b.enemies))
	out = append(out, b.party...)
	out = append(out, b.enemies...)
	return out
}

// isQueued reports whether c is already waiting in the ready queue.
func (b *Battle) isQueued(c *character.Combatant) bool {
	for _, q := range b.readyQueue {
		if q == c {
			return true
		}
	}
	return false
}
