package battle

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/gekkinggu/turn-based-combat/internal/game/catalog"
	"github.com/gekkinggu/turn-based-combat/internal/game/character"
	"github.com/gekkinggu/turn-based-combat/internal/game/status"
)

// execute resolves a validated action. MP is deducted up front; each target
// is then resolved independently in order, and a target that died earlier in
// the same resolution is skipped without an event.
//
// Multi-target actions re-expand to the side's living members at execution
// time, so a roster that changed since the decision was made still resolves
// against the current battlefield.
func (b *Battle) execute(actor *character.Combatant, def *catalog.ActionDef, targets []*character.Combatant) []Event {
	b.state = StateExecuting
	actor.SpendMP(def.MPCost)

	if def.MultiTarget() {
		own, opposing := b.sideOf(actor)
		side := opposing
		if def.TargetsOwnSide() {
			side = own
		}
		targets = targets[:0]
		for _, c := range side {
			if !c.IsDefeated() {
				targets = append(targets, c)
			}
		}
	}

	b.logger.Debug("executing action",
		zap.String("actor", actor.Name),
		zap.String("action", def.ID),
		zap.Int("targets", len(targets)),
	)

	var events []Event
	resolved := 0
	for _, target := range targets {
		if target.IsDefeated() {
			continue
		}
		resolved++
		switch def.Effect {
		case catalog.EffectDamage:
			events = append(events, b.resolveDamage(actor, target, def))
		case catalog.EffectHeal:
			events = append(events, b.resolveHeal(actor, target, def))
		}
		if def.Status != "" {
			events = append(events, b.resolveStatus(actor, target, def)...)
		}
	}

	if resolved == 0 {
		events = append(events, Event{
			Kind:       EventMiss,
			Turn:       b.turn,
			SourceID:   actor.ID,
			SourceName: actor.Name,
			ActionID:   def.ID,
			ActionName: def.Name,
			Narrative:  fmt.Sprintf("%s's %s finds no target.", actor.Name, def.Name),
		})
	}
	return events
}

// resolveDamage computes and applies one damage hit.
//
// The base amount is attack / 2^(defense/attack) scaled by potency, then by
// the variance roll, the critical multiplier if the critical roll passes, and
// the target's elemental affinity. An immunity (factor 0) still produces a
// zero-magnitude damage event; an absorption (negative factor) converts the
// hit into a heal.
func (b *Battle) resolveDamage(actor, target *character.Combatant, def *catalog.ActionDef) Event {
	var attack, defense int
	if def.Physical {
		attack = actor.EffectiveStrength()
		defense = target.EffectiveDefense()
	} else {
		attack = actor.EffectiveMagic()
		defense = target.EffectiveMagicDefense()
	}
	if attack < 1 {
		attack = 1
	}

	base := float64(attack) / math.Exp2(float64(defense)/float64(attack))
	base *= float64(def.Potency) / 100

	amount := base * b.roller.Variance(b.tuning.VarianceMin, b.tuning.VarianceMax)
	crit := b.roller.Chance(b.tuning.CritChance)
	if crit {
		amount *= b.tuning.CritMultiplier
	}

	factor := target.AffinityFactor(def.Element)
	switch {
	case factor < 0:
		healed := target.Heal(int(amount * -factor))
		return Event{
			Kind:       EventHeal,
			Turn:       b.turn,
			SourceID:   actor.ID,
			SourceName: actor.Name,
			TargetID:   target.ID,
			TargetName: target.Name,
			ActionID:   def.ID,
			ActionName: def.Name,
			Magnitude:  healed,
			Narrative:  fmt.Sprintf("%s absorbs the %s and recovers %d HP!", target.Name, def.Name, healed),
		}
	case factor == 0:
		e := Event{
			Kind:       EventDamage,
			Turn:       b.turn,
			SourceID:   actor.ID,
			SourceName: actor.Name,
			TargetID:   target.ID,
			TargetName: target.Name,
			ActionID:   def.ID,
			ActionName: def.Name,
			Magnitude:  0,
		}
		e.Narrative = damageNarrative(e)
		return e
	}

	final := int(amount * factor)
	if final < 1 {
		final = 1
	}
	dealt := target.ApplyDamage(final)
	e := Event{
		Kind:       EventDamage,
		Turn:       b.turn,
		SourceID:   actor.ID,
		SourceName: actor.Name,
		TargetID:   target.ID,
		TargetName: target.Name,
		ActionID:   def.ID,
		ActionName: def.Name,
		Magnitude:  dealt,
		Crit:       crit,
	}
	e.Narrative = damageNarrative(e)
	return e
}

// resolveHeal computes and applies one heal: magic/2 scaled by potency and
// the variance roll, floored at 1, capped by the target's missing HP.
func (b *Battle) resolveHeal(actor, target *character.Combatant, def *catalog.ActionDef) Event {
	base := float64(actor.EffectiveMagic()) / 2 * float64(def.Potency) / 100
	amount := int(base * b.roller.Variance(b.tuning.VarianceMin, b.tuning.VarianceMax))
	if amount < 1 {
		amount = 1
	}
	healed := target.Heal(amount)
	return Event{
		Kind:       EventHeal,
		Turn:       b.turn,
		SourceID:   actor.ID,
		SourceName: actor.Name,
		TargetID:   target.ID,
		TargetName: target.Name,
		ActionID:   def.ID,
		ActionName: def.Name,
		Magnitude:  healed,
		Narrative:  fmt.Sprintf("%s recovers %d HP!", target.Name, healed),
	}
}

// resolveStatus rolls the action's status payload against its chance and
// applies it to the payload's recipient.
func (b *Battle) resolveStatus(actor, target *character.Combatant, def *catalog.ActionDef) []Event {
	recipient := target
	if def.StatusRecipientSelf() {
		recipient = actor
	}
	if recipient.IsDefeated() {
		return nil
	}

	statusDef, err := b.catalog.Status(def.Status)
	if err != nil {
		// Catalog construction validates payload references.
		b.logger.Error("unresolvable status payload",
			zap.String("action", def.ID),
			zap.String("status", def.Status),
			zap.Error(err),
		)
		return nil
	}

	if !b.roller.Chance(def.StatusChance) {
		return []Event{{
			Kind:       EventStatusResisted,
			Turn:       b.turn,
			SourceID:   actor.ID,
			SourceName: actor.Name,
			TargetID:   recipient.ID,
			TargetName: recipient.Name,
			ActionID:   def.ID,
			ActionName: def.Name,
			StatusID:   statusDef.ID,
			Narrative:  fmt.Sprintf("%s resists %s.", recipient.Name, statusDef.Name),
		}}
	}

	outcome, err := recipient.Statuses.Apply(statusDef)
	if err != nil {
		b.logger.Error("status application failed",
			zap.String("status", statusDef.ID),
			zap.Error(err),
		)
		return nil
	}
	if outcome == status.Ignored {
		return []Event{{
			Kind:       EventStatusResisted,
			Turn:       b.turn,
			SourceID:   actor.ID,
			SourceName: actor.Name,
			TargetID:   recipient.ID,
			TargetName: recipient.Name,
			ActionID:   def.ID,
			ActionName: def.Name,
			StatusID:   statusDef.ID,
			Narrative:  fmt.Sprintf("%s is already affected by %s.", recipient.Name, statusDef.Name),
		}}
	}
	return []Event{{
		Kind:       EventStatusApplied,
		Turn:       b.turn,
		SourceID:   actor.ID,
		SourceName: actor.Name,
		TargetID:   recipient.ID,
		TargetName: recipient.Name,
		ActionID:   def.ID,
		ActionName: def.Name,
		StatusID:   statusDef.ID,
		Narrative:  fmt.Sprintf("%s is afflicted with %s!", recipient.Name, statusDef.Name),
	}}
}
