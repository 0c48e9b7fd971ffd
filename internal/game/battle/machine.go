package battle

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gekkinggu/turn-based-combat/internal/game/behavior"
	"github.com/gekkinggu/turn-based-combat/internal/game/catalog"
	"github.com/gekkinggu/turn-based-combat/internal/game/character"
)

// Advance moves simulated time forward by dt seconds and runs the state
// machine until it either suspends for a player decision or runs out of
// ready actors. Returned events describe everything that resolved during
// the step, in emission order.
//
// Calling Advance while terminal, or while a decision is pending, is a no-op.
func (b *Battle) Advance(dt float64) []Event {
	if b.IsTerminal() || b.pending != nil {
		return nil
	}

	b.state = StateWaiting
	newlyReady := b.advanceGauges(dt)
	if len(newlyReady) > 1 {
		b.state = StateSpeedTie
	}
	b.readyQueue = append(b.readyQueue, newlyReady...)

	return b.drainReadyQueue()
}

// drainReadyQueue promotes queued actors one at a time until the queue is
// empty, the battle ends, or a player actor suspends the machine.
func (b *Battle) drainReadyQueue() []Event {
	var events []Event

	for len(b.readyQueue) > 0 && !b.IsTerminal() {
		actor := b.readyQueue[0]
		b.readyQueue = b.readyQueue[1:]
		if actor.IsDefeated() {
			continue
		}

		b.state = StatePrepareActor
		actor.Gauge = 0
		b.turn++

		if actor.Statuses.Disabled() {
			events = append(events, b.passTurn(actor, "unable to act"))
			events = append(events, b.finishTurn()...)
			continue
		}

		if actor.IsPlayer() {
			b.pending = actor
			b.state = StateControlledTurn
			b.logger.Debug("awaiting decision",
				zap.String("actor", actor.Name),
				zap.Int("turn", b.turn),
			)
			return events
		}

		events = append(events, b.takeAITurn(actor)...)
		if b.IsTerminal() {
			break
		}
		events = append(events, b.finishTurn()...)
	}

	if !b.IsTerminal() && b.pending == nil {
		b.state = StateWaiting
	}
	return events
}

// takeAITurn asks the actor's behavior policy for a decision and executes it.
// A policy that errors or declines forfeits the turn rather than stalling
// the battle.
func (b *Battle) takeAITurn(actor *character.Combatant) []Event {
	b.state = StateAITurn

	policy, ok := b.policies.Get(actor.Behavior)
	if !ok {
		// Construction validates behaviors, so this is unreachable in
		// practice; pass instead of panicking mid battle.
		return []Event{b.passTurn(actor, "no behavior policy")}
	}

	snap := b.snapshotFor(actor)
	decision, err := policy.Decide(snap, b.roller.Source())
	if err != nil {
		if !errors.Is(err, behavior.ErrNoValidAction) {
			b.logger.Warn("behavior policy failed",
				zap.String("actor", actor.Name),
				zap.String("behavior", actor.Behavior),
				zap.Error(err),
			)
		}
		return []Event{b.passTurn(actor, "no valid action")}
	}

	def, targets, err := b.validateDecision(actor, decision.ActionID, decision.TargetIDs)
	if err != nil {
		b.logger.Warn("behavior policy produced invalid decision",
			zap.String("actor", actor.Name),
			zap.String("action", decision.ActionID),
			zap.Error(err),
		)
		return []Event{b.passTurn(actor, "invalid decision")}
	}

	return b.execute(actor, def, targets)
}

// CommitDecision supplies the decision for the suspended player actor and
// resumes the machine. actorID must match the pending actor; actionID must be
// one of the actor's actions, affordable, and targetIDs must name living
// combatants consistent with the action's targeting rule.
//
// Validation is all-or-nothing: on any violation the battle state is
// unchanged and the returned error wraps ErrInvalidCommand, so the caller
// can re-prompt and retry.
func (b *Battle) CommitDecision(actorID, actionID string, targetIDs []string) ([]Event, error) {
	if b.IsTerminal() {
		return nil, fmt.Errorf("%w: battle is over", ErrInvalidCommand)
	}
	if b.pending == nil {
		return nil, fmt.Errorf("%w: no decision is awaited", ErrInvalidCommand)
	}
	if b.pending.ID != actorID {
		return nil, fmt.Errorf("%w: decision for %q but %q is acting",
			ErrInvalidCommand, actorID, b.pending.ID)
	}

	actor := b.pending
	def, targets, err := b.validateDecision(actor, actionID, targetIDs)
	if err != nil {
		return nil, err
	}

	b.pending = nil
	events := b.execute(actor, def, targets)
	if b.IsTerminal() {
		return events, nil
	}
	events = append(events, b.finishTurn()...)
	if b.IsTerminal() {
		return events, nil
	}
	return append(events, b.drainReadyQueue()...), nil
}

// validateDecision checks an (action, targets) pair against the actor without
// mutating anything. On success it returns the resolved action definition and
// the living target combatants in the order given.
func (b *Battle) validateDecision(
	actor *character.Combatant,
	actionID string,
	targetIDs []string,
) (*catalog.ActionDef, []*character.Combatant, error) {
	owns := false
	for _, id := range actor.Actions {
		if id == actionID {
			owns = true
			break
		}
	}
	if !owns {
		return nil, nil, fmt.Errorf("%w: %s does not know action %q",
			ErrInvalidCommand, actor.Name, actionID)
	}

	def, err := b.catalog.Action(actionID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if !actor.CanAfford(def.MPCost) {
		return nil, nil, fmt.Errorf("%w: %s cannot afford %s (cost %d, has %d)",
			ErrInvalidCommand, actor.Name, def.Name, def.MPCost, actor.CurrentMP)
	}
	if len(targetIDs) == 0 {
		return nil, nil, fmt.Errorf("%w: no targets given", ErrInvalidCommand)
	}
	if !def.MultiTarget() && len(targetIDs) != 1 {
		return nil, nil, fmt.Errorf("%w: %s takes exactly one target, got %d",
			ErrInvalidCommand, def.Name, len(targetIDs))
	}

	own, opposing := b.sideOf(actor)
	targets := make([]*character.Combatant, 0, len(targetIDs))
	for _, id := range targetIDs {
		c := b.findLiving(id)
		if c == nil || c.IsDefeated() {
			return nil, nil, fmt.Errorf("%w: target %q is not a living combatant",
				ErrInvalidCommand, id)
		}
		if def.Targeting == catalog.TargetSelf && c != actor {
			return nil, nil, fmt.Errorf("%w: %s targets only its user", ErrInvalidCommand, def.Name)
		}
		if def.TargetsOwnSide() && !contains(own, c) {
			return nil, nil, fmt.Errorf("%w: %s cannot target an opponent", ErrInvalidCommand, def.Name)
		}
		if !def.TargetsOwnSide() && def.Targeting != catalog.TargetSelf && !contains(opposing, c) {
			return nil, nil, fmt.Errorf("%w: %s cannot target an ally", ErrInvalidCommand, def.Name)
		}
		targets = append(targets, c)
	}
	return def, targets, nil
}

// finishTurn runs the post-action phases shared by every turn: death checks,
// then the end-of-turn status tick, then a second death check for tick
// casualties.
func (b *Battle) finishTurn() []Event {
	events := b.checkDeaths()
	if err := b.verifyRosters(); err != nil {
		b.logger.Error("roster invariant violated", zap.Error(err))
	}
	if b.IsTerminal() {
		return events
	}
	events = append(events, b.endTurn()...)
	if b.IsTerminal() {
		return events
	}
	b.state = StateWaiting
	return events
}

// endTurn ticks the status effects of every living combatant, applies their
// periodic HP deltas, and buries anyone the ticks killed.
func (b *Battle) endTurn() []Event {
	b.state = StateEndingTurn
	var events []Event

	for _, c := range b.battlers() {
		if c.IsDefeated() {
			continue
		}
		for _, tick := range c.Statuses.Tick() {
			switch {
			case tick.PeriodicHP < 0:
				dealt := c.ApplyDamage(-tick.PeriodicHP)
				events = append(events, Event{
					Kind:       EventDamage,
					Turn:       b.turn,
					TargetID:   c.ID,
					TargetName: c.Name,
					ActionID:   tick.ID,
					ActionName: tick.Name,
					StatusID:   tick.ID,
					Magnitude:  dealt,
					Narrative:  fmt.Sprintf("%s suffers %d damage from %s.", c.Name, dealt, tick.Name),
				})
			case tick.PeriodicHP > 0:
				healed := c.Heal(tick.PeriodicHP)
				events = append(events, Event{
					Kind:       EventHeal,
					Turn:       b.turn,
					TargetID:   c.ID,
					TargetName: c.Name,
					ActionID:   tick.ID,
					ActionName: tick.Name,
					StatusID:   tick.ID,
					Magnitude:  healed,
					Narrative:  fmt.Sprintf("%s recovers %d HP from %s.", c.Name, healed, tick.Name),
				})
			}
			if tick.Expired {
				events = append(events, Event{
					Kind:       EventStatusExpired,
					Turn:       b.turn,
					TargetID:   c.ID,
					TargetName: c.Name,
					StatusID:   tick.ID,
					Narrative:  fmt.Sprintf("%s wears off of %s.", tick.Name, c.Name),
				})
			}
		}
	}

	return append(events, b.checkDeaths()...)
}

// passTurn emits the event for a forfeited turn.
func (b *Battle) passTurn(actor *character.Combatant, reason string) Event {
	b.logger.Debug("turn passed",
		zap.String("actor", actor.Name),
		zap.String("reason", reason),
	)
	return Event{
		Kind:       EventPass,
		Turn:       b.turn,
		SourceID:   actor.ID,
		SourceName: actor.Name,
		Narrative:  fmt.Sprintf("%s does nothing.", actor.Name),
	}
}

func contains(roster []*character.Combatant, c *character.Combatant) bool {
	for _, m := range roster {
		if m == c {
			return true
		}
	}
	return false
}
