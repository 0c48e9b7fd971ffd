// Package behavior implements AI decision policies for non-player combatants.
//
// A policy receives a read-only snapshot of the battle (graveyard excluded)
// and must return exactly one committable (action, targets) decision, or
// ErrNoValidAction when nothing is affordable.
package behavior

import (
	"github.com/gekkinggu/turn-based-combat/internal/game/catalog"
	"github.com/gekkinggu/turn-based-combat/internal/game/dice"
)

// CombatantView captures one combatant's decision-relevant state at planning
// time. Views are copies; mutating them does not touch battle state.
type CombatantView struct {
	ID          string
	Name        string
	HP          int
	MaxHP       int
	MP          int
	MaxMP       int
	RosterIndex int
}

// HPPercent returns current HP as a percentage of MaxHP; 0 if MaxHP == 0.
func (v *CombatantView) HPPercent() float64 {
	if v.MaxHP <= 0 {
		return 0
	}
	return float64(v.HP) / float64(v.MaxHP) * 100
}

// Snapshot is the read-only battle view handed to a policy for one decision.
//
// Invariant: Actor is never nil; Allies and Enemies contain only living
// combatants in roster order; Allies includes the actor itself.
type Snapshot struct {
	Actor   *CombatantView
	Allies  []*CombatantView
	Enemies []*CombatantView
	// Actions holds the actor's usable action definitions in declaration order.
	Actions []*catalog.ActionDef
}

// Affordable returns the actions whose MP cost the actor can currently pay,
// in declaration order.
func (s *Snapshot) Affordable() []*catalog.ActionDef {
	var out []*catalog.ActionDef
	for _, a := range s.Actions {
		if a.MPCost <= s.Actor.MP {
			out = append(out, a)
		}
	}
	return out
}

// WeakestEnemy returns the living enemy with the lowest HP percentage, or nil.
// Ties are broken by roster order, keeping selection deterministic.
func (s *Snapshot) WeakestEnemy() *CombatantView {
	if len(s.Enemies) == 0 {
		return nil
	}
	weakest := s.Enemies[0]
	for _, e := range s.Enemies[1:] {
		if e.HPPercent() < weakest.HPPercent() {
			weakest = e
		}
	}
	return weakest
}

// WeakestAlly returns the living ally (including the actor) with the lowest
// HP percentage, or nil. Ties are broken by roster order.
func (s *Snapshot) WeakestAlly() *CombatantView {
	if len(s.Allies) == 0 {
		return nil
	}
	weakest := s.Allies[0]
	for _, a := range s.Allies[1:] {
		if a.HPPercent() < weakest.HPPercent() {
			weakest = a
		}
	}
	return weakest
}

// ViewByID returns the living combatant view with the given ID, or nil.
func (s *Snapshot) ViewByID(id string) *CombatantView {
	for _, v := range s.Allies {
		if v.ID == id {
			return v
		}
	}
	for _, v := range s.Enemies {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// TargetsFor returns the default valid target list for def: the weakest
// opposing or allied combatant for single-target actions, the full living
// roster for fan-out actions, and the actor for self actions. Returns an
// empty slice when no valid target exists.
func (s *Snapshot) TargetsFor(def *catalog.ActionDef) []string {
	switch def.Targeting {
	case catalog.TargetSelf:
		return []string{s.Actor.ID}
	case catalog.TargetEnemy:
		if e := s.WeakestEnemy(); e != nil {
			return []string{e.ID}
		}
		return nil
	case catalog.TargetAllEnemies:
		return idsOf(s.Enemies)
	case catalog.TargetAlly:
		if a := s.WeakestAlly(); a != nil {
			return []string{a.ID}
		}
		return nil
	case catalog.TargetAllAllies:
		return idsOf(s.Allies)
	default:
		return nil
	}
}

// randomTargetsFor is TargetsFor with single targets drawn uniformly instead
// of by lowest HP.
func (s *Snapshot) randomTargetsFor(def *catalog.ActionDef, src dice.Source) []string {
	switch def.Targeting {
	case catalog.TargetEnemy:
		if len(s.Enemies) == 0 {
			return nil
		}
		return []string{s.Enemies[src.Intn(len(s.Enemies))].ID}
	case catalog.TargetAlly:
		if len(s.Allies) == 0 {
			return nil
		}
		return []string{s.Allies[src.Intn(len(s.Allies))].ID}
	default:
		return s.TargetsFor(def)
	}
}

func idsOf(views []*CombatantView) []string {
	if len(views) == 0 {
		return nil
	}
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}
