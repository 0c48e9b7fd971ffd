package battle

import "fmt"

// EventKind classifies one outcome event.
type EventKind int

const (
	// EventDamage reports HP lost by the target (magnitude may be 0 for an
	// immune target; zero-effect results are still reported).
	EventDamage EventKind = iota
	// EventHeal reports HP restored to the target, including absorbed hits.
	EventHeal
	// EventStatusApplied reports a status payload landing on the target.
	EventStatusApplied
	// EventStatusResisted reports a status payload failing its chance roll.
	EventStatusResisted
	// EventStatusExpired reports a status falling off during the end-of-turn tick.
	EventStatusExpired
	// EventMiss reports an action that found no living target to affect.
	EventMiss
	// EventPass reports a forfeited turn (no valid action, or disabled).
	EventPass
	// EventDefeat reports a combatant moving to the graveyard.
	EventDefeat
)

// String returns a human-readable kind label.
func (k EventKind) String() string {
	switch k {
	case EventDamage:
		return "damage"
	case EventHeal:
		return "heal"
	case EventStatusApplied:
		return "status-applied"
	case EventStatusResisted:
		return "status-resisted"
	case EventStatusExpired:
		return "status-expired"
	case EventMiss:
		return "miss"
	case EventPass:
		return "pass"
	case EventDefeat:
		return "defeat"
	default:
		return "unknown"
	}
}

// Event records what happened to one target during one resolution step.
// Events are emitted in target-iteration order so the log collaborator sees
// a complete, ordered record of the battle.
type Event struct {
	Kind EventKind
	// Turn is the actor-turn counter at emission time.
	Turn int
	// SourceID/SourceName identify the acting combatant; empty for ticks
	// with no originating actor.
	SourceID   string
	SourceName string
	// TargetID/TargetName identify the affected combatant.
	TargetID   string
	TargetName string
	// ActionID/ActionName identify the action, or the status for tick events.
	ActionID   string
	ActionName string
	// Magnitude is HP lost or restored; 0 for non-resource events.
	Magnitude int
	// StatusID is set for status application/resist/expiry events.
	StatusID string
	// Crit is true when the critical multiplier applied.
	Crit bool
	// Narrative is a rendered one-line description for plain log sinks.
	Narrative string
}

func damageNarrative(e Event) string {
	if e.Magnitude == 0 {
		return fmt.Sprintf("%s takes no damage!", e.TargetName)
	}
	if e.Crit {
		return fmt.Sprintf("A critical hit! %s took %d damage!", e.TargetName, e.Magnitude)
	}
	return fmt.Sprintf("%s took %d damage!", e.TargetName, e.Magnitude)
}
