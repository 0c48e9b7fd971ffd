// Package battle implements the core simulation: the ATB scheduler, the turn
// state machine, action resolution, and the battle aggregate that exclusively
// owns all combatants.
package battle

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gekkinggu/turn-based-combat/internal/game/behavior"
	"github.com/gekkinggu/turn-based-combat/internal/game/catalog"
	"github.com/gekkinggu/turn-based-combat/internal/game/character"
	"github.com/gekkinggu/turn-based-combat/internal/game/dice"
)

// State identifies where the turn state machine currently is.
type State int

const (
	// StateWaiting runs the scheduler until someone becomes ready.
	StateWaiting State = iota
	// StateSpeedTie orders multiple simultaneously-ready combatants.
	StateSpeedTie
	// StatePrepareActor resets the promoted actor's gauge and snapshots targets.
	StatePrepareActor
	// StateControlledTurn suspends awaiting an external CommitDecision call.
	StateControlledTurn
	// StateAITurn obtains a decision from the actor's behavior policy.
	StateAITurn
	// StateExecuting resolves the committed action against its targets.
	StateExecuting
	// StateCheckingDeath moves 0-HP combatants to the graveyard.
	StateCheckingDeath
	// StateEndingTurn ticks status effects before returning to Waiting.
	StateEndingTurn
	// StateVictory and StateLoss are terminal.
	StateVictory
	StateLoss
)

// String returns a human-readable state label.
func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateSpeedTie:
		return "speed-tie"
	case StatePrepareActor:
		return "prepare-actor"
	case StateControlledTurn:
		return "controlled-turn"
	case StateAITurn:
		return "ai-turn"
	case StateExecuting:
		return "executing"
	case StateCheckingDeath:
		return "checking-death"
	case StateEndingTurn:
		return "ending-turn"
	case StateVictory:
		return "victory"
	case StateLoss:
		return "loss"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a battle.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeVictory
	OutcomeLoss
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case OutcomeVictory:
		return "victory"
	case OutcomeLoss:
		return "loss"
	default:
		return "none"
	}
}

// MemberSpec names one combatant to instantiate from the catalog.
type MemberSpec struct {
	TemplateID string
	Level      int
}

// Battle is the root aggregate. It exclusively owns all combatant instances;
// every mutation happens inside a single Advance or CommitDecision step, so
// no locking discipline beyond "one step completes before the next" applies.
//
// Invariant: every combatant is in exactly one of {party, enemies, graveyard}.
type Battle struct {
	party     []*character.Combatant
	enemies   []*character.Combatant
	graveyard []*character.Combatant

	state      State
	readyQueue []*character.Combatant
	pending    *character.Combatant
	turn       int

	catalog  *catalog.Catalog
	policies *behavior.Registry
	roller   *dice.Roller
	tuning   Tuning
	logger   *zap.Logger
}

// New instantiates a battle from catalog templates. Party members are
// player-controlled; enemies are AI-controlled and must reference a
// registered behavior policy. Any unknown template, action, or behavior
// reference aborts construction before battle state exists.
//
// Precondition: cat, policies, src, and logger must be non-nil; both sides
// must be non-empty.
// Postcondition: state is Waiting; every combatant has full pools and a gauge
// in [0, StartingGaugeMax].
func New(
	cat *catalog.Catalog,
	partySpecs, enemySpecs []MemberSpec,
	policies *behavior.Registry,
	tuning Tuning,
	src dice.Source,
	logger *zap.Logger,
) (*Battle, error) {
	if len(partySpecs) == 0 || len(enemySpecs) == 0 {
		return nil, fmt.Errorf("battle: both sides must have at least one member")
	}

	b := &Battle{
		state:    StateWaiting,
		catalog:  cat,
		policies: policies,
		roller:   dice.NewRoller(src, logger),
		tuning:   tuning,
		logger:   logger,
	}

	rosterIndex := 0
	for _, spec := range partySpecs {
		c, err := b.instantiate(spec, character.RolePlayer, rosterIndex)
		if err != nil {
			return nil, err
		}
		b.party = append(b.party, c)
		rosterIndex++
	}
	for _, spec := range enemySpecs {
		c, err := b.instantiate(spec, character.RoleAI, rosterIndex)
		if err != nil {
			return nil, err
		}
		if _, ok := policies.Get(c.Behavior); !ok {
			return nil, fmt.Errorf("battler %q: behavior %q: %w",
				c.TemplateID, c.Behavior, catalog.ErrUnknownReference)
		}
		b.enemies = append(b.enemies, c)
		rosterIndex++
	}

	if tuning.StartingGaugeMax > 0 {
		// Bounded random head start, in whole gauge points.
		bound := int(tuning.StartingGaugeMax) + 1
		for _, c := range b.battlers() {
			c.Gauge = float64(src.Intn(bound))
		}
	}

	logger.Info("battle started",
		zap.Int("party", len(b.party)),
		zap.Int("enemies", len(b.enemies)),
		zap.Float64("ready_threshold", tuning.ReadyThreshold),
	)
	return b, nil
}

func (b *Battle) instantiate(spec MemberSpec, role character.Role, rosterIndex int) (*character.Combatant, error) {
	tmpl, err := b.catalog.Battler(spec.TemplateID)
	if err != nil {
		return nil, err
	}
	level := spec.Level
	if level < 1 {
		level = 1
	}
	return character.NewFromTemplate(tmpl, level, role, rosterIndex), nil
}

// State returns the current machine state.
func (b *Battle) State() State { return b.state }

// Turn returns the number of actor-turns executed so far.
func (b *Battle) Turn() int { return b.turn }

// IsTerminal reports whether the battle has concluded.
func (b *Battle) IsTerminal() bool {
	return b.state == StateVictory || b.state == StateLoss
}

// Outcome returns the terminal result and whether the battle has concluded.
func (b *Battle) Outcome() (Outcome, bool) {
	switch b.state {
	case StateVictory:
		return OutcomeVictory, true
	case StateLoss:
		return OutcomeLoss, true
	default:
		return OutcomeNone, false
	}
}

// Party returns the living party roster. The slice is a copy; the combatants
// are shared and must not be mutated outside an active turn step.
func (b *Battle) Party() []*character.Combatant {
	out := make([]*character.Combatant, len(b.party))
	copy(out, b.party)
	return out
}

// Enemies returns the living enemy roster. See Party for aliasing rules.
func (b *Battle) Enemies() []*character.Combatant {
	out := make([]*character.Combatant, len(b.enemies))
	copy(out, b.enemies)
	return out
}

// Graveyard returns the defeated combatants in burial order.
func (b *Battle) Graveyard() []*character.Combatant {
	out := make([]*character.Combatant, len(b.graveyard))
	copy(out, b.graveyard)
	return out
}

// PendingActor returns the combatant whose decision is awaited, or
// (nil, false) when the machine is not suspended.
func (b *Battle) PendingActor() (*character.Combatant, bool) {
	if b.pending == nil {
		return nil, false
	}
	return b.pending, true
}

// PendingDecision returns the read-only snapshot for the suspended
// player actor, or (nil, false) when no decision is awaited. The external
// decision collaborator uses this to enumerate actions and targets.
func (b *Battle) PendingDecision() (*behavior.Snapshot, bool) {
	if b.pending == nil {
		return nil, false
	}
	return b.snapshotFor(b.pending), true
}

// findLiving returns the living combatant with the given ID, or nil.
func (b *Battle) findLiving(id string) *character.Combatant {
	for _, c := range b.battlers() {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// sideOf returns the roster containing c and the roster opposing it.
//
// Precondition: c must be a living combatant owned by this battle.
func (b *Battle) sideOf(c *character.Combatant) (own, opposing []*character.Combatant) {
	for _, p := range b.party {
		if p == c {
			return b.party, b.enemies
		}
	}
	return b.enemies, b.party
}

// snapshotFor builds the read-only behavior view for actor: living allies and
// enemies in roster order, graveyard excluded, plus the actor's action
// definitions.
func (b *Battle) snapshotFor(actor *character.Combatant) *behavior.Snapshot {
	own, opposing := b.sideOf(actor)

	snap := &behavior.Snapshot{Actor: viewOf(actor)}
	for _, c := range own {
		if !c.IsDefeated() {
			snap.Allies = append(snap.Allies, viewOf(c))
		}
	}
	for _, c := range opposing {
		if !c.IsDefeated() {
			snap.Enemies = append(snap.Enemies, viewOf(c))
		}
	}
	for _, id := range actor.Actions {
		if def, ok := b.catalog.Actions.Get(id); ok {
			snap.Actions = append(snap.Actions, def)
		}
	}
	return snap
}

func viewOf(c *character.Combatant) *behavior.CombatantView {
	return &behavior.CombatantView{
		ID:          c.ID,
		Name:        c.Name,
		HP:          c.CurrentHP,
		MaxHP:       c.MaxHP,
		MP:          c.CurrentMP,
		MaxMP:       c.MaxMP,
		RosterIndex: c.RosterIndex,
	}
}

// verifyRosters asserts the ownership invariant: every combatant appears in
// exactly one of {party, enemies, graveyard}.
//
// Postcondition: returns nil, or an error wrapping ErrInconsistentRoster.
func (b *Battle) verifyRosters() error {
	seen := make(map[string]int)
	for _, c := range b.party {
		seen[c.ID]++
	}
	for _, c := range b.enemies {
		seen[c.ID]++
	}
	for _, c := range b.graveyard {
		seen[c.ID]++
	}
	for id, n := range seen {
		if n != 1 {
			return fmt.Errorf("%w: combatant %s appears %d times", ErrInconsistentRoster, id, n)
		}
	}
	return nil
}

// checkDeaths moves every 0-HP combatant from its roster to the graveyard and
// resolves terminal outcomes. The enemy roster is evaluated before the party
// so a mutual wipe counts as victory for the acting side. Running it twice on
// an unchanged roster is a no-op the second time.
//
// Postcondition: no living roster contains a defeated combatant.
func (b *Battle) checkDeaths() []Event {
	b.state = StateCheckingDeath
	var events []Event

	bury := func(roster []*character.Combatant) []*character.Combatant {
		survivors := roster[:0]
		for _, c := range roster {
			if !c.IsDefeated() {
				survivors = append(survivors, c)
				continue
			}
			c.Gauge = 0
			b.graveyard = append(b.graveyard, c)
			events = append(events, Event{
				Kind:       EventDefeat,
				Turn:       b.turn,
				TargetID:   c.ID,
				TargetName: c.Name,
				Narrative:  fmt.Sprintf("%s is defeated!", c.Name),
			})
			b.logger.Debug("combatant defeated", zap.String("name", c.Name))
		}
		return survivors
	}

	b.party = bury(b.party)
	b.enemies = bury(b.enemies)

	// Remove the buried from the ready queue so they are never promoted.
	pendingQueue := b.readyQueue[:0]
	for _, c := range b.readyQueue {
		if !c.IsDefeated() {
			pendingQueue = append(pendingQueue, c)
		}
	}
	b.readyQueue = pendingQueue

	if len(b.enemies) == 0 {
		b.state = StateVictory
		b.logger.Info("battle over", zap.String("outcome", OutcomeVictory.String()))
	} else if len(b.party) == 0 {
		b.state = StateLoss
		b.logger.Info("battle over", zap.String("outcome", OutcomeLoss.String()))
	}
	return events
}
