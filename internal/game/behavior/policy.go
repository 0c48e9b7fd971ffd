package behavior

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gekkinggu/turn-based-combat/internal/game/catalog"
	"github.com/gekkinggu/turn-based-combat/internal/game/dice"
)

// ErrNoValidAction is returned when a policy cannot produce any committable
// decision (no affordable action with a valid target). The battle state
// machine recovers by recording an automatic pass.
var ErrNoValidAction = errors.New("no valid action available")

// Decision is the (action, targets) pair a policy commits for an actor-turn.
type Decision struct {
	ActionID  string
	TargetIDs []string
}

// Policy selects a decision for an AI-controlled actor.
//
// Contract: the returned decision must satisfy the same affordability and
// aliveness constraints the state machine enforces for player decisions; a
// policy must return a committable choice whenever one exists and
// ErrNoValidAction otherwise.
type Policy interface {
	// Decide returns one committable decision for the snapshot's actor.
	Decide(snap *Snapshot, src dice.Source) (Decision, error)
}

// Aggressive targets the lowest-HP-percent enemy with the strongest
// affordable damage action, falling back to any affordable action.
type Aggressive struct{}

// NewAggressive returns the aggressive policy.
func NewAggressive() *Aggressive { return &Aggressive{} }

// Decide implements Policy.
//
// Postcondition: damage actions are preferred by descending potency;
// declaration order breaks potency ties.
func (p *Aggressive) Decide(snap *Snapshot, src dice.Source) (Decision, error) {
	affordable := snap.Affordable()
	if len(affordable) == 0 {
		return Decision{}, ErrNoValidAction
	}

	var best *catalog.ActionDef
	for _, a := range affordable {
		if a.Effect != catalog.EffectDamage {
			continue
		}
		if len(snap.TargetsFor(a)) == 0 {
			continue
		}
		if best == nil || a.Potency > best.Potency {
			best = a
		}
	}
	if best == nil {
		for _, a := range affordable {
			if len(snap.TargetsFor(a)) > 0 {
				best = a
				break
			}
		}
	}
	if best == nil {
		return Decision{}, ErrNoValidAction
	}
	return Decision{ActionID: best.ID, TargetIDs: snap.TargetsFor(best)}, nil
}

// Random selects a uniformly random affordable action and a uniformly random
// valid target for it.
type Random struct{}

// NewRandom returns the random-valid-action policy.
func NewRandom() *Random { return &Random{} }

// Decide implements Policy.
func (p *Random) Decide(snap *Snapshot, src dice.Source) (Decision, error) {
	var usable []*catalog.ActionDef
	for _, a := range snap.Affordable() {
		if len(snap.TargetsFor(a)) > 0 {
			usable = append(usable, a)
		}
	}
	if len(usable) == 0 {
		return Decision{}, ErrNoValidAction
	}
	chosen := usable[src.Intn(len(usable))]
	return Decision{ActionID: chosen.ID, TargetIDs: snap.randomTargetsFor(chosen, src)}, nil
}

// Rotation cycles through a scripted sequence of action IDs, skipping entries
// the actor cannot currently afford or target.
//
// The cursor advances only when an entry is committed, so an unaffordable
// spell is retried on the actor's next turn once MP allows.
type Rotation struct {
	mu       sync.Mutex
	sequence []string
	cursor   int
}

// NewRotation returns a scripted-sequence policy.
//
// Precondition: sequence must not be empty.
func NewRotation(sequence []string) *Rotation {
	if len(sequence) == 0 {
		panic("behavior.NewRotation: sequence must not be empty")
	}
	seq := make([]string, len(sequence))
	copy(seq, sequence)
	return &Rotation{sequence: seq}
}

// Decide implements Policy.
func (p *Rotation) Decide(snap *Snapshot, src dice.Source) (Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for offset := 0; offset < len(p.sequence); offset++ {
		idx := (p.cursor + offset) % len(p.sequence)
		id := p.sequence[idx]
		var def *catalog.ActionDef
		for _, a := range snap.Actions {
			if a.ID == id {
				def = a
				break
			}
		}
		if def == nil || def.MPCost > snap.Actor.MP {
			continue
		}
		targets := snap.TargetsFor(def)
		if len(targets) == 0 {
			continue
		}
		p.cursor = (idx + 1) % len(p.sequence)
		return Decision{ActionID: def.ID, TargetIDs: targets}, nil
	}
	return Decision{}, ErrNoValidAction
}

// Registry indexes policies by behavior name, as referenced from battler
// templates.
//
// Invariant: each name is registered at most once.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewRegistry returns a Registry pre-populated with the built-in policies
// "aggressive" and "random".
func NewRegistry() *Registry {
	r := &Registry{policies: make(map[string]Policy)}
	r.policies["aggressive"] = NewAggressive()
	r.policies["random"] = NewRandom()
	return r
}

// Register stores p under name.
//
// Precondition: p must not be nil.
// Postcondition: returns an error on name collision.
func (r *Registry) Register(name string, p Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.policies[name]; exists {
		return fmt.Errorf("behavior: policy %q already registered", name)
	}
	r.policies[name] = p
	return nil
}

// Get returns the policy for name, or (nil, false) if not registered.
func (r *Registry) Get(name string) (Policy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[name]
	return p, ok
}
