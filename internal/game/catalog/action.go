// Package catalog loads and indexes the immutable data templates a battle is
// built from: actions, battler templates, and (via the status package) status
// effects. Templates are parsed once before battle start and never mutated.
package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action effects.
const (
	EffectDamage = "damage"
	EffectHeal   = "heal"
	EffectStatus = "status" // no damage or healing, only the status payload
)

// Targeting categories.
const (
	TargetEnemy      = "enemy"
	TargetAllEnemies = "all_enemies"
	TargetAlly       = "ally"
	TargetAllAllies  = "all_allies"
	TargetSelf       = "self"
)

// Status payload recipients.
const (
	StatusOnTarget = "target"
	StatusOnSelf   = "self"
)

// ActionDef is the static definition of a battle action, loaded from YAML.
type ActionDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Effect is one of "damage", "heal", "status".
	Effect string `yaml:"effect"`
	// Targeting is one of "enemy", "all_enemies", "ally", "all_allies", "self".
	Targeting string `yaml:"targeting"`
	// Physical selects strength/defense scaling; false selects magic/magic_defense.
	Physical bool `yaml:"physical"`
	// Potency is the base magnitude factor, in percent (100 = baseline).
	Potency int `yaml:"potency"`
	// Element tags the action for affinity lookup; empty means unaspected.
	Element string `yaml:"element"`
	// MPCost is deducted from the actor before resolution.
	MPCost int `yaml:"mp_cost"`
	// Status is the optional status payload; empty means none.
	Status string `yaml:"status"`
	// StatusChance is the independent application probability in [0,1].
	StatusChance float64 `yaml:"status_chance"`
	// StatusTarget is "target" (default) or "self".
	StatusTarget string `yaml:"status_target"`
}

// Validate checks all required fields and value domains.
//
// Postcondition: nil return guarantees non-empty ID and Name, known Effect and
// Targeting values, Potency >= 0, MPCost >= 0, and a consistent status payload.
func (d *ActionDef) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("action: definition has empty id")
	}
	if d.Name == "" {
		return fmt.Errorf("action %q: name must not be empty", d.ID)
	}
	switch d.Effect {
	case EffectDamage, EffectHeal, EffectStatus:
	default:
		return fmt.Errorf("action %q: unknown effect %q", d.ID, d.Effect)
	}
	switch d.Targeting {
	case TargetEnemy, TargetAllEnemies, TargetAlly, TargetAllAllies, TargetSelf:
	default:
		return fmt.Errorf("action %q: unknown targeting %q", d.ID, d.Targeting)
	}
	if d.Potency < 0 {
		return fmt.Errorf("action %q: potency must be >= 0, got %d", d.ID, d.Potency)
	}
	if d.MPCost < 0 {
		return fmt.Errorf("action %q: mp_cost must be >= 0, got %d", d.ID, d.MPCost)
	}
	if d.Status != "" {
		if d.StatusChance <= 0 || d.StatusChance > 1 {
			return fmt.Errorf("action %q: status_chance must be in (0,1], got %g", d.ID, d.StatusChance)
		}
		switch d.StatusTarget {
		case "", StatusOnTarget, StatusOnSelf:
		default:
			return fmt.Errorf("action %q: unknown status_target %q", d.ID, d.StatusTarget)
		}
	} else if d.Effect == EffectStatus {
		return fmt.Errorf("action %q: effect %q requires a status payload", d.ID, d.Effect)
	}
	return nil
}

// MultiTarget reports whether the action fans out to a whole roster.
func (d *ActionDef) MultiTarget() bool {
	return d.Targeting == TargetAllEnemies || d.Targeting == TargetAllAllies
}

// TargetsOwnSide reports whether valid targets come from the actor's roster.
func (d *ActionDef) TargetsOwnSide() bool {
	return d.Targeting == TargetAlly || d.Targeting == TargetAllAllies || d.Targeting == TargetSelf
}

// StatusRecipientSelf reports whether the status payload lands on the actor.
func (d *ActionDef) StatusRecipientSelf() bool {
	return d.StatusTarget == StatusOnSelf
}

// ActionRegistry holds all known ActionDefs keyed by ID.
type ActionRegistry struct {
	defs map[string]*ActionDef
}

// NewActionRegistry creates an empty ActionRegistry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{defs: make(map[string]*ActionDef)}
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *ActionRegistry) Register(def *ActionDef) {
	r.defs[def.ID] = def
}

// Get returns the ActionDef for id, or (nil, false) if not found.
func (r *ActionRegistry) Get(id string) (*ActionDef, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns a snapshot slice of all registered ActionDefs.
func (r *ActionRegistry) All() []*ActionDef {
	out := make([]*ActionDef, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	return out
}

// LoadActions reads every *.yaml file in dir, parses each as an ActionDef,
// and returns a populated ActionRegistry.
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil registry, or an error if any file fails to
// parse or validate.
func LoadActions(dir string) (*ActionRegistry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading action dir %q: %w", dir, err)
	}
	reg := NewActionRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def ActionDef
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("validating %q: %w", path, err)
		}
		reg.Register(&def)
	}
	return reg, nil
}
