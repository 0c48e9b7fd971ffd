// Package status implements the status-effect engine: YAML-defined templates
// and the per-combatant active sets that tick, stack, and expire.
package status

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Status categories.
const (
	CategoryBuff    = "buff"
	CategoryDebuff  = "debuff"
	CategoryDOT     = "dot"
	CategoryDisable = "disable"
)

// Stacking policies for reapplying an already-active status.
const (
	StackingRefresh = "refresh" // reset remaining duration to the default
	StackingStack   = "stack"   // increment stacks up to MaxStacks, reset duration
	StackingIgnore  = "ignore"  // leave the existing instance untouched
)

// statNames is the set of combatant stats a status may modify.
var statNames = map[string]bool{
	"strength":      true,
	"magic":         true,
	"defense":       true,
	"magic_defense": true,
	"speed":         true,
}

// StatusDef is the static definition of a status effect, loaded from YAML.
// Definitions are immutable after load.
type StatusDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Category is one of "buff", "debuff", "dot", "disable".
	Category string `yaml:"category"`
	// Stacking is one of "refresh", "stack", "ignore".
	Stacking string `yaml:"stacking"`
	// MaxStacks caps the stack count for "stack" statuses. 0 means unstackable (always 1).
	MaxStacks int `yaml:"max_stacks"`
	// Duration is the number of turns a fresh application lasts.
	Duration int `yaml:"duration"`
	// PeriodicHP is the HP delta applied per tick per stack: negative drains, positive restores.
	PeriodicHP int `yaml:"periodic_hp"`
	// Modifiers maps stat names to multipliers, read through on every stat access.
	Modifiers map[string]float64 `yaml:"modifiers"`
}

// Validate checks all required fields and value domains.
//
// Postcondition: nil return guarantees non-empty ID and Name, a known Category
// and Stacking policy, Duration >= 1, MaxStacks >= 0, and modifier keys naming
// real stats.
func (d *StatusDef) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("status: definition has empty id")
	}
	if d.Name == "" {
		return fmt.Errorf("status %q: name must not be empty", d.ID)
	}
	switch d.Category {
	case CategoryBuff, CategoryDebuff, CategoryDOT, CategoryDisable:
	default:
		return fmt.Errorf("status %q: unknown category %q", d.ID, d.Category)
	}
	switch d.Stacking {
	case StackingRefresh, StackingStack, StackingIgnore:
	default:
		return fmt.Errorf("status %q: unknown stacking policy %q", d.ID, d.Stacking)
	}
	if d.Duration < 1 {
		return fmt.Errorf("status %q: duration must be >= 1, got %d", d.ID, d.Duration)
	}
	if d.MaxStacks < 0 {
		return fmt.Errorf("status %q: max_stacks must be >= 0, got %d", d.ID, d.MaxStacks)
	}
	for stat := range d.Modifiers {
		if !statNames[stat] {
			return fmt.Errorf("status %q: modifier names unknown stat %q", d.ID, stat)
		}
	}
	return nil
}

// StackCap returns the effective stack cap: MaxStacks, or 1 when unstackable.
func (d *StatusDef) StackCap() int {
	if d.Stacking != StackingStack || d.MaxStacks < 1 {
		return 1
	}
	return d.MaxStacks
}

// Registry holds all known StatusDefs keyed by ID.
type Registry struct {
	defs map[string]*StatusDef
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*StatusDef)}
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *StatusDef) {
	r.defs[def.ID] = def
}

// Get returns the StatusDef for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*StatusDef, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns a snapshot slice of all registered StatusDefs.
func (r *Registry) All() []*StatusDef {
	out := make([]*StatusDef, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	return out
}

// LoadDirectory reads every *.yaml file in dir, parses each as a StatusDef,
// and returns a populated Registry.
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to
// parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading status dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def StatusDef
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
