package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// BattlerTemplate is the static definition of a character or enemy, loaded
// from YAML. Base stats are scaled by level when a combatant is instantiated.
type BattlerTemplate struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Base resource pools and combat stats at the scaling baseline.
	HP           int `yaml:"hp"`
	MP           int `yaml:"mp"`
	Strength     int `yaml:"strength"`
	Magic        int `yaml:"magic"`
	Defense      int `yaml:"defense"`
	MagicDefense int `yaml:"magic_defense"`
	// Speed drives gauge accrual and is not level-scaled.
	Speed int `yaml:"speed"`
	// Affinities maps element name to multiplier: weak > 1, resist in (0,1),
	// immune = 0, absorb < 0. Absent elements resolve to 1.
	Affinities map[string]float64 `yaml:"affinities"`
	// Actions lists the IDs of actions this battler can use.
	Actions []string `yaml:"actions"`
	// Behavior names the AI policy used when the battler is AI-controlled.
	Behavior string `yaml:"behavior"`
}

// Validate checks all required fields and value domains.
//
// Postcondition: nil return guarantees non-empty ID and Name, non-negative
// pools and stats, Speed >= 1, and a non-empty action list.
func (t *BattlerTemplate) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("battler: template has empty id")
	}
	if t.Name == "" {
		return fmt.Errorf("battler %q: name must not be empty", t.ID)
	}
	if t.HP < 1 {
		return fmt.Errorf("battler %q: hp must be >= 1, got %d", t.ID, t.HP)
	}
	if t.MP < 0 {
		return fmt.Errorf("battler %q: mp must be >= 0, got %d", t.ID, t.MP)
	}
	for stat, v := range map[string]int{
		"strength":      t.Strength,
		"magic":         t.Magic,
		"defense":       t.Defense,
		"magic_defense": t.MagicDefense,
	} {
		if v < 0 {
			return fmt.Errorf("battler %q: %s must be >= 0, got %d", t.ID, stat, v)
		}
	}
	if t.Speed < 1 {
		return fmt.Errorf("battler %q: speed must be >= 1, got %d", t.ID, t.Speed)
	}
	if len(t.Actions) == 0 {
		return fmt.Errorf("battler %q: must define at least one action", t.ID)
	}
	return nil
}

// BattlerRegistry holds all known BattlerTemplates keyed by ID.
type BattlerRegistry struct {
	templates map[string]*BattlerTemplate
}

// NewBattlerRegistry creates an empty BattlerRegistry.
func NewBattlerRegistry() *BattlerRegistry {
	return &BattlerRegistry{templates: make(map[string]*BattlerTemplate)}
}

// Register adds t to the registry, overwriting any existing entry with the same ID.
// Precondition: t must not be nil and t.ID must not be empty.
func (r *BattlerRegistry) Register(t *BattlerTemplate) {
	r.templates[t.ID] = t
}

// Get returns the BattlerTemplate for id, or (nil, false) if not found.
func (r *BattlerRegistry) Get(id string) (*BattlerTemplate, bool) {
	t, ok := r.templates[id]
	return t, ok
}

// All returns a snapshot slice of all registered templates.
func (r *BattlerRegistry) All() []*BattlerTemplate {
	out := make([]*BattlerTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	return out
}

// LoadBattlers reads every *.yaml file in dir, parses each as a
// BattlerTemplate, and returns a populated BattlerRegistry.
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil registry, or an error if any file fails to
// parse or validate.
func LoadBattlers(dir string) (*BattlerRegistry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading battler dir %q: %w", dir, err)
	}
	reg := NewBattlerRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var tmpl BattlerTemplate
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&tmpl); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := tmpl.Validate(); err != nil {
			return nil, fmt.Errorf("validating %q: %w", path, err)
		}
		reg.Register(&tmpl)
	}
	return reg, nil
}
