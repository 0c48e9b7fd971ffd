package catalog

import (
	"errors"
	"fmt"

	"github.com/gekkinggu/turn-based-combat/internal/game/status"
)

// ErrUnknownReference marks a catalog id that does not resolve to a loaded
// definition. It is fatal at load/construction time and never surfaces
// mid-battle.
var ErrUnknownReference = errors.New("unknown catalog reference")

// Catalog bundles the three loaded template sets. A Catalog is immutable for
// the lifetime of every battle built from it.
type Catalog struct {
	Actions  *ActionRegistry
	Battlers *BattlerRegistry
	Statuses *status.Registry
}

// New assembles a Catalog from pre-built registries and validates every
// cross-reference: action status payloads must name loaded statuses, and
// battler action lists must name loaded actions.
//
// Precondition: all three registries must be non-nil.
// Postcondition: nil error guarantees every cross-reference resolves.
func New(actions *ActionRegistry, battlers *BattlerRegistry, statuses *status.Registry) (*Catalog, error) {
	c := &Catalog{Actions: actions, Battlers: battlers, Statuses: statuses}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads all three template directories and assembles a validated Catalog.
//
// Postcondition: a nil error guarantees the catalog is internally consistent;
// any failure aborts before a Catalog exists.
func Load(actionsDir, statusesDir, battlersDir string) (*Catalog, error) {
	statuses, err := status.LoadDirectory(statusesDir)
	if err != nil {
		return nil, fmt.Errorf("loading statuses: %w", err)
	}
	actions, err := LoadActions(actionsDir)
	if err != nil {
		return nil, fmt.Errorf("loading actions: %w", err)
	}
	battlers, err := LoadBattlers(battlersDir)
	if err != nil {
		return nil, fmt.Errorf("loading battlers: %w", err)
	}
	return New(actions, battlers, statuses)
}

func (c *Catalog) validate() error {
	for _, a := range c.Actions.All() {
		if a.Status == "" {
			continue
		}
		if _, ok := c.Statuses.Get(a.Status); !ok {
			return fmt.Errorf("action %q: status %q: %w", a.ID, a.Status, ErrUnknownReference)
		}
	}
	for _, t := range c.Battlers.All() {
		for _, actionID := range t.Actions {
			if _, ok := c.Actions.Get(actionID); !ok {
				return fmt.Errorf("battler %q: action %q: %w", t.ID, actionID, ErrUnknownReference)
			}
		}
	}
	return nil
}

// Action returns the ActionDef for id or ErrUnknownReference.
func (c *Catalog) Action(id string) (*ActionDef, error) {
	a, ok := c.Actions.Get(id)
	if !ok {
		return nil, fmt.Errorf("action %q: %w", id, ErrUnknownReference)
	}
	return a, nil
}

// Battler returns the BattlerTemplate for id or ErrUnknownReference.
func (c *Catalog) Battler(id string) (*BattlerTemplate, error) {
	t, ok := c.Battlers.Get(id)
	if !ok {
		return nil, fmt.Errorf("battler %q: %w", id, ErrUnknownReference)
	}
	return t, nil
}

// Status returns the StatusDef for id or ErrUnknownReference.
func (c *Catalog) Status(id string) (*status.StatusDef, error) {
	s, ok := c.Statuses.Get(id)
	if !ok {
		return nil, fmt.Errorf("status %q: %w", id, ErrUnknownReference)
	}
	return s, nil
}
