package status

import "fmt"

// ApplyOutcome describes what an Apply call did.
type ApplyOutcome int

const (
	// Attached means the status was not present and is now active.
	Attached ApplyOutcome = iota
	// Refreshed means an existing instance had its duration reset.
	Refreshed
	// Stacked means an existing instance gained a stack.
	Stacked
	// Ignored means an existing instance was left untouched.
	Ignored
)

// String returns a human-readable outcome label.
func (o ApplyOutcome) String() string {
	switch o {
	case Attached:
		return "attached"
	case Refreshed:
		return "refreshed"
	case Stacked:
		return "stacked"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// ActiveStatus tracks one applied status on a combatant.
// Invariant: Remaining > 0 and 1 <= Stacks <= Def.StackCap() while active.
type ActiveStatus struct {
	Def       *StatusDef
	Stacks    int
	Remaining int
}

// TickResult records the effect of ticking one active status by a turn.
type TickResult struct {
	ID         string
	Name       string
	PeriodicHP int // total HP delta this tick (per-stack value times stacks)
	Expired    bool
}

// ActiveSet tracks all statuses currently applied to one combatant, in
// application order. It is not safe for concurrent use; the battle aggregate
// serialises access.
type ActiveSet struct {
	order []*ActiveStatus
	index map[string]*ActiveStatus
}

// NewActiveSet creates an empty ActiveSet.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{index: make(map[string]*ActiveStatus)}
}

// Apply attaches def or reapplies it per its stacking policy:
// refresh resets the remaining duration, stack increments the stack count up
// to the cap (and resets duration), ignore leaves the existing instance alone.
//
// Precondition: def must not be nil.
// Postcondition: Has(def.ID) is true; Stacks(def.ID) <= def.StackCap().
func (s *ActiveSet) Apply(def *StatusDef) (ApplyOutcome, error) {
	if def == nil {
		return Ignored, fmt.Errorf("status: Apply called with nil definition")
	}

	existing, ok := s.index[def.ID]
	if !ok {
		ac := &ActiveStatus{Def: def, Stacks: 1, Remaining: def.Duration}
		s.order = append(s.order, ac)
		s.index[def.ID] = ac
		return Attached, nil
	}

	switch def.Stacking {
	case StackingRefresh:
		existing.Remaining = def.Duration
		return Refreshed, nil
	case StackingStack:
		if existing.Stacks < def.StackCap() {
			existing.Stacks++
		}
		existing.Remaining = def.Duration
		return Stacked, nil
	default: // StackingIgnore
		return Ignored, nil
	}
}

// Remove deletes the status with the given ID from the set.
// If the status is not present, Remove is a no-op.
//
// Postcondition: Has(id) is false.
func (s *ActiveSet) Remove(id string) {
	if _, ok := s.index[id]; !ok {
		return
	}
	delete(s.index, id)
	for i, ac := range s.order {
		if ac.Def.ID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Tick advances every active status by one turn in application order:
// the periodic contribution is reported, the duration decremented, and
// statuses reaching 0 are removed.
//
// Postcondition: For every result with Expired, Has(result.ID) is false;
// every surviving status has Remaining > 0.
func (s *ActiveSet) Tick() []TickResult {
	results := make([]TickResult, 0, len(s.order))
	survivors := s.order[:0]
	for _, ac := range s.order {
		res := TickResult{
			ID:         ac.Def.ID,
			Name:       ac.Def.Name,
			PeriodicHP: ac.Def.PeriodicHP * ac.Stacks,
		}
		ac.Remaining--
		if ac.Remaining <= 0 {
			res.Expired = true
			delete(s.index, ac.Def.ID)
		} else {
			survivors = append(survivors, ac)
		}
		results = append(results, res)
	}
	s.order = survivors
	return results
}

// Modifier returns the combined multiplier for stat from all active statuses.
// Stackable statuses apply their multiplier once per stack. Statuses that do
// not modify stat contribute a factor of 1.
//
// Postcondition: returns 1.0 when no active status modifies stat.
func (s *ActiveSet) Modifier(stat string) float64 {
	total := 1.0
	for _, ac := range s.order {
		m, ok := ac.Def.Modifiers[stat]
		if !ok {
			continue
		}
		for i := 0; i < ac.Stacks; i++ {
			total *= m
		}
	}
	return total
}

// Disabled reports whether any active status has the disable category,
// which forces the combatant to forfeit its turn.
func (s *ActiveSet) Disabled() bool {
	for _, ac := range s.order {
		if ac.Def.Category == CategoryDisable {
			return true
		}
	}
	return false
}

// Has reports whether the status with id is currently active.
func (s *ActiveSet) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Stacks returns the current stack count for status id, or 0 if not present.
func (s *ActiveSet) Stacks(id string) int {
	if ac, ok := s.index[id]; ok {
		return ac.Stacks
	}
	return 0
}

// Remaining returns the remaining duration for status id, or 0 if not present.
func (s *ActiveSet) Remaining(id string) int {
	if ac, ok := s.index[id]; ok {
		return ac.Remaining
	}
	return 0
}

// All returns the active statuses in application order. The slice is a new
// allocation but the pointed-to values are shared; callers must not modify them.
func (s *ActiveSet) All() []*ActiveStatus {
	out := make([]*ActiveStatus, len(s.order))
	copy(out, s.order)
	return out
}
