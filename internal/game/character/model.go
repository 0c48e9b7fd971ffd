// Package character defines the combatant model: level-scaled stats, HP/MP
// pools, elemental affinities, the ATB gauge, and active status effects.
package character

import (
	"github.com/google/uuid"

	"github.com/gekkinggu/turn-based-combat/internal/game/catalog"
	"github.com/gekkinggu/turn-based-combat/internal/game/status"
)

// Role distinguishes player-controlled combatants from AI-controlled ones.
// The battle state machine dispatches turn handling on this tag.
type Role int

const (
	RolePlayer Role = iota
	RoleAI
)

// String returns a human-readable role label.
func (r Role) String() string {
	switch r {
	case RolePlayer:
		return "player"
	case RoleAI:
		return "ai"
	default:
		return "unknown"
	}
}

// Combatant is one participant in a battle. Instances are created from
// catalog templates at battle start and owned exclusively by the Battle
// aggregate; all mutation happens inside a single state-machine step.
type Combatant struct {
	ID         string
	TemplateID string
	Name       string
	Role       Role
	Level      int

	// Resources. Invariant: 0 <= Current <= Max for both pools.
	MaxHP     int
	CurrentHP int
	MaxMP     int
	CurrentMP int

	// Base combat stats after level scaling. Status modifiers are read
	// through via the Effective* accessors, never baked into these fields.
	Strength     int
	Magic        int
	Defense      int
	MagicDefense int
	Speed        int

	// Affinities maps element to multiplier; absent elements resolve to 1.
	Affinities map[string]float64

	// Gauge is the ATB readiness value. Invariant: 0 <= Gauge <= threshold;
	// reset to 0 the moment the combatant is promoted to act.
	Gauge float64

	// Statuses is the ordered set of active status effects.
	Statuses *status.ActiveSet

	// RosterIndex is the combatant's position at battle start, the final
	// readiness tie-break key.
	RosterIndex int

	// Actions lists usable action IDs; Behavior names the AI policy.
	Actions  []string
	Behavior string
}

// scaleStat applies the level curve: stat = base * level^2 / 10000, so a
// level-100 combatant fields its template stats unmodified.
func scaleStat(base, level int) int {
	return base * level * level / 10000
}

// NewFromTemplate instantiates a Combatant from a catalog template.
// HP is floored at 1 so extreme low-level scaling cannot produce a combatant
// that is dead on arrival. Speed is not level-scaled.
//
// Precondition: tmpl must not be nil; level >= 1; rosterIndex >= 0.
// Postcondition: pools are full, gauge is 0, and the status set is empty.
func NewFromTemplate(tmpl *catalog.BattlerTemplate, level int, role Role, rosterIndex int) *Combatant {
	maxHP := scaleStat(tmpl.HP, level)
	if maxHP < 1 {
		maxHP = 1
	}
	maxMP := scaleStat(tmpl.MP, level)

	affinities := make(map[string]float64, len(tmpl.Affinities))
	for element, factor := range tmpl.Affinities {
		affinities[element] = factor
	}
	actions := make([]string, len(tmpl.Actions))
	copy(actions, tmpl.Actions)

	return &Combatant{
		ID:           uuid.NewString(),
		TemplateID:   tmpl.ID,
		Name:         tmpl.Name,
		Role:         role,
		Level:        level,
		MaxHP:        maxHP,
		CurrentHP:    maxHP,
		MaxMP:        maxMP,
		CurrentMP:    maxMP,
		Strength:     scaleStat(tmpl.Strength, level),
		Magic:        scaleStat(tmpl.Magic, level),
		Defense:      scaleStat(tmpl.Defense, level),
		MagicDefense: scaleStat(tmpl.MagicDefense, level),
		Speed:        tmpl.Speed,
		Affinities:   affinities,
		Statuses:     status.NewActiveSet(),
		RosterIndex:  rosterIndex,
		Actions:      actions,
		Behavior:     tmpl.Behavior,
	}
}

// IsPlayer reports whether this combatant is player-controlled.
// Postcondition: Returns true iff Role == RolePlayer.
func (c *Combatant) IsPlayer() bool { return c.Role == RolePlayer }

// IsDefeated reports whether this combatant has been reduced to 0 HP.
func (c *Combatant) IsDefeated() bool { return c.CurrentHP == 0 }

// ApplyDamage reduces CurrentHP by amount, flooring at zero, and returns the
// HP actually lost.
// Precondition: amount must be >= 0.
// Postcondition: CurrentHP >= 0.
func (c *Combatant) ApplyDamage(amount int) int {
	if amount > c.CurrentHP {
		amount = c.CurrentHP
	}
	c.CurrentHP -= amount
	return amount
}

// Heal raises CurrentHP by amount, capping at MaxHP, and returns the HP
// actually restored.
// Precondition: amount must be >= 0.
// Postcondition: CurrentHP <= MaxHP.
func (c *Combatant) Heal(amount int) int {
	if c.CurrentHP+amount > c.MaxHP {
		amount = c.MaxHP - c.CurrentHP
	}
	c.CurrentHP += amount
	return amount
}

// CanAfford reports whether the combatant has at least cost MP.
func (c *Combatant) CanAfford(cost int) bool { return c.CurrentMP >= cost }

// SpendMP deducts cost from CurrentMP.
// Precondition: CanAfford(cost); callers enforce affordability before commit.
// Postcondition: CurrentMP >= 0; returns false with no deduction on overdraw.
func (c *Combatant) SpendMP(cost int) bool {
	if cost > c.CurrentMP {
		return false
	}
	c.CurrentMP -= cost
	return true
}

// AffinityFactor returns the elemental multiplier for element.
// An empty element or an absent entry resolves to the neutral factor 1.
func (c *Combatant) AffinityFactor(element string) float64 {
	if element == "" {
		return 1
	}
	if factor, ok := c.Affinities[element]; ok {
		return factor
	}
	return 1
}

// modified applies the active status multiplier for stat to base, flooring
// at zero.
func (c *Combatant) modified(base int, stat string) int {
	v := int(float64(base) * c.Statuses.Modifier(stat))
	if v < 0 {
		v = 0
	}
	return v
}

// EffectiveStrength returns Strength with status modifiers read through.
func (c *Combatant) EffectiveStrength() int { return c.modified(c.Strength, "strength") }

// EffectiveMagic returns Magic with status modifiers read through.
func (c *Combatant) EffectiveMagic() int { return c.modified(c.Magic, "magic") }

// EffectiveDefense returns Defense with status modifiers read through.
func (c *Combatant) EffectiveDefense() int { return c.modified(c.Defense, "defense") }

// EffectiveMagicDefense returns MagicDefense with status modifiers read through.
func (c *Combatant) EffectiveMagicDefense() int { return c.modified(c.MagicDefense, "magic_defense") }

// EffectiveSpeed returns Speed with status modifiers read through. Gauge
// accrual uses this value, so slow/haste statuses change readiness rate.
func (c *Combatant) EffectiveSpeed() int { return c.modified(c.Speed, "speed") }
