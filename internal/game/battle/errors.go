package battle

import "errors"

// ErrInvalidCommand marks a malformed or currently-illegal decision: wrong
// actor, unowned action, dead target, insufficient MP, or an empty target
// list. The offending call is a no-op; the caller may correct and retry.
var ErrInvalidCommand = errors.New("invalid command")

// ErrInconsistentRoster marks an internal invariant violation: a combatant
// present in more than one of {party, enemies, graveyard}, or in none.
// It is asserted defensively and never expected in correct operation.
var ErrInconsistentRoster = errors.New("inconsistent roster state")
