package behavior

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"

	"github.com/gekkinggu/turn-based-combat/internal/game/catalog"
	"github.com/gekkinggu/turn-based-combat/internal/game/dice"
)

// DefaultInstructionLimit is the maximum number of Lua opcodes allowed per
// policy evaluation when no override is configured.
const DefaultInstructionLimit = 100_000

// countingContext is a context.Context that cancels itself after Done() has
// been called limit times. GopherLua's main loop calls Done() once per
// opcode, making this an exact instruction-count limit.
type countingContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining *atomic.Int64
}

// Done returns the underlying cancellation channel. Each call decrements the
// remaining counter; when it reaches zero the cancel function fires,
// terminating the Lua VM on the next opcode boundary.
func (c *countingContext) Done() <-chan struct{} {
	if c.remaining.Add(-1) <= 0 {
		c.cancel()
	}
	return c.Context.Done()
}

// newCountingContext returns a context that cancels after limit calls to Done().
// Precondition: limit > 0.
func newCountingContext(limit int) (context.Context, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	rem := &atomic.Int64{}
	rem.Store(int64(limit))
	return &countingContext{Context: base, cancel: cancel, remaining: rem}, cancel
}

// newSandboxedState creates a GopherLua LState with only the safe stdlib
// loaded (base, table, string, math), the dangerous globals stripped, and
// execution limited to instLimit opcodes.
func newSandboxedState(instLimit int) *lua.LState {
	limit := instLimit
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	ctx, _ := newCountingContext(limit)
	L.SetContext(ctx)

	return L
}

// Lua evaluates a sandboxed script to pick a decision. The script must define
//
//	function select_action(state) ... end
//
// where state is a table with fields actor, allies, enemies, and actions, and
// must return a table {action = <action id>, target = <combatant id or nil>}.
// A nil return, a script error, or a non-committable choice degrades to
// ErrNoValidAction rather than failing the battle.
//
// The LState is not safe for concurrent use; a mutex serialises evaluations.
type Lua struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
}

// NewLua compiles script into a fresh sandboxed state.
//
// Precondition: script must define select_action.
// Postcondition: returns an error if the script fails to load or defines no
// select_action function.
func NewLua(script string, instLimit int) (*Lua, error) {
	L := newSandboxedState(instLimit)
	if err := L.DoString(script); err != nil {
		L.Close()
		return nil, fmt.Errorf("behavior: loading lua policy: %w", err)
	}
	if L.GetGlobal("select_action").Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("behavior: lua policy does not define select_action")
	}
	limit := instLimit
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	return &Lua{L: L, limit: limit}, nil
}

// Close releases the underlying Lua state.
func (p *Lua) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.L.Close()
}

// Decide implements Policy.
func (p *Lua) Decide(snap *Snapshot, src dice.Source) (Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	L := p.L

	// Fresh opcode budget per evaluation.
	ctx, cancel := newCountingContext(p.limit)
	defer cancel()
	L.SetContext(ctx)

	state := L.NewTable()
	L.SetField(state, "actor", viewTable(L, snap.Actor))
	L.SetField(state, "allies", viewsTable(L, snap.Allies))
	L.SetField(state, "enemies", viewsTable(L, snap.Enemies))

	actions := L.NewTable()
	for _, a := range snap.Actions {
		t := L.NewTable()
		L.SetField(t, "id", lua.LString(a.ID))
		L.SetField(t, "effect", lua.LString(a.Effect))
		L.SetField(t, "targeting", lua.LString(a.Targeting))
		L.SetField(t, "potency", lua.LNumber(a.Potency))
		L.SetField(t, "mp_cost", lua.LNumber(a.MPCost))
		L.SetField(t, "element", lua.LString(a.Element))
		actions.Append(t)
	}
	L.SetField(state, "actions", actions)

	if err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal("select_action"),
		NRet:    1,
		Protect: true,
	}, state); err != nil {
		return Decision{}, fmt.Errorf("%w: lua policy error: %v", ErrNoValidAction, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return Decision{}, ErrNoValidAction
	}
	actionID := lua.LVAsString(L.GetField(tbl, "action"))
	if actionID == "" {
		return Decision{}, ErrNoValidAction
	}

	for _, a := range snap.Actions {
		if a.ID != actionID {
			continue
		}
		if a.MPCost > snap.Actor.MP {
			return Decision{}, ErrNoValidAction
		}
		targets := snap.TargetsFor(a)
		if targetID := lua.LVAsString(L.GetField(tbl, "target")); targetID != "" {
			if snap.ViewByID(targetID) != nil && !a.MultiTarget() && a.Targeting != catalog.TargetSelf {
				targets = []string{targetID}
			}
		}
		if len(targets) == 0 {
			return Decision{}, ErrNoValidAction
		}
		return Decision{ActionID: a.ID, TargetIDs: targets}, nil
	}
	return Decision{}, ErrNoValidAction
}

func viewTable(L *lua.LState, v *CombatantView) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(v.ID))
	L.SetField(t, "name", lua.LString(v.Name))
	L.SetField(t, "hp", lua.LNumber(v.HP))
	L.SetField(t, "max_hp", lua.LNumber(v.MaxHP))
	L.SetField(t, "mp", lua.LNumber(v.MP))
	L.SetField(t, "max_mp", lua.LNumber(v.MaxMP))
	return t
}

func viewsTable(L *lua.LState, views []*CombatantView) *lua.LTable {
	t := L.NewTable()
	for _, v := range views {
		t.Append(viewTable(L, v))
	}
	return t
}
