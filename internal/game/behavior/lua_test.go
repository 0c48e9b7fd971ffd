package behavior_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekkinggu/turn-based-combat/internal/game/behavior"
	"github.com/gekkinggu/turn-based-combat/internal/game/dice"
)

func TestNewLua_RequiresSelectAction(t *testing.T) {
	_, err := behavior.NewLua(`x = 1`, 0)
	assert.Error(t, err)

	_, err = behavior.NewLua(`this is not lua`, 0)
	assert.Error(t, err)

	p, err := behavior.NewLua(`function select_action(state) return nil end`, 0)
	require.NoError(t, err)
	p.Close()
}

func TestLua_SelectsActionAndTarget(t *testing.T) {
	p, err := behavior.NewLua(`
function select_action(state)
  local weakest = nil
  for _, e in ipairs(state.enemies) do
    if weakest == nil or e.hp < weakest.hp then
      weakest = e
    end
  end
  return { action = "attack", target = weakest.id }
end
`, 0)
	require.NoError(t, err)
	defer p.Close()

	d, err := p.Decide(testSnapshot(10), dice.NewSeededSource(1))
	require.NoError(t, err)
	assert.Equal(t, "attack", d.ActionID)
	assert.Equal(t, []string{"e2"}, d.TargetIDs)
}

func TestLua_NilReturnMeansPass(t *testing.T) {
	p, err := behavior.NewLua(`function select_action(state) return nil end`, 0)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Decide(testSnapshot(10), dice.NewSeededSource(1))
	assert.ErrorIs(t, err, behavior.ErrNoValidAction)
}

func TestLua_UnknownActionMeansPass(t *testing.T) {
	p, err := behavior.NewLua(`function select_action(state) return { action = "meteor" } end`, 0)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Decide(testSnapshot(10), dice.NewSeededSource(1))
	assert.ErrorIs(t, err, behavior.ErrNoValidAction)
}

func TestLua_UnaffordableActionMeansPass(t *testing.T) {
	p, err := behavior.NewLua(`function select_action(state) return { action = "fire" } end`, 0)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Decide(testSnapshot(0), dice.NewSeededSource(1))
	assert.ErrorIs(t, err, behavior.ErrNoValidAction)
}

func TestLua_RuntimeErrorMeansPass(t *testing.T) {
	p, err := behavior.NewLua(`function select_action(state) error("boom") end`, 0)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Decide(testSnapshot(10), dice.NewSeededSource(1))
	assert.ErrorIs(t, err, behavior.ErrNoValidAction)
}

func TestLua_InfiniteLoopIsTerminated(t *testing.T) {
	p, err := behavior.NewLua(`
function select_action(state)
  while true do end
end
`, 10_000)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Decide(testSnapshot(10), dice.NewSeededSource(1))
	assert.ErrorIs(t, err, behavior.ErrNoValidAction)
}

func TestLua_SandboxStripsDangerousGlobals(t *testing.T) {
	p, err := behavior.NewLua(`
function select_action(state)
  if dofile == nil and loadfile == nil and require == nil then
    return { action = "attack" }
  end
  return nil
end
`, 0)
	require.NoError(t, err)
	defer p.Close()

	d, err := p.Decide(testSnapshot(10), dice.NewSeededSource(1))
	require.NoError(t, err)
	assert.Equal(t, "attack", d.ActionID)
}

func TestLua_ReusableAcrossTurns(t *testing.T) {
	p, err := behavior.NewLua(`function select_action(state) return { action = "attack" } end`, 0)
	require.NoError(t, err)
	defer p.Close()

	for i := 0; i < 5; i++ {
		d, err := p.Decide(testSnapshot(10), dice.NewSeededSource(1))
		require.NoError(t, err)
		assert.Equal(t, "attack", d.ActionID)
	}
}
