package battle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/gekkinggu/turn-based-combat/internal/game/battle"
	"github.com/gekkinggu/turn-based-combat/internal/game/behavior"
	"github.com/gekkinggu/turn-based-combat/internal/game/catalog"
	"github.com/gekkinggu/turn-based-combat/internal/game/dice"
	"github.com/gekkinggu/turn-based-combat/internal/game/status"
)

// testTuning removes randomness from resolution: variance locked to 1.0 and
// criticals disabled, with a small threshold so readiness arrives quickly.
func testTuning() battle.Tuning {
	return battle.Tuning{
		ReadyThreshold: 100,
		GaugeRate:      1,
		VarianceMin:    1,
		VarianceMax:    1,
		CritChance:     0,
		CritMultiplier: 2,
	}
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	actions := catalog.NewActionRegistry()
	for _, def := range []*catalog.ActionDef{
		{ID: "attack", Name: "Attack", Effect: catalog.EffectDamage, Targeting: catalog.TargetEnemy, Physical: true, Potency: 100},
		{ID: "fire", Name: "Fire", Effect: catalog.EffectDamage, Targeting: catalog.TargetEnemy, Potency: 100, Element: "fire", MPCost: 4},
		{ID: "fira", Name: "Fira", Effect: catalog.EffectDamage, Targeting: catalog.TargetAllEnemies, Potency: 100, Element: "fire", MPCost: 8},
		{ID: "cure", Name: "Cure", Effect: catalog.EffectHeal, Targeting: catalog.TargetAlly, Potency: 200, MPCost: 5},
		{ID: "sting", Name: "Sting", Effect: catalog.EffectDamage, Targeting: catalog.TargetEnemy, Physical: true, Potency: 50, Status: "poison", StatusChance: 1.0},
		{ID: "bash", Name: "Bash", Effect: catalog.EffectDamage, Targeting: catalog.TargetEnemy, Physical: true, Potency: 50, Status: "stun", StatusChance: 1.0},
	} {
		require.NoError(t, def.Validate())
		actions.Register(def)
	}

	statuses := status.NewRegistry()
	for _, def := range []*status.StatusDef{
		{ID: "poison", Name: "Poison", Category: status.CategoryDOT, Stacking: status.StackingStack, MaxStacks: 3, Duration: 3, PeriodicHP: -5},
		{ID: "stun", Name: "Stun", Category: status.CategoryDisable, Stacking: status.StackingRefresh, Duration: 2},
	} {
		require.NoError(t, def.Validate())
		statuses.Register(def)
	}

	battlers := catalog.NewBattlerRegistry()
	for _, tmpl := range []*catalog.BattlerTemplate{
		{
			ID: "hero", Name: "Hero", HP: 300, MP: 20,
			Strength: 40, Magic: 40, Defense: 40, MagicDefense: 40, Speed: 10,
			Actions:  []string{"attack", "fire", "fira", "cure", "sting", "bash"},
			Behavior: "aggressive",
		},
		{
			ID: "slime", Name: "Slime", HP: 60,
			Strength: 20, Magic: 10, Defense: 40, MagicDefense: 20, Speed: 1,
			Actions:  []string{"attack"},
			Behavior: "aggressive",
		},
		{
			ID: "ember", Name: "Ember Sprite", HP: 60,
			Strength: 20, Magic: 20, Defense: 40, MagicDefense: 20, Speed: 1,
			Affinities: map[string]float64{"fire": -1, "ice": 0},
			Actions:    []string{"attack"},
			Behavior:   "aggressive",
		},
		{
			ID: "wolf", Name: "Wolf", HP: 120,
			Strength: 40, Defense: 30, MagicDefense: 20, Speed: 10,
			Actions:  []string{"attack"},
			Behavior: "aggressive",
		},
	} {
		require.NoError(t, tmpl.Validate())
		battlers.Register(tmpl)
	}

	cat, err := catalog.New(actions, battlers, statuses)
	require.NoError(t, err)
	return cat
}

func newTestBattle(t *testing.T, tuning battle.Tuning, party, enemies []battle.MemberSpec) *battle.Battle {
	t.Helper()
	b, err := battle.New(
		testCatalog(t),
		party, enemies,
		behavior.NewRegistry(),
		tuning,
		dice.NewSeededSource(7),
		zap.NewNop(),
	)
	require.NoError(t, err)
	return b
}

func member(id string) battle.MemberSpec {
	return battle.MemberSpec{TemplateID: id, Level: 100}
}

// advanceUntilPending steps the battle until a player decision is awaited.
func advanceUntilPending(t *testing.T, b *battle.Battle) ([]battle.Event, *behavior.Snapshot) {
	t.Helper()
	var events []battle.Event
	for i := 0; i < 1000; i++ {
		events = append(events, b.Advance(1)...)
		if snap, ok := b.PendingDecision(); ok {
			return events, snap
		}
		require.False(t, b.IsTerminal(), "battle ended before a decision was awaited")
	}
	t.Fatal("no decision awaited after 1000 steps")
	return nil, nil
}

func TestNew_Validation(t *testing.T) {
	cat := testCatalog(t)
	reg := behavior.NewRegistry()
	logger := zap.NewNop()
	src := dice.NewSeededSource(1)

	_, err := battle.New(cat, nil, []battle.MemberSpec{member("slime")}, reg, testTuning(), src, logger)
	assert.Error(t, err)

	_, err = battle.New(cat, []battle.MemberSpec{member("hero")}, nil, reg, testTuning(), src, logger)
	assert.Error(t, err)

	_, err = battle.New(cat, []battle.MemberSpec{member("ghost")}, []battle.MemberSpec{member("slime")}, reg, testTuning(), src, logger)
	assert.ErrorIs(t, err, catalog.ErrUnknownReference)
}

func TestNew_StartingGaugeWithinBound(t *testing.T) {
	tuning := testTuning()
	tuning.StartingGaugeMax = 40
	b := newTestBattle(t, tuning, []battle.MemberSpec{member("hero")}, []battle.MemberSpec{member("slime")})

	for _, c := range append(b.Party(), b.Enemies()...) {
		assert.GreaterOrEqual(t, c.Gauge, 0.0)
		assert.LessOrEqual(t, c.Gauge, 40.0)
	}
}

func TestAdvance_FasterCombatantReadiesFirst(t *testing.T) {
	b := newTestBattle(t, testTuning(),
		[]battle.MemberSpec{member("hero")},
		[]battle.MemberSpec{member("slime")},
	)

	// Hero accrues 10 gauge per step, slime 1. Nine steps: nobody ready.
	for i := 0; i < 9; i++ {
		b.Advance(1)
		_, ok := b.PendingDecision()
		assert.False(t, ok, "step %d", i)
	}

	// Tenth step crosses the threshold.
	b.Advance(1)
	snap, ok := b.PendingDecision()
	require.True(t, ok)
	assert.Equal(t, "Hero", snap.Actor.Name)
	assert.Equal(t, battle.StateControlledTurn, b.State())

	// Gauge was consumed on promotion.
	assert.Equal(t, 0.0, b.Party()[0].Gauge)
}

func TestAdvance_NoopWhilePendingOrTerminal(t *testing.T) {
	b := newTestBattle(t, testTuning(),
		[]battle.MemberSpec{member("hero")},
		[]battle.MemberSpec{member("slime")},
	)
	advanceUntilPending(t, b)

	slimeGauge := b.Enemies()[0].Gauge
	assert.Nil(t, b.Advance(1))
	assert.Equal(t, slimeGauge, b.Enemies()[0].Gauge, "gauges must freeze while a decision is pending")
}

func TestCommitDecision_RejectsInvalidCommands(t *testing.T) {
	b := newTestBattle(t, testTuning(),
		[]battle.MemberSpec{member("hero")},
		[]battle.MemberSpec{member("slime")},
	)
	_, snap := advanceUntilPending(t, b)
	hero := snap.Actor.ID
	slime := b.Enemies()[0].ID

	heroMP := b.Party()[0].CurrentMP
	slimeHP := b.Enemies()[0].CurrentHP

	tests := []struct {
		name    string
		actor   string
		action  string
		targets []string
	}{
		{"wrong actor", slime, "attack", []string{slime}},
		{"unknown action", hero, "meteor", []string{slime}},
		{"unowned action", hero, "howl", []string{slime}},
		{"empty targets", hero, "attack", nil},
		{"unknown target", hero, "attack", []string{"nobody"}},
		{"ally targeted by attack", hero, "attack", []string{hero}},
		{"enemy targeted by cure", hero, "cure", []string{slime}},
		{"two targets for single-target", hero, "attack", []string{slime, slime}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.CommitDecision(tc.actor, tc.action, tc.targets)
			require.ErrorIs(t, err, battle.ErrInvalidCommand)

			// Rejection must leave the battle untouched.
			_, ok := b.PendingDecision()
			assert.True(t, ok)
			assert.Equal(t, heroMP, b.Party()[0].CurrentMP)
			assert.Equal(t, slimeHP, b.Enemies()[0].CurrentHP)
		})
	}
}

func TestCommitDecision_RejectsUnaffordableAction(t *testing.T) {
	b := newTestBattle(t, testTuning(),
		[]battle.MemberSpec{member("hero")},
		[]battle.MemberSpec{member("slime")},
	)
	_, snap := advanceUntilPending(t, b)

	hero := b.Party()[0]
	hero.CurrentMP = 3 // fire costs 4

	_, err := b.CommitDecision(snap.Actor.ID, "fire", []string{b.Enemies()[0].ID})
	require.ErrorIs(t, err, battle.ErrInvalidCommand)
	assert.Equal(t, 3, hero.CurrentMP)
}

func TestCommitDecision_ResolvesDamageDeterministically(t *testing.T) {
	b := newTestBattle(t, testTuning(),
		[]battle.MemberSpec{member("hero")},
		[]battle.MemberSpec{member("slime")},
	)
	_, snap := advanceUntilPending(t, b)
	slime := b.Enemies()[0]

	events, err := b.CommitDecision(snap.Actor.ID, "attack", []string{slime.ID})
	require.NoError(t, err)

	// strength 40 vs defense 40: 40 / 2^1 = 20, potency 100, variance 1.
	require.NotEmpty(t, events)
	assert.Equal(t, battle.EventDamage, events[0].Kind)
	assert.Equal(t, 20, events[0].Magnitude)
	assert.False(t, events[0].Crit)
	assert.Equal(t, 40, slime.CurrentHP)
}

func TestCommitDecision_SpendsMPBeforeResolution(t *testing.T) {
	b := newTestBattle(t, testTuning(),
		[]battle.MemberSpec{member("hero")},
		[]battle.MemberSpec{member("slime")},
	)
	_, snap := advanceUntilPending(t, b)

	_, err := b.CommitDecision(snap.Actor.ID, "fire", []string{b.Enemies()[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 16, b.Party()[0].CurrentMP)
}

func TestCommitDecision_HealCapsAtMax(t *testing.T) {
	b := newTestBattle(t, testTuning(),
		[]battle.MemberSpec{member("hero")},
		[]battle.MemberSpec{member("slime")},
	)
	_, snap := advanceUntilPending(t, b)

	hero := b.Party()[0]
	hero.CurrentHP = hero.MaxHP - 10

	events, err := b.CommitDecision(snap.Actor.ID, "cure", []string{hero.ID})
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, battle.EventHeal, events[0].Kind)
	assert.Equal(t, 10, events[0].Magnitude)
	assert.Equal(t, hero.MaxHP, hero.CurrentHP)
}

func TestCommitDecision_MultiTargetHitsAllLiving(t *testing.T) {
	b := newTestBattle(t, testTuning(),
		[]battle.MemberSpec{member("hero")},
		[]battle.MemberSpec{member("slime"), member("slime"), member("slime")},
	)
	_, snap := advanceUntilPending(t, b)

	// One enemy is already down when the decision resolves.
	dead := b.Enemies()[2]
	dead.CurrentHP = 0

	events, err := b.CommitDecision(snap.Actor.ID, "fira", []string{b.Enemies()[0].ID})
	require.NoError(t, err)

	var hit []string
	for _, e := range events {
		if e.Kind == battle.EventDamage && e.ActionID == "fira" {
			hit = append(hit, e.TargetID)
		}
	}
	require.Len(t, hit, 2, "the dead enemy is skipped silently")
	assert.NotContains(t, hit, dead.ID)
}

func TestCommitDecision_FireAbsorbedByEmber(t *testing.T) {
	b := newTestBattle(t, testTuning(),
		[]battle.MemberSpec{member("hero")},
		[]battle.MemberSpec{member("ember")},
	)
	_, snap := advanceUntilPending(t, b)

	ember := b.Enemies()[0]
	ember.CurrentHP = 30

	events, err := b.CommitDecision(snap.Actor.ID, "fire", []string{ember.ID})
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, battle.EventHeal, events[0].Kind)
	assert.Greater(t, events[0].Magnitude, 0)
	assert.Greater(t, ember.CurrentHP, 30)
}

func TestCommitDecision_ImmuneTargetTakesZero(t *testing.T) {
	cat := testCatalog(t)
	ice := &catalog.ActionDef{ID: "ice", Name: "Ice", Effect: catalog.EffectDamage, Targeting: catalog.TargetEnemy, Potency: 100, Element: "ice", MPCost: 4}
	require.NoError(t, ice.Validate())
	cat.Actions.Register(ice)
	hero, err := cat.Battler("hero")
	require.NoError(t, err)
	hero.Actions = append(hero.Actions, "ice")

	b, err := battle.New(cat,
		[]battle.MemberSpec{member("hero")},
		[]battle.MemberSpec{member("ember")},
		behavior.NewRegistry(), testTuning(), dice.NewSeededSource(7), zap.NewNop())
	require.NoError(t, err)
	_, snap := advanceUntilPending(t, b)

	ember := b.Enemies()[0]
	hpBefore := ember.CurrentHP

	events, err := b.CommitDecision(snap.Actor.ID, "ice", []string{ember.ID})
	require.NoError(t, err)

	require.NotEmpty(t, events)
	assert.Equal(t, battle.EventDamage, events[0].Kind)
	assert.Equal(t, 0, events[0].Magnitude)
	assert.Equal(t, hpBefore, ember.CurrentHP)
}

func TestCommitDecision_StatusPayloadAndTick(t *testing.T) {
	b := newTestBattle(t, testTuning(),
		[]battle.MemberSpec{member("hero")},
		[]battle.MemberSpec{member("slime")},
	)
	_, snap := advanceUntilPending(t, b)
	slime := b.Enemies()[0]

	events, err := b.CommitDecision(snap.Actor.ID, "sting", []string{slime.ID})
	require.NoError(t, err)

	kinds := make([]battle.EventKind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	// Sting damage, then poison attaches, then the end-of-turn tick drains.
	assert.Contains(t, kinds, battle.EventDamage)
	assert.Contains(t, kinds, battle.EventStatusApplied)
	assert.True(t, slime.Statuses.Has("poison"))

	var tickDamage *battle.Event
	for i := range events {
		if events[i].Kind == battle.EventDamage && events[i].StatusID == "poison" {
			tickDamage = &events[i]
		}
	}
	require.NotNil(t, tickDamage, "poison must tick at end of turn")
	assert.Equal(t, 5, tickDamage.Magnitude)
}

func TestBattle_DisabledActorForfeitsTurn(t *testing.T) {
	b := newTestBattle(t, testTuning(),
		[]battle.MemberSpec{member("hero")},
		[]battle.MemberSpec{member("wolf")},
	)
	// Hero and wolf share speed 10; the hero acts first on roster order.
	_, snap := advanceUntilPending(t, b)
	wolf := b.Enemies()[0]

	events, err := b.CommitDecision(snap.Actor.ID, "bash", []string{wolf.ID})
	require.NoError(t, err)
	require.True(t, wolf.Statuses.Has("stun"))

	// The wolf was ready in the same step and must pass instead of acting.
	var passed bool
	for _, e := range events {
		if e.Kind == battle.EventPass && e.SourceID == wolf.ID {
			passed = true
		}
	}
	assert.True(t, passed)
	assert.Equal(t, b.Party()[0].MaxHP, b.Party()[0].CurrentHP, "a stunned wolf deals no damage")
}

func TestBattle_SimultaneousReadinessIsDeterministic(t *testing.T) {
	run := func() []string {
		b := newTestBattle(t, testTuning(),
			[]battle.MemberSpec{member("slime")},
			[]battle.MemberSpec{member("wolf"), member("wolf")},
		)
		// Both wolves ready on the same step; the slime (speed 1) stays put.
		events := b.Advance(10)
		var order []string
		for _, e := range events {
			if e.Kind == battle.EventDamage {
				order = append(order, e.SourceID)
			}
		}
		return order
	}

	first := run()
	require.Len(t, first, 2)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, run())
	}
}

func TestBattle_RunsToVictory(t *testing.T) {
	b := newTestBattle(t, testTuning(),
		[]battle.MemberSpec{member("hero")},
		[]battle.MemberSpec{member("slime"), member("slime")},
	)
	autopilot := behavior.NewAggressive()
	src := dice.NewSeededSource(99)

	for steps := 0; !b.IsTerminal(); steps++ {
		require.Less(t, steps, 100000, "battle must conclude")
		b.Advance(1)
		for {
			snap, ok := b.PendingDecision()
			if !ok {
				break
			}
			d, err := autopilot.Decide(snap, src)
			require.NoError(t, err)
			_, err = b.CommitDecision(snap.Actor.ID, d.ActionID, d.TargetIDs)
			require.NoError(t, err)
		}
	}

	outcome, done := b.Outcome()
	require.True(t, done)
	assert.Equal(t, battle.OutcomeVictory, outcome)
	assert.Empty(t, b.Enemies())
	assert.Len(t, b.Graveyard(), 2)
	assert.Len(t, b.Party(), 1)

	// Terminal battles refuse further input.
	assert.Nil(t, b.Advance(1))
	_, err := b.CommitDecision("x", "attack", []string{"y"})
	assert.ErrorIs(t, err, battle.ErrInvalidCommand)
}

func TestBattle_RunsToLoss(t *testing.T) {
	// An outmatched slime party against two wolves. The wolves ready ten
	// times faster and grind the slime down before it ever acts.
	b := newTestBattle(t, testTuning(),
		[]battle.MemberSpec{member("slime")},
		[]battle.MemberSpec{member("wolf"), member("wolf")},
	)
	autopilot := behavior.NewAggressive()
	src := dice.NewSeededSource(3)

	for steps := 0; !b.IsTerminal(); steps++ {
		require.Less(t, steps, 100000)
		b.Advance(1)
		for {
			snap, ok := b.PendingDecision()
			if !ok {
				break
			}
			d, err := autopilot.Decide(snap, src)
			require.NoError(t, err)
			_, err = b.CommitDecision(snap.Actor.ID, d.ActionID, d.TargetIDs)
			require.NoError(t, err)
		}
	}

	outcome, _ := b.Outcome()
	assert.Equal(t, battle.OutcomeLoss, outcome)
	assert.Empty(t, b.Party())
}

func TestBattle_Property_GaugesStayInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := newTestBattle(t, testTuning(),
			[]battle.MemberSpec{member("hero")},
			[]battle.MemberSpec{member("slime"), member("wolf")},
		)
		steps := rapid.IntRange(1, 50).Draw(rt, "steps")
		for i := 0; i < steps && !b.IsTerminal(); i++ {
			dt := rapid.Float64Range(0.01, 5).Draw(rt, "dt")
			b.Advance(dt)
			if snap, ok := b.PendingDecision(); ok {
				_, err := b.CommitDecision(snap.Actor.ID, "attack", []string{b.Enemies()[0].ID})
				require.NoError(rt, err)
			}
		}
		for _, c := range append(b.Party(), b.Enemies()...) {
			assert.GreaterOrEqual(rt, c.Gauge, 0.0)
			assert.LessOrEqual(rt, c.Gauge, 100.0)
		}
		for _, c := range b.Graveyard() {
			assert.True(rt, c.IsDefeated())
		}
	})
}
