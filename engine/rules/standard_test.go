package rules

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/nathoo/spellcore/engine/dice"
	"github.com/nathoo/spellcore/types"
)

func standardEngine() *Engine {
	return NewEngine(nil, Standard(DefaultConfig())...)
}

func TestStandard_PriorityOrder(t *testing.T) {
	rules := Standard(DefaultConfig())
	prio := map[string]int{}
	for _, r := range rules {
		prio[r.ID] = r.Priority
	}
	order := []string{IDAntimagic, IDCounterspell, IDConcentrationCheck, IDSpellSlot,
		IDLegendary, IDMagicResistance, IDCover, IDWildMagic}
	for i := 1; i < len(order); i++ {
		if prio[order[i-1]] <= prio[order[i]] {
			t.Errorf("%s (%d) should outrank %s (%d)", order[i-1], prio[order[i-1]], order[i], prio[order[i]])
		}
	}
}

func TestAntimagic_PreventsCast(t *testing.T) {
	ctx := newCtx()
	ctx.Env.AntimagicFields = []types.Field{{ID: "amf", Center: mgl64.Vec3{5, 0, 0}, Radius: 10}}

	out := standardEngine().Evaluate(PreCast, ctx, nil)
	if !out.Prevented {
		t.Fatal("cast inside antimagic field should be prevented")
	}
}

func TestAntimagic_OutsideField(t *testing.T) {
	ctx := newCtx()
	ctx.Env.AntimagicFields = []types.Field{{ID: "amf", Center: mgl64.Vec3{50, 0, 0}, Radius: 10}}

	if out := standardEngine().Evaluate(PreCast, ctx, nil); out.Prevented {
		t.Errorf("caster outside the field should not be prevented: %v", out.Reasons)
	}
}

func TestCounterspell_HigherLevelAutoSucceeds(t *testing.T) {
	ctx := newCtx()
	ctx.Dice = func(int, int) []int {
		t.Fatal("counterspell at or above spell level should not roll")
		return nil
	}
	ctx.Env.Entities["mage"] = &types.Entity{ID: "mage", Position: mgl64.Vec3{100, 0, 0}, ReadyCounterspell: 3}

	out := standardEngine().Evaluate(PreCast, ctx, nil)
	if !out.Prevented {
		t.Fatal("equal-level counterspell should prevent the cast")
	}
	if ctx.Env.Entities["mage"].ReadyCounterspell != 0 {
		t.Error("counterspell reaction should be spent")
	}
}

func TestCounterspell_DryRunKeepsReaction(t *testing.T) {
	ctx := newCtx()
	ctx.Metadata = map[string]any{KeyDryRun: true}
	ctx.Env.Entities["mage"] = &types.Entity{ID: "mage", ReadyCounterspell: 3}

	if out := standardEngine().Evaluate(PreCast, ctx, nil); !out.Prevented {
		t.Fatal("dry run should still report the counterspell")
	}
	if ctx.Env.Entities["mage"].ReadyCounterspell != 3 {
		t.Error("dry run should not spend the reaction")
	}
}

func TestCounterspell_DryRunContestRollsNothing(t *testing.T) {
	ctx := newCtx()
	ctx.Metadata = map[string]any{KeyDryRun: true}
	ctx.Dice = func(sides, count int) []int {
		t.Fatalf("dry run rolled %dd%d", count, sides)
		return nil
	}
	ctx.Env.Entities["mage"] = &types.Entity{ID: "mage", ReadyCounterspell: 1, CounterspellMod: 3}

	out := standardEngine().Evaluate(PreCast, ctx, nil)
	if out.Prevented {
		t.Error("a lower-level counterspell should not decide a dry run")
	}
	if out.Modifications[KeyContested] != "mage" {
		t.Errorf("expected the contest to be reported, got %v", out.Modifications)
	}
	if ctx.Env.Entities["mage"].ReadyCounterspell != 1 {
		t.Error("dry run should not spend the reaction")
	}
}

func TestCounterspell_LowerLevelRolls(t *testing.T) {
	tests := []struct {
		roll      int
		prevented bool
	}{
		{roll: 10, prevented: true}, // 10 + 3 = 13 >= 13
		{roll: 9, prevented: false},
	}
	for _, tt := range tests {
		ctx := newCtx()
		ctx.Dice = dice.Sequence(tt.roll)
		ctx.Env.Entities["mage"] = &types.Entity{ID: "mage", ReadyCounterspell: 1, CounterspellMod: 3}

		out := standardEngine().Evaluate(PreCast, ctx, nil)
		if out.Prevented != tt.prevented {
			t.Errorf("roll %d: prevented = %v, want %v", tt.roll, out.Prevented, tt.prevented)
		}
	}
}

func TestCounterspell_OutOfRange(t *testing.T) {
	ctx := newCtx()
	ctx.Env.Entities["mage"] = &types.Entity{ID: "mage", Position: mgl64.Vec3{301, 0, 0}, ReadyCounterspell: 9}

	if out := standardEngine().Evaluate(PreCast, ctx, nil); out.Prevented {
		t.Error("counterspeller beyond 300 units should not react")
	}
}

func TestCounterspellSucceeds_Table(t *testing.T) {
	if ok, _ := CounterspellSucceeds(5, 3, 0, dice.Sequence(1)); !ok {
		t.Error("higher level should auto-succeed")
	}
	if ok, _ := CounterspellSucceeds(3, 5, 2, dice.Sequence(13)); !ok {
		t.Error("13+2 >= 15 should succeed")
	}
	if ok, _ := CounterspellSucceeds(3, 5, 2, dice.Sequence(12)); ok {
		t.Error("12+2 < 15 should fail")
	}
}

func TestConcentrationDC(t *testing.T) {
	tests := []struct{ damage, want int }{
		{0, 10}, {5, 10}, {21, 10}, {22, 11}, {40, 20}, {41, 20},
	}
	for _, tt := range tests {
		if got := ConcentrationDC(tt.damage); got != tt.want {
			t.Errorf("ConcentrationDC(%d) = %d, want %d", tt.damage, got, tt.want)
		}
	}
}

func TestConcentration_RollEqualToDCHolds(t *testing.T) {
	target := &types.Entity{ID: "cleric", Concentration: "bless", SavingThrows: map[types.Ability]int{types.Constitution: 2}}
	ctx := newCtx()
	ctx.Dice = dice.Sequence(8) // 8 + 2 = 10 = DC

	out := standardEngine().Evaluate(Damage, ctx, &Subject{Target: target, Amount: 12})
	if target.Concentration != "bless" {
		t.Error("roll equal to DC should maintain concentration")
	}
	if len(out.Triggers) != 0 {
		t.Error("no trigger expected on success")
	}
}

func TestConcentration_FailureBreaks(t *testing.T) {
	target := &types.Entity{ID: "cleric", Concentration: "bless"}
	ctx := newCtx()
	ctx.Dice = dice.Sequence(14) // DC 15 from 30 damage

	out := standardEngine().Evaluate(Damage, ctx, &Subject{Target: target, Amount: 30})
	if target.Concentration != "" {
		t.Error("failed check should break concentration")
	}
	if len(out.Triggers) != 1 || out.Triggers[0].Result.Data["spell"] != "bless" {
		t.Errorf("expected concentration trigger naming the spell, got %+v", out.Triggers)
	}
	if out.Prevented {
		t.Error("concentration loss must not prevent the damage")
	}
}

func TestConcentrationTrack_ReplacesPrevious(t *testing.T) {
	ctx := newCtx()
	ctx.Spell = &types.Spell{ID: "web", Level: 2, Concentration: true}
	ctx.Caster.Concentration = "bless"

	out := standardEngine().Evaluate(PostCast, ctx, nil)
	if ctx.Caster.Concentration != "web" {
		t.Errorf("caster should now concentrate on web, got %q", ctx.Caster.Concentration)
	}
	if out.Modifications[KeyReplaced] != "bless" {
		t.Error("replaced concentration spell should be reported")
	}
}

func TestSpellSlot_Consumed(t *testing.T) {
	ctx := newCtx()
	ctx.SlotLevel = 4
	ctx.Caster.SpellSlots = map[int]int{3: 2, 4: 1}

	out := standardEngine().Evaluate(PostCast, ctx, nil)
	if ctx.Caster.SpellSlots[4] != 0 || ctx.Caster.SpellSlots[3] != 2 {
		t.Errorf("expected 4th-level slot consumed, got %v", ctx.Caster.SpellSlots)
	}
	if out.Prevented {
		t.Error("slot bookkeeping must not prevent")
	}
	if out.Modifications[KeySlotConsumed] != 4 {
		t.Errorf("expected slot level 4 recorded, got %v", out.Modifications[KeySlotConsumed])
	}
}

func TestSpellSlot_InnateCasterUntracked(t *testing.T) {
	ctx := newCtx()
	out := standardEngine().Evaluate(PostCast, ctx, nil)
	if _, ok := out.Fired(IDSpellSlot); ok {
		t.Error("caster without a slot table should not be tracked")
	}
	if ctx.Caster.SpellSlots != nil {
		t.Error("slot table should not be created")
	}
}

func TestSpellSlot_CantripFree(t *testing.T) {
	ctx := newCtx()
	ctx.Spell = &types.Spell{ID: "fire_bolt", Level: 0}
	out := standardEngine().Evaluate(PostCast, ctx, nil)
	if _, ok := out.Fired(IDSpellSlot); ok {
		t.Error("cantrips should not consume a slot")
	}
}

func TestLegendary_OverridesHeavyFailedSave(t *testing.T) {
	dragon := &types.Entity{ID: "dragon", HP: types.HitPoints{Current: 100, Max: 200}, LegendaryResistances: 3}
	ctx := newCtx()

	standardEngine().Evaluate(SaveFailed, ctx, &Subject{Target: dragon, Amount: 25})
	if ctx.Metadata[KeySaveOverride+"dragon"] != true {
		t.Fatal("25% of current HP should trigger legendary resistance")
	}
	if dragon.LegendaryResistances != 2 {
		t.Errorf("expected one use consumed, got %d left", dragon.LegendaryResistances)
	}
}

func TestLegendary_SkipsLightDamage(t *testing.T) {
	dragon := &types.Entity{ID: "dragon", HP: types.HitPoints{Current: 100, Max: 200}, LegendaryResistances: 3}
	ctx := newCtx()

	standardEngine().Evaluate(SaveFailed, ctx, &Subject{Target: dragon, Amount: 24})
	if dragon.LegendaryResistances != 3 {
		t.Error("damage under the threshold should not spend a use")
	}
}

func TestMagicResistance_GrantsAdvantage(t *testing.T) {
	golem := &types.Entity{ID: "golem", MagicResistance: true}
	ctx := newCtx()
	standardEngine().Evaluate(SavingThrow, ctx, &Subject{Target: golem, Ability: types.Dexterity})
	if ctx.Metadata[KeyAdvantage+"golem"] != true {
		t.Error("magic resistance should grant advantage")
	}
}

func TestCoverLevel(t *testing.T) {
	tests := []struct {
		n     int
		name  string
		bonus int
		full  bool
	}{
		{0, "none", 0, false},
		{1, "half", 2, false},
		{2, "three-quarters", 5, false},
		{3, "full", 0, true},
	}
	for _, tt := range tests {
		name, bonus, full := CoverLevel(tt.n)
		if name != tt.name || bonus != tt.bonus || full != tt.full {
			t.Errorf("CoverLevel(%d) = %s/%d/%v", tt.n, name, bonus, full)
		}
	}
}

func TestCover_RecordsPerTarget(t *testing.T) {
	ctx := newCtx()
	behindOne := &types.Entity{ID: "orc", Position: mgl64.Vec3{10, 0, 0}}
	behindThree := &types.Entity{ID: "troll", Position: mgl64.Vec3{0, 10, 0}}
	ctx.Targets = []*types.Entity{behindOne, behindThree}
	ctx.Env.Obstacles = []types.Obstacle{
		{ID: "crate", Min: mgl64.Vec3{4, -1, -1}, Max: mgl64.Vec3{5, 1, 1}},
		{ID: "w1", Min: mgl64.Vec3{-1, 2, -1}, Max: mgl64.Vec3{1, 3, 1}},
		{ID: "w2", Min: mgl64.Vec3{-1, 4, -1}, Max: mgl64.Vec3{1, 5, 1}},
		{ID: "w3", Min: mgl64.Vec3{-1, 6, -1}, Max: mgl64.Vec3{1, 7, 1}},
	}

	out := standardEngine().Evaluate(PreCast, ctx, nil)
	if out.Prevented {
		t.Fatal("cover must not prevent the cast")
	}
	if ctx.Metadata[KeyCoverBonus+"orc"] != 2 {
		t.Errorf("orc should have half cover, got %v", ctx.Metadata[KeyCoverBonus+"orc"])
	}
	if ctx.Metadata[KeyCoverFull+"troll"] != true {
		t.Error("troll should have full cover")
	}
}

func TestWildMagic_SurgeOnNaturalOne(t *testing.T) {
	ctx := newCtx()
	ctx.Caster.WildMagic = true
	ctx.Dice = dice.Sequence(1, 45)

	out := standardEngine().Evaluate(PostCast, ctx, nil)
	res, ok := out.Fired(IDWildMagic)
	if !ok || res.Type != Trigger {
		t.Fatalf("expected surge trigger, got %+v", res)
	}
	if res.Data["surge"] != "caster regains 2d10 hit points" {
		t.Errorf("unexpected surge %v", res.Data["surge"])
	}
	if out.Prevented {
		t.Error("surge must not prevent the cast")
	}
}

func TestWildMagic_NoSurge(t *testing.T) {
	ctx := newCtx()
	ctx.Caster.WildMagic = true
	ctx.Dice = dice.Sequence(2)

	out := standardEngine().Evaluate(PostCast, ctx, nil)
	if res, _ := out.Fired(IDWildMagic); res.Type != Log {
		t.Errorf("expected log result, got %s", res.Type)
	}
}
