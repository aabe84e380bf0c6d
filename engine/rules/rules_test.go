package rules

import (
	"testing"

	"github.com/nathoo/spellcore/types"
)

func newCtx() *types.ExecutionContext {
	return &types.ExecutionContext{
		Spell:  &types.Spell{ID: "fireball", Level: 3},
		Caster: &types.Entity{ID: "wizard"},
		Env:    &types.Environment{Entities: map[string]*types.Entity{}},
	}
}

func always(*types.ExecutionContext, *Subject) bool { return true }

func logRule(id string, event Event, priority int, seen *[]string) Rule {
	return Rule{
		ID: id, Event: event, Priority: priority, Condition: always,
		Action: func(*types.ExecutionContext, *Subject) Result {
			*seen = append(*seen, id)
			return Result{Type: Log, Continue: true}
		},
	}
}

func TestEvaluate_PriorityThenRegistrationOrder(t *testing.T) {
	var seen []string
	e := NewEngine(nil,
		logRule("low", PreCast, 1, &seen),
		logRule("high_first", PreCast, 10, &seen),
		logRule("high_second", PreCast, 10, &seen),
		logRule("other_event", PostCast, 99, &seen),
	)

	e.Evaluate(PreCast, newCtx(), nil)

	want := []string{"high_first", "high_second", "low"}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestEvaluate_ConditionFails_SkipsRule(t *testing.T) {
	var seen []string
	r := logRule("never", PreCast, 5, &seen)
	r.Condition = func(*types.ExecutionContext, *Subject) bool { return false }
	e := NewEngine(nil, r)

	out := e.Evaluate(PreCast, newCtx(), nil)
	if len(seen) != 0 || len(out.Applied) != 0 {
		t.Errorf("rule with false condition should not fire, seen %v", seen)
	}
}

func TestEvaluate_StopPrevents(t *testing.T) {
	var seen []string
	e := NewEngine(nil,
		Rule{
			ID: "block", Event: PreCast, Priority: 10, Condition: always,
			Action: func(*types.ExecutionContext, *Subject) Result {
				return Result{Type: Prevent, Reason: "blocked"}
			},
		},
		logRule("after", PreCast, 1, &seen),
	)

	out := e.Evaluate(PreCast, newCtx(), nil)
	if !out.Prevented {
		t.Fatal("expected prevented outcome")
	}
	if len(out.Reasons) != 1 || out.Reasons[0] != "blocked" {
		t.Errorf("unexpected reasons %v", out.Reasons)
	}
	if len(seen) != 0 {
		t.Error("evaluation should stop after a non-continuing result")
	}
}

func TestEvaluate_ModifyChainsIntoMetadata(t *testing.T) {
	e := NewEngine(nil,
		Rule{
			ID: "first", Event: Damage, Priority: 10, Condition: always,
			Action: func(*types.ExecutionContext, *Subject) Result {
				return Result{Type: Modify, Data: map[string]any{"bonus": 2}, Continue: true}
			},
		},
		Rule{
			ID: "second", Event: Damage, Priority: 5,
			Condition: func(ctx *types.ExecutionContext, _ *Subject) bool {
				return ctx.Metadata["bonus"] == 2
			},
			Action: func(*types.ExecutionContext, *Subject) Result {
				return Result{Type: Modify, Data: map[string]any{"seen_bonus": true}, Continue: true}
			},
		},
	)

	ctx := newCtx()
	out := e.Evaluate(Damage, ctx, nil)
	if _, ok := out.Fired("second"); !ok {
		t.Fatal("second rule should observe the first rule's modification")
	}
	if ctx.Metadata["seen_bonus"] != true {
		t.Error("modification should be merged into metadata")
	}
	if out.Modifications["bonus"] != 2 {
		t.Error("outcome should report merged modifications")
	}
}

func TestRemove(t *testing.T) {
	var seen []string
	e := NewEngine(nil, logRule("a", PreCast, 1, &seen))
	if !e.Remove("a") {
		t.Fatal("expected rule to be removed")
	}
	if e.Remove("a") {
		t.Error("second removal should report false")
	}
	if len(e.Rules(PreCast)) != 0 {
		t.Error("no rules should remain")
	}
}
