package dice

import "testing"

func TestRNG_SameSeedSameRolls(t *testing.T) {
	a, b := NewRNG(42), NewRNG(42)
	for i := 0; i < 20; i++ {
		if x, y := a.Roll(20), b.Roll(20); x != y {
			t.Fatalf("roll %d: seed 42 gave %d and %d", i, x, y)
		}
	}
}

func TestRNG_RollStaysOnTheDie(t *testing.T) {
	rng := NewRNG(99)
	for _, sides := range []int{4, 6, 8, 10, 12, 20, 100} {
		for i := 0; i < 200; i++ {
			if r := rng.Roll(sides); r < 1 || r > sides {
				t.Fatalf("d%d rolled %d", sides, r)
			}
		}
	}
}

func TestRNG_DegenerateDieStillDraws(t *testing.T) {
	rng := NewRNG(1)
	for _, sides := range []int{1, 0, -3} {
		if r := rng.Roll(sides); r != 1 {
			t.Errorf("d%d should roll 1, got %d", sides, r)
		}
	}
	if rng.Position() != 3 {
		t.Errorf("each roll should consume a draw, position = %d", rng.Position())
	}
}

func TestRNG_PositionCountsDice(t *testing.T) {
	rng := NewRNG(42)
	if rng.Position() != 0 {
		t.Fatalf("fresh rng at position %d", rng.Position())
	}
	rng.RollN(6, 8) // 8d6
	rng.Roll(20)
	if rng.Position() != 9 {
		t.Errorf("8d6 and a d20 should be 9 draws, got %d", rng.Position())
	}
	if rng.Seed() != 42 {
		t.Errorf("seed = %d, want 42", rng.Seed())
	}
}

func TestRestoreRNG_ReplaysFromPosition(t *testing.T) {
	rng := NewRNG(42)
	rng.RollN(6, 10)
	want := rng.RollN(6, 5)

	restored := RestoreRNG(42, 10)
	if restored.Position() != 10 {
		t.Fatalf("restored at position %d, want 10", restored.Position())
	}
	got := restored.RollN(6, 5)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("die %d after restore: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRestoreRNG_MixedSides(t *testing.T) {
	rng := NewRNG(99)
	rng.Roll(20)
	rng.Roll(7)
	rng.Roll(100)
	want := rng.Roll(100)

	if got := RestoreRNG(99, 3).Roll(100); got != want {
		t.Errorf("d100 after restore = %d, want %d", got, want)
	}
}

func TestRNG_SeedsDiverge(t *testing.T) {
	a, b := NewRNG(1), NewRNG(2)
	for i := 0; i < 20; i++ {
		if a.Roll(100) != b.Roll(100) {
			return
		}
	}
	t.Error("seeds 1 and 2 rolled the same 20 d100s")
}

func TestRNG_FuncRollsCount(t *testing.T) {
	rng := NewRNG(7)
	rolls := rng.Func()(8, 4)
	if len(rolls) != 4 {
		t.Fatalf("4d8 gave %d dice", len(rolls))
	}
	for _, r := range rolls {
		if r < 1 || r > 8 {
			t.Fatalf("d8 rolled %d", r)
		}
	}
	if rng.Position() != 4 {
		t.Errorf("position = %d after 4d8", rng.Position())
	}
}

func TestSequence_CyclesValues(t *testing.T) {
	fn := Sequence(3, 5)
	got := fn(6, 3)
	want := []int{3, 5, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("roll %d: got %d, want %d", i, got[i], want[i])
		}
	}
	if next := D20(fn); next != 5 {
		t.Errorf("sequence should continue across calls, got %d", next)
	}
}

func TestMax_RollsHighestFace(t *testing.T) {
	for _, r := range Max()(6, 8) {
		if r != 6 {
			t.Fatalf("expected 6, got %d", r)
		}
	}
}
