package events

import "testing"

func TestDispatch_MatchesType(t *testing.T) {
	var l List
	var hits, expired int
	l.On(ProjectileHit, func(Event) { hits++ })
	l.On(EffectExpired, func(Event) { expired++ })

	l.Dispatch([]Event{{Type: ProjectileHit}, {Type: ProjectileHit}, {Type: EffectSkipped}})
	if hits != 2 {
		t.Errorf("expected 2 hit notifications, got %d", hits)
	}
	if expired != 0 {
		t.Errorf("expired handler should not fire, got %d", expired)
	}
}

func TestDispatch_EmptyTypeSeesEverything(t *testing.T) {
	var l List
	var seen []Type
	l.On("", func(ev Event) { seen = append(seen, ev.Type) })

	l.Dispatch([]Event{{Type: CastResolved}, {Type: WildSurge}})
	if len(seen) != 2 || seen[0] != CastResolved || seen[1] != WildSurge {
		t.Errorf("got %v", seen)
	}
}

func TestDispatch_Order(t *testing.T) {
	var l List
	var order []string
	l.On(EffectExpired, func(ev Event) { order = append(order, "a:"+ev.Data["id"].(string)) })
	l.On(EffectExpired, func(ev Event) { order = append(order, "b:"+ev.Data["id"].(string)) })

	l.Dispatch([]Event{
		{Type: EffectExpired, Data: map[string]any{"id": "wall-1"}},
		{Type: EffectExpired, Data: map[string]any{"id": "web-2"}},
	})
	want := []string{"a:wall-1", "b:wall-1", "a:web-2", "b:web-2"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestDispatch_NilList(t *testing.T) {
	var l *List
	l.Dispatch([]Event{{Type: CastResolved}})
}
