// Package events implements the per-tick observer list. Dispatch is a
// single synchronous pass: observers see events in emission order and have
// no way to emit new ones, so there is no recursion and no hidden bus.
package events

// Type names a simulation notification.
type Type string

const (
	CastResolved      Type = "cast_resolved"
	CastPrevented     Type = "cast_prevented"
	EffectRegistered  Type = "effect_registered"
	ProjectileHit     Type = "projectile_hit"
	EffectExpired     Type = "effect_expired"
	EffectSkipped     Type = "effect_skipped"
	EffectCancelled   Type = "effect_cancelled"
	ConcentrationLost Type = "concentration_lost"
	WildSurge         Type = "wild_surge"
)

// Event is one notification. Time is simulated world time.
type Event struct {
	Type Type
	Time float64
	Data map[string]any
}

// Handler observes events of one type. An empty Type observes every event.
type Handler struct {
	Type Type
	Fn   func(Event)
}

// List is an ordered set of handlers.
type List struct {
	handlers []Handler
}

// On appends a handler for events of type t.
func (l *List) On(t Type, fn func(Event)) {
	l.handlers = append(l.handlers, Handler{Type: t, Fn: fn})
}

// Len returns the number of registered handlers.
func (l *List) Len() int { return len(l.handlers) }

// Dispatch delivers events in order. For each event, matching handlers run
// in registration order.
func (l *List) Dispatch(events []Event) {
	if l == nil {
		return
	}
	for _, ev := range events {
		for _, h := range l.handlers {
			if h.Type != "" && h.Type != ev.Type {
				continue
			}
			h.Fn(ev)
		}
	}
}
