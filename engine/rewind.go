package engine

import (
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/nathoo/spellcore/engine/snapshot"
)

// Snapshot captures the session's entities, world and dice position.
func (e *Engine) Snapshot() *snapshot.Snapshot {
	return snapshot.Take(e.Env, e.Bridge, e.RNG)
}

// Rewind puts the session back to s. Running physics effects are cancelled
// first so their per-target changes unwind before entity state is written.
// World time is not rewound. An engine with injected dice keeps them.
func (e *Engine) Rewind(s *snapshot.Snapshot) {
	var cancelled []string
	for _, a := range e.Bridge.Active() {
		if e.Bridge.Cancel(a.ID) {
			cancelled = append(cancelled, a.ID)
		}
	}
	snapshot.Restore(e.Env, s)
	for _, b := range e.World.Bodies() {
		if _, ok := e.Env.Entities[b.ID]; ok {
			b.Velocity = mgl64.Vec3{}
		}
	}
	if e.RNG != nil {
		e.RNG = s.RNG()
		e.Dice = e.RNG.Func()
	}
	e.logger.Debug("session rewound",
		zap.Float64("snapshot_time", s.Time),
		zap.Strings("cancelled", cancelled),
	)
}
