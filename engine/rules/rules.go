// Package rules implements the interaction rule engine: priority-ordered
// condition/action rules evaluated per lifecycle event, with modifications
// chained through the cast's metadata.
package rules

import (
	"sort"

	"go.uber.org/zap"

	"github.com/nathoo/spellcore/types"
)

// Event is a lifecycle point at which rules are evaluated.
type Event string

const (
	PreCast     Event = "pre_cast"
	PostCast    Event = "post_cast"
	Damage      Event = "damage"
	Healing     Event = "healing"
	Condition   Event = "condition"
	Movement    Event = "movement"
	SavingThrow Event = "saving_throw" // before the d20 is rolled
	SaveFailed  Event = "save_failed"  // after a failed save, before its policy applies
)

// ResultType classifies what a rule's action did.
type ResultType string

const (
	Modify  ResultType = "modify"
	Prevent ResultType = "prevent"
	Trigger ResultType = "trigger"
	Log     ResultType = "log"
)

// Result is returned by a rule action. Continue false stops evaluation and
// prevents the parent operation.
type Result struct {
	Type     ResultType
	Data     map[string]any
	Continue bool
	Reason   string
}

// Subject carries the per-target facts of damage, healing and save events.
// It is nil for cast-level events.
type Subject struct {
	Target  *types.Entity
	Amount  int
	Ability types.Ability
	DC      int
}

// Rule is a single interaction rule.
type Rule struct {
	ID          string
	Event       Event
	Priority    int // higher evaluates first
	SourceOrder int // assigned on registration
	Condition   func(ctx *types.ExecutionContext, s *Subject) bool
	Action      func(ctx *types.ExecutionContext, s *Subject) Result
}

// Applied pairs a fired rule with its result.
type Applied struct {
	RuleID string
	Result Result
}

// Outcome summarises one evaluation.
type Outcome struct {
	Prevented     bool
	Reasons       []string
	Applied       []Applied
	Modifications map[string]any
	Triggers      []Applied
}

// Fired reports whether the rule with id fired during the evaluation.
func (o Outcome) Fired(id string) (Result, bool) {
	for _, a := range o.Applied {
		if a.RuleID == id {
			return a.Result, true
		}
	}
	return Result{}, false
}

// Engine holds registered rules in evaluation order.
type Engine struct {
	rules  []Rule
	order  int
	logger *zap.Logger
}

// NewEngine creates an engine with the given rules registered in order.
func NewEngine(logger *zap.Logger, rules ...Rule) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{logger: logger}
	for _, r := range rules {
		e.Register(r)
	}
	return e
}

// Register adds a rule. Ties in priority keep registration order.
func (e *Engine) Register(r Rule) {
	e.order++
	r.SourceOrder = e.order
	e.rules = append(e.rules, r)
	sort.SliceStable(e.rules, func(i, j int) bool {
		if e.rules[i].Priority != e.rules[j].Priority {
			return e.rules[i].Priority > e.rules[j].Priority
		}
		return e.rules[i].SourceOrder < e.rules[j].SourceOrder
	})
}

// Remove deregisters a rule by id. It reports whether a rule was removed.
func (e *Engine) Remove(id string) bool {
	for i, r := range e.rules {
		if r.ID == id {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			return true
		}
	}
	return false
}

// Rules returns the rules for event in evaluation order.
func (e *Engine) Rules(event Event) []Rule {
	var out []Rule
	for _, r := range e.rules {
		if r.Event == event {
			out = append(out, r)
		}
	}
	return out
}

// Evaluate runs every rule for event in order. Matching rules fire; modify
// data is merged into ctx.Metadata before the next rule is considered, and a
// result with Continue false stops evaluation and marks the outcome
// prevented.
func (e *Engine) Evaluate(event Event, ctx *types.ExecutionContext, s *Subject) Outcome {
	out := Outcome{Modifications: map[string]any{}}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}

	for _, r := range e.rules {
		if r.Event != event {
			continue
		}
		if r.Condition != nil && !r.Condition(ctx, s) {
			continue
		}
		res := r.Action(ctx, s)
		applied := Applied{RuleID: r.ID, Result: res}
		out.Applied = append(out.Applied, applied)

		switch res.Type {
		case Modify:
			for k, v := range res.Data {
				ctx.Metadata[k] = v
				out.Modifications[k] = v
			}
		case Trigger:
			out.Triggers = append(out.Triggers, applied)
		}

		e.logger.Debug("rule fired",
			zap.String("rule", r.ID),
			zap.String("event", string(event)),
			zap.String("type", string(res.Type)),
			zap.Bool("continue", res.Continue),
		)

		if !res.Continue {
			out.Prevented = true
			reason := res.Reason
			if reason == "" {
				reason = r.ID
			}
			out.Reasons = append(out.Reasons, reason)
			break
		}
	}
	return out
}
