// Package rules evaluates case list rows against a ruleset and decides how
// each row is highlighted.
package rules

import (
	"time"

	"github.com/Veraticus/caselight/internal/model"
)

// Rule is one entry of the priority chain: a predicate and the color it assigns.
type Rule struct {
	match   func(row model.Row) (model.Color, bool)
	Kind    model.RuleKind
	Enabled bool
}

// Matches evaluates the rule's predicate against row. Disabled rules never match.
func (r Rule) Matches(row model.Row) (model.Color, bool) {
	if !r.Enabled || r.match == nil {
		return model.NoColor, false
	}
	return r.match(row)
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithStaleAfter overrides the age threshold used by the staleness predicates.
func WithStaleAfter(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.staleAfter = d
		}
	}
}

// Evaluator holds a compiled priority chain for one ruleset snapshot and
// one reference time. It is safe for concurrent use.
type Evaluator struct {
	now        time.Time
	chain      []Rule
	platinum   Rule
	staleAfter time.Duration
}

// NewEvaluator compiles rs into a priority chain evaluated at now.
func NewEvaluator(rs model.Ruleset, now time.Time, opts ...Option) *Evaluator {
	e := &Evaluator{
		now:        now,
		staleAfter: DefaultStaleAfter,
	}
	for _, opt := range opts {
		opt(e)
	}

	rs = rs.Clone()
	fixed := func(color model.Color, pred func(model.Row) bool) func(model.Row) (model.Color, bool) {
		return func(row model.Row) (model.Color, bool) {
			if pred(row) {
				return color, true
			}
			return model.NoColor, false
		}
	}

	e.platinum = Rule{
		Kind:    model.RulePlatinum,
		Enabled: rs.Platinum.Enabled,
		match:   fixed(rs.Platinum.Color, Platinum),
	}

	e.chain = []Rule{
		{
			Kind:    model.RuleActionNeeded,
			Enabled: rs.ActionNeeded.Enabled,
			match: fixed(rs.ActionNeeded.Color, func(row model.Row) bool {
				return ActionNeeded(row, e.now, e.staleAfter)
			}),
		},
		e.platinum,
		{
			Kind:    model.RuleAccount,
			Enabled: len(rs.Accounts) > 0,
			match: func(row model.Row) (model.Color, bool) {
				return MatchAccount(row, rs.Accounts)
			},
		},
		{
			Kind:    model.RuleFirstResponse,
			Enabled: rs.FirstResponse.Enabled,
			match:   fixed(rs.FirstResponse.Color, FirstResponseEmpty),
		},
		{
			Kind:    model.RuleJiraClosed,
			Enabled: rs.JiraClosed.Enabled,
			match:   fixed(rs.JiraClosed.Color, JiraClosed),
		},
		{
			Kind:    model.RuleLastModified,
			Enabled: rs.LastModified.Enabled,
			match: fixed(rs.LastModified.Color, func(row model.Row) bool {
				return Stale(row, e.now, e.staleAfter)
			}),
		},
	}

	return e
}

// Chain returns the rules in descending priority.
func (e *Evaluator) Chain() []Rule {
	out := make([]Rule, len(e.chain))
	copy(out, e.chain)
	return out
}

// Now returns the reference time the evaluator compares ages against.
func (e *Evaluator) Now() time.Time {
	return e.now
}

// Evaluate decides the highlighting of one row.
//
// A row with a note is never colored. Otherwise the first enabled rule
// that matches assigns its color and later rules are not consulted.
// IsPlatinum is set whenever the platinum rule is enabled and the tier
// matches, whichever rule chose the color.
func (e *Evaluator) Evaluate(row model.Row, hasNote bool) model.Decision {
	if hasNote {
		return model.Decision{HasNote: true}
	}

	var d model.Decision
	_, d.IsPlatinum = e.platinum.Matches(row)

	for _, rule := range e.chain {
		if color, ok := rule.Matches(row); ok {
			d.Color = color
			d.Rule = rule.Kind
			break
		}
	}
	return d
}

// Evaluate decides the highlighting of one row against rs at now.
func Evaluate(row model.Row, rs model.Ruleset, hasNote bool, now time.Time, opts ...Option) model.Decision {
	return NewEvaluator(rs, now, opts...).Evaluate(row, hasNote)
}
