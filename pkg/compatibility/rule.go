package compatibility

import (
	"context"
)

// Rule is a single compatibility check. Evaluate must only read the context
// and write to the result it returns.
type Rule interface {
	Name() string
	Category() RuleCategory
	Description() string
	Evaluate(ctx context.Context, cc *Context) (*RuleResult, error)
}

// BaseRule provides common functionality for rules
type BaseRule struct {
	RuleName        string
	RuleCategory    RuleCategory
	RuleDescription string
}

func (r *BaseRule) Name() string           { return r.RuleName }
func (r *BaseRule) Category() RuleCategory { return r.RuleCategory }
func (r *BaseRule) Description() string    { return r.RuleDescription }

// EvaluateFunc is the signature of a function-backed rule body
type EvaluateFunc func(ctx context.Context, cc *Context, result *RuleResult) error

// funcRule adapts a function into a Rule
type funcRule struct {
	BaseRule
	fn EvaluateFunc
}

// NewRuleFunc creates a rule from a function
func NewRuleFunc(name string, category RuleCategory, description string, fn EvaluateFunc) Rule {
	return &funcRule{
		BaseRule: BaseRule{
			RuleName:        name,
			RuleCategory:    category,
			RuleDescription: description,
		},
		fn: fn,
	}
}

func (r *funcRule) Evaluate(ctx context.Context, cc *Context) (*RuleResult, error) {
	result := NewRuleResult(r)
	if err := r.fn(ctx, cc, result); err != nil {
		return nil, err
	}
	return result, nil
}
