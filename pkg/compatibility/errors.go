package compatibility

import "errors"

var (
	// ErrRuleFault wraps an error or panic raised by a single rule
	ErrRuleFault = errors.New("compatibility rule fault")

	// ErrDuplicateRule is returned when registering a rule name twice
	ErrDuplicateRule = errors.New("compatibility rule already registered")

	// ErrInvalidRule is returned for nil or unnamed rules
	ErrInvalidRule = errors.New("invalid compatibility rule")

	// ErrInvalidContext is returned when evaluating without a context
	ErrInvalidContext = errors.New("invalid compatibility context")
)
