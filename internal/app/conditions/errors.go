package conditions

import "errors"

var (
	ErrUnknownPredicate   = errors.New("unknown predicate")
	ErrMalformedCondition = errors.New("malformed condition")
	ErrInvalidCombinator  = errors.New("invalid combinator")
	ErrOutOfOrder         = errors.New("predicates and combinators must alternate")
	ErrEmptyExpression    = errors.New("expression must contain at least one predicate")
	ErrScriptExhausted    = errors.New("scripted source has no more answers")
)
