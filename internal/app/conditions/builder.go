package conditions

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"enact/pkg/logger"
)

type State int

const (
	Selecting State = iota
	AskContinue
	AskOperator
	Done
)

func (s State) String() string {
	switch s {
	case Selecting:
		return "Selecting"
	case AskContinue:
		return "AskContinue"
	case AskOperator:
		return "AskOperator"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Source answers the builder's questions. Implementations may prompt an
// operator, replay a script or drive a test.
type Source interface {
	SelectPredicate(ctx context.Context, remaining []string) (string, error)
	Continue(ctx context.Context) (bool, error)
	ChooseCombinator(ctx context.Context) (Combinator, error)
}

type BuilderOption func(*Builder)

func WithLogger(l *logger.Logger) BuilderOption {
	return func(b *Builder) {
		b.log = l
	}
}

// Builder composes an expression by walking Selecting -> AskContinue ->
// AskOperator -> Selecting until Done. Templates are drawn without replacement.
type Builder struct {
	catalog *Catalog
	source  Source
	pool    []string
	state   State
	draft   Draft
	log     *logger.Logger
}

func NewBuilder(catalog *Catalog, source Source, opts ...BuilderOption) *Builder {
	b := &Builder{
		catalog: catalog,
		source:  source,
		pool:    catalog.Names(),
		state:   Selecting,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) State() State { return b.state }

func (b *Builder) Remaining() []string { return slices.Clone(b.pool) }

// Step performs a single transition. Unknown predicates and invalid
// combinators leave the state unchanged so the source is asked again.
func (b *Builder) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch b.state {
	case Selecting:
		name, err := b.source.SelectPredicate(ctx, b.Remaining())
		if err != nil {
			return err
		}
		idx := slices.Index(b.pool, name)
		if idx < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownPredicate, name)
		}
		predicate, err := b.catalog.Lookup(name)
		if err != nil {
			return err
		}
		if err := b.draft.AddPredicate(predicate); err != nil {
			return err
		}
		b.pool = slices.Delete(b.pool, idx, idx+1)
		b.log.Debugf("Selected predicate %q, %d remaining", name, len(b.pool))

		if len(b.pool) == 0 {
			b.state = Done
		} else {
			b.state = AskContinue
		}
	case AskContinue:
		more, err := b.source.Continue(ctx)
		if err != nil {
			return err
		}
		if more {
			b.state = AskOperator
		} else {
			b.state = Done
		}
	case AskOperator:
		combinator, err := b.source.ChooseCombinator(ctx)
		if err != nil {
			return err
		}
		if err := b.draft.AddCombinator(combinator); err != nil {
			return err
		}
		b.state = Selecting
	case Done:
	}
	return nil
}

// Run drives the machine to Done and returns the frozen expression.
func (b *Builder) Run(ctx context.Context) (Expression, error) {
	for b.state != Done {
		err := b.Step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrUnknownPredicate), errors.Is(err, ErrInvalidCombinator):
			b.log.Warnf("Rejected answer in state %s: %v", b.state, err)
		default:
			return Expression{}, err
		}
	}
	return b.draft.Freeze()
}

// Compose is a convenience wrapper running a fresh builder.
func Compose(ctx context.Context, catalog *Catalog, source Source, opts ...BuilderOption) (Expression, error) {
	return NewBuilder(catalog, source, opts...).Run(ctx)
}
