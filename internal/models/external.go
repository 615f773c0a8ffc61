package models

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/aretw0/pergola/pkg/domain"
)

// external evaluates user-declared expressions, one per output variable.
// Programs are compiled once at build time; evaluation is a pure VM run per
// sample, so concurrent Evaluate calls only share immutable programs.
type external struct {
	name     string
	programs map[string]*vm.Program
}

func newExternal(spec *domain.ModelSpec) (*external, error) {
	e := &external{name: spec.Name, programs: make(map[string]*vm.Program, len(spec.Expressions))}
	for target, src := range spec.Expressions {
		program, err := expr.Compile(src, expr.AsFloat64(), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("model %q: compile expression for %q: %w", spec.Name, target, err)
		}
		e.programs[target] = program
	}
	return e, nil
}

func (e *external) Evaluate(ctx context.Context, inputs domain.Row) (domain.Row, error) {
	env := make(map[string]any, len(inputs))
	for k, v := range inputs {
		env[k] = v
	}
	out := domain.Row{}
	for target, program := range e.programs {
		v, err := expr.Run(program, env)
		if err != nil {
			return nil, fmt.Errorf("model %q: evaluate %q: %w", e.name, target, err)
		}
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("model %q: expression for %q produced %T, want float64", e.name, target, v)
		}
		out[target] = f
	}
	return out, nil
}
