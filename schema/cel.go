package schema

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	celOnce sync.Once
	celEnv  *cel.Env
	celErr  error
)

// expressionEnv exposes the field under validation as "value".
func expressionEnv() (*cel.Env, error) {
	celOnce.Do(func() {
		celEnv, celErr = cel.NewEnv(
			cel.Variable("value", cel.DynType),
			cel.CrossTypeNumericComparisons(true),
		)
	})
	return celEnv, celErr
}

// CompileCheck compiles a CEL expression into a validator predicate. The
// expression sees the field as "value" and must yield a bool; evaluation
// errors count as a failed check.
//
//	check, err := schema.CompileCheck(`size(value) >= 3 && value.startsWith("a")`)
func CompileCheck(expr string) (func(any) bool, error) {
	env, err := expressionEnv()
	if err != nil {
		return nil, fmt.Errorf("schema: cel environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, iss.Err())
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression %q yields %s, want bool", expr, out)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}

	return func(v any) bool {
		res, _, err := prg.Eval(map[string]any{"value": v})
		if err != nil {
			return false
		}
		ok, isBool := res.Value().(bool)
		return isBool && ok
	}, nil
}
