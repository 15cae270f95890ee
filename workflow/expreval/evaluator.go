// Package expreval evaluates router/condition/evaluator expressions against
// a block's resolved inputs, caching compiled programs across calls.
package expreval

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Evaluator compiles and runs expr-lang expressions, caching each distinct
// expression string's compiled program (spec.md §4.2/§4.9, grounded on the
// pack's expression-evaluator pattern).
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// New builds an empty Evaluator.
func New() *Evaluator {
	return &Evaluator{cache: make(map[string]*vm.Program)}
}

// EvaluateBool runs expression against data and requires a boolean result,
// used by condition clauses and router route guards. An empty expression
// defaults to true (an unconditional route/clause).
func (e *Evaluator) EvaluateBool(expression string, data map[string]any) (bool, error) {
	if expression == "" {
		return true, nil
	}
	program, err := e.compile(expression, true)
	if err != nil {
		return false, fmt.Errorf("expreval: compiling %q: %w", expression, err)
	}
	result, err := expr.Run(program, data)
	if err != nil {
		return false, fmt.Errorf("expreval: evaluating %q: %w", expression, err)
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expreval: expression %q must return a boolean, got %T", expression, result)
	}
	return b, nil
}

// EvaluateValue runs expression against data and returns its raw result,
// used by the evaluator block to compute a score or structured assertion.
func (e *Evaluator) EvaluateValue(expression string, data map[string]any) (any, error) {
	program, err := e.compile(expression, false)
	if err != nil {
		return nil, fmt.Errorf("expreval: compiling %q: %w", expression, err)
	}
	result, err := expr.Run(program, data)
	if err != nil {
		return nil, fmt.Errorf("expreval: evaluating %q: %w", expression, err)
	}
	return result, nil
}

func (e *Evaluator) compile(expression string, asBool bool) (*vm.Program, error) {
	key := expression
	if asBool {
		key = "bool:" + expression
	}

	e.mu.RLock()
	if prog, ok := e.cache[key]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	opts := []expr.Option{expr.AllowUndefinedVariables()}
	if asBool {
		opts = append(opts, expr.AsBool())
	}
	prog, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[key] = prog
	e.mu.Unlock()
	return prog, nil
}
