// Package expr implements the condition expression language, used to decide
// edge traversal within a process graph.
//
// An expression is preprocessed, tokenized, parsed and evaluated against a
// [Context]. Evaluation is side-effect free and fails closed: [Evaluator.Evaluate]
// returns false and [Evaluator.EvaluateExpression] returns nil for any parse
// or evaluation failure, since expressions guard gateway decisions.
package expr

import (
	"fmt"
	"log"
	"regexp"
	"sync"
)

// A Function extends the evaluator's builtin function table.
type Function func(args ...any) (any, error)

func New() *Evaluator {
	e := Evaluator{
		functions: make(map[string]Function),
		cache:     make(map[string]*CompiledExpression),
	}

	registerBuiltins(&e)

	return &e
}

// An Evaluator compiles and evaluates condition expressions.
// Compiled expressions are memoized per source text for the evaluator's
// lifetime - see [Evaluator.ClearCache].
//
// An Evaluator is safe for concurrent use.
type Evaluator struct {
	mutex     sync.RWMutex
	functions map[string]Function
	cache     map[string]*CompiledExpression
}

// A CompiledExpression is the parsed form of one expression source text.
type CompiledExpression struct {
	Source    string // Original source text.
	Processed string // Preprocessed source text that was tokenized.

	root astNode
}

// Evaluate evaluates a boolean expression. It never fails: on any parse or
// evaluation error, the error is logged and false is returned.
func (e *Evaluator) Evaluate(expression string, ctx *Context) bool {
	value, err := e.evaluate(expression, ctx)
	if err != nil {
		log.Printf("expr: failed to evaluate %q: %v", expression, err)
		return false
	}
	return isTruthy(value)
}

// EvaluateExpression evaluates an expression to a value. It never fails: on
// any parse or evaluation error, the error is logged and nil is returned.
func (e *Evaluator) EvaluateExpression(expression string, ctx *Context) any {
	value, err := e.evaluate(expression, ctx)
	if err != nil {
		log.Printf("expr: failed to evaluate %q: %v", expression, err)
		return nil
	}
	return value
}

// Validate checks if an expression can be compiled - used for authoring-time
// checks.
func (e *Evaluator) Validate(expression string) error {
	_, err := e.compile(expression)
	return err
}

// AddFunction registers a function, making `name(...)` calls available.
// The expression cache is cleared, since preprocessing depends on the
// function table.
func (e *Evaluator) AddFunction(name string, fn Function) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.functions[name] = fn
	e.cache = make(map[string]*CompiledExpression)
}

// RemoveFunction unregisters a function and clears the expression cache.
func (e *Evaluator) RemoveFunction(name string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	delete(e.functions, name)
	e.cache = make(map[string]*CompiledExpression)
}

// ClearCache drops all memoized compiled expressions.
func (e *Evaluator) ClearCache() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.cache = make(map[string]*CompiledExpression)
}

func (e *Evaluator) evaluate(expression string, ctx *Context) (any, error) {
	compiled, err := e.compile(expression)
	if err != nil {
		return nil, err
	}

	if ctx == nil {
		ctx = &Context{}
	}

	e.mutex.RLock()
	s := scope{ctx: ctx, functions: e.functions}
	defer e.mutex.RUnlock()

	return compiled.root.eval(&s)
}

func (e *Evaluator) compile(expression string) (*CompiledExpression, error) {
	e.mutex.RLock()
	compiled, ok := e.cache[expression]
	e.mutex.RUnlock()

	if ok {
		return compiled, nil
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if compiled, ok := e.cache[expression]; ok {
		return compiled, nil
	}

	processed := e.preprocess(expression)

	tokens, err := tokenize(processed)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("expression is empty")
	}

	root, err := parse(tokens)
	if err != nil {
		return nil, err
	}

	compiled = &CompiledExpression{
		Source:    expression,
		Processed: processed,

		root: root,
	}

	e.cache[expression] = compiled
	return compiled, nil
}

var (
	whitespaceRegexp    = regexp.MustCompile(`\s+`)
	interpolationRegexp = regexp.MustCompile(`\$\{\s*([^}]*?)\s*\}`)
	bareCallRegexp      = regexp.MustCompile(`(^|[^.\w])([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
)

// preprocess collapses whitespace, rewrites `${path}` interpolation into
// `variables.path` references and qualifies bare calls of registered
// functions with `functions.`.
func (e *Evaluator) preprocess(expression string) string {
	processed := whitespaceRegexp.ReplaceAllString(expression, " ")

	processed = interpolationRegexp.ReplaceAllString(processed, "variables.$1")

	processed = bareCallRegexp.ReplaceAllStringFunc(processed, func(match string) string {
		groups := bareCallRegexp.FindStringSubmatch(match)
		if _, ok := e.functions[groups[2]]; !ok {
			return match
		}
		return groups[1] + "functions." + groups[2] + "("
	})

	return processed
}
