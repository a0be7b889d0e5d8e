package filter

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/s0up4200/pagerduty/pagerduty"
)

// DocumentVariable exposes the whole document, for keys that are not valid identifiers
const DocumentVariable = "doc"

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache[CompiledFilter](size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lruCache[CompiledFilter]
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(c.helperFuncs),
		expr.AllowUndefinedVariables(), // document fields are only known at runtime
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		helpers:    c.helperFuncs,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate runs the filter against a document. Top-level keys are exposed as
// variables, timestamps as time.Time and numbers as int64, float64 or
// json.Number for integers too large for int64.
func (f *exprFilter) Evaluate(object pagerduty.Object) (bool, error) {
	env := createRuntimeEnvironment(object, f.helpers)

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			ID:         documentID(object),
			Reason:     "failed to run expression",
			Err:        err,
		}
	}

	matched, ok := result.(bool)
	if !ok {
		return false, &EvaluationError{
			Expression: f.expression,
			ID:         documentID(object),
			Reason:     fmt.Sprintf("expected bool result, got %T", result),
		}
	}
	return matched, nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// Apply keeps the objects of collection that match filter, preserving order.
// Elements that are not objects never match.
func Apply(filter Filter, collection pagerduty.Array) (pagerduty.Array, error) {
	matches := make(pagerduty.Array, 0, len(collection))
	for _, element := range collection {
		object, ok := element.(pagerduty.Object)
		if !ok {
			continue
		}
		matched, err := filter.Evaluate(object)
		if err != nil {
			return nil, err
		}
		if matched {
			matches = append(matches, object)
		}
	}
	return matches, nil
}

// createRuntimeEnvironment creates the runtime environment for filter evaluation
func createRuntimeEnvironment(object pagerduty.Object, helpers map[string]any) map[string]any {
	env := make(map[string]any, len(object)+len(helpers)+1)

	for key, value := range object {
		env[key] = pagerduty.Interface(value)
	}
	env[DocumentVariable] = pagerduty.Interface(object)

	// helpers shadow document keys so compiled calls keep their types
	maps.Copy(env, helpers)

	return env
}

func documentID(object pagerduty.Object) string {
	id, _ := object.GetString("id")
	return id
}

// createHelperFunctions creates the helper functions available to every
// expression. String and time builtins such as lower, hasPrefix and now come
// from expr itself.
func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 8)

	// Missing fields read as "".
	funcs["includes"] = func(value any, substr string) bool {
		return strings.Contains(strings.ToLower(asString(value)), strings.ToLower(substr))
	}

	// Date helpers. Values that are not timestamps never match.
	funcs["olderThan"] = func(value any, days int) bool {
		t, ok := value.(time.Time)
		return ok && t.Before(time.Now().AddDate(0, 0, -days))
	}
	funcs["newerThan"] = func(value any, days int) bool {
		t, ok := value.(time.Time)
		return ok && t.After(time.Now().AddDate(0, 0, -days))
	}
	funcs["daysSince"] = func(value any) int {
		t, ok := value.(time.Time)
		if !ok {
			return -1
		}
		return int(time.Since(t).Hours() / 24)
	}
	funcs["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}

	return funcs
}

func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
