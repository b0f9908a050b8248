package core

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"sync"

	"github.com/agebrock/agebrock-mimo/pkg/lazy"
)

// Class identifies the calling convention of an operator
type Class int

const (
	ClassQuery Class = iota
	ClassExpression
	ClassAccumulator
	ClassPipeline
	ClassProjection
	ClassUpdate

	numClasses
)

// String returns the string representation of the class
func (c Class) String() string {
	switch c {
	case ClassQuery:
		return "query"
	case ClassExpression:
		return "expression"
	case ClassAccumulator:
		return "accumulator"
	case ClassPipeline:
		return "pipeline"
	case ClassProjection:
		return "projection"
	case ClassUpdate:
		return "update"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Predicate reports whether a document matches a compiled condition
type Predicate func(obj interface{}) (bool, error)

// QueryFunc compiles the condition value for selector into a predicate.
// Whole-document operators such as $and receive their own name as the
// selector.
type QueryFunc func(selector string, value interface{}, ctx *Context) (Predicate, error)

// ExpressionFunc computes expr against obj
type ExpressionFunc func(obj interface{}, expr interface{}, ctx *Context) (interface{}, error)

// AccumulatorFunc reduces a collection to a single value
type AccumulatorFunc func(coll []interface{}, expr interface{}, ctx *Context) (interface{}, error)

// PipelineFunc transforms a sequence of documents into a new sequence
type PipelineFunc func(it *lazy.Iterator, expr interface{}, ctx *Context) (*lazy.Iterator, error)

// ProjectionFunc computes the projected value of selector in obj
type ProjectionFunc func(obj interface{}, expr interface{}, selector string, ctx *Context) (interface{}, error)

// UpdateFunc applies an update expression to obj in place and returns
// the paths it modified
type UpdateFunc func(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, ctx *Context) ([]string, error)

var operatorName = regexp.MustCompile(`^\$[a-zA-Z0-9_]+$`)

// IsOperator reports whether name has operator syntax. Such names are
// never treated as field names.
func IsOperator(name string) bool {
	return operatorName.MatchString(name)
}

// Registry maps operator names to implementations per class. Registries
// are append-only: a name can only be registered once per class, except
// that registering the very same implementation again is a no-op.
type Registry struct {
	mu  sync.RWMutex
	ops [numClasses]map[string]interface{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.ops {
		r.ops[i] = make(map[string]interface{})
	}
	return r
}

var global = NewRegistry()

// Global returns the shared process-wide registry
func Global() *Registry {
	return global
}

// Register adds an operator implementation. impl must be the function
// type of class, either named (e.g. QueryFunc) or as a plain func value
// with the same signature.
func (r *Registry) Register(class Class, name string, impl interface{}) error {
	if class < 0 || class >= numClasses {
		return fmt.Errorf("%w: %s", ErrInvalidOperatorFunc, class)
	}
	if !IsOperator(name) {
		return fmt.Errorf("%w: %q", ErrInvalidOperatorName, name)
	}
	fn, err := normalize(class, impl)
	if err != nil {
		return fmt.Errorf("%s operator %s: %w", class, name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.ops[class][name]; ok {
		if sameFunc(existing, fn) {
			return nil
		}
		return fmt.Errorf("%w: %s operator %s", ErrOperatorConflict, class, name)
	}
	r.ops[class][name] = fn
	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// package initialization.
func (r *Registry) MustRegister(class Class, name string, impl interface{}) {
	if err := r.Register(class, name, impl); err != nil {
		panic(err)
	}
}

// Lookup returns the implementation registered for name in class
func (r *Registry) Lookup(class Class, name string) (interface{}, bool) {
	if r == nil || class < 0 || class >= numClasses {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.ops[class][name]
	return fn, ok
}

// Names returns the sorted operator names registered for class
func (r *Registry) Names(class Class) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops[class]))
	for name := range r.ops[class] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(class Class, impl interface{}) (interface{}, error) {
	if impl == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidOperatorFunc)
	}
	if v := reflect.ValueOf(impl); v.Kind() == reflect.Func && v.IsNil() {
		return nil, fmt.Errorf("%w: nil", ErrInvalidOperatorFunc)
	}
	switch class {
	case ClassQuery:
		switch fn := impl.(type) {
		case QueryFunc:
			return fn, nil
		case func(string, interface{}, *Context) (Predicate, error):
			return QueryFunc(fn), nil
		}
	case ClassExpression:
		switch fn := impl.(type) {
		case ExpressionFunc:
			return fn, nil
		case func(interface{}, interface{}, *Context) (interface{}, error):
			return ExpressionFunc(fn), nil
		}
	case ClassAccumulator:
		switch fn := impl.(type) {
		case AccumulatorFunc:
			return fn, nil
		case func([]interface{}, interface{}, *Context) (interface{}, error):
			return AccumulatorFunc(fn), nil
		}
	case ClassPipeline:
		switch fn := impl.(type) {
		case PipelineFunc:
			return fn, nil
		case func(*lazy.Iterator, interface{}, *Context) (*lazy.Iterator, error):
			return PipelineFunc(fn), nil
		}
	case ClassProjection:
		switch fn := impl.(type) {
		case ProjectionFunc:
			return fn, nil
		case func(interface{}, interface{}, string, *Context) (interface{}, error):
			return ProjectionFunc(fn), nil
		}
	case ClassUpdate:
		switch fn := impl.(type) {
		case UpdateFunc:
			return fn, nil
		case func(map[string]interface{}, map[string]interface{}, []map[string]interface{}, *Context) ([]string, error):
			return UpdateFunc(fn), nil
		}
	}
	return nil, fmt.Errorf("%w: got %T", ErrInvalidOperatorFunc, impl)
}

// sameFunc compares implementations by code pointer. Closures created
// from the same function literal compare equal.
func sameFunc(a, b interface{}) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
