package core

import (
	"log/slog"
	"time"
)

// Context carries the options of a run together with the evaluation
// state of the current call: the root document, local variables, the
// current group id and a timestamp fixed for the whole run.
//
// A Context is never modified after creation. The With methods return
// derived copies.
type Context struct {
	opts    *Options
	root    interface{}
	hasRoot bool
	vars    map[string]interface{}
	groupID interface{}
	now     time.Time
}

// NewContext creates a context for a top-level call. Nil options use
// DefaultOptions.
func NewContext(opts *Options) *Context {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Context{opts: opts, now: time.Now().UTC()}
}

// Options returns the run options
func (c *Context) Options() *Options {
	return c.opts
}

// Logger returns the run logger
func (c *Context) Logger() *slog.Logger {
	return c.opts.logger()
}

// Root returns the root document of the current evaluation
func (c *Context) Root() interface{} {
	return c.root
}

// HasRoot reports whether a root document has been set
func (c *Context) HasRoot() bool {
	return c.hasRoot
}

// Variables returns the local variables in scope
func (c *Context) Variables() map[string]interface{} {
	return c.vars
}

// GroupID returns the id of the group being accumulated, if any
func (c *Context) GroupID() interface{} {
	return c.groupID
}

// Timestamp returns the time fixed for this run, used by $$NOW
func (c *Context) Timestamp() time.Time {
	return c.now
}

// WithRoot returns a copy of c evaluating against root
func (c *Context) WithRoot(root interface{}) *Context {
	n := *c
	n.root = root
	n.hasRoot = true
	return &n
}

// WithCurrent sets obj as the root unless a root is already set
func (c *Context) WithCurrent(obj interface{}) *Context {
	if c.hasRoot {
		return c
	}
	return c.WithRoot(obj)
}

// WithoutRoot returns a copy of c with no root, so the next evaluation
// binds its own document as root
func (c *Context) WithoutRoot() *Context {
	n := *c
	n.root = nil
	n.hasRoot = false
	return &n
}

// WithLocal returns a copy of c with vars merged over the current local
// variables
func (c *Context) WithLocal(vars map[string]interface{}) *Context {
	n := *c
	merged := make(map[string]interface{}, len(c.vars)+len(vars))
	for k, v := range c.vars {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}
	n.vars = merged
	return &n
}

// WithGroupID returns a copy of c for accumulating the group id
func (c *Context) WithGroupID(id interface{}) *Context {
	n := *c
	n.groupID = id
	return &n
}

// WithOptions returns a copy of c using opts
func (c *Context) WithOptions(opts *Options) *Context {
	n := *c
	n.opts = opts
	return &n
}

// Lookup finds an operator, first in the options registry and then, if
// enabled, in the global registry
func (c *Context) Lookup(class Class, name string) (interface{}, bool) {
	if fn, ok := c.opts.Registry.Lookup(class, name); ok {
		return fn, true
	}
	if c.opts.UseGlobalRegistry {
		return global.Lookup(class, name)
	}
	return nil, false
}

// QueryOperator looks up a query operator
func (c *Context) QueryOperator(name string) (QueryFunc, bool) {
	fn, ok := c.Lookup(ClassQuery, name)
	if !ok {
		return nil, false
	}
	return fn.(QueryFunc), true
}

// ExpressionOperator looks up an expression operator
func (c *Context) ExpressionOperator(name string) (ExpressionFunc, bool) {
	fn, ok := c.Lookup(ClassExpression, name)
	if !ok {
		return nil, false
	}
	return fn.(ExpressionFunc), true
}

// AccumulatorOperator looks up an accumulator
func (c *Context) AccumulatorOperator(name string) (AccumulatorFunc, bool) {
	fn, ok := c.Lookup(ClassAccumulator, name)
	if !ok {
		return nil, false
	}
	return fn.(AccumulatorFunc), true
}

// PipelineOperator looks up a pipeline stage
func (c *Context) PipelineOperator(name string) (PipelineFunc, bool) {
	fn, ok := c.Lookup(ClassPipeline, name)
	if !ok {
		return nil, false
	}
	return fn.(PipelineFunc), true
}

// ProjectionOperator looks up a projection operator
func (c *Context) ProjectionOperator(name string) (ProjectionFunc, bool) {
	fn, ok := c.Lookup(ClassProjection, name)
	if !ok {
		return nil, false
	}
	return fn.(ProjectionFunc), true
}

// UpdateOperator looks up an update operator
func (c *Context) UpdateOperator(name string) (UpdateFunc, bool) {
	fn, ok := c.Lookup(ClassUpdate, name)
	if !ok {
		return nil, false
	}
	return fn.(UpdateFunc), true
}
