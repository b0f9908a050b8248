// Package aggregation runs aggregation pipelines over collections of
// documents.
package aggregation

import (
	"fmt"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/lazy"
	"github.com/agebrock/agebrock-mimo/pkg/operators"
	"github.com/agebrock/agebrock-mimo/pkg/operators/stage"
)

// Stage is one validated step of a pipeline
type Stage struct {
	Name string
	Spec interface{}
	fn   core.PipelineFunc
}

// Aggregator holds a compiled pipeline. It can be run any number of
// times.
type Aggregator struct {
	stages []Stage
	opts   *core.Options
}

// New validates pipeline against the operators visible through opts.
// Every stage must hold exactly one registered pipeline operator. With
// the global registry enabled the built-in operators are installed on
// first use.
func New(pipeline []map[string]interface{}, opts *core.Options) (*Aggregator, error) {
	if opts == nil {
		opts = core.DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.UseGlobalRegistry {
		if _, err := operators.Default(); err != nil {
			return nil, err
		}
	}

	ctx := core.NewContext(opts)
	a := &Aggregator{stages: make([]Stage, 0, len(pipeline)), opts: opts}
	for i, def := range pipeline {
		if len(def) != 1 {
			return nil, fmt.Errorf("%w: stage %d must hold exactly one operator, got %d", core.ErrInvalidExpression, i, len(def))
		}
		for name, spec := range def {
			fn, ok := ctx.PipelineOperator(name)
			if !ok {
				return nil, fmt.Errorf("%w: pipeline operator %s", core.ErrUnknownOperator, name)
			}
			a.stages = append(a.stages, Stage{Name: name, Spec: spec, fn: fn})
		}
	}
	ctx.Logger().Debug("pipeline compiled", "stages", a.Names())
	return a, nil
}

// Names returns the operator of every stage, in order
func (a *Aggregator) Names() []string {
	names := make([]string, len(a.stages))
	for i, s := range a.stages {
		names[i] = s.Name
	}
	return names
}

// Stream returns the lazy result of running the pipeline over collection
func (a *Aggregator) Stream(collection []interface{}) (*lazy.Iterator, error) {
	return a.StreamIter(lazy.FromSlice(collection))
}

// StreamIter runs the pipeline over an existing sequence
func (a *Aggregator) StreamIter(source *lazy.Iterator) (*lazy.Iterator, error) {
	ctx := core.NewContext(a.opts)
	mode := a.opts.ProcessingMode

	it := source
	if mode.Has(core.CloneInput) {
		it = it.Map(document.CloneDeep)
	}

	shared := false
	for _, s := range a.stages {
		next, err := s.fn(it, s.Spec, ctx)
		if err != nil {
			return nil, fmt.Errorf("stage %s failed: %w", s.Name, err)
		}
		it = next
		shared = shared || stage.SharesInput[s.Name]
	}

	if mode.Has(core.CloneOutput) || (mode.Has(core.CloneInput) && shared) {
		it = it.Map(document.CloneDeep)
	}
	return it, nil
}

// Run executes the pipeline and returns all results
func (a *Aggregator) Run(collection []interface{}) ([]interface{}, error) {
	it, err := a.Stream(collection)
	if err != nil {
		return nil, err
	}
	return it.Value()
}

// Aggregate is a shorthand for New followed by Run
func Aggregate(collection []interface{}, pipeline []map[string]interface{}, opts *core.Options) ([]interface{}, error) {
	a, err := New(pipeline, opts)
	if err != nil {
		return nil, err
	}
	return a.Run(collection)
}
