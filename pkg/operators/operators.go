// Package operators bundles the built-in operators of every class.
//
// Importing the engine packages alone registers nothing; call Default to
// install the built-ins into the global registry, or RegisterAll to fill
// a private registry.
package operators

import (
	"sync"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/operators/accumulator"
	"github.com/agebrock/agebrock-mimo/pkg/operators/expression"
	"github.com/agebrock/agebrock-mimo/pkg/operators/projection"
	"github.com/agebrock/agebrock-mimo/pkg/operators/queryop"
	"github.com/agebrock/agebrock-mimo/pkg/operators/stage"
	"github.com/agebrock/agebrock-mimo/pkg/update"
)

// RegisterAll adds every built-in operator to r
func RegisterAll(r *core.Registry) error {
	for _, register := range []func(*core.Registry) error{
		queryop.Register,
		expression.Register,
		accumulator.Register,
		stage.Register,
		projection.Register,
		update.Register,
	} {
		if err := register(r); err != nil {
			return err
		}
	}
	return nil
}

var (
	defaultOnce sync.Once
	defaultErr  error
)

// Default installs the built-in operators into core.Global() on first
// use and returns the global registry.
func Default() (*core.Registry, error) {
	defaultOnce.Do(func() {
		defaultErr = RegisterAll(core.Global())
	})
	return core.Global(), defaultErr
}

// NewRegistry returns a private registry holding the built-in operators
func NewRegistry() (*core.Registry, error) {
	r := core.NewRegistry()
	if err := RegisterAll(r); err != nil {
		return nil, err
	}
	return r, nil
}
