// Package update applies MongoDB update operators to documents in
// place.
//
// Selectors may address array elements through filter placeholders
// ("items.$[x].qty") bound by array filter documents
// ({"x.qty": {"$gt": 5}}), or through "$[]" for every element.
package update

import (
	"fmt"
	"sort"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

// Operators returns the built-in update operators by name
func Operators() map[string]core.UpdateFunc {
	return map[string]core.UpdateFunc{
		"$addToSet":    AddToSet,
		"$bit":         Bit,
		"$currentDate": CurrentDate,
		"$inc":         Inc,
		"$max":         Max,
		"$min":         Min,
		"$mul":         Mul,
		"$pop":         Pop,
		"$pull":        Pull,
		"$pullAll":     PullAll,
		"$push":        Push,
		"$rename":      Rename,
		"$set":         Set,
		"$unset":       Unset,
	}
}

// Register adds the built-in update operators to r
func Register(r *core.Registry) error {
	for name, fn := range Operators() {
		if err := r.Register(core.ClassUpdate, name, fn); err != nil {
			return err
		}
	}
	return nil
}

// Updater applies update expressions with a fixed set of options
type Updater struct {
	opts *core.Options
}

// NewUpdater returns an Updater using opts, or the default options when
// opts is nil
func NewUpdater(opts *core.Options) (*Updater, error) {
	if opts == nil {
		opts = core.DefaultOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Updater{opts: opts}, nil
}

// Update applies expr to obj and returns the sorted, distinct paths it
// modified. expr must hold exactly one update operator. When condition is
// not empty the update only runs if obj matches it.
func (u *Updater) Update(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, condition map[string]interface{}) ([]string, error) {
	if len(expr) != 1 {
		return nil, fmt.Errorf("%w: an update takes exactly one operator, got %d", core.ErrInvalidExpression, len(expr))
	}
	var op string
	var args interface{}
	for k, v := range expr {
		op, args = k, v
	}

	ctx := core.NewContext(u.opts)
	fn, ok := ctx.UpdateOperator(op)
	if !ok {
		if fn, ok = Operators()[op]; !ok {
			return nil, fmt.Errorf("%w: update operator %s", core.ErrUnknownOperator, op)
		}
	}
	fields, ok := args.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s takes a document of fields", core.ErrInvalidArgument, op)
	}

	if len(condition) > 0 {
		q, err := query.Compile(condition, queryContext(ctx))
		if err != nil {
			return nil, err
		}
		matched, err := q.Test(obj)
		if err != nil || !matched {
			return nil, err
		}
	}

	paths, err := fn(obj, fields, arrayFilters, ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	paths = distinct(paths)
	ctx.Logger().Debug("update applied", "operator", op, "modified", paths)
	return paths, nil
}

// Update applies expr to obj with opts. See Updater.Update.
func Update(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, condition map[string]interface{}, opts *core.Options) ([]string, error) {
	u, err := NewUpdater(opts)
	if err != nil {
		return nil, err
	}
	return u.Update(obj, expr, arrayFilters, condition)
}

func distinct(paths []string) []string {
	if len(paths) == 0 {
		return []string{}
	}
	sort.Strings(paths)
	out := paths[:1]
	for _, p := range paths[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
