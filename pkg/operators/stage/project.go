package stage

import (
	"fmt"
	"sort"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/lazy"
	"github.com/agebrock/agebrock-mimo/pkg/path"
)

// Project reshapes every document. A projection either lists the fields
// to include, possibly with computed values, or the fields to exclude;
// the id field is included unless excluded explicitly and may be excluded
// in either form.
func Project(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	spec, ok := expr.(map[string]interface{})
	if !ok {
		return nil, invalid("$project", "requires a document")
	}
	if len(spec) == 0 {
		return it, nil
	}
	p, err := newProjector(spec, ctx)
	if err != nil {
		return nil, err
	}
	return it.Map(func(obj interface{}) (interface{}, error) {
		return p.apply(obj, spec, true, ctx.WithRoot(obj))
	}), nil
}

type projector struct {
	idKey     string
	exclusion bool
	// sliceOnly is set when every field is a $slice, which keeps the
	// remaining fields
	sliceOnly bool
}

func isFlag(v interface{}) bool {
	return document.IsNumber(v) || document.IsBoolean(v)
}

func newProjector(spec map[string]interface{}, ctx *core.Context) (*projector, error) {
	p := &projector{idKey: ctx.Options().IDKey}
	include, exclude, err := p.validate(spec, true)
	if err != nil {
		return nil, err
	}
	p.exclusion = exclude || (!include && p.onlyIDExcluded(spec))
	p.sliceOnly = !p.exclusion
	fields := 0
	for key, v := range spec {
		if key == p.idKey && isFlag(v) {
			continue
		}
		fields++
		if m, ok := v.(map[string]interface{}); !ok || len(m) != 1 || m["$slice"] == nil {
			p.sliceOnly = false
		}
	}
	p.sliceOnly = p.sliceOnly && fields > 0
	return p, nil
}

// validate rejects projections that mix inclusion and exclusion. Only
// the id field at the top level may be excluded in an inclusion.
func (p *projector) validate(spec map[string]interface{}, top bool) (include, exclude bool, err error) {
	for key, v := range spec {
		if top && key == p.idKey && isFlag(v) {
			continue
		}
		switch {
		case isFlag(v):
			if document.Truthy(v, false) {
				include = true
			} else {
				exclude = true
			}
		case document.IsObject(v) && !isOperatorExpr(v):
			in, ex, err := p.validate(v.(map[string]interface{}), false)
			if err != nil {
				return false, false, err
			}
			include, exclude = include || in, exclude || ex
		default:
			include = true
		}
	}
	if include && exclude {
		return false, false, fmt.Errorf("%w: cannot mix inclusion and exclusion", core.ErrMixedProjection)
	}
	return include, exclude, nil
}

func (p *projector) onlyIDExcluded(spec map[string]interface{}) bool {
	v, ok := spec[p.idKey]
	return ok && len(spec) == 1 && isFlag(v) && !document.Truthy(v, false)
}

func isOperatorExpr(v interface{}) bool {
	m, ok := v.(map[string]interface{})
	if !ok || len(m) != 1 {
		return false
	}
	for k := range m {
		return core.IsOperator(k)
	}
	return false
}

func (p *projector) apply(obj interface{}, spec map[string]interface{}, top bool, ctx *core.Context) (interface{}, error) {
	doc, ok := obj.(map[string]interface{})
	if !ok {
		return obj, nil
	}
	if p.exclusion && top {
		return p.exclude(doc, spec)
	}
	if p.sliceOnly && top {
		return p.slice(doc, spec, ctx)
	}

	keys := make([]string, 0, len(spec))
	for k := range spec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out interface{} = map[string]interface{}{}
	includeID := top
	for _, key := range keys {
		v := spec[key]
		if top && key == p.idKey {
			if isFlag(v) {
				includeID = document.Truthy(v, false)
				continue
			}
			includeID = false
		}

		switch {
		case isFlag(v):
			if !document.Truthy(v, false) {
				continue
			}
			graph := path.ResolveGraph(doc, key, path.GraphOptions{PreserveMissing: true})
			merged, err := path.Merge(out, graph, true)
			if err != nil {
				return nil, err
			}
			out = merged
			continue
		case document.IsObject(v) && !isOperatorExpr(v):
			value, err := p.nested(doc, key, v.(map[string]interface{}), ctx)
			if err != nil {
				return nil, err
			}
			if err := p.set(out, key, value); err != nil {
				return nil, err
			}
			continue
		}

		value, err := p.compute(doc, key, v, ctx)
		if err != nil {
			return nil, err
		}
		if err := p.set(out, key, value); err != nil {
			return nil, err
		}
	}

	result := out.(map[string]interface{})
	if includeID {
		if id, ok := doc[p.idKey]; ok {
			result[p.idKey] = id
		}
	}
	return path.FilterMissing(result), nil
}

func (p *projector) set(out interface{}, key string, value interface{}) error {
	if document.IsUndefined(value) {
		return nil
	}
	return path.SetValue(out, key, value)
}

// compute evaluates a field value that is an expression or a projection
// operator such as $slice.
func (p *projector) compute(doc map[string]interface{}, key string, v interface{}, ctx *core.Context) (interface{}, error) {
	if m, ok := v.(map[string]interface{}); ok && len(m) == 1 {
		for op, arg := range m {
			if fn, ok := ctx.ProjectionOperator(op); ok {
				return fn(doc, arg, key, ctx)
			}
		}
	}
	return core.ComputeValue(doc, v, "", ctx)
}

// nested applies a sub-projection to an embedded document, or to every
// embedded document of an array.
func (p *projector) nested(doc map[string]interface{}, key string, spec map[string]interface{}, ctx *core.Context) (interface{}, error) {
	switch sub := path.Resolve(doc, key).(type) {
	case map[string]interface{}:
		return p.apply(sub, spec, false, ctx)
	case []interface{}:
		out := make([]interface{}, 0, len(sub))
		for _, elem := range sub {
			if !document.IsObject(elem) {
				continue
			}
			v, err := p.apply(elem, spec, false, ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		v, err := p.apply(map[string]interface{}{}, spec, false, ctx)
		if err != nil {
			return nil, err
		}
		if m := v.(map[string]interface{}); len(m) == 0 {
			return document.Undefined, nil
		}
		return v, nil
	}
}

// slice copies doc with its $slice fields limited
func (p *projector) slice(doc map[string]interface{}, spec map[string]interface{}, ctx *core.Context) (interface{}, error) {
	c, err := document.CloneDeep(doc)
	if err != nil {
		return nil, err
	}
	out := c.(map[string]interface{})
	for key, v := range spec {
		if key == p.idKey && isFlag(v) {
			if !document.Truthy(v, false) {
				delete(out, key)
			}
			continue
		}
		value, err := p.compute(doc, key, v, ctx)
		if err != nil {
			return nil, err
		}
		if err := p.set(out, key, value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// exclude copies doc without the excluded fields
func (p *projector) exclude(doc map[string]interface{}, spec map[string]interface{}) (interface{}, error) {
	c, err := document.CloneDeep(doc)
	if err != nil {
		return nil, err
	}
	out := c.(map[string]interface{})
	if err := p.drop(out, spec, ""); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *projector) drop(out map[string]interface{}, spec map[string]interface{}, prefix string) error {
	for key, v := range spec {
		selector := prefix + key
		if sub, ok := v.(map[string]interface{}); ok {
			if err := p.drop(out, sub, selector+"."); err != nil {
				return err
			}
			continue
		}
		if isFlag(v) && !document.Truthy(v, false) {
			if err := path.RemoveValue(out, selector, true); err != nil {
				return err
			}
		}
	}
	return nil
}
