package stage

import (
	"fmt"
	"sort"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/lazy"
	"github.com/agebrock/agebrock-mimo/pkg/path"
)

// collection returns the documents named by from. A slice is used as
// is; a name is looked up with the configured CollectionResolver.
func collection(op string, from interface{}, ctx *core.Context) ([]interface{}, error) {
	switch f := from.(type) {
	case []interface{}:
		return f, nil
	case string:
		resolve := ctx.Options().CollectionResolver
		if resolve == nil {
			return nil, fmt.Errorf("%w: %s cannot load '%s'", core.ErrMissingResolver, op, f)
		}
		return resolve(f)
	}
	return nil, invalid(op, "'from' must be a collection name or an array")
}

func pipelineOf(op string, v interface{}) ([]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	stages, ok := v.([]interface{})
	if !ok {
		return nil, invalid(op, "pipeline must be an array of stages")
	}
	return stages, nil
}

// runPipeline threads it through stages looked up in ctx
func runPipeline(it *lazy.Iterator, stages []interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	for _, s := range stages {
		m, ok := s.(map[string]interface{})
		if !ok || len(m) != 1 {
			return nil, fmt.Errorf("%w: a stage takes exactly one operator", core.ErrInvalidExpression)
		}
		for op, arg := range m {
			fn, ok := ctx.PipelineOperator(op)
			if !ok {
				return nil, fmt.Errorf("%w: pipeline operator %s", core.ErrUnknownOperator, op)
			}
			next, err := fn(it, arg, ctx)
			if err != nil {
				return nil, err
			}
			it = next
		}
	}
	return it, nil
}

// Lookup joins documents of another collection into an array field.
// The equality form matches localField against foreignField; the
// pipeline form runs a sub-pipeline per document with the 'let'
// variables bound.
func Lookup(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	spec, ok := expr.(map[string]interface{})
	if !ok {
		return nil, invalid("$lookup", "requires a document")
	}
	as, ok := spec["as"].(string)
	if !ok || as == "" {
		return nil, invalid("$lookup", "requires 'as'")
	}
	foreign, err := collection("$lookup", spec["from"], ctx)
	if err != nil {
		return nil, err
	}
	stages, err := pipelineOf("$lookup", spec["pipeline"])
	if err != nil {
		return nil, err
	}
	localField, _ := spec["localField"].(string)
	foreignField, _ := spec["foreignField"].(string)
	if stages == nil && (localField == "" || foreignField == "") {
		return nil, invalid("$lookup", "requires 'localField' and 'foreignField' or a 'pipeline'")
	}
	vars, _ := spec["let"].(map[string]interface{})

	var index *joinIndex
	if stages == nil {
		if index, err = newJoinIndex(foreign, foreignField, ctx.Options().HashFunction); err != nil {
			return nil, err
		}
	}

	return it.Map(func(v interface{}) (interface{}, error) {
		obj, err := asObject("$lookup", v)
		if err != nil {
			return nil, err
		}
		var matches []interface{}
		if stages == nil {
			if matches, err = index.match(path.Resolve(obj, localField)); err != nil {
				return nil, err
			}
		} else {
			local := make(map[string]interface{}, len(vars))
			for name, e := range vars {
				if local[name], err = core.ComputeValue(obj, e, "", ctx.WithRoot(obj)); err != nil {
					return nil, err
				}
			}
			sub, err := runPipeline(lazy.FromSlice(foreign), stages, ctx.WithLocal(local))
			if err != nil {
				return nil, err
			}
			if matches, err = sub.Value(); err != nil {
				return nil, err
			}
		}
		out := shallow(obj)
		if err := path.SetValue(out, as, matches); err != nil {
			return nil, err
		}
		return out, nil
	}), nil
}

// joinIndex buckets foreign documents by the hash of their join key.
// Array keys are indexed under each element.
type joinIndex struct {
	buckets map[uint32][]joinEntry
	hash    document.HashFunction
}

type joinEntry struct {
	key interface{}
	pos int
	doc interface{}
}

func joinKey(v interface{}) interface{} {
	if document.IsUndefined(v) {
		return nil
	}
	return v
}

func newJoinIndex(docs []interface{}, field string, fn document.HashFunction) (*joinIndex, error) {
	idx := &joinIndex{buckets: make(map[uint32][]joinEntry), hash: fn}
	for pos, doc := range docs {
		key := joinKey(path.Resolve(doc, field))
		keys := []interface{}{key}
		if arr, ok := key.([]interface{}); ok {
			keys = append(keys, arr...)
		}
		for _, k := range keys {
			h, err := document.HashCode(k, fn)
			if err != nil {
				return nil, err
			}
			idx.buckets[h] = append(idx.buckets[h], joinEntry{key: k, pos: pos, doc: doc})
		}
	}
	return idx, nil
}

// match returns the foreign documents whose key equals local or one of
// its elements, in collection order and without duplicates.
func (idx *joinIndex) match(local interface{}) ([]interface{}, error) {
	local = joinKey(local)
	keys := []interface{}{local}
	if arr, ok := local.([]interface{}); ok {
		keys = arr
	}
	seen := map[int]bool{}
	var hits []joinEntry
	for _, k := range keys {
		h, err := document.HashCode(k, idx.hash)
		if err != nil {
			return nil, err
		}
		for _, e := range idx.buckets[h] {
			if !seen[e.pos] && document.Equal(e.key, k) {
				seen[e.pos] = true
				hits = append(hits, e)
			}
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]interface{}, len(hits))
	for i, e := range hits {
		out[i] = e.doc
	}
	return out, nil
}

// UnionWith appends the documents of another collection, optionally
// passed through a pipeline first.
func UnionWith(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	from := expr
	var stages []interface{}
	if spec, ok := expr.(map[string]interface{}); ok {
		from = spec["coll"]
		var err error
		if stages, err = pipelineOf("$unionWith", spec["pipeline"]); err != nil {
			return nil, err
		}
	}
	docs, err := collection("$unionWith", from, ctx)
	if err != nil {
		return nil, err
	}
	other, err := runPipeline(lazy.FromSlice(docs), stages, ctx)
	if err != nil {
		return nil, err
	}
	return lazy.Concat(it, other), nil
}

// Facet runs several pipelines over the same input and emits a single
// document with one array field per pipeline.
func Facet(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	spec, ok := expr.(map[string]interface{})
	if !ok || len(spec) == 0 {
		return nil, invalid("$facet", "requires a non-empty document")
	}
	facets := make(map[string][]interface{}, len(spec))
	for name, p := range spec {
		stages, err := pipelineOf("$facet", p)
		if err != nil {
			return nil, err
		}
		facets[name] = stages
	}
	return it.Transform(func(coll []interface{}) ([]interface{}, error) {
		out := make(map[string]interface{}, len(facets))
		for name, stages := range facets {
			sub, err := runPipeline(lazy.FromSlice(coll), stages, ctx)
			if err != nil {
				return nil, fmt.Errorf("facet %s: %w", name, err)
			}
			res, err := sub.Value()
			if err != nil {
				return nil, fmt.Errorf("facet %s: %w", name, err)
			}
			out[name] = res
		}
		return []interface{}{out}, nil
	}), nil
}
