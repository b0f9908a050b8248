package update

import (
	"fmt"
	"sort"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/operators/expression"
	"github.com/agebrock/agebrock-mimo/pkg/path"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

// array returns the array under key. A missing field is an empty array.
func array(op string, c interface{}, k string) ([]interface{}, error) {
	v := path.Get(c, k)
	if document.IsNil(v) {
		return []interface{}{}, nil
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s on field '%s' holding %s", ErrNotArray, op, k, document.TypeOf(v))
	}
	return arr, nil
}

var pushModifiers = []string{"$each", "$slice", "$sort", "$position"}

type pushArgs struct {
	each     []interface{}
	slice    *int
	sort     interface{}
	position *int
}

func parsePush(val interface{}) (*pushArgs, error) {
	args := &pushArgs{each: []interface{}{val}}
	m, ok := val.(map[string]interface{})
	if !ok {
		return args, nil
	}
	modified := false
	for _, mod := range pushModifiers {
		if _, ok := m[mod]; ok {
			modified = true
		}
	}
	if !modified {
		return args, nil
	}

	each, ok := m["$each"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: $push modifiers require an $each array", core.ErrInvalidArgument)
	}
	args.each = each
	for _, name := range []string{"$slice", "$position"} {
		v, ok := m[name]
		if !ok {
			continue
		}
		n, ok := document.ToInt64(v)
		if !ok || !document.IsInteger(v) {
			return nil, fmt.Errorf("%w: %s must be an integer", core.ErrInvalidArgument, name)
		}
		i := int(n)
		if name == "$slice" {
			args.slice = &i
		} else {
			args.position = &i
		}
	}
	args.sort = m["$sort"]
	return args, nil
}

// sortArray orders arr by a direction (1 or -1) for plain values or by a
// {field: direction} document
func sortArray(arr []interface{}, spec interface{}) error {
	if dir, ok := document.ToInt64(spec); ok {
		sort.SliceStable(arr, func(i, j int) bool {
			return document.Compare(arr[i], arr[j])*int(dir) < 0
		})
		return nil
	}
	keys, ok := document.Ordered(spec)
	if !ok {
		return fmt.Errorf("%w: $sort takes 1, -1 or a sort document", core.ErrInvalidArgument)
	}
	sort.SliceStable(arr, func(i, j int) bool {
		for _, k := range keys {
			dir, _ := document.ToInt64(k.Value)
			c := document.Compare(path.Resolve(arr[i], k.Key), path.Resolve(arr[j], k.Key))
			if c != 0 {
				return c*int(dir) < 0
			}
		}
		return false
	})
	return nil
}

// Push appends values to arrays. The $each, $position, $sort and $slice
// modifiers insert several values at a position and then sort and trim
// the result.
func Push(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, ctx *core.Context) ([]string, error) {
	mode := ctx.Options().CloneMode
	return WalkExpression(expr, arrayFilters, ctx, func(val interface{}, node *PathNode, queries map[string]*query.Query) (bool, error) {
		args, err := parsePush(val)
		if err != nil {
			return false, err
		}
		return ApplyUpdate(obj, node, queries, func(c interface{}, k string) (bool, error) {
			prev, err := array("$push", c, k)
			if err != nil {
				return false, err
			}

			pos := len(prev)
			if args.position != nil {
				pos = *args.position
				if pos < 0 {
					pos += len(prev)
				}
				pos = max(0, min(pos, len(prev)))
			}
			inserted, err := document.Clone(mode, args.each)
			if err != nil {
				return false, err
			}
			arr := make([]interface{}, 0, len(prev)+len(args.each))
			arr = append(arr, prev[:pos]...)
			arr = append(arr, inserted.([]interface{})...)
			arr = append(arr, prev[pos:]...)

			if args.sort != nil {
				if err := sortArray(arr, args.sort); err != nil {
					return false, err
				}
			}
			if args.slice != nil {
				if arr, err = expression.Slice(arr, *args.slice); err != nil {
					return false, err
				}
			}

			if document.Equal(prev, arr) && path.Has(c, k) {
				return false, nil
			}
			path.Set(c, k, arr)
			return true, nil
		}, path.WalkOptions{BuildGraph: true, DescendArray: true})
	})
}

// AddToSet appends values that are not already present. {$each: [...]}
// adds several values.
func AddToSet(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, ctx *core.Context) ([]string, error) {
	mode := ctx.Options().CloneMode
	hash := ctx.Options().HashFunction
	return WalkExpression(expr, arrayFilters, ctx, func(val interface{}, node *PathNode, queries map[string]*query.Query) (bool, error) {
		values := []interface{}{val}
		if m, ok := val.(map[string]interface{}); ok {
			if each, ok := m["$each"]; ok {
				if values, ok = each.([]interface{}); !ok {
					return false, fmt.Errorf("%w: $addToSet $each requires an array", core.ErrInvalidArgument)
				}
			}
		}
		return ApplyUpdate(obj, node, queries, func(c interface{}, k string) (bool, error) {
			prev, err := array("$addToSet", c, k)
			if err != nil {
				return false, err
			}
			fresh := make([]interface{}, 0, len(values))
			for _, v := range values {
				if !document.Contains(prev, v) {
					fresh = append(fresh, v)
				}
			}
			if len(fresh) == 0 {
				if !path.Has(c, k) {
					path.Set(c, k, prev)
					return true, nil
				}
				return false, nil
			}
			fresh, err = document.Unique(fresh, hash)
			if err != nil {
				return false, err
			}
			added, err := document.Clone(mode, fresh)
			if err != nil {
				return false, err
			}
			path.Set(c, k, append(append(make([]interface{}, 0, len(prev)+len(fresh)), prev...), added.([]interface{})...))
			return true, nil
		}, buildGraph)
	})
}

// Pop removes the first (-1) or last (1) element of arrays
func Pop(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, ctx *core.Context) ([]string, error) {
	return WalkExpression(expr, arrayFilters, ctx, func(val interface{}, node *PathNode, queries map[string]*query.Query) (bool, error) {
		dir, ok := document.ToInt64(val)
		if !ok || (dir != 1 && dir != -1) {
			return false, fmt.Errorf("%w: $pop takes 1 or -1", core.ErrInvalidArgument)
		}
		return ApplyUpdate(obj, node, queries, func(c interface{}, k string) (bool, error) {
			if !path.Has(c, k) {
				return false, nil
			}
			arr, err := array("$pop", c, k)
			if err != nil || len(arr) == 0 {
				return false, err
			}
			if dir < 0 {
				path.Set(c, k, arr[1:])
			} else {
				path.Set(c, k, arr[:len(arr)-1])
			}
			return true, nil
		}, path.WalkOptions{})
	})
}

// Pull removes the array elements that match a value or a condition. A
// scalar, or a document holding query operators, is tested against each
// element; any other document is a query over element documents.
func Pull(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, ctx *core.Context) ([]string, error) {
	return WalkExpression(expr, arrayFilters, ctx, func(val interface{}, node *PathNode, queries map[string]*query.Query) (bool, error) {
		m, isObject := val.(map[string]interface{})
		wrap := !isObject
		for key := range m {
			if core.IsOperator(key) {
				wrap = true
			}
		}
		criteria := m
		if wrap {
			criteria = map[string]interface{}{"k": val}
		}
		q, err := query.Compile(criteria, queryContext(ctx))
		if err != nil {
			return false, err
		}
		match := q.Test
		if wrap {
			match = func(v interface{}) (bool, error) {
				return q.Test(map[string]interface{}{"k": v})
			}
		}

		return ApplyUpdate(obj, node, queries, func(c interface{}, k string) (bool, error) {
			prev, ok := path.Get(c, k).([]interface{})
			if !ok {
				return false, nil
			}
			kept := make([]interface{}, 0, len(prev))
			for _, v := range prev {
				matched, err := match(v)
				if err != nil {
					return false, err
				}
				if !matched {
					kept = append(kept, v)
				}
			}
			if len(kept) == len(prev) {
				return false, nil
			}
			path.Set(c, k, kept)
			return true, nil
		}, path.WalkOptions{})
	})
}

// PullAll removes every element equal to one of the listed values
func PullAll(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, ctx *core.Context) ([]string, error) {
	pull := make(map[string]interface{}, len(expr))
	for field, vals := range expr {
		arr, ok := vals.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: $pullAll requires an array for '%s'", core.ErrInvalidArgument, field)
		}
		pull[field] = map[string]interface{}{"$in": arr}
	}
	return Pull(obj, pull, arrayFilters, ctx)
}
