package update

import (
	"fmt"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/path"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

var buildGraph = path.WalkOptions{BuildGraph: true}

// Set assigns values. Assigning a value equal to the current one is not
// a change.
func Set(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, ctx *core.Context) ([]string, error) {
	mode := ctx.Options().CloneMode
	return WalkExpression(expr, arrayFilters, ctx, func(val interface{}, node *PathNode, queries map[string]*query.Query) (bool, error) {
		return ApplyUpdate(obj, node, queries, func(c interface{}, k string) (bool, error) {
			if document.Equal(path.Get(c, k), val) {
				return false, nil
			}
			v, err := document.Clone(mode, val)
			if err != nil {
				return false, err
			}
			path.Set(c, k, v)
			return true, nil
		}, buildGraph)
	})
}

// Unset removes fields. Array elements are set to null instead so that
// positions do not shift.
func Unset(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, ctx *core.Context) ([]string, error) {
	return WalkExpression(expr, arrayFilters, ctx, func(_ interface{}, node *PathNode, queries map[string]*query.Query) (bool, error) {
		return ApplyUpdate(obj, node, queries, func(c interface{}, k string) (bool, error) {
			if !path.Has(c, k) {
				return false, nil
			}
			if document.IsArray(c) {
				path.Set(c, k, nil)
			} else {
				path.Delete(c, k)
			}
			return true, nil
		}, path.WalkOptions{})
	})
}

// Rename moves fields to a new name, which is set as a full path from
// the document root.
func Rename(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, ctx *core.Context) ([]string, error) {
	var renamed []string
	changed, err := WalkExpression(expr, arrayFilters, ctx, func(val interface{}, node *PathNode, queries map[string]*query.Query) (bool, error) {
		target, ok := val.(string)
		if !ok || target == "" {
			return false, fmt.Errorf("%w: $rename target must be a field name", core.ErrInvalidArgument)
		}
		return ApplyUpdate(obj, node, queries, func(c interface{}, k string) (bool, error) {
			if !path.Has(c, k) {
				return false, nil
			}
			paths, err := Set(obj, map[string]interface{}{target: path.Get(c, k)}, arrayFilters, ctx)
			if err != nil {
				return false, err
			}
			renamed = append(renamed, paths...)
			path.Delete(c, k)
			return true, nil
		}, path.WalkOptions{})
	})
	if err != nil {
		return nil, err
	}
	return append(changed, renamed...), nil
}

// CurrentDate sets fields to the time of the run. A value of true or
// {$type: "date"} stores a date; {$type: "timestamp"} stores milliseconds
// since the epoch.
func CurrentDate(obj map[string]interface{}, expr map[string]interface{}, arrayFilters []map[string]interface{}, ctx *core.Context) ([]string, error) {
	now := ctx.Timestamp()
	return WalkExpression(expr, arrayFilters, ctx, func(val interface{}, node *PathNode, queries map[string]*query.Query) (bool, error) {
		var v interface{} = now
		switch spec := val.(type) {
		case bool:
		case map[string]interface{}:
			switch spec["$type"] {
			case "date":
			case "timestamp":
				v = now.UnixMilli()
			default:
				return false, fmt.Errorf("%w: $currentDate $type must be 'date' or 'timestamp'", core.ErrInvalidArgument)
			}
		default:
			return false, fmt.Errorf("%w: $currentDate takes true or {$type: ...}", core.ErrInvalidArgument)
		}
		return ApplyUpdate(obj, node, queries, func(c interface{}, k string) (bool, error) {
			path.Set(c, k, v)
			return true, nil
		}, buildGraph)
	})
}
