package stage

import (
	"slices"
	"sort"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/lazy"
	"github.com/agebrock/agebrock-mimo/pkg/path"
)

// Sort orders documents by one or more fields. The specification is a
// document.D, or a map whose keys then apply in lexical order. Values
// are 1 for ascending and -1 for descending. Strings compare under the
// configured collation.
func Sort(it *lazy.Iterator, expr interface{}, ctx *core.Context) (*lazy.Iterator, error) {
	keys, ok := document.Ordered(expr)
	if !ok || len(keys) == 0 {
		return nil, invalid("$sort", "requires a non-empty document")
	}
	for _, k := range keys {
		dir, ok := document.ToInt64(k.Value)
		if !ok || (dir != 1 && dir != -1) {
			return nil, invalid("$sort", "direction for '%s' must be 1 or -1", k.Key)
		}
	}

	cmp := document.Compare
	if coll := ctx.Options().Collation; coll != nil {
		c, err := coll.Comparator()
		if err != nil {
			return nil, err
		}
		cmp = c
	}
	hash := ctx.Options().HashFunction

	return it.Transform(func(coll []interface{}) ([]interface{}, error) {
		// sort by the least significant key first; each pass is stable
		for i := len(keys) - 1; i >= 0; i-- {
			field := keys[i].Key
			dir, _ := document.ToInt64(keys[i].Value)
			groups, err := document.GroupBy(coll, func(obj interface{}) (interface{}, error) {
				return path.Resolve(obj, field), nil
			}, hash)
			if err != nil {
				return nil, err
			}
			sort.SliceStable(groups, func(a, b int) bool {
				return cmp(groups[a].Key, groups[b].Key) < 0
			})
			if dir < 0 {
				slices.Reverse(groups)
			}
			sorted := make([]interface{}, 0, len(coll))
			for _, g := range groups {
				sorted = append(sorted, g.Items...)
			}
			coll = sorted
		}
		return coll, nil
	}), nil
}
