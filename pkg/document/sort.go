package document

import "sort"

// SortBy stably sorts xs by the key computed for each element. Elements
// whose key is null or undefined take no part in the ordering and are
// appended after the sorted elements in their original order.
func SortBy(xs []interface{}, keyFn func(interface{}, int) interface{}, cmp Comparator) []interface{} {
	if len(xs) == 0 {
		return xs
	}
	if cmp == nil {
		cmp = Compare
	}

	type keyed struct {
		key  interface{}
		item interface{}
	}
	sorted := make([]keyed, 0, len(xs))
	rest := make([]interface{}, 0)
	for i, item := range xs {
		key := keyFn(item, i)
		if IsNil(key) {
			rest = append(rest, item)
			continue
		}
		sorted = append(sorted, keyed{key: key, item: item})
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return cmp(sorted[i].key, sorted[j].key) < 0
	})

	result := make([]interface{}, 0, len(xs))
	for _, k := range sorted {
		result = append(result, k.item)
	}
	return append(result, rest...)
}
