package document

// hashIndex buckets values by hash. Each bucket holds the positions of
// pairwise unequal values that share the hash.
type hashIndex struct {
	buckets map[uint32][]int
	values  []interface{}
	hash    HashFunction
}

func newHashIndex(fn HashFunction) *hashIndex {
	return &hashIndex{buckets: make(map[uint32][]int), hash: fn}
}

// add records v and reports the position of an equal value already in
// the index, or -1 when v is new.
func (idx *hashIndex) add(v interface{}) (int, error) {
	h, err := HashCode(v, idx.hash)
	if err != nil {
		return -1, err
	}
	for _, pos := range idx.buckets[h] {
		if Equal(idx.values[pos], v) {
			return pos, nil
		}
	}
	idx.values = append(idx.values, v)
	idx.buckets[h] = append(idx.buckets[h], len(idx.values)-1)
	return -1, nil
}

// find returns the position of a value equal to v, or -1
func (idx *hashIndex) find(v interface{}) (int, error) {
	h, err := HashCode(v, idx.hash)
	if err != nil {
		return -1, err
	}
	for _, pos := range idx.buckets[h] {
		if Equal(idx.values[pos], v) {
			return pos, nil
		}
	}
	return -1, nil
}

// Unique returns the distinct values of xs in first-occurrence order
func Unique(xs []interface{}, fn HashFunction) ([]interface{}, error) {
	idx := newHashIndex(fn)
	for _, v := range xs {
		if _, err := idx.add(v); err != nil {
			return nil, err
		}
	}
	return idx.values, nil
}

// Contains reports whether xs holds a value equal to v
func Contains(xs []interface{}, v interface{}) bool {
	for _, x := range xs {
		if Equal(x, v) {
			return true
		}
	}
	return false
}

// Group is one partition produced by GroupBy
type Group struct {
	Key   interface{}
	Items []interface{}
}

// GroupBy partitions xs by the key computed for each element. Groups are
// returned in the order their keys first occur.
func GroupBy(xs []interface{}, keyFn func(interface{}) (interface{}, error), fn HashFunction) ([]*Group, error) {
	idx := newHashIndex(fn)
	groups := make([]*Group, 0)
	for _, item := range xs {
		key, err := keyFn(item)
		if err != nil {
			return nil, err
		}
		pos, err := idx.add(key)
		if err != nil {
			return nil, err
		}
		if pos < 0 {
			groups = append(groups, &Group{Key: key, Items: []interface{}{item}})
			continue
		}
		groups[pos].Items = append(groups[pos].Items, item)
	}
	return groups, nil
}

// Intersection returns the distinct values present in every input. The
// result follows the order of the first input, so any permutation of
// the inputs yields the same set.
func Intersection(inputs [][]interface{}, fn HashFunction) ([]interface{}, error) {
	if len(inputs) == 0 {
		return []interface{}{}, nil
	}
	for _, arr := range inputs {
		if len(arr) == 0 {
			return []interface{}{}, nil
		}
	}
	if len(inputs) == 1 {
		return Unique(inputs[0], fn)
	}

	// index the smallest input, then count hits from the others
	smallest := 0
	for i, arr := range inputs {
		if len(arr) < len(inputs[smallest]) {
			smallest = i
		}
	}
	base := newHashIndex(fn)
	for _, v := range inputs[smallest] {
		if _, err := base.add(v); err != nil {
			return nil, err
		}
	}
	counts := make([]int, len(base.values))
	for i, arr := range inputs {
		if i == smallest {
			continue
		}
		seen := make([]bool, len(base.values))
		for _, v := range arr {
			pos, err := base.find(v)
			if err != nil {
				return nil, err
			}
			if pos >= 0 && !seen[pos] {
				seen[pos] = true
				counts[pos]++
			}
		}
	}

	common := newHashIndex(fn)
	for pos, n := range counts {
		if n == len(inputs)-1 {
			if _, err := common.add(base.values[pos]); err != nil {
				return nil, err
			}
		}
	}

	result := make([]interface{}, 0, len(common.values))
	emitted := make([]bool, len(common.values))
	for _, v := range inputs[0] {
		pos, err := common.find(v)
		if err != nil {
			return nil, err
		}
		if pos >= 0 && !emitted[pos] {
			emitted[pos] = true
			result = append(result, common.values[pos])
		}
	}
	return result, nil
}

// Union returns the distinct values of all inputs in first-occurrence order
func Union(inputs [][]interface{}, fn HashFunction) ([]interface{}, error) {
	all := make([]interface{}, 0)
	for _, arr := range inputs {
		all = append(all, arr...)
	}
	return Unique(all, fn)
}
