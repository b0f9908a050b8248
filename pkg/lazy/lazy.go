// Package lazy provides a pull-based sequence whose map, filter, take and
// drop steps are staged and then executed together, one value at a time,
// when a terminal operation pulls from it.
package lazy

import (
	"iter"
)

// Source produces values on demand. ok is false once the source is
// exhausted.
type Source interface {
	Next() (v interface{}, ok bool, err error)
}

// SourceFunc adapts a producer function to Source
type SourceFunc func() (interface{}, bool, error)

// Next calls f
func (f SourceFunc) Next() (interface{}, bool, error) {
	return f()
}

type actionKind int

const (
	actionMap actionKind = iota
	actionFilter
	actionTake
	actionDrop
)

type action struct {
	kind   actionKind
	mapFn  func(interface{}) (interface{}, error)
	filter func(interface{}) (bool, error)
	n      int
}

// Iterator is a lazily evaluated sequence. Staging methods record an
// action and return the same iterator; nothing runs until Next, Value or
// another terminal is called. An Iterator is not safe for concurrent use.
type Iterator struct {
	source  Source
	actions []action
	done    bool
	err     error
	stop    func()

	realized bool
	buffer   []interface{}
}

// New wraps a Source
func New(src Source) *Iterator {
	return &Iterator{source: src}
}

// FromSlice iterates over the elements of xs
func FromSlice(xs []interface{}) *Iterator {
	i := 0
	return New(SourceFunc(func() (interface{}, bool, error) {
		if i >= len(xs) {
			return nil, false, nil
		}
		v := xs[i]
		i++
		return v, true, nil
	}))
}

// FromFunc iterates over the values returned by fn until it reports
// exhaustion
func FromFunc(fn func() (interface{}, bool, error)) *Iterator {
	return New(SourceFunc(fn))
}

// FromSeq iterates over a range-over-func sequence. Close releases the
// underlying sequence if the iterator is abandoned before exhaustion.
func FromSeq(seq iter.Seq[interface{}]) *Iterator {
	next, stop := iter.Pull(seq)
	it := New(SourceFunc(func() (interface{}, bool, error) {
		v, ok := next()
		return v, ok, nil
	}))
	it.stop = stop
	return it
}

// Empty returns an exhausted iterator
func Empty() *Iterator {
	return FromSlice(nil)
}

// Concat chains iterators end to end
func Concat(its ...*Iterator) *Iterator {
	i := 0
	return FromFunc(func() (interface{}, bool, error) {
		for i < len(its) {
			v, ok, err := its[i].Next()
			if err != nil {
				return nil, false, err
			}
			if ok {
				return v, true, nil
			}
			i++
		}
		return nil, false, nil
	})
}

// Map stages a transformation of every value
func (it *Iterator) Map(fn func(interface{}) (interface{}, error)) *Iterator {
	it.actions = append(it.actions, action{kind: actionMap, mapFn: fn})
	return it
}

// Filter stages a predicate. Rejected values are skipped.
func (it *Iterator) Filter(fn func(interface{}) (bool, error)) *Iterator {
	it.actions = append(it.actions, action{kind: actionFilter, filter: fn})
	return it
}

// Take stages a limit of n values
func (it *Iterator) Take(n int) *Iterator {
	it.actions = append(it.actions, action{kind: actionTake, n: n})
	return it
}

// Drop stages skipping the first n values. A non-positive n is ignored.
func (it *Iterator) Drop(n int) *Iterator {
	if n > 0 {
		it.actions = append(it.actions, action{kind: actionDrop, n: n})
	}
	return it
}

// Transform returns a new iterator over fn applied to the fully realized
// values of it. The realization happens on the first pull of the result.
func (it *Iterator) Transform(fn func([]interface{}) ([]interface{}, error)) *Iterator {
	var out []interface{}
	var i int
	realized := false
	return FromFunc(func() (interface{}, bool, error) {
		if !realized {
			values, err := it.Value()
			if err != nil {
				return nil, false, err
			}
			if out, err = fn(values); err != nil {
				return nil, false, err
			}
			realized = true
		}
		if i >= len(out) {
			return nil, false, nil
		}
		v := out[i]
		i++
		return v, true, nil
	})
}

// Next pulls the next value through every staged action. ok is false
// when the sequence is exhausted.
func (it *Iterator) Next() (interface{}, bool, error) {
	if it.err != nil {
		return nil, false, it.err
	}

	for !it.done {
		if it.limitReached() {
			it.finish()
			break
		}

		v, ok, err := it.source.Next()
		if err != nil {
			it.err = err
			it.finish()
			return nil, false, err
		}
		if !ok {
			it.finish()
			break
		}

		v, keep, err := it.apply(v)
		if err != nil {
			it.err = err
			it.finish()
			return nil, false, err
		}
		if keep {
			return v, true, nil
		}
	}
	return nil, false, nil
}

func (it *Iterator) apply(v interface{}) (interface{}, bool, error) {
	var err error
	for i := 0; i < len(it.actions); i++ {
		a := &it.actions[i]
		switch a.kind {
		case actionMap:
			if v, err = a.mapFn(v); err != nil {
				return nil, false, err
			}
		case actionFilter:
			keep, err := a.filter(v)
			if err != nil || !keep {
				return nil, false, err
			}
		case actionTake:
			a.n--
			if a.n <= 0 {
				it.done = true
			}
		case actionDrop:
			a.n--
			if a.n <= 0 {
				it.actions = append(it.actions[:i:i], it.actions[i+1:]...)
			}
			return nil, false, nil
		}
	}
	return v, true, nil
}

// limitReached reports whether a staged take has nothing left to yield
func (it *Iterator) limitReached() bool {
	for _, a := range it.actions {
		if a.kind == actionTake && a.n <= 0 {
			return true
		}
	}
	return false
}

func (it *Iterator) finish() {
	it.done = true
	it.Close()
}

// Close releases a sequence source. It is safe to call more than once.
func (it *Iterator) Close() {
	if it.stop != nil {
		it.stop()
		it.stop = nil
	}
}

// Value pulls every remaining value and caches the result. Later calls
// return the cached slice.
func (it *Iterator) Value() ([]interface{}, error) {
	if it.realized {
		return it.buffer, nil
	}
	out := make([]interface{}, 0)
	for {
		v, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, v)
	}
	it.buffer = out
	it.realized = true
	return out, nil
}

// Each calls fn for every value until fn returns false
func (it *Iterator) Each(fn func(interface{}) (bool, error)) error {
	for {
		v, ok, err := it.Next()
		if err != nil || !ok {
			return err
		}
		cont, err := fn(v)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

// Reduce folds the sequence into a single value
func (it *Iterator) Reduce(fn func(acc, v interface{}) (interface{}, error), initial interface{}) (interface{}, error) {
	acc := initial
	err := it.Each(func(v interface{}) (bool, error) {
		var err error
		acc, err = fn(acc, v)
		return err == nil, err
	})
	return acc, err
}

// Size realizes the sequence and returns its length
func (it *Iterator) Size() (int, error) {
	values, err := it.Value()
	return len(values), err
}

// First returns the next value, if any
func (it *Iterator) First() (interface{}, bool, error) {
	return it.Next()
}

// All exposes the remaining values as a range-over-func sequence. Errors
// stop the iteration and are reported by Err.
func (it *Iterator) All() iter.Seq[interface{}] {
	return func(yield func(interface{}) bool) {
		for {
			v, ok, err := it.Next()
			if err != nil || !ok {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Err returns the error that stopped the sequence, if any
func (it *Iterator) Err() error {
	return it.err
}
