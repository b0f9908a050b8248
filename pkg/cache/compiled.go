package cache

import (
	"time"

	"github.com/agebrock/agebrock-mimo/pkg/aggregation"
	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

// Compiled caches queries and aggregation pipelines compiled with one set
// of options. Criteria are keyed by their canonical encoding, so
// structurally equal criteria share an entry.
type Compiled struct {
	opts *core.Options
	lru  *LRU
}

// NewCompiled creates a cache of compiled criteria. Nil options use
// core.DefaultOptions.
func NewCompiled(opts *core.Options, capacity int, ttl time.Duration) *Compiled {
	if opts == nil {
		opts = core.DefaultOptions()
	}
	return &Compiled{opts: opts, lru: NewLRU(capacity, ttl)}
}

// cacheKey returns the canonical encoding of v, or false when v holds a
// cycle, a func or an opaque value. Funcs encode by code pointer only, so
// closures over different captures would share a key.
func cacheKey(prefix string, v interface{}) (string, bool) {
	if !plain(v) {
		return "", false
	}
	key, err := document.Stringify(v)
	if err != nil {
		return "", false
	}
	return prefix + key, true
}

func plain(v interface{}) bool {
	return plainDepth(v, 0)
}

// plainDepth stops at a fixed depth, which also bounds cyclic input
func plainDepth(v interface{}, depth int) bool {
	if depth > 64 {
		return false
	}
	switch val := v.(type) {
	case []interface{}:
		for _, item := range val {
			if !plainDepth(item, depth+1) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		for _, item := range val {
			if !plainDepth(item, depth+1) {
				return false
			}
		}
		return true
	case document.D:
		for _, e := range val {
			if !plainDepth(e.Value, depth+1) {
				return false
			}
		}
		return true
	}
	switch document.TypeOf(v) {
	case document.TypeFunction, document.TypeUnknown:
		return false
	}
	return true
}

// Query returns the compiled query for criteria
func (c *Compiled) Query(criteria map[string]interface{}) (*query.Query, error) {
	key, ok := cacheKey("q:", criteria)
	if !ok {
		// uncacheable, compile it every time
		return query.New(criteria, c.opts)
	}
	if v, ok := c.lru.Get(key); ok {
		return v.(*query.Query), nil
	}

	q, err := query.New(criteria, c.opts)
	if err != nil {
		return nil, err
	}
	c.lru.Put(key, q)
	return q, nil
}

// Pipeline returns the compiled aggregator for pipeline
func (c *Compiled) Pipeline(pipeline []map[string]interface{}) (*aggregation.Aggregator, error) {
	stages := make([]interface{}, len(pipeline))
	for i, s := range pipeline {
		stages[i] = s
	}
	key, ok := cacheKey("p:", stages)
	if !ok {
		return aggregation.New(pipeline, c.opts)
	}
	if v, ok := c.lru.Get(key); ok {
		return v.(*aggregation.Aggregator), nil
	}

	agg, err := aggregation.New(pipeline, c.opts)
	if err != nil {
		return nil, err
	}
	c.lru.Put(key, agg)
	return agg, nil
}

// Stats returns statistics of the underlying LRU
func (c *Compiled) Stats() map[string]interface{} {
	return c.lru.Stats()
}

// Clear drops every compiled entry
func (c *Compiled) Clear() {
	c.lru.Clear()
}
