package mimo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

// Collection is an ordered set of documents with unique ids. Stored
// documents are shared with callers unless the database options clone
// results.
type Collection struct {
	name string
	db   *Database
	docs []interface{}
	ids  map[string]struct{}
	mu   sync.RWMutex
}

// UpdateResult reports the outcome of an update
type UpdateResult struct {
	Matched  int      `json:"matched"`
	Modified int      `json:"modified"`
	Paths    []string `json:"paths,omitempty"`
}

func newCollection(name string, db *Database) *Collection {
	return &Collection{
		name: name,
		db:   db,
		docs: make([]interface{}, 0),
		ids:  make(map[string]struct{}),
	}
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.name
}

// Len returns the number of documents
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

func (c *Collection) idKey(doc map[string]interface{}) (string, error) {
	key, err := document.Stringify(doc[c.db.opts.IDKey])
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrInvalidArgument, err)
	}
	return key, nil
}

// snapshot copies the document list so it can be read without the lock
func (c *Collection) snapshot() ([]interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]interface{}, len(c.docs))
	if !c.db.isolated {
		copy(out, c.docs)
		return out, nil
	}
	for i, d := range c.docs {
		clone, err := document.CloneDeep(d)
		if err != nil {
			return nil, err
		}
		out[i] = clone
	}
	return out, nil
}

// All returns every document in insertion order
func (c *Collection) All() ([]interface{}, error) {
	return c.snapshot()
}

// InsertOne adds doc, generating an ObjectID when it has no id, and
// returns the id
func (c *Collection) InsertOne(doc map[string]interface{}) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insert(doc)
}

func (c *Collection) insert(doc map[string]interface{}) (interface{}, error) {
	idField := c.db.opts.IDKey
	if v, ok := doc[idField]; !ok || document.IsUndefined(v) {
		doc[idField] = document.NewObjectID()
	}
	key, err := c.idKey(doc)
	if err != nil {
		return nil, err
	}
	if _, exists := c.ids[key]; exists {
		return nil, fmt.Errorf("%w: %s %s in %s", ErrDuplicateKey, idField, key, c.name)
	}
	c.ids[key] = struct{}{}
	c.docs = append(c.docs, doc)
	return doc[idField], nil
}

// InsertMany adds docs in order. Documents before the first failure stay
// inserted.
func (c *Collection) InsertMany(docs []map[string]interface{}) ([]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]interface{}, 0, len(docs))
	for i, doc := range docs {
		id, err := c.insert(doc)
		if err != nil {
			return ids, fmt.Errorf("document %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Query returns the compiled form of filter. A nil filter matches all
// documents.
func (c *Collection) Query(filter map[string]interface{}) (*query.Query, error) {
	if filter == nil {
		filter = map[string]interface{}{}
	}
	return c.db.compiled.Query(filter)
}

// Find returns a cursor over the documents matching filter
func (c *Collection) Find(filter, projection map[string]interface{}) (*query.Cursor, error) {
	q, err := c.Query(filter)
	if err != nil {
		return nil, err
	}
	docs, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return q.Find(docs, projection), nil
}

// FindOne returns the first matching document
func (c *Collection) FindOne(filter, projection map[string]interface{}) (interface{}, error) {
	cur, err := c.Find(filter, projection)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	doc, ok, err := cur.Limit(1).Next()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Exists reports whether any document matches filter
func (c *Collection) Exists(filter map[string]interface{}) (bool, error) {
	_, err := c.FindOne(filter, nil)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrDocumentNotFound):
		return false, nil
	}
	return false, err
}

// Count returns the number of documents matching filter
func (c *Collection) Count(filter map[string]interface{}) (int, error) {
	q, err := c.Query(filter)
	if err != nil {
		return 0, err
	}
	docs, err := c.snapshot()
	if err != nil {
		return 0, err
	}
	matched, err := q.FilterParallel(context.Background(), docs, c.db.parallel)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// Aggregate runs pipeline over the collection
func (c *Collection) Aggregate(pipeline []map[string]interface{}) ([]interface{}, error) {
	agg, err := c.db.compiled.Pipeline(pipeline)
	if err != nil {
		return nil, err
	}
	docs, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return agg.Run(docs)
}

// UpdateOne applies expr to the first document matching filter
func (c *Collection) UpdateOne(filter, expr map[string]interface{}, arrayFilters []map[string]interface{}) (*UpdateResult, error) {
	return c.update(filter, expr, arrayFilters, false)
}

// UpdateMany applies expr to every document matching filter. Documents
// updated before a failing one keep their changes.
func (c *Collection) UpdateMany(filter, expr map[string]interface{}, arrayFilters []map[string]interface{}) (*UpdateResult, error) {
	return c.update(filter, expr, arrayFilters, true)
}

// checkUpdate returns the operators of expr in a stable order
func (c *Collection) checkUpdate(expr map[string]interface{}) ([]string, error) {
	if len(expr) == 0 {
		return nil, fmt.Errorf("%w: empty update", core.ErrInvalidExpression)
	}
	idField := c.db.opts.IDKey
	ops := make([]string, 0, len(expr))
	for op, args := range expr {
		if !strings.HasPrefix(op, "$") {
			return nil, fmt.Errorf("%w: update field %q is not an operator", core.ErrInvalidExpression, op)
		}
		fields, ok := args.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %s takes a document of fields", core.ErrInvalidArgument, op)
		}
		for field := range fields {
			if field == idField || strings.HasPrefix(field, idField+".") {
				return nil, fmt.Errorf("%w: %s %s", ErrImmutableID, op, field)
			}
		}
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops, nil
}

func (c *Collection) update(filter, expr map[string]interface{}, arrayFilters []map[string]interface{}, multi bool) (*UpdateResult, error) {
	ops, err := c.checkUpdate(expr)
	if err != nil {
		return nil, err
	}
	q, err := c.Query(filter)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	result := &UpdateResult{}
	var paths []string
	for _, d := range c.docs {
		ok, err := q.Test(d)
		if err != nil {
			return result, err
		}
		if !ok {
			continue
		}
		obj, isDoc := d.(map[string]interface{})
		if !isDoc {
			continue
		}
		result.Matched++

		changed := false
		for _, op := range ops {
			modified, err := c.db.updater.Update(obj, map[string]interface{}{op: expr[op]}, arrayFilters, nil)
			if err != nil {
				return result, err
			}
			if len(modified) > 0 {
				changed = true
				paths = append(paths, modified...)
			}
		}
		if changed {
			result.Modified++
		}
		if !multi {
			break
		}
	}
	result.Paths = distinct(paths)
	c.db.logger.Debug("collection updated", "collection", c.name, "matched", result.Matched, "modified", result.Modified)
	return result, nil
}

// Remove deletes every document matching filter and returns how many
// were removed
func (c *Collection) Remove(filter map[string]interface{}) (int, error) {
	return c.remove(filter, -1)
}

// RemoveOne deletes the first document matching filter
func (c *Collection) RemoveOne(filter map[string]interface{}) (int, error) {
	return c.remove(filter, 1)
}

func (c *Collection) remove(filter map[string]interface{}, limit int) (int, error) {
	q, err := c.Query(filter)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// a bounded removal stops at the first matches, so only full
	// removals are tested up front
	var matched []bool
	if limit < 0 {
		matched, err = q.MatchParallel(context.Background(), c.docs, c.db.parallel)
		if err != nil {
			return 0, err
		}
	}

	kept := make([]interface{}, 0, len(c.docs))
	removed := 0
	for i, d := range c.docs {
		if limit < 0 || removed < limit {
			var ok bool
			if matched != nil {
				ok = matched[i]
			} else if ok, err = q.Test(d); err != nil {
				return 0, err
			}
			if ok {
				if obj, isDoc := d.(map[string]interface{}); isDoc {
					if key, err := c.idKey(obj); err == nil {
						delete(c.ids, key)
					}
				}
				removed++
				continue
			}
		}
		kept = append(kept, d)
	}
	c.docs = kept
	return removed, nil
}

// Stats returns collection statistics
func (c *Collection) Stats() map[string]interface{} {
	return map[string]interface{}{
		"name":  c.name,
		"count": c.Len(),
	}
}

func distinct(paths []string) []string {
	if len(paths) == 0 {
		return nil
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
