package query

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/lazy"
)

var (
	// ErrCursorNotFound is returned when a cursor id is unknown
	ErrCursorNotFound = errors.New("cursor not found")

	// ErrCursorTimedOut is returned when a cursor was idle for too long
	ErrCursorTimedOut = errors.New("cursor timed out")
)

// Cursor iterates over the results of a query. Sort, skip, limit and the
// projection are applied through the $sort, $skip, $limit and $project
// pipeline operators when results are first pulled.
type Cursor struct {
	id         string
	source     *lazy.Iterator
	predicate  core.Predicate
	projection map[string]interface{}
	ctx        *core.Context

	sort  interface{}
	skip  int
	limit int

	result       *lazy.Iterator
	buffer       []interface{}
	lastAccessed time.Time
	mu           sync.Mutex
}

// NewCursor creates a cursor over the documents of source accepted by
// predicate
func NewCursor(source *lazy.Iterator, predicate core.Predicate, projection map[string]interface{}, ctx *core.Context) *Cursor {
	return &Cursor{
		id:           uuid.NewString(),
		source:       source,
		predicate:    predicate,
		projection:   projection,
		ctx:          ctx,
		limit:        -1,
		lastAccessed: time.Now(),
	}
}

// ID returns the cursor's unique identifier
func (c *Cursor) ID() string {
	return c.id
}

// Sort orders results by spec, a document.D or a map of field to 1 or -1
func (c *Cursor) Sort(spec interface{}) *Cursor {
	c.sort = spec
	return c
}

// Skip skips the first n results
func (c *Cursor) Skip(n int) *Cursor {
	c.skip = n
	return c
}

// Limit returns at most n results
func (c *Cursor) Limit(n int) *Cursor {
	c.limit = n
	return c
}

// Collation sets the collation used for sorting
func (c *Cursor) Collation(spec *core.Collation) *Cursor {
	opts := c.ctx.Options().Clone()
	opts.Collation = spec
	c.ctx = c.ctx.WithOptions(opts)
	return c
}

func (c *Cursor) stage(name string, it *lazy.Iterator, value interface{}) (*lazy.Iterator, error) {
	fn, ok := c.ctx.PipelineOperator(name)
	if !ok {
		return nil, fmt.Errorf("%w: pipeline operator %s", core.ErrUnknownOperator, name)
	}
	return fn(it, value, c.ctx)
}

func (c *Cursor) fetch() (*lazy.Iterator, error) {
	if c.result != nil {
		return c.result, nil
	}

	it := c.source.Filter(func(v interface{}) (bool, error) {
		return c.predicate(v)
	})
	mode := c.ctx.Options().ProcessingMode
	if mode.Has(core.CloneInput) {
		it = it.Map(document.CloneDeep)
	}

	var err error
	if c.sort != nil {
		if it, err = c.stage("$sort", it, c.sort); err != nil {
			return nil, err
		}
	}
	if c.skip > 0 {
		if it, err = c.stage("$skip", it, c.skip); err != nil {
			return nil, err
		}
	}
	if c.limit >= 0 {
		if it, err = c.stage("$limit", it, c.limit); err != nil {
			return nil, err
		}
	}
	if len(c.projection) > 0 {
		if it, err = c.stage("$project", it, c.projection); err != nil {
			return nil, err
		}
	}
	if mode.Has(core.CloneOutput) {
		it = it.Map(document.CloneDeep)
	}

	c.result = it
	return it, nil
}

// Next returns the next result. ok is false once the cursor is
// exhausted.
func (c *Cursor) Next() (interface{}, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAccessed = time.Now()

	if n := len(c.buffer); n > 0 {
		v := c.buffer[0]
		c.buffer = c.buffer[1:]
		return v, true, nil
	}
	it, err := c.fetch()
	if err != nil {
		return nil, false, err
	}
	return it.Next()
}

// HasNext reports whether another result is available. The result is
// buffered for the following Next.
func (c *Cursor) HasNext() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.buffer) > 0 {
		return true, nil
	}
	it, err := c.fetch()
	if err != nil {
		return false, err
	}
	v, ok, err := it.Next()
	if err != nil || !ok {
		return false, err
	}
	c.buffer = append(c.buffer, v)
	return true, nil
}

// NextBatch returns up to size results
func (c *Cursor) NextBatch(size int) ([]interface{}, error) {
	batch := make([]interface{}, 0, size)
	for len(batch) < size {
		v, ok, err := c.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		batch = append(batch, v)
	}
	return batch, nil
}

// All returns every remaining result
func (c *Cursor) All() ([]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastAccessed = time.Now()

	it, err := c.fetch()
	if err != nil {
		return nil, err
	}
	rest, err := it.Value()
	if err != nil {
		return nil, err
	}
	out := append(c.buffer, rest...)
	c.buffer = nil
	return out, nil
}

// Count returns the number of remaining results
func (c *Cursor) Count() (int, error) {
	all, err := c.All()
	return len(all), err
}

// ForEach calls fn for every remaining result
func (c *Cursor) ForEach(fn func(interface{}) error) error {
	all, err := c.All()
	if err != nil {
		return err
	}
	for _, v := range all {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// Map returns fn applied to every remaining result
func (c *Cursor) Map(fn func(interface{}) (interface{}, error)) ([]interface{}, error) {
	all, err := c.All()
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(all))
	for i, v := range all {
		if out[i], err = fn(v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Close releases the cursor's source
func (c *Cursor) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source.Close()
	c.buffer = nil
	c.result = lazy.Empty()
}

// IdleSince returns the time of the last access
func (c *Cursor) IdleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastAccessed
}

// CursorManager keeps cursors that are consumed across several requests
type CursorManager struct {
	cursors map[string]*Cursor
	timeout time.Duration
	mu      sync.RWMutex
}

// NewCursorManager creates a cursor manager. Cursors idle for longer than
// timeout are dropped.
func NewCursorManager(timeout time.Duration) *CursorManager {
	return &CursorManager{
		cursors: make(map[string]*Cursor),
		timeout: timeout,
	}
}

// Add registers a cursor
func (cm *CursorManager) Add(c *Cursor) {
	cm.mu.Lock()
	cm.cursors[c.ID()] = c
	cm.mu.Unlock()
}

// Get retrieves a cursor by id
func (cm *CursorManager) Get(id string) (*Cursor, error) {
	cm.mu.RLock()
	c, ok := cm.cursors[id]
	cm.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCursorNotFound, id)
	}
	if cm.timeout > 0 && time.Since(c.IdleSince()) > cm.timeout {
		cm.Close(id)
		return nil, fmt.Errorf("%w: %s", ErrCursorTimedOut, id)
	}
	return c, nil
}

// Close closes and removes a cursor
func (cm *CursorManager) Close(id string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	c, ok := cm.cursors[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCursorNotFound, id)
	}
	c.Close()
	delete(cm.cursors, id)
	return nil
}

// CleanupTimedOut removes idle cursors and returns how many were removed
func (cm *CursorManager) CleanupTimedOut() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	removed := 0
	for id, c := range cm.cursors {
		if cm.timeout > 0 && time.Since(c.IdleSince()) > cm.timeout {
			c.Close()
			delete(cm.cursors, id)
			removed++
		}
	}
	return removed
}

// Active returns the number of open cursors
func (cm *CursorManager) Active() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.cursors)
}
