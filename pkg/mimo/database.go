// Package mimo keeps named in-memory collections of documents and runs
// queries, aggregations and updates against them.
package mimo

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/agebrock/agebrock-mimo/pkg/cache"
	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/operators"
	"github.com/agebrock/agebrock-mimo/pkg/query"
	"github.com/agebrock/agebrock-mimo/pkg/update"
)

// Config holds database configuration
type Config struct {
	// Options are used for every query, pipeline and update. A nil
	// CollectionResolver is replaced by one reading this database.
	Options *core.Options

	// CacheSize is the number of compiled queries and pipelines kept
	CacheSize int

	// CacheTTL expires compiled entries, zero keeps them until evicted
	CacheTTL time.Duration

	// Isolated makes readers work on deep copies taken under the
	// collection lock, so stored documents can be updated while earlier
	// results are still being read
	Isolated bool

	// Parallel controls when Count and Remove test documents
	// concurrently. Nil uses query.DefaultParallelConfig.
	Parallel *query.ParallelConfig
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Options:   core.DefaultOptions(),
		CacheSize: 256,
		CacheTTL:  10 * time.Minute,
	}
}

// Database is a set of named collections sharing options and a compiled
// query cache
type Database struct {
	collections map[string]*Collection
	opts        *core.Options
	compiled    *cache.Compiled
	updater     *update.Updater
	logger      *slog.Logger
	isolated    bool
	parallel    *query.ParallelConfig
	mu          sync.RWMutex
}

// Open creates an empty database
func Open(config *Config) (*Database, error) {
	if config == nil {
		config = DefaultConfig()
	}
	opts := config.Options
	if opts == nil {
		opts = core.DefaultOptions()
	}
	opts = opts.Clone()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.UseGlobalRegistry {
		if _, err := operators.Default(); err != nil {
			return nil, fmt.Errorf("failed to install operators: %w", err)
		}
	}

	db := &Database{
		collections: make(map[string]*Collection),
		logger:      opts.Logger,
		isolated:    config.Isolated,
		parallel:    config.Parallel,
	}
	if db.parallel == nil {
		db.parallel = query.DefaultParallelConfig()
	}
	if db.logger == nil {
		db.logger = slog.New(slog.DiscardHandler)
	}
	if opts.CollectionResolver == nil {
		opts.CollectionResolver = db.resolve
	}
	db.opts = opts

	updater, err := update.NewUpdater(opts)
	if err != nil {
		return nil, err
	}
	db.updater = updater
	db.compiled = cache.NewCompiled(opts, config.CacheSize, config.CacheTTL)
	return db, nil
}

// resolve serves $lookup and $unionWith from the database's collections
func (db *Database) resolve(name string) ([]interface{}, error) {
	db.mu.RLock()
	coll, ok := db.collections[name]
	db.mu.RUnlock()
	if !ok {
		return []interface{}{}, nil
	}
	return coll.snapshot()
}

// Options returns the options queries run with
func (db *Database) Options() *core.Options {
	return db.opts
}

// Collection returns a collection, creating it if it doesn't exist
func (db *Database) Collection(name string) *Collection {
	db.mu.Lock()
	defer db.mu.Unlock()

	if coll, exists := db.collections[name]; exists {
		return coll
	}
	coll := newCollection(name, db)
	db.collections[name] = coll
	db.logger.Debug("collection created", "collection", name)
	return coll
}

// GetCollection returns an existing collection
func (db *Database) GetCollection(name string) (*Collection, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	coll, ok := db.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return coll, nil
}

// CreateCollection explicitly creates a collection
func (db *Database) CreateCollection(name string) (*Collection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.collections[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	coll := newCollection(name, db)
	db.collections[name] = coll
	db.logger.Debug("collection created", "collection", name)
	return coll, nil
}

// DropCollection drops a collection
func (db *Database) DropCollection(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.collections[name]; !exists {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	delete(db.collections, name)
	db.logger.Debug("collection dropped", "collection", name)
	return nil
}

// ListCollections returns all collection names in sorted order
func (db *Database) ListCollections() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()

	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns database statistics
func (db *Database) Stats() map[string]interface{} {
	names := db.ListCollections()
	docs := 0
	for _, name := range names {
		if coll, err := db.GetCollection(name); err == nil {
			docs += coll.Len()
		}
	}
	return map[string]interface{}{
		"collections": len(names),
		"documents":   docs,
		"cache":       db.compiled.Stats(),
	}
}
