package query

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelConfig holds configuration for parallel filtering
type ParallelConfig struct {
	// MinDocsForParallel is the minimum number of documents to filter in parallel
	MinDocsForParallel int
	// MaxWorkers is the maximum number of parallel workers (0 = NumCPU)
	MaxWorkers int
	// ChunkSize is the number of documents per worker chunk (0 = auto-calculate)
	ChunkSize int
}

// DefaultParallelConfig returns the default configuration
func DefaultParallelConfig() *ParallelConfig {
	return &ParallelConfig{
		MinDocsForParallel: 1000,
		MaxWorkers:         0,
		ChunkSize:          0,
	}
}

// FilterParallel returns the documents of collection that match q,
// testing chunks of the collection concurrently. Results keep the
// collection order. Collections below the configured threshold are
// filtered sequentially.
//
// The predicates only read documents, so concurrent use is safe as long
// as nothing mutates the collection meanwhile.
func (q *Query) FilterParallel(ctx context.Context, collection []interface{}, config *ParallelConfig) ([]interface{}, error) {
	matched, err := q.MatchParallel(ctx, collection, config)
	if err != nil {
		return nil, err
	}
	results := make([]interface{}, 0)
	for i, ok := range matched {
		if ok {
			results = append(results, collection[i])
		}
	}
	return results, nil
}

// MatchParallel reports for every document of collection whether it
// matches q. Chunks are tested concurrently once the collection reaches
// MinDocsForParallel.
func (q *Query) MatchParallel(ctx context.Context, collection []interface{}, config *ParallelConfig) ([]bool, error) {
	if config == nil {
		config = DefaultParallelConfig()
	}
	matched := make([]bool, len(collection))
	if len(collection) < config.MinDocsForParallel {
		return matched, q.match(collection, matched)
	}

	workers := config.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	chunkSize := config.ChunkSize
	if chunkSize <= 0 {
		chunkSize = (len(collection) + workers - 1) / workers
		if chunkSize < 100 {
			chunkSize = 100
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(collection); start += chunkSize {
		end := min(start+chunkSize, len(collection))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return q.match(collection[start:end], matched[start:end])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matched, nil
}

// match fills out[i] with the result of testing docs[i]
func (q *Query) match(docs []interface{}, out []bool) error {
	for i, doc := range docs {
		ok, err := q.Test(doc)
		if err != nil {
			return err
		}
		out[i] = ok
	}
	return nil
}
