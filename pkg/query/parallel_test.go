package query_test

import (
	"context"
	"testing"

	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

func TestFilterParallelKeepsOrder(t *testing.T) {
	docs := make([]interface{}, 1000)
	for i := range docs {
		docs[i] = obj{"n": i, "even": i%2 == 0}
	}
	q := mustQuery(t, obj{"even": true, "n": obj{"$gte": 100}})

	config := &query.ParallelConfig{MinDocsForParallel: 10, MaxWorkers: 4, ChunkSize: 37}
	parallel, err := q.FilterParallel(context.Background(), docs, config)
	if err != nil {
		t.Fatalf("FilterParallel failed: %v", err)
	}
	sequential, err := q.Find(docs, nil).All()
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}

	if len(parallel) != 450 {
		t.Fatalf("Expected 450 results, got %d", len(parallel))
	}
	if !document.Equal(parallel, sequential) {
		t.Error("Expected parallel results in collection order")
	}
}

func TestFilterParallelBelowThreshold(t *testing.T) {
	docs := []interface{}{obj{"a": 1}, obj{"a": 2}}
	results, err := mustQuery(t, obj{"a": 2}).FilterParallel(context.Background(), docs, nil)
	if err != nil {
		t.Fatalf("FilterParallel failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected 1 result, got %d", len(results))
	}
}

func TestFilterParallelCancelled(t *testing.T) {
	docs := make([]interface{}, 500)
	for i := range docs {
		docs[i] = obj{"n": i}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	config := &query.ParallelConfig{MinDocsForParallel: 1, MaxWorkers: 2, ChunkSize: 100}
	if _, err := mustQuery(t, obj{}).FilterParallel(ctx, docs, config); err == nil {
		t.Error("Expected error from cancelled context")
	}
}

func TestMatchParallelFlagsEveryDocument(t *testing.T) {
	docs := make([]interface{}, 300)
	for i := range docs {
		docs[i] = obj{"n": i}
	}
	q := mustQuery(t, obj{"n": obj{"$mod": []interface{}{3, 0}}})

	config := &query.ParallelConfig{MinDocsForParallel: 10, MaxWorkers: 3, ChunkSize: 50}
	matched, err := q.MatchParallel(context.Background(), docs, config)
	if err != nil {
		t.Fatalf("MatchParallel failed: %v", err)
	}
	if len(matched) != len(docs) {
		t.Fatalf("Expected %d flags, got %d", len(docs), len(matched))
	}
	for i, ok := range matched {
		if ok != (i%3 == 0) {
			t.Errorf("doc %d: expected match=%v", i, i%3 == 0)
		}
	}
}
