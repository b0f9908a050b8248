package metrics

import (
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// SlowQueryLog keeps the most recent operations that took longer than a
// threshold and reports each one to a logger
type SlowQueryLog struct {
	threshold  time.Duration
	maxEntries int
	logger     *slog.Logger
	entries    []SlowQueryEntry
	mu         sync.RWMutex
	enabled    bool
}

// SlowQueryEntry represents a single slow operation
type SlowQueryEntry struct {
	Timestamp  time.Time                `json:"timestamp"`
	Duration   time.Duration            `json:"duration_ns"`
	DurationMS float64                  `json:"duration_ms"`
	Operation  string                   `json:"operation"` // find, count, aggregate, update, remove
	Collection string                   `json:"collection"`
	Filter     map[string]interface{}   `json:"filter,omitempty"`
	Pipeline   []map[string]interface{} `json:"pipeline,omitempty"`
	Update     map[string]interface{}   `json:"update,omitempty"`
	Returned   int                      `json:"returned"`
	RequestID  string                   `json:"request_id,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// SlowQueryLogConfig holds configuration for the slow query log
type SlowQueryLogConfig struct {
	Threshold  time.Duration // Minimum duration to log (default: 100ms)
	MaxEntries int           // Maximum in-memory entries (default: 1000)
	Enabled    bool
	Logger     *slog.Logger // Receives a warning per entry, nil discards
}

// DefaultSlowQueryLogConfig returns default configuration
func DefaultSlowQueryLogConfig() *SlowQueryLogConfig {
	return &SlowQueryLogConfig{
		Threshold:  100 * time.Millisecond,
		MaxEntries: 1000,
		Enabled:    true,
	}
}

// NewSlowQueryLog creates a new slow query log
func NewSlowQueryLog(config *SlowQueryLogConfig) *SlowQueryLog {
	if config == nil {
		config = DefaultSlowQueryLogConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxEntries := config.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &SlowQueryLog{
		threshold:  config.Threshold,
		maxEntries: maxEntries,
		logger:     logger,
		entries:    make([]SlowQueryEntry, 0, maxEntries),
		enabled:    config.Enabled,
	}
}

// Record stores entry if it took at least the threshold. It reports
// whether the entry was kept.
func (l *SlowQueryLog) Record(entry SlowQueryEntry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || entry.Duration < l.threshold {
		return false
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.DurationMS = float64(entry.Duration.Nanoseconds()) / 1e6

	if len(l.entries) >= l.maxEntries {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, entry)

	l.logger.Warn("slow operation",
		"operation", entry.Operation,
		"collection", entry.Collection,
		"duration_ms", entry.DurationMS,
		"returned", entry.Returned,
		"request_id", entry.RequestID)
	return true
}

// Entries returns a copy of every entry, oldest first
func (l *SlowQueryLog) Entries() []SlowQueryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]SlowQueryEntry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// Recent returns the n most recent entries
func (l *SlowQueryLog) Recent(n int) []SlowQueryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.entries) {
		n = len(l.entries)
	}
	entries := make([]SlowQueryEntry, n)
	copy(entries, l.entries[len(l.entries)-n:])
	return entries
}

// TopSlowest returns the n slowest entries, slowest first
func (l *SlowQueryLog) TopSlowest(n int) []SlowQueryEntry {
	entries := l.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Duration > entries[j].Duration
	})
	if n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// Statistics summarises the logged entries
func (l *SlowQueryLog) Statistics() map[string]interface{} {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.entries) == 0 {
		return map[string]interface{}{
			"total_entries": 0,
			"threshold_ms":  l.threshold.Milliseconds(),
		}
	}

	var total, maxDuration time.Duration
	minDuration := l.entries[0].Duration
	byOperation := make(map[string]int)
	byCollection := make(map[string]int)
	for _, entry := range l.entries {
		total += entry.Duration
		maxDuration = max(maxDuration, entry.Duration)
		minDuration = min(minDuration, entry.Duration)
		byOperation[entry.Operation]++
		if entry.Collection != "" {
			byCollection[entry.Collection]++
		}
	}
	avg := total / time.Duration(len(l.entries))

	return map[string]interface{}{
		"total_entries":   len(l.entries),
		"threshold_ms":    l.threshold.Milliseconds(),
		"avg_duration_ms": float64(avg.Nanoseconds()) / 1e6,
		"min_duration_ms": float64(minDuration.Nanoseconds()) / 1e6,
		"max_duration_ms": float64(maxDuration.Nanoseconds()) / 1e6,
		"by_operation":    byOperation,
		"by_collection":   byCollection,
	}
}

// SetThreshold changes the minimum logged duration
func (l *SlowQueryLog) SetThreshold(threshold time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.threshold = threshold
}

// Clear removes all entries
func (l *SlowQueryLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = l.entries[:0]
}

// ExportJSON writes the entries as a JSON array
func (l *SlowQueryLog) ExportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l.Entries())
}
