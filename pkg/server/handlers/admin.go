package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"
)

// Health returns a health check handler
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]interface{}{
		"status": "healthy",
		"uptime": time.Since(h.startTime).String(),
		"time":   time.Now().Format(time.RFC3339),
	})
}

// GetDatabaseStats returns database, cursor and slow log statistics
func (h *Handlers) GetDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats := h.db.Stats()
	stats["cursors"] = h.cursors.Active()
	if h.slowLog != nil {
		stats["slow_queries"] = h.slowLog.Statistics()
	}
	writeSuccess(w, stats)
}

// ListCollections returns a list of all collections
func (h *Handlers) ListCollections(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]interface{}{
		"collections": h.db.ListCollections(),
	})
}

// SlowQueries returns slow operations, most recent first or, with
// order=slowest, longest first. The n query parameter limits the count.
func (h *Handlers) SlowQueries(w http.ResponseWriter, r *http.Request) {
	if h.slowLog == nil {
		writeSuccess(w, []interface{}{})
		return
	}
	n := 50
	if s := r.URL.Query().Get("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeError(w, &BadRequestError{Message: "n must be a non-negative integer"})
			return
		}
		n = v
	}
	switch r.URL.Query().Get("order") {
	case "", "recent":
		writeSuccess(w, h.slowLog.Recent(n))
	case "slowest":
		writeSuccess(w, h.slowLog.TopSlowest(n))
	default:
		writeError(w, &BadRequestError{Message: "order must be recent or slowest"})
	}
}

// ExportSlowQueries writes every logged slow operation as a JSON array
func (h *Handlers) ExportSlowQueries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.slowLog == nil {
		_, _ = io.WriteString(w, "[]\n")
		return
	}
	if err := h.slowLog.ExportJSON(w); err != nil {
		writeError(w, err)
	}
}

// SetSlowThreshold changes the duration above which operations are
// logged. The body is {"threshold_ms": n}.
func (h *Handlers) SetSlowThreshold(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ms, err := intField(body, "threshold_ms", -1)
	if err != nil {
		writeError(w, err)
		return
	}
	if ms < 0 {
		writeError(w, &BadRequestError{Message: "'threshold_ms' must be a non-negative number"})
		return
	}
	if h.slowLog != nil {
		h.slowLog.SetThreshold(time.Duration(ms) * time.Millisecond)
	}
	writeSuccess(w, map[string]interface{}{"threshold_ms": ms})
}

// ClearSlowQueries empties the slow operation log
func (h *Handlers) ClearSlowQueries(w http.ResponseWriter, r *http.Request) {
	if h.slowLog != nil {
		h.slowLog.Clear()
	}
	writeSuccess(w, map[string]interface{}{"cleared": true})
}
