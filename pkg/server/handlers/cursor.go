package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agebrock/agebrock-mimo/pkg/impex"
	"github.com/agebrock/agebrock-mimo/pkg/metrics"
)

// CreateCursorResponse represents a cursor creation response
type CreateCursorResponse struct {
	CursorID  string `json:"cursorId"`
	BatchSize int    `json:"batchSize"`
}

// FetchBatchResponse represents a batch fetch response
type FetchBatchResponse struct {
	Documents []interface{} `json:"documents"`
	HasMore   bool          `json:"hasMore"`
}

// CreateCursor opens a server-side cursor. The body takes "collection"
// plus the fields of a search.
func (h *Handlers) CreateCursor(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	name, _ := body["collection"].(string)
	if name == "" {
		writeError(w, &BadRequestError{Message: "collection name is required"})
		return
	}
	coll, err := h.db.GetCollection(name)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := parseFind(body)
	if err != nil {
		writeError(w, err)
		return
	}
	batchSize, err := intField(body, "batchSize", DefaultBatchSize)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	cur, err := req.open(coll, body)
	h.observe(r, metrics.SlowQueryEntry{Operation: "cursor", Collection: name, Filter: req.filter}, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cursors.Add(cur)
	h.cursorsChanged()

	writeSuccess(w, CreateCursorResponse{CursorID: cur.ID(), BatchSize: batchSize})
}

// FetchBatch returns the next batch of a cursor. The size query parameter
// overrides the default batch size. An exhausted cursor is closed.
func (h *Handlers) FetchBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cursorId")
	size := DefaultBatchSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, &BadRequestError{Message: "size must be a positive integer"})
			return
		}
		size = n
	}

	cur, err := h.cursors.Get(id)
	if err != nil {
		writeError(w, err)
		h.cursorsChanged()
		return
	}
	docs, err := cur.NextBatch(size)
	if err != nil {
		writeError(w, err)
		return
	}
	more, err := cur.HasNext()
	if err != nil {
		writeError(w, err)
		return
	}
	if !more {
		_ = h.cursors.Close(id)
		h.cursorsChanged()
	}

	docs, _ = impex.ToExtended(docs).([]interface{})
	writeSuccess(w, FetchBatchResponse{Documents: docs, HasMore: more})
}

// CloseCursor closes and removes a cursor
func (h *Handlers) CloseCursor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cursorId")
	if err := h.cursors.Close(id); err != nil {
		writeError(w, err)
		return
	}
	h.cursorsChanged()
	writeSuccess(w, map[string]bool{"closed": true})
}

func (h *Handlers) cursorsChanged() {
	if h.collector != nil {
		h.collector.SetActiveCursors(h.cursors.Active())
	}
}
