package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/impex"
	"github.com/agebrock/agebrock-mimo/pkg/metrics"
	"github.com/agebrock/agebrock-mimo/pkg/mimo"
)

// parseID reads a document id from the URL. 24 hex digits are an
// ObjectID, integers are numbers, anything else is a string.
func parseID(s string) interface{} {
	if len(s) == 24 {
		if oid, err := document.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func (h *Handlers) idFilter(r *http.Request) (map[string]interface{}, error) {
	id := chi.URLParam(r, "id")
	if id == "" {
		return nil, &BadRequestError{Message: "document ID is required"}
	}
	return map[string]interface{}{h.db.Options().IDKey: parseID(id)}, nil
}

// InsertDocuments inserts one document, a JSON array of documents or
// NDJSON. The collection is created when missing.
func (h *Handlers) InsertDocuments(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	if name == "" {
		writeError(w, &BadRequestError{Message: "collection name is required"})
		return
	}
	docs, err := impex.NewJSONImporter().Import(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(docs) == 0 {
		writeError(w, &BadRequestError{Message: "request body is empty"})
		return
	}

	start := time.Now()
	batch := make([]map[string]interface{}, len(docs))
	for i, d := range docs {
		batch[i] = d.(map[string]interface{})
	}
	ids, err := h.db.Collection(name).InsertMany(batch)
	h.observe(r, metrics.SlowQueryEntry{Operation: "insert", Collection: name, Returned: len(ids)}, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]interface{}{
		"collection": name,
		"ids":        ids,
		"inserted":   len(ids),
	})
}

// GetDocument retrieves a document by ID
func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	coll, err := h.collection(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter, err := h.idFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	doc, err := coll.FindOne(filter, nil)
	h.observe(r, metrics.SlowQueryEntry{Operation: "find", Collection: coll.Name(), Filter: filter, Returned: 1}, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, doc)
}

// UpdateDocument applies the update expression in the body to the
// document with the given ID
func (h *Handlers) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	coll, err := h.collection(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter, err := h.idFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	expr, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	res, err := coll.UpdateOne(filter, expr, nil)
	h.observe(r, metrics.SlowQueryEntry{Operation: "update", Collection: coll.Name(), Filter: filter, Update: expr}, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Matched == 0 {
		writeError(w, mimo.ErrDocumentNotFound)
		return
	}
	writeSuccess(w, res)
}

// DeleteDocument deletes the document with the given ID
func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	coll, err := h.collection(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter, err := h.idFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	n, err := coll.RemoveOne(filter)
	h.observe(r, metrics.SlowQueryEntry{Operation: "remove", Collection: coll.Name(), Filter: filter, Returned: n}, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	if n == 0 {
		writeError(w, mimo.ErrDocumentNotFound)
		return
	}
	writeSuccess(w, map[string]interface{}{"deleted": n})
}
