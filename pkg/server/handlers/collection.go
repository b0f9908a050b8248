package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agebrock/agebrock-mimo/pkg/mimo"
)

// collection returns the collection named in the URL
func (h *Handlers) collection(r *http.Request) (*mimo.Collection, error) {
	name := chi.URLParam(r, "collection")
	if name == "" {
		return nil, &BadRequestError{Message: "collection name is required"}
	}
	return h.db.GetCollection(name)
}

// CreateCollection creates a new collection
func (h *Handlers) CreateCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	if name == "" {
		writeError(w, &BadRequestError{Message: "collection name is required"})
		return
	}
	if _, err := h.db.CreateCollection(name); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]interface{}{"collection": name})
}

// DropCollection deletes a collection and all its documents
func (h *Handlers) DropCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	if err := h.db.DropCollection(name); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]interface{}{"collection": name})
}

// GetCollectionStats returns statistics for a specific collection
func (h *Handlers) GetCollectionStats(w http.ResponseWriter, r *http.Request) {
	coll, err := h.collection(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, coll.Stats())
}
