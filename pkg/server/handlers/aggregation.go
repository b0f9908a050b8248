package handlers

import (
	"net/http"
	"time"

	"github.com/agebrock/agebrock-mimo/pkg/metrics"
)

// Aggregate executes an aggregation pipeline
func (h *Handlers) Aggregate(w http.ResponseWriter, r *http.Request) {
	coll, err := h.collection(r)
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	pipeline, err := docsField(body, "pipeline")
	if err != nil {
		writeError(w, err)
		return
	}
	if len(pipeline) == 0 {
		writeError(w, &BadRequestError{Message: "pipeline is required"})
		return
	}

	start := time.Now()
	docs, err := coll.Aggregate(pipeline)
	h.observe(r, metrics.SlowQueryEntry{Operation: "aggregate", Collection: coll.Name(), Pipeline: pipeline, Returned: len(docs)}, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccessWithCount(w, docs, len(docs))
}
