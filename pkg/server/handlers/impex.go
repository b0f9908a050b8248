package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agebrock/agebrock-mimo/pkg/compression"
	"github.com/agebrock/agebrock-mimo/pkg/impex"
	"github.com/agebrock/agebrock-mimo/pkg/metrics"
)

var contentTypes = map[impex.Format]string{
	impex.FormatJSON:   "application/json",
	impex.FormatNDJSON: "application/x-ndjson",
	impex.FormatCSV:    "text/csv",
}

func formatParam(r *http.Request) (impex.Format, error) {
	f := impex.Format(strings.ToLower(r.URL.Query().Get("format")))
	if f == "" {
		return impex.FormatJSON, nil
	}
	if _, ok := contentTypes[f]; !ok {
		return "", &BadRequestError{Message: "format must be json, ndjson or csv"}
	}
	return f, nil
}

func fieldsParam(r *http.Request, name string) []string {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// ImportDocuments loads documents in the format given by the format query
// parameter. A Content-Encoding of gzip, zlib, zstd or snappy is decoded.
// The collection is created when missing.
func (h *Handlers) ImportDocuments(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	format, err := formatParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	encoding := r.Header.Get("Content-Encoding")
	if encoding == "identity" {
		encoding = ""
	}
	algo, err := compression.ParseAlgorithm(encoding)
	if err != nil {
		writeError(w, &BadRequestError{Message: err.Error()})
		return
	}
	body, err := compression.NewReader(r.Body, algo)
	if err != nil {
		writeError(w, &BadRequestError{Message: err.Error()})
		return
	}
	defer body.Close()

	docs, err := impex.Import(body, format, impex.Options{Headers: fieldsParam(r, "headers")})
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	batch := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		if m, ok := d.(map[string]interface{}); ok {
			batch = append(batch, m)
		}
	}
	ids, err := h.db.Collection(name).InsertMany(batch)
	h.observe(r, metrics.SlowQueryEntry{Operation: "insert", Collection: name, Returned: len(ids)}, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]interface{}{"collection": name, "inserted": len(ids)})
}

// ExportDocuments writes every document of the collection in the
// requested format, compressed when the compress query parameter names
// an algorithm
func (h *Handlers) ExportDocuments(w http.ResponseWriter, r *http.Request) {
	coll, err := h.collection(r)
	if err != nil {
		writeError(w, err)
		return
	}
	format, err := formatParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	algo, err := compression.ParseAlgorithm(r.URL.Query().Get("compress"))
	if err != nil {
		writeError(w, &BadRequestError{Message: err.Error()})
		return
	}
	docs, err := coll.All()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	if algo != compression.AlgorithmNone {
		w.Header().Set("Content-Encoding", algo.String())
	}
	out, err := compression.NewWriter(w, &compression.Config{Algorithm: algo})
	if err != nil {
		writeError(w, err)
		return
	}
	// headers are sent with the first write, so failures past this point
	// can only end the response
	if err := impex.Export(out, docs, format, impex.Options{Fields: fieldsParam(r, "fields")}); err != nil {
		_ = out.Close()
		return
	}
	_ = out.Close()
}
