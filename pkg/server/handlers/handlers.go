// Package handlers implements the HTTP API of the playground server
package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/agebrock/agebrock-mimo/pkg/compression"
	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/impex"
	"github.com/agebrock/agebrock-mimo/pkg/metrics"
	"github.com/agebrock/agebrock-mimo/pkg/mimo"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

// DefaultBatchSize is the number of documents a cursor batch returns when
// the request does not say
const DefaultBatchSize = 101

// Handlers holds the database and provides HTTP handlers
type Handlers struct {
	db        *mimo.Database
	cursors   *query.CursorManager
	collector *metrics.Collector
	slowLog   *metrics.SlowQueryLog
	startTime time.Time
}

// New creates a new Handlers instance. collector and slowLog may be nil.
func New(db *mimo.Database, cursors *query.CursorManager, collector *metrics.Collector, slowLog *metrics.SlowQueryLog) *Handlers {
	return &Handlers{
		db:        db,
		cursors:   cursors,
		collector: collector,
		slowLog:   slowLog,
		startTime: time.Now(),
	}
}

// observe records an engine operation in the metrics and the slow log
func (h *Handlers) observe(r *http.Request, entry metrics.SlowQueryEntry, start time.Time, err error) {
	entry.Duration = time.Since(start)
	if err != nil {
		entry.Error = err.Error()
	}
	if h.collector != nil {
		returned := entry.Returned
		if err != nil {
			returned = -1
		}
		h.collector.RecordOperation(entry.Operation, entry.Collection, entry.Duration, returned, err)
	}
	if h.slowLog != nil {
		entry.RequestID = middleware.GetReqID(r.Context())
		h.slowLog.Record(entry)
	}
}

// readBody decodes a JSON or YAML request body into a document
func readBody(r *http.Request) (map[string]interface{}, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, &BadRequestError{Message: "failed to read request body"}
	}
	defer r.Body.Close()

	if len(body) == 0 {
		return nil, &BadRequestError{Message: "request body is empty"}
	}
	m, err := impex.DecodeCriteria(body)
	if err != nil {
		return nil, &BadRequestError{Message: err.Error()}
	}
	return m, nil
}

// docField returns body[key] as a document. A missing key yields nil.
func docField(body map[string]interface{}, key string) (map[string]interface{}, error) {
	v, ok := body[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, &BadRequestError{Message: fmt.Sprintf("'%s' must be a document", key)}
	}
	return m, nil
}

// docsField returns body[key] as a list of documents
func docsField(body map[string]interface{}, key string) ([]map[string]interface{}, error) {
	v, ok := body[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, &BadRequestError{Message: fmt.Sprintf("'%s' must be an array of documents", key)}
	}
	out := make([]map[string]interface{}, len(list))
	for i, item := range list {
		if out[i], ok = item.(map[string]interface{}); !ok {
			return nil, &BadRequestError{Message: fmt.Sprintf("'%s' element %d is not a document", key, i)}
		}
	}
	return out, nil
}

// intField returns body[key] as an int, or def when missing
func intField(body map[string]interface{}, key string, def int) (int, error) {
	v, ok := body[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, &BadRequestError{Message: fmt.Sprintf("'%s' must be a number", key)}
}

// collationField decodes body["collation"]
func collationField(body map[string]interface{}) (*core.Collation, error) {
	m, err := docField(body, "collation")
	if err != nil || m == nil {
		return nil, err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, &BadRequestError{Message: "invalid collation"}
	}
	var c core.Collation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, &BadRequestError{Message: "invalid collation: " + err.Error()}
	}
	return &c, nil
}

// BadRequestError is returned for malformed requests
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

// classify maps an error to an HTTP status and error type
func classify(err error) (int, string) {
	var badReq *BadRequestError
	var maxErr *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var csvErr *csv.ParseError
	switch {
	case errors.As(err, &badReq), errors.As(err, &syntaxErr), errors.As(err, &typeErr),
		errors.As(err, &csvErr), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, "BadRequest"
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "RequestTooLarge"
	case errors.Is(err, mimo.ErrCollectionNotFound):
		return http.StatusNotFound, "CollectionNotFound"
	case errors.Is(err, mimo.ErrDocumentNotFound):
		return http.StatusNotFound, "DocumentNotFound"
	case errors.Is(err, query.ErrCursorNotFound):
		return http.StatusNotFound, "CursorNotFound"
	case errors.Is(err, query.ErrCursorTimedOut):
		return http.StatusGone, "CursorTimedOut"
	case errors.Is(err, mimo.ErrDuplicateKey), errors.Is(err, mimo.ErrCollectionExists):
		return http.StatusConflict, "DuplicateKey"
	case errors.Is(err, core.ErrScriptDisabled):
		return http.StatusForbidden, "ScriptDisabled"
	case errors.Is(err, mimo.ErrImmutableID),
		errors.Is(err, core.ErrUnknownOperator),
		errors.Is(err, core.ErrInvalidExpression),
		errors.Is(err, core.ErrInvalidArgument),
		errors.Is(err, core.ErrMixedProjection),
		errors.Is(err, core.ErrUndefinedVariable),
		errors.Is(err, core.ErrInvalidOptions),
		errors.Is(err, impex.ErrInvalidDocument),
		errors.Is(err, impex.ErrInvalidSpec),
		errors.Is(err, impex.ErrUnsupportedFormat),
		errors.Is(err, compression.ErrUnknownAlgorithm):
		return http.StatusBadRequest, "InvalidQuery"
	}
	return http.StatusInternalServerError, "InternalError"
}

// writeError writes an error response with appropriate HTTP status code
func writeError(w http.ResponseWriter, err error) {
	statusCode, errorType := classify(err)
	writeJSON(w, statusCode, map[string]interface{}{
		"ok":      false,
		"error":   errorType,
		"message": err.Error(),
		"code":    statusCode,
	})
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, result interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"result": impex.ToExtended(result),
	})
}

// writeSuccessWithCount writes a success response with count
func writeSuccessWithCount(w http.ResponseWriter, result []interface{}, count int) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"result": impex.ToExtended(result),
		"count":  count,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
