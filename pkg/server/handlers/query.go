package handlers

import (
	"net/http"
	"time"

	"github.com/agebrock/agebrock-mimo/pkg/metrics"
	"github.com/agebrock/agebrock-mimo/pkg/mimo"
	"github.com/agebrock/agebrock-mimo/pkg/query"
)

// findRequest holds the fields shared by search and cursor requests
type findRequest struct {
	filter     map[string]interface{}
	projection map[string]interface{}
	sort       interface{}
	skip       int
	limit      int
}

func parseFind(body map[string]interface{}) (*findRequest, error) {
	req := &findRequest{sort: body["sort"]}
	var err error
	if req.filter, err = docField(body, "filter"); err != nil {
		return nil, err
	}
	if req.projection, err = docField(body, "projection"); err != nil {
		return nil, err
	}
	if req.skip, err = intField(body, "skip", 0); err != nil {
		return nil, err
	}
	if req.limit, err = intField(body, "limit", -1); err != nil {
		return nil, err
	}
	if req.skip < 0 {
		return nil, &BadRequestError{Message: "'skip' must not be negative"}
	}
	return req, nil
}

// open builds a cursor over coll for req
func (req *findRequest) open(coll *mimo.Collection, body map[string]interface{}) (*query.Cursor, error) {
	collation, err := collationField(body)
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(req.filter, req.projection)
	if err != nil {
		return nil, err
	}
	if req.sort != nil {
		cur.Sort(req.sort)
	}
	if collation != nil {
		cur.Collation(collation)
	}
	if req.skip > 0 {
		cur.Skip(req.skip)
	}
	if req.limit >= 0 {
		cur.Limit(req.limit)
	}
	return cur, nil
}

// SearchDocuments runs a query with projection, sort, collation and
// pagination
func (h *Handlers) SearchDocuments(w http.ResponseWriter, r *http.Request) {
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
	req, err := parseFind(body)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	var docs []interface{}
	cur, err := req.open(coll, body)
	if err == nil {
		docs, err = cur.All()
	}
	h.observe(r, metrics.SlowQueryEntry{Operation: "find", Collection: coll.Name(), Filter: req.filter, Returned: len(docs)}, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccessWithCount(w, docs, len(docs))
}

func (h *Handlers) count(w http.ResponseWriter, r *http.Request, filter map[string]interface{}) {
	coll, err := h.collection(r)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	n, err := coll.Count(filter)
	h.observe(r, metrics.SlowQueryEntry{Operation: "count", Collection: coll.Name(), Filter: filter, Returned: n}, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]interface{}{
		"collection": coll.Name(),
		"count":      n,
	})
}

// CountDocuments counts all documents in a collection
func (h *Handlers) CountDocuments(w http.ResponseWriter, r *http.Request) {
	h.count(w, r, nil)
}

// CountDocumentsWithFilter counts documents matching a filter
func (h *Handlers) CountDocumentsWithFilter(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	filter, err := docField(body, "filter")
	if err != nil {
		writeError(w, err)
		return
	}
	h.count(w, r, filter)
}

// UpdateDocuments applies an update expression to the first or, with
// "multi", every document matching "filter"
func (h *Handlers) UpdateDocuments(w http.ResponseWriter, r *http.Request) {
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
	filter, err := docField(body, "filter")
	if err != nil {
		writeError(w, err)
		return
	}
	expr, err := docField(body, "update")
	if err != nil {
		writeError(w, err)
		return
	}
	if expr == nil {
		writeError(w, &BadRequestError{Message: "'update' is required"})
		return
	}
	arrayFilters, err := docsField(body, "arrayFilters")
	if err != nil {
		writeError(w, err)
		return
	}
	multi, _ := body["multi"].(bool)

	start := time.Now()
	var res *mimo.UpdateResult
	if multi {
		res, err = coll.UpdateMany(filter, expr, arrayFilters)
	} else {
		res, err = coll.UpdateOne(filter, expr, arrayFilters)
	}
	entry := metrics.SlowQueryEntry{Operation: "update", Collection: coll.Name(), Filter: filter, Update: expr}
	if res != nil {
		entry.Returned = res.Modified
	}
	h.observe(r, entry, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, res)
}

// DeleteDocuments removes every document matching "filter", or only the
// first when "justOne" is set
func (h *Handlers) DeleteDocuments(w http.ResponseWriter, r *http.Request) {
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
	filter, err := docField(body, "filter")
	if err != nil {
		writeError(w, err)
		return
	}
	justOne, _ := body["justOne"].(bool)

	start := time.Now()
	var n int
	if justOne {
		n, err = coll.RemoveOne(filter)
	} else {
		n, err = coll.Remove(filter)
	}
	h.observe(r, metrics.SlowQueryEntry{Operation: "remove", Collection: coll.Name(), Filter: filter, Returned: n}, start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]interface{}{"deleted": n})
}
