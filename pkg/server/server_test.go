package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agebrock/agebrock-mimo/pkg/compression"
)

func testConfig() *Config {
	config := DefaultConfig()
	config.Port = 0
	config.EnableLogging = false
	return config
}

func setupTestServer(t *testing.T, config *Config) *Server {
	t.Helper()
	if config == nil {
		config = testConfig()
	}
	srv, err := New(config, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown() })
	return srv
}

func makeRequest(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response), rr.Body.String())
	return rr, response
}

const people = `[
	{"_id": 1, "name": "ann", "age": 31, "tags": ["a", "b"]},
	{"_id": 2, "name": "bob", "age": 25, "tags": ["b"]},
	{"_id": 3, "name": "cy", "age": 40}
]`

func seedPeople(t *testing.T, srv *Server) {
	t.Helper()
	rr, resp := makeRequest(t, srv, "POST", "/people/_doc", people)
	require.Equal(t, http.StatusOK, rr.Code, resp)
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupTestServer(t, nil)

	rr, resp := makeRequest(t, srv, "GET", "/_health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, resp["ok"])

	result := resp["result"].(map[string]interface{})
	assert.Equal(t, "healthy", result["status"])
	assert.Contains(t, result, "uptime")
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := setupTestServer(t, nil)
	req := httptest.NewRequest("GET", "/_health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get("X-Request-Id"))
}

func TestCollectionLifecycle(t *testing.T) {
	srv := setupTestServer(t, nil)

	rr, _ := makeRequest(t, srv, "PUT", "/users/", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr, resp := makeRequest(t, srv, "PUT", "/users/", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "DuplicateKey", resp["error"])

	_, resp = makeRequest(t, srv, "GET", "/_collections", "")
	assert.Equal(t, []interface{}{"users"}, resp["result"].(map[string]interface{})["collections"])

	rr, _ = makeRequest(t, srv, "DELETE", "/users/", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr, resp = makeRequest(t, srv, "GET", "/users/_stats", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "CollectionNotFound", resp["error"])
}

func TestInsertAndGetDocument(t *testing.T) {
	srv := setupTestServer(t, nil)

	rr, resp := makeRequest(t, srv, "POST", "/notes/_doc", `{"text": "hi"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	result := resp["result"].(map[string]interface{})
	assert.EqualValues(t, 1, result["inserted"])

	oid := result["ids"].([]interface{})[0].(map[string]interface{})["$oid"].(string)
	require.Len(t, oid, 24)

	rr, resp = makeRequest(t, srv, "GET", "/notes/_doc/"+oid, "")
	require.Equal(t, http.StatusOK, rr.Code)
	doc := resp["result"].(map[string]interface{})
	assert.Equal(t, "hi", doc["text"])
	assert.Equal(t, map[string]interface{}{"$oid": oid}, doc["_id"])

	rr, _ = makeRequest(t, srv, "PUT", "/notes/_doc/"+oid, `{"$set": {"text": "bye"}}`)
	require.Equal(t, http.StatusOK, rr.Code)

	_, resp = makeRequest(t, srv, "GET", "/notes/_doc/"+oid, "")
	assert.Equal(t, "bye", resp["result"].(map[string]interface{})["text"])

	rr, _ = makeRequest(t, srv, "DELETE", "/notes/_doc/"+oid, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr, resp = makeRequest(t, srv, "GET", "/notes/_doc/"+oid, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "DocumentNotFound", resp["error"])
}

func TestDuplicateInsert(t *testing.T) {
	srv := setupTestServer(t, nil)
	seedPeople(t, srv)

	rr, resp := makeRequest(t, srv, "POST", "/people/_doc", `{"_id": 2}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "DuplicateKey", resp["error"])

	rr, resp = makeRequest(t, srv, "POST", "/people/_doc", `{"_id": `)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "BadRequest", resp["error"])

	rr, _ = makeRequest(t, srv, "POST", "/people/_doc", `[1, 2]`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSearchDocuments(t *testing.T) {
	srv := setupTestServer(t, nil)
	seedPeople(t, srv)

	rr, resp := makeRequest(t, srv, "POST", "/people/_search", `{
		"filter": {"age": {"$gte": 30}},
		"projection": {"name": 1, "_id": 0},
		"sort": {"age": -1}
	}`)
	require.Equal(t, http.StatusOK, rr.Code, resp)
	assert.EqualValues(t, 2, resp["count"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"name": "cy"},
		map[string]interface{}{"name": "ann"},
	}, resp["result"])

	_, resp = makeRequest(t, srv, "POST", "/people/_search", `{"sort": {"_id": 1}, "skip": 1, "limit": 1}`)
	result := resp["result"].([]interface{})
	require.Len(t, result, 1)
	assert.Equal(t, "bob", result[0].(map[string]interface{})["name"])
}

func TestCountDocuments(t *testing.T) {
	srv := setupTestServer(t, nil)
	seedPeople(t, srv)

	_, resp := makeRequest(t, srv, "GET", "/people/_count", "")
	assert.EqualValues(t, 3, resp["result"].(map[string]interface{})["count"])

	_, resp = makeRequest(t, srv, "POST", "/people/_count", `{"filter": {"tags": "b"}}`)
	assert.EqualValues(t, 2, resp["result"].(map[string]interface{})["count"])
}

func TestUpdateAndDelete(t *testing.T) {
	srv := setupTestServer(t, nil)
	seedPeople(t, srv)

	rr, resp := makeRequest(t, srv, "POST", "/people/_update", `{"filter": {}, "update": {"$inc": {"age": 1}}, "multi": true}`)
	require.Equal(t, http.StatusOK, rr.Code, resp)
	result := resp["result"].(map[string]interface{})
	assert.EqualValues(t, 3, result["matched"])
	assert.EqualValues(t, 3, result["modified"])
	assert.Equal(t, []interface{}{"age"}, result["paths"])

	_, resp = makeRequest(t, srv, "GET", "/people/_doc/3", "")
	assert.EqualValues(t, 41, resp["result"].(map[string]interface{})["age"])

	rr, resp = makeRequest(t, srv, "POST", "/people/_update", `{"filter": {}, "update": {"$set": {"_id": 9}}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "InvalidQuery", resp["error"])

	_, resp = makeRequest(t, srv, "POST", "/people/_delete", `{"filter": {"tags": "b"}, "justOne": true}`)
	assert.EqualValues(t, 1, resp["result"].(map[string]interface{})["deleted"])

	_, resp = makeRequest(t, srv, "POST", "/people/_delete", `{"filter": {}}`)
	assert.EqualValues(t, 2, resp["result"].(map[string]interface{})["deleted"])
}

func TestAggregate(t *testing.T) {
	srv := setupTestServer(t, nil)
	seedPeople(t, srv)

	rr, resp := makeRequest(t, srv, "POST", "/people/_aggregate", `{"pipeline": [
		{"$unwind": "$tags"},
		{"$group": {"_id": "$tags", "n": {"$sum": 1}}},
		{"$sort": {"_id": 1}}
	]}`)
	require.Equal(t, http.StatusOK, rr.Code, resp)
	assert.Equal(t, []interface{}{
		map[string]interface{}{"_id": "a", "n": float64(1)},
		map[string]interface{}{"_id": "b", "n": float64(2)},
	}, resp["result"])

	rr, _ = makeRequest(t, srv, "POST", "/people/_aggregate", `{"pipeline": []}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestQueryErrors(t *testing.T) {
	srv := setupTestServer(t, nil)
	seedPeople(t, srv)

	rr, resp := makeRequest(t, srv, "POST", "/people/_search", `{"filter": {"age": {"$bogus": 1}}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "InvalidQuery", resp["error"])

	rr, resp = makeRequest(t, srv, "POST", "/people/_search", `{"filter": {"$where": "this.age > 30"}}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "ScriptDisabled", resp["error"])

	rr, _ = makeRequest(t, srv, "POST", "/people/_search", `{"filter": 3}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = makeRequest(t, srv, "POST", "/people/_search", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestJSONSchemaFilter(t *testing.T) {
	srv := setupTestServer(t, nil)
	seedPeople(t, srv)

	_, resp := makeRequest(t, srv, "POST", "/people/_count", `{"filter": {"$jsonSchema": {"required": ["tags"]}}}`)
	assert.EqualValues(t, 2, resp["result"].(map[string]interface{})["count"])
}

func TestRequestTooLarge(t *testing.T) {
	config := testConfig()
	config.MaxRequestSize = 16
	srv := setupTestServer(t, config)
	srv.Database().Collection("people")

	rr, resp := makeRequest(t, srv, "POST", "/people/_search", `{"filter": {"name": "a very long name"}}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "RequestTooLarge", resp["error"])
}

func TestCursorBatches(t *testing.T) {
	srv := setupTestServer(t, nil)
	seedPeople(t, srv)

	rr, resp := makeRequest(t, srv, "POST", "/_cursors", `{"collection": "people", "sort": {"_id": 1}}`)
	require.Equal(t, http.StatusOK, rr.Code, resp)
	id := resp["result"].(map[string]interface{})["cursorId"].(string)

	_, resp = makeRequest(t, srv, "GET", "/_cursors/"+id+"/batch?size=2", "")
	batch := resp["result"].(map[string]interface{})
	assert.Len(t, batch["documents"], 2)
	assert.Equal(t, true, batch["hasMore"])

	_, resp = makeRequest(t, srv, "GET", "/_cursors/"+id+"/batch?size=2", "")
	batch = resp["result"].(map[string]interface{})
	assert.Len(t, batch["documents"], 1)
	assert.Equal(t, false, batch["hasMore"])

	rr, resp = makeRequest(t, srv, "GET", "/_cursors/"+id+"/batch", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "CursorNotFound", resp["error"])

	rr, _ = makeRequest(t, srv, "POST", "/_cursors", `{"collection": "missing"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCloseCursor(t *testing.T) {
	srv := setupTestServer(t, nil)
	seedPeople(t, srv)

	_, resp := makeRequest(t, srv, "POST", "/_cursors", `{"collection": "people"}`)
	id := resp["result"].(map[string]interface{})["cursorId"].(string)

	rr, _ := makeRequest(t, srv, "DELETE", "/_cursors/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr, _ = makeRequest(t, srv, "DELETE", "/_cursors/"+id, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestImportAndExport(t *testing.T) {
	srv := setupTestServer(t, nil)

	var payload bytes.Buffer
	gz, err := compression.NewWriter(&payload, &compression.Config{Algorithm: compression.AlgorithmGzip})
	require.NoError(t, err)
	_, err = io.WriteString(gz, "{\"_id\": 1, \"msg\": \"a\"}\n{\"_id\": 2, \"msg\": \"b\"}\n")
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	req := httptest.NewRequest("POST", "/logs/_import?format=ndjson", &payload)
	req.Header.Set("Content-Encoding", "gzip")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/logs/_export?format=csv&fields=_id,msg", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Equal(t, "_id,msg\n1,a\n2,b\n", rr.Body.String())

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/logs/_export?format=ndjson&compress=zstd", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "zstd", rr.Header().Get("Content-Encoding"))
	zr, err := compression.NewReader(rr.Body, compression.AlgorithmZstd)
	require.NoError(t, err)
	defer zr.Close()
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(plain), "\n"))

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/logs/_export?format=xml", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSlowQueryAdmin(t *testing.T) {
	config := testConfig()
	config.SlowQueryThreshold = 0
	srv := setupTestServer(t, config)
	seedPeople(t, srv)

	rr, _ := makeRequest(t, srv, "POST", "/people/_count", `{"filter": {"age": {"$gt": 20}}}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, resp := makeRequest(t, srv, "GET", "/_slow?order=slowest&n=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, resp["result"], 1)

	rr, _ = makeRequest(t, srv, "GET", "/_slow?order=fastest", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/_slow/export", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var exported []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &exported))
	require.Len(t, exported, 2)
	assert.Equal(t, "insert", exported[0]["operation"])
	assert.Equal(t, "count", exported[1]["operation"])

	rr, resp = makeRequest(t, srv, "PUT", "/_slow/threshold", `{"threshold_ms": 60000}`)
	require.Equal(t, http.StatusOK, rr.Code, resp)
	rr, _ = makeRequest(t, srv, "DELETE", "/_slow", "")
	require.Equal(t, http.StatusOK, rr.Code)

	makeRequest(t, srv, "POST", "/people/_count", `{"filter": {}}`)
	_, resp = makeRequest(t, srv, "GET", "/_slow", "")
	assert.Empty(t, resp["result"])

	rr, _ = makeRequest(t, srv, "PUT", "/_slow/threshold", `{"threshold_ms": "soon"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr, _ = makeRequest(t, srv, "PUT", "/_slow/threshold", `{"threshold_ms": -5}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := setupTestServer(t, nil)
	seedPeople(t, srv)
	makeRequest(t, srv, "POST", "/people/_search", `{"filter": {}}`)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/_metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `mimo_operations_total{collection="people",operation="find"} 1`)
	assert.Contains(t, body, `route="/{collection}/_search"`)
	assert.Contains(t, body, "mimo_documents 3")
}

func TestMetricsDisabled(t *testing.T) {
	config := testConfig()
	config.EnableMetrics = false
	srv := setupTestServer(t, config)
	assert.Nil(t, srv.Collector())

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/_metrics", nil))
	assert.NotEqual(t, http.StatusOK, rr.Code)
}

func TestRateLimit(t *testing.T) {
	config := testConfig()
	config.RateLimit = 0.001
	config.RateBurst = 1
	srv := setupTestServer(t, config)

	rr, _ := makeRequest(t, srv, "GET", "/_health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, resp := makeRequest(t, srv, "GET", "/_health", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "RateLimited", resp["error"])
}

func TestCORSPreflight(t *testing.T) {
	srv := setupTestServer(t, nil)
	req := httptest.NewRequest("OPTIONS", "/people/_search", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestConfigValidation(t *testing.T) {
	config := testConfig()
	config.LogFormat = "xml"
	_, err := New(config, nil)
	assert.Error(t, err)

	config = testConfig()
	config.EnableTLS = true
	_, err = New(config, nil)
	assert.Error(t, err)

	config = testConfig()
	config.LogLevel = "loud"
	_, err = New(config, nil)
	assert.Error(t, err)

	config = testConfig()
	config.SlowQueryThreshold = -time.Second
	_, err = New(config, nil)
	assert.Error(t, err)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	config := testConfig()
	config.Host = "127.0.0.1"
	config.CursorTimeout = 20 * time.Millisecond
	srv := setupTestServer(t, config)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
