package dao_server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
	"github.com/mattiabonardi/endor-dao-go/pkg/dao_server"
	"github.com/mattiabonardi/endor-dao-go/pkg/memstore"
	"github.com/mattiabonardi/endor-dao-go/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope = dao_server.Envelope[json.RawMessage]

type fixture struct {
	store  *memstore.Store
	router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New()
	reg := prometheus.NewRegistry()
	reporter, err := metrics.NewReporter(reg, nil)
	require.NoError(t, err)

	server := dao_server.NewServerInitializer(dao.New(dao.WithReporter(reporter)), func(collection string) (dao.Model, error) {
		return store.Model(collection), nil
	}).WithGatherer(reg).Build()

	return &fixture{store: store, router: server.Router()}
}

func (f *fixture) post(t *testing.T, path string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, raw *json.RawMessage) T {
	t.Helper()
	require.NotNil(t, raw, "data is null")
	var out T
	require.NoError(t, json.Unmarshal(*raw, &out))
	return out
}

func seed(t *testing.T, f *fixture) {
	t.Helper()
	code, _ := f.post(t, "/api/users/insertMany", map[string]any{"documents": []map[string]any{
		{"_id": "u1", "name": "ada", "age": 36, "status": "active"},
		{"_id": "u2", "name": "bob", "age": 25, "status": "inactive"},
		{"_id": "u3", "name": "cyd", "age": 41, "status": "active"},
	}})
	require.Equal(t, http.StatusOK, code)
}

func TestMonitoringRoutes(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/readyz", "/livez", "/metrics"} {
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestFindRoute(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	code, env := f.post(t, "/api/users/find", map[string]any{
		"filter": map[string]any{"status": "active"},
		"select": map[string]any{"name": 1, "_id": 0},
		"sort":   []map[string]any{{"field": "age", "direction": -1}},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []map[string]any{{"name": "cyd"}, {"name": "ada"}}, decode[[]map[string]any](t, env.Data))

	code, env = f.post(t, "/api/users/find", map[string]any{"filter": map[string]any{"name": "zed"}})
	require.Equal(t, http.StatusOK, code, "an empty list is not a miss")
	assert.Equal(t, []map[string]any{}, decode[[]map[string]any](t, env.Data))
}

func TestFindWithEmptyBody(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	code, env := f.post(t, "/api/users/find", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 3)
}

func TestFindOneAndNotFound(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	code, env := f.post(t, "/api/users/findOne", map[string]any{"filter": map[string]any{"_id": "u2"}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "bob", decode[map[string]any](t, env.Data)["name"])

	code, env = f.post(t, "/api/users/findOne", map[string]any{"filter": map[string]any{"_id": "nobody"}})
	assert.Equal(t, http.StatusNotFound, code)
	require.Len(t, env.Messages, 1)
	assert.Equal(t, dao_server.GravityInfo, env.Messages[0].Gravity)
	assert.Nil(t, env.Data, "a miss carries no data")
}

func TestExistsAndCount(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	code, env := f.post(t, "/api/users/exists", map[string]any{"filter": map[string]any{"age": map[string]any{"$gt": 30}}})
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 2)

	code, _ = f.post(t, "/api/users/existsOne", map[string]any{"filter": map[string]any{"age": map[string]any{"$gt": 90}}})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = f.post(t, "/api/users/count", map[string]any{"filter": map[string]any{"status": "ghost"}})
	require.Equal(t, http.StatusOK, code, "zero is a valid count")
	assert.Equal(t, 0, decode[int](t, env.Data))
}

func TestWriteRoutes(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	code, env := f.post(t, "/api/users/insert", map[string]any{"document": map[string]any{"name": "dee"}})
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, decode[map[string]any](t, env.Data)["_id"])

	code, env = f.post(t, "/api/users/findAndUpdate", map[string]any{
		"filter": map[string]any{"_id": "u1"},
		"update": map[string]any{"age": 37},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 37.0, decode[map[string]any](t, env.Data)["age"])

	code, env = f.post(t, "/api/users/updateMany", map[string]any{
		"filter": map[string]any{"status": "active"},
		"update": map[string]any{"$set": map[string]any{"seen": true}},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, dao.UpdateSummary{Matched: 2, Modified: 2}, decode[dao.UpdateSummary](t, env.Data))

	code, _ = f.post(t, "/api/users/updateMany", map[string]any{
		"filter": map[string]any{"status": "ghost"},
		"update": map[string]any{"$set": map[string]any{"seen": true}},
	})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = f.post(t, "/api/users/delete", map[string]any{"filter": map[string]any{"status": "inactive"}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, dao_server.OutcomeDTO{Outcome: "Success"}, decode[dao_server.OutcomeDTO](t, env.Data))

	code, env = f.post(t, "/api/users/count", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, decode[int](t, env.Data))
}

func TestAggregateRoute(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	code, env := f.post(t, "/api/users/aggregate", map[string]any{"pipeline": []map[string]any{
		{"$match": map[string]any{"status": "active"}},
		{"$count": "n"},
	}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []map[string]any{{"n": 2.0}}, decode[[]map[string]any](t, env.Data))

	code, _ = f.post(t, "/api/users/aggregate", map[string]any{"pipeline": []map[string]any{
		{"$match": map[string]any{"status": "ghost"}},
	}})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestFaultsAnswer500(t *testing.T) {
	f := newFixture(t)
	f.store.Model("users").FailWith(memstore.OpFind, assert.AnError)

	code, env := f.post(t, "/api/users/find", map[string]any{})
	assert.Equal(t, http.StatusInternalServerError, code)
	require.Len(t, env.Messages, 1)
	assert.Equal(t, dao_server.GravityError, env.Messages[0].Gravity)
	assert.Equal(t, assert.AnError.Error(), env.Messages[0].Value)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `dao_store_faults_total{collection="users",op="Find"} 1`)
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t)

	code, _ := f.post(t, "/api/$bad/find", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.post(t, "/api/users/insert", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code, "insert requires a document")

	req := httptest.NewRequest(http.MethodPost, "/api/users/find", strings.NewReader("{"))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	code, env := f.post(t, "/api/users/nope", map[string]any{})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, dao_server.GravityFatal, env.Messages[0].Gravity)
}

func TestDuplicateInsertIsConflict(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	code, env := f.post(t, "/api/users/insert", map[string]any{"document": map[string]any{"_id": "u1"}})
	assert.Equal(t, http.StatusConflict, code)
	require.Len(t, env.Messages, 1)
	assert.Contains(t, env.Messages[0].Value, "duplicate")
}
