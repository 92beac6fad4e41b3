package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/modelspec/internal/jsonschema"
	"github.com/tordrt/modelspec/internal/model"
	"github.com/tordrt/modelspec/internal/openapi"
	"github.com/tordrt/modelspec/internal/schema"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContent(t *testing.T) Content {
	t.Helper()
	s := &schema.Schema{
		Name: "shop",
		Tables: []schema.Table{
			{ID: "T1", Name: "Store", PhysicalName: "store", Columns: []schema.Column{
				{Name: "_ROOT", PhysicalName: "_ROOT", Type: "12", Nullable: true},
				{Name: "_PATH", PhysicalName: "store", Type: "12", Nullable: true},
				{Name: "code", PhysicalName: "code", Type: "12"},
			}},
			{ID: "T2", Name: "Shelf", PhysicalName: "shelf", Columns: []schema.Column{
				{Name: "label", PhysicalName: "label", Type: "12", Nullable: true},
			}},
		},
		Relationships: []schema.Relationship{
			{ID: "R1", Name: "store_shelves", PKTableRef: "T1", FKTableRef: "T2", FKCardinality: "6"},
		},
	}
	g, err := model.NewBuilder(nil).Build(s)
	require.NoError(t, err)

	return Content{
		Graph:   g,
		OpenAPI: openapi.NewProjector(openapi.Info{}, nil).Project(g),
		Schemas: jsonschema.NewProjector("", nil).Project(g),
	}
}

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	h.ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	r, err := NewRouter(testContent(t), nil, nil)
	require.NoError(t, err)

	w := serve(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok", "model": "shop"}`, w.Body.String())

	w = serve(t, r, "/openapi.yaml")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "openapi: 3.0.2\n"))
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))

	w = serve(t, r, "/openapi.json")
	assert.Equal(t, http.StatusOK, w.Code)
	var d map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Contains(t, d["paths"], "/store/stores")

	w = serve(t, r, "/schemas")
	assert.JSONEq(t, `{"bundles": ["Store"], "schemas": ["Store", "Shelf"]}`, w.Body.String())

	w = serve(t, r, "/model")
	assert.Equal(t, http.StatusOK, w.Code)
	var g map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))
	assert.Equal(t, "shop", g["name"])

	w = serve(t, r, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchemaRoute(t *testing.T) {
	r, err := NewRouter(testContent(t), nil, nil)
	require.NoError(t, err)

	tests := []struct {
		path    string
		code    int
		hasDefs bool
	}{
		{"/schemas/Store", http.StatusOK, true},
		{"/schemas/Store.json", http.StatusOK, true},
		{"/schemas/Shelf", http.StatusOK, false},
		{"/schemas/Missing", http.StatusNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := serve(t, r, tt.path)
			assert.Equal(t, tt.code, w.Code)
			if tt.code != http.StatusOK {
				return
			}
			var s map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
			_, hasDefs := s["$defs"]
			assert.Equal(t, tt.hasDefs, hasDefs)
		})
	}
}

func TestMissingDocument(t *testing.T) {
	c := testContent(t)
	c.OpenAPI = nil
	r, err := NewRouter(c, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, serve(t, r, "/openapi.yaml").Code)
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	r, err := NewRouter(testContent(t), reg, nil)
	require.NoError(t, err)

	w := serve(t, r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_total 1")
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, "127.0.0.1:0", http.NotFoundHandler(), nil)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
