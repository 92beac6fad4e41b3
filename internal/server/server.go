// Package server serves generated artifacts over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tordrt/modelspec/internal/doc"
	"github.com/tordrt/modelspec/internal/jsonschema"
	"github.com/tordrt/modelspec/internal/model"
)

const shutdownTimeout = 5 * time.Second

// Content is the in-memory output of one generation
type Content struct {
	Graph   *model.Graph
	OpenAPI *doc.Map
	Schemas *jsonschema.Result
}

// store holds the serialized content; it is read-only once built
type store struct {
	name        string
	openAPIYAML []byte
	openAPIJSON []byte
	bundles     map[string][]byte
	schemas     map[string][]byte
	bundleNames []string
	schemaNames []string
	model       []byte
}

func newStore(c Content) (*store, error) {
	s := &store{
		bundles: map[string][]byte{},
		schemas: map[string][]byte{},
	}
	var err error

	if c.Graph != nil {
		s.name = c.Graph.Name
		if s.model, err = doc.MarshalJSON(c.Graph); err != nil {
			return nil, fmt.Errorf("failed to serialize model: %w", err)
		}
	}
	if c.OpenAPI != nil {
		if s.openAPIYAML, err = doc.MarshalYAML(c.OpenAPI); err != nil {
			return nil, fmt.Errorf("failed to serialize OpenAPI YAML: %w", err)
		}
		if s.openAPIJSON, err = doc.MarshalJSON(c.OpenAPI); err != nil {
			return nil, fmt.Errorf("failed to serialize OpenAPI JSON: %w", err)
		}
	}
	if c.Schemas != nil {
		if s.bundleNames, err = serializeAll(c.Schemas.Bundles, s.bundles); err != nil {
			return nil, err
		}
		if s.schemaNames, err = serializeAll(c.Schemas.Schemas, s.schemas); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func serializeAll(m *doc.Map, into map[string][]byte) ([]string, error) {
	names := make([]string, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		data, err := doc.MarshalJSON(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize schema %s: %w", pair.Key, err)
		}
		into[pair.Key] = data
		names = append(names, pair.Key)
	}
	return names, nil
}

// NewRouter builds the HTTP routes over c. The Prometheus gatherer is exposed on /metrics when not nil.
func NewRouter(c Content, gatherer prometheus.Gatherer, logger *slog.Logger) (*gin.Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s, err := newStore(c)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", healthHandler(s))
	r.GET("/openapi.yaml", documentHandler(s.openAPIYAML, "application/yaml"))
	r.GET("/openapi.json", documentHandler(s.openAPIJSON, "application/json"))
	r.GET("/schemas", schemaListHandler(s))
	r.GET("/schemas/:name", schemaHandler(s))
	r.GET("/model", documentHandler(s.model, "application/json"))
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return r, nil
}

// Run serves handler on addr until ctx is done, then shuts down gracefully
func Run(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving artifacts", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// healthHandler reports liveness and the served model name
func healthHandler(s *store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "model": s.name})
	}
}

// documentHandler serves a pre-serialized document
func documentHandler(data []byte, contentType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if data == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not generated"})
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}
}

// schemaListHandler lists bundle and per-entity schema names in model order
func schemaListHandler(s *store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"bundles": nonNil(s.bundleNames),
			"schemas": nonNil(s.schemaNames),
		})
	}
}

// schemaHandler serves the bundle of a root entity, or else the standalone schema of an entity.
// A trailing ".json" is accepted.
func schemaHandler(s *store) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSuffix(c.Param("name"), ".json")
		if data, ok := s.bundles[name]; ok {
			c.Data(http.StatusOK, "application/json", data)
			return
		}
		if data, ok := s.schemas[name]; ok {
			c.Data(http.StatusOK, "application/json", data)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Schema not found"})
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
