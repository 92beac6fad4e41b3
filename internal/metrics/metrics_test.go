package metrics

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/modelspec/internal/model"
)

func TestHandlerCountsRecords(t *testing.T) {
	m := New()
	buf := &bytes.Buffer{}
	logger := slog.New(m.Handler(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	logger.Warn("default applied", "kind", "default", "field", "a.b")
	logger.Warn("default applied", "kind", "default", "field", "a.c")
	logger.Error("bad annotation", "kind", "decode")
	logger.Debug("relationship ignored", "kind", "exclude")
	logger.With("kind", "link").Warn("dropped")
	logger.Info("plain")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.logRecords.WithLabelValues("WARN", "default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logRecords.WithLabelValues("ERROR", "decode")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logRecords.WithLabelValues("DEBUG", "exclude")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logRecords.WithLabelValues("WARN", "link")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logRecords.WithLabelValues("INFO", "none")))

	// the wrapped handler still filters by level
	assert.Equal(t, 4, strings.Count(buf.String(), "\n"))
	assert.NotContains(t, buf.String(), "relationship ignored")
}

func TestObserveGraph(t *testing.T) {
	m := New()
	m.ObserveGraph(&model.Graph{
		Entities: []*model.Entity{{Name: model.OpenAPIEntity}, {Name: "A"}, {Name: "B"}},
		Links:    []*model.Link{{Containing: "A", Contained: "B"}},
	})
	m.ArtifactsWritten(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.entities))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.links))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.artifacts))
}

func TestPush(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.ArtifactsWritten(1)
	require.NoError(t, m.Push(context.Background(), srv.URL, ""))

	assert.Equal(t, "/metrics/job/"+DefaultJob, path)
	assert.NotEmpty(t, body)
}

func TestPushRequiresURL(t *testing.T) {
	assert.Error(t, New().Push(context.Background(), "", "job"))
}
