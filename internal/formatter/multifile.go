package formatter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/tordrt/modelspec/internal/model"
)

// maxConcurrentWrites bounds the number of files written at once
const maxConcurrentWrites = 8

// Artifact is one generated file, named relative to the output directory
type Artifact struct {
	Name string
	Data []byte
}

// WriteResult lists the artifacts written and the ones left untouched because they were identical
type WriteResult struct {
	Written   []string
	Unchanged []string
}

// MultiFileWriter writes artifacts into a directory
type MultiFileWriter struct {
	OutputDir string
	logger    *slog.Logger
}

// NewMultiFileWriter creates a new multi-file writer
func NewMultiFileWriter(outputDir string, logger *slog.Logger) *MultiFileWriter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MultiFileWriter{
		OutputDir: outputDir,
		logger:    logger,
	}
}

// Write writes every artifact concurrently. A file whose content hash matches the
// new content is not rewritten. Result lists keep the artifact order.
func (w *MultiFileWriter) Write(ctx context.Context, artifacts []Artifact) (WriteResult, error) {
	if err := os.MkdirAll(w.OutputDir, 0755); err != nil {
		return WriteResult{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	written := make([]bool, len(artifacts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentWrites)
	for i, a := range artifacts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			changed, err := w.writeFile(a)
			if err != nil {
				return fmt.Errorf("failed to write %s: %w", a.Name, err)
			}
			written[i] = changed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return WriteResult{}, err
	}

	var res WriteResult
	for i, a := range artifacts {
		if written[i] {
			res.Written = append(res.Written, a.Name)
		} else {
			res.Unchanged = append(res.Unchanged, a.Name)
		}
	}
	return res, nil
}

// writeFile reports whether the file content changed
func (w *MultiFileWriter) writeFile(a Artifact) (bool, error) {
	path := filepath.Join(w.OutputDir, a.Name)

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if xxh3.Hash(existing) == xxh3.Hash(a.Data) {
			w.logger.Debug("artifact unchanged", "file", path)
			return false, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, a.Data, 0644); err != nil {
		return false, err
	}
	w.logger.Info("artifact written", "file", path, "bytes", len(a.Data))
	return true, nil
}

// DocsArtifacts renders the markdown documentation of g: <model>_docs/_overview.md and one file per entity
func DocsArtifacts(modelName string, g *model.Graph) []Artifact {
	dir := modelName + "_docs"

	var buf bytes.Buffer
	NewMarkdownFormatter(&buf).Overview(g)
	artifacts := []Artifact{{Name: filepath.Join(dir, "_overview.md"), Data: bytes.Clone(buf.Bytes())}}

	for _, e := range g.Resources() {
		buf.Reset()
		NewMarkdownFormatter(&buf).FormatEntity(g, e)
		artifacts = append(artifacts, Artifact{Name: filepath.Join(dir, e.Name+".md"), Data: bytes.Clone(buf.Bytes())})
	}
	return artifacts
}
