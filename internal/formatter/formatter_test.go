package formatter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tordrt/modelspec/internal/model"
	"github.com/tordrt/modelspec/internal/schema"
)

func strPtr(s string) *string { return &s }

func shopGraph(t *testing.T) *model.Graph {
	t.Helper()
	s := &schema.Schema{
		Name: "shop",
		Tables: []schema.Table{
			{
				ID: "T1", Name: "Customer", PhysicalName: "customer", Remarks: "A buyer",
				Columns: []schema.Column{
					{Name: "_ROOT", PhysicalName: "_ROOT", Type: "12", Nullable: true},
					{Name: "_PATH", PhysicalName: "customer", Type: "12", Nullable: true, DefaultValue: strPtr("/shop"), Remarks: "read-only"},
					{Name: "name", PhysicalName: "name", Type: "12", Remarks: "Legal name"},
					{Name: "since", PhysicalName: "since", Type: "91", Nullable: true, DefaultValue: strPtr("2020-01-01")},
					{Name: "scores", PhysicalName: "scores", Type: "4", Nullable: true,
						Remarks: `<schema>{"minCardinality": 0, "maxCardinality": 5}</schema>`},
				},
			},
			{ID: "T2", Name: "Order", PhysicalName: "order", Columns: []schema.Column{{Name: "total", PhysicalName: "total", Type: "3"}}},
		},
		Relationships: []schema.Relationship{
			{ID: "R1", Name: "customer_orders", PKTableRef: "T1", FKTableRef: "T2", FKCardinality: "6"},
		},
		TableLinks: []schema.TableLink{{RelationshipRef: "R1", PKLabelText: "places", FKLabelText: "placed by"}},
	}
	g, err := model.NewBuilder(nil).Build(s)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextFormatter(&buf).Format(shopGraph(t)); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"MODEL shop: 2 entities, 1 links, 0 parameters",
		"ENTITY Customer (ROOT) /shop/customer [read-only]",
		"  name: string NOT NULL",
		"  since: string(date) DEFAULT 2020-01-01",
		"  scores: array of integer [0..5]",
		"    → Order (ZeroToMore) places placed_by",
		"ENTITY Order",
		"  total: number NOT NULL",
	} {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("output missing line %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "_PATH") || strings.Contains(out, "_ROOT") {
		t.Errorf("sentinel columns must not be listed:\n%s", out)
	}
}

func TestMarkdownFormatter(t *testing.T) {
	g := shopGraph(t)

	var buf bytes.Buffer
	if err := NewMarkdownFormatter(&buf).Format(g); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# shop Data Model",
		"## Customer",
		"- Route: `/shop/customer` (read-only)",
		"- **name:** string, required. Legal name",
		"### Contains",
		"- Order (ZeroToMore): places placed_by",
		"### Contained by",
		"- Customer (ZeroToMore)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDocsArtifacts(t *testing.T) {
	artifacts := DocsArtifacts("shop", shopGraph(t))

	want := []string{
		filepath.Join("shop_docs", "_overview.md"),
		filepath.Join("shop_docs", "Customer.md"),
		filepath.Join("shop_docs", "Order.md"),
	}
	if len(artifacts) != len(want) {
		t.Fatalf("expected %d artifacts, got %d", len(want), len(artifacts))
	}
	for i, a := range artifacts {
		if a.Name != want[i] {
			t.Errorf("artifact %d = %s, want %s", i, a.Name, want[i])
		}
	}

	overview := string(artifacts[0].Data)
	if !strings.Contains(overview, "- [**Customer**](Customer.md) (root) (contains: Order)") {
		t.Errorf("unexpected overview:\n%s", overview)
	}
	if !strings.HasPrefix(string(artifacts[2].Data), "## Order\n") {
		t.Errorf("unexpected entity file:\n%s", artifacts[2].Data)
	}
}

func TestMultiFileWriterSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	w := NewMultiFileWriter(dir, nil)

	artifacts := []Artifact{
		{Name: "shop.yaml", Data: []byte("openapi: 3.0.2\n")},
		{Name: filepath.Join("shop_docs", "_overview.md"), Data: []byte("# shop\n")},
	}

	res, err := w.Write(ctx, artifacts)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(res.Written) != 2 || len(res.Unchanged) != 0 {
		t.Fatalf("first write: %+v", res)
	}

	artifacts[0].Data = []byte("openapi: 3.0.3\n")
	res, err = w.Write(ctx, artifacts)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if len(res.Written) != 1 || res.Written[0] != "shop.yaml" {
		t.Errorf("second write wrote %v", res.Written)
	}
	if len(res.Unchanged) != 1 || res.Unchanged[0] != artifacts[1].Name {
		t.Errorf("second write left %v unchanged", res.Unchanged)
	}

	data, err := os.ReadFile(filepath.Join(dir, "shop.yaml"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "openapi: 3.0.3\n" {
		t.Errorf("shop.yaml = %q", data)
	}
}

func TestMultiFileWriterCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMultiFileWriter(t.TempDir(), nil).Write(ctx, []Artifact{{Name: "a.json", Data: []byte("{}")}})
	if err == nil {
		t.Error("expected an error for a canceled context")
	}
}
