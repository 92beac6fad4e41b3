// Package architect reads SQL Power Architect project files (.architect) into source records.
package architect

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/tordrt/modelspec/internal/schema"
)

// Fatal structural errors
var (
	ErrNoTables        = errors.New("project has no target-database tables")
	ErrNoRelationships = errors.New("project has no target-database relationships container")
)

type project struct {
	XMLName        xml.Name        `xml:"architect-project"`
	TargetDatabase *targetDatabase `xml:"target-database"`
	PlayPen        *playPen        `xml:"play-pen"`
}

type targetDatabase struct {
	Name          string         `xml:"name,attr"`
	Tables        []table        `xml:"table"`
	Relationships *relationships `xml:"relationships"`
}

type table struct {
	ID           string   `xml:"id,attr"`
	Name         string   `xml:"name,attr"`
	PhysicalName string   `xml:"physicalName,attr"`
	Remarks      string   `xml:"remarks"`
	Folders      []folder `xml:"folder"`
}

type folder struct {
	Columns []column `xml:"column"`
}

type column struct {
	ID           string  `xml:"id,attr"`
	Name         string  `xml:"name,attr"`
	PhysicalName string  `xml:"physicalName,attr"`
	Type         string  `xml:"type,attr"`
	Nullable     string  `xml:"nullable,attr"`
	DefaultValue *string `xml:"defaultValue,attr"`
	Remarks      string  `xml:"remarks"`
}

type relationships struct {
	Items []relationship `xml:"relationship"`
}

type relationship struct {
	ID            string `xml:"id,attr"`
	Name          string `xml:"name,attr"`
	PKTableRef    string `xml:"pk-table-ref,attr"`
	FKTableRef    string `xml:"fk-table-ref,attr"`
	PKCardinality string `xml:"pkCardinality,attr"`
	FKCardinality string `xml:"fkCardinality,attr"`
}

type playPen struct {
	TableLinks []tableLink `xml:"table-link"`
}

type tableLink struct {
	RelationshipRef string `xml:"relationship-ref,attr"`
	LineColor       string `xml:"rLineColor,attr"`
	PKLabelText     string `xml:"pkLabelText,attr"`
	FKLabelText     string `xml:"fkLabelText,attr"`
}

// ReadFile reads the project at path. The schema is named after the file.
func ReadFile(path string) (*schema.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open project: %w", err)
	}
	defer func() { _ = f.Close() }()

	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return s, nil
}

// Read parses a project document.
// A document without tables or without a relationships container is rejected.
func Read(r io.Reader) (*schema.Schema, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var p project
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse project XML: %w", err)
	}
	if p.TargetDatabase == nil || len(p.TargetDatabase.Tables) == 0 {
		return nil, ErrNoTables
	}
	if p.TargetDatabase.Relationships == nil {
		return nil, ErrNoRelationships
	}

	s := &schema.Schema{Name: p.TargetDatabase.Name}
	for _, t := range p.TargetDatabase.Tables {
		st := schema.Table{
			ID:           t.ID,
			Name:         t.Name,
			PhysicalName: t.PhysicalName,
			Remarks:      t.Remarks,
		}
		for _, f := range t.Folders {
			for _, c := range f.Columns {
				st.Columns = append(st.Columns, schema.Column{
					ID:           c.ID,
					Name:         c.Name,
					PhysicalName: c.PhysicalName,
					Type:         c.Type,
					Nullable:     c.Nullable == "1",
					DefaultValue: c.DefaultValue,
					Remarks:      c.Remarks,
				})
			}
		}
		s.Tables = append(s.Tables, st)
	}

	for _, rel := range p.TargetDatabase.Relationships.Items {
		s.Relationships = append(s.Relationships, schema.Relationship(rel))
	}

	if p.PlayPen != nil {
		for _, tl := range p.PlayPen.TableLinks {
			s.TableLinks = append(s.TableLinks, schema.TableLink(tl))
		}
	}
	return s, nil
}

// charsetReader decodes documents declared in a non UTF-8 encoding, such as ISO-8859-1
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
