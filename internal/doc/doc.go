// Package doc holds insertion-ordered document nodes shared by the projectors and writers.
//
// A document is a tree of *Map, []any and scalars. Maps keep the order in which keys
// were set, so YAML and JSON output is byte-for-byte stable between runs.
package doc

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Map is an insertion-ordered JSON object
type Map = orderedmap.OrderedMap[string, any]

// New returns an empty Map
func New() *Map {
	return orderedmap.New[string, any]()
}

// Keys returns the keys of m in insertion order
func Keys(m *Map) []string {
	keys := make([]string, 0, m.Len())
	for p := m.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// ParseJSON decodes a JSON fragment, keeping object key order.
// Fragments the YAML parser cannot read fall back to encoding/json (keys sorted on output).
func ParseJSON(text string) (any, error) {
	data := []byte(text)
	if !json.Valid(data) {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return v, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return v, nil
	}
	return FromNode(&node)
}

// ParseYAML decodes a YAML fragment, keeping mapping key order
func ParseYAML(text string) (any, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return FromNode(&node)
}

// FromNode converts a yaml.Node tree into ordered document nodes
func FromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return FromNode(n.Content[0])
	case yaml.AliasNode:
		return FromNode(n.Alias)
	case yaml.MappingNode:
		m := New()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := FromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(n.Content[i].Value, v)
		}
		return m, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := FromNode(c)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// MarshalYAML encodes v as YAML with two-space indentation
func MarshalYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// MarshalJSON encodes v as indented JSON without HTML escaping
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return buf.Bytes(), nil
}
