package doc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONKeepsKeyOrder(t *testing.T) {
	v, err := ParseJSON(`{"zeta": 1, "alpha": {"y": true, "b": "x"}, "mid": [1, "two"]}`)
	require.NoError(t, err)

	m, ok := v.(*Map)
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, Keys(m))

	inner, _ := m.Get("alpha")
	assert.Equal(t, []string{"y", "b"}, Keys(inner.(*Map)))

	out, err := MarshalJSON(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"zeta":1,"alpha":{"y":true,"b":"x"},"mid":[1,"two"]}`, string(out))
	assert.Less(t, strings.Index(string(out), "zeta"), strings.Index(string(out), "alpha"))
}

func TestParseJSONRejectsGarbage(t *testing.T) {
	_, err := ParseJSON(`{"a": `)
	assert.Error(t, err)
}

func TestMarshalYAMLOrder(t *testing.T) {
	m := New()
	m.Set("openapi", "3.0.2")
	info := New()
	info.Set("title", "T")
	info.Set("version", "1.0.0")
	m.Set("info", info)
	m.Set("paths", New())

	out, err := MarshalYAML(m)
	require.NoError(t, err)
	assert.Equal(t, "openapi: 3.0.2\ninfo:\n  title: T\n  version: 1.0.0\npaths: {}\n", string(out))
}
