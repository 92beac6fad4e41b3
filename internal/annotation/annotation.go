// Package annotation decodes the micro-DSL embedded in free-text remarks.
//
// A remark may carry a <schema>...</schema> region holding a JSON object, a bare list of
// JSON members ("key": value, ...) or a YAML mapping. Decoding always yields a complete
// Record: every field the region does not set is filled with a documented default and
// reported on the logger, so model authors can spot missing annotations.
package annotation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default values applied to fields missing from an annotation
const (
	DefaultDescription  = "No Description"
	DefaultValue        = "default_value"
	DefaultCardinality  = 1
	keyDescription      = "description"
	keyMarkdown         = "markdownDescription"
	keyValidationScript = "validationScript"
	keyPossibleValues   = "possibleValues"
	keyDefaultValue     = "defaultValue"
	keyApplicableTo     = "applicableTo"
	keyMinCardinality   = "minCardinality"
	keyMaxCardinality   = "maxCardinality"
	keyValidFor         = "validFor"
	keyFormat           = "format"
	keyExample          = "example"
	keyValueSpec        = "valueSpecification"
	keyKey              = "key"
	keyAsParameter      = "asParameter"
)

// DefaultPossibleValues is the placeholder enumeration used when none is declared
func DefaultPossibleValues() []any {
	return []any{"default_value", "value1", "value2"}
}

// Record is a decoded, fully defaulted annotation
type Record struct {
	Description         string  `json:"description"`
	MarkdownDescription string  `json:"markdownDescription"`
	ValidationScript    string  `json:"validationScript"`
	PossibleValues      []any   `json:"possibleValues"`
	DefaultValue        any     `json:"defaultValue"`
	ApplicableTo        any     `json:"applicableTo"`
	MinCardinality      int     `json:"minCardinality"`
	MaxCardinality      int     `json:"maxCardinality"`
	ValidFor            any     `json:"validFor"`
	Format              string  `json:"format"`
	Example             any     `json:"example"`
	ValueSpecification  any     `json:"valueSpecification"`
	Key                 bool    `json:"key"`
	AsParameter         *string `json:"asParameter,omitempty"`

	// Extra keeps keys outside the fixed vocabulary, such as "examples"
	Extra map[string]any `json:"-"`
	// Defaulted lists the keys that were not supplied by the annotation
	Defaulted []string `json:"-"`
}

// IsDefaulted reports whether key was filled in by a default
func (r Record) IsDefaulted(key string) bool {
	for _, k := range r.Defaulted {
		if k == key {
			return true
		}
	}
	return false
}

// Encode renders the record as a <schema> region holding a JSON object
func (r Record) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode annotation: %w", err)
	}
	return "<" + string(TagSchema) + ">" + string(data) + "</" + string(TagSchema) + ">", nil
}

// Decoder decodes annotation regions and reports applied defaults
type Decoder struct {
	logger *slog.Logger
}

// NewDecoder creates a decoder logging to logger; nil discards
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Decoder{logger: logger}
}

// Decode extracts the <schema> region from raw and returns the defaulted record for field.
// fallback is used as the description when the annotation has none.
// Malformed regions are logged and decode as an empty annotation.
func (d *Decoder) Decode(field, raw, fallback string) Record {
	inner, _ := Extract(raw, TagSchema)
	values, err := parse(strings.TrimSpace(inner))
	if err != nil {
		d.logger.Error("malformed annotation", "kind", "decode", "field", field, "text", inner, "error", err)
		values = map[string]any{}
	}

	r := Record{}
	dec := fieldDecoder{field: field, values: values, logger: d.logger, record: &r}

	if s, ok := dec.str(keyDescription); ok {
		r.Description = s
	} else if fallback != "" {
		r.Description = fallback
		r.Defaulted = append(r.Defaulted, keyDescription)
		d.logger.Debug("annotation description taken from remarks", "kind", "default", "field", field)
	} else {
		r.Description = dec.fill(keyDescription, DefaultDescription).(string)
	}

	if s, ok := dec.str(keyMarkdown); ok {
		r.MarkdownDescription = s
	} else {
		r.MarkdownDescription = dec.fill(keyMarkdown, r.Description).(string)
	}

	r.ValidationScript = dec.strOr(keyValidationScript, "")

	if v, ok := dec.list(keyPossibleValues); ok {
		r.PossibleValues = v
	} else {
		r.PossibleValues = dec.fill(keyPossibleValues, DefaultPossibleValues()).([]any)
	}

	r.DefaultValue = dec.anyOr(keyDefaultValue, DefaultValue)
	r.ApplicableTo = dec.anyOr(keyApplicableTo, "")
	r.MinCardinality = dec.intOr(keyMinCardinality, DefaultCardinality)
	r.MaxCardinality = dec.intOr(keyMaxCardinality, DefaultCardinality)
	r.ValidFor = dec.anyOr(keyValidFor, "")
	r.Format = dec.strOr(keyFormat, "")
	r.Example = dec.anyOr(keyExample, "")
	r.ValueSpecification = dec.anyOr(keyValueSpec, "")
	r.Key = dec.boolOr(keyKey, false)

	if v, ok := values[keyAsParameter]; ok && v != nil {
		s := fmt.Sprint(v)
		r.AsParameter = &s
	}

	for k, v := range values {
		if !known(k) {
			if r.Extra == nil {
				r.Extra = map[string]any{}
			}
			r.Extra[k] = v
		}
	}
	return r
}

// parse reads an annotation body: JSON object, bare JSON members, or YAML
func parse(text string) (map[string]any, error) {
	values := map[string]any{}
	switch {
	case text == "":
		return values, nil
	case strings.HasPrefix(text, "{"):
		if err := json.Unmarshal([]byte(text), &values); err != nil {
			return nil, err
		}
	case strings.HasPrefix(text, `"`):
		if err := json.Unmarshal([]byte("{"+text+"}"), &values); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal([]byte(text), &values); err != nil {
			return nil, err
		}
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

func known(key string) bool {
	switch key {
	case keyDescription, keyMarkdown, keyValidationScript, keyPossibleValues, keyDefaultValue,
		keyApplicableTo, keyMinCardinality, keyMaxCardinality, keyValidFor, keyFormat,
		keyExample, keyValueSpec, keyKey, keyAsParameter:
		return true
	}
	return false
}

type fieldDecoder struct {
	field  string
	values map[string]any
	logger *slog.Logger
	record *Record
}

// fill records and logs a default for key
func (f fieldDecoder) fill(key string, value any) any {
	f.record.Defaulted = append(f.record.Defaulted, key)
	f.logger.Warn("annotation default applied", "kind", "default", "field", f.field, "key", key, "value", value)
	return value
}

// present returns the raw value for key, treating null as absent
func (f fieldDecoder) present(key string) (any, bool) {
	v, ok := f.values[key]
	return v, ok && v != nil
}

func (f fieldDecoder) invalid(key string, v any) {
	f.logger.Warn("annotation value has the wrong type", "kind", "decode", "field", f.field, "key", key, "value", v)
}

func (f fieldDecoder) str(key string) (string, bool) {
	v, ok := f.present(key)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case bool, int, int64, float64:
		return fmt.Sprint(s), true
	}
	f.invalid(key, v)
	return "", false
}

func (f fieldDecoder) strOr(key, def string) string {
	if s, ok := f.str(key); ok {
		return s
	}
	return f.fill(key, def).(string)
}

func (f fieldDecoder) anyOr(key string, def any) any {
	if v, ok := f.present(key); ok {
		return v
	}
	return f.fill(key, def)
}

func (f fieldDecoder) list(key string) ([]any, bool) {
	v, ok := f.present(key)
	if !ok {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		f.invalid(key, v)
		return nil, false
	}
	return items, true
}

func (f fieldDecoder) intOr(key string, def int) int {
	v, ok := f.present(key)
	if !ok {
		return f.fill(key, def).(int)
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n == math.Trunc(n) {
			return int(n)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	f.invalid(key, v)
	return f.fill(key, def).(int)
}

func (f fieldDecoder) boolOr(key string, def bool) bool {
	v, ok := f.present(key)
	if !ok {
		return f.fill(key, def).(bool)
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
	}
	f.invalid(key, v)
	return f.fill(key, def).(bool)
}
