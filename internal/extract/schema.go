package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type FieldType int

const (
	String FieldType = iota
	Integer
	Number
	StringList
)

func (t FieldType) String() string {
	switch t {
	case String:
		return "string"
	case Integer:
		return "integer"
	case Number:
		return "number"
	case StringList:
		return "array of strings"
	default:
		return "unknown"
	}
}

// Field describes one key of the JSON object the model must return.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Description string
	// Enum restricts String fields to the listed values.
	Enum []string
	// Min and Max bound Number and Integer fields, inclusive.
	Min *float64
	Max *float64
}

type Schema struct {
	Name   string
	Fields []Field
}

func Bound(v float64) *float64 {
	return &v
}

// FormatInstructions renders the schema as instructions the model can follow.
func (s Schema) FormatInstructions() string {
	var b strings.Builder

	b.WriteString("Return ONLY a single valid JSON object (no markdown, no explanation)")
	if s.Name != "" {
		fmt.Fprintf(&b, " describing the %s", s.Name)
	}
	b.WriteString(" with the following fields:\n")

	for _, f := range s.Fields {
		presence := "optional, use null when unknown"
		if f.Required {
			presence = "required"
		}
		fmt.Fprintf(&b, "- %q (%s, %s)", f.Name, f.Type, presence)
		if f.Description != "" {
			fmt.Fprintf(&b, ": %s", f.Description)
		}
		if len(f.Enum) > 0 {
			quoted := make([]string, 0, len(f.Enum))
			for _, v := range f.Enum {
				quoted = append(quoted, strconv.Quote(v))
			}
			fmt.Fprintf(&b, ". One of: %s", strings.Join(quoted, ", "))
		}
		if f.Min != nil && f.Max != nil {
			fmt.Fprintf(&b, ". Between %s and %s inclusive", formatBound(*f.Min), formatBound(*f.Max))
		}
		b.WriteString("\n")
	}

	b.WriteString("Use JSON arrays for list fields and plain numbers (not strings) for numeric fields.")
	return b.String()
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Validate checks raw against the schema and returns normalised values keyed by
// field name: strings, int64, float64 or []string. Absent optional scalars map to
// nil; list fields always map to a non-nil slice.
func (s Schema) Validate(raw map[string]any) (map[string]any, error) {
	if raw == nil {
		return nil, fmt.Errorf("%s: expected a JSON object", s.label())
	}

	values := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		v, present := raw[f.Name]
		if !present || v == nil {
			switch {
			case f.Type == StringList:
				values[f.Name] = []string{}
			case f.Required:
				return nil, fmt.Errorf("%s: required field %q is missing", s.label(), f.Name)
			default:
				values[f.Name] = nil
			}
			continue
		}

		normalised, err := f.normalise(v)
		if err != nil {
			return nil, fmt.Errorf("%s: field %q: %w", s.label(), f.Name, err)
		}
		values[f.Name] = normalised
	}

	return values, nil
}

func (s Schema) label() string {
	if s.Name == "" {
		return "schema"
	}
	return s.Name
}

func (f Field) normalise(v any) (any, error) {
	switch f.Type {
	case String:
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %s", jsonKind(v))
		}
		str = strings.TrimSpace(str)
		if len(f.Enum) > 0 {
			for _, allowed := range f.Enum {
				if strings.EqualFold(allowed, str) {
					return allowed, nil
				}
			}
			return nil, fmt.Errorf("value %q is not one of %v", str, f.Enum)
		}
		return str, nil

	case Integer:
		n, err := coerceInteger(v)
		if err != nil {
			return nil, err
		}
		if err := f.checkRange(float64(n)); err != nil {
			return nil, err
		}
		return n, nil

	case Number:
		n, err := coerceNumber(v)
		if err != nil {
			return nil, err
		}
		if err := f.checkRange(n); err != nil {
			return nil, err
		}
		return n, nil

	case StringList:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("expected array of strings, got %s", jsonKind(v))
		}
		list := make([]string, 0, len(items))
		for i, item := range items {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d: expected string, got %s", i, jsonKind(item))
			}
			list = append(list, strings.TrimSpace(str))
		}
		return list, nil

	default:
		return nil, fmt.Errorf("unsupported field type %d", f.Type)
	}
}

func (f Field) checkRange(v float64) error {
	if f.Min != nil && v < *f.Min {
		return fmt.Errorf("value %s is below minimum %s", formatBound(v), formatBound(*f.Min))
	}
	if f.Max != nil && v > *f.Max {
		return fmt.Errorf("value %s is above maximum %s", formatBound(v), formatBound(*f.Max))
	}
	return nil
}

func coerceInteger(v any) (int64, error) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, nil
		}
		f, err := val.Float64()
		if err != nil || f != math.Trunc(f) || !fitsInt64(f) {
			return 0, fmt.Errorf("expected integer, got %s", val.String())
		}
		return int64(f), nil
	case float64:
		if val != math.Trunc(val) || !fitsInt64(val) {
			return 0, fmt.Errorf("expected integer, got %v", val)
		}
		return int64(val), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("expected integer, got string %q", val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %s", jsonKind(v))
	}
}

// fitsInt64 reports whether f converts to int64 without overflow. MaxInt64 itself
// is not representable as a float64, so the upper bound is exclusive.
func fitsInt64(f float64) bool {
	return f >= math.MinInt64 && f < math.MaxInt64
}

func coerceNumber(v any) (float64, error) {
	var (
		f   float64
		err error
	)

	switch val := v.(type) {
	case json.Number:
		f, err = val.Float64()
	case float64:
		f = val
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, fmt.Errorf("expected number, got %s", jsonKind(v))
	}

	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected number, got %v", v)
	}
	return f, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
