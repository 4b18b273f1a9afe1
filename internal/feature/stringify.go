package feature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Stringify turns any decoded JSON value into display text. nil is empty, slices are
// comma-joined, maps join their non-nil values in key order.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case []string:
		return strings.Join(t, ", ")
	case TextList:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = Stringify(e)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k, e := range t {
			if e != nil {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = Stringify(t[k])
		}
		return strings.Join(parts, ", ")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func decodeAny(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Text is a display field that accepts any JSON shape and keeps its Stringify form.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	v, err := decodeAny(b)
	if err != nil {
		return err
	}
	*t = Text(Stringify(v))
	return nil
}

func (t Text) String() string { return string(t) }

// TextList is a list field. A scalar becomes a single element and null an empty list.
type TextList []string

func (l *TextList) UnmarshalJSON(b []byte) error {
	v, err := decodeAny(b)
	if err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*l = nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, Stringify(e))
		}
		*l = out
	default:
		if s := Stringify(t); s != "" {
			*l = TextList{s}
		} else {
			*l = nil
		}
	}
	return nil
}
