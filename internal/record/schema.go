// Package record defines the compliance record types returned by the
// gateway and, for each, a strict and a lenient decoding schema.
//
// Strict decoding unmarshals the response into the record's wire type and
// validates every field the record expects. Lenient decoding runs only when
// strict decoding fails: each array element is read as a loose key/value
// Row, and an explicit per-record extractor keeps rows whose essential
// fields are present.
package record

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Validator is implemented by wire rows that can check required fields.
type Validator interface {
	Validate() error
}

// Schema decodes one family of records.
type Schema[T any] struct {
	name    string
	strict  func(data []byte) ([]T, error)
	lenient func(data []byte) []T
	group   func(T) string
}

// Name identifies the schema in logs and metrics.
func (s Schema[T]) Name() string { return s.name }

// Strict decodes data, failing on malformed JSON, null payloads, type
// mismatches and rows missing expected fields.
func (s Schema[T]) Strict(data []byte) ([]T, error) {
	return s.strict(data)
}

// Lenient decodes whatever rows it can; it never fails but may return nil.
func (s Schema[T]) Lenient(data []byte) []T {
	return s.lenient(data)
}

// Cached decodes records previously encoded with json.Marshal. It skips
// validation because lenient results are cached too.
func (s Schema[T]) Cached(data []byte) ([]T, error) {
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrapf(err, "record: decode cached %s", s.name)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// GroupKey returns the identifier a record is grouped under in batch
// queries (usually the building number).
func (s Schema[T]) GroupKey(r T) string {
	if s.group == nil {
		return ""
	}
	return strings.TrimSpace(s.group(r))
}

// newSchema builds a Schema whose strict wire type W converts to T.
func newSchema[W Validator, T any](name string, conv func(W) T, lenient func(Row) (T, bool), group func(T) string) Schema[T] {
	return Schema[T]{
		name: name,
		strict: func(data []byte) ([]T, error) {
			return decodeStrict(name, data, conv)
		},
		lenient: func(data []byte) []T {
			return decodeLenient(data, lenient)
		},
		group: group,
	}
}

func decodeStrict[W Validator, T any](name string, data []byte, conv func(W) T) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, eris.Errorf("record: %s: empty or null payload", name)
	}
	var rows []W
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, eris.Wrapf(err, "record: %s: strict decode", name)
	}
	out := make([]T, 0, len(rows))
	for i, r := range rows {
		if err := r.Validate(); err != nil {
			return nil, eris.Wrapf(err, "record: %s: row %d", name, i)
		}
		out = append(out, conv(r))
	}
	return out, nil
}

func decodeLenient[T any](data []byte, conv func(Row) (T, bool)) []T {
	var out []T
	for _, elem := range elements(data) {
		var row Row
		if err := json.Unmarshal(elem, &row); err != nil {
			continue
		}
		if rec, ok := conv(row); ok {
			out = append(out, rec)
		}
	}
	return out
}

// elements splits a payload into raw array elements. A lone object is
// treated as a one-element array; a truncated array yields the elements
// read before the corruption.
func elements(data []byte) []json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '{' {
		return []json.RawMessage{trimmed}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil
	}
	var out []json.RawMessage
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			break
		}
		out = append(out, raw)
	}
	return out
}

type check struct {
	field string
	ok    bool
}

func has(field, v string) check {
	return check{field: field, ok: strings.TrimSpace(v) != ""}
}

func hasDate(field string, d Date) check {
	return check{field: field, ok: !d.IsZero()}
}

func validate(kind string, checks ...check) error {
	for _, c := range checks {
		if !c.ok {
			return eris.Errorf("record: %s missing %s", kind, c.field)
		}
	}
	return nil
}
