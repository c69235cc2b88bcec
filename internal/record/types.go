package record

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Layouts seen across the open-data sources, most common first.
var dateLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
	"20060102",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"01/02/2006 03:04:05 PM",
	"2006/01/02",
}

const dateOutLayout = "2006-01-02T15:04:05"

// Date is a calendar timestamp that tolerates the mix of formats the
// upstream datasets use. Null and empty strings decode to the zero Date.
type Date struct {
	time.Time
}

// ParseDate parses s using the known layouts.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, eris.Errorf("record: unrecognized date %q", s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return eris.Wrap(err, "record: date must be a string")
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateOutLayout))
}

// Amount is a monetary or numeric value that arrives either as a JSON
// number or as a numeric string ("1,250.00", "$300").
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return eris.Wrap(err, "record: amount string")
		}
		v, err := parseAmount(s)
		if err != nil {
			return err
		}
		*a = Amount(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return eris.Wrap(err, "record: amount must be numeric")
	}
	*a = Amount(f)
	return nil
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(s))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "record: parse amount %q", s)
	}
	return v, nil
}

// Row is one loosely typed response row used by lenient decoding.
type Row map[string]json.RawMessage

// Str returns the first non-empty value among keys rendered as a string.
// Numbers and booleans are returned verbatim; objects, arrays and nulls
// count as empty.
func (r Row) Str(keys ...string) string {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			continue
		}
		var v string
		switch raw[0] {
		case '"':
			_ = json.Unmarshal(raw, &v)
		case '{', '[', 'n':
			continue
		default:
			v = string(raw)
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Date returns the first parseable date among keys, or the zero Date.
func (r Row) Date(keys ...string) Date {
	for _, k := range keys {
		if d, err := ParseDate(r.Str(k)); err == nil && !d.IsZero() {
			return d
		}
	}
	return Date{}
}

// Amount returns the first parseable amount among keys, or 0.
func (r Row) Amount(keys ...string) Amount {
	for _, k := range keys {
		s := r.Str(k)
		if s == "" {
			continue
		}
		if v, err := parseAmount(s); err == nil {
			return Amount(v)
		}
	}
	return 0
}

// Raw returns the undecoded value for key.
func (r Row) Raw(key string) json.RawMessage {
	return r[key]
}
