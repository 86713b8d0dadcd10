package sources

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
)

// IDKey is where fetchers store a human-readable record locator used in logs
// and error messages. It is never treated as an unmapped field.
const IDKey = "_id"

// Record is one raw provider record as decoded from JSON, CSV or YAML. It is
// never modified by mappers.
type Record map[string]any

// ID returns the record locator, if any.
func (r Record) ID() string {
	return r.String(IDKey)
}

// With returns a shallow copy of r with key set.
func (r Record) With(key string, value any) Record {
	out := maps.Clone(r)
	if out == nil {
		out = Record{}
	}
	out[key] = value
	return out
}

// Has reports whether key holds a non-empty value.
func (r Record) Has(key string) bool {
	return !isEmpty(r[key])
}

// String returns the value at key as a trimmed string. Numbers and booleans
// are formatted; other types yield "".
func (r Record) String(key string) string {
	return asString(r[key])
}

// Strings returns a list value as strings. A single scalar becomes a
// one-element list; empty entries are dropped.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case nil:
		return nil
	case []string:
		return compact(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, asString(item))
		}
		return compact(out)
	default:
		return compact([]string{asString(v)})
	}
}

// Map returns a nested object, or nil.
func (r Record) Map(key string) Record {
	return asRecord(r[key])
}

// Maps returns a list of nested objects, skipping non-object entries.
func (r Record) Maps(key string) []Record {
	list, ok := r[key].([]any)
	if !ok {
		if m := asRecord(r[key]); m != nil {
			return []Record{m}
		}
		return nil
	}
	out := make([]Record, 0, len(list))
	for _, item := range list {
		if m := asRecord(item); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Raw returns the map at key without conversion, for localized objects.
func (r Record) Raw(key string) map[string]any {
	return map[string]any(asRecord(r[key]))
}

// Bool returns a boolean value; strings "true" and "yes" count as true.
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b || strings.EqualFold(strings.TrimSpace(v), "yes")
	}
	return false
}

// Int64 returns an integer value from a JSON number or numeric string.
func (r Record) Int64(key string) (int64, bool) {
	switch v := r[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// KnownFields is the allow-list of keys a mapper consumes or deliberately
// ignores.
type KnownFields map[string]struct{}

// Known builds an allow-list.
func Known(keys ...string) KnownFields {
	kf := make(KnownFields, len(keys)+1)
	for _, k := range keys {
		kf[k] = struct{}{}
	}
	kf[IDKey] = struct{}{}
	return kf
}

// Unmapped returns the sorted keys of r that hold a value and are not in
// known.
func (r Record) Unmapped(known KnownFields) []string {
	var out []string
	for k, v := range r {
		if _, ok := known[k]; ok || isEmpty(v) {
			continue
		}
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// ReportUnmapped records every unmapped key of r on rec, prefixed with scope
// when nested objects are reported separately.
func (r Record) ReportUnmapped(known KnownFields, rec *diagnostics.Recorder, scope string) {
	for _, k := range r.Unmapped(known) {
		name := k
		if scope != "" {
			name = scope + "." + k
		}
		rec.Unmapped(name, r[k])
	}
}

func asRecord(v any) Record {
	switch m := v.(type) {
	case Record:
		return m
	case map[string]any:
		return Record(m)
	}
	return nil
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	case json.Number:
		return s.String()
	case fmt.Stringer:
		return strings.TrimSpace(s.String())
	}
	return ""
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	case Record:
		return len(x) == 0
	case bool:
		return !x
	}
	return false
}

func compact(in []string) []string {
	out := in[:0:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
