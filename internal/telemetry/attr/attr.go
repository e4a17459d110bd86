// Package attr holds the flat attribute model shared by spans and log
// records. Values are restricted to the scalar kinds STRING, INT64, FLOAT64
// and BOOL; anything structured is serialized to a JSON string before it is
// stored, so exporters never see nested values. Strings are always valid
// UTF-8 and floats always finite, since OTLP protobuf and JSON encoders
// reject anything else.
package attr

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/attribute"
)

// Map is a flat mapping of attribute keys to scalar values.
type Map map[string]attribute.Value

// FromAny converts v into a scalar attribute value. The second result is
// false for nil, which callers skip.
func FromAny(v any) (attribute.Value, bool) {
	switch t := v.(type) {
	case nil:
		return attribute.Value{}, false
	case attribute.Value:
		switch t.Type() {
		case attribute.STRING:
			return attribute.StringValue(Clean(t.AsString())), true
		case attribute.FLOAT64:
			return fromFloat64(t.AsFloat64()), true
		}
		if !isScalar(t) {
			return attribute.StringValue(Clean(t.Emit())), true
		}
		return t, true
	case string:
		return attribute.StringValue(Clean(t)), true
	case bool:
		return attribute.BoolValue(t), true
	case int:
		return attribute.IntValue(t), true
	case int8:
		return attribute.Int64Value(int64(t)), true
	case int16:
		return attribute.Int64Value(int64(t)), true
	case int32:
		return attribute.Int64Value(int64(t)), true
	case int64:
		return attribute.Int64Value(t), true
	case uint8:
		return attribute.Int64Value(int64(t)), true
	case uint16:
		return attribute.Int64Value(int64(t)), true
	case uint32:
		return attribute.Int64Value(int64(t)), true
	case uint:
		return fromUint64(uint64(t)), true
	case uint64:
		return fromUint64(t), true
	case float32:
		return fromFloat64(float64(t)), true
	case float64:
		return fromFloat64(t), true
	case time.Time:
		return attribute.StringValue(t.Format(time.RFC3339Nano)), true
	case time.Duration:
		return attribute.StringValue(t.String()), true
	case error:
		return attribute.StringValue(Clean(t.Error())), true
	default:
		return attribute.StringValue(Clean(Serialize(v))), true
	}
}

// Serialize renders a structured value as JSON, falling back to %v when
// the value cannot be encoded.
func Serialize(v any) string {
	s, err := sonic.MarshalString(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return s
}

// Clean replaces invalid UTF-8 sequences with U+FFFD.
func Clean(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "\uFFFD")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// NaN and the infinities become strings.
func fromFloat64(f float64) attribute.Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return attribute.StringValue(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return attribute.Float64Value(f)
}

func fromUint64(v uint64) attribute.Value {
	if v > math.MaxInt64 {
		return attribute.StringValue(fmt.Sprintf("%d", v))
	}
	return attribute.Int64Value(int64(v))
}

func isScalar(v attribute.Value) bool {
	switch v.Type() {
	case attribute.STRING, attribute.INT64, attribute.FLOAT64, attribute.BOOL:
		return true
	}
	return false
}

// Set stores v under key. Nil values are ignored.
func (m Map) Set(key string, v any) {
	if val, ok := FromAny(v); ok {
		m[Clean(key)] = val
	}
}

// Clone returns a shallow copy. Values are immutable so a shallow copy is
// independent of the original.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KeyValues returns the attributes sorted by key.
func (m Map) KeyValues() []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(m))
	for _, k := range m.Keys() {
		kvs = append(kvs, attribute.KeyValue{Key: attribute.Key(k), Value: m[k]})
	}
	return kvs
}

// Plain returns the attributes as Go primitives, for JSON rendering.
func (m Map) Plain() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.AsInterface()
	}
	return out
}
