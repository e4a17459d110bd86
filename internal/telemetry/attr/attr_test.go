package attr

import (
	"errors"
	"math"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestFromAnyScalars(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		wantType attribute.Type
		want     any
	}{
		{"string", "hello", attribute.STRING, "hello"},
		{"bool", true, attribute.BOOL, true},
		{"int", 42, attribute.INT64, int64(42)},
		{"int32", int32(-7), attribute.INT64, int64(-7)},
		{"uint16", uint16(9), attribute.INT64, int64(9)},
		{"float", 1.5, attribute.FLOAT64, 1.5},
		{"float32", float32(0.5), attribute.FLOAT64, 0.5},
		{"huge uint", uint64(1 << 63), attribute.STRING, "9223372036854775808"},
		{"duration", 1500 * time.Millisecond, attribute.STRING, "1.5s"},
		{"error", errors.New("boom"), attribute.STRING, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := FromAny(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, v.Type())
			assert.Equal(t, tt.want, v.AsInterface())
		})
	}
}

func TestFromAnyNil(t *testing.T) {
	_, ok := FromAny(nil)
	assert.False(t, ok)
}

func TestFromAnySerializesStructuredValues(t *testing.T) {
	v, ok := FromAny(map[string]any{"id": 7, "tags": []string{"a", "b"}})
	require.True(t, ok)
	assert.Equal(t, attribute.STRING, v.Type())
	assert.JSONEq(t, `{"id":7,"tags":["a","b"]}`, v.AsString())

	v, ok = FromAny([]int{1, 2, 3})
	require.True(t, ok)
	assert.Equal(t, attribute.STRING, v.Type())
	assert.Equal(t, "[1,2,3]", v.AsString())
}

func TestFromAnyFlattensSliceAttributes(t *testing.T) {
	v, ok := FromAny(attribute.StringSliceValue([]string{"x", "y"}))
	require.True(t, ok)
	assert.Equal(t, attribute.STRING, v.Type())
}

func TestMapSetAndClone(t *testing.T) {
	m := Map{}
	m.Set("a", "1")
	m.Set("b", nil)
	m.Set("c", map[string]int{"n": 1})

	assert.Len(t, m, 2)
	assert.Equal(t, []string{"a", "c"}, m.Keys())

	clone := m.Clone()
	clone.Set("a", "changed")
	assert.Equal(t, "1", m["a"].AsString())
	assert.Equal(t, "changed", clone["a"].AsString())
}

func TestMapKeyValuesSorted(t *testing.T) {
	m := Map{}
	m.Set("z", 1)
	m.Set("a", 2)

	kvs := m.KeyValues()
	require.Len(t, kvs, 2)
	assert.Equal(t, attribute.Key("a"), kvs[0].Key)
	assert.Equal(t, attribute.Key("z"), kvs[1].Key)
	assert.Equal(t, map[string]any{"a": int64(2), "z": int64(1)}, m.Plain())
}

func TestFromAnyRepairsInvalidUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"string", "path /\xff\xfe"},
		{"attribute value", attribute.StringValue("bad \xc3")},
		{"error", errors.New("read \xff failed")},
		{"structured", map[string]string{"k": "v\xff"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := FromAny(tt.in)
			require.True(t, ok)
			assert.True(t, utf8.ValidString(v.AsString()), v.AsString())
		})
	}

	assert.Equal(t, attribute.StringValue("path /\uFFFD"), mustFromAny(t, "path /\xff\xfe"))

	m := Map{}
	m.Set("key\xff", "v")
	for k := range m {
		assert.True(t, utf8.ValidString(k))
	}
}

func TestFromAnyNonFiniteFloats(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{math.NaN(), "NaN"},
		{math.Inf(1), "+Inf"},
		{math.Inf(-1), "-Inf"},
		{float32(math.Inf(1)), "+Inf"},
		{attribute.Float64Value(math.NaN()), "NaN"},
	}

	for _, tt := range tests {
		v, ok := FromAny(tt.in)
		require.True(t, ok)
		assert.Equal(t, attribute.StringValue(tt.want), v)
	}

	v, _ := FromAny(1.5)
	assert.Equal(t, attribute.Float64Value(1.5), v)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "req_", Truncate("req_", 8))
	assert.Equal(t, "abcdefgh", Truncate("abcdefghij", 8))
	assert.Equal(t, "日本語テキストで", Truncate("日本語テキストですよ", 8))
	assert.True(t, utf8.ValidString(Truncate("aaaaaaa日本", 8)))
	assert.Equal(t, "aaaaaaa日", Truncate("aaaaaaa日本", 8))
}

func mustFromAny(t *testing.T, v any) attribute.Value {
	t.Helper()
	out, ok := FromAny(v)
	require.True(t, ok)
	return out
}
