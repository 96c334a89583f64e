package table

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidates(t *testing.T) {
	_, err := New([]string{"a", "a"}, nil)
	assert.Error(t, err)

	_, err = New([]string{"a", ""}, nil)
	assert.Error(t, err)

	_, err = New([]string{"a", "b"}, [][]any{{1}})
	assert.Error(t, err)
}

func TestDatasetIsImmutable(t *testing.T) {
	rows := [][]any{{1, "x"}}
	cols := []string{"id", "name"}
	ds := MustNew(cols, rows)

	rows[0][0] = 99
	cols[0] = "changed"
	row := ds.Row(0)
	row[1] = "mutated"

	v, ok := ds.Value(0, "id")
	require.True(t, ok)
	assert.Equal(t, int64(1), v)
	assert.Equal(t, []string{"id", "name"}, ds.Columns())
	assert.Equal(t, "x", ds.Row(0)[1])
}

func TestEmpty(t *testing.T) {
	ds := Empty()
	assert.Equal(t, 0, ds.NumRows())
	assert.Equal(t, 0, ds.NumColumns())
	assert.True(t, ds.IsEmpty())
	assert.False(t, ds.HasColumn("x"))

	headerOnly := MustNew([]string{"a"}, nil)
	assert.True(t, headerOnly.IsEmpty())
	assert.Equal(t, 1, headerOnly.NumColumns())
}

func TestParseColumn(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []any
	}{
		{"ints", []string{"1", "2", ""}, []any{int64(1), int64(2), nil}},
		{"floats widen ints", []string{"1", "2.5"}, []any{1.0, 2.5}},
		{"bools", []string{"true", "False"}, []any{true, false}},
		{"mixed stays text", []string{"1", "abc", "NA"}, []any{"1", "abc", nil}},
		{"all null", []string{"", "null"}, []any{nil, nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseColumn(tt.raw))
		})
	}
}

func TestSchemaInference(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	ds := MustNew(
		[]string{"i", "f", "mixed", "b", "s", "t", "none"},
		[][]any{
			{1, 1.5, 1, true, "a", ts, nil},
			{2, nil, 2.5, false, "b", ts, nil},
		},
	)

	schema := ds.Schema()
	got := make(map[string]Field, len(schema.Fields))
	for _, f := range schema.Fields {
		got[f.Name] = f
	}

	assert.Equal(t, FieldTypeInt, got["i"].Type)
	assert.False(t, got["i"].Nullable)
	assert.Equal(t, FieldTypeFloat, got["f"].Type)
	assert.True(t, got["f"].Nullable)
	assert.Equal(t, FieldTypeFloat, got["mixed"].Type)
	assert.Equal(t, FieldTypeBool, got["b"].Type)
	assert.Equal(t, FieldTypeString, got["s"].Type)
	assert.Equal(t, FieldTypeTimestamp, got["t"].Type)
	assert.Equal(t, FieldTypeString, got["none"].Type)
	assert.True(t, got["none"].Nullable)
}

func TestCoerceAndFormat(t *testing.T) {
	assert.Equal(t, 3.0, Coerce(int64(3), FieldTypeFloat))
	assert.Equal(t, "3", Coerce(int64(3), FieldTypeString))
	assert.Nil(t, Coerce(nil, FieldTypeInt))
	assert.Equal(t, "2.5", FormatCell(2.5))
	assert.Equal(t, "", FormatCell(nil))
	assert.Equal(t, "true", FormatCell(true))
}

func TestLeftJoinPreservesLeftRows(t *testing.T) {
	sales := MustNew([]string{"order_id", "product_id", "qty"}, [][]any{
		{1, 101, 2},
		{2, 102, 1},
		{3, nil, 5},
	})
	products := MustNew([]string{"product_id", "name"}, [][]any{
		{101.0, "Book"},
		{999, "Unused"},
	})

	out, err := LeftJoin(sales, products, "product_id")
	require.NoError(t, err)

	assert.Equal(t, []string{"order_id", "product_id", "qty", "name"}, out.Columns())
	require.Equal(t, 3, out.NumRows())
	assert.Equal(t, []any{int64(1), int64(101), int64(2), "Book"}, out.Row(0))
	assert.Equal(t, []any{int64(2), int64(102), int64(1), nil}, out.Row(1))
	assert.Equal(t, []any{int64(3), nil, int64(5), nil}, out.Row(2))
}

func TestLeftJoinDuplicatesAndSuffixes(t *testing.T) {
	left := MustNew([]string{"k", "v"}, [][]any{{"a", 1}, {"b", 2}})
	right := MustNew([]string{"k", "v"}, [][]any{{"a", 10}, {"a", 11}})

	out, err := LeftJoin(left, right, "k")
	require.NoError(t, err)

	assert.Equal(t, []string{"k", "v_x", "v_y"}, out.Columns())
	assert.Equal(t, 3, out.NumRows())
	assert.Equal(t, []any{"a", int64(1), int64(10)}, out.Row(0))
	assert.Equal(t, []any{"a", int64(1), int64(11)}, out.Row(1))
	assert.Equal(t, []any{"b", int64(2), nil}, out.Row(2))
}

func TestLeftJoinMissingKey(t *testing.T) {
	_, err := LeftJoin(Empty(), MustNew([]string{"k"}, nil), "k")
	assert.Error(t, err)

	_, err = LeftJoin(MustNew([]string{"k"}, nil), Empty(), "k")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int", 3, int64(3)},
		{"uint32", uint32(4), int64(4)},
		{"uint64 in range", uint64(math.MaxInt64), int64(math.MaxInt64)},
		{"uint64 above int64", uint64(math.MaxUint64), float64(math.MaxUint64)},
		{"float32", float32(1.5), 1.5},
		{"bytes", []byte("ab"), "ab"},
		{"string", "x", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}

	ds := MustNew([]string{"id"}, [][]any{{uint64(math.MaxUint64)}})
	v, _ := ds.Value(0, "id")
	assert.Greater(t, v, float64(0))
}
