package table

import (
	"fmt"
	"strconv"
	"time"
)

// FieldType represents the data type of a column.
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeInt       FieldType = "int"
	FieldTypeFloat     FieldType = "float"
	FieldTypeBool      FieldType = "bool"
	FieldTypeTimestamp FieldType = "timestamp"
)

// Field describes one column.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
}

// Schema describes the columns of a dataset in order.
type Schema struct {
	Fields []Field
}

// Schema infers a field type for every column from its cells.
func (d *Dataset) Schema() Schema {
	fields := make([]Field, len(d.columns))
	for c, name := range d.columns {
		values := make([]any, len(d.rows))
		for r, row := range d.rows {
			values[r] = row[c]
		}
		t, nullable := InferType(values)
		fields[c] = Field{Name: name, Type: t, Nullable: nullable}
	}
	return Schema{Fields: fields}
}

// InferType returns the narrowest field type able to hold all non-nil values.
// Mixed int and float columns widen to float; any other mix, and columns with
// no non-nil value, become string.
func InferType(values []any) (FieldType, bool) {
	var (
		seen     FieldType
		nullable bool
	)
	for _, v := range values {
		if v == nil {
			nullable = true
			continue
		}
		t := typeOf(v)
		switch {
		case seen == "":
			seen = t
		case seen == t:
		case isNumeric(seen) && isNumeric(t):
			seen = FieldTypeFloat
		default:
			seen = FieldTypeString
		}
	}
	if seen == "" {
		return FieldTypeString, true
	}
	return seen, nullable
}

// Coerce converts a normalized cell to the given field type. nil stays nil.
func Coerce(v any, t FieldType) any {
	if v == nil {
		return nil
	}
	switch t {
	case FieldTypeFloat:
		if i, ok := v.(int64); ok {
			return float64(i)
		}
	case FieldTypeString:
		if _, ok := v.(string); !ok {
			return FormatCell(v)
		}
	}
	return v
}

// FormatCell renders a cell as text. nil renders as the empty string.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func typeOf(v any) FieldType {
	switch v.(type) {
	case int64:
		return FieldTypeInt
	case float64:
		return FieldTypeFloat
	case bool:
		return FieldTypeBool
	case time.Time:
		return FieldTypeTimestamp
	default:
		return FieldTypeString
	}
}

func isNumeric(t FieldType) bool {
	return t == FieldTypeInt || t == FieldTypeFloat
}
