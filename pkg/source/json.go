package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/minietl/pkg/etlerrors"
	"github.com/ajitpratap0/minietl/pkg/table"
)

// decodeJSON reads a JSON array of objects, line-delimited objects (JSON
// Lines) or a single column-oriented object whose members all map row labels
// to values, such as {"product_id": {"0": 101, "1": 102}}. Columns appear in
// the order their keys are first seen; keys missing from a record read as
// null. Nested values are kept as their compact JSON text.
func decodeJSON(_ context.Context, r io.Reader) (*table.Dataset, error) {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()

	b := &recordBuilder{index: map[string]int{}}

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errEmptyInput
		}
		return nil, malformedJSON(err)
	}

	switch tok {
	case gojson.Delim('['):
		for dec.More() {
			if err := expectDelim(dec, '{'); err != nil {
				return nil, err
			}
			if err := b.readObject(dec); err != nil {
				return nil, err
			}
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
	case gojson.Delim('{'):
		first, err := readMembers(dec)
		if err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) && columnOriented(first) {
			if err := b.addColumns(first); err != nil {
				return nil, err
			}
			break
		}
		if err := b.addRecord(first); err != nil {
			return nil, err
		}
		for !errors.Is(err, io.EOF) {
			if err != nil {
				return nil, malformedJSON(err)
			}
			if tok != gojson.Delim('{') {
				return nil, malformedJSON(fmt.Errorf("expected object, got %v", tok))
			}
			if err := b.readObject(dec); err != nil {
				return nil, err
			}
			tok, err = dec.Token()
		}
	default:
		return nil, malformedJSON(fmt.Errorf("expected array or object, got %v", tok))
	}

	return b.dataset()
}

// member is one key of a JSON object with its undecoded value.
type member struct {
	key string
	raw gojson.RawMessage
}

// readMembers consumes the members of an object whose opening brace has
// already been read, including the closing brace.
func readMembers(dec *gojson.Decoder) ([]member, error) {
	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformedJSON(err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, malformedJSON(fmt.Errorf("expected object key, got %v", tok))
		}

		var raw gojson.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, malformedJSON(err)
		}
		members = append(members, member{key: key, raw: raw})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return members, nil
}

// columnOriented reports whether every member of a non-empty object is
// itself an object.
func columnOriented(members []member) bool {
	if len(members) == 0 {
		return false
	}
	for _, m := range members {
		raw := bytes.TrimSpace(m.raw)
		if len(raw) == 0 || raw[0] != '{' {
			return false
		}
	}
	return true
}

type recordBuilder struct {
	columns []string
	index   map[string]int
	records []map[int]any
}

func (b *recordBuilder) column(key string) int {
	c, ok := b.index[key]
	if !ok {
		c = len(b.columns)
		b.index[key] = c
		b.columns = append(b.columns, key)
	}
	return c
}

func (b *recordBuilder) readObject(dec *gojson.Decoder) error {
	members, err := readMembers(dec)
	if err != nil {
		return err
	}
	return b.addRecord(members)
}

func (b *recordBuilder) addRecord(members []member) error {
	record := make(map[int]any, len(members))
	for _, m := range members {
		value, err := decodeCell(m.raw)
		if err != nil {
			return err
		}
		record[b.column(m.key)] = value
	}
	b.records = append(b.records, record)
	return nil
}

// addColumns reads column-oriented members. Rows follow the order in which
// their labels are first seen.
func (b *recordBuilder) addColumns(members []member) error {
	rows := map[string]int{}
	for _, m := range members {
		c := b.column(m.key)

		dec := gojson.NewDecoder(bytes.NewReader(m.raw))
		dec.UseNumber()
		if err := expectDelim(dec, '{'); err != nil {
			return err
		}
		cells, err := readMembers(dec)
		if err != nil {
			return err
		}
		for _, cell := range cells {
			r, ok := rows[cell.key]
			if !ok {
				r = len(b.records)
				rows[cell.key] = r
				b.records = append(b.records, map[int]any{})
			}
			value, err := decodeCell(cell.raw)
			if err != nil {
				return err
			}
			b.records[r][c] = value
		}
	}
	return nil
}

func (b *recordBuilder) dataset() (*table.Dataset, error) {
	if len(b.records) == 0 {
		return table.Empty(), nil
	}
	rows := make([][]any, len(b.records))
	for r, record := range b.records {
		row := make([]any, len(b.columns))
		for c, v := range record {
			row[c] = v
		}
		rows[r] = row
	}
	return table.New(b.columns, rows)
}

func decodeCell(raw gojson.RawMessage) (any, error) {
	dec := gojson.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, malformedJSON(err)
	}
	value, err := cellValue(v)
	if err != nil {
		return nil, malformedJSON(err)
	}
	return value, nil
}

// cellValue converts a decoded JSON value to a dataset cell. Integral
// numbers become int64 and other numbers float64.
func cellValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool:
		return x, nil
	case gojson.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		return x.Float64()
	default:
		data, err := gojson.Marshal(x)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
}

func expectDelim(dec *gojson.Decoder, want gojson.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return malformedJSON(err)
	}
	if tok != want {
		return malformedJSON(fmt.Errorf("expected %q, got %v", want, tok))
	}
	return nil
}

func malformedJSON(err error) error {
	return etlerrors.Wrap(err, etlerrors.ErrorTypeMalformed, "invalid JSON format")
}
