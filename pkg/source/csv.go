package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ajitpratap0/minietl/pkg/etlerrors"
	"github.com/ajitpratap0/minietl/pkg/table"
)

var errEmptyInput = errors.New("no columns to parse from file")

// decodeCSV reads a CSV document whose first row names the columns. Short
// rows are padded with nulls; rows with more cells than the header are
// malformed. Cells are typed per column by table.ParseColumn.
func decodeCSV(_ context.Context, r io.Reader) (*table.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errEmptyInput
		}
		return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeMalformed, "failed to read CSV header")
	}
	columns := headerNames(header)

	raw := make([][]string, len(columns))
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, etlerrors.Wrap(err, etlerrors.ErrorTypeMalformed, "failed to parse CSV").
				WithDetail("line", line)
		}
		if len(record) > len(columns) {
			return nil, etlerrors.Newf(etlerrors.ErrorTypeMalformed,
				"expected %d fields, saw %d", len(columns), len(record)).
				WithDetail("line", line)
		}
		for c := range columns {
			cell := ""
			if c < len(record) {
				cell = record[c]
			}
			raw[c] = append(raw[c], cell)
		}
	}

	numRows := 0
	if len(raw) > 0 {
		numRows = len(raw[0])
	}
	typed := make([][]any, len(columns))
	for c := range columns {
		typed[c] = table.ParseColumn(raw[c])
	}

	rows := make([][]any, numRows)
	for r := range rows {
		row := make([]any, len(columns))
		for c := range columns {
			row[c] = typed[c][r]
		}
		rows[r] = row
	}

	return table.New(columns, rows)
}

// headerNames names blank header cells "Unnamed: i" and disambiguates
// repeated names with a ".n" suffix.
func headerNames(header []string) []string {
	seen := make(map[string]int, len(header))
	names := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		}
		seen[name] = 0
		names[i] = name
	}
	return names
}
