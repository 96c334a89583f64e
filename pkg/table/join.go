package table

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Suffixes applied to non-key columns present on both sides of a join.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// LeftJoin returns the left outer join of left and right on the key column.
//
// Every left row appears once per matching right row, or once with null right
// columns when nothing matches, so the left row order and count are preserved
// when right keys are unique. The result holds the left columns followed by
// the right non-key columns. Null keys never match.
func LeftJoin(left, right *Dataset, key string) (*Dataset, error) {
	lk, ok := left.ColumnIndex(key)
	if !ok {
		return nil, fmt.Errorf("join key %q not found in left dataset", key)
	}
	rk, ok := right.ColumnIndex(key)
	if !ok {
		return nil, fmt.Errorf("join key %q not found in right dataset", key)
	}

	rightCols := make([]int, 0, right.NumColumns())
	for i := range right.columns {
		if i != rk {
			rightCols = append(rightCols, i)
		}
	}

	columns := make([]string, 0, left.NumColumns()+len(rightCols))
	for i, name := range left.columns {
		if i != lk && right.HasColumn(name) {
			name += LeftSuffix
		}
		columns = append(columns, name)
	}
	for _, i := range rightCols {
		name := right.columns[i]
		if left.HasColumn(name) {
			name += RightSuffix
		}
		columns = append(columns, name)
	}

	matches := make(map[string][]int, right.NumRows())
	for r, row := range right.rows {
		if k, ok := joinKey(row[rk]); ok {
			matches[k] = append(matches[k], r)
		}
	}

	rows := make([][]any, 0, left.NumRows())
	for _, lrow := range left.rows {
		var hits []int
		if k, ok := joinKey(lrow[lk]); ok {
			hits = matches[k]
		}
		if len(hits) == 0 {
			rows = append(rows, joinRow(lrow, nil, rightCols))
			continue
		}
		for _, r := range hits {
			rows = append(rows, joinRow(lrow, right.rows[r], rightCols))
		}
	}

	return New(columns, rows)
}

func joinRow(left, right []any, rightCols []int) []any {
	out := make([]any, 0, len(left)+len(rightCols))
	out = append(out, left...)
	for _, c := range rightCols {
		if right == nil {
			out = append(out, nil)
		} else {
			out = append(out, right[c])
		}
	}
	return out
}

// joinKey maps a cell to a comparable key. int64 and integral float64 values
// share a key space so that 101 and 101.0 match.
func joinKey(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case int64:
		return "n:" + strconv.FormatInt(x, 10), true
	case float64:
		if math.IsNaN(x) {
			return "", false
		}
		if x == math.Trunc(x) && !math.IsInf(x, 0) && math.Abs(x) < 1<<63 {
			return "n:" + strconv.FormatInt(int64(x), 10), true
		}
		return "f:" + strconv.FormatFloat(x, 'g', -1, 64), true
	case string:
		return "s:" + x, true
	case bool:
		return "b:" + strconv.FormatBool(x), true
	case time.Time:
		return "t:" + strconv.FormatInt(x.UnixNano(), 10), true
	default:
		return "v:" + fmt.Sprintf("%v", x), true
	}
}
