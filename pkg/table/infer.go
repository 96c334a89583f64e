package table

import (
	"strconv"
	"strings"
)

// nullTokens are text cells read as null.
var nullTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
}

// ParseColumn converts the raw text cells of one column into typed cells.
// The whole column is parsed as int64 if every non-null cell is an integer,
// as float64 if every non-null cell is numeric, as bool if every non-null
// cell is true/false, and kept as strings otherwise.
func ParseColumn(raw []string) []any {
	allInt, allFloat, allBool := true, true, true

	for _, s := range raw {
		if IsNullToken(s) {
			continue
		}
		if allInt {
			if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := parseBool(s); !ok {
				allBool = false
			}
		}
	}

	out := make([]any, len(raw))
	for i, s := range raw {
		if IsNullToken(s) {
			continue
		}
		v := strings.TrimSpace(s)
		switch {
		case allInt:
			n, _ := strconv.ParseInt(v, 10, 64)
			out[i] = n
		case allFloat:
			f, _ := strconv.ParseFloat(v, 64)
			out[i] = f
		case allBool:
			b, _ := parseBool(v)
			out[i] = b
		default:
			out[i] = s
		}
	}
	return out
}

// IsNullToken reports whether a text cell denotes a missing value.
func IsNullToken(s string) bool {
	_, ok := nullTokens[strings.TrimSpace(s)]
	return ok
}

func parseBool(s string) (bool, bool) {
	switch strings.TrimSpace(s) {
	case "true", "True", "TRUE":
		return true, true
	case "false", "False", "FALSE":
		return false, true
	}
	return false, false
}
