package etlerrors

import (
	"errors"
	"sort"

	"go.uber.org/zap"
)

// Fields converts err into zap fields: the error itself, its kind and its
// details. With stack set, the captured stack trace is included as well.
func Fields(err error, stack bool) []zap.Field {
	if err == nil {
		return nil
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.String("kind", string(KindOf(err))),
	}

	var e *Error
	if !errors.As(err, &e) {
		return fields
	}

	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, e.Details[k]))
	}

	if stack && len(e.Stack) > 0 {
		fields = append(fields, zap.Strings("stack", e.StackTrace()))
	}
	return fields
}
