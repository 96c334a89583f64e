// Package merge joins the three source datasets into the merged dataset.
package merge

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/ajitpratap0/minietl/pkg/etlerrors"
	"github.com/ajitpratap0/minietl/pkg/logger"
	"github.com/ajitpratap0/minietl/pkg/table"
)

// LoggerName is the name of the merger's child logger.
const LoggerName = "merger"

// Join keys.
const (
	ProductKey = "product_id"
	OrderKey   = "order_id"
)

// Merger performs the two left joins of the transform stage.
type Merger struct {
	log *zap.Logger
}

// NewMerger creates a merger logging to a child of log.
func NewMerger(log *zap.Logger) *Merger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Merger{log: log.Named(LoggerName)}
}

// Merge left joins sales with products on product_id and the result with
// regions on order_id. Every sales row is kept. A missing key column, or any
// unexpected failure, yields table.Empty() and an etlerrors.ErrorTypeMerge
// error that has already been logged.
func (m *Merger) Merge(ctx context.Context, sales, products, regions *table.Dataset) (ds *table.Dataset, err error) {
	log := logger.WithContext(ctx, m.log)

	defer func() {
		if p := recover(); p != nil {
			ds = table.Empty()
			err = etlerrors.Newf(etlerrors.ErrorTypeMerge, "merge panic: %v", p).
				WithDetail("panic_stack", string(debug.Stack()))
			log.Error("error merging datasets", etlerrors.Fields(err, true)...)
		}
	}()

	log.Info("merging datasets",
		zap.Stringer("sales", sales),
		zap.Stringer("products", products),
		zap.Stringer("regions", regions))

	withProducts, err := table.LeftJoin(sales, products, ProductKey)
	if err != nil {
		return m.fail(log, err, ProductKey)
	}

	merged, err := table.LeftJoin(withProducts, regions, OrderKey)
	if err != nil {
		return m.fail(log, err, OrderKey)
	}

	log.Info("merged dataset shape", zap.Int("rows", merged.NumRows()), zap.Int("columns", merged.NumColumns()))
	return merged, nil
}

func (m *Merger) fail(log *zap.Logger, cause error, key string) (*table.Dataset, error) {
	err := etlerrors.Wrap(cause, etlerrors.ErrorTypeMerge, "failed to join datasets").
		WithDetail("key", key)
	log.Error("error merging datasets", etlerrors.Fields(err, true)...)
	return table.Empty(), err
}
