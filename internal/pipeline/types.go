package pipeline

import (
	"context"
	"time"

	"github.com/ajitpratap0/minietl/pkg/config"
	"github.com/ajitpratap0/minietl/pkg/etlerrors"
	"github.com/ajitpratap0/minietl/pkg/table"
)

// State is a stage of a pipeline run.
type State string

const (
	StateInit      State = "init"
	StateExtract   State = "extract"
	StateTransform State = "transform"
	StateLoad      State = "load"
	StateDone      State = "done"
)

// Source names, in extraction order.
const (
	SourceSales    = "sales"
	SourceProducts = "products"
	SourceRegions  = "regions"
)

// Sink names.
const (
	SinkFile     = "file"
	SinkDatabase = "database"
)

// Extractor reads one source file into a dataset. It returns a non-nil
// dataset even when it fails.
type Extractor interface {
	Read(ctx context.Context, path, format string) (*table.Dataset, error)
}

// Transformer joins the three source datasets.
type Transformer interface {
	Merge(ctx context.Context, sales, products, regions *table.Dataset) (*table.Dataset, error)
}

// FileWriter writes the merged dataset to a file.
type FileWriter interface {
	Save(ctx context.Context, ds *table.Dataset, path, format string) error
}

// TableLoader replaces a database table with the merged dataset.
type TableLoader interface {
	Load(ctx context.Context, ds *table.Dataset, cfg config.DatabaseConfig) error
}

// Failure is a stage failure absorbed during a run.
type Failure struct {
	Stage     State
	Component string
	Kind      etlerrors.ErrorType
	Err       error
}

// Report describes a finished run.
type Report struct {
	RunID string
	// State is the last state reached, StateDone for every completed run
	State      State
	SourceRows map[string]int
	MergedRows int
	// LoadSkipped is set when the merged dataset was empty
	LoadSkipped bool
	Failures    []Failure
	Duration    time.Duration
}

// Failed reports whether any stage failure was absorbed.
func (r *Report) Failed() bool {
	return len(r.Failures) > 0
}

func (r *Report) addFailure(stage State, component string, err error) {
	r.Failures = append(r.Failures, Failure{
		Stage:     stage,
		Component: component,
		Kind:      etlerrors.KindOf(err),
		Err:       err,
	})
}
