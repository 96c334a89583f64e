package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/minietl/pkg/config"
	"github.com/ajitpratap0/minietl/pkg/formats/columnar"
	"github.com/ajitpratap0/minietl/pkg/table"
)

// Source fixture contents. Order 3 references a product with no entry and
// has no region, so it survives the merge with null right columns.
const (
	SalesCSV = "order_id,product_id,quantity\n" +
		"1,101,2\n" +
		"2,102,1\n" +
		"3,103,5\n"

	ProductsJSON = `[
  {"product_id": 101, "product_name": "Book", "price": 12.5},
  {"product_id": 102, "product_name": "Pen", "price": 1.25}
]`

	// MergedCSV is the file sink output for the fixtures.
	MergedCSV = "order_id,product_id,quantity,product_name,price,region\n" +
		"1,101,2,Book,12.5,West\n" +
		"2,102,1,Pen,1.25,East\n" +
		"3,103,5,,,\n"
)

// MergedColumns are the columns of the merged fixtures.
var MergedColumns = []string{"order_id", "product_id", "quantity", "product_name", "price", "region"}

// Regions returns the regions fixture dataset.
func Regions() *table.Dataset {
	return table.MustNew([]string{"order_id", "region"}, [][]any{
		{1, "West"},
		{2, "East"},
	})
}

// Fixtures locates the three source files written by WriteFixtures.
type Fixtures struct {
	Dir          string
	SalesCSV     string
	ProductsJSON string
	RegionsPQ    string
}

// WriteFixtures writes the sales, products and regions fixtures into dir.
func WriteFixtures(t *testing.T, dir string) Fixtures {
	t.Helper()

	f := Fixtures{
		Dir:          dir,
		SalesCSV:     WriteFile(t, dir, "sales.csv", []byte(SalesCSV)),
		ProductsJSON: WriteFile(t, dir, "products.json", []byte(ProductsJSON)),
	}

	var buf bytes.Buffer
	require.NoError(t, columnar.WriteParquet(&buf, Regions(), columnar.DefaultWriterConfig()))
	f.RegionsPQ = WriteFile(t, dir, "regions.parquet", buf.Bytes())
	return f
}

// Config returns a configuration reading the fixtures and logging into
// Dir/logs. No sink is configured.
func (f Fixtures) Config() config.Config {
	return config.Config{
		Logging: config.LoggingConfig{
			Dir:        filepath.Join(f.Dir, "logs"),
			File:       config.DefaultLogFile,
			Level:      config.DefaultLogLevel,
			MaxSizeMB:  config.DefaultMaxSizeMB,
			MaxBackups: config.DefaultMaxBackups,
		},
		DataPaths: config.DataPaths{
			CSVFile:     f.SalesCSV,
			JSONFile:    f.ProductsJSON,
			ParquetFile: f.RegionsPQ,
		},
		Database: config.DatabaseConfig{Table: config.DefaultTable},
		Pipeline: config.PipelineConfig{
			OutputFormat: config.DefaultOutputFormat,
			Compression:  config.DefaultCompression,
		},
	}
}

// WriteConfig saves cfg as config.yaml in dir and returns its path.
func WriteConfig(t *testing.T, dir string, cfg config.Config) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

// WriteFile creates dir/name with content and returns its path.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}
