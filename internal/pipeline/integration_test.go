package pipeline

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/minietl/pkg/formats/columnar"
	"github.com/ajitpratap0/minietl/pkg/table"
	"github.com/ajitpratap0/minietl/pkg/testutil"
)

type RunSuite struct {
	testutil.IntegrationTestSuite
}

func TestRunSuite(t *testing.T) {
	suite.Run(t, new(RunSuite))
}

func (s *RunSuite) TestCSVAndSQLite() {
	f := s.Fixtures()
	cfg := f.Config()
	cfg.DataPaths.OutputFile = "/replaced/by/override.csv"
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = filepath.Join(f.Dir, "warehouse.db")
	outPath := filepath.Join(f.Dir, "out", "merged.csv")
	metricsPath := filepath.Join(f.Dir, "minietl.prom")

	report, err := Run(s.Context(), Options{
		ConfigPath:  testutil.WriteConfig(s.T(), f.Dir, cfg),
		Overrides:   map[string]string{"output_file": outPath},
		MetricsFile: metricsPath,
	})
	s.Require().NoError(err)

	s.Equal(StateDone, report.State)
	s.Empty(report.Failures)
	s.NotEmpty(report.RunID)
	s.Equal(map[string]int{SourceSales: 3, SourceProducts: 2, SourceRegions: 2}, report.SourceRows)
	s.Equal(3, report.MergedRows)

	out, err := os.ReadFile(outPath)
	s.Require().NoError(err)
	s.Equal(testutil.MergedCSV, string(out))

	db, err := sql.Open("sqlite3", cfg.Database.Name)
	s.Require().NoError(err)
	defer db.Close()

	var count int
	s.Require().NoError(db.QueryRow(`SELECT count(*) FROM merged_data`).Scan(&count))
	s.Equal(3, count)

	var (
		name   sql.NullString
		price  sql.NullFloat64
		region sql.NullString
	)
	s.Require().NoError(db.QueryRow(`SELECT product_name, price, region FROM merged_data WHERE order_id = 1`).
		Scan(&name, &price, &region))
	s.Equal("Book", name.String)
	s.InDelta(12.5, price.Float64, 1e-9)
	s.Equal("West", region.String)

	s.Require().NoError(db.QueryRow(`SELECT product_name, price, region FROM merged_data WHERE order_id = 3`).
		Scan(&name, &price, &region))
	s.False(name.Valid)
	s.False(price.Valid)
	s.False(region.Valid)

	logData, err := os.ReadFile(filepath.Join(cfg.Logging.Dir, cfg.Logging.File))
	s.Require().NoError(err)
	s.Contains(string(logData), " - pipeline - INFO - pipeline completed")
	s.Contains(string(logData), " - pipeline.db_sink - INFO - table replaced")
	s.Contains(string(logData), report.RunID)

	metricsData, err := os.ReadFile(metricsPath)
	s.Require().NoError(err)
	s.Contains(string(metricsData), "minietl_merged_rows 3")
	s.Contains(string(metricsData), `minietl_rows_read{source="sales"} 3`)
}

func (s *RunSuite) TestParquetAndDuckDB() {
	f := s.Fixtures()
	cfg := f.Config()
	cfg.Database.Type = "duckdb"
	cfg.Database.Name = filepath.Join(f.Dir, "warehouse.duckdb")
	cfg.Pipeline.Compression = "zstd"
	outPath := filepath.Join(f.Dir, "merged.parquet")

	report, err := Run(s.Context(), Options{
		ConfigPath: testutil.WriteConfig(s.T(), f.Dir, cfg),
		Overrides:  map[string]string{"output_file": outPath, "output_format": "parquet"},
	})
	s.Require().NoError(err)
	s.Empty(report.Failures)

	file, err := os.Open(outPath)
	s.Require().NoError(err)
	defer file.Close()
	merged, err := columnar.ReadParquet(s.Context(), file)
	s.Require().NoError(err)
	s.Equal(testutil.MergedColumns, merged.Columns())
	s.Equal(3, merged.NumRows())

	db, err := sql.Open("duckdb", cfg.Database.Name)
	s.Require().NoError(err)
	defer db.Close()
	var count int
	s.Require().NoError(db.QueryRow(`SELECT count(*) FROM merged_data`).Scan(&count))
	s.Equal(3, count)
}

func (s *RunSuite) TestRerunReplacesOutputs() {
	f := s.Fixtures()
	cfg := f.Config()
	cfg.DataPaths.OutputFile = filepath.Join(f.Dir, "merged.csv")
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = filepath.Join(f.Dir, "warehouse.db")
	configPath := testutil.WriteConfig(s.T(), f.Dir, cfg)

	for i := 0; i < 2; i++ {
		report, err := Run(s.Context(), Options{ConfigPath: configPath})
		s.Require().NoError(err)
		s.Empty(report.Failures)
	}

	out, err := os.ReadFile(cfg.DataPaths.OutputFile)
	s.Require().NoError(err)
	s.Equal(testutil.MergedCSV, string(out))

	db, err := sql.Open("sqlite3", cfg.Database.Name)
	s.Require().NoError(err)
	defer db.Close()
	var count int
	s.Require().NoError(db.QueryRow(`SELECT count(*) FROM merged_data`).Scan(&count))
	s.Equal(3, count)
}

func (s *RunSuite) TestMissingSourceSkipsLoad() {
	f := s.Fixtures()
	cfg := f.Config()
	cfg.DataPaths.OutputFile = filepath.Join(f.Dir, "merged.csv")

	report, err := Run(s.Context(), Options{
		ConfigPath: testutil.WriteConfig(s.T(), f.Dir, cfg),
		Overrides:  map[string]string{"csv_file": filepath.Join(f.Dir, "missing.csv")},
	})
	s.Require().NoError(err)

	s.True(report.LoadSkipped)
	s.Equal(0, report.SourceRows[SourceSales])
	s.Equal(2, report.SourceRows[SourceProducts])
	s.NoFileExists(cfg.DataPaths.OutputFile)
}

func (s *RunSuite) TestSingleOrder() {
	dir := s.T().TempDir()
	var regions bytes.Buffer
	s.Require().NoError(columnar.WriteParquet(&regions,
		table.MustNew([]string{"order_id", "region"}, [][]any{{1, "West"}}), columnar.DefaultWriterConfig()))

	cfg := testutil.Fixtures{
		Dir:          dir,
		SalesCSV:     testutil.WriteFile(s.T(), dir, "sales.csv", []byte("order_id,product_id\n1,101\n")),
		ProductsJSON: testutil.WriteFile(s.T(), dir, "products.json", []byte(`[{"product_id": 101, "name": "Book"}]`)),
		RegionsPQ:    testutil.WriteFile(s.T(), dir, "regions.parquet", regions.Bytes()),
	}.Config()
	cfg.DataPaths.OutputFile = filepath.Join(dir, "merged.csv")
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = filepath.Join(dir, "warehouse.db")

	report, err := Run(s.Context(), Options{ConfigPath: testutil.WriteConfig(s.T(), dir, cfg)})
	s.Require().NoError(err)
	s.Empty(report.Failures)
	s.Equal(1, report.MergedRows)

	out, err := os.ReadFile(cfg.DataPaths.OutputFile)
	s.Require().NoError(err)
	s.Equal("order_id,product_id,name,region\n1,101,Book,West\n", string(out))

	db, err := sql.Open("sqlite3", cfg.Database.Name)
	s.Require().NoError(err)
	defer db.Close()
	var count int
	s.Require().NoError(db.QueryRow(`SELECT count(*) FROM merged_data`).Scan(&count))
	s.Equal(1, count)
}
