package sink

import (
	"context"
	"fmt"

	"egretail/internal/logger"
	"egretail/internal/models"
	"egretail/internal/validator"
)

// Sheet names of the workbook outputs.
const (
	SheetFull = "Cleaned_Sales"
	SheetBI   = "BI_Sales"
)

// Paths are the output files. Empty paths are skipped.
type Paths struct {
	FullCSV       string
	BICSV         string
	FullXLSX      string
	BIXLSX        string
	SQLite        string
	QualityReport string
}

// Writer writes every output of a run.
type Writer struct {
	registry *Registry
	logger   *logger.Logger
}

// NewWriter creates a writer over registry.
func NewWriter(registry *Registry, log *logger.Logger) *Writer {
	if log == nil {
		log = logger.Discard()
	}

	return &Writer{registry: registry, logger: log}
}

// Write produces the audit view, the BI projection, the SQLite file and the
// quality report. A nil report skips the report file. It returns the files
// written, in order.
func (w *Writer) Write(ctx context.Context, ds *models.Dataset, paths Paths, report *validator.QualityReport, run RunRecord) ([]string, error) {
	full := w.registry.Full(ds)

	bi, err := w.registry.BI(ds)
	if err != nil {
		return nil, err
	}

	reportPath := paths.QualityReport
	if report == nil {
		reportPath = ""
	}

	var written []string
	step := func(path string, write func() error) error {
		if path == "" {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if err := write(); err != nil {
			return err
		}

		written = append(written, path)
		w.logger.Info("Wrote output", "path", path)

		return nil
	}

	steps := []struct {
		path  string
		write func() error
	}{
		{paths.FullCSV, func() error { return WriteCSV(paths.FullCSV, full, ds.Orders) }},
		{paths.BICSV, func() error { return WriteCSV(paths.BICSV, bi, ds.Orders) }},
		{paths.FullXLSX, func() error { return WriteXLSX(paths.FullXLSX, SheetFull, full, ds.Orders) }},
		{paths.BIXLSX, func() error { return WriteXLSX(paths.BIXLSX, SheetBI, bi, ds.Orders) }},
		{paths.SQLite, func() error {
			return WriteSQLite(ctx, paths.SQLite, ds.Orders, []SQLiteTable{
				{Name: TableAudit, Columns: full},
				{Name: TableBI, Columns: bi},
			}, run)
		}},
		{reportPath, func() error { return WriteYAML(reportPath, report) }},
	}

	for _, s := range steps {
		if err := step(s.path, s.write); err != nil {
			return written, fmt.Errorf("output %s: %w", s.path, err)
		}
	}

	return written, nil
}
