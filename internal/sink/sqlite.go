package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"egretail/internal/models"
)

// SQLite table names.
const (
	TableAudit = "orders_audit"
	TableBI    = "orders_bi"
	TableRuns  = "pipeline_runs"
)

// RunRecord is one row of the pipeline_runs table.
type RunRecord struct {
	RunID      string
	Input      string
	StartedAt  time.Time
	FinishedAt time.Time
	Rows       int
	Score      float64
	Tier       string
}

// SQLiteTable is one orders table to write.
type SQLiteTable struct {
	Name    string
	Columns []Column
}

// WriteSQLite builds a fresh database file with the given order tables
// and the run record, then moves it into place.
func WriteSQLite(ctx context.Context, path string, orders []*models.Order, tables []SQLiteTable, run RunRecord) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp")
	_ = os.Remove(tmp)
	defer os.Remove(tmp)

	if err := buildSQLite(ctx, tmp, orders, tables, run); err != nil {
		return fmt.Errorf("failed to write sqlite %s: %w", path, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}

	return nil
}

func buildSQLite(ctx context.Context, path string, orders []*models.Order, tables []SQLiteTable, run RunRecord) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range tables {
		if err := insertOrders(ctx, tx, t, orders); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `CREATE TABLE "`+TableRuns+`" (
		"run_id" TEXT PRIMARY KEY,
		"input" TEXT,
		"started_at" TEXT,
		"finished_at" TEXT,
		"rows" INTEGER,
		"quality_score" REAL,
		"quality_tier" TEXT
	)`); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO "`+TableRuns+`" VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Input,
		run.StartedAt.UTC().Format(time.RFC3339), run.FinishedAt.UTC().Format(time.RFC3339),
		run.Rows, run.Score, run.Tier,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func insertOrders(ctx context.Context, tx *sql.Tx, t SQLiteTable, orders []*models.Order) error {
	defs := make([]string, len(t.Columns))
	quoted := make([]string, len(t.Columns))

	for i, c := range t.Columns {
		defs[i] = fmt.Sprintf("%q %s", c.Name, columnType(c, orders))
		quoted[i] = fmt.Sprintf("%q", c.Name)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %q (%s)`, t.Name, strings.Join(defs, ","))); err != nil {
		return err
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(t.Columns)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`, t.Name, strings.Join(quoted, ","), ph))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for _, o := range orders {
		for i, c := range t.Columns {
			args[i] = sqliteValue(c.Value(o))
		}

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}

	return nil
}

// columnType picks the affinity from the first present value.
func columnType(c Column, orders []*models.Order) string {
	for _, o := range orders {
		switch c.Value(o).(type) {
		case nil:
			continue
		case float64:
			return "REAL"
		case int, bool:
			return "INTEGER"
		default:
			return "TEXT"
		}
	}

	return "TEXT"
}

func sqliteValue(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}

		return 0
	case time.Time:
		return x.Format(DateLayout)
	default:
		return x
	}
}
