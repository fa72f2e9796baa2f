package export

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/goliatone/go-formcatalog/pkg/dataset"
)

// ColumnBatch holds the batch id of SQL exports written WithBatchID.
const ColumnBatch = "batchId"

var sqlOpen = sql.Open

type dialect struct {
	name        string
	driver      string
	placeholder func(n int) string
}

var (
	sqliteDialect = dialect{
		name:        DriverSQLite,
		driver:      "sqlite",
		placeholder: func(int) string { return "?" },
	}
	postgresDialect = dialect{
		name:        DriverPostgres,
		driver:      "pgx",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	}
)

// SQLWriter replaces a table named after the dataset table with its rows.
// Every column is stored as text.
type SQLWriter struct {
	dialect dialect
	batchID string
	logger  *zap.Logger
}

func newSQLWriter(d dialect, s settings) *SQLWriter {
	return &SQLWriter{dialect: d, batchID: s.batchID, logger: s.logger}
}

func (w *SQLWriter) sharedDestination() bool { return true }

// Write opens the database at dsn and replaces the table in one transaction.
func (w *SQLWriter) Write(ctx context.Context, table dataset.Table, dsn string) error {
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("export: %s destination is required", w.dialect.name)
	}
	if err := table.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	db, err := sqlOpen(w.dialect.driver, dsn)
	if err != nil {
		return fmt.Errorf("export: open %s: %w", w.dialect.name, err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("export: ping %s: %w", w.dialect.name, err)
	}

	columns := append([]string(nil), table.Columns...)
	if w.batchID != "" {
		columns = append(columns, ColumnBatch)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("export: begin: %w", err)
	}
	if err := w.replace(ctx, tx, table, columns); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("export: commit: %w", err)
	}
	w.logger.Info("table written",
		zap.String("table", table.Name), zap.String("driver", w.dialect.name), zap.Int("rows", len(table.Rows)))
	return nil
}

func (w *SQLWriter) replace(ctx context.Context, tx *sql.Tx, table dataset.Table, columns []string) error {
	for _, stmt := range w.schema(table.Name, columns) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("export: %s: %w", stmt, err)
		}
	}
	insert, err := tx.PrepareContext(ctx, w.insertStatement(table.Name, columns))
	if err != nil {
		return fmt.Errorf("export: prepare insert: %w", err)
	}
	defer func() {
		_ = insert.Close()
	}()

	args := make([]any, len(columns))
	for i, row := range table.Rows {
		for j, cell := range row {
			args[j] = sqlValue(cell)
		}
		if w.batchID != "" {
			args[len(columns)-1] = w.batchID
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("export: insert row %d: %w", i, err)
		}
	}
	return nil
}

func (w *SQLWriter) schema(name string, columns []string) []string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = quoteIdent(col) + " TEXT"
	}
	return []string{
		"DROP TABLE IF EXISTS " + quoteIdent(name),
		"CREATE TABLE " + quoteIdent(name) + " (" + strings.Join(defs, ", ") + ")",
	}
}

func (w *SQLWriter) insertStatement(name string, columns []string) string {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		cols[i] = quoteIdent(col)
		marks[i] = w.dialect.placeholder(i + 1)
	}
	return "INSERT INTO " + quoteIdent(name) + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
