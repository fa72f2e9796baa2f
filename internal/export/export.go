// Package export writes observation tables and field catalogs to files,
// SQL databases and object storage.
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formcatalog/pkg/dataset"
)

// Drivers accepted by New.
const (
	DriverCSV      = "csv"
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
)

// Writer persists one table at destination. The meaning of destination
// depends on the driver: a file path, a DSN or an s3:// URL.
type Writer interface {
	Write(ctx context.Context, table dataset.Table, destination string) error
}

// sharedDestination is implemented by writers that keep several tables
// behind one destination, such as a database.
type sharedDestination interface {
	sharedDestination() bool
}

// Option customises writers built by New.
type Option func(*settings)

type settings struct {
	logger  *zap.Logger
	batchID string
	s3      s3Settings
}

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBatchID adds a batchId column holding id to SQL exports.
func WithBatchID(id string) Option {
	return func(s *settings) {
		s.batchID = strings.TrimSpace(id)
	}
}

func newSettings(opts []Option) settings {
	s := settings{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// Drivers lists the supported driver names.
func Drivers() []string {
	return []string{DriverCSV, DriverJSON, DriverSQLite, DriverPostgres, DriverS3}
}

// New returns the writer for driver.
func New(driver string, opts ...Option) (Writer, error) {
	s := newSettings(opts)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverCSV, "":
		return &CSVWriter{logger: s.logger}, nil
	case DriverJSON:
		return &JSONWriter{logger: s.logger}, nil
	case DriverSQLite:
		return newSQLWriter(sqliteDialect, s), nil
	case DriverPostgres, "pgx":
		return newSQLWriter(postgresDialect, s), nil
	case DriverS3:
		return newS3Writer(s), nil
	default:
		return nil, fmt.Errorf("export: unknown driver %q", driver)
	}
}

// WriteAll writes every table. File-like destinations get the table name
// appended to their stem when more than one table is written.
func WriteAll(ctx context.Context, w Writer, tables []dataset.Table, destination string) error {
	shared := false
	if sd, ok := w.(sharedDestination); ok {
		shared = sd.sharedDestination()
	}
	for _, table := range tables {
		target := destination
		if !shared && len(tables) > 1 {
			target = TableDestination(destination, table.Name)
		}
		if err := w.Write(ctx, table, target); err != nil {
			return err
		}
	}
	return nil
}

// TableDestination derives the per-table destination "dir/stem_name.ext".
func TableDestination(destination, name string) string {
	ext := filepath.Ext(destination)
	stem := strings.TrimSuffix(destination, ext)
	return stem + "_" + name + ext
}
