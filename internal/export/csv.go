package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/goliatone/go-formcatalog/pkg/dataset"
)

// CSVWriter writes a table as a CSV file with a header row.
type CSVWriter struct {
	logger *zap.Logger
}

// Write creates destination, or writes to stdout when destination is "-".
func (w *CSVWriter) Write(ctx context.Context, table dataset.Table, destination string) error {
	return writeFile(ctx, destination, func(out io.Writer) error {
		return EncodeCSV(out, table)
	}, w.logger, table)
}

// EncodeCSV writes table to out.
func EncodeCSV(out io.Writer, table dataset.Table) error {
	if err := table.Validate(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	cw := csv.NewWriter(out)
	if err := cw.Write(table.Columns); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, cell := range row {
			record[i] = FormatValue(cell)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush csv: %w", err)
	}
	return nil
}

// JSONWriter writes a table as a JSON array of row objects.
type JSONWriter struct {
	logger *zap.Logger
}

// Write creates destination, or writes to stdout when destination is "-".
func (w *JSONWriter) Write(ctx context.Context, table dataset.Table, destination string) error {
	return writeFile(ctx, destination, func(out io.Writer) error {
		if err := table.Validate(); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(table.Records()); err != nil {
			return fmt.Errorf("export: encode json: %w", err)
		}
		return nil
	}, w.logger, table)
}

func writeFile(ctx context.Context, destination string, encode func(io.Writer) error, logger *zap.Logger, table dataset.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" || destination == "-" {
		return encode(os.Stdout)
	}
	if dir := filepath.Dir(destination); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export: create %s: %w", dir, err)
		}
	}
	f, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", destination, err)
	}
	if err := encode(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: close %s: %w", destination, err)
	}
	if logger != nil {
		logger.Info("table written",
			zap.String("table", table.Name), zap.String("destination", destination), zap.Int("rows", len(table.Rows)))
	}
	return nil
}
