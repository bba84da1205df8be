// Package postgres exports isochrone tables into PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Joesum98/Isochrones/internal/isochrone"
	"github.com/Joesum98/Isochrones/internal/metrics"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const (
	defaultSchema = "public"
	sinkName      = "postgres"
)

// ErrTableMismatch is returned when the target table exists with columns the
// isochrone table does not fill.
var ErrTableMismatch = errors.New("target table does not match isochrone columns")

// Writer bulk-loads tables with COPY.
type Writer struct {
	client  *Client
	schema  string
	logger  *zap.Logger
	metrics *metrics.Recorder
}

func NewWriter(client *Client, schema string, logger *zap.Logger, recorder *metrics.Recorder) *Writer {
	if schema == "" {
		schema = defaultSchema
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		client:  client,
		schema:  schema,
		logger:  logger,
		metrics: recorder,
	}
}

// Write creates schema.name if absent and copies every row of t into it.
// It returns the number of rows copied.
func (w *Writer) Write(ctx context.Context, t *isochrone.Table, name string) (int64, error) {
	timer := metrics.NewTimer()
	ident := pgx.Identifier{w.schema, name}
	columns := t.Columns()

	if _, err := w.client.Exec(ctx, createTableSQL(ident, columns)); err != nil {
		w.recordError("ddl")
		return 0, fmt.Errorf("failed to create table %s: %w", ident.Sanitize(), err)
	}

	existing, err := w.client.GetColumns(ctx, w.schema, name)
	if err != nil {
		w.recordError("introspect")
		return 0, err
	}
	if err := checkColumns(existing, columns); err != nil {
		w.recordError("schema")
		return 0, err
	}

	src, err := copySource(t, columns)
	if err != nil {
		return 0, err
	}

	n, err := w.client.pool.CopyFrom(ctx, ident, columns, src)
	if err != nil {
		w.recordError("copy")
		return n, fmt.Errorf("failed to copy rows into %s: %w", ident.Sanitize(), err)
	}

	duration := timer.Duration()
	if w.metrics != nil {
		w.metrics.RecordExport(sinkName, n, duration)
	}
	w.logger.Info("Exported isochrone table",
		zap.String("table", ident.Sanitize()),
		zap.Int64("rows", n),
		zap.Duration("duration", duration))

	return n, nil
}

func (w *Writer) recordError(kind string) {
	if w.metrics != nil {
		w.metrics.RecordError("export", kind)
	}
}

// columnType maps a table column to its SQL type. Age is integral.
func columnType(name string) string {
	if name == isochrone.ColAge {
		return "BIGINT"
	}
	return "DOUBLE PRECISION"
}

func createTableSQL(ident pgx.Identifier, columns []string) string {
	defs := make([]string, len(columns))
	for i, name := range columns {
		defs[i] = fmt.Sprintf("%s %s", pgx.Identifier{name}.Sanitize(), columnType(name))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", ident.Sanitize(), strings.Join(defs, ",\n\t"))
}

func checkColumns(existing []ColumnInfo, columns []string) error {
	have := make(map[string]bool, len(existing))
	for _, col := range existing {
		have[col.Name] = true
	}

	var missing []string
	for _, name := range columns {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrTableMismatch, strings.Join(missing, ", "))
	}
	return nil
}

// copySource feeds rows to COPY. NaN is written as NULL.
func copySource(t *isochrone.Table, columns []string) (pgx.CopyFromSource, error) {
	values := make([][]float64, len(columns))
	for i, name := range columns {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		values[i] = col
	}

	return pgx.CopyFromSlice(t.Len(), func(row int) ([]any, error) {
		out := make([]any, len(columns))
		for i, name := range columns {
			v := values[i][row]
			switch {
			case math.IsNaN(v):
				out[i] = nil
			case name == isochrone.ColAge && math.IsInf(v, 0):
				return nil, fmt.Errorf("row %d: %s %g is not finite", row, name, v)
			case name == isochrone.ColAge:
				out[i] = int64(v)
			default:
				out[i] = v
			}
		}
		return out, nil
	}), nil
}
