package isochrone

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Joesum98/Isochrones/internal/logging"
	"github.com/Joesum98/Isochrones/internal/metrics"
)

const maxLineBytes = 1 << 20

// Reader loads isochrone tables from local files or object storage.
type Reader struct {
	logger  *logging.Logger
	metrics *metrics.Recorder
	store   *Client
}

// NewReader creates a reader. Any argument may be nil: a nil logger discards
// output, a nil recorder skips metrics, and a nil store rejects s3:// paths.
func NewReader(logger *logging.Logger, recorder *metrics.Recorder, store *Client) *Reader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Reader{
		logger:  logger,
		metrics: recorder,
		store:   store,
	}
}

// ReadFile loads the table at path using a reader with no logging, metrics
// or object storage.
func ReadFile(path string) (*Table, error) {
	return NewReader(nil, nil, nil).ReadFile(context.Background(), path)
}

// ReadFile loads the table at location, a local path or s3://bucket/key.
func (r *Reader) ReadFile(ctx context.Context, location string) (*Table, error) {
	rc, err := Open(ctx, location, r.store)
	if err != nil {
		r.recordError("io")
		return nil, err
	}
	defer rc.Close()

	return r.Read(location, rc)
}

// Read loads a table from src. source only labels logs and metrics.
func (r *Reader) Read(source string, src io.Reader) (*Table, error) {
	timer := metrics.NewTimer()
	logger := r.logger.WithField("source", source)
	logger.Debug("Reading isochrone table")

	raw, err := readRaw(src)
	if err != nil {
		r.recordError(errorKind(err))
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}

	table, headerRows, err := raw.toTable()
	if err != nil {
		r.recordError(errorKind(err))
		return nil, fmt.Errorf("failed to load %s: %w", source, err)
	}

	if err := derive(table); err != nil {
		r.recordError(errorKind(err))
		return nil, fmt.Errorf("failed to derive columns for %s: %w", source, err)
	}

	if headerRows > 0 {
		logger.LogDataQualityEvent(source, fmt.Sprintf("%d embedded header rows dropped", headerRows), "low")
	}
	if raw.padded > 0 {
		logger.LogDataQualityEvent(source, fmt.Sprintf("%d short rows padded with missing values", raw.padded), "medium")
	}

	duration := timer.Duration()
	logger.LogLoadEvent(source, table.Len(), headerRows, duration)
	if r.metrics != nil {
		r.metrics.RecordLoad(source, table.Len(), headerRows, duration)
	}

	return table, nil
}

func (r *Reader) recordError(kind string) {
	if r.metrics != nil {
		r.metrics.RecordError("load", kind)
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrSchemaMismatch):
		return "schema"
	case errors.Is(err, ErrParse):
		return "parse"
	default:
		return "io"
	}
}

type rawLine struct {
	number int
	fields []string
}

// rawTable holds the file as text, before names or types are applied.
type rawTable struct {
	header []string
	rows   []rawLine
	padded int
}

func readRaw(src io.Reader) (*rawTable, error) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	raw := &rawTable{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if raw.header == nil {
			raw.header = fields
			continue
		}

		if len(fields) > len(raw.header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d",
				ErrSchemaMismatch, lineNo, len(fields), len(raw.header))
		}
		if len(fields) < len(raw.header) {
			// Data lines normally stop one short of the header; only a
			// line missing more than the offset column counts as padded.
			if len(fields) < len(raw.header)-1 {
				raw.padded++
			}
			padded := make([]string, len(raw.header))
			copy(padded, fields)
			fields = padded
		}
		raw.rows = append(raw.rows, rawLine{number: lineNo, fields: fields})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if raw.header == nil {
		return nil, fmt.Errorf("%w: no header line", ErrSchemaMismatch)
	}
	return raw, nil
}

// toTable drops the trailing offset column, names the remaining columns,
// discards embedded header rows and casts everything to float64.
func (raw *rawTable) toTable() (*Table, int, error) {
	if len(raw.header) != len(FieldNames)+1 {
		return nil, 0, fmt.Errorf("%w: header has %d columns, expected %d",
			ErrSchemaMismatch, len(raw.header), len(FieldNames)+1)
	}
	headerLabel := raw.header[metallicityIndex]

	columns := make([][]float64, len(FieldNames))
	for c := range columns {
		columns[c] = make([]float64, 0, len(raw.rows))
	}

	headerRows := 0
	for _, line := range raw.rows {
		if line.fields[metallicityIndex] == headerLabel {
			headerRows++
			continue
		}

		for c := range FieldNames {
			v, err := parseField(line.fields[c])
			if err != nil {
				return nil, 0, fmt.Errorf("%w: line %d column %s: %q",
					ErrParse, line.number, FieldNames[c], line.fields[c])
			}
			columns[c] = append(columns[c], v)
		}
	}

	table, err := NewTable(FieldNames, columns)
	if err != nil {
		return nil, 0, err
	}
	return table, headerRows, nil
}

// parseField reads one numeric field. Padding from short rows is missing
// data and becomes NaN.
func parseField(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
