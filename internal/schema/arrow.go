package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Joesum98/Isochrones/internal/isochrone"
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// ErrNonIntegralAge is returned when an Age value has no integer form.
var ErrNonIntegralAge = errors.New("age is not finite")

// ArrowSchemaManager converts isochrone tables to and from Apache Arrow
type ArrowSchemaManager struct {
	mem memory.Allocator
}

// NewArrowSchemaManager creates a new Arrow schema manager
func NewArrowSchemaManager() *ArrowSchemaManager {
	return &ArrowSchemaManager{mem: memory.NewGoAllocator()}
}

// IsochroneSchema builds the Arrow schema for the given column order. Age is
// integral; every other column is a nullable double, with NaN stored as null.
func (m *ArrowSchemaManager) IsochroneSchema(columns []string, source string) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(columns))
	for _, name := range columns {
		fields = append(fields, arrow.Field{
			Name:     name,
			Type:     m.columnType(name),
			Nullable: name != isochrone.ColAge,
		})
	}

	var meta *arrow.Metadata
	if source != "" {
		md := arrow.NewMetadata([]string{"source"}, []string{source})
		meta = &md
	}
	return arrow.NewSchema(fields, meta)
}

func (m *ArrowSchemaManager) columnType(name string) arrow.DataType {
	if name == isochrone.ColAge {
		return arrow.PrimitiveTypes.Int64
	}
	return arrow.PrimitiveTypes.Float64
}

// TableToRecord copies t into a single Arrow record. The caller releases it.
func (m *ArrowSchemaManager) TableToRecord(t *isochrone.Table, source string) (arrow.Record, error) {
	schema := m.IsochroneSchema(t.Columns(), source)

	builder := array.NewRecordBuilder(m.mem, schema)
	defer builder.Release()

	for i, field := range schema.Fields() {
		values, err := t.Column(field.Name)
		if err != nil {
			return nil, err
		}

		switch b := builder.Field(i).(type) {
		case *array.Int64Builder:
			b.Reserve(len(values))
			for row, v := range values {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, fmt.Errorf("column %s row %d: %w", field.Name, row, ErrNonIntegralAge)
				}
				b.Append(int64(v))
			}
		case *array.Float64Builder:
			b.Reserve(len(values))
			for _, v := range values {
				if math.IsNaN(v) {
					b.AppendNull()
					continue
				}
				b.Append(v)
			}
		default:
			return nil, fmt.Errorf("unsupported builder %T for column %s", b, field.Name)
		}
	}

	return builder.NewRecord(), nil
}

// RecordToTable converts an Arrow record back into a table. Nulls become NaN.
func (m *ArrowSchemaManager) RecordToTable(rec arrow.Record) (*isochrone.Table, error) {
	names := make([]string, rec.NumCols())
	columns := make([][]float64, rec.NumCols())

	for i, field := range rec.Schema().Fields() {
		names[i] = field.Name
		values, err := columnValues(rec.Column(i))
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", field.Name, err)
		}
		columns[i] = values
	}

	return isochrone.NewTable(names, columns)
}

func columnValues(arr arrow.Array) ([]float64, error) {
	out := make([]float64, arr.Len())
	switch a := arr.(type) {
	case *array.Float64:
		for i := range out {
			if a.IsNull(i) {
				out[i] = math.NaN()
				continue
			}
			out[i] = a.Value(i)
		}
	case *array.Int64:
		for i := range out {
			if a.IsNull(i) {
				out[i] = math.NaN()
				continue
			}
			out[i] = float64(a.Value(i))
		}
	default:
		return nil, fmt.Errorf("unsupported Arrow type %s", arr.DataType())
	}
	return out, nil
}

// WriteIPC writes t as an Arrow IPC file
func (m *ArrowSchemaManager) WriteIPC(w io.Writer, t *isochrone.Table, source string) error {
	rec, err := m.TableToRecord(t, source)
	if err != nil {
		return err
	}
	defer rec.Release()

	writer, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(m.mem))
	if err != nil {
		return fmt.Errorf("failed to create Arrow writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write Arrow record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close Arrow writer: %w", err)
	}
	return nil
}

// ReadIPC reads an Arrow IPC file written by WriteIPC. Multiple record
// batches are concatenated in order.
func (m *ArrowSchemaManager) ReadIPC(r ipc.ReadAtSeeker) (*isochrone.Table, error) {
	reader, err := ipc.NewFileReader(r, ipc.WithAllocator(m.mem))
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow reader: %w", err)
	}
	defer reader.Close()

	fields := reader.Schema().Fields()
	names := make([]string, len(fields))
	columns := make([][]float64, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	for n := 0; n < reader.NumRecords(); n++ {
		rec, err := reader.Record(n)
		if err != nil {
			return nil, fmt.Errorf("failed to read Arrow record %d: %w", n, err)
		}
		for i := range fields {
			values, err := columnValues(rec.Column(i))
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", names[i], err)
			}
			columns[i] = append(columns[i], values...)
		}
	}

	return isochrone.NewTable(names, columns)
}

// SchemaToJSON converts an Arrow schema to JSON representation
func (m *ArrowSchemaManager) SchemaToJSON(schema *arrow.Schema) (string, error) {
	type jsonField struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		Nullable bool   `json:"nullable"`
	}

	fields := make([]jsonField, 0, schema.NumFields())
	for _, field := range schema.Fields() {
		fields = append(fields, jsonField{
			Name:     field.Name,
			Type:     m.arrowTypeToJSONType(field.Type),
			Nullable: field.Nullable,
		})
	}

	jsonBytes, err := json.MarshalIndent(map[string]interface{}{
		"type":   "object",
		"fields": fields,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema to JSON: %w", err)
	}

	return string(jsonBytes), nil
}

// arrowTypeToJSONType converts Arrow types to JSON schema types
func (m *ArrowSchemaManager) arrowTypeToJSONType(arrowType arrow.DataType) string {
	switch arrowType.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return "integer"
	case arrow.FLOAT32, arrow.FLOAT64:
		return "number"
	default:
		return "string"
	}
}
