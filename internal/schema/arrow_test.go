package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/Joesum98/Isochrones/internal/isochrone"
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *isochrone.Table {
	t.Helper()
	table, err := isochrone.NewTable(
		[]string{"MH", "Age", "Teff", "Umag", "U-B"},
		[][]float64{
			{0.0, 0.0, -1.0},
			{1, 12, 3},
			{5750.0, 4120.5, 6300.25},
			{5.25, math.NaN(), 3.5},
			{0.75, math.NaN(), -0.25},
		},
	)
	require.NoError(t, err)
	return table
}

func TestIsochroneSchema(t *testing.T) {
	m := NewArrowSchemaManager()

	schema := m.IsochroneSchema([]string{"MH", "Age", "Teff"}, "solar.dat")
	require.Equal(t, 3, schema.NumFields())

	assert.Equal(t, arrow.PrimitiveTypes.Float64, schema.Field(0).Type)
	assert.True(t, schema.Field(0).Nullable)
	assert.Equal(t, arrow.PrimitiveTypes.Int64, schema.Field(1).Type)
	assert.False(t, schema.Field(1).Nullable)

	md := schema.Metadata()
	idx := md.FindKey("source")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "solar.dat", md.Values()[idx])

	bare := m.IsochroneSchema([]string{"MH"}, "")
	assert.Equal(t, -1, bare.Metadata().FindKey("source"))
}

func TestTableToRecord_NaNIsNull(t *testing.T) {
	m := NewArrowSchemaManager()
	table := sampleTable(t)

	rec, err := m.TableToRecord(table, "")
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, int64(3), rec.NumRows())
	assert.Equal(t, int64(5), rec.NumCols())

	umag := rec.Column(3)
	assert.Equal(t, 1, umag.NullN())
	assert.True(t, umag.IsNull(1))
	assert.Equal(t, 0, rec.Column(1).NullN())
}

func TestTableToRecord_NonFiniteAge(t *testing.T) {
	m := NewArrowSchemaManager()

	for _, age := range []float64{math.NaN(), math.Inf(1)} {
		table, err := isochrone.NewTable([]string{"MH", "Age"}, [][]float64{{0, 0}, {1, age}})
		require.NoError(t, err)

		rec, err := m.TableToRecord(table, "")
		assert.Nil(t, rec)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNonIntegralAge))
		assert.Contains(t, err.Error(), "row 1")
	}
}

func TestIPCRoundTrip(t *testing.T) {
	m := NewArrowSchemaManager()
	table := sampleTable(t)

	var buf bytes.Buffer
	require.NoError(t, m.WriteIPC(&buf, table, "solar.dat"))

	back, err := m.ReadIPC(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, table.Columns(), back.Columns())
	assert.Equal(t, table.Len(), back.Len())

	for _, name := range table.Columns() {
		want, err := table.Column(name)
		require.NoError(t, err)
		got, err := back.Column(name)
		require.NoError(t, err)

		for i := range want {
			if math.IsNaN(want[i]) {
				assert.True(t, math.IsNaN(got[i]), "%s row %d", name, i)
				continue
			}
			assert.Equal(t, want[i], got[i], "%s row %d", name, i)
		}
	}
}

func TestRecordToTable(t *testing.T) {
	m := NewArrowSchemaManager()

	rec, err := m.TableToRecord(sampleTable(t), "")
	require.NoError(t, err)
	defer rec.Release()

	back, err := m.RecordToTable(rec)
	require.NoError(t, err)

	age, err := back.Column("Age")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 12, 3}, age)
}

func TestSchemaToJSON(t *testing.T) {
	m := NewArrowSchemaManager()

	out, err := m.SchemaToJSON(m.IsochroneSchema([]string{"MH", "Age"}, ""))
	require.NoError(t, err)

	var decoded struct {
		Type   string `json:"type"`
		Fields []struct {
			Name     string `json:"name"`
			Type     string `json:"type"`
			Nullable bool   `json:"nullable"`
		} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))

	assert.Equal(t, "object", decoded.Type)
	require.Len(t, decoded.Fields, 2)
	assert.Equal(t, "MH", decoded.Fields[0].Name)
	assert.Equal(t, "number", decoded.Fields[0].Type)
	assert.Equal(t, "Age", decoded.Fields[1].Name)
	assert.Equal(t, "integer", decoded.Fields[1].Type)
	assert.False(t, decoded.Fields[1].Nullable)
}
