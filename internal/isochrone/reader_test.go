package isochrone

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/Joesum98/Isochrones/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectedColumns() []string {
	cols := make([]string, 0, len(FieldNames)+len(ColorIndices))
	for _, name := range FieldNames {
		switch name {
		case ColLogAge:
			cols = append(cols, ColAge)
		case ColLogTe:
			cols = append(cols, ColTeff)
		default:
			cols = append(cols, name)
		}
	}
	for _, ci := range ColorIndices {
		cols = append(cols, ci.Name)
	}
	return cols
}

func TestReadFile_DropsEmbeddedHeaderAndOffsetColumn(t *testing.T) {
	row1 := modelRow(map[string]float64{"MH": 0.0, "logAge": 9.0})
	row3 := modelRow(map[string]float64{"MH": -1.0, "logAge": 10.0})

	path := writeTable(t,
		trailingExtraHeader(),
		joinRow(row1, "99"),
		trailingExtraHeader(),
		joinRow(row3, "99"),
	)

	table, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, expectedColumns(), table.Columns())
	assert.Len(t, table.Columns(), len(FieldNames)+len(ColorIndices))
	assert.False(t, table.HasColumn("extra"))
	assert.False(t, table.HasColumn(ColLogAge))
	assert.False(t, table.HasColumn(ColLogTe))

	mh, err := table.Column(ColMetallicity)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0, -1.0}, mh)

	age, err := table.Column(ColAge)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 10}, age)
}

func TestReadFile_ParsecLayout(t *testing.T) {
	rows := []map[string]float64{
		{"MH": 0.2, "logAge": 9.5, "logTe": 3.76},
		{"MH": 0.2, "logAge": 9.5, "logTe": 3.70},
		{"MH": -0.4, "logAge": 10.1, "logTe": 3.65},
	}

	path := writeTable(t,
		parsecHeader(),
		joinRow(modelRow(rows[0])),
		joinRow(modelRow(rows[1])),
		"",
		parsecHeader(),
		joinRow(modelRow(rows[2])),
	)

	table, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	teff, err := table.Column(ColTeff)
	require.NoError(t, err)
	age, err := table.Column(ColAge)
	require.NoError(t, err)

	for i, r := range rows {
		assert.InDelta(t, r["logTe"], math.Log10(teff[i]), 1e-12, "row %d", i)

		want := math.RoundToEven(math.Pow(10, r["logAge"]) * 1e-9)
		assert.Equal(t, want, age[i], "row %d", i)
		assert.Equal(t, math.Trunc(age[i]), age[i], "age must be integral")
	}
	assert.Equal(t, []float64{3, 3, 13}, age)
}

func TestReadFile_ColorIndices(t *testing.T) {
	path := writeTable(t,
		trailingExtraHeader(),
		joinRow(modelRow(map[string]float64{"Umag": 5.25, "Bmag": 4.5, "Vmag": 3.75, "Imag": 3.0, "Jmag": 2.5, "Kmag": 2.0}), "0"),
		joinRow(modelRow(map[string]float64{"Umag": -1.5, "Bmag": -0.75, "Vmag": 0.25, "Imag": 1.125, "Jmag": 1.5, "Kmag": 1.75}), "0"),
	)

	table, err := ReadFile(path)
	require.NoError(t, err)

	for _, ci := range ColorIndices {
		got, err := table.Column(ci.Name)
		require.NoError(t, err)

		left, err := table.Column(ci.Left)
		require.NoError(t, err)
		right, err := table.Column(ci.Right)
		require.NoError(t, err)

		for i := range got {
			assert.Equal(t, left[i]-right[i], got[i], "%s row %d", ci.Name, i)
		}

		again, err := ComputeColor(table, ci)
		require.NoError(t, err)
		assert.Equal(t, got, again, "%s must be reproducible", ci.Name)
	}

	ub, err := table.Column("U-B")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.75, -0.75}, ub)
}

func TestReadFile_Errors(t *testing.T) {
	bad := modelRow(nil)
	bad[5] = "abc"

	tests := []struct {
		name  string
		lines []string
		want  error
	}{
		{
			name:  "non-numeric field",
			lines: []string{trailingExtraHeader(), joinRow(modelRow(nil), "0"), joinRow(bad, "0")},
			want:  ErrParse,
		},
		{
			name:  "header too narrow",
			lines: []string{strings.Join(FieldNames, " "), joinRow(modelRow(nil))},
			want:  ErrSchemaMismatch,
		},
		{
			name:  "row wider than header",
			lines: []string{trailingExtraHeader(), joinRow(modelRow(nil), "0", "1")},
			want:  ErrSchemaMismatch,
		},
		{
			name:  "empty file",
			lines: []string{"", "   "},
			want:  ErrSchemaMismatch,
		},
		{
			name:  "missing age",
			lines: []string{trailingExtraHeader(), "0.0152 0.0"},
			want:  ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ReadFile(writeTable(t, tt.lines...))
			require.Error(t, err)
			assert.Nil(t, table)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestReadFile_MissingFile(t *testing.T) {
	_, err := ReadFile("/does/not/exist/isochrone.dat")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadFile_ShortRowIsNaNPadded(t *testing.T) {
	short := modelRow(map[string]float64{"logAge": 9.0})[:len(FieldNames)-2]

	table, err := ReadFile(writeTable(t, trailingExtraHeader(), joinRow(short)))
	require.NoError(t, err)

	hmag, err := table.Value("Hmag", 0)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(hmag))

	jk, err := table.Value("J-K", 0)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(jk))
}

func TestReader_RecordsMetrics(t *testing.T) {
	recorder := metrics.NewRecorder()
	reader := NewReader(nil, recorder, nil)

	path := writeTable(t,
		parsecHeader(),
		joinRow(modelRow(nil)),
		parsecHeader(),
		joinRow(modelRow(nil)),
		parsecHeader(),
	)

	table, err := reader.ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	assert.Equal(t, float64(2), testutil.ToFloat64(recorder.RowsLoaded.WithLabelValues(path)))
	assert.Equal(t, float64(2), testutil.ToFloat64(recorder.HeaderRowsDropped.WithLabelValues(path)))

	_, err = reader.Read("broken", strings.NewReader("only three tokens"))
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(recorder.ErrorsTotal.WithLabelValues("load", "schema")))
}

func TestAgeFromLog(t *testing.T) {
	age, err := AgeFromLog(9.0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), age)

	age, err = AgeFromLog(math.Log10(12e9))
	require.NoError(t, err)
	assert.Equal(t, int64(12), age)

	_, err = AgeFromLog(math.NaN())
	assert.True(t, errors.Is(err, ErrParse))
}
