package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/Joesum98/Isochrones/internal/config"
	"github.com/Joesum98/Isochrones/internal/isochrone"
	"github.com/Joesum98/Isochrones/internal/logging"
	"github.com/Joesum98/Isochrones/internal/metrics"
	"github.com/Joesum98/Isochrones/internal/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	t.Setenv(config.EnvConfigFile, "")
	cfg, err := config.Load()
	require.NoError(t, err)

	var out bytes.Buffer
	return &app{
		cfg:     cfg,
		logger:  logging.NewNopLogger(),
		metrics: metrics.NewRecorder(),
		stdout:  &out,
	}, &out
}

func writeGrid(t *testing.T) string {
	t.Helper()
	header := "# " + strings.Join(isochrone.FieldNames, " ")
	row := func(mh, logAge float64) string {
		fields := make([]string, len(isochrone.FieldNames))
		for i, name := range isochrone.FieldNames {
			v := 0.5 + float64(i)/10
			switch name {
			case "MH":
				v = mh
			case "logAge":
				v = logAge
			}
			fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		return strings.Join(fields, " ")
	}

	lines := []string{header, row(0, 9), row(0, 10), header, row(-1, 9)}
	path := filepath.Join(t.TempDir(), "grid.dat")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestDescribe(t *testing.T) {
	a, out := newTestApp(t)

	code := a.run(context.Background(), "describe", []string{writeGrid(t)})
	require.Equal(t, 0, code)

	assert.Contains(t, out.String(), "rows:          3")
	assert.Contains(t, out.String(), "metallicities: 0 -1")
	assert.Contains(t, out.String(), "ages (Gyr):    1 10")
}

func TestPlot_Static(t *testing.T) {
	a, _ := newTestApp(t)
	output := filepath.Join(t.TempDir(), "cmd.svg")

	code := a.run(context.Background(), "plot", []string{"-mh", "0", "-o", output, writeGrid(t)})
	require.Equal(t, 0, code)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
	assert.Equal(t, float64(1), testutil.ToFloat64(a.metrics.FiguresRendered.WithLabelValues("static")))
}

func TestPlot_Interactive(t *testing.T) {
	a, _ := newTestApp(t)
	output := filepath.Join(t.TempDir(), "cmd.html")

	code := a.run(context.Background(), "plot", []string{
		"-interactive", "-cmin", "1", "-cmax", "12", "-step", "1", "-age", "1", "-o", output, writeGrid(t),
	})
	require.Equal(t, 0, code)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Solar Metalicity (U-B)")
	assert.Equal(t, float64(1), testutil.ToFloat64(a.metrics.FiguresRendered.WithLabelValues("interactive")))
}

func TestPlot_Errors(t *testing.T) {
	grid := writeGrid(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "invalid scale", args: []string{"-interactive", "-step", "0", "-o", filepath.Join(dir, "a.html"), grid}, want: 2},
		{name: "bad filter value", args: []string{"-mh", "solar", grid}, want: 2},
		{name: "unknown flag", args: []string{"-nope", grid}, want: 2},
		{name: "missing file argument", args: []string{"-mh", "0"}, want: 2},
		{name: "unknown colour column", args: []string{"-color", "nope", "-o", filepath.Join(dir, "b.png"), grid}, want: 1},
		{name: "missing table", args: []string{filepath.Join(dir, "absent.dat")}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestApp(t)
			assert.Equal(t, tt.want, a.run(context.Background(), "plot", tt.args))
		})
	}
}

func TestExport_Arrow(t *testing.T) {
	a, _ := newTestApp(t)
	output := filepath.Join(t.TempDir(), "grid.arrow")

	code := a.run(context.Background(), "export", []string{"-mh", "0", "-arrow", output, writeGrid(t)})
	require.Equal(t, 0, code)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()

	table, err := schema.NewArrowSchemaManager().ReadIPC(f)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	assert.True(t, table.HasColumn(isochrone.ColAge))
	assert.Equal(t, float64(2), testutil.ToFloat64(a.metrics.RowsExported.WithLabelValues("arrow")))
}

func TestRun_Usage(t *testing.T) {
	a, out := newTestApp(t)

	assert.Equal(t, 2, a.run(context.Background(), "frobnicate", nil))
	assert.Equal(t, 2, a.run(context.Background(), "export", []string{writeGrid(t)}), "export needs a target")

	assert.Equal(t, 0, a.run(context.Background(), "help", nil))
	assert.Contains(t, out.String(), "usage: isochrone")
}
