package isochrone

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// modelRow returns the canonical fields of one model point. Unspecified
// fields get a distinct positive value derived from their position.
func modelRow(overrides map[string]float64) []string {
	fields := make([]string, len(FieldNames))
	for i, name := range FieldNames {
		v := 0.5 + float64(i)/10
		if o, ok := overrides[name]; ok {
			v = o
		}
		fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fields
}

// trailingExtraHeader is a header whose extra label sits at the end.
func trailingExtraHeader() string {
	return strings.Join(append(append([]string{}, FieldNames...), "extra"), " ")
}

// parsecHeader is a header whose extra token is the leading comment marker,
// so data lines stop one field short.
func parsecHeader() string {
	return "# " + strings.Join(FieldNames, "\t")
}

func writeTable(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "isochrone.dat")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func joinRow(fields []string, extra ...string) string {
	return strings.Join(append(append([]string{}, fields...), extra...), "   ")
}
