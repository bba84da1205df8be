package isochrone

import "errors"

// FieldNames is the canonical column layout of a model-grid isochrone table,
// before any derived column is added.
var FieldNames = []string{
	"Zini", "MH", "logAge", "Mini", "int_IMF", "Mass",
	"logL", "logTe", "logg", "label", "McoreTP", "C_O",
	"period0", "period1", "period2", "period3", "period4",
	"pmode", "Mloss", "tau1m", "X", "Y", "Xc", "Xn", "Xo", "Cexcess", "Z",
	"mbolmag", "Umag", "Bmag", "Vmag", "Rmag", "Imag", "Jmag", "Hmag", "Kmag",
}

// Column names the loader produces or relies on.
const (
	ColMetallicity = "MH"
	ColLogAge      = "logAge"
	ColAge         = "Age"
	ColLogTe       = "logTe"
	ColTeff        = "Teff"
)

// metallicityIndex is the raw position compared against the header to spot
// header lines repeated inside the data.
const metallicityIndex = 1

// ColorIndex is a derived colour column: Left magnitude minus Right magnitude.
type ColorIndex struct {
	Name  string
	Left  string
	Right string
}

// ColorIndices lists the derived colours, in the order they are appended.
var ColorIndices = []ColorIndex{
	{Name: "U-B", Left: "Umag", Right: "Bmag"},
	{Name: "B-V", Left: "Bmag", Right: "Vmag"},
	{Name: "V-I", Left: "Vmag", Right: "Imag"},
	{Name: "I-J", Left: "Imag", Right: "Jmag"},
	{Name: "J-K", Left: "Jmag", Right: "Kmag"},
}

var (
	// ErrUnknownColumn is returned when a column name is not in the table.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrSchemaMismatch is returned when the raw header width does not match
	// the canonical layout plus the trailing offset column.
	ErrSchemaMismatch = errors.New("raw header does not match isochrone layout")

	// ErrParse is returned when a data field cannot be read as a number.
	ErrParse = errors.New("failed to parse field")

	// ErrInvalidLocation is returned for a malformed table location.
	ErrInvalidLocation = errors.New("invalid table location")
)
