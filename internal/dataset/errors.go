package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported dataset format (use .csv or .xlsx)")

// MissingColumnsError reports an input whose header lacks required columns.
type MissingColumnsError struct {
	Missing  []string
	Required []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("invalid dataset: missing required columns: %s; your file must contain these columns: %s",
		strings.Join(e.Missing, ", "), strings.Join(e.Required, ", "))
}

// CellError reports a metric cell that is present but not numeric.
type CellError struct {
	Row    int // 1-based data row, header excluded
	Column string
	Value  string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("invalid dataset: row %d, column %s: %q is not a number", e.Row, e.Column, e.Value)
}
