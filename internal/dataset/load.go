package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cast"
)

// LoadFile loads a dataset from disk, choosing the decoder by extension.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()
	return Load(f, filepath.Base(path))
}

// Load decodes a dataset from r. name is used for format detection and as
// the table name.
func Load(r io.Reader, name string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", "":
		return LoadCSV(r, name)
	case ".xlsx":
		return LoadXLSX(r, name)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// LoadCSV decodes a comma-separated dataset.
func LoadCSV(r io.Reader, name string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &MissingColumnsError{Missing: RequiredColumns(), Required: RequiredColumns()}
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	b, err := newBuilder(header)
	if err != nil {
		return nil, err
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", b.line+1, err)
		}
		if err := b.add(rec); err != nil {
			return nil, err
		}
	}
	return NewTable(name, "csv", b.rows), nil
}

// ValidateHeader checks that header contains every required column and
// returns a *MissingColumnsError otherwise.
func ValidateHeader(header []string) error {
	_, err := newBuilder(header)
	return err
}

// builder maps raw records onto observations.
type builder struct {
	parseDate func(string) time.Time
	dateIdx   int
	metricIdx [numMetrics]int
	line      int
	rows      []Observation
}

func newBuilder(header []string) (*builder, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns() {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing, Required: RequiredColumns()}
	}

	b := &builder{parseDate: ParseDate, dateIdx: index[DateColumn]}
	for _, m := range AllMetrics() {
		b.metricIdx[m] = index[m.Column()]
	}
	return b, nil
}

func (b *builder) add(rec []string) error {
	b.line++
	if isBlank(rec) {
		return nil
	}
	o := NewObservation(b.parseDate(cell(rec, b.dateIdx)))
	for _, m := range AllMetrics() {
		raw := cell(rec, b.metricIdx[m])
		v, ok := ParseValue(raw)
		if !ok {
			return &CellError{Row: b.line, Column: m.Column(), Value: raw}
		}
		o.Values[m] = v
	}
	b.rows = append(b.rows, o)
	return nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseDate parses a calendar date leniently. Unparseable input yields the
// zero time, which marks the date as missing.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var missingTokens = map[string]bool{
	"": true, "nan": true, "na": true, "n/a": true, "null": true, "none": true, "-": true,
}

// groupedNumber matches thousands grouping such as "12,345.5".
var groupedNumber = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// ParseValue parses a metric cell. Missing markers return NaN and ok=true;
// anything else that is not a number returns ok=false.
func ParseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if missingTokens[strings.ToLower(s)] {
		return math.NaN(), true
	}
	if strings.Contains(s, ",") {
		if !groupedNumber.MatchString(s) {
			return 0, false
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, false
	}
	return f, true
}

// EncodeCSV writes t back out with the required header. Missing values are
// written as empty cells.
func EncodeCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RequiredColumns()); err != nil {
		return err
	}
	for _, o := range t.Rows {
		rec := make([]string, 0, 1+int(numMetrics))
		if o.HasDate() {
			rec = append(rec, o.Date.Format("2006-01-02"))
		} else {
			rec = append(rec, "")
		}
		for _, m := range AllMetrics() {
			rec = append(rec, FormatValue(o.Value(m)))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatValue renders a metric value compactly; NaN becomes "".
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return cast.ToString(v)
}
