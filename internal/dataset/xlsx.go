package dataset

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// maxExcelSerial is the serial of 9999-12-31, the last date Excel can hold.
const maxExcelSerial = 2958465

// LoadXLSX decodes the first sheet of a workbook. The first row is the
// header; the layout rules are the same as for CSV input. Cells are read
// unformatted, so date cells arrive as serial numbers.
func LoadXLSX(r io.Reader, name string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", name)
	}
	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, fmt.Errorf("reading workbook properties: %w", err)
	}
	date1904 := props.Date1904 != nil && *props.Date1904

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	defer rows.Close()

	raw := excelize.Options{RawCellValue: true}
	if !rows.Next() {
		return nil, &MissingColumnsError{Missing: RequiredColumns(), Required: RequiredColumns()}
	}
	header, err := rows.Columns(raw)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	b, err := newBuilder(header)
	if err != nil {
		return nil, err
	}
	b.parseDate = func(s string) time.Time { return parseExcelDate(s, date1904) }

	for rows.Next() {
		rec, err := rows.Columns(raw)
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", b.line+1, err)
		}
		if err := b.add(rec); err != nil {
			return nil, err
		}
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return NewTable(name, "xlsx", b.rows), nil
}

// parseExcelDate reads a date cell: a serial number within Excel's date
// range, or text handled by ParseDate.
func parseExcelDate(s string, date1904 bool) time.Time {
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial <= 0 || serial > maxExcelSerial {
		return ParseDate(s)
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
