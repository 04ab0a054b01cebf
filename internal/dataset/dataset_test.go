package dataset

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const header = "Date,Steps,Calories,WorkoutMinutes,SleepHours,WaterIntake(L),HeartRate\n"

func TestLoadCSV(t *testing.T) {
	data := header +
		"2024-01-30,8000,2200,30,7.5,2.1,72\n" +
		"2024-01-31,9000,2300,45,6.0,,70\n" +
		"not-a-date,7000,2100,20,8.0,1.8,75\n" +
		"2024-02-01,\"10,500\",2400,60,7.0,2.5,68\n"

	tbl, err := LoadCSV(strings.NewReader(data), "fitness.csv")
	require.NoError(t, err)
	require.Equal(t, 4, tbl.Len())
	assert.Equal(t, "fitness.csv", tbl.Name)
	assert.Equal(t, "csv", tbl.Source)
	assert.NotEmpty(t, tbl.ID)

	assert.Equal(t, "2024-01", tbl.Rows[0].Month())
	assert.Equal(t, 8000.0, tbl.Rows[0].Value(Steps))
	assert.True(t, math.IsNaN(tbl.Rows[1].Value(WaterIntake)), "empty cell should be missing")

	assert.False(t, tbl.Rows[2].HasDate(), "unparseable date should be coerced to missing")
	assert.Equal(t, "", tbl.Rows[2].Month())
	assert.Equal(t, 7000.0, tbl.Rows[2].Value(Steps))

	assert.Equal(t, 10500.0, tbl.Rows[3].Value(Steps))
}

func TestLoadCSVMissingColumns(t *testing.T) {
	data := "Date,Steps,Calories,WorkoutMinutes,SleepHours,WaterIntake(L)\n2024-01-01,1,2,3,4,5\n"
	_, err := LoadCSV(strings.NewReader(data), "bad.csv")
	require.Error(t, err)

	var mce *MissingColumnsError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, []string{"HeartRate"}, mce.Missing)
	assert.Equal(t, RequiredColumns(), mce.Required)
	assert.Contains(t, err.Error(), "HeartRate")
	assert.Contains(t, err.Error(), "Date, Steps, Calories")
}

func TestLoadCSVColumnNamesAreExact(t *testing.T) {
	data := "date,steps,calories,workoutminutes,sleephours,waterintake(l),heartrate\n"
	_, err := LoadCSV(strings.NewReader(data), "lower.csv")
	var mce *MissingColumnsError
	require.ErrorAs(t, err, &mce)
	assert.Len(t, mce.Missing, 7)
}

func TestLoadCSVExtraColumnsAndOrder(t *testing.T) {
	data := "\ufeffNote,HeartRate,WaterIntake(L),SleepHours,WorkoutMinutes,Calories,Steps,Date\n" +
		"hello,65,2.0,7.0,30,2000,5000,2024-03-05\n"
	tbl, err := LoadCSV(strings.NewReader(data), "reordered.csv")
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, 65.0, tbl.Rows[0].Value(HeartRate))
	assert.Equal(t, 5000.0, tbl.Rows[0].Value(Steps))
	assert.Equal(t, "2024-03", tbl.Rows[0].Month())
}

func TestLoadCSVRejectsNonNumeric(t *testing.T) {
	data := header + "2024-01-01,lots,2000,30,7,2,70\n"
	_, err := LoadCSV(strings.NewReader(data), "bad.csv")
	var ce *CellError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Row)
	assert.Equal(t, "Steps", ce.Column)
	assert.Equal(t, "lots", ce.Value)
}

func TestLoadCSVRejectsDecimalComma(t *testing.T) {
	data := header + "2024-01-01,8000,2200,30,\"7,5\",2.1,72\n"
	_, err := LoadCSV(strings.NewReader(data), "comma.csv")
	var ce *CellError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.Equal(t, "SleepHours", ce.Column)
	assert.Equal(t, "7,5", ce.Value)

	tbl, err := LoadCSV(strings.NewReader(header+"2024-01-01,\"12,345\",2200,30,7.5,2.1,72\n"), "grouped.csv")
	require.NoError(t, err)
	assert.Equal(t, 12345.0, tbl.Rows[0].Value(Steps))
}

func TestLoadCSVHeaderOnlyAndEmpty(t *testing.T) {
	tbl, err := LoadCSV(strings.NewReader(header), "empty.csv")
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Empty(t, tbl.Months())

	_, err = LoadCSV(strings.NewReader(""), "nothing.csv")
	var mce *MissingColumnsError
	assert.ErrorAs(t, err, &mce)
}

func TestLoadFileDispatch(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(p, []byte(header+"2024-01-01,1,2,3,4,5,6\n"), 0o644))

	tbl, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "data.csv", tbl.Name)

	_, err = Load(strings.NewReader(""), "data.json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadFile(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Date", "Steps", "Calories", "WorkoutMinutes", "SleepHours", "WaterIntake(L)", "HeartRate"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"2024-04-01", 6000, 2100, 25, 7.25, 2, 71}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"2024-04-02", 6500, 2150, "", 6.5, 1.5, 73}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tbl, err := Load(buf, "upload.xlsx")
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "xlsx", tbl.Source)
	assert.Equal(t, 7.25, tbl.Rows[0].Value(SleepHours))
	assert.True(t, math.IsNaN(tbl.Rows[1].Value(WorkoutMinutes)))
	assert.Equal(t, []string{"2024-04"}, tbl.Months())
}

func TestLoadXLSXDateCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Date", "Steps", "Calories", "WorkoutMinutes", "SleepHours", "WaterIntake(L)", "HeartRate"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), 1, 2, 3, 7.25, 5, 6}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{45366, 1, 2, 3, 4, 5, 6}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"not a date", 1, 2, 3, 4, 5, 6}))

	oneDecimal := "0.0"
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &oneDecimal})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "E2", "E2", style))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tbl, err := Load(buf, "dates.xlsx")
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, "2024-03-14", tbl.Rows[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2024-03-15", tbl.Rows[1].Date.Format("2006-01-02"))
	assert.False(t, tbl.Rows[2].HasDate())
	assert.Equal(t, 7.25, tbl.Rows[0].Value(SleepHours), "cell formats must not round values")
	assert.Equal(t, []string{"2024-03"}, tbl.Months())
}

func TestParseExcelDate(t *testing.T) {
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), parseExcelDate("45366", false))
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), parseExcelDate("45366.75", false))
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), parseExcelDate("2024-04-01", false))
	assert.True(t, parseExcelDate("0", false).IsZero())
	assert.True(t, parseExcelDate("", false).IsZero())
}

func TestMonthsAndFilter(t *testing.T) {
	data := header +
		"2024-02-27,1,0,0,0,0,0\n" +
		"2024-03-01,2,0,0,0,0,0\n" +
		",3,0,0,0,0,0\n" +
		"2024-02-28,4,0,0,0,0,0\n" +
		"2024-03-02,5,0,0,0,0,0\n"
	tbl, err := LoadCSV(strings.NewReader(data), "m.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-02", "2024-03"}, tbl.Months())
	assert.Equal(t, "2024-03", tbl.LatestMonth())
	assert.True(t, tbl.HasMonth("2024-02"))
	assert.False(t, tbl.HasMonth("2023-12"))

	feb := tbl.FilterMonth("2024-02")
	assert.Equal(t, []float64{1, 4}, feb.Column(Steps))
	assert.Equal(t, tbl.ID, feb.ID)

	assert.Equal(t, 0, tbl.FilterMonth("1999-01").Len())
	assert.Equal(t, 0, tbl.FilterMonth("").Len())
}

func TestSliceHeadTail(t *testing.T) {
	rows := make([]Observation, 10)
	for i := range rows {
		rows[i] = NewObservation(ParseDate("2024-05-01").AddDate(0, 0, i))
		rows[i].Values[Steps] = float64(i)
	}
	tbl := NewTable("t", "csv", rows)

	assert.Equal(t, []float64{0, 1, 2}, tbl.Head(3).Column(Steps))
	assert.Equal(t, []float64{7, 8, 9}, tbl.Tail(3).Column(Steps))
	assert.Equal(t, 10, tbl.Tail(50).Len())
	assert.Equal(t, 0, tbl.Slice(8, 2).Len())

	var empty *Table
	assert.Equal(t, 0, empty.Tail(7).Len())
}

func TestParseMetrics(t *testing.T) {
	ms, err := ParseMetrics([]string{"Steps", "sleephours,HeartRate", "Steps"})
	require.NoError(t, err)
	assert.Equal(t, []Metric{Steps, SleepHours, HeartRate}, ms)

	ms, err = ParseMetrics(nil)
	require.NoError(t, err)
	assert.Empty(t, ms)

	_, err = ParseMetrics([]string{"Cadence"})
	assert.Error(t, err)

	assert.Equal(t, "WaterIntake(L)", WaterIntake.Column())
	assert.Equal(t, "Water Intake", WaterIntake.Label())
	assert.Len(t, AllMetrics(), 6)
}

func TestParseValue(t *testing.T) {
	for _, s := range []string{"", "NaN", "n/a", "NULL"} {
		v, ok := ParseValue(s)
		assert.True(t, ok, s)
		assert.True(t, math.IsNaN(v), s)
	}
	v, ok := ParseValue(" 1,234.5 ")
	assert.True(t, ok)
	assert.Equal(t, 1234.5, v)

	v, ok = ParseValue("12,345")
	assert.True(t, ok)
	assert.Equal(t, 12345.0, v)

	v, ok = ParseValue("-1,000,000")
	assert.True(t, ok)
	assert.Equal(t, -1000000.0, v)

	for _, s := range []string{"7,5", "1,23", "12,3456", ",5", "1,,000"} {
		_, ok = ParseValue(s)
		assert.False(t, ok, s)
	}

	_, ok = ParseValue("abc")
	assert.False(t, ok)
}

func TestEncodeCSVRoundTrip(t *testing.T) {
	data := header +
		"2024-01-01,8000,2200,30,7.5,,72\n" +
		"bogus,7000,2100,20,8,1.8,75\n"
	tbl, err := LoadCSV(strings.NewReader(data), "in.csv")
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, EncodeCSV(&sb, tbl))
	assert.Equal(t, header+
		"2024-01-01,8000,2200,30,7.5,,72\n"+
		",7000,2100,20,8,1.8,75\n", sb.String())
}

func TestFormatMonth(t *testing.T) {
	assert.Equal(t, "Mar 2024", FormatMonth("2024-03"))
	assert.Equal(t, "garbage", FormatMonth("garbage"))
}
