package sheet

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildXLSX writes an in-memory workbook with the given rows on the first
// sheet.
func buildXLSX(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheetName := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheetName, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadWorkbook(t *testing.T) {
	data := buildXLSX(t,
		[]interface{}{"User ID", "User Type", "Check In Time", "Check Out Time", "Date"},
		[]interface{}{"E100", "Employee", 0.354166667, 0.708333333, 45000},
		[]interface{}{"E101", "Employee", 0.375, 0.75, 45000},
	)

	wb, err := ReadWorkbook("biometric.xlsx", data)
	require.NoError(t, err)

	assert.Equal(t, []string{"User ID", "User Type", "Check In Time", "Check Out Time", "Date"}, wb.Header)
	require.Len(t, wb.Rows, 2)

	first := wb.Rows[0]
	assert.Equal(t, "E100", first.UserID)
	assert.Equal(t, "Employee", first.UserType)
	assert.InDelta(t, 0.354166667, first.CheckInSerial, 1e-9)
	assert.InDelta(t, 0.708333333, first.CheckOutSerial, 1e-9)
	assert.InDelta(t, 45000, first.DateSerial, 1e-9)
}

func TestReadWorkbook_NonNumericCellsBecomeNaN(t *testing.T) {
	data := buildXLSX(t,
		[]interface{}{"User ID", "User Type", "Check In Time", "Check Out Time", "Date"},
		[]interface{}{"E100", "Employee", "not a time", 0.75, 45000},
	)

	wb, err := ReadWorkbook("biometric.xlsx", data)
	require.NoError(t, err)
	require.Len(t, wb.Rows, 1)

	assert.True(t, math.IsNaN(wb.Rows[0].CheckInSerial))
	assert.InDelta(t, 0.75, wb.Rows[0].CheckOutSerial, 1e-9)
}

func TestReadWorkbook_ShortRowsArePadded(t *testing.T) {
	data := buildXLSX(t,
		[]interface{}{"User ID", "User Type", "Check In Time", "Check Out Time", "Date"},
		[]interface{}{"E100", "Employee"},
	)

	wb, err := ReadWorkbook("biometric.xlsx", data)
	require.NoError(t, err)
	require.Len(t, wb.Rows, 1)

	row := wb.Rows[0]
	assert.Equal(t, "E100", row.UserID)
	assert.True(t, math.IsNaN(row.CheckInSerial))
	assert.True(t, math.IsNaN(row.CheckOutSerial))
	assert.True(t, math.IsNaN(row.DateSerial))
}

func TestReadWorkbook_HeaderOnly(t *testing.T) {
	data := buildXLSX(t,
		[]interface{}{"User ID", "User Type", "Check In Time", "Check Out Time", "Date"},
	)

	wb, err := ReadWorkbook("biometric.xlsx", data)
	require.NoError(t, err)
	assert.Empty(t, wb.Rows)
}

func TestReadWorkbook_Garbage(t *testing.T) {
	_, err := ReadWorkbook("biometric.xlsx", []byte("definitely not a workbook"))
	assert.Error(t, err)
}
