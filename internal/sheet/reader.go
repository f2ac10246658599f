// Package sheet reads biometric attendance exports. Devices export .xlsx or
// legacy .xls workbooks whose first sheet carries positional columns:
// employee ID, employee type, check-in serial, check-out serial, date serial.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrEmptyWorkbook is returned when the first sheet has no rows at all
var ErrEmptyWorkbook = errors.New("worksheet is empty")

// Column positions in the biometric export. Header names are ignored; the
// device firmware fixes the order.
const (
	colUserID = iota
	colUserType
	colCheckIn
	colCheckOut
	colDate
)

// RawRow is a biometric export row typed at the parse boundary. Numeric cells
// that do not parse are carried as NaN so the validator rejects them
// row-by-row instead of the reader aborting the whole file.
type RawRow struct {
	UserID         string
	UserType       string
	CheckInSerial  float64
	CheckOutSerial float64
	DateSerial     float64
}

// Workbook is the parsed first sheet of an upload: the header row as-is plus
// every data row.
type Workbook struct {
	Header []string
	Rows   []RawRow
}

// ReadWorkbook parses an uploaded spreadsheet. Legacy .xls files go through
// the OLE2 reader; everything else is treated as an OOXML workbook. Only the
// first sheet is read, and the first row is treated as a header.
func ReadWorkbook(filename string, data []byte) (*Workbook, error) {
	var cells [][]string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		cells, err = readLegacyCells(data)
	default:
		cells, err = readOOXMLCells(data)
	}
	if err != nil {
		return nil, err
	}

	if len(cells) == 0 {
		return nil, ErrEmptyWorkbook
	}

	wb := &Workbook{Header: cells[0]}
	for _, row := range cells[1:] {
		wb.Rows = append(wb.Rows, parseRow(row))
	}
	return wb, nil
}

func readLegacyCells(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls workbook: %w", err)
	}
	if workbook.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return workbook.ReadAllCells(100000), nil
}

func readOOXMLCells(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	// Raw cell values keep date/time serials numeric instead of applying the
	// workbook's display format.
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}
	return rows, nil
}

// parseRow maps a positional cell row onto a RawRow. Short rows are padded
// with empty cells; the validator drops them via the empty-field rules.
func parseRow(cells []string) RawRow {
	cell := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	return RawRow{
		UserID:         cell(colUserID),
		UserType:       cell(colUserType),
		CheckInSerial:  parseSerial(cell(colCheckIn)),
		CheckOutSerial: parseSerial(cell(colCheckOut)),
		DateSerial:     parseSerial(cell(colDate)),
	}
}

func parseSerial(cell string) float64 {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
