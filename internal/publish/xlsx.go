package publish

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/trellisfw/trellis-reports/internal/report"
)

// sheetName is the single sheet each artifact carries.
const sheetName = "Sheet1"

// Encode renders a report as an xlsx workbook: one sheet, a header row in
// the kind's fixed column order, one row per report row.
func Encode(r *report.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(sheetName, "A1", &r.Headers); err != nil {
		return nil, fmt.Errorf("writing header row: %w", err)
	}
	for i, row := range r.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encoding workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRows reads the first sheet of an xlsx workbook back into rows
// aligned to headers. The sheet's own header row maps its columns onto the
// expected order, and short rows are padded, so rows decoded from a
// previously published artifact compare cell-for-cell against freshly
// built ones.
func DecodeRows(data []byte, headers []string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	// Map sheet columns onto the expected header order.
	colFor := make(map[string]int, len(raw[0]))
	for i, h := range raw[0] {
		colFor[h] = i
	}

	rows := make([][]string, 0, len(raw)-1)
	for _, src := range raw[1:] {
		row := make([]string, len(headers))
		for i, h := range headers {
			if c, ok := colFor[h]; ok && c < len(src) {
				row[i] = src[c]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
