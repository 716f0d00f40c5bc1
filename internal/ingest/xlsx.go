package ingest

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"flujo/internal/core"
)

// ExportSheet is the worksheet name used by WriteXLSX.
const ExportSheet = "Movimientos"

// ReadXLSX reads raw records from a workbook. An empty sheet name selects
// the first worksheet. Cells are read unformatted so that date columns
// arrive as Excel serials.
func ReadXLSX(r io.Reader, sheet string) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	table, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return FromTable(table), nil
}

// ImportXLSX reads and normalizes a workbook upload.
func ImportXLSX(data []byte, fm FieldMapping, sheet string) (Result, error) {
	rows, err := ReadXLSX(bytes.NewReader(data), sheet)
	if err != nil {
		return Result{}, err
	}
	res := fm.NormalizeAll(rows)
	if res.Accepted() == 0 {
		return res, ErrNoValidRows
	}
	return res, nil
}

// WriteXLSX writes movements as a single-sheet workbook in the mapping's
// column layout. Amounts are stored as numbers.
func WriteXLSX(w io.Writer, fm FieldMapping, rows []core.Movement) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(ExportSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	header := make([]interface{}, len(fm.Columns))
	for i, c := range fm.Columns {
		header[i] = c.Header
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r, m := range rows {
		values := make([]interface{}, len(fm.Columns))
		for i, c := range fm.Columns {
			if c.Field == core.FieldAmount {
				values[i] = m.Amount.InexactFloat64()
				continue
			}
			values[i] = c.Field.Value(m)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ExportSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
