package dataset

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// EncodeXLSX serializes the dataset as a workbook with a header row on the
// default sheet.
func (d *Dataset) EncodeXLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]any, len(d.Columns))
	for i, col := range d.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write xlsx header: %w", err)
	}

	for i, row := range d.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("xlsx cell name: %w", err)
		}
		values := make([]any, len(d.Columns))
		for j, col := range d.Columns {
			values[j] = row[col]
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write xlsx row %d: %w", i, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeXLSX loads a dataset from workbook bytes. The first row of the first
// sheet is the header.
func DecodeXLSX(data []byte) (*Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(rows) == 0 {
		return New(), nil
	}

	ds := &Dataset{Columns: rows[0]}
	for _, raw := range rows[1:] {
		record := make(map[string]string, len(ds.Columns))
		for j, col := range ds.Columns {
			if j < len(raw) {
				record[col] = raw[j]
			}
		}
		ds.Rows = append(ds.Rows, record)
	}
	return ds, nil
}
