package dataset

import (
	"bytes"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// EncodeParquet serializes the dataset with one optional UTF8 column per
// dataset column. Parquet group fields are ordered by name, so the file's
// column order is alphabetical regardless of Columns order.
func (d *Dataset) EncodeParquet() ([]byte, error) {
	if len(d.Columns) == 0 {
		return nil, fmt.Errorf("encode parquet: dataset has no columns")
	}

	group := parquet.Group{}
	for _, col := range d.Columns {
		group[col] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("dataset", group)

	buf := new(bytes.Buffer)
	writer := parquet.NewGenericWriter[map[string]any](buf, schema)

	records := make([]map[string]any, 0, len(d.Rows))
	for _, row := range d.Rows {
		record := make(map[string]any, len(row))
		for k, v := range row {
			record[k] = v
		}
		records = append(records, record)
	}
	if len(records) > 0 {
		if _, err := writer.Write(records); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeParquet loads a dataset from parquet bytes. Cells are read as their
// string representation; nulls become absent keys.
func DecodeParquet(data []byte) (*Dataset, error) {
	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	schema := file.Schema()
	paths := schema.Columns()
	columns := make([]string, len(paths))
	for i, path := range paths {
		// Flat schema: every leaf path has a single segment.
		columns[i] = path[len(path)-1]
	}

	ds := &Dataset{Columns: columns}

	for _, rowGroup := range file.RowGroups() {
		rows := rowGroup.Rows()
		buf := make([]parquet.Row, 64)
		for {
			n, err := rows.ReadRows(buf)
			for _, prow := range buf[:n] {
				record := make(map[string]string, len(columns))
				for _, value := range prow {
					if value.IsNull() {
						continue
					}
					record[columns[value.Column()]] = value.String()
				}
				ds.Rows = append(ds.Rows, record)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("read parquet rows: %w", err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("close parquet rows: %w", err)
		}
	}

	return ds, nil
}
