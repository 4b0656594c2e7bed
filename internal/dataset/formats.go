package dataset

import "fmt"

// Format describes one persisted file format for a dataset.
type Format struct {
	Name      string
	Extension string
	MIMEType  string
	Encode    func(*Dataset) ([]byte, error)
}

// FileName returns the full file name for a dataset base name.
func (f Format) FileName(base string) string {
	return base + "." + f.Extension
}

var (
	// ParquetFormat is the columnar format of record.
	ParquetFormat = Format{
		Name:      "parquet",
		Extension: "parquet",
		MIMEType:  "application/octet-stream",
		Encode:    (*Dataset).EncodeParquet,
	}

	// ExcelFormat is the human-facing spreadsheet copy.
	ExcelFormat = Format{
		Name:      "excel",
		Extension: "xlsx",
		MIMEType:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Encode:    (*Dataset).EncodeXLSX,
	}
)

// ByName resolves a format by its registry name.
func ByName(name string) (Format, error) {
	switch name {
	case ParquetFormat.Name:
		return ParquetFormat, nil
	case ExcelFormat.Name:
		return ExcelFormat, nil
	default:
		return Format{}, fmt.Errorf("unsupported format: %s (available: parquet, excel)", name)
	}
}
