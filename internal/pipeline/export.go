package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"retail-insights/internal/model"
)

const stageWrite = "write"

// ExportInfo is the metadata block written ahead of the rows in JSON exports.
type ExportInfo struct {
	RunID       string    `json:"run_id"`
	Report      string    `json:"report"`
	ExportedAt  time.Time `json:"exported_at"`
	RecordCount int       `json:"record_count"`
}

// WriteTable writes ds as a comma separated file with a header row. Missing
// parent directories are created. Nulls are written as empty cells.
func WriteTable(path string, ds model.Dataset) error {
	if len(ds.Columns) == 0 {
		return newError(ErrEmptyInput, stageWrite, "", -1, nil, fmt.Errorf("dataset has no columns"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(ds.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	row := make([]string, len(ds.Columns))
	for _, rec := range ds.Records {
		for i, c := range ds.Columns {
			row[i] = formatCell(rec[c])
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return file.Close()
}

// WriteJSON writes ds as {"export_info": ..., "data": [...]} with one object
// per record.
func WriteJSON(path string, ds model.Dataset, info ExportInfo) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	info.RecordCount = ds.Len()
	rows := ds.Records
	if rows == nil {
		rows = []model.Record{}
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(map[string]interface{}{
		"export_info": info,
		"data":        rows,
	}); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return file.Close()
}
