package harvest

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// MarshalTable serializes records into the canonical on-disk CSV form:
// a header row of ColumnNames followed by one row per record, with
// multi-line field values escaped onto a single row.
func MarshalTable(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	columns := ColumnNames()
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("write table header: %w", err)
	}
	row := make([]string, len(columns))
	for _, rec := range records {
		row[0] = rec.Key
		for i, name := range columns[1:] {
			row[i+1] = EscapeMultiline(rec.Fields[name])
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write table row %s: %w", rec.Key, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush table rows: %w", err)
	}
	return buf.Bytes(), nil
}
