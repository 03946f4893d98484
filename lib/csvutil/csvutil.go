// Package csvutil decodes plugin CSV exports into string-keyed rows.
// Exports come out of WordPress with a UTF-8 BOM and occasionally
// ragged records, both of which are tolerated here.
package csvutil

import (
	"encoding/csv"
	"io"
	"strings"
)

// Decode reads an entire CSV document, treating the first record as
// the header row. Keys keep their original casing; normalization is
// the caller's concern. Rows shorter than the header pad with "".
func Decode(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, err
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = record[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DecodeString is Decode over an in-memory document.
func DecodeString(s string) ([]map[string]string, error) {
	return Decode(strings.NewReader(s))
}
