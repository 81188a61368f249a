// Package csvio implements the bulk device-list and MAC-list CSV import and
// export. Imports are two-phase: every row is validated first, and a single
// bad row leaves the database untouched.
package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText accepts UTF-8 with an optional BOM and falls back to GBK, the
// encoding the factory tooling exports.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decode csv: not UTF-8 and GBK decoding failed: %w", err)
	}
	return string(out), nil
}

// parseRows reads the CSV into header-keyed maps. Unknown columns are
// carried through and simply never read; missing cells become empty strings.
func parseRows(data []byte) ([]map[string]string, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse csv: empty file")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RowError is one rejected row; Row is 1-based counting the header line, so
// it matches what the operator sees in a spreadsheet.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportReport is the outcome of one import attempt.
type ImportReport struct {
	Imported int        `json:"imported"`
	Errors   []RowError `json:"errors"`
}

// OK reports whether the import was accepted.
func (r *ImportReport) OK() bool { return len(r.Errors) == 0 }

func (r *ImportReport) addError(row int, format string, args ...any) {
	r.Errors = append(r.Errors, RowError{Row: row, Message: fmt.Sprintf(format, args...)})
}
