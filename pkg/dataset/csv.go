package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/qbrtools/qbrank/pkg/models"
)

// ErrMissingColumn indicates the CSV header lacks a column the row model
// cannot be built without.
var ErrMissingColumn = errors.New("required column missing")

const (
	colResponseID   = "response_id"
	colRespondentID = "respondent_id"
	colVendorID     = "vendor_id"
	colTimestamp    = "timestamp"
	colDepartment   = "department"
	colRole         = "role"
	colUsageFreq    = "usage_frequency"
	colIncident     = "incident_experience"
	colComment      = "comment"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Accepted in the order survey exports actually use them.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// ReadFile reads survey responses from a CSV file. It returns the parsed
// rows and the header columns as they appeared in the file.
func ReadFile(path string, items []string) ([]models.Response, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening data file: %w", err)
	}
	defer f.Close()

	rows, cols, err := Read(f, items)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return rows, cols, nil
}

// Read parses survey responses from CSV data. A UTF-8 byte order mark is
// tolerated. Score cells that are empty or non-numeric become missing
// values; unknown columns are ignored.
func Read(r io.Reader, items []string) ([]models.Response, []string, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, errors.New("empty CSV input")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("parsing header: %w", err)
	}

	idx := make(map[string]int, len(header))
	cols := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		cols[i] = name
		idx[name] = i
	}

	for _, required := range []string{colRespondentID, colVendorID} {
		if _, ok := idx[required]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	var rows []models.Response
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parsing CSV: %w", err)
		}
		line++

		field := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		row := models.Response{
			VendorID:           field(colVendorID),
			Department:         field(colDepartment),
			Role:               field(colRole),
			UsageFrequency:     field(colUsageFreq),
			IncidentExperience: parseBool(field(colIncident)),
			Comment:            field(colComment),
			Timestamp:          parseTimestamp(field(colTimestamp)),
			Scores:             make(map[string]models.Cell, len(items)),
		}

		row.RespondentID, err = parseID(field(colRespondentID))
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %s: %w", line, colRespondentID, err)
		}
		if v := field(colResponseID); v != "" {
			row.ResponseID, err = parseID(v)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: %s: %w", line, colResponseID, err)
			}
		}

		for _, item := range items {
			row.Scores[item] = parseScore(field(item))
		}

		rows = append(rows, row)
	}

	return rows, cols, nil
}

func parseID(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty id")
	}
	// Exports occasionally render ids as floats ("12.0").
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return int(f), nil
	}
	return 0, fmt.Errorf("invalid id %q", s)
}

func parseScore(s string) models.Cell {
	if s == "" {
		return models.Missing()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return models.Missing()
	}
	return models.NewCell(f)
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// WriteFile writes rows as CSV with a UTF-8 byte order mark so spreadsheet
// tools pick up the encoding.
func WriteFile(path string, rows []models.Response, items []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	if _, err := f.Write(utf8BOM); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := Write(f, rows, items); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// Write writes rows as CSV to w. The header is the fixed attribute columns
// followed by the given score columns.
func Write(w io.Writer, rows []models.Response, items []string) error {
	cw := csv.NewWriter(w)

	header := []string{
		colResponseID, colRespondentID, colVendorID, colTimestamp,
		colDepartment, colRole, colUsageFreq, colIncident, colComment,
	}
	header = append(header, items...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, 0, len(header))
	for _, r := range rows {
		record = record[:0]
		record = append(record,
			strconv.Itoa(r.ResponseID),
			strconv.Itoa(r.RespondentID),
			r.VendorID,
			formatTimestamp(r.Timestamp),
			r.Department,
			r.Role,
			r.UsageFrequency,
			strconv.FormatBool(r.IncidentExperience),
			r.Comment,
		)
		for _, item := range items {
			record = append(record, formatScore(r.Score(item)))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatScore(c models.Cell) string {
	if !c.Valid {
		return ""
	}
	return strconv.FormatFloat(c.Value, 'g', -1, 64)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
