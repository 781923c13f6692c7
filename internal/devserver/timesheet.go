package devserver

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// TimesheetColumns are the header columns a timesheet export must carry
var TimesheetColumns = []string{
	"Employee ID",
	"Billable Rate (per hour)",
	"Project",
	"Date",
	"Start Time",
	"End Time",
}

// InspectTimesheet reads a timesheet CSV and returns its data row count.
// A missing column or malformed record is reported as an error whose text
// is suitable for the status message.
func InspectTimesheet(r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("file is empty")
	}
	if err != nil {
		return 0, fmt.Errorf("invalid CSV header: %w", err)
	}

	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))] = true
	}

	var missing []string
	for _, col := range TimesheetColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return 0, fmt.Errorf("missing column: %s", strings.Join(missing, ", "))
	}

	rows := 0
	for {
		_, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("invalid row %d: %w", rows+1, err)
		}
		rows++
	}

	return rows, nil
}
