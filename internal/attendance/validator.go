package attendance

import (
	"math"

	"github.com/vehware/attendance-console/internal/sheet"
)

// ValidateRows filters raw export rows down to well-formed records. A row is
// kept iff the employee ID and type are non-empty, both time serials are
// finite numbers, and the date serial decodes to a calendar date. Order is
// preserved and duplicates pass through untouched; the remote service is the
// sole arbiter of "already exists".
func ValidateRows(raw []sheet.RawRow) []Record {
	records := make([]Record, 0, len(raw))

	for _, row := range raw {
		if row.UserID == "" || row.UserType == "" {
			continue
		}
		if !isFinite(row.CheckInSerial) || !isFinite(row.CheckOutSerial) {
			continue
		}

		date, err := sheet.DecodeDateSerial(row.DateSerial)
		if err != nil {
			// Row-scoped failure: drop the row, never abort the batch.
			continue
		}

		records = append(records, Record{
			UserID:       row.UserID,
			UserType:     row.UserType,
			Date:         date,
			CheckInTime:  row.CheckInSerial,
			CheckOutTime: row.CheckOutSerial,
		})
	}

	return records
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
