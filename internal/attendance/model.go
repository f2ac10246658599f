// Package attendance implements the reconciliation pipeline that turns
// biometric export rows into a daily attendance submission and classifies the
// per-employee outcome reported back by the CRM service.
package attendance

// Record is a validated attendance record. All fields passed validation:
// identity fields are non-empty, both time serials are finite and the date
// decoded to a real calendar day. Records are never mutated after creation.
type Record struct {
	UserID       string
	UserType     string
	Date         string // ISO date (YYYY-MM-DD)
	CheckInTime  float64
	CheckOutTime float64
}

// DailyRecord is one employee's entry inside a batch payload. The date lives
// on the batch, not the record, in the wire format.
type DailyRecord struct {
	UserID       string  `json:"userId"`
	UserType     string  `json:"userType"`
	CheckInTime  float64 `json:"checkInTime"`
	CheckOutTime float64 `json:"checkOutTime"`
}

// BatchPayload is a single day's attendance submission.
type BatchPayload struct {
	Date         string        `json:"date"`
	DailyRecords []DailyRecord `json:"dailyRecords"`
}

// SavedEntry identifies an employee whose attendance the service accepted.
type SavedEntry struct {
	UserID string `json:"userId"`
}

// UnsavedEntry identifies an employee the service rejected, with the
// business reason (duplicate, employee not found, ...).
type UnsavedEntry struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

// SubmissionOutcome is the per-row result of a batch submission. It is owned
// by the remote service; the reporter treats it as read-only input.
type SubmissionOutcome struct {
	Saved   []SavedEntry   `json:"saved"`
	Unsaved []UnsavedEntry `json:"unsaved"`
}

// Merge folds another outcome into this one. Used when a mixed-date upload is
// split into per-date sub-batches that are submitted separately.
func (o *SubmissionOutcome) Merge(other *SubmissionOutcome) {
	if other == nil {
		return
	}
	o.Saved = append(o.Saved, other.Saved...)
	o.Unsaved = append(o.Unsaved, other.Unsaved...)
}
