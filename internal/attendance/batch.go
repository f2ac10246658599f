package attendance

import "fmt"

// MixedDatePolicy decides what to do when an upload spans more than one
// calendar date. Biometric exports are supposed to be one day per file, but
// nothing enforces that at the device, so the behavior is an explicit
// configuration choice.
type MixedDatePolicy string

const (
	// PolicyReject fails the whole upload when dates are mixed.
	PolicyReject MixedDatePolicy = "reject"

	// PolicySplit groups mixed-date uploads into one sub-batch per date.
	PolicySplit MixedDatePolicy = "split"
)

// ParseMixedDatePolicy validates a configured policy string.
func ParseMixedDatePolicy(s string) (MixedDatePolicy, error) {
	switch MixedDatePolicy(s) {
	case PolicyReject, PolicySplit:
		return MixedDatePolicy(s), nil
	default:
		return "", fmt.Errorf("unknown mixed date policy %q", s)
	}
}

// Formatter groups validated records into daily submission payloads.
type Formatter struct {
	policy MixedDatePolicy
}

// NewFormatter creates a formatter with the given mixed-date policy.
func NewFormatter(policy MixedDatePolicy) *Formatter {
	return &Formatter{policy: policy}
}

// Format builds submission payloads from validated records. Under the reject
// policy the result is exactly one payload whose date comes from the first
// record, and mixed dates fail with ErrMixedDates. Under the split policy
// records are grouped into one payload per distinct date, in first-seen
// order. Empty input fails with ErrEmptyBatch before any network activity.
func (f *Formatter) Format(records []Record) ([]BatchPayload, error) {
	if len(records) == 0 {
		return nil, ErrEmptyBatch
	}

	var dates []string
	grouped := make(map[string][]DailyRecord)
	for _, r := range records {
		if _, seen := grouped[r.Date]; !seen {
			dates = append(dates, r.Date)
		}
		grouped[r.Date] = append(grouped[r.Date], DailyRecord{
			UserID:       r.UserID,
			UserType:     r.UserType,
			CheckInTime:  r.CheckInTime,
			CheckOutTime: r.CheckOutTime,
		})
	}

	if f.policy == PolicyReject && len(dates) > 1 {
		return nil, fmt.Errorf("%w: found %d distinct dates", ErrMixedDates, len(dates))
	}

	payloads := make([]BatchPayload, 0, len(dates))
	for _, date := range dates {
		payloads = append(payloads, BatchPayload{
			Date:         date,
			DailyRecords: grouped[date],
		})
	}
	return payloads, nil
}
