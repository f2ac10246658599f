package sheet

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Spreadsheet serial epoch (1899-12-30). Day 1 of the 1900 date system lands
// on 1899-12-31 because of the historical Lotus leap-year bug; real exported
// files depend on this epoch, so it is kept as-is rather than corrected.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var (
	// ErrInvalidDateSerial is returned when a date serial cannot be decoded
	ErrInvalidDateSerial = errors.New("invalid date serial")

	// ErrInvalidTimeSerial is returned when a time serial cannot be decoded
	ErrInvalidTimeSerial = errors.New("invalid time serial")
)

const minutesPerDay = 1440

// TimeOfDay is a decoded wall-clock time on a 12-hour clock.
type TimeOfDay struct {
	Hour     int    // 1-12
	Minute   int    // 0-59
	Meridiem string // "AM" or "PM"
}

// String renders the time the way the attendance console displays it,
// e.g. "8:30 AM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%d:%02d %s", t.Hour, t.Minute, t.Meridiem)
}

// DecodeDateSerial converts a spreadsheet date serial into an ISO calendar
// date (YYYY-MM-DD). The serial is a day count from the 1899-12-30 epoch;
// fractional day parts are truncated. Serials that are non-finite or not
// positive fail with ErrInvalidDateSerial.
func DecodeDateSerial(serial float64) (string, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial <= 0 {
		return "", fmt.Errorf("%w: %v", ErrInvalidDateSerial, serial)
	}

	date := serialEpoch.AddDate(0, 0, int(math.Floor(serial)))
	return date.Format("2006-01-02"), nil
}

// DecodeTimeSerial converts a fractional-day time serial in [0,1) into a
// wall-clock time. 0.5 decodes to 12:00 PM; hour 0 decodes to 12 AM.
func DecodeTimeSerial(serial float64) (TimeOfDay, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial < 0 || serial >= 1 {
		return TimeOfDay{}, fmt.Errorf("%w: %v", ErrInvalidTimeSerial, serial)
	}

	totalMinutes := serial * minutesPerDay
	hours := int(math.Floor(totalMinutes / 60))
	minutes := int(math.Floor(math.Mod(totalMinutes, 60)))

	meridiem := "AM"
	if hours >= 12 {
		meridiem = "PM"
	}

	hour12 := hours % 12
	if hour12 == 0 {
		hour12 = 12
	}

	return TimeOfDay{
		Hour:     hour12,
		Minute:   minutes,
		Meridiem: meridiem,
	}, nil
}
