package editor

import (
	"context"

	"go.uber.org/zap"

	"github.com/vehware/attendance-console/internal/crm"
)

// Mode selects the downstream endpoint: create marks a day that has no
// record yet, correct rewrites an existing one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeCorrect
)

// Form holds the editable fields of a session. Times are wall-clock "HH:mm"
// strings; an empty string means unset.
type Form struct {
	Date     string
	CheckIn  string
	CheckOut string
}

// AttendanceWriter is the slice of the CRM client the editor needs.
type AttendanceWriter interface {
	SingleAdd(ctx context.Context, session crm.Session, employeeID string, req crm.SingleAttendanceRequest) error
	UpdateAttendance(ctx context.Context, session crm.Session, req crm.UpdateAttendanceRequest) error
}

// Session is one correction-dialog session for one employee and one day.
// Lifecycle: Open, edit, then Save, Cancel or Close; a settled session cannot
// be reused.
type Session struct {
	machine *Machine
	writer  AttendanceWriter
	logger  *zap.Logger

	mode       Mode
	employeeID string
	form       Form
	prior      Form
	absent     bool

	fieldErrors map[string]string
}

// NewSession creates an idle session. Open must be called before editing.
func NewSession(writer AttendanceWriter, logger *zap.Logger) *Session {
	s := &Session{
		writer: writer,
		logger: logger,
	}
	s.machine = newSessionMachine(func() bool {
		return len(s.fieldErrors) == 0
	})
	return s
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.machine.State()
}

// Form returns the current field values.
func (s *Session) Form() Form {
	return s.form
}

// IsAbsent reports whether the employee is currently marked absent.
func (s *Session) IsAbsent() bool {
	return s.absent
}

// FieldErrors returns the field-level errors from the last blocked save.
func (s *Session) FieldErrors() map[string]string {
	return s.fieldErrors
}

// Open starts editing. The given form is the record's current values; it is
// also snapshotted so marking present can restore times cleared by a
// mark-absent.
func (s *Session) Open(mode Mode, employeeID string, form Form) error {
	if err := s.machine.Fire(TriggerOpen); err != nil {
		return err
	}
	s.mode = mode
	s.employeeID = employeeID
	s.form = form
	s.prior = form
	s.absent = false
	s.fieldErrors = nil
	return nil
}

// Edit replaces the form fields while the session is editing.
func (s *Session) Edit(form Form) error {
	if s.machine.State() != StateEditing {
		return ErrInvalidTransition
	}
	s.form = form
	return nil
}

// MarkAbsent flags the employee absent for the day and clears both times
// locally. The cleared values stay recoverable via MarkPresent.
func (s *Session) MarkAbsent() error {
	if err := s.machine.Fire(TriggerMarkAbsent); err != nil {
		return err
	}
	s.absent = true
	s.form.CheckIn = ""
	s.form.CheckOut = ""
	return nil
}

// MarkPresent reverses a mark-absent, restoring the times the session was
// opened with.
func (s *Session) MarkPresent() error {
	if err := s.machine.Fire(TriggerMarkPresent); err != nil {
		return err
	}
	s.absent = false
	s.form.CheckIn = s.prior.CheckIn
	s.form.CheckOut = s.prior.CheckOut
	return nil
}

// Save validates the form and submits it. A validation failure blocks the
// save with field-level errors and leaves the session editing. The submission
// is one HTTP call with no retry; its result settles the session.
func (s *Session) Save(ctx context.Context, crmSession crm.Session) error {
	s.fieldErrors = s.validate()

	if err := s.machine.Fire(TriggerSave); err != nil {
		if len(s.fieldErrors) > 0 {
			return &ValidationError{Fields: s.fieldErrors}
		}
		return err
	}

	if err := s.submit(ctx, crmSession); err != nil {
		if fireErr := s.machine.Fire(TriggerFail); fireErr != nil {
			s.logger.Error("Failed to settle session after submit error", zap.Error(fireErr))
		}
		return err
	}

	return s.machine.Fire(TriggerSucceed)
}

// Cancel abandons the session without submitting.
func (s *Session) Cancel() error {
	return s.machine.Fire(TriggerCancel)
}

// Close discards the session after it settled.
func (s *Session) Close() error {
	return s.machine.Fire(TriggerClose)
}

// validate enforces the save guard: the date is required unconditionally,
// and unless the employee is marked absent both times are required. A
// half-filled pair always blocks with field errors; there is no
// mark-absent-instead prompt path.
func (s *Session) validate() map[string]string {
	errs := make(map[string]string)

	if s.form.Date == "" {
		errs["date"] = "Date is required."
	}
	if !s.absent {
		if s.form.CheckIn == "" {
			errs["checkIn"] = "Check-in time is required."
		}
		if s.form.CheckOut == "" {
			errs["checkOut"] = "Check-out time is required."
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (s *Session) submit(ctx context.Context, crmSession crm.Session) error {
	// Absent sessions always send nulls, even if stale time values linger in
	// the form; null is the absence signal the service understands.
	var checkIn, checkOut *string
	if !s.absent {
		checkIn = optional(s.form.CheckIn)
		checkOut = optional(s.form.CheckOut)
	}

	s.logger.Info("Submitting single attendance record",
		zap.String("employee_id", s.employeeID),
		zap.String("date", s.form.Date),
		zap.Bool("absent", s.absent))

	if s.mode == ModeCorrect {
		return s.writer.UpdateAttendance(ctx, crmSession, crm.UpdateAttendanceRequest{
			Date:         s.form.Date,
			CheckInTime:  checkIn,
			CheckOutTime: checkOut,
			UserID:       s.employeeID,
		})
	}

	return s.writer.SingleAdd(ctx, crmSession, s.employeeID, crm.SingleAttendanceRequest{
		UserType:     "Employee",
		Date:         s.form.Date,
		CheckInTime:  checkIn,
		CheckOutTime: checkOut,
	})
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
