package editor

// Trigger is an operator or system event that can move a session between
// states.
type Trigger string

const (
	TriggerOpen        Trigger = "OPEN"
	TriggerMarkAbsent  Trigger = "MARK_ABSENT"
	TriggerMarkPresent Trigger = "MARK_PRESENT"
	TriggerSave        Trigger = "SAVE"
	TriggerSucceed     Trigger = "SUCCEED"
	TriggerFail        Trigger = "FAIL"
	TriggerCancel      Trigger = "CANCEL"
	TriggerClose       Trigger = "CLOSE"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}
