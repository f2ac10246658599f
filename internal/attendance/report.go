package attendance

import "fmt"

// DefaultFailureReason is used when the service rejects a row without a reason.
const DefaultFailureReason = "Employee not found"

// Status classifies a submission outcome for the operator.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusPartial Status = "Partial Success"
	StatusError   Status = "Error"
)

// Report is the operator-facing summary of a submission.
type Report struct {
	Status         Status   `json:"status"`
	Saved          []string `json:"saved"`
	Failed         []string `json:"failed"`
	ActionRequired string   `json:"actionRequired,omitempty"`
}

// Summarize classifies a submission outcome. Any saved row alongside any
// unsaved row is a partial success; zero saved rows is an error. Every
// unsaved entry is listed with its reason so the operator can correct the
// source data and resubmit.
func Summarize(outcome *SubmissionOutcome) Report {
	report := Report{Status: StatusError}

	for _, s := range outcome.Saved {
		report.Saved = append(report.Saved, fmt.Sprintf("User ID: %s", s.UserID))
	}
	for _, u := range outcome.Unsaved {
		reason := u.Reason
		if reason == "" {
			reason = DefaultFailureReason
		}
		report.Failed = append(report.Failed, fmt.Sprintf("User ID: %s - Reason: %s", u.UserID, reason))
	}

	switch {
	case len(outcome.Saved) > 0 && len(outcome.Unsaved) > 0:
		report.Status = StatusPartial
	case len(outcome.Saved) > 0:
		report.Status = StatusSuccess
	}

	if len(outcome.Unsaved) > 0 {
		report.ActionRequired = "Please add missing employees to the database and try again."
	}

	return report
}
