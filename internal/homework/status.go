// Package homework validates review API answers and turns homework records into
// notification text.
package homework

import "fmt"

// Status is the review state of a homework as reported by the upstream API.
type Status string

const (
	StatusApproved  Status = "approved"
	StatusReviewing Status = "reviewing"
	StatusRejected  Status = "rejected"
)

// Statuses lists every known status.
var Statuses = []Status{StatusApproved, StatusReviewing, StatusRejected}

// ParseStatus maps a raw upstream code onto the closed set of statuses.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusApproved, StatusReviewing, StatusRejected:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVerdict, raw)
	}
}

// Verdict returns the human-readable text for the status.
func (s Status) Verdict() string {
	switch s {
	case StatusApproved:
		return "The work has been reviewed: the reviewer liked everything. Hooray!"
	case StatusReviewing:
		return "The work has been taken for review."
	case StatusRejected:
		return "The work has been reviewed: the reviewer left some remarks."
	}
	return ""
}
