package poller

import (
	"context"
	"errors"
	"time"

	"homeworkbot/internal/homework"
	"homeworkbot/internal/notifier"
	"homeworkbot/internal/practicum"
)

// OutcomeKind classifies the result of one poll cycle.
type OutcomeKind int

const (
	// Delivered: a new status message was sent.
	Delivered OutcomeKind = iota
	// NoChange: the status message equals the last one sent.
	NoChange
	// NoNewAssignment: the API answered with an empty homework list.
	NoNewAssignment
	// Failed: fetch, validation, translation or delivery failed.
	Failed
)

func (k OutcomeKind) String() string {
	switch k {
	case Delivered:
		return "delivered"
	case NoChange:
		return "no_change"
	case NoNewAssignment:
		return "no_new_assignment"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one poll cycle.
type Outcome struct {
	Kind OutcomeKind
	// Message is the status text (Delivered, NoChange) or the error report (NoNewAssignment, Failed).
	Message string
	// Err is set for NoNewAssignment and Failed.
	Err error
	// Notified reports whether Message reached the chat during this cycle.
	Notified bool
	// NotifyErr is the delivery error of the error report, if any.
	NotifyErr error
	// Cursor is the cursor after the cycle.
	Cursor int64
	// Took is the wall time of the cycle.
	Took time.Duration
}

// FailureKind maps a cycle error to a stable label for logs and metrics.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, practicum.ErrUpstreamUnreachable):
		return "upstream_unreachable"
	case errors.Is(err, practicum.ErrUnexpectedStatus):
		return "unexpected_status"
	case errors.Is(err, practicum.ErrUndecodableBody):
		return "undecodable_body"
	case errors.Is(err, homework.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, homework.ErrEmptyResponse):
		return "empty_response"
	case homework.IsMissingField(err, ""):
		return "missing_field"
	case errors.Is(err, homework.ErrUnknownVerdict):
		return "unknown_verdict"
	case errors.Is(err, homework.ErrNoNewHomework):
		return "no_new_homework"
	case errors.Is(err, notifier.ErrDeliveryFailed):
		return "delivery_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unknown"
	}
}
