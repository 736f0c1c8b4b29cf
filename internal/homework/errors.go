package homework

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedResponse = errors.New("malformed response")
	ErrEmptyResponse     = errors.New("empty response")
	ErrUnknownVerdict    = errors.New("unknown homework status")
	ErrNoNewHomework     = errors.New("no new homework under review")
)

// MissingFieldError reports a required key that is absent or empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing or empty field %q", e.Field)
}

// IsMissingField reports whether err is a MissingFieldError for field.
// An empty field matches any missing field.
func IsMissingField(err error, field string) bool {
	var mf *MissingFieldError
	if !errors.As(err, &mf) {
		return false
	}
	return field == "" || mf.Field == field
}
