package homework

import "fmt"

// Translate turns a single homework record into the notification text.
// It has no side effects.
func Translate(record any) (string, error) {
	rec, ok := record.(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: homework record is %s, want object", ErrMalformedResponse, kindOf(record))
	}

	name, ok := rec[FieldName].(string)
	if !ok || name == "" {
		return "", &MissingFieldError{Field: FieldName}
	}
	raw, ok := rec[FieldStatus].(string)
	if !ok || raw == "" {
		return "", &MissingFieldError{Field: FieldStatus}
	}

	status, err := ParseStatus(raw)
	if err != nil {
		return "", err
	}
	return FormatStatusMessage(name, status), nil
}

// FormatStatusMessage renders the chat text announcing a new review status.
func FormatStatusMessage(name string, status Status) string {
	return fmt.Sprintf("Review status changed for %q.\n%s", name, status.Verdict())
}
