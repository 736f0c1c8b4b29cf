package homework

import (
	"encoding/json"
	"fmt"
	"reflect"
)

const (
	FieldHomeworks   = "homeworks"
	FieldCurrentDate = "current_date"
	FieldName        = "homework_name"
	FieldStatus      = "status"
)

// Batch is the validated top level of an API answer.
// Homeworks is returned untouched: records are checked one at a time by Translate.
type Batch struct {
	Homeworks   []any
	CurrentDate int64
}

// Check validates a decoded API answer.
//
// Order of checks: object type, emptiness, required keys, then value types.
// An empty homeworks list is valid; callers treat it as "nothing new".
func Check(raw any) (Batch, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Batch{}, fmt.Errorf("%w: top level is %s, want object", ErrMalformedResponse, kindOf(raw))
	}
	if len(obj) == 0 {
		return Batch{}, ErrEmptyResponse
	}

	hw, ok := obj[FieldHomeworks]
	if !ok || hw == nil {
		return Batch{}, &MissingFieldError{Field: FieldHomeworks}
	}
	cd, ok := obj[FieldCurrentDate]
	if !ok || !truthy(cd) {
		return Batch{}, &MissingFieldError{Field: FieldCurrentDate}
	}

	list, ok := hw.([]any)
	if !ok {
		return Batch{}, fmt.Errorf("%w: %q is %s, want list", ErrMalformedResponse, FieldHomeworks, kindOf(hw))
	}
	date, err := toInt64(cd)
	if err != nil {
		return Batch{}, fmt.Errorf("%w: %q: %v", ErrMalformedResponse, FieldCurrentDate, err)
	}
	return Batch{Homeworks: list, CurrentDate: date}, nil
}

// truthy mirrors loose JSON truthiness: null, false, zero, "" and empty
// containers are all considered absent.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	case float64:
		return x != 0
	case int64:
		return x != 0
	case int:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Int64()
	case float64:
		if x != float64(int64(x)) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int64(x), nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("%s is not an integer", kindOf(v))
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "bool"
	case json.Number, float64, int, int64:
		return "number"
	default:
		return reflect.TypeOf(v).String()
	}
}
