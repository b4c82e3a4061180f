package validator

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Shared validator instance to avoid creating multiple instances
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Get returns the shared validator instance
func Get() *validator.Validate {
	return validate
}

// FieldError is a single failed constraint on a single input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Translate converts a validation error into user-facing field errors.
// Messages are looked up by "StructField.tag" (list indices stripped, so
// Roles[0].oneof resolves via Roles.oneof). Fields without a registered
// message fall back to a generic one.
func Translate(err error, messages map[string]string) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Message: "invalid input"}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.StructField()
		if i := strings.IndexByte(field, '['); i >= 0 {
			field = field[:i]
		}

		msg, ok := messages[field+"."+fe.Tag()]
		if !ok {
			msg = strings.ToLower(field) + " is invalid."
		}

		out = append(out, FieldError{Field: field, Message: msg})
	}

	return out
}
