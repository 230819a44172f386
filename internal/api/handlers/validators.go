package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/qrbase/server/internal/api/problem"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report failures against the wire field names, not the Go ones.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// writeValidationProblem renders validator/v10 failures as a 400 with a
// per-field errors map; anything else falls back to a plain message.
func writeValidationProblem(w http.ResponseWriter, r *http.Request, err error, env string) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]interface{}, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = validationMessage(fe)
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env,
			problem.WithDetail("One or more fields failed validation."),
			problem.WithErrors(fields))
		return
	}
	problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "is invalid"
	}
}
