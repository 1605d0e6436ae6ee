package shared

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate runs the struct tags of v and converts failures into a
// VALIDATION_ERROR carrying one FieldError per rule.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &AppError{Code: CodeValidation, Message: "validation error", Err: err}
	}

	details := FormatValidationErrors(validationErrs)
	messages := make([]string, 0, len(details))
	for _, d := range details {
		messages = append(messages, d.Message)
	}
	return &AppError{
		Code:    CodeValidation,
		Message: strings.Join(messages, "; "),
		Details: details,
	}
}

// FormatValidationErrors converts validator errors into a user-facing form.
func FormatValidationErrors(errs validator.ValidationErrors) []FieldError {
	details := make([]FieldError, 0, len(errs))
	for _, err := range errs {
		field := err.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}

		var message string
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("field '%s' is required", field)
		case "min":
			message = fmt.Sprintf("field '%s' must be at least %s", field, err.Param())
		case "max":
			message = fmt.Sprintf("field '%s' must not exceed %s", field, err.Param())
		case "gt":
			message = fmt.Sprintf("field '%s' must be greater than %s", field, err.Param())
		case "gte":
			message = fmt.Sprintf("field '%s' must be at least %s", field, err.Param())
		case "lte":
			message = fmt.Sprintf("field '%s' must be at most %s", field, err.Param())
		default:
			message = fmt.Sprintf("field '%s' failed on the '%s' rule", field, err.Tag())
		}

		details = append(details, FieldError{
			Field:   field,
			Message: message,
			Code:    "validation_" + err.Tag(),
		})
	}
	return details
}
