package model

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is a form error caught before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return slices.Contains(Categories, fl.Field().String())
	})
	v.RegisterValidation("condition", func(fl validator.FieldLevel) bool {
		return slices.Contains(Conditions, fl.Field().String())
	})
	return v
}

// Validate checks a form struct and returns the first problem as a
// *ValidationError, or nil.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating form: %w", err)
	}

	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Message: message(fe)}
}

func message(fe validator.FieldError) string {
	label := humanize(fe.Field())

	switch fe.Field() {
	case "duration":
		return fmt.Sprintf("Duration must be between 1 and %d days", MaxBorrowDays)
	case "confirm_password":
		if fe.Tag() == "eqfield" {
			return "Passwords do not match"
		}
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Enter a valid email address"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "category":
		return "Select a valid category"
	case "condition":
		return "Select a valid condition"
	case "gt":
		return label + " is invalid"
	default:
		return label + " is invalid"
	}
}

// humanize turns a JSON field name such as "block_no" into "Block no".
func humanize(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
