// Package utils holds small helpers shared across the interface layers.
package utils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/DoozHub/dooz-pm-suite/pkg/errors"
)

var validate = validator.New()

// ValidateStruct checks a struct against its validation tags and reports
// every violation in a single typed validation error.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError turns validator output into one readable message.
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		messages := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			messages = append(messages, formatFieldError(e))
		}
		return apperrors.NewValidationError(strings.Join(messages, "; "))
	}
	return apperrors.NewValidationError(err.Error())
}

// formatFieldError formats a single field validation error.
func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
