package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is one field-level rule violation.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", ve.Field, ve.Message)
}

// ValidationErrors aggregates all violations from one request.
type ValidationErrors []ValidationError

func (ves ValidationErrors) Error() string {
	msgs := make([]string, len(ves))
	for i, ve := range ves {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// HasErrors reports whether any violation was collected.
func (ves ValidationErrors) HasErrors() bool {
	return len(ves) > 0
}

// Validator handles request validation for the practice engine
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the engine's custom rules registered
func NewValidator() *Validator {
	validate := validator.New()

	v := &Validator{validate: validate}
	v.registerRules()

	return v
}

// Validate validates struct tags for any request struct
func (v *Validator) Validate(s interface{}) ValidationErrors {
	err := v.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateHistoryQuery validates an attempt history query including the
// cross-field date range rule.
func (v *Validator) ValidateHistoryQuery(q *AttemptHistoryQuery) ValidationErrors {
	errs := v.Validate(q)

	if q.DateFrom != nil && q.DateTo != nil && q.DateTo.Before(*q.DateFrom) {
		errs = append(errs, ValidationError{
			Field:   "date_to",
			Message: "must not be before date_from",
			Value:   q.DateTo,
		})
	}

	return errs
}

// registerRules registers custom rule validators
func (v *Validator) registerRules() {
	v.validate.RegisterValidation("sort_order", func(fl validator.FieldLevel) bool {
		order := fl.Field().String()
		return order == "asc" || order == "desc" || order == "ASC" || order == "DESC"
	})
}

// ToValidationErrors converts validator.ValidationErrors into the engine's
// field-level error shape.
func ToValidationErrors(err error) ValidationErrors {
	var result ValidationErrors

	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, ferr := range verrs {
			result = append(result, ValidationError{
				Field:   strings.ToLower(ferr.Field()),
				Message: messageForTag(ferr),
				Value:   ferr.Value(),
			})
		}
		return result
	}

	result = append(result, ValidationError{Field: "request", Message: err.Error()})
	return result
}

func messageForTag(ferr validator.FieldError) string {
	switch ferr.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", ferr.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ferr.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ferr.Param())
	case "sort_order":
		return "must be asc or desc"
	default:
		return fmt.Sprintf("failed %s validation", ferr.Tag())
	}
}
