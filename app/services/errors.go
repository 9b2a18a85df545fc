package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"inkpost/app/repositories"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidPage            = errors.New("invalid page")
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrValidation             = errors.New("validation failed")
)

// NonFieldKey collects errors that do not belong to a single input field.
const NonFieldKey = "__all__"

// ValidationError carries one message per offending input field.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets callers test with errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// AsValidationError extracts the field messages from err, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// validationErrorFrom converts validator output into a ValidationError.
// Other errors are returned unchanged.
func validationErrorFrom(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		if _, seen := ve.Fields[fe.Field()]; seen {
			continue
		}
		ve.Fields[fe.Field()] = fieldMessage(fe)
	}
	return ve
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	case "status":
		return "Select a valid choice."
	case "eqfield":
		return "The two password fields didn't match."
	default:
		return "Enter a valid value."
	}
}

// storeError maps repository failures onto service errors.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repositories.ErrDuplicateTitle):
		return newValidationError("title", "Post with this Title already exists.")
	case errors.Is(err, repositories.ErrDuplicateSlug):
		return newValidationError("slug", "Post with this Slug already exists.")
	case errors.Is(err, repositories.ErrDuplicateUsername):
		return newValidationError("username", "A user with that username already exists.")
	case errors.Is(err, repositories.ErrConflict):
		return newValidationError(NonFieldKey, "The record was changed by another request. Please try again.")
	default:
		return err
	}
}
