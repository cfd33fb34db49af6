package service

import (
	"errors"
	"fmt"

	"github.com/AfshinJalili/captable/services/captable/internal/access"
	"github.com/AfshinJalili/captable/services/captable/internal/validation"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = access.ErrUnauthenticated
	ErrForbidden       = access.ErrForbidden
	ErrConflict        = errors.New("conflict")
	ErrIntegrity       = errors.New("integrity violation")
	ErrRateLimited     = errors.New("rate limited")
)

func invalid(errs validation.ValidationErrors) error {
	return fmt.Errorf("%w: %w", ErrValidation, errs)
}

// FieldErrors returns the field-level detail carried by a validation error.
func FieldErrors(err error) validation.ValidationErrors {
	var errs validation.ValidationErrors
	if errors.As(err, &errs) {
		return errs
	}
	return nil
}
