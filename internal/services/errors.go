package services

import "errors"

var (
	// ErrVersionConflict is returned when an admin submits a status update
	// against a version of the invoice that is no longer current.
	ErrVersionConflict = errors.New("invoice changed since it was loaded, please reload")

	// ErrIllegalTransition is returned for a status update that the lifecycle
	// does not allow (currently only same-status updates).
	ErrIllegalTransition = errors.New("invoice is already in the requested status")

	// ErrInvalidInput wraps validation failures on create/update inputs.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials is returned on failed admin sign-in. Deliberately
	// does not distinguish unknown email from wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
