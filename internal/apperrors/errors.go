// Package apperrors holds the error taxonomy shared by every layer of the
// storefront. Lower layers wrap these sentinels with fmt.Errorf("...: %w")
// and handlers classify them with errors.Is.
package apperrors

import "errors"

var (
	// ErrUnauthorized covers a missing, invalid or expired session credential
	// and a credential issued to someone other than the administrator.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation is returned before storage is touched.
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	// ErrStorage wraps failures of the underlying database.
	ErrStorage = errors.New("storage failure")
	// ErrNotification wraps outbound mail failures.
	ErrNotification = errors.New("notification failure")
)
