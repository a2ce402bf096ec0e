package domain

import "errors"

var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrTransactionFailure = errors.New("transaction failure")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrDuplicateRequest   = errors.New("duplicate request")
)

// Kind returns the stable code callers use to tell error kinds apart.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrDuplicateRequest):
		return "duplicate_request"
	case errors.Is(err, ErrTransactionFailure):
		return "transaction_failure"
	default:
		return "internal_error"
	}
}

// IsDomain reports whether err already carries one of the kinds above.
func IsDomain(err error) bool {
	return Kind(err) != "internal_error" && err != nil
}
