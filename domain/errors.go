package domain

import "errors"

var (
	// ErrNotFound reports an unknown medicine or transaction id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput reports empty items, non-positive quantities or a
	// malformed date range.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientStock reports an adjustment that would drive a
	// medicine's stock quantity negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrPrescriptionRequired reports a sale of a Schedule H medicine
	// without prescription files or an explicit skip confirmation.
	ErrPrescriptionRequired = errors.New("prescription required")
)
