package service

import "errors"

var (
	// ErrValidation wraps all request validation failures.
	ErrValidation = errors.New("validation failed")

	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrDuplicateInvoice = errors.New("invoice with this number already exists")
	// ErrInvoiceSubmitted rejects mutation or resubmission of an invoice the
	// gateway has already accepted.
	ErrInvoiceSubmitted = errors.New("invoice has already been submitted")

	ErrBuyerNotFound = errors.New("buyer not found")
)
