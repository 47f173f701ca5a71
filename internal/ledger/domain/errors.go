package domain

import "errors"

var (
	ErrAccountNotFound = errors.New("account_not_found")
	ErrPaymentNotFound = errors.New("payment_not_found")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidChannel  = errors.New("invalid_channel")
	ErrInvalidPaidAt   = errors.New("invalid_paid_at")
)
