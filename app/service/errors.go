package service

import "errors"

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrDuplicateInvoice     = errors.New("duplicate invoice number")
	ErrPaymentDeclined      = errors.New("payment declined")
	ErrContributionNotFound = errors.New("contribution not found")
	ErrRecurNotFound        = errors.New("recurring contribution not found")
	ErrSubscriptionMissing  = errors.New("recurring contribution has no subscription")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrMissingTransactionID = errors.New("webhook payload missing transaction id")
)
