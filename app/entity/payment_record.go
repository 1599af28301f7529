package entity

import "time"

// PaymentRecord is a money movement applied to a contribution. Refunds are
// stored as negative amounts. The unique vendor transaction id is what makes
// webhook redelivery idempotent.
type PaymentRecord struct {
	ID uint64

	ContributionID uint64

	TrxnID      string
	AmountCents int64
	Currency    string

	TrxnDate time.Time

	CreatedAt time.Time
}
