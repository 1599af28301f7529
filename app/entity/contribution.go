package entity

import "time"

// Contribution mirrors a single CRM contribution row. One-off payments
// complete the row in place; payments in a recurring series create a new row
// per vendor transaction.
type Contribution struct {
	ID uint64

	ContactID           uint64
	ContributionRecurID *uint64

	InvoiceID string
	TrxnID    *string

	AmountCents int64
	Currency    string

	StatusID int32
	IsTest   bool

	ReceiveDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
