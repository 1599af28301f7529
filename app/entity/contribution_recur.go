package entity

import "time"

// ContributionRecur is the parent record of a recurring series. SubscriptionID
// carries the vendor's ARB subscription id once the subscription is created;
// ProcessorID duplicates it for compatibility with callers that cancel by
// processor reference.
type ContributionRecur struct {
	ID uint64

	ContactID uint64

	SubscriptionID *string
	ProcessorID    *string

	AmountCents int64
	Currency    string

	FrequencyUnit     string
	FrequencyInterval int32
	Installments      *int32

	StatusID  int32
	AutoRenew bool

	StartDate  *time.Time
	CancelDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
