package types

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type Contribution struct {
	ID                  uint64 `json:"id"`
	ContactID           uint64 `json:"contact_id"`
	ContributionRecurID uint64 `json:"contribution_recur_id,omitempty"`
	InvoiceID           string `json:"invoice_id"`
	TrxnID              string `json:"trxn_id,omitempty"`
	AmountCents         int64  `json:"amount_cents"`
	Currency            string `json:"currency"`
	Status              int32  `json:"status"`
	StatusLabel         string `json:"status_label"`
	IsTest              bool   `json:"is_test"`
	ReceiveDate         string `json:"receive_date,omitempty"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

type ContributionRecur struct {
	ID                uint64 `json:"id"`
	ContactID         uint64 `json:"contact_id"`
	SubscriptionID    string `json:"subscription_id,omitempty"`
	AmountCents       int64  `json:"amount_cents"`
	Currency          string `json:"currency"`
	FrequencyUnit     string `json:"frequency_unit"`
	FrequencyInterval int32  `json:"frequency_interval"`
	Installments      int32  `json:"installments,omitempty"`
	Status            int32  `json:"status"`
	StatusLabel       string `json:"status_label"`
	AutoRenew         bool   `json:"auto_renew"`
	StartDate         string `json:"start_date,omitempty"`
	CancelDate        string `json:"cancel_date,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type PaymentRecord struct {
	ID             uint64 `json:"id"`
	ContributionID uint64 `json:"contribution_id"`
	TrxnID         string `json:"trxn_id"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	TrxnDate       string `json:"trxn_date"`
	CreatedAt      string `json:"created_at"`
}

type ContributionEnvelopeResponse struct {
	Contribution *Contribution `json:"contribution"`
}

type ListContributionsResponse struct {
	Contributions []*Contribution `json:"contributions"`
}

type ListPaymentRecordsResponse struct {
	Payments []*PaymentRecord `json:"payments"`
}

type ContributionRecurEnvelopeResponse struct {
	ContributionRecur *ContributionRecur `json:"contribution_recur"`
}

type WebhookCheckResponse struct {
	WebhookID string `json:"webhook_id,omitempty"`
	Created   bool   `json:"created"`
	Updated   bool   `json:"updated"`
}
