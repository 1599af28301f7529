package gateway

import (
	"context"
	"encoding/json"
)

type SubscriptionInput struct {
	Name     string
	Schedule RecurrenceSchedule

	AmountCents int64
	Currency    string

	InvoiceID   string
	Description string

	CustomerID    string
	CustomerEmail string

	BillTo *BillingAddress
	Source PaymentSource
}

type scheduleInterval struct {
	Length int32  `json:"length"`
	Unit   string `json:"unit"`
}

type paymentSchedulePayload struct {
	Interval         scheduleInterval `json:"interval"`
	StartDate        string           `json:"startDate"`
	TotalOccurrences int32            `json:"totalOccurrences"`
}

type subscriptionPayload struct {
	Name            string                  `json:"name,omitempty"`
	PaymentSchedule *paymentSchedulePayload `json:"paymentSchedule,omitempty"`
	Amount          string                  `json:"amount,omitempty"`
	Payment         *paymentPayload         `json:"payment,omitempty"`
	Order           *orderPayload           `json:"order,omitempty"`
	Customer        *customerPayload        `json:"customer,omitempty"`
	BillTo          *BillingAddress         `json:"billTo,omitempty"`
}

type arbCreateSubscriptionRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	RefID                  string                 `json:"refId,omitempty"`
	Subscription           subscriptionPayload    `json:"subscription"`
}

type arbCreateSubscriptionResponse struct {
	SubscriptionID string      `json:"subscriptionId"`
	Messages       apiMessages `json:"messages"`
}

// CreateSubscription registers a new ARB subscription and returns the
// vendor's subscription id.
func (c *Client) CreateSubscription(ctx context.Context, input SubscriptionInput) (string, error) {
	payment, err := buildPaymentPayload(input.Source)
	if err != nil {
		return "", err
	}

	request := arbCreateSubscriptionRequest{
		MerchantAuthentication: c.auth(),
		RefID:                  TruncateInvoiceNumber(input.InvoiceID),
		Subscription: subscriptionPayload{
			Name: input.Name,
			PaymentSchedule: &paymentSchedulePayload{
				Interval: scheduleInterval{
					Length: input.Schedule.IntervalLength,
					Unit:   input.Schedule.IntervalUnit,
				},
				StartDate:        input.Schedule.StartDate.Format("2006-01-02"),
				TotalOccurrences: input.Schedule.TotalOccurrences,
			},
			Amount:  FormatAmount(input.AmountCents),
			Payment: payment,
			Order: &orderPayload{
				InvoiceNumber: TruncateInvoiceNumber(input.InvoiceID),
				Description:   input.Description,
			},
			Customer: &customerPayload{
				ID:    input.CustomerID,
				Email: input.CustomerEmail,
			},
			BillTo: input.BillTo,
		},
	}

	body, err := c.post(ctx, map[string]interface{}{"ARBCreateSubscriptionRequest": request})
	if err != nil {
		return "", err
	}

	var response arbCreateSubscriptionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if !response.Messages.ok() {
		return "", newAPIError(response.Messages, input.Currency)
	}

	return response.SubscriptionID, nil
}

// SubscriptionUpdate carries the mutable subset of an active subscription.
// Nil fields are left unchanged by the vendor.
type SubscriptionUpdate struct {
	AmountCents *int64
	Currency    string
	Source      *PaymentSource
	BillTo      *BillingAddress
}

type arbUpdateSubscriptionRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	SubscriptionID         string                 `json:"subscriptionId"`
	Subscription           subscriptionPayload    `json:"subscription"`
}

type arbResponse struct {
	Messages apiMessages `json:"messages"`
}

// UpdateSubscription amends an active ARB subscription in place.
func (c *Client) UpdateSubscription(ctx context.Context, subscriptionID string, update SubscriptionUpdate) error {
	request := arbUpdateSubscriptionRequest{
		MerchantAuthentication: c.auth(),
		SubscriptionID:         subscriptionID,
	}

	if update.AmountCents != nil {
		request.Subscription.Amount = FormatAmount(*update.AmountCents)
	}
	if update.Source != nil {
		payment, err := buildPaymentPayload(*update.Source)
		if err != nil {
			return err
		}
		request.Subscription.Payment = payment
	}
	request.Subscription.BillTo = update.BillTo

	body, err := c.post(ctx, map[string]interface{}{"ARBUpdateSubscriptionRequest": request})
	if err != nil {
		return err
	}

	var response arbResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return err
	}
	if !response.Messages.ok() {
		return newAPIError(response.Messages, update.Currency)
	}

	return nil
}

type arbCancelSubscriptionRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	SubscriptionID         string                 `json:"subscriptionId"`
}

// CancelSubscription terminates an ARB subscription at the vendor.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	request := arbCancelSubscriptionRequest{
		MerchantAuthentication: c.auth(),
		SubscriptionID:         subscriptionID,
	}

	body, err := c.post(ctx, map[string]interface{}{"ARBCancelSubscriptionRequest": request})
	if err != nil {
		return err
	}

	var response arbResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return err
	}
	if !response.Messages.ok() {
		return newAPIError(response.Messages, "")
	}

	return nil
}
