package gateway

import (
	"context"
	"encoding/json"
	"strconv"
	"time"
)

// TransactionDetails is the authenticated record of a settled transaction.
// Webhook handling never trusts the notification payload; classification and
// amounts come from this fetch.
type TransactionDetails struct {
	TransID         string
	TransactionType string
	ResponseCode    string
	Status          string

	AmountCents   int64
	InvoiceNumber string

	SubscriptionID     string
	SubscriptionPayNum int32

	SubmitTime time.Time
}

// IsRecurring reports whether the transaction was generated by an ARB
// subscription.
func (d *TransactionDetails) IsRecurring() bool {
	return d.SubscriptionID != ""
}

type getTransactionDetailsRequest struct {
	MerchantAuthentication merchantAuthentication `json:"merchantAuthentication"`
	TransID                string                 `json:"transId"`
}

type getTransactionDetailsResponse struct {
	Transaction struct {
		TransID           string      `json:"transId"`
		SubmitTimeUTC     string      `json:"submitTimeUTC"`
		TransactionType   string      `json:"transactionType"`
		TransactionStatus string      `json:"transactionStatus"`
		ResponseCode      int32       `json:"responseCode"`
		AuthAmount        json.Number `json:"authAmount"`
		SettleAmount      json.Number `json:"settleAmount"`
		Order             struct {
			InvoiceNumber string `json:"invoiceNumber"`
		} `json:"order"`
		Subscription struct {
			ID     json.Number `json:"id"`
			PayNum int32       `json:"payNum"`
		} `json:"subscription"`
	} `json:"transaction"`
	Messages apiMessages `json:"messages"`
}

// GetTransactionDetails fetches the authoritative record of a transaction.
func (c *Client) GetTransactionDetails(ctx context.Context, transID string) (*TransactionDetails, error) {
	request := getTransactionDetailsRequest{
		MerchantAuthentication: c.auth(),
		TransID:                transID,
	}

	body, err := c.post(ctx, map[string]interface{}{"getTransactionDetailsRequest": request})
	if err != nil {
		return nil, err
	}

	var response getTransactionDetailsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}
	if !response.Messages.ok() {
		return nil, newAPIError(response.Messages, "")
	}

	tx := response.Transaction

	amount := tx.SettleAmount
	if amount == "" {
		amount = tx.AuthAmount
	}
	amountCents, err := ParseAmount(amount.String())
	if err != nil {
		return nil, err
	}

	details := &TransactionDetails{
		TransID:            tx.TransID,
		TransactionType:    tx.TransactionType,
		ResponseCode:       strconv.FormatInt(int64(tx.ResponseCode), 10),
		Status:             tx.TransactionStatus,
		AmountCents:        amountCents,
		InvoiceNumber:      tx.Order.InvoiceNumber,
		SubscriptionID:     tx.Subscription.ID.String(),
		SubscriptionPayNum: tx.Subscription.PayNum,
	}

	if tx.SubmitTimeUTC != "" {
		submitTime, err := time.Parse(time.RFC3339, tx.SubmitTimeUTC)
		if err == nil {
			details.SubmitTime = submitTime
		}
	}

	return details, nil
}
