package gateway

import (
	"context"
	"encoding/json"
	"strings"
)

// Response codes returned in transactionResponse.responseCode.
const (
	responseCodeApproved = "1"
	responseCodeDeclined = "2"
	responseCodeError    = "3"
	responseCodeHeld     = "4"
)

type ChargeInput struct {
	AmountCents int64
	Currency    string

	InvoiceID   string
	Description string

	CustomerID    string
	CustomerEmail string
	CustomerIP    string

	BillTo *BillingAddress
	Source PaymentSource
}

type ChargeResult struct {
	TrxnID   string
	AuthCode string

	// Approved means the charge settled immediately. Held means the vendor
	// accepted the transaction but parked it for fraud review.
	Approved bool
	Held     bool

	ResponseCode string
	Message      string
}

type transactionRequestPayload struct {
	TransactionType string           `json:"transactionType"`
	Amount          string           `json:"amount"`
	Payment         *paymentPayload  `json:"payment"`
	Order           *orderPayload    `json:"order,omitempty"`
	Customer        *customerPayload `json:"customer,omitempty"`
	BillTo          *BillingAddress  `json:"billTo,omitempty"`
	CustomerIP      string           `json:"customerIP,omitempty"`
}

type createTransactionRequest struct {
	MerchantAuthentication merchantAuthentication    `json:"merchantAuthentication"`
	RefID                  string                    `json:"refId,omitempty"`
	TransactionRequest     transactionRequestPayload `json:"transactionRequest"`
}

type transactionResponseError struct {
	ErrorCode string `json:"errorCode"`
	ErrorText string `json:"errorText"`
}

type transactionResponseMessage struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type createTransactionResponse struct {
	TransactionResponse struct {
		ResponseCode string                       `json:"responseCode"`
		AuthCode     string                       `json:"authCode"`
		TransID      string                       `json:"transId"`
		Errors       []transactionResponseError   `json:"errors"`
		Messages     []transactionResponseMessage `json:"messages"`
	} `json:"transactionResponse"`
	Messages apiMessages `json:"messages"`
}

// Charge submits a single auth-and-capture transaction.
func (c *Client) Charge(ctx context.Context, input ChargeInput) (*ChargeResult, error) {
	payment, err := buildPaymentPayload(input.Source)
	if err != nil {
		return nil, err
	}

	request := createTransactionRequest{
		MerchantAuthentication: c.auth(),
		RefID:                  TruncateInvoiceNumber(input.InvoiceID),
		TransactionRequest: transactionRequestPayload{
			TransactionType: "authCaptureTransaction",
			Amount:          FormatAmount(input.AmountCents),
			Payment:         payment,
			Order: &orderPayload{
				InvoiceNumber: TruncateInvoiceNumber(input.InvoiceID),
				Description:   input.Description,
			},
			CustomerIP: input.CustomerIP,
			BillTo:     input.BillTo,
		},
	}
	if input.CustomerID != "" || input.CustomerEmail != "" {
		request.TransactionRequest.Customer = &customerPayload{
			ID:    input.CustomerID,
			Email: input.CustomerEmail,
		}
	}

	body, err := c.post(ctx, map[string]interface{}{"createTransactionRequest": request})
	if err != nil {
		return nil, err
	}

	var response createTransactionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}

	if !response.Messages.ok() && response.TransactionResponse.ResponseCode == "" {
		return nil, newAPIError(response.Messages, input.Currency)
	}

	tx := response.TransactionResponse
	result := &ChargeResult{
		TrxnID:       tx.TransID,
		AuthCode:     tx.AuthCode,
		ResponseCode: tx.ResponseCode,
	}

	switch tx.ResponseCode {
	case responseCodeApproved:
		result.Approved = true
		result.Message = firstTransactionMessage(tx.Messages)
	case responseCodeHeld:
		result.Held = true
		result.Message = firstTransactionMessage(tx.Messages)
	case responseCodeDeclined, responseCodeError:
		result.Message = joinTransactionErrors(tx.Errors)
	default:
		return nil, newAPIError(response.Messages, input.Currency)
	}

	return result, nil
}

func firstTransactionMessage(messages []transactionResponseMessage) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[0].Description
}

func joinTransactionErrors(errs []transactionResponseError) string {
	if len(errs) == 0 {
		return "transaction was not approved"
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.ErrorCode+": "+e.ErrorText)
	}
	return strings.Join(parts, "; ")
}
